package http

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/tworscontab/nfse-engine/internal/application/service"
	"github.com/tworscontab/nfse-engine/internal/domain/entity"
	"github.com/tworscontab/nfse-engine/internal/repository"
)

type mockInvoiceService struct {
	createFunc  func(ctx context.Context, actor *entity.Issuer, in service.CreateInvoiceInput) (*entity.Invoice, error)
	getFunc     func(ctx context.Context, actor *entity.Issuer, id int64) (*entity.Invoice, error)
	listFunc    func(ctx context.Context, actor *entity.Issuer) ([]*entity.Invoice, error)
	listAllFunc func(ctx context.Context, actor *entity.Issuer) ([]*entity.Invoice, error)
	updateFunc  func(ctx context.Context, actor *entity.Issuer, id int64, upd entity.InvoiceUpdate) (*entity.Invoice, error)
	approveFunc func(ctx context.Context, actor *entity.Issuer, id int64) (*entity.Invoice, error)
	rejectFunc  func(ctx context.Context, actor *entity.Issuer, id int64, reason string) (*entity.Invoice, error)
	emitFunc    func(ctx context.Context, actor *entity.Issuer, id int64) (*entity.Invoice, error)
}

func (m *mockInvoiceService) Create(ctx context.Context, actor *entity.Issuer, in service.CreateInvoiceInput) (*entity.Invoice, error) {
	if m.createFunc != nil {
		return m.createFunc(ctx, actor, in)
	}
	return &entity.Invoice{ID: 1, IssuerID: actor.ID}, nil
}

func (m *mockInvoiceService) Get(ctx context.Context, actor *entity.Issuer, id int64) (*entity.Invoice, error) {
	if m.getFunc != nil {
		return m.getFunc(ctx, actor, id)
	}
	return &entity.Invoice{ID: id, IssuerID: actor.ID}, nil
}

func (m *mockInvoiceService) List(ctx context.Context, actor *entity.Issuer) ([]*entity.Invoice, error) {
	if m.listFunc != nil {
		return m.listFunc(ctx, actor)
	}
	return []*entity.Invoice{}, nil
}

func (m *mockInvoiceService) ListAll(ctx context.Context, actor *entity.Issuer) ([]*entity.Invoice, error) {
	if m.listAllFunc != nil {
		return m.listAllFunc(ctx, actor)
	}
	return []*entity.Invoice{}, nil
}

func (m *mockInvoiceService) Update(ctx context.Context, actor *entity.Issuer, id int64, upd entity.InvoiceUpdate) (*entity.Invoice, error) {
	if m.updateFunc != nil {
		return m.updateFunc(ctx, actor, id, upd)
	}
	return &entity.Invoice{ID: id}, nil
}

func (m *mockInvoiceService) Approve(ctx context.Context, actor *entity.Issuer, id int64) (*entity.Invoice, error) {
	if m.approveFunc != nil {
		return m.approveFunc(ctx, actor, id)
	}
	return &entity.Invoice{ID: id}, nil
}

func (m *mockInvoiceService) Reject(ctx context.Context, actor *entity.Issuer, id int64, reason string) (*entity.Invoice, error) {
	if m.rejectFunc != nil {
		return m.rejectFunc(ctx, actor, id, reason)
	}
	return &entity.Invoice{ID: id}, nil
}

func (m *mockInvoiceService) Emit(ctx context.Context, actor *entity.Issuer, id int64) (*entity.Invoice, error) {
	if m.emitFunc != nil {
		return m.emitFunc(ctx, actor, id)
	}
	return &entity.Invoice{ID: id}, nil
}

type mockReportService struct {
	reportFunc func(ctx context.Context, actor *entity.Issuer, year int, month time.Month) ([]byte, string, error)
}

func (m *mockReportService) IssuedInvoicesReport(ctx context.Context, actor *entity.Issuer, year int, month time.Month) ([]byte, string, error) {
	if m.reportFunc != nil {
		return m.reportFunc(ctx, actor, year, month)
	}
	return []byte("xlsx"), "notas.xlsx", nil
}

type mockIssuerRepo struct {
	getByIDFunc func(ctx context.Context, id int64) (*entity.Issuer, error)
}

func (m *mockIssuerRepo) GetByID(ctx context.Context, id int64) (*entity.Issuer, error) {
	if m.getByIDFunc != nil {
		return m.getByIDFunc(ctx, id)
	}
	return &entity.Issuer{ID: id, RoleID: entity.RoleIssuer, CanEmit: true}, nil
}

func newTestServer(invoiceSvc service.InvoiceService, reportSvc service.ReportService, issuerRepo *mockIssuerRepo) *Server {
	if issuerRepo == nil {
		issuerRepo = &mockIssuerRepo{}
	}
	return NewServer(DefaultServerConfig(), invoiceSvc, reportSvc, issuerRepo, zap.NewNop())
}

func doRequest(s *Server, method, path, issuerID string, body []byte) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, bytes.NewReader(body))
	if issuerID != "" {
		req.Header.Set("X-Issuer-ID", issuerID)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	w := httptest.NewRecorder()
	s.Router().ServeHTTP(w, req)
	return w
}

func TestHealthCheck(t *testing.T) {
	s := newTestServer(&mockInvoiceService{}, &mockReportService{}, nil)
	w := doRequest(s, http.MethodGet, "/health", "", nil)
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestPrincipalMiddleware(t *testing.T) {
	t.Run("missing header", func(t *testing.T) {
		s := newTestServer(&mockInvoiceService{}, &mockReportService{}, nil)
		w := doRequest(s, http.MethodGet, "/api/invoices", "", nil)
		assert.Equal(t, http.StatusUnauthorized, w.Code)
	})

	t.Run("unknown issuer", func(t *testing.T) {
		repo := &mockIssuerRepo{
			getByIDFunc: func(ctx context.Context, id int64) (*entity.Issuer, error) {
				return nil, repository.ErrNotFound
			},
		}
		s := newTestServer(&mockInvoiceService{}, &mockReportService{}, repo)
		w := doRequest(s, http.MethodGet, "/api/invoices", "999", nil)
		assert.Equal(t, http.StatusUnauthorized, w.Code)
	})

	t.Run("known issuer passes through", func(t *testing.T) {
		s := newTestServer(&mockInvoiceService{}, &mockReportService{}, nil)
		w := doRequest(s, http.MethodGet, "/api/invoices", "7", nil)
		assert.Equal(t, http.StatusOK, w.Code)
	})
}

func TestCreateInvoice(t *testing.T) {
	t.Run("created", func(t *testing.T) {
		svc := &mockInvoiceService{
			createFunc: func(ctx context.Context, a *entity.Issuer, in service.CreateInvoiceInput) (*entity.Invoice, error) {
				assert.Equal(t, "6201-5/01", in.CodCNAE)
				assert.Equal(t, "1000", in.TotalValue.String())
				return &entity.Invoice{ID: 5, IssuerID: a.ID}, nil
			},
		}
		s := newTestServer(svc, &mockReportService{}, nil)

		body := []byte(`{"cod_cnae":"6201-5/01","valor_total":"1000.00","razao_social":"Tomador Ltda","cpf_cnpj":"12345678000190"}`)
		w := doRequest(s, http.MethodPost, "/api/invoices", "7", body)
		require.Equal(t, http.StatusCreated, w.Code)

		var resp Response
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
		assert.True(t, resp.Success)
	})

	t.Run("missing fields", func(t *testing.T) {
		s := newTestServer(&mockInvoiceService{}, &mockReportService{}, nil)
		w := doRequest(s, http.MethodPost, "/api/invoices", "7", []byte(`{}`))
		assert.Equal(t, http.StatusBadRequest, w.Code)
	})
}

func TestErrorMapping(t *testing.T) {
	tests := []struct {
		name       string
		err        error
		wantStatus int
	}{
		{"validation", service.ErrValidation, http.StatusBadRequest},
		{"forbidden", service.ErrForbidden, http.StatusForbidden},
		{"not found", service.ErrNotFound, http.StatusNotFound},
		{"precondition", service.ErrPrecondition, http.StatusConflict},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := &mockInvoiceService{
				emitFunc: func(ctx context.Context, a *entity.Issuer, id int64) (*entity.Invoice, error) {
					return nil, tt.err
				},
			}
			s := newTestServer(svc, &mockReportService{}, nil)
			w := doRequest(s, http.MethodPost, "/api/invoices/5/emit", "7", nil)
			assert.Equal(t, tt.wantStatus, w.Code)
		})
	}
}

func TestRejectInvoice(t *testing.T) {
	t.Run("reason forwarded", func(t *testing.T) {
		var gotReason string
		svc := &mockInvoiceService{
			rejectFunc: func(ctx context.Context, a *entity.Issuer, id int64, reason string) (*entity.Invoice, error) {
				gotReason = reason
				return &entity.Invoice{ID: id}, nil
			},
		}
		s := newTestServer(svc, &mockReportService{}, nil)
		w := doRequest(s, http.MethodPut, "/api/invoices/5/reject", "1", []byte(`{"motivo":"valor incorreto"}`))
		assert.Equal(t, http.StatusOK, w.Code)
		assert.Equal(t, "valor incorreto", gotReason)
	})

	t.Run("missing reason", func(t *testing.T) {
		s := newTestServer(&mockInvoiceService{}, &mockReportService{}, nil)
		w := doRequest(s, http.MethodPut, "/api/invoices/5/reject", "1", []byte(`{}`))
		assert.Equal(t, http.StatusBadRequest, w.Code)
	})
}

func TestIssuedInvoicesReport(t *testing.T) {
	s := newTestServer(&mockInvoiceService{}, &mockReportService{}, nil)

	t.Run("downloads workbook", func(t *testing.T) {
		w := doRequest(s, http.MethodGet, "/api/reports/issued?year=2024&month=3", "1", nil)
		require.Equal(t, http.StatusOK, w.Code)
		assert.Contains(t, w.Header().Get("Content-Disposition"), "notas.xlsx")
	})

	t.Run("invalid month", func(t *testing.T) {
		w := doRequest(s, http.MethodGet, "/api/reports/issued?year=2024&month=13", "1", nil)
		assert.Equal(t, http.StatusBadRequest, w.Code)
	})
}
