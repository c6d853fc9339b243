package service

import (
	"context"
	"time"

	"github.com/tworscontab/nfse-engine/internal/domain/entity"
	"github.com/tworscontab/nfse-engine/internal/nfse"
	"github.com/tworscontab/nfse-engine/internal/repository"
)

// Mock repositories

type mockInvoiceRepo struct {
	createFunc                 func(ctx context.Context, inv *entity.Invoice) error
	getByIDFunc                func(ctx context.Context, id int64) (*entity.Invoice, error)
	getForIssuerFunc           func(ctx context.Context, issuerID, id int64) (*entity.Invoice, error)
	listByIssuerFunc           func(ctx context.Context, issuerID int64) ([]*entity.Invoice, error)
	listAllFunc                func(ctx context.Context) ([]*entity.Invoice, error)
	listProcessingFunc         func(ctx context.Context, issuerID int64) ([]*entity.Invoice, error)
	listIssuerIDsFunc          func(ctx context.Context) ([]int64, error)
	listIssuedBetweenFunc      func(ctx context.Context, from, to time.Time) ([]*entity.Invoice, error)
	updateFunc                 func(ctx context.Context, inv *entity.Invoice) error
	updateStatusFunc           func(ctx context.Context, id int64, statusID int) error
	markRejectedFunc           func(ctx context.Context, id int64, reason string) error
	claimProcessingFunc        func(ctx context.Context, id int64) (bool, error)
	releaseToPendingFunc       func(ctx context.Context, id int64) error
	setRemoteIDFunc            func(ctx context.Context, id, remoteID int64) error
	promoteIssuedFunc          func(ctx context.Context, id int64, number string, issueDate *time.Time, pdfLink, xmlLink string) error
}

func (m *mockInvoiceRepo) Create(ctx context.Context, inv *entity.Invoice) error {
	if m.createFunc != nil {
		return m.createFunc(ctx, inv)
	}
	inv.ID = 1
	return nil
}

func (m *mockInvoiceRepo) GetByID(ctx context.Context, id int64) (*entity.Invoice, error) {
	if m.getByIDFunc != nil {
		return m.getByIDFunc(ctx, id)
	}
	return nil, repository.ErrNotFound
}

func (m *mockInvoiceRepo) GetForIssuer(ctx context.Context, issuerID, id int64) (*entity.Invoice, error) {
	if m.getForIssuerFunc != nil {
		return m.getForIssuerFunc(ctx, issuerID, id)
	}
	return nil, repository.ErrNotFound
}

func (m *mockInvoiceRepo) ListByIssuer(ctx context.Context, issuerID int64) ([]*entity.Invoice, error) {
	if m.listByIssuerFunc != nil {
		return m.listByIssuerFunc(ctx, issuerID)
	}
	return []*entity.Invoice{}, nil
}

func (m *mockInvoiceRepo) ListAll(ctx context.Context) ([]*entity.Invoice, error) {
	if m.listAllFunc != nil {
		return m.listAllFunc(ctx)
	}
	return []*entity.Invoice{}, nil
}

func (m *mockInvoiceRepo) ListProcessingByIssuer(ctx context.Context, issuerID int64) ([]*entity.Invoice, error) {
	if m.listProcessingFunc != nil {
		return m.listProcessingFunc(ctx, issuerID)
	}
	return []*entity.Invoice{}, nil
}

func (m *mockInvoiceRepo) ListIssuerIDsWithProcessing(ctx context.Context) ([]int64, error) {
	if m.listIssuerIDsFunc != nil {
		return m.listIssuerIDsFunc(ctx)
	}
	return nil, nil
}

func (m *mockInvoiceRepo) ListIssuedBetween(ctx context.Context, from, to time.Time) ([]*entity.Invoice, error) {
	if m.listIssuedBetweenFunc != nil {
		return m.listIssuedBetweenFunc(ctx, from, to)
	}
	return []*entity.Invoice{}, nil
}

func (m *mockInvoiceRepo) Update(ctx context.Context, inv *entity.Invoice) error {
	if m.updateFunc != nil {
		return m.updateFunc(ctx, inv)
	}
	return nil
}

func (m *mockInvoiceRepo) UpdateStatus(ctx context.Context, id int64, statusID int) error {
	if m.updateStatusFunc != nil {
		return m.updateStatusFunc(ctx, id, statusID)
	}
	return nil
}

func (m *mockInvoiceRepo) MarkRejected(ctx context.Context, id int64, reason string) error {
	if m.markRejectedFunc != nil {
		return m.markRejectedFunc(ctx, id, reason)
	}
	return nil
}

func (m *mockInvoiceRepo) ClaimProcessing(ctx context.Context, id int64) (bool, error) {
	if m.claimProcessingFunc != nil {
		return m.claimProcessingFunc(ctx, id)
	}
	return true, nil
}

func (m *mockInvoiceRepo) ReleaseToPending(ctx context.Context, id int64) error {
	if m.releaseToPendingFunc != nil {
		return m.releaseToPendingFunc(ctx, id)
	}
	return nil
}

func (m *mockInvoiceRepo) SetRemoteID(ctx context.Context, id, remoteID int64) error {
	if m.setRemoteIDFunc != nil {
		return m.setRemoteIDFunc(ctx, id, remoteID)
	}
	return nil
}

func (m *mockInvoiceRepo) PromoteIssued(ctx context.Context, id int64, number string, issueDate *time.Time, pdfLink, xmlLink string) error {
	if m.promoteIssuedFunc != nil {
		return m.promoteIssuedFunc(ctx, id, number, issueDate, pdfLink, xmlLink)
	}
	return nil
}

type mockClientRepo struct {
	createFunc     func(ctx context.Context, c *entity.Client) error
	getByIDFunc    func(ctx context.Context, id int64) (*entity.Client, error)
	getByTaxIDFunc func(ctx context.Context, issuerID int64, cpfCnpj string) (*entity.Client, error)
	updateFunc     func(ctx context.Context, c *entity.Client) error
}

func (m *mockClientRepo) Create(ctx context.Context, c *entity.Client) error {
	if m.createFunc != nil {
		return m.createFunc(ctx, c)
	}
	c.ID = 10
	return nil
}

func (m *mockClientRepo) GetByID(ctx context.Context, id int64) (*entity.Client, error) {
	if m.getByIDFunc != nil {
		return m.getByIDFunc(ctx, id)
	}
	return &entity.Client{ID: id, RazaoSocial: "Tomador Ltda", CPFCNPJ: "12345678000190"}, nil
}

func (m *mockClientRepo) GetByTaxID(ctx context.Context, issuerID int64, cpfCnpj string) (*entity.Client, error) {
	if m.getByTaxIDFunc != nil {
		return m.getByTaxIDFunc(ctx, issuerID, cpfCnpj)
	}
	return nil, repository.ErrNotFound
}

func (m *mockClientRepo) Update(ctx context.Context, c *entity.Client) error {
	if m.updateFunc != nil {
		return m.updateFunc(ctx, c)
	}
	return nil
}

type mockIssuerRepo struct {
	getByIDFunc func(ctx context.Context, id int64) (*entity.Issuer, error)
}

func (m *mockIssuerRepo) GetByID(ctx context.Context, id int64) (*entity.Issuer, error) {
	if m.getByIDFunc != nil {
		return m.getByIDFunc(ctx, id)
	}
	return &entity.Issuer{ID: id, RazaoSocial: "Prestador SA", CNPJCPF: "00111222000133", CanEmit: true, RoleID: entity.RoleIssuer}, nil
}

type mockActivityRepo struct {
	serviceCodeFunc func(ctx context.Context, codCNAE string) (string, error)
}

func (m *mockActivityRepo) ServiceCodeByCNAE(ctx context.Context, codCNAE string) (string, error) {
	if m.serviceCodeFunc != nil {
		return m.serviceCodeFunc(ctx, codCNAE)
	}
	return "0107", nil
}

// Mock external ports

type mockAuthority struct {
	submitFunc func(ctx context.Context, inv *entity.Invoice, issuer *entity.Issuer, client *entity.Client) error
	queryFunc  func(ctx context.Context, issuerTaxID string, from, to time.Time) ([]nfse.RemoteRecord, error)

	submitCalls int
	queryCalls  int
}

func (m *mockAuthority) Submit(ctx context.Context, inv *entity.Invoice, issuer *entity.Issuer, client *entity.Client) error {
	m.submitCalls++
	if m.submitFunc != nil {
		return m.submitFunc(ctx, inv, issuer, client)
	}
	return nil
}

func (m *mockAuthority) Query(ctx context.Context, issuerTaxID string, from, to time.Time) ([]nfse.RemoteRecord, error) {
	m.queryCalls++
	if m.queryFunc != nil {
		return m.queryFunc(ctx, issuerTaxID, from, to)
	}
	return []nfse.RemoteRecord{}, nil
}

type mockNotifier struct {
	created []int64
}

func (m *mockNotifier) NotifyInvoiceCreated(ctx context.Context, inv *entity.Invoice, issuer *entity.Issuer) {
	m.created = append(m.created, inv.ID)
}

type mockReconciler struct {
	reconcileFunc func(ctx context.Context, issuerID int64) error
	calls         int
}

func (m *mockReconciler) ReconcileIssuer(ctx context.Context, issuerID int64) error {
	m.calls++
	if m.reconcileFunc != nil {
		return m.reconcileFunc(ctx, issuerID)
	}
	return nil
}

type mockTxManager struct{}

func (m *mockTxManager) WithTransaction(ctx context.Context, fn func(ctx context.Context) error) error {
	return fn(ctx)
}
