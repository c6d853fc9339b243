package nfse

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/tworscontab/nfse-engine/internal/domain/entity"
)

func soapResponse(operation, result string) string {
	return fmt.Sprintf(`<?xml version="1.0" encoding="utf-8"?>
<soap:Envelope xmlns:soap="http://www.w3.org/2003/05/soap-envelope">
  <soap:Body>
    <%sResponse xmlns="http://tempuri.org/">
      <%sResult>%s</%sResult>
    </%sResponse>
  </soap:Body>
</soap:Envelope>`, operation, operation, result, operation, operation)
}

func testFixtures() (*entity.Invoice, *entity.Issuer, *entity.Client) {
	inv := &entity.Invoice{
		ID:          7,
		ServiceCode: "0107",
		TotalValue:  decimal.NewFromFloat(1000),
		TaxRate:     decimal.NewFromFloat(2),
		Description: "Desenvolvimento de software",
	}
	issuer := &entity.Issuer{
		RazaoSocial: "ACME Servicos LTDA",
		CNPJCPF:     "12345678000190",
		Email:       "fiscal@acme.com.br",
	}
	client := &entity.Client{CPFCNPJ: "12345678901"}
	return inv, issuer, client
}

func newTestClient(url string) *Client {
	return NewClient(Config{
		AccessKey: "chave",
		ClientID:  "cn-01",
		URL:       url,
		Timeout:   5 * time.Second,
	}, zap.NewNop())
}

func TestClient_Submit_Success(t *testing.T) {
	var gotBody string
	var gotAction string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		raw, _ := io.ReadAll(r.Body)
		gotBody = string(raw)
		gotAction = r.Header.Get("SOAPAction")
		assert.Contains(t, r.Header.Get("Content-Type"), "application/soap+xml")
		fmt.Fprint(w, soapResponse("eNFSe", "NFSe gerada com sucesso"))
	}))
	defer srv.Close()

	inv, issuer, client := testFixtures()
	err := newTestClient(srv.URL).Submit(context.Background(), inv, issuer, client)
	require.NoError(t, err)

	assert.Equal(t, "http://tempuri.org/eNFSe", gotAction)
	assert.Contains(t, gotBody, "<sPrestador>12.345.678/0001-90</sPrestador>")
	assert.Contains(t, gotBody, "<sTomador>123.456.789-01</sTomador>")
	assert.Contains(t, gotBody, "<sValor>1000.00</sValor>")
	assert.Contains(t, gotBody, "<sAliquota>2.00</sAliquota>")
	assert.Contains(t, gotBody, "<sCodigoServico>0107</sCodigoServico>")
	assert.Contains(t, gotBody, "<sValorDeducao>0</sValorDeducao>")
	assert.Contains(t, gotBody, "<sAccessKey>chave</sAccessKey>")
	assert.Contains(t, gotBody, "<sCN>cn-01</sCN>")
}

func TestClient_Submit_Failures(t *testing.T) {
	tests := []struct {
		name    string
		handler http.HandlerFunc
	}{
		{
			name: "authority error marker",
			handler: func(w http.ResponseWriter, r *http.Request) {
				fmt.Fprint(w, soapResponse("eNFSe", "Erro: inscricao municipal invalida"))
			},
		},
		{
			name: "empty result",
			handler: func(w http.ResponseWriter, r *http.Request) {
				fmt.Fprint(w, soapResponse("eNFSe", ""))
			},
		},
		{
			name: "missing result element",
			handler: func(w http.ResponseWriter, r *http.Request) {
				fmt.Fprint(w, `<?xml version="1.0"?><Envelope><Body/></Envelope>`)
			},
		},
		{
			name: "malformed xml",
			handler: func(w http.ResponseWriter, r *http.Request) {
				fmt.Fprint(w, `<not-xml`)
			},
		},
		{
			name: "http error status",
			handler: func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(http.StatusInternalServerError)
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(tt.handler)
			defer srv.Close()

			inv, issuer, client := testFixtures()
			err := newTestClient(srv.URL).Submit(context.Background(), inv, issuer, client)
			assert.ErrorIs(t, err, ErrUpstream)
		})
	}
}

func TestClient_Submit_TransportFailure(t *testing.T) {
	inv, issuer, client := testFixtures()
	err := newTestClient("http://127.0.0.1:1").Submit(context.Background(), inv, issuer, client)
	assert.ErrorIs(t, err, ErrUpstream)
}

func TestClient_Query_Success(t *testing.T) {
	payload := `[{"ID": "41", "Status": "PENDENTE"}, {"ID": "42", "Status": "EMITIDA", "NFSe": "000123", "Emissao": "05/03/2024"}]`
	var gotBody string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		raw, _ := io.ReadAll(r.Body)
		gotBody = string(raw)
		fmt.Fprint(w, soapResponse("eNFSe_GetAll_DMS_E", payload))
	}))
	defer srv.Close()

	from := time.Date(2024, 3, 5, 12, 0, 0, 0, time.UTC)
	to := time.Date(2024, 3, 6, 12, 0, 0, 0, time.UTC)
	records, err := newTestClient(srv.URL).Query(context.Background(), "12345678000190", from, to)
	require.NoError(t, err)
	require.Len(t, records, 2)

	assert.Contains(t, gotBody, "<sDataInicial>05/03/2024</sDataInicial>")
	assert.Contains(t, gotBody, "<sDataFinal>06/03/2024</sDataFinal>")
	assert.Contains(t, gotBody, "<sPrestador>12.345.678/0001-90</sPrestador>")

	assert.Equal(t, "42", records[1].ID)
	assert.True(t, records[1].IsIssued())
	assert.False(t, records[0].IsIssued())
}

func TestClient_Query_Failures(t *testing.T) {
	tests := []struct {
		name   string
		result string
	}{
		{"empty result", ""},
		{"unparsable json", "not-json"},
		{"empty array", "[]"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				fmt.Fprint(w, soapResponse("eNFSe_GetAll_DMS_E", tt.result))
			}))
			defer srv.Close()

			_, err := newTestClient(srv.URL).Query(context.Background(), "12345678000190", time.Now(), time.Now())
			assert.ErrorIs(t, err, ErrUpstream)
		})
	}
}

func TestLatestRecordID(t *testing.T) {
	tests := []struct {
		name    string
		records []RemoteRecord
		wantID  int64
		wantOK  bool
	}{
		{
			name:    "picks numerically largest id",
			records: []RemoteRecord{{ID: "9"}, {ID: "42"}, {ID: "17"}},
			wantID:  42,
			wantOK:  true,
		},
		{
			name:    "single record",
			records: []RemoteRecord{{ID: "5"}},
			wantID:  5,
			wantOK:  true,
		},
		{
			name:    "non-numeric ids ignored",
			records: []RemoteRecord{{ID: "abc"}, {ID: "3"}},
			wantID:  3,
			wantOK:  true,
		},
		{
			name:    "no usable records",
			records: []RemoteRecord{{ID: "abc"}},
			wantOK:  false,
		},
		{
			name:   "empty slice",
			wantOK: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			id, ok := LatestRecordID(tt.records)
			assert.Equal(t, tt.wantOK, ok)
			if tt.wantOK {
				assert.Equal(t, tt.wantID, id)
			}
		})
	}
}
