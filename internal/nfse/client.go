// Package nfse is the protocol adapter for the municipal tax authority's
// legacy XML/SOAP service. The service wraps every payload in a SOAP 1.2
// envelope and, for queries, embeds a JSON-encoded array as the text of the
// result element.
package nfse

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/tworscontab/nfse-engine/internal/brdoc"
	"github.com/tworscontab/nfse-engine/internal/domain/entity"
)

const defaultTimeout = 60 * time.Second

// errorMarker is the substring the authority embeds in an otherwise
// successful-looking result when submission failed on its side.
const errorMarker = "erro"

// Config holds the adapter configuration. It is constructed once at process
// start and passed in by value; the adapter never reads ambient state.
type Config struct {
	AccessKey string
	ClientID  string
	URL       string
	Timeout   time.Duration
}

// Client talks to the tax authority endpoint.
type Client struct {
	cfg        Config
	httpClient *http.Client
	logger     *zap.Logger
}

// NewClient creates a new protocol adapter client.
func NewClient(cfg Config, logger *zap.Logger) *Client {
	if cfg.Timeout <= 0 {
		cfg.Timeout = defaultTimeout
	}
	return &Client{
		cfg:        cfg,
		httpClient: &http.Client{Timeout: cfg.Timeout},
		logger:     logger,
	}
}

// Submit serializes the invoice into a submission envelope and sends it. The
// returned error wraps ErrUpstream for any transport failure, non-success
// status, malformed envelope or authority-reported error text. The caller
// must not advance local state before Submit returns nil.
func (c *Client) Submit(ctx context.Context, inv *entity.Invoice, issuer *entity.Issuer, client *entity.Client) error {
	req := &submitRequest{
		Namespace:     serviceNamespace,
		AccessKey:     c.cfg.AccessKey,
		ClientID:      c.cfg.ClientID,
		IssuerName:    issuer.RazaoSocial,
		IssuerTaxID:   brdoc.FormatCPFCNPJ(issuer.CNPJCPF),
		MunicipalReg:  issuer.InscMunicipal,
		ClientTaxID:   brdoc.FormatCPFCNPJ(client.CPFCNPJ),
		Value:         inv.TotalValue.StringFixed(2),
		ServiceCode:   inv.ServiceCode,
		TaxRate:       inv.TaxRate.StringFixed(2),
		DeductedValue: "0",
		RPSTaxation:   "0",
		Description:   inv.Description,
		Cofins:        "0",
		PIS:           "0",
		CSLL:          "0",
		IR:            "0",
		Email:         issuer.Email,
	}

	result, err := c.call(ctx, submitAction, soapBody{Submit: req})
	if err != nil {
		return err
	}

	if strings.TrimSpace(result) == "" {
		return upstreamErr("submission returned an empty result")
	}
	if strings.Contains(strings.ToLower(result), errorMarker) {
		return upstreamErr("submission rejected: %s", result)
	}

	c.logger.Info("NFSe submission accepted",
		zap.Int64("invoice_id", inv.ID),
		zap.String("result", result))
	return nil
}

// Query returns every record the authority holds for the issuer within the
// inclusive civil-date window. Both bounds are projected into the authority's
// timezone. An empty or unparsable result is an upstream failure.
func (c *Client) Query(ctx context.Context, issuerTaxID string, from, to time.Time) ([]RemoteRecord, error) {
	req := &queryRequest{
		Namespace:   serviceNamespace,
		AccessKey:   c.cfg.AccessKey,
		IssuerTaxID: brdoc.FormatCPFCNPJ(issuerTaxID),
		DateFrom:    brdoc.CivilDate(from),
		DateTo:      brdoc.CivilDate(to),
	}

	result, err := c.call(ctx, queryAction, soapBody{Query: req})
	if err != nil {
		return nil, err
	}

	if strings.TrimSpace(result) == "" {
		return nil, upstreamErr("query returned an empty result")
	}

	var records []RemoteRecord
	if err := json.Unmarshal([]byte(result), &records); err != nil {
		return nil, upstreamErr("query result is not a JSON array: %v", err)
	}
	if len(records) == 0 {
		return nil, upstreamErr("query returned no records for %s..%s", req.DateFrom, req.DateTo)
	}

	c.logger.Debug("NFSe query completed",
		zap.String("from", req.DateFrom),
		zap.String("to", req.DateTo),
		zap.Int("records", len(records)))
	return records, nil
}

// call performs one SOAP round-trip under the adapter's own timeout and
// extracts the operation's result text.
func (c *Client) call(ctx context.Context, operation string, body soapBody) (string, error) {
	payload, err := marshalEnvelope(body)
	if err != nil {
		return "", err
	}

	ctx, cancel := context.WithTimeout(ctx, c.cfg.Timeout)
	defer cancel()

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.cfg.URL, bytes.NewReader(payload))
	if err != nil {
		return "", upstreamErr("build request: %v", err)
	}
	httpReq.Header.Set("Content-Type", "application/soap+xml; charset=utf-8")
	httpReq.Header.Set("SOAPAction", serviceNamespace+operation)

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return "", upstreamErr("%s transport failure: %v", operation, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", upstreamErr("%s read response: %v", operation, err)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return "", upstreamErr("%s returned HTTP %d", operation, resp.StatusCode)
	}

	return extractResult(raw, operation)
}
