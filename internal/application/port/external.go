package port

import (
	"context"
	"time"

	"github.com/tworscontab/nfse-engine/internal/domain/entity"
	"github.com/tworscontab/nfse-engine/internal/nfse"
)

// TaxAuthority is the protocol adapter boundary. Errors returned by either
// operation wrap nfse.ErrUpstream.
type TaxAuthority interface {
	// Submit sends one invoice for emission. Local state must not advance
	// until Submit returns nil.
	Submit(ctx context.Context, inv *entity.Invoice, issuer *entity.Issuer, client *entity.Client) error

	// Query returns every record the authority holds for the issuer inside
	// the inclusive civil-date window.
	Query(ctx context.Context, issuerTaxID string, from, to time.Time) ([]nfse.RemoteRecord, error)
}

// Notifier delivers fire-and-forget notifications to administrators. Failures
// are logged by implementations and never affect the invoice flow.
type Notifier interface {
	NotifyInvoiceCreated(ctx context.Context, inv *entity.Invoice, issuer *entity.Issuer)
}
