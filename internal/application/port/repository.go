package port

import (
	"context"
	"time"

	"github.com/tworscontab/nfse-engine/internal/domain/entity"
)

// InvoiceRepository defines persistence operations for Invoice.
type InvoiceRepository interface {
	Create(ctx context.Context, inv *entity.Invoice) error
	GetByID(ctx context.Context, id int64) (*entity.Invoice, error)
	GetForIssuer(ctx context.Context, issuerID, id int64) (*entity.Invoice, error)
	ListByIssuer(ctx context.Context, issuerID int64) ([]*entity.Invoice, error)
	ListAll(ctx context.Context) ([]*entity.Invoice, error)
	ListProcessingByIssuer(ctx context.Context, issuerID int64) ([]*entity.Invoice, error)
	ListIssuerIDsWithProcessing(ctx context.Context) ([]int64, error)
	ListIssuedBetween(ctx context.Context, from, to time.Time) ([]*entity.Invoice, error)
	Update(ctx context.Context, inv *entity.Invoice) error
	UpdateStatus(ctx context.Context, id int64, statusID int) error
	MarkRejected(ctx context.Context, id int64, reason string) error
	ClaimProcessing(ctx context.Context, id int64) (bool, error)
	ReleaseToPending(ctx context.Context, id int64) error
	SetRemoteID(ctx context.Context, id, remoteID int64) error
	PromoteIssued(ctx context.Context, id int64, number string, issueDate *time.Time, pdfLink, xmlLink string) error
}

// ClientRepository defines persistence operations for Client.
type ClientRepository interface {
	Create(ctx context.Context, c *entity.Client) error
	GetByID(ctx context.Context, id int64) (*entity.Client, error)
	GetByTaxID(ctx context.Context, issuerID int64, cpfCnpj string) (*entity.Client, error)
	Update(ctx context.Context, c *entity.Client) error
}

// IssuerRepository defines lookup operations for Issuer.
type IssuerRepository interface {
	GetByID(ctx context.Context, id int64) (*entity.Issuer, error)
}

// ActivityRepository resolves CNAE codes to service-list codes.
type ActivityRepository interface {
	ServiceCodeByCNAE(ctx context.Context, codCNAE string) (string, error)
}

// TransactionManager runs a function inside a database transaction.
type TransactionManager interface {
	WithTransaction(ctx context.Context, fn func(ctx context.Context) error) error
}
