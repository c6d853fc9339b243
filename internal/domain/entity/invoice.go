package entity

import (
	"time"

	"github.com/shopspring/decimal"
)

// Invoice represents an NFSe service invoice issued on behalf of an issuer.
// RemoteID, InvoiceNumber, IssueDate and the artifact links stay unset until
// the tax authority confirms the invoice.
type Invoice struct {
	ID            int64           `json:"id"`
	IssuerID      int64           `json:"issuer_id"`
	ClientID      *int64          `json:"client_id,omitempty"`
	CodCNAE       string          `json:"cod_cnae"`
	ServiceCode   string          `json:"codigo_lista_servico"`
	TotalValue    decimal.Decimal `json:"valor_total"`
	Description   string          `json:"descricao"`
	TaxRate       decimal.Decimal `json:"aliquota"`
	StatusID      int             `json:"status_id"`
	RejectReason  string          `json:"desc_motivo,omitempty"`
	InvoiceNumber string          `json:"numero_nota,omitempty"`
	IssueDate     *time.Time      `json:"data_emissao,omitempty"`
	RemoteID      *int64          `json:"remote_id,omitempty"`
	PDFLink       string          `json:"link_pdf,omitempty"`
	XMLLink       string          `json:"link_xml,omitempty"`
	CreatedAt     time.Time       `json:"data_criacao"`
	UpdatedAt     time.Time       `json:"data_atualizacao"`

	Client *Client `json:"cliente,omitempty"`
}

// InvoiceUpdate is the typed partial update an issuer may apply while an
// invoice is resubmitted. Nil fields are left untouched; every mutable field
// is enumerated here so nothing is copied dynamically.
type InvoiceUpdate struct {
	CodCNAE     *string
	TotalValue  *decimal.Decimal
	Description *string

	Client ClientMerge
}

// HasRemoteID reports whether the authority-side record id is already known.
func (i *Invoice) HasRemoteID() bool {
	return i.RemoteID != nil
}
