package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/tworscontab/nfse-engine/internal/domain/entity"
	"github.com/tworscontab/nfse-engine/internal/domain/workflow"
	"github.com/tworscontab/nfse-engine/pkg/database"
)

const invoiceColumns = `
	i.id, i.issuer_id, i.client_id, i.cod_cnae, i.codigo_lista_servico,
	i.valor_total, i.descricao, i.aliquota, i.status_id, i.desc_motivo,
	i.numero_nota, i.data_emissao, i.remote_id, i.link_pdf, i.link_xml,
	i.data_criacao, i.data_atualizacao`

// InvoiceRepository handles invoice persistence.
type InvoiceRepository struct {
	db     *database.DB
	logger *zap.Logger
}

// NewInvoiceRepository creates a new invoice repository.
func NewInvoiceRepository(db *database.DB, logger *zap.Logger) *InvoiceRepository {
	return &InvoiceRepository{db: db, logger: logger}
}

// Create persists a new invoice and fills in its id and timestamps.
func (r *InvoiceRepository) Create(ctx context.Context, inv *entity.Invoice) error {
	now := time.Now().UTC()
	inv.CreatedAt = now
	inv.UpdatedAt = now

	result, err := r.db.Conn(ctx).ExecContext(ctx, `
		INSERT INTO invoices (
			issuer_id, client_id, cod_cnae, codigo_lista_servico, valor_total,
			descricao, aliquota, status_id, desc_motivo, data_criacao, data_atualizacao
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		inv.IssuerID, nullableID(inv.ClientID), inv.CodCNAE, inv.ServiceCode,
		inv.TotalValue.StringFixed(2), inv.Description, inv.TaxRate.StringFixed(2),
		inv.StatusID, inv.RejectReason, inv.CreatedAt, inv.UpdatedAt,
	)
	if err != nil {
		r.logger.Error("Failed to create invoice", zap.Error(err))
		return fmt.Errorf("failed to create invoice: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return fmt.Errorf("failed to get last insert id: %w", err)
	}
	inv.ID = id
	return nil
}

// GetByID retrieves an invoice by primary key.
func (r *InvoiceRepository) GetByID(ctx context.Context, id int64) (*entity.Invoice, error) {
	row := r.db.Conn(ctx).QueryRowContext(ctx,
		`SELECT `+invoiceColumns+` FROM invoices i WHERE i.id = ?`, id)
	return scanInvoice(row)
}

// GetForIssuer retrieves an invoice by id scoped to its owning issuer, with
// the related client loaded.
func (r *InvoiceRepository) GetForIssuer(ctx context.Context, issuerID, id int64) (*entity.Invoice, error) {
	row := r.db.Conn(ctx).QueryRowContext(ctx,
		`SELECT `+invoiceColumns+` FROM invoices i WHERE i.id = ? AND i.issuer_id = ?`, id, issuerID)
	inv, err := scanInvoice(row)
	if err != nil {
		return nil, err
	}
	if err := r.attachClients(ctx, []*entity.Invoice{inv}); err != nil {
		return nil, err
	}
	return inv, nil
}

// ListByIssuer returns the issuer's invoices with clients loaded, rejected
// ones excluded, newest first.
func (r *InvoiceRepository) ListByIssuer(ctx context.Context, issuerID int64) ([]*entity.Invoice, error) {
	rows, err := r.db.Conn(ctx).QueryContext(ctx,
		`SELECT `+invoiceColumns+` FROM invoices i
		 WHERE i.issuer_id = ? AND i.status_id != ?
		 ORDER BY i.id DESC`, issuerID, int(workflow.StateRejected))
	if err != nil {
		return nil, fmt.Errorf("failed to list invoices: %w", err)
	}
	defer rows.Close()

	invoices, err := scanInvoices(rows)
	if err != nil {
		return nil, err
	}
	if err := r.attachClients(ctx, invoices); err != nil {
		return nil, err
	}
	return invoices, nil
}

// ListAll returns every invoice in the system, newest first. Admin use only.
func (r *InvoiceRepository) ListAll(ctx context.Context) ([]*entity.Invoice, error) {
	rows, err := r.db.Conn(ctx).QueryContext(ctx,
		`SELECT `+invoiceColumns+` FROM invoices i ORDER BY i.id DESC`)
	if err != nil {
		return nil, fmt.Errorf("failed to list invoices: %w", err)
	}
	defer rows.Close()

	invoices, err := scanInvoices(rows)
	if err != nil {
		return nil, err
	}
	if err := r.attachClients(ctx, invoices); err != nil {
		return nil, err
	}
	return invoices, nil
}

// ListProcessingByIssuer returns the issuer's invoices awaiting confirmation
// by the authority.
func (r *InvoiceRepository) ListProcessingByIssuer(ctx context.Context, issuerID int64) ([]*entity.Invoice, error) {
	rows, err := r.db.Conn(ctx).QueryContext(ctx,
		`SELECT `+invoiceColumns+` FROM invoices i
		 WHERE i.issuer_id = ? AND i.status_id = ?
		 ORDER BY i.id`, issuerID, int(workflow.StateProcessing))
	if err != nil {
		return nil, fmt.Errorf("failed to list processing invoices: %w", err)
	}
	defer rows.Close()
	return scanInvoices(rows)
}

// ListIssuerIDsWithProcessing returns the distinct issuers that currently
// have invoices awaiting confirmation.
func (r *InvoiceRepository) ListIssuerIDsWithProcessing(ctx context.Context) ([]int64, error) {
	rows, err := r.db.Conn(ctx).QueryContext(ctx,
		`SELECT DISTINCT issuer_id FROM invoices WHERE status_id = ? ORDER BY issuer_id`,
		int(workflow.StateProcessing))
	if err != nil {
		return nil, fmt.Errorf("failed to list issuers with processing invoices: %w", err)
	}
	defer rows.Close()

	var ids []int64
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("failed to scan issuer id: %w", err)
		}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate issuer ids: %w", err)
	}
	return ids, nil
}

// ListIssuedBetween returns invoices issued inside the given issuance-date
// window, oldest first. Used by the monthly report.
func (r *InvoiceRepository) ListIssuedBetween(ctx context.Context, from, to time.Time) ([]*entity.Invoice, error) {
	rows, err := r.db.Conn(ctx).QueryContext(ctx,
		`SELECT `+invoiceColumns+` FROM invoices i
		 WHERE i.status_id = ? AND i.data_emissao >= ? AND i.data_emissao < ?
		 ORDER BY i.data_emissao, i.id`, int(workflow.StateIssued), from, to)
	if err != nil {
		return nil, fmt.Errorf("failed to list issued invoices: %w", err)
	}
	defer rows.Close()

	invoices, err := scanInvoices(rows)
	if err != nil {
		return nil, err
	}
	if err := r.attachClients(ctx, invoices); err != nil {
		return nil, err
	}
	return invoices, nil
}

// Update rewrites the mutable invoice fields after a resubmission and
// refreshes the update timestamp.
func (r *InvoiceRepository) Update(ctx context.Context, inv *entity.Invoice) error {
	inv.UpdatedAt = time.Now().UTC()
	_, err := r.db.Conn(ctx).ExecContext(ctx, `
		UPDATE invoices SET
			client_id = ?, cod_cnae = ?, codigo_lista_servico = ?, valor_total = ?,
			descricao = ?, status_id = ?, desc_motivo = ?, data_atualizacao = ?
		WHERE id = ?`,
		nullableID(inv.ClientID), inv.CodCNAE, inv.ServiceCode,
		inv.TotalValue.StringFixed(2), inv.Description, inv.StatusID,
		inv.RejectReason, inv.UpdatedAt, inv.ID,
	)
	if err != nil {
		r.logger.Error("Failed to update invoice", zap.Int64("id", inv.ID), zap.Error(err))
		return fmt.Errorf("failed to update invoice: %w", err)
	}
	return nil
}

// UpdateStatus moves an invoice to the given status.
func (r *InvoiceRepository) UpdateStatus(ctx context.Context, id int64, statusID int) error {
	_, err := r.db.Conn(ctx).ExecContext(ctx,
		`UPDATE invoices SET status_id = ?, data_atualizacao = ? WHERE id = ?`,
		statusID, time.Now().UTC(), id)
	if err != nil {
		return fmt.Errorf("failed to update invoice status: %w", err)
	}
	return nil
}

// MarkRejected moves an invoice to Rejected recording the reason.
func (r *InvoiceRepository) MarkRejected(ctx context.Context, id int64, reason string) error {
	_, err := r.db.Conn(ctx).ExecContext(ctx,
		`UPDATE invoices SET status_id = ?, desc_motivo = ?, data_atualizacao = ? WHERE id = ?`,
		int(workflow.StateRejected), reason, time.Now().UTC(), id)
	if err != nil {
		return fmt.Errorf("failed to reject invoice: %w", err)
	}
	return nil
}

// ClaimProcessing atomically moves a Pending invoice to Processing. It
// returns false when the invoice was not Pending, which means another
// emission attempt holds the claim or the invoice already advanced.
func (r *InvoiceRepository) ClaimProcessing(ctx context.Context, id int64) (bool, error) {
	result, err := r.db.Conn(ctx).ExecContext(ctx,
		`UPDATE invoices SET status_id = ?, data_atualizacao = ?
		 WHERE id = ? AND status_id = ?`,
		int(workflow.StateProcessing), time.Now().UTC(), id, int(workflow.StatePending))
	if err != nil {
		return false, fmt.Errorf("failed to claim invoice for processing: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to read claim result: %w", err)
	}
	return affected == 1, nil
}

// ReleaseToPending undoes a processing claim after a failed submission.
func (r *InvoiceRepository) ReleaseToPending(ctx context.Context, id int64) error {
	_, err := r.db.Conn(ctx).ExecContext(ctx,
		`UPDATE invoices SET status_id = ?, data_atualizacao = ?
		 WHERE id = ? AND status_id = ?`,
		int(workflow.StatePending), time.Now().UTC(), id, int(workflow.StateProcessing))
	if err != nil {
		return fmt.Errorf("failed to release invoice claim: %w", err)
	}
	return nil
}

// SetRemoteID records the authority-side record id. The id is write-once: a
// row that already carries one is never overwritten.
func (r *InvoiceRepository) SetRemoteID(ctx context.Context, id, remoteID int64) error {
	_, err := r.db.Conn(ctx).ExecContext(ctx,
		`UPDATE invoices SET remote_id = ?, data_atualizacao = ?
		 WHERE id = ? AND remote_id IS NULL`,
		remoteID, time.Now().UTC(), id)
	if err != nil {
		return fmt.Errorf("failed to set remote id: %w", err)
	}
	return nil
}

// PromoteIssued moves a Processing invoice to Issued, filling in the
// authority-confirmed fields in the same statement.
func (r *InvoiceRepository) PromoteIssued(ctx context.Context, id int64, number string, issueDate *time.Time, pdfLink, xmlLink string) error {
	_, err := r.db.Conn(ctx).ExecContext(ctx,
		`UPDATE invoices SET
			status_id = ?, numero_nota = ?, data_emissao = ?, link_pdf = ?,
			link_xml = ?, data_atualizacao = ?
		 WHERE id = ? AND status_id = ?`,
		int(workflow.StateIssued), number, nullableTime(issueDate), pdfLink,
		xmlLink, time.Now().UTC(), id, int(workflow.StateProcessing))
	if err != nil {
		return fmt.Errorf("failed to promote invoice to issued: %w", err)
	}
	return nil
}

// attachClients loads the referenced clients onto the given invoices.
func (r *InvoiceRepository) attachClients(ctx context.Context, invoices []*entity.Invoice) error {
	ids := make([]interface{}, 0, len(invoices))
	seen := make(map[int64]bool)
	for _, inv := range invoices {
		if inv.ClientID == nil || seen[*inv.ClientID] {
			continue
		}
		seen[*inv.ClientID] = true
		ids = append(ids, *inv.ClientID)
	}
	if len(ids) == 0 {
		return nil
	}

	placeholders := "?"
	for i := 1; i < len(ids); i++ {
		placeholders += ", ?"
	}
	rows, err := r.db.Conn(ctx).QueryContext(ctx,
		`SELECT id, issuer_id, razao_social, cpf_cnpj, email, telefone, pais, uf,
		        cidade, cep, logradouro, numero, complemento, bairro, data_criacao
		 FROM clients WHERE id IN (`+placeholders+`)`, ids...)
	if err != nil {
		return fmt.Errorf("failed to load clients: %w", err)
	}
	defer rows.Close()

	clients := make(map[int64]*entity.Client)
	for rows.Next() {
		c, err := scanClientRow(rows)
		if err != nil {
			return err
		}
		clients[c.ID] = c
	}
	if err := rows.Err(); err != nil {
		return fmt.Errorf("failed to iterate clients: %w", err)
	}

	for _, inv := range invoices {
		if inv.ClientID != nil {
			inv.Client = clients[*inv.ClientID]
		}
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanInvoice(row rowScanner) (*entity.Invoice, error) {
	var (
		inv        entity.Invoice
		clientID   sql.NullInt64
		totalValue string
		taxRate    string
		issueDate  sql.NullTime
		remoteID   sql.NullInt64
	)
	err := row.Scan(
		&inv.ID, &inv.IssuerID, &clientID, &inv.CodCNAE, &inv.ServiceCode,
		&totalValue, &inv.Description, &taxRate, &inv.StatusID, &inv.RejectReason,
		&inv.InvoiceNumber, &issueDate, &remoteID, &inv.PDFLink, &inv.XMLLink,
		&inv.CreatedAt, &inv.UpdatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to scan invoice: %w", err)
	}

	if inv.TotalValue, err = decimal.NewFromString(totalValue); err != nil {
		return nil, fmt.Errorf("invalid stored total value %q: %w", totalValue, err)
	}
	if inv.TaxRate, err = decimal.NewFromString(taxRate); err != nil {
		return nil, fmt.Errorf("invalid stored tax rate %q: %w", taxRate, err)
	}
	if clientID.Valid {
		inv.ClientID = &clientID.Int64
	}
	if remoteID.Valid {
		inv.RemoteID = &remoteID.Int64
	}
	if issueDate.Valid {
		inv.IssueDate = &issueDate.Time
	}
	return &inv, nil
}

func scanInvoices(rows *sql.Rows) ([]*entity.Invoice, error) {
	var invoices []*entity.Invoice
	for rows.Next() {
		inv, err := scanInvoice(rows)
		if err != nil {
			return nil, err
		}
		invoices = append(invoices, inv)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate invoices: %w", err)
	}
	return invoices, nil
}

func nullableID(id *int64) interface{} {
	if id == nil {
		return nil
	}
	return *id
}

func nullableTime(t *time.Time) interface{} {
	if t == nil {
		return nil
	}
	return *t
}
