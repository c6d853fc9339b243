package service

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/tworscontab/nfse-engine/internal/application/port"
	"github.com/tworscontab/nfse-engine/internal/brdoc"
	"github.com/tworscontab/nfse-engine/internal/domain/entity"
	"github.com/tworscontab/nfse-engine/internal/nfse"
)

// reconcileService pulls authority-side state for an issuer's in-flight
// invoices and promotes the ones the authority confirmed. Every step is
// idempotent, so overlapping passes are harmless.
type reconcileService struct {
	invoiceRepo port.InvoiceRepository
	issuerRepo  port.IssuerRepository
	authority   port.TaxAuthority
	logger      *zap.Logger
}

// NewReconcileService creates a Reconciler over the invoice store and the tax
// authority gateway.
func NewReconcileService(
	invoiceRepo port.InvoiceRepository,
	issuerRepo port.IssuerRepository,
	authority port.TaxAuthority,
	logger *zap.Logger,
) Reconciler {
	return &reconcileService{
		invoiceRepo: invoiceRepo,
		issuerRepo:  issuerRepo,
		authority:   authority,
		logger:      logger,
	}
}

// ReconcileIssuer runs one pass for the issuer. Invoices that lost their
// correlation window (submitted, but the remote id lookup failed at emission
// time) get a correlation retry first; every Processing invoice with a known
// remote id is then matched against the authority's records and promoted to
// Issued when the authority reports it as such.
func (s *reconcileService) ReconcileIssuer(ctx context.Context, issuerID int64) error {
	inflight, err := s.invoiceRepo.ListProcessingByIssuer(ctx, issuerID)
	if err != nil {
		return fmt.Errorf("list in-flight invoices: %w", err)
	}
	if len(inflight) == 0 {
		return nil
	}

	issuer, err := s.issuerRepo.GetByID(ctx, issuerID)
	if err != nil {
		return fmt.Errorf("load issuer: %w", err)
	}

	for _, inv := range inflight {
		if inv.HasRemoteID() {
			continue
		}
		if err := s.recorrelate(ctx, inv, issuer); err != nil {
			s.logger.Warn("Correlation retry failed",
				zap.Int64("invoice_id", inv.ID),
				zap.Error(err))
		}
	}

	from, to, ok := correlationWindow(inflight)
	if !ok {
		// Nothing has a remote id yet; the next pass retries.
		return nil
	}

	records, err := s.authority.Query(ctx, issuer.CNPJCPF, from, to)
	if err != nil {
		return fmt.Errorf("query authority records: %w", err)
	}

	byID := make(map[int64]nfse.RemoteRecord, len(records))
	for _, rec := range records {
		id, err := rec.NumericID()
		if err != nil {
			continue
		}
		byID[id] = rec
	}

	promoted := 0
	for _, inv := range inflight {
		if !inv.HasRemoteID() {
			continue
		}
		rec, ok := byID[*inv.RemoteID]
		if !ok || !rec.IsIssued() {
			continue
		}
		issueDate := brdoc.ParseCivilDateLenient(rec.IssueDate)
		if err := s.invoiceRepo.PromoteIssued(ctx, inv.ID, rec.InvoiceNumber, issueDate, rec.PDFLink, rec.XMLLink); err != nil {
			return fmt.Errorf("promote invoice %d: %w", inv.ID, err)
		}
		promoted++
	}

	if promoted > 0 {
		s.logger.Info("Reconciliation pass promoted invoices",
			zap.Int64("issuer_id", issuerID),
			zap.Int("promoted", promoted),
			zap.Int("in_flight", len(inflight)))
	}
	return nil
}

// recorrelate reruns the emission-day correlation for an invoice whose remote
// id was never captured.
func (s *reconcileService) recorrelate(ctx context.Context, inv *entity.Invoice, issuer *entity.Issuer) error {
	records, err := s.authority.Query(ctx, issuer.CNPJCPF, inv.CreatedAt, inv.CreatedAt)
	if err != nil {
		return err
	}
	remoteID, ok := nfse.LatestRecordID(records)
	if !ok {
		return fmt.Errorf("%w: no usable record id in correlation window", nfse.ErrUpstream)
	}
	if err := s.invoiceRepo.SetRemoteID(ctx, inv.ID, remoteID); err != nil {
		return err
	}
	inv.RemoteID = &remoteID
	s.logger.Info("Recovered remote id",
		zap.Int64("invoice_id", inv.ID),
		zap.Int64("remote_id", remoteID))
	return nil
}

// correlationWindow spans the creation dates of the invoices that already
// carry a remote id.
func correlationWindow(invoices []*entity.Invoice) (from, to time.Time, ok bool) {
	for _, inv := range invoices {
		if !inv.HasRemoteID() {
			continue
		}
		if !ok || inv.CreatedAt.Before(from) {
			from = inv.CreatedAt
		}
		if !ok || inv.CreatedAt.After(to) {
			to = inv.CreatedAt
		}
		ok = true
	}
	return from, to, ok
}
