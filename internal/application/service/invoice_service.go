package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/tworscontab/nfse-engine/internal/application/port"
	"github.com/tworscontab/nfse-engine/internal/domain/entity"
	"github.com/tworscontab/nfse-engine/internal/domain/workflow"
	"github.com/tworscontab/nfse-engine/internal/nfse"
	"github.com/tworscontab/nfse-engine/internal/repository"
)

// CreateInvoiceInput carries everything needed to open a new invoice. The
// client block either matches an existing client of the issuer (by tax id) or
// creates one implicitly.
type CreateInvoiceInput struct {
	CodCNAE     string
	TotalValue  decimal.Decimal
	Description string

	RazaoSocial string
	CPFCNPJ     string
	Email       string
	Telefone    string
	Pais        string
	UF          string
	Cidade      string
	CEP         string
	Logradouro  string
	Numero      string
	Complemento string
	Bairro      string
}

// Reconciler runs one reconciliation pass for an issuer.
type Reconciler interface {
	ReconcileIssuer(ctx context.Context, issuerID int64) error
}

// InvoiceService owns the invoice lifecycle.
type InvoiceService interface {
	Create(ctx context.Context, actor *entity.Issuer, in CreateInvoiceInput) (*entity.Invoice, error)
	Get(ctx context.Context, actor *entity.Issuer, id int64) (*entity.Invoice, error)
	List(ctx context.Context, actor *entity.Issuer) ([]*entity.Invoice, error)
	ListAll(ctx context.Context, actor *entity.Issuer) ([]*entity.Invoice, error)
	Update(ctx context.Context, actor *entity.Issuer, id int64, upd entity.InvoiceUpdate) (*entity.Invoice, error)
	Approve(ctx context.Context, actor *entity.Issuer, id int64) (*entity.Invoice, error)
	Reject(ctx context.Context, actor *entity.Issuer, id int64, reason string) (*entity.Invoice, error)
	Emit(ctx context.Context, actor *entity.Issuer, id int64) (*entity.Invoice, error)
}

type invoiceService struct {
	invoiceRepo  port.InvoiceRepository
	clientRepo   port.ClientRepository
	issuerRepo   port.IssuerRepository
	activityRepo port.ActivityRepository
	authority    port.TaxAuthority
	notifier     port.Notifier
	reconciler   Reconciler
	txManager    port.TransactionManager
	logger       *zap.Logger
}

// NewInvoiceService creates a new InvoiceService.
func NewInvoiceService(
	invoiceRepo port.InvoiceRepository,
	clientRepo port.ClientRepository,
	issuerRepo port.IssuerRepository,
	activityRepo port.ActivityRepository,
	authority port.TaxAuthority,
	notifier port.Notifier,
	reconciler Reconciler,
	txManager port.TransactionManager,
	logger *zap.Logger,
) InvoiceService {
	return &invoiceService{
		invoiceRepo:  invoiceRepo,
		clientRepo:   clientRepo,
		issuerRepo:   issuerRepo,
		activityRepo: activityRepo,
		authority:    authority,
		notifier:     notifier,
		reconciler:   reconciler,
		txManager:    txManager,
		logger:       logger,
	}
}

// Create opens a new Pending invoice for the acting issuer, resolving or
// implicitly creating the client and deriving the legal service code.
func (s *invoiceService) Create(ctx context.Context, actor *entity.Issuer, in CreateInvoiceInput) (*entity.Invoice, error) {
	if in.CPFCNPJ == "" {
		return nil, validationErr("client tax id is required")
	}
	if !in.TotalValue.IsPositive() {
		return nil, validationErr("total value must be positive")
	}

	serviceCode, err := s.resolveServiceCode(ctx, in.CodCNAE)
	if err != nil {
		return nil, err
	}

	inv := &entity.Invoice{
		IssuerID:    actor.ID,
		CodCNAE:     in.CodCNAE,
		ServiceCode: serviceCode,
		TotalValue:  in.TotalValue,
		Description: in.Description,
		TaxRate:     actor.Aliquota,
		StatusID:    int(workflow.StatePending),
	}

	err = s.txManager.WithTransaction(ctx, func(txCtx context.Context) error {
		client, err := s.clientRepo.GetByTaxID(txCtx, actor.ID, in.CPFCNPJ)
		if errors.Is(err, repository.ErrNotFound) {
			client = &entity.Client{
				IssuerID:    actor.ID,
				RazaoSocial: in.RazaoSocial,
				CPFCNPJ:     in.CPFCNPJ,
				Email:       in.Email,
				Telefone:    in.Telefone,
				Pais:        in.Pais,
				UF:          in.UF,
				Cidade:      in.Cidade,
				CEP:         in.CEP,
				Logradouro:  in.Logradouro,
				Numero:      in.Numero,
				Complemento: in.Complemento,
				Bairro:      in.Bairro,
			}
			if err := s.clientRepo.Create(txCtx, client); err != nil {
				return fmt.Errorf("create client: %w", err)
			}
		} else if err != nil {
			return fmt.Errorf("resolve client: %w", err)
		}

		inv.ClientID = &client.ID
		inv.Client = client
		if err := s.invoiceRepo.Create(txCtx, inv); err != nil {
			return fmt.Errorf("create invoice: %w", err)
		}
		return nil
	})
	if err != nil {
		s.logger.Error("Failed to create invoice", zap.Int64("issuer_id", actor.ID), zap.Error(err))
		return nil, err
	}

	s.notifier.NotifyInvoiceCreated(ctx, inv, actor)

	s.logger.Info("Invoice created",
		zap.Int64("invoice_id", inv.ID),
		zap.Int64("issuer_id", actor.ID),
		zap.String("cnae", inv.CodCNAE),
		zap.String("service_code", inv.ServiceCode))
	return inv, nil
}

// Get returns one of the actor's invoices with its client loaded.
func (s *invoiceService) Get(ctx context.Context, actor *entity.Issuer, id int64) (*entity.Invoice, error) {
	inv, err := s.invoiceRepo.GetForIssuer(ctx, actor.ID, id)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, fmt.Errorf("%w: invoice %d", ErrNotFound, id)
	}
	return inv, err
}

// List returns the actor's invoices after an inline reconciliation pass. A
// failed pass is logged and the listing still succeeds with the current
// local state.
func (s *invoiceService) List(ctx context.Context, actor *entity.Issuer) ([]*entity.Invoice, error) {
	if err := s.reconciler.ReconcileIssuer(ctx, actor.ID); err != nil {
		s.logger.Warn("Reconciliation pass failed, serving local state",
			zap.Int64("issuer_id", actor.ID),
			zap.Error(err))
	}
	return s.invoiceRepo.ListByIssuer(ctx, actor.ID)
}

// ListAll returns every invoice for administrators; other actors get their
// own list.
func (s *invoiceService) ListAll(ctx context.Context, actor *entity.Issuer) ([]*entity.Invoice, error) {
	if !actor.IsAdmin() {
		return s.List(ctx, actor)
	}
	return s.invoiceRepo.ListAll(ctx)
}

// Update applies a resubmission: the invoice returns to Pending, the
// rejection reason is cleared and the service code is re-derived, because the
// content that justified either may have changed.
func (s *invoiceService) Update(ctx context.Context, actor *entity.Issuer, id int64, upd entity.InvoiceUpdate) (*entity.Invoice, error) {
	inv, err := s.invoiceRepo.GetForIssuer(ctx, actor.ID, id)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, fmt.Errorf("%w: invoice %d", ErrNotFound, id)
	}
	if err != nil {
		return nil, err
	}

	if err := s.fire(inv, workflow.TriggerResubmit); err != nil {
		return nil, err
	}

	if upd.CodCNAE != nil {
		inv.CodCNAE = *upd.CodCNAE
	}
	if upd.TotalValue != nil {
		if !upd.TotalValue.IsPositive() {
			return nil, validationErr("total value must be positive")
		}
		inv.TotalValue = *upd.TotalValue
	}
	if upd.Description != nil {
		inv.Description = *upd.Description
	}
	inv.RejectReason = ""

	if inv.ServiceCode, err = s.resolveServiceCode(ctx, inv.CodCNAE); err != nil {
		return nil, err
	}

	err = s.txManager.WithTransaction(ctx, func(txCtx context.Context) error {
		if inv.Client != nil {
			upd.Client.Apply(inv.Client)
			if err := s.clientRepo.Update(txCtx, inv.Client); err != nil {
				return fmt.Errorf("update client: %w", err)
			}
		}
		if err := s.invoiceRepo.Update(txCtx, inv); err != nil {
			return fmt.Errorf("update invoice: %w", err)
		}
		return nil
	})
	if err != nil {
		s.logger.Error("Failed to update invoice", zap.Int64("invoice_id", id), zap.Error(err))
		return nil, err
	}

	s.logger.Info("Invoice resubmitted", zap.Int64("invoice_id", inv.ID))
	return inv, nil
}

// Approve moves a Pending invoice to Approved. Administrators only.
func (s *invoiceService) Approve(ctx context.Context, actor *entity.Issuer, id int64) (*entity.Invoice, error) {
	if !actor.IsAdmin() {
		return nil, forbiddenErr("only administrators may approve invoices")
	}

	inv, err := s.getByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := s.fire(inv, workflow.TriggerApprove); err != nil {
		return nil, err
	}

	if err := s.invoiceRepo.UpdateStatus(ctx, id, inv.StatusID); err != nil {
		return nil, err
	}
	s.logger.Info("Invoice approved", zap.Int64("invoice_id", id), zap.Int64("admin_id", actor.ID))
	return inv, nil
}

// Reject moves a Pending invoice to Rejected with a mandatory reason.
// Administrators only.
func (s *invoiceService) Reject(ctx context.Context, actor *entity.Issuer, id int64, reason string) (*entity.Invoice, error) {
	if !actor.IsAdmin() {
		return nil, forbiddenErr("only administrators may reject invoices")
	}
	if reason == "" {
		return nil, validationErr("rejection reason is required")
	}

	inv, err := s.getByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := s.fire(inv, workflow.TriggerReject); err != nil {
		return nil, err
	}

	inv.RejectReason = reason
	if err := s.invoiceRepo.MarkRejected(ctx, id, reason); err != nil {
		return nil, err
	}
	s.logger.Info("Invoice rejected", zap.Int64("invoice_id", id), zap.Int64("admin_id", actor.ID))
	return inv, nil
}

// Emit submits a Pending invoice to the tax authority. The status claim is a
// compare-and-swap so two racing emission requests cannot both submit; on any
// submission failure the claim is released and the invoice stays Pending.
func (s *invoiceService) Emit(ctx context.Context, actor *entity.Issuer, id int64) (*entity.Invoice, error) {
	inv, err := s.getByID(ctx, id)
	if err != nil {
		return nil, err
	}

	if !actor.IsAdmin() {
		if inv.IssuerID != actor.ID {
			return nil, forbiddenErr("invoice belongs to another issuer")
		}
		if !actor.CanEmit {
			return nil, forbiddenErr("issuer is not emission-capable")
		}
	}
	if inv.ClientID == nil {
		return nil, validationErr("invoice has no client")
	}
	if inv.ServiceCode == "" {
		return nil, validationErr("invoice has no service code")
	}

	// Validate the transition before touching anything.
	if err := s.fire(&entity.Invoice{StatusID: inv.StatusID}, workflow.TriggerEmit); err != nil {
		return nil, err
	}

	issuer, err := s.issuerRepo.GetByID(ctx, inv.IssuerID)
	if err != nil {
		return nil, fmt.Errorf("load issuer: %w", err)
	}
	client, err := s.clientRepo.GetByID(ctx, *inv.ClientID)
	if err != nil {
		return nil, fmt.Errorf("load client: %w", err)
	}

	claimed, err := s.invoiceRepo.ClaimProcessing(ctx, id)
	if err != nil {
		return nil, err
	}
	if !claimed {
		return nil, preconditionErr("invoice %d is not Pending or is being emitted concurrently", id)
	}

	if err := s.authority.Submit(ctx, inv, issuer, client); err != nil {
		if relErr := s.invoiceRepo.ReleaseToPending(ctx, id); relErr != nil {
			s.logger.Error("Failed to release emission claim",
				zap.Int64("invoice_id", id),
				zap.Error(relErr))
		}
		s.logger.Error("NFSe submission failed",
			zap.Int64("invoice_id", id),
			zap.Error(err))
		return nil, err
	}

	inv.StatusID = int(workflow.StateProcessing)

	// The authority has no lookup-by-reference, so the remote id comes from a
	// same-day query. A failure here no longer rolls back the emission: the
	// reconciliation pass retries the correlation later.
	if remoteID, err := s.correlate(ctx, inv, issuer); err != nil {
		s.logger.Warn("Remote id correlation deferred to reconciliation",
			zap.Int64("invoice_id", id),
			zap.Error(err))
	} else {
		inv.RemoteID = &remoteID
		if err := s.invoiceRepo.SetRemoteID(ctx, id, remoteID); err != nil {
			return nil, err
		}
	}

	s.logger.Info("Invoice emitted",
		zap.Int64("invoice_id", id),
		zap.Bool("remote_id_known", inv.RemoteID != nil))
	return inv, nil
}

// correlate runs the max-id heuristic over the invoice's creation-day window.
func (s *invoiceService) correlate(ctx context.Context, inv *entity.Invoice, issuer *entity.Issuer) (int64, error) {
	records, err := s.authority.Query(ctx, issuer.CNPJCPF, inv.CreatedAt, inv.CreatedAt)
	if err != nil {
		return 0, err
	}
	remoteID, ok := nfse.LatestRecordID(records)
	if !ok {
		return 0, fmt.Errorf("%w: no usable record id in correlation window", nfse.ErrUpstream)
	}
	return remoteID, nil
}

func (s *invoiceService) getByID(ctx context.Context, id int64) (*entity.Invoice, error) {
	inv, err := s.invoiceRepo.GetByID(ctx, id)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, fmt.Errorf("%w: invoice %d", ErrNotFound, id)
	}
	return inv, err
}

// fire validates the trigger against the invoice's current state and applies
// the resulting state to the in-memory invoice.
func (s *invoiceService) fire(inv *entity.Invoice, trigger workflow.Trigger) error {
	machine, err := workflow.NewInvoiceMachine(workflow.State(inv.StatusID))
	if err != nil {
		return fmt.Errorf("%w: %v", ErrPrecondition, err)
	}
	if err := machine.Fire(trigger); err != nil {
		return preconditionErr("cannot %s invoice in state %s", trigger, workflow.State(inv.StatusID))
	}
	inv.StatusID = int(machine.State())
	return nil
}

func (s *invoiceService) resolveServiceCode(ctx context.Context, codCNAE string) (string, error) {
	code, err := s.activityRepo.ServiceCodeByCNAE(ctx, codCNAE)
	if errors.Is(err, repository.ErrNotFound) {
		return "", validationErr("no service-list code registered for CNAE %s", codCNAE)
	}
	if err != nil {
		return "", fmt.Errorf("resolve service code: %w", err)
	}
	return code, nil
}
