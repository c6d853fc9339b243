package worker

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/tworscontab/nfse-engine/internal/application/port"
	"github.com/tworscontab/nfse-engine/internal/application/service"
)

// ReconcileWorker periodically reconciles every issuer that has invoices
// awaiting authority confirmation. It complements the inline reconciliation
// done on listing, so invoices of issuers that never log in still converge.
type ReconcileWorker struct {
	invoiceRepo port.InvoiceRepository
	reconciler  service.Reconciler
	interval    time.Duration
	logger      *zap.Logger
	stop        chan struct{}
	done        chan struct{}
}

// NewReconcileWorker creates a new ReconcileWorker.
func NewReconcileWorker(
	invoiceRepo port.InvoiceRepository,
	reconciler service.Reconciler,
	interval time.Duration,
	logger *zap.Logger,
) *ReconcileWorker {
	return &ReconcileWorker{
		invoiceRepo: invoiceRepo,
		reconciler:  reconciler,
		interval:    interval,
		logger:      logger,
		stop:        make(chan struct{}),
		done:        make(chan struct{}),
	}
}

// Start launches the periodic loop. It returns immediately.
func (w *ReconcileWorker) Start() {
	go w.run()
	w.logger.Info("Reconcile worker started", zap.Duration("interval", w.interval))
}

// Stop asks the loop to exit and waits for the in-flight pass to finish.
func (w *ReconcileWorker) Stop() {
	close(w.stop)
	<-w.done
	w.logger.Info("Reconcile worker stopped")
}

func (w *ReconcileWorker) run() {
	defer close(w.done)

	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		select {
		case <-w.stop:
			return
		case <-ticker.C:
			w.runPass()
		}
	}
}

func (w *ReconcileWorker) runPass() {
	ctx, cancel := context.WithTimeout(context.Background(), w.interval)
	defer cancel()

	issuerIDs, err := w.invoiceRepo.ListIssuerIDsWithProcessing(ctx)
	if err != nil {
		w.logger.Error("Failed to enumerate issuers for reconciliation", zap.Error(err))
		return
	}

	for _, issuerID := range issuerIDs {
		if err := w.reconciler.ReconcileIssuer(ctx, issuerID); err != nil {
			w.logger.Warn("Background reconciliation failed",
				zap.Int64("issuer_id", issuerID),
				zap.Error(err))
		}
	}
}
