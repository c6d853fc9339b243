package notification

import (
	"context"

	"go.uber.org/zap"

	"github.com/tworscontab/nfse-engine/internal/application/port"
	"github.com/tworscontab/nfse-engine/internal/domain/entity"
)

// adminNotifier surfaces invoice submissions to the back office. It currently
// writes structured log lines; a mail or chat transport can replace it behind
// the same port.
type adminNotifier struct {
	logger *zap.Logger
}

// NewAdminNotifier creates a log-backed Notifier.
func NewAdminNotifier(logger *zap.Logger) port.Notifier {
	return &adminNotifier{logger: logger}
}

func (n *adminNotifier) NotifyInvoiceCreated(ctx context.Context, inv *entity.Invoice, issuer *entity.Issuer) {
	n.logger.Info("New invoice awaiting review",
		zap.Int64("invoice_id", inv.ID),
		zap.Int64("issuer_id", issuer.ID),
		zap.String("issuer", issuer.RazaoSocial),
		zap.String("valor", inv.TotalValue.StringFixed(2)))
}
