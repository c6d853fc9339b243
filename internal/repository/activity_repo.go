package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/tworscontab/nfse-engine/pkg/database"
)

// ActivityRepository resolves CNAE activity codes to legal service-list
// codes. The table is reference data seeded by migration.
type ActivityRepository struct {
	db     *database.DB
	logger *zap.Logger
}

// NewActivityRepository creates a new activity repository.
func NewActivityRepository(db *database.DB, logger *zap.Logger) *ActivityRepository {
	return &ActivityRepository{db: db, logger: logger}
}

// ServiceCodeByCNAE returns the service-list code for the given CNAE code, or
// ErrNotFound when the activity has no mapping.
func (r *ActivityRepository) ServiceCodeByCNAE(ctx context.Context, codCNAE string) (string, error) {
	var code string
	err := r.db.Conn(ctx).QueryRowContext(ctx,
		`SELECT codigo_lista_servico FROM cnae_service_codes WHERE cnae_numerico = ?`,
		codCNAE,
	).Scan(&code)
	if errors.Is(err, sql.ErrNoRows) {
		return "", ErrNotFound
	}
	if err != nil {
		return "", fmt.Errorf("failed to resolve service code: %w", err)
	}
	return code, nil
}
