package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/tworscontab/nfse-engine/internal/domain/entity"
	"github.com/tworscontab/nfse-engine/pkg/database"
)

// IssuerRepository handles issuer (prestador) lookups. Issuer registration
// itself belongs to the out-of-scope account-management surface.
type IssuerRepository struct {
	db     *database.DB
	logger *zap.Logger
}

// NewIssuerRepository creates a new issuer repository.
func NewIssuerRepository(db *database.DB, logger *zap.Logger) *IssuerRepository {
	return &IssuerRepository{db: db, logger: logger}
}

// GetByID retrieves an issuer by primary key.
func (r *IssuerRepository) GetByID(ctx context.Context, id int64) (*entity.Issuer, error) {
	row := r.db.Conn(ctx).QueryRowContext(ctx, `
		SELECT id, razao_social, cnpj_cpf, insc_municipal, email, aliquota,
		       emite, role_id, data_criacao
		FROM issuers WHERE id = ?`, id)

	var (
		issuer   entity.Issuer
		aliquota string
	)
	err := row.Scan(
		&issuer.ID, &issuer.RazaoSocial, &issuer.CNPJCPF, &issuer.InscMunicipal,
		&issuer.Email, &aliquota, &issuer.CanEmit, &issuer.RoleID, &issuer.CreatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to scan issuer: %w", err)
	}

	if issuer.Aliquota, err = decimal.NewFromString(aliquota); err != nil {
		return nil, fmt.Errorf("invalid stored tax rate %q: %w", aliquota, err)
	}
	return &issuer, nil
}
