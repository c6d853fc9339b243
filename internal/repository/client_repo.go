package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/tworscontab/nfse-engine/internal/domain/entity"
	"github.com/tworscontab/nfse-engine/pkg/database"
)

const clientColumns = `
	id, issuer_id, razao_social, cpf_cnpj, email, telefone, pais, uf, cidade,
	cep, logradouro, numero, complemento, bairro, data_criacao`

// ClientRepository handles client (tomador) persistence.
type ClientRepository struct {
	db     *database.DB
	logger *zap.Logger
}

// NewClientRepository creates a new client repository.
func NewClientRepository(db *database.DB, logger *zap.Logger) *ClientRepository {
	return &ClientRepository{db: db, logger: logger}
}

// Create persists a new client and fills in its id.
func (r *ClientRepository) Create(ctx context.Context, c *entity.Client) error {
	c.CreatedAt = time.Now().UTC()
	result, err := r.db.Conn(ctx).ExecContext(ctx, `
		INSERT INTO clients (
			issuer_id, razao_social, cpf_cnpj, email, telefone, pais, uf,
			cidade, cep, logradouro, numero, complemento, bairro, data_criacao
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		c.IssuerID, c.RazaoSocial, c.CPFCNPJ, c.Email, c.Telefone, c.Pais, c.UF,
		c.Cidade, c.CEP, c.Logradouro, c.Numero, c.Complemento, c.Bairro, c.CreatedAt,
	)
	if err != nil {
		r.logger.Error("Failed to create client", zap.Error(err))
		return fmt.Errorf("failed to create client: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return fmt.Errorf("failed to get last insert id: %w", err)
	}
	c.ID = id
	return nil
}

// GetByID retrieves a client by primary key.
func (r *ClientRepository) GetByID(ctx context.Context, id int64) (*entity.Client, error) {
	row := r.db.Conn(ctx).QueryRowContext(ctx,
		`SELECT `+clientColumns+` FROM clients WHERE id = ?`, id)
	return scanClientRow(row)
}

// GetByTaxID retrieves the issuer's client with the given tax id. Clients are
// scoped per issuer, so the same tax id may exist under different issuers.
func (r *ClientRepository) GetByTaxID(ctx context.Context, issuerID int64, cpfCnpj string) (*entity.Client, error) {
	row := r.db.Conn(ctx).QueryRowContext(ctx,
		`SELECT `+clientColumns+` FROM clients WHERE issuer_id = ? AND cpf_cnpj = ?`,
		issuerID, cpfCnpj)
	return scanClientRow(row)
}

// Update rewrites the client's mutable fields.
func (r *ClientRepository) Update(ctx context.Context, c *entity.Client) error {
	_, err := r.db.Conn(ctx).ExecContext(ctx, `
		UPDATE clients SET
			razao_social = ?, email = ?, telefone = ?, pais = ?, uf = ?,
			cidade = ?, cep = ?, logradouro = ?, numero = ?, complemento = ?, bairro = ?
		WHERE id = ?`,
		c.RazaoSocial, c.Email, c.Telefone, c.Pais, c.UF, c.Cidade, c.CEP,
		c.Logradouro, c.Numero, c.Complemento, c.Bairro, c.ID,
	)
	if err != nil {
		r.logger.Error("Failed to update client", zap.Int64("id", c.ID), zap.Error(err))
		return fmt.Errorf("failed to update client: %w", err)
	}
	return nil
}

func scanClientRow(row rowScanner) (*entity.Client, error) {
	var c entity.Client
	err := row.Scan(
		&c.ID, &c.IssuerID, &c.RazaoSocial, &c.CPFCNPJ, &c.Email, &c.Telefone,
		&c.Pais, &c.UF, &c.Cidade, &c.CEP, &c.Logradouro, &c.Numero,
		&c.Complemento, &c.Bairro, &c.CreatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to scan client: %w", err)
	}
	return &c, nil
}
