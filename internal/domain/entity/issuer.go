package entity

import (
	"time"

	"github.com/shopspring/decimal"
)

// Role constants for Issuer.RoleID
const (
	RoleAdmin  = 1
	RoleIssuer = 2
)

// Issuer is the registered principal (prestador) whose tax id appears as the
// invoice's seller of record.
type Issuer struct {
	ID            int64           `json:"id"`
	RazaoSocial   string          `json:"razao_social"`
	CNPJCPF       string          `json:"cnpj_cpf"`
	InscMunicipal string          `json:"insc_municipal,omitempty"`
	Email         string          `json:"email"`
	Aliquota      decimal.Decimal `json:"aliquota"`
	CanEmit       bool            `json:"emite"`
	RoleID        int             `json:"role_id"`
	CreatedAt     time.Time       `json:"data_criacao"`
}

// IsAdmin reports whether the issuer holds the administrator role.
func (u *Issuer) IsAdmin() bool {
	return u.RoleID == RoleAdmin
}
