package entity

import "time"

// Client is the counterparty (tomador) receiving the invoiced service. A
// client is owned by exactly one issuer and is unique per issuer by tax id.
type Client struct {
	ID          int64     `json:"id"`
	IssuerID    int64     `json:"issuer_id"`
	RazaoSocial string    `json:"razao_social"`
	CPFCNPJ     string    `json:"cpf_cnpj"`
	Email       string    `json:"email,omitempty"`
	Telefone    string    `json:"telefone,omitempty"`
	Pais        string    `json:"pais,omitempty"`
	UF          string    `json:"uf,omitempty"`
	Cidade      string    `json:"cidade,omitempty"`
	CEP         string    `json:"cep,omitempty"`
	Logradouro  string    `json:"logradouro,omitempty"`
	Numero      string    `json:"numero,omitempty"`
	Complemento string    `json:"complemento,omitempty"`
	Bairro      string    `json:"bairro,omitempty"`
	CreatedAt   time.Time `json:"data_criacao"`
}

// ClientMerge enumerates the client fields an invoice resubmission may touch.
// Nil fields are left as stored.
type ClientMerge struct {
	RazaoSocial *string
	Email       *string
	Telefone    *string
	Pais        *string
	UF          *string
	Cidade      *string
	CEP         *string
	Logradouro  *string
	Numero      *string
	Complemento *string
	Bairro      *string
}

// Apply merges the non-nil fields onto c.
func (m ClientMerge) Apply(c *Client) {
	set := func(dst *string, src *string) {
		if src != nil {
			*dst = *src
		}
	}
	set(&c.RazaoSocial, m.RazaoSocial)
	set(&c.Email, m.Email)
	set(&c.Telefone, m.Telefone)
	set(&c.Pais, m.Pais)
	set(&c.UF, m.UF)
	set(&c.Cidade, m.Cidade)
	set(&c.CEP, m.CEP)
	set(&c.Logradouro, m.Logradouro)
	set(&c.Numero, m.Numero)
	set(&c.Complemento, m.Complemento)
	set(&c.Bairro, m.Bairro)
}
