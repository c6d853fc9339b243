package entity

// Activity maps an economic activity classification (CNAE) to the legally
// required service-list code used on emission.
type Activity struct {
	ID          int64  `json:"id"`
	CodCNAE     string `json:"cnae_numerico"`
	DescCNAE    string `json:"cnae_descricao"`
	ServiceCode string `json:"codigo_lista_servico"`
	ServiceDesc string `json:"lista_servico_descricao"`
}
