package http

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/tworscontab/nfse-engine/internal/application/service"
	"github.com/tworscontab/nfse-engine/internal/domain/entity"
	"github.com/tworscontab/nfse-engine/internal/nfse"
)

// Handlers contains all HTTP request handlers
type Handlers struct {
	invoiceService service.InvoiceService
	reportService  service.ReportService
	logger         *zap.Logger
}

// NewHandlers creates a new Handlers instance
func NewHandlers(invoiceService service.InvoiceService, reportService service.ReportService, logger *zap.Logger) *Handlers {
	return &Handlers{
		invoiceService: invoiceService,
		reportService:  reportService,
		logger:         logger,
	}
}

// Response represents a standard JSON response
type Response struct {
	Success bool        `json:"success"`
	Data    interface{} `json:"data,omitempty"`
	Error   string      `json:"error,omitempty"`
}

// HealthResponse represents the health check response
type HealthResponse struct {
	Status    string `json:"status"`
	Timestamp string `json:"timestamp"`
	Version   string `json:"version"`
}

// CreateInvoiceRequest is the body of POST /api/invoices.
type CreateInvoiceRequest struct {
	CodCNAE     string          `json:"cod_cnae" binding:"required"`
	ValorTotal  decimal.Decimal `json:"valor_total" binding:"required"`
	Descricao   string          `json:"descricao"`
	RazaoSocial string          `json:"razao_social" binding:"required"`
	CPFCNPJ     string          `json:"cpf_cnpj" binding:"required"`
	Email       string          `json:"email"`
	Telefone    string          `json:"telefone"`
	Pais        string          `json:"pais"`
	UF          string          `json:"uf"`
	Cidade      string          `json:"cidade"`
	CEP         string          `json:"cep"`
	Logradouro  string          `json:"logradouro"`
	Numero      string          `json:"numero"`
	Complemento string          `json:"complemento"`
	Bairro      string          `json:"bairro"`
}

// UpdateInvoiceRequest is the body of PUT /api/invoices/:id. Absent fields
// leave the stored value untouched.
type UpdateInvoiceRequest struct {
	CodCNAE    *string          `json:"cod_cnae"`
	ValorTotal *decimal.Decimal `json:"valor_total"`
	Descricao  *string          `json:"descricao"`

	RazaoSocial *string `json:"razao_social"`
	Email       *string `json:"email"`
	Telefone    *string `json:"telefone"`
	Pais        *string `json:"pais"`
	UF          *string `json:"uf"`
	Cidade      *string `json:"cidade"`
	CEP         *string `json:"cep"`
	Logradouro  *string `json:"logradouro"`
	Numero      *string `json:"numero"`
	Complemento *string `json:"complemento"`
	Bairro      *string `json:"bairro"`
}

// RejectInvoiceRequest is the body of PUT /api/invoices/:id/reject.
type RejectInvoiceRequest struct {
	Motivo string `json:"motivo" binding:"required"`
}

// HealthCheck handles GET /health
func (h *Handlers) HealthCheck(c *gin.Context) {
	c.JSON(http.StatusOK, Response{
		Success: true,
		Data: HealthResponse{
			Status:    "healthy",
			Timestamp: time.Now().UTC().Format(time.RFC3339),
			Version:   "1.0.0",
		},
	})
}

// CreateInvoice handles POST /api/invoices
func (h *Handlers) CreateInvoice(c *gin.Context) {
	var req CreateInvoiceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, Response{Success: false, Error: "invalid request body: " + err.Error()})
		return
	}

	inv, err := h.invoiceService.Create(c.Request.Context(), actor(c), service.CreateInvoiceInput{
		CodCNAE:     req.CodCNAE,
		TotalValue:  req.ValorTotal,
		Description: req.Descricao,
		RazaoSocial: req.RazaoSocial,
		CPFCNPJ:     req.CPFCNPJ,
		Email:       req.Email,
		Telefone:    req.Telefone,
		Pais:        req.Pais,
		UF:          req.UF,
		Cidade:      req.Cidade,
		CEP:         req.CEP,
		Logradouro:  req.Logradouro,
		Numero:      req.Numero,
		Complemento: req.Complemento,
		Bairro:      req.Bairro,
	})
	if err != nil {
		h.writeError(c, err)
		return
	}

	c.JSON(http.StatusCreated, Response{Success: true, Data: inv})
}

// ListInvoices handles GET /api/invoices
func (h *Handlers) ListInvoices(c *gin.Context) {
	invoices, err := h.invoiceService.List(c.Request.Context(), actor(c))
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, Response{Success: true, Data: invoices})
}

// ListAllInvoices handles GET /api/invoices/admin
func (h *Handlers) ListAllInvoices(c *gin.Context) {
	invoices, err := h.invoiceService.ListAll(c.Request.Context(), actor(c))
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, Response{Success: true, Data: invoices})
}

// GetInvoice handles GET /api/invoices/:id
func (h *Handlers) GetInvoice(c *gin.Context) {
	id, ok := h.invoiceID(c)
	if !ok {
		return
	}

	inv, err := h.invoiceService.Get(c.Request.Context(), actor(c), id)
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, Response{Success: true, Data: inv})
}

// UpdateInvoice handles PUT /api/invoices/:id
func (h *Handlers) UpdateInvoice(c *gin.Context) {
	id, ok := h.invoiceID(c)
	if !ok {
		return
	}

	var req UpdateInvoiceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, Response{Success: false, Error: "invalid request body: " + err.Error()})
		return
	}

	inv, err := h.invoiceService.Update(c.Request.Context(), actor(c), id, entity.InvoiceUpdate{
		CodCNAE:     req.CodCNAE,
		TotalValue:  req.ValorTotal,
		Description: req.Descricao,
		Client: entity.ClientMerge{
			RazaoSocial: req.RazaoSocial,
			Email:       req.Email,
			Telefone:    req.Telefone,
			Pais:        req.Pais,
			UF:          req.UF,
			Cidade:      req.Cidade,
			CEP:         req.CEP,
			Logradouro:  req.Logradouro,
			Numero:      req.Numero,
			Complemento: req.Complemento,
			Bairro:      req.Bairro,
		},
	})
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, Response{Success: true, Data: inv})
}

// ApproveInvoice handles PUT /api/invoices/:id/approve
func (h *Handlers) ApproveInvoice(c *gin.Context) {
	id, ok := h.invoiceID(c)
	if !ok {
		return
	}

	inv, err := h.invoiceService.Approve(c.Request.Context(), actor(c), id)
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, Response{Success: true, Data: inv})
}

// RejectInvoice handles PUT /api/invoices/:id/reject
func (h *Handlers) RejectInvoice(c *gin.Context) {
	id, ok := h.invoiceID(c)
	if !ok {
		return
	}

	var req RejectInvoiceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, Response{Success: false, Error: "rejection reason is required"})
		return
	}

	inv, err := h.invoiceService.Reject(c.Request.Context(), actor(c), id, req.Motivo)
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, Response{Success: true, Data: inv})
}

// EmitInvoice handles POST /api/invoices/:id/emit
func (h *Handlers) EmitInvoice(c *gin.Context) {
	id, ok := h.invoiceID(c)
	if !ok {
		return
	}

	inv, err := h.invoiceService.Emit(c.Request.Context(), actor(c), id)
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, Response{Success: true, Data: inv})
}

// IssuedInvoicesReport handles GET /api/reports/issued
func (h *Handlers) IssuedInvoicesReport(c *gin.Context) {
	year, err := strconv.Atoi(c.Query("year"))
	if err != nil {
		c.JSON(http.StatusBadRequest, Response{Success: false, Error: "invalid year"})
		return
	}
	month, err := strconv.Atoi(c.Query("month"))
	if err != nil || month < 1 || month > 12 {
		c.JSON(http.StatusBadRequest, Response{Success: false, Error: "invalid month"})
		return
	}

	data, name, err := h.reportService.IssuedInvoicesReport(c.Request.Context(), actor(c), year, time.Month(month))
	if err != nil {
		h.writeError(c, err)
		return
	}

	c.Header("Content-Disposition", `attachment; filename="`+name+`"`)
	c.Data(http.StatusOK, "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet", data)
}

// invoiceID parses the :id path parameter, writing the error response itself.
func (h *Handlers) invoiceID(c *gin.Context) (int64, bool) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, Response{Success: false, Error: "invalid invoice id"})
		return 0, false
	}
	return id, true
}

// writeError maps service errors onto HTTP statuses.
func (h *Handlers) writeError(c *gin.Context, err error) {
	status := http.StatusInternalServerError
	message := "internal error"

	switch {
	case errors.Is(err, service.ErrValidation):
		status, message = http.StatusBadRequest, err.Error()
	case errors.Is(err, service.ErrForbidden):
		status, message = http.StatusForbidden, err.Error()
	case errors.Is(err, service.ErrNotFound):
		status, message = http.StatusNotFound, err.Error()
	case errors.Is(err, service.ErrPrecondition):
		status, message = http.StatusConflict, err.Error()
	case errors.Is(err, nfse.ErrUpstream):
		status, message = http.StatusBadGateway, err.Error()
	default:
		h.logger.Error("Unhandled service error", zap.Error(err))
	}

	c.JSON(status, Response{Success: false, Error: message})
}
