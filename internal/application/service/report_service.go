package service

import (
	"bytes"
	"context"
	"fmt"
	"time"

	"github.com/xuri/excelize/v2"
	"go.uber.org/zap"

	"github.com/tworscontab/nfse-engine/internal/application/port"
	"github.com/tworscontab/nfse-engine/internal/brdoc"
	"github.com/tworscontab/nfse-engine/internal/domain/entity"
)

// ReportService builds spreadsheet exports for back-office use.
type ReportService interface {
	IssuedInvoicesReport(ctx context.Context, actor *entity.Issuer, year int, month time.Month) ([]byte, string, error)
}

type reportService struct {
	invoiceRepo port.InvoiceRepository
	issuerRepo  port.IssuerRepository
	logger      *zap.Logger
}

// NewReportService creates a new ReportService.
func NewReportService(invoiceRepo port.InvoiceRepository, issuerRepo port.IssuerRepository, logger *zap.Logger) ReportService {
	return &reportService{
		invoiceRepo: invoiceRepo,
		issuerRepo:  issuerRepo,
		logger:      logger,
	}
}

var reportHeader = []string{
	"Numero", "Prestador", "Tomador", "CPF/CNPJ Tomador",
	"Codigo Servico", "Valor", "Aliquota", "Emissao",
}

// IssuedInvoicesReport renders every invoice issued in the given month as an
// xlsx workbook. Administrators only. Returns the file bytes and a suggested
// file name.
func (s *reportService) IssuedInvoicesReport(ctx context.Context, actor *entity.Issuer, year int, month time.Month) ([]byte, string, error) {
	if !actor.IsAdmin() {
		return nil, "", forbiddenErr("only administrators may export reports")
	}
	if year < 2000 || year > 2100 {
		return nil, "", validationErr("year %d out of range", year)
	}

	from := time.Date(year, month, 1, 0, 0, 0, 0, time.UTC)
	to := from.AddDate(0, 1, 0)

	invoices, err := s.invoiceRepo.ListIssuedBetween(ctx, from, to)
	if err != nil {
		return nil, "", fmt.Errorf("list issued invoices: %w", err)
	}

	f := excelize.NewFile()
	defer f.Close()

	sheet := f.GetSheetName(0)
	for col, title := range reportHeader {
		cell, _ := excelize.CoordinatesToCellName(col+1, 1)
		if err := f.SetCellValue(sheet, cell, title); err != nil {
			return nil, "", fmt.Errorf("write header: %w", err)
		}
	}

	issuers := make(map[int64]*entity.Issuer)
	for i, inv := range invoices {
		issuer, ok := issuers[inv.IssuerID]
		if !ok {
			if issuer, err = s.issuerRepo.GetByID(ctx, inv.IssuerID); err != nil {
				return nil, "", fmt.Errorf("load issuer %d: %w", inv.IssuerID, err)
			}
			issuers[inv.IssuerID] = issuer
		}

		tomador, taxID := "", ""
		if inv.Client != nil {
			tomador = inv.Client.RazaoSocial
			taxID = brdoc.FormatCPFCNPJ(inv.Client.CPFCNPJ)
		}
		emissao := ""
		if inv.IssueDate != nil {
			emissao = brdoc.CivilDate(*inv.IssueDate)
		}

		row := []interface{}{
			inv.InvoiceNumber,
			issuer.RazaoSocial,
			tomador,
			taxID,
			inv.ServiceCode,
			inv.TotalValue.StringFixed(2),
			inv.TaxRate.StringFixed(2),
			emissao,
		}
		for col, value := range row {
			cell, _ := excelize.CoordinatesToCellName(col+1, i+2)
			if err := f.SetCellValue(sheet, cell, value); err != nil {
				return nil, "", fmt.Errorf("write row %d: %w", i+2, err)
			}
		}
	}

	var buf bytes.Buffer
	if err := f.Write(&buf); err != nil {
		return nil, "", fmt.Errorf("render workbook: %w", err)
	}

	name := fmt.Sprintf("notas-emitidas-%04d-%02d.xlsx", year, int(month))
	s.logger.Info("Issued-invoices report generated",
		zap.String("file", name),
		zap.Int("rows", len(invoices)))
	return buf.Bytes(), name, nil
}
