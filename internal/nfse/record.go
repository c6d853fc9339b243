package nfse

import "strconv"

// RemoteStatusIssued is the status string the authority reports once an
// invoice has been finally issued.
const RemoteStatusIssued = "EMITIDA"

// RemoteRecord is one record reported by the authority's date-range query.
// It exists only for the duration of a reconciliation pass; the field names
// follow the authority's JSON payload.
type RemoteRecord struct {
	ID            string `json:"ID"`
	Status        string `json:"Status"`
	IssueDate     string `json:"Emissao"`
	InvoiceNumber string `json:"NFSe"`
	PDFLink       string `json:"LinkPDF"`
	XMLLink       string `json:"LinkXML"`
}

// NumericID parses the remote id, which the authority serializes as a string.
func (r RemoteRecord) NumericID() (int64, error) {
	return strconv.ParseInt(r.ID, 10, 64)
}

// IsIssued reports whether the authority considers this record finally issued.
func (r RemoteRecord) IsIssued() bool {
	return r.Status == RemoteStatusIssued
}
