package nfse

import (
	"bytes"
	"encoding/xml"
	"errors"
	"fmt"
	"io"
)

// The authority's legacy service keeps everything under the tempuri.org
// namespace and distinguishes operations only by the inner element name.
const (
	serviceNamespace = "http://tempuri.org/"
	submitAction     = "eNFSe"
	queryAction      = "eNFSe_GetAll_DMS_E"
)

type soapEnvelope struct {
	XMLName xml.Name `xml:"soap12:Envelope"`
	XSI     string   `xml:"xmlns:xsi,attr"`
	XSD     string   `xml:"xmlns:xsd,attr"`
	Soap    string   `xml:"xmlns:soap12,attr"`
	Body    soapBody `xml:"soap12:Body"`
}

type soapBody struct {
	Submit *submitRequest `xml:",omitempty"`
	Query  *queryRequest  `xml:",omitempty"`
}

// submitRequest carries one invoice submission. The zero-valued deduction and
// withholding fields are required by the schema even though this system never
// fills them.
type submitRequest struct {
	XMLName       xml.Name `xml:"eNFSe"`
	Namespace     string   `xml:"xmlns,attr"`
	AccessKey     string   `xml:"sAccessKey"`
	ClientID      string   `xml:"sCN"`
	IssuerName    string   `xml:"sNome"`
	IssuerTaxID   string   `xml:"sPrestador"`
	MunicipalReg  string   `xml:"sIM"`
	ClientTaxID   string   `xml:"sTomador"`
	Value         string   `xml:"sValor"`
	ServiceCode   string   `xml:"sCodigoServico"`
	TaxRate       string   `xml:"sAliquota"`
	DeductedValue string   `xml:"sValorDeducao"`
	RPSTaxation   string   `xml:"sTributacaoRPS"`
	Description   string   `xml:"sDescricaoNFSe"`
	Cofins        string   `xml:"sCofins"`
	PIS           string   `xml:"sPis"`
	CSLL          string   `xml:"sCsll"`
	IR            string   `xml:"sIR"`
	Email         string   `xml:"sEmail"`
}

type queryRequest struct {
	XMLName     xml.Name `xml:"eNFSe_GetAll_DMS_E"`
	Namespace   string   `xml:"xmlns,attr"`
	AccessKey   string   `xml:"sAccessKey"`
	IssuerTaxID string   `xml:"sPrestador"`
	DateFrom    string   `xml:"sDataInicial"`
	DateTo      string   `xml:"sDataFinal"`
}

func newEnvelope(body soapBody) soapEnvelope {
	return soapEnvelope{
		XSI:  "http://www.w3.org/2001/XMLSchema-instance",
		XSD:  "http://www.w3.org/2001/XMLSchema",
		Soap: "http://www.w3.org/2003/05/soap-envelope",
		Body: body,
	}
}

func marshalEnvelope(body soapBody) ([]byte, error) {
	payload, err := xml.Marshal(newEnvelope(body))
	if err != nil {
		return nil, fmt.Errorf("marshal soap envelope: %w", err)
	}
	return append([]byte(xml.Header), payload...), nil
}

// extractResult walks the response document and returns the text of the
// namespace-qualified <operation>Result element. A missing element or
// malformed XML is an upstream failure.
func extractResult(raw []byte, operation string) (string, error) {
	wanted := operation + "Result"
	decoder := xml.NewDecoder(bytes.NewReader(raw))
	for {
		token, err := decoder.Token()
		if err != nil {
			if errors.Is(err, io.EOF) {
				return "", upstreamErr("response has no %s element", wanted)
			}
			return "", upstreamErr("malformed response XML: %v", err)
		}
		start, ok := token.(xml.StartElement)
		if !ok {
			continue
		}
		if start.Name.Local != wanted || start.Name.Space != serviceNamespace {
			continue
		}
		var text string
		if err := decoder.DecodeElement(&text, &start); err != nil {
			return "", upstreamErr("malformed %s element: %v", wanted, err)
		}
		return text, nil
	}
}
