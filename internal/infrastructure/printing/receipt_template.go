package printing

import (
	"bytes"
	"context"
	"html/template"
	"time"

	"github.com/nivaasi/backend/internal/application/receipt"
)

var _ receipt.HTMLRenderer = (*ReceiptTemplate)(nil)

const receiptLayout = `<!DOCTYPE html>
<html lang="en-IN">
<head>
<meta charset="UTF-8">
<title>Receipt {{.Number}}</title>
<style>
  body { font-family: "Noto Sans", Arial, sans-serif; font-size: 12px; color: #222; margin: 0; }
  .receipt { border: 1px solid #999; padding: 16px; }
  .header { text-align: center; border-bottom: 1px solid #999; padding-bottom: 8px; margin-bottom: 12px; }
  .header h1 { font-size: 18px; margin: 0; }
  .header p { margin: 2px 0; }
  table { width: 100%; border-collapse: collapse; }
  td { padding: 4px 0; vertical-align: top; }
  td.label { color: #666; width: 38%; }
  .amount { font-size: 20px; font-weight: bold; }
  .words { font-style: italic; margin-top: 6px; }
  .footer { margin-top: 18px; display: flex; justify-content: space-between; color: #666; }
</style>
</head>
<body>
<div class="receipt">
  <div class="header">
    <h1>{{if .PropertyName}}{{.PropertyName}}{{else}}Payment Receipt{{end}}</h1>
    {{- with .PropertyAddress}}<p>{{.}}</p>{{end}}
    {{- with .ContactNumber}}<p>Ph: {{.}}</p>{{end}}
  </div>
  <table>
    <tr><td class="label">Receipt No.</td><td>{{.Number}}</td></tr>
    <tr><td class="label">Payment Date</td><td>{{date .Payment.Date}}</td></tr>
    <tr><td class="label">Received From</td><td>{{titleName .TenantName}} ({{.Mobile}})</td></tr>
    <tr><td class="label">Bed</td><td>Floor {{.Location.FloorName}}, Room {{.Location.RoomNumber}}, Bed {{.Location.BedID}}</td></tr>
    <tr><td class="label">Monthly Rent</td><td>{{inr .RentAmount}}</td></tr>
    <tr><td class="label">Mode</td><td>{{.Payment.Mode}}</td></tr>
    {{- with .Payment.Remarks}}
    <tr><td class="label">Remarks</td><td>{{.}}</td></tr>
    {{- end}}
    <tr><td class="label">Amount Received</td><td class="amount">{{inr .Payment.Amount}}</td></tr>
  </table>
  <p class="words">{{words .Payment.Amount}}</p>
  <div class="footer">
    <span>Issued {{date .IssuedAt}}</span>
    <span>Authorised Signatory</span>
  </div>
</div>
</body>
</html>
`

// ReceiptTemplate renders receipts with the built-in layout
type ReceiptTemplate struct {
	tmpl *template.Template
}

// NewReceiptTemplate parses the receipt layout
func NewReceiptTemplate() (*ReceiptTemplate, error) {
	tmpl, err := template.New("receipt").Funcs(template.FuncMap{
		"inr":       FormatINR,
		"words":     AmountInWords,
		"titleName": TitleName,
		"date":      formatReceiptDate,
	}).Parse(receiptLayout)
	if err != nil {
		return nil, NewRenderError(ErrCodeInvalidHTML, "failed to parse receipt layout", err)
	}
	return &ReceiptTemplate{tmpl: tmpl}, nil
}

// RenderReceipt executes the layout for r
func (t *ReceiptTemplate) RenderReceipt(_ context.Context, r *receipt.Receipt) (string, error) {
	var buf bytes.Buffer
	if err := t.tmpl.Execute(&buf, r); err != nil {
		return "", NewRenderError(ErrCodeRenderFailed, "failed to execute receipt layout", err)
	}
	return buf.String(), nil
}

// formatReceiptDate prints 02 Jan 2006, the usual form on Indian receipts
func formatReceiptDate(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.Format("02 Jan 2006")
}
