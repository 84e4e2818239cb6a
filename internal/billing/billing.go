// Package billing defines the tax and sales collaborators the reservation
// lifecycle drives, with in-process implementations backed by the database.
package billing

import (
	"context"

	"github.com/codr1/clubreserve/internal/models"
)

type TaxLine struct {
	TaxID  int64   `json:"taxId"`
	Name   string  `json:"name"`
	Amount float64 `json:"amount"`
}

// TaxResult splits an amount into its tax-excluded and tax-included totals.
type TaxResult struct {
	Lines         []TaxLine `json:"lines"`
	TotalExcluded float64   `json:"totalExcluded"`
	TotalIncluded float64   `json:"totalIncluded"`
}

func (r TaxResult) Tax() float64 {
	return models.RoundMoney(r.TotalIncluded - r.TotalExcluded)
}

type TaxEngine interface {
	// ComputeTax applies tax to base. A nil tax leaves base untaxed.
	ComputeTax(ctx context.Context, base float64, tax *models.Tax, currency string) (TaxResult, error)
}

type OrderLine struct {
	Description string  `json:"description"`
	Quantity    float64 `json:"quantity"`
	PriceUnit   float64 `json:"priceUnit"`
	Subtotal    float64 `json:"subtotal"`
}

type InvoiceKind string

const (
	KindInvoice    InvoiceKind = "invoice"
	KindCreditNote InvoiceKind = "credit_note"
)

type Invoice struct {
	Ref        string      `json:"ref"`
	Kind       InvoiceKind `json:"kind"`
	Posted     bool        `json:"posted"`
	Amount     float64     `json:"amount"`
	Reconciled bool        `json:"reconciled"`
}

// SalesGateway is the order, invoice and receivables capability. References
// are opaque strings.
type SalesGateway interface {
	CreateOrder(ctx context.Context, currency string, lines []OrderLine) (string, error)
	ConfirmOrder(ctx context.Context, orderRef string) error
	CancelOrder(ctx context.Context, orderRef string) error
	CreateInvoice(ctx context.Context, orderRef string) (string, error)
	PostInvoice(ctx context.Context, invoiceRef string) error
	CreateCreditNote(ctx context.Context, invoiceRef string) (string, error)
	ReconcileReceivables(ctx context.Context, invoiceRef, creditNoteRef string) error
	GetInvoice(ctx context.Context, invoiceRef string) (Invoice, error)
}
