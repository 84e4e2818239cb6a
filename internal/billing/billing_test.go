package billing

import (
	"context"
	"errors"
	"testing"

	"github.com/codr1/clubreserve/internal/apperr"
	"github.com/codr1/clubreserve/internal/models"
	"github.com/codr1/clubreserve/internal/testutil"
)

func TestPercentTaxEngine(t *testing.T) {
	ctx := context.Background()
	engine := PercentTaxEngine{}

	tests := []struct {
		name     string
		tax      *models.Tax
		base     float64
		excluded float64
		included float64
	}{
		{"untaxed", nil, 50, 50, 50},
		{"excluded", &models.Tax{Name: "VAT", Percent: 21}, 100, 100, 121},
		{"included", &models.Tax{Name: "VAT", Percent: 25, PriceIncluded: true}, 125, 100, 125},
		{"rounded", &models.Tax{Name: "GST", Percent: 7}, 33.33, 33.33, 35.66},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res, err := engine.ComputeTax(ctx, tt.base, tt.tax, "EUR")
			if err != nil {
				t.Fatalf("compute tax: %v", err)
			}
			if res.TotalExcluded != tt.excluded || res.TotalIncluded != tt.included {
				t.Fatalf("result = %+v, want excluded %v included %v", res, tt.excluded, tt.included)
			}
			if tt.tax != nil && len(res.Lines) != 1 {
				t.Fatalf("expected one tax line, got %v", res.Lines)
			}
		})
	}
}

func TestLocalLedgerInvoiceAndRefund(t *testing.T) {
	ctx := context.Background()
	database := testutil.NewTestDB(t)
	ledger, err := NewLocalLedger(database)
	if err != nil {
		t.Fatalf("new ledger: %v", err)
	}

	orderRef, err := ledger.CreateOrder(ctx, "EUR", []OrderLine{
		{Description: "Court 1 09:00-10:00", Quantity: 1, PriceUnit: 20, Subtotal: 20},
		{Description: "Racket", Quantity: 2, PriceUnit: 2.5, Subtotal: 5},
	})
	if err != nil {
		t.Fatalf("create order: %v", err)
	}
	if orderRef != "SO/00001" {
		t.Fatalf("order ref = %q", orderRef)
	}

	if _, err := ledger.CreateInvoice(ctx, orderRef); !errors.Is(err, apperr.ErrPreconditionFailed) {
		t.Fatalf("invoice on draft order error = %v", err)
	}
	if err := ledger.ConfirmOrder(ctx, orderRef); err != nil {
		t.Fatalf("confirm order: %v", err)
	}

	invoiceRef, err := ledger.CreateInvoice(ctx, orderRef)
	if err != nil {
		t.Fatalf("create invoice: %v", err)
	}
	again, err := ledger.CreateInvoice(ctx, orderRef)
	if err != nil {
		t.Fatalf("create invoice again: %v", err)
	}
	if again != invoiceRef {
		t.Fatalf("retry created a second invoice: %q vs %q", again, invoiceRef)
	}

	if _, err := ledger.CreateCreditNote(ctx, invoiceRef); !errors.Is(err, apperr.ErrPreconditionFailed) {
		t.Fatalf("credit note on draft invoice error = %v", err)
	}
	if err := ledger.PostInvoice(ctx, invoiceRef); err != nil {
		t.Fatalf("post invoice: %v", err)
	}
	if again, err := ledger.CreateInvoice(ctx, orderRef); err != nil || again != invoiceRef {
		t.Fatalf("create invoice after posting = %q, %v", again, err)
	}
	inv, err := ledger.GetInvoice(ctx, invoiceRef)
	if err != nil {
		t.Fatalf("get invoice: %v", err)
	}
	if !inv.Posted || inv.Amount != 25 || inv.Kind != KindInvoice {
		t.Fatalf("invoice = %+v", inv)
	}

	noteRef, err := ledger.CreateCreditNote(ctx, invoiceRef)
	if err != nil {
		t.Fatalf("create credit note: %v", err)
	}
	if again, err := ledger.CreateCreditNote(ctx, invoiceRef); err != nil || again != noteRef {
		t.Fatalf("retried credit note = %q, %v, want %q", again, err, noteRef)
	}
	if err := ledger.ReconcileReceivables(ctx, invoiceRef, noteRef); !errors.Is(err, apperr.ErrPreconditionFailed) {
		t.Fatalf("reconcile unposted credit note error = %v", err)
	}
	if err := ledger.PostInvoice(ctx, noteRef); err != nil {
		t.Fatalf("post credit note: %v", err)
	}
	if err := ledger.ReconcileReceivables(ctx, invoiceRef, noteRef); err != nil {
		t.Fatalf("reconcile: %v", err)
	}

	inv, err = ledger.GetInvoice(ctx, invoiceRef)
	if err != nil {
		t.Fatalf("get invoice: %v", err)
	}
	note, err := ledger.GetInvoice(ctx, noteRef)
	if err != nil {
		t.Fatalf("get credit note: %v", err)
	}
	if !inv.Reconciled || !note.Reconciled || note.Kind != KindCreditNote {
		t.Fatalf("invoice = %+v, credit note = %+v", inv, note)
	}
}

func TestLocalLedgerCancelOrder(t *testing.T) {
	ctx := context.Background()
	database := testutil.NewTestDB(t)
	ledger, err := NewLocalLedger(database)
	if err != nil {
		t.Fatalf("new ledger: %v", err)
	}
	lines := []OrderLine{{Description: "Court 1 09:00-10:00", Quantity: 1, PriceUnit: 20, Subtotal: 20}}

	orphan, err := ledger.CreateOrder(ctx, "EUR", lines)
	if err != nil {
		t.Fatalf("create order: %v", err)
	}
	if err := ledger.CancelOrder(ctx, orphan); err != nil {
		t.Fatalf("cancel order: %v", err)
	}
	if err := ledger.CancelOrder(ctx, orphan); err != nil {
		t.Fatalf("cancel order twice: %v", err)
	}
	if err := ledger.ConfirmOrder(ctx, orphan); !errors.Is(err, apperr.ErrPreconditionFailed) {
		t.Fatalf("confirm cancelled order error = %v", err)
	}

	invoiced, err := ledger.CreateOrder(ctx, "EUR", lines)
	if err != nil {
		t.Fatalf("create order: %v", err)
	}
	if err := ledger.ConfirmOrder(ctx, invoiced); err != nil {
		t.Fatalf("confirm order: %v", err)
	}
	if _, err := ledger.CreateInvoice(ctx, invoiced); err != nil {
		t.Fatalf("create invoice: %v", err)
	}
	if err := ledger.CancelOrder(ctx, invoiced); !errors.Is(err, apperr.ErrPreconditionFailed) {
		t.Fatalf("cancel invoiced order error = %v", err)
	}
	if err := ledger.CancelOrder(ctx, "SO/99999"); !errors.Is(err, apperr.ErrNotFound) {
		t.Fatalf("cancel unknown order error = %v", err)
	}
}

func TestLocalLedgerUnknownInvoice(t *testing.T) {
	database := testutil.NewTestDB(t)
	ledger, err := NewLocalLedger(database)
	if err != nil {
		t.Fatalf("new ledger: %v", err)
	}
	if _, err := ledger.GetInvoice(context.Background(), "INV/2026/99999"); !errors.Is(err, apperr.ErrNotFound) {
		t.Fatalf("error = %v, want not found", err)
	}
}
