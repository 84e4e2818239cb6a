package billing

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/codr1/clubreserve/internal/apperr"
	"github.com/codr1/clubreserve/internal/db"
	"github.com/codr1/clubreserve/internal/db/store"
	"github.com/codr1/clubreserve/internal/models"
	"github.com/codr1/clubreserve/internal/sequence"
)

const (
	orderPrefix      = "SO"
	invoicePrefix    = "INV"
	creditNotePrefix = "RINV"
)

// LocalLedger is a SalesGateway that keeps orders and invoices in the
// application database.
type LocalLedger struct {
	db  *db.DB
	now func() time.Time
}

func NewLocalLedger(database *db.DB) (*LocalLedger, error) {
	if database == nil {
		return nil, errors.New("local ledger requires a database")
	}
	return &LocalLedger{db: database, now: time.Now}, nil
}

func (l *LocalLedger) CreateOrder(ctx context.Context, currency string, lines []OrderLine) (string, error) {
	if len(lines) == 0 {
		return "", apperr.Invalid("lines", "an order needs at least one line")
	}
	order := store.SaleOrder{Currency: currency, CreatedAt: l.now()}
	for _, line := range lines {
		order.AmountTotal += line.Subtotal
		order.Lines = append(order.Lines, store.SaleOrderLine{
			Description: line.Description,
			Quantity:    line.Quantity,
			PriceUnit:   line.PriceUnit,
			Subtotal:    line.Subtotal,
		})
	}
	order.AmountTotal = models.RoundMoney(order.AmountTotal)

	err := l.db.RunInTx(ctx, func(txdb *db.DB) error {
		ref, err := sequence.Next(ctx, txdb.Queries, orderPrefix)
		if err != nil {
			return err
		}
		order.Ref = ref
		order, err = txdb.Queries.CreateSaleOrder(ctx, order)
		return err
	})
	if err != nil {
		return "", fmt.Errorf("create sale order: %w", err)
	}
	log.Ctx(ctx).Debug().Str("order_ref", order.Ref).Float64("amount_total", order.AmountTotal).Msg("Created sale order")
	return order.Ref, nil
}

func (l *LocalLedger) ConfirmOrder(ctx context.Context, orderRef string) error {
	return l.db.RunInTx(ctx, func(txdb *db.DB) error {
		order, err := txdb.Queries.GetSaleOrderByRef(ctx, orderRef)
		if err != nil {
			return err
		}
		switch order.State {
		case store.OrderConfirmed:
			return nil
		case store.OrderCancelled:
			return fmt.Errorf("%w: sale order %s is cancelled", apperr.ErrPreconditionFailed, orderRef)
		}
		return txdb.Queries.UpdateSaleOrderState(ctx, order.ID, store.OrderConfirmed)
	})
}

// CancelOrder voids an order that was never invoiced. Cancelling twice is a
// no-op.
func (l *LocalLedger) CancelOrder(ctx context.Context, orderRef string) error {
	return l.db.RunInTx(ctx, func(txdb *db.DB) error {
		q := txdb.Queries
		order, err := q.GetSaleOrderByRef(ctx, orderRef)
		if err != nil {
			return err
		}
		if order.State == store.OrderCancelled {
			return nil
		}
		_, err = q.GetCustomerInvoiceForOrder(ctx, order.ID)
		if err == nil {
			return fmt.Errorf("%w: sale order %s is already invoiced", apperr.ErrPreconditionFailed, orderRef)
		}
		if !errors.Is(err, apperr.ErrNotFound) {
			return err
		}
		return q.UpdateSaleOrderState(ctx, order.ID, store.OrderCancelled)
	})
}

// CreateInvoice returns the order's existing invoice when there is one, so a
// retried confirmation does not bill twice.
func (l *LocalLedger) CreateInvoice(ctx context.Context, orderRef string) (string, error) {
	var ref string
	err := l.db.RunInTx(ctx, func(txdb *db.DB) error {
		q := txdb.Queries
		order, err := q.GetSaleOrderByRef(ctx, orderRef)
		if err != nil {
			return err
		}
		if order.State != store.OrderConfirmed {
			return fmt.Errorf("%w: sale order %s is not confirmed", apperr.ErrPreconditionFailed, orderRef)
		}
		existing, err := q.GetCustomerInvoiceForOrder(ctx, order.ID)
		if err == nil {
			ref = existing.Ref
			return nil
		}
		if !errors.Is(err, apperr.ErrNotFound) {
			return err
		}

		now := l.now()
		ref, err = sequence.Next(ctx, q, invoicePrefix+"/"+strconv.Itoa(now.Year()))
		if err != nil {
			return err
		}
		_, err = q.CreateInvoice(ctx, store.Invoice{
			Ref:         ref,
			OrderID:     order.ID,
			Kind:        store.KindInvoice,
			AmountTotal: order.AmountTotal,
			CreatedAt:   now,
		})
		return err
	})
	if err != nil {
		return "", fmt.Errorf("create invoice for %s: %w", orderRef, err)
	}
	return ref, nil
}

func (l *LocalLedger) PostInvoice(ctx context.Context, invoiceRef string) error {
	return l.db.RunInTx(ctx, func(txdb *db.DB) error {
		inv, err := txdb.Queries.GetInvoiceByRef(ctx, invoiceRef)
		if err != nil {
			return err
		}
		if inv.State == store.InvoicePosted {
			return nil
		}
		return txdb.Queries.UpdateInvoiceState(ctx, inv.ID, store.InvoicePosted)
	})
}

// CreateCreditNote returns the invoice's existing credit note when there is
// one, so a retried refund does not reverse it twice.
func (l *LocalLedger) CreateCreditNote(ctx context.Context, invoiceRef string) (string, error) {
	var ref string
	err := l.db.RunInTx(ctx, func(txdb *db.DB) error {
		q := txdb.Queries
		inv, err := q.GetInvoiceByRef(ctx, invoiceRef)
		if err != nil {
			return err
		}
		if inv.Kind != store.KindInvoice || inv.State != store.InvoicePosted {
			return fmt.Errorf("%w: invoice %s is not a posted customer invoice", apperr.ErrPreconditionFailed, invoiceRef)
		}
		existing, err := q.GetCreditNoteFor(ctx, inv.ID)
		if err == nil {
			ref = existing.Ref
			return nil
		}
		if !errors.Is(err, apperr.ErrNotFound) {
			return err
		}

		now := l.now()
		ref, err = sequence.Next(ctx, q, creditNotePrefix+"/"+strconv.Itoa(now.Year()))
		if err != nil {
			return err
		}
		_, err = q.CreateInvoice(ctx, store.Invoice{
			Ref:               ref,
			OrderID:           inv.OrderID,
			Kind:              store.KindCreditNote,
			ReversedInvoiceID: &inv.ID,
			AmountTotal:       inv.AmountTotal,
			CreatedAt:         now,
		})
		return err
	})
	if err != nil {
		return "", fmt.Errorf("create credit note for %s: %w", invoiceRef, err)
	}
	return ref, nil
}

func (l *LocalLedger) ReconcileReceivables(ctx context.Context, invoiceRef, creditNoteRef string) error {
	return l.db.RunInTx(ctx, func(txdb *db.DB) error {
		q := txdb.Queries
		inv, err := q.GetInvoiceByRef(ctx, invoiceRef)
		if err != nil {
			return err
		}
		note, err := q.GetInvoiceByRef(ctx, creditNoteRef)
		if err != nil {
			return err
		}
		if note.ReversedInvoiceID == nil || *note.ReversedInvoiceID != inv.ID {
			return fmt.Errorf("%w: %s does not reverse %s", apperr.ErrPreconditionFailed, creditNoteRef, invoiceRef)
		}
		if inv.State != store.InvoicePosted || note.State != store.InvoicePosted {
			return fmt.Errorf("%w: both documents must be posted before reconciling", apperr.ErrPreconditionFailed)
		}
		return q.MarkReconciled(ctx, inv.ID, note.ID)
	})
}

func (l *LocalLedger) GetInvoice(ctx context.Context, invoiceRef string) (Invoice, error) {
	inv, err := l.db.Queries.GetInvoiceByRef(ctx, invoiceRef)
	if err != nil {
		return Invoice{}, err
	}
	return Invoice{
		Ref:        inv.Ref,
		Kind:       InvoiceKind(inv.Kind),
		Posted:     inv.State == store.InvoicePosted,
		Amount:     inv.AmountTotal,
		Reconciled: inv.Reconciled,
	}, nil
}
