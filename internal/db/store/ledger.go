package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	sq "github.com/Masterminds/squirrel"
)

// The ledger tables back the in-process sales and invoicing gateway.

type SaleOrderState string

const (
	OrderDraft     SaleOrderState = "draft"
	OrderConfirmed SaleOrderState = "confirmed"
	OrderCancelled SaleOrderState = "cancelled"
)

type SaleOrder struct {
	ID          int64
	Ref         string
	State       SaleOrderState
	Currency    string
	AmountTotal float64
	CreatedAt   time.Time
	Lines       []SaleOrderLine
}

type SaleOrderLine struct {
	ID          int64
	OrderID     int64
	Description string
	Quantity    float64
	PriceUnit   float64
	Subtotal    float64
}

type InvoiceKind string

const (
	KindInvoice    InvoiceKind = "invoice"
	KindCreditNote InvoiceKind = "credit_note"
)

type InvoiceState string

const (
	InvoiceDraft  InvoiceState = "draft"
	InvoicePosted InvoiceState = "posted"
)

type Invoice struct {
	ID                int64
	Ref               string
	OrderID           int64
	Kind              InvoiceKind
	ReversedInvoiceID *int64
	State             InvoiceState
	AmountTotal       float64
	Reconciled        bool
	CreatedAt         time.Time
}

func (q *Queries) CreateSaleOrder(ctx context.Context, o SaleOrder) (SaleOrder, error) {
	if o.State == "" {
		o.State = OrderDraft
	}
	id, err := q.insert(ctx, psql.Insert("sale_orders").
		Columns("ref", "state", "currency", "amount_total", "created_at").
		Values(o.Ref, string(o.State), o.Currency, o.AmountTotal, formatTimestamp(o.CreatedAt)),
		"create sale order")
	if err != nil {
		return SaleOrder{}, err
	}
	o.ID = id

	for i := range o.Lines {
		o.Lines[i].OrderID = id
		l := o.Lines[i]
		lineID, err := q.insert(ctx, psql.Insert("sale_order_lines").
			Columns("order_id", "description", "quantity", "price_unit", "subtotal").
			Values(l.OrderID, l.Description, l.Quantity, l.PriceUnit, l.Subtotal), "create sale order line")
		if err != nil {
			return SaleOrder{}, err
		}
		o.Lines[i].ID = lineID
	}
	return o, nil
}

func (q *Queries) GetSaleOrderByRef(ctx context.Context, ref string) (SaleOrder, error) {
	what := fmt.Sprintf("sale order %q", ref)
	row, err := q.queryRow(ctx, psql.Select("id", "ref", "state", "currency", "amount_total", "created_at").
		From("sale_orders").Where(sq.Eq{"ref": ref}), what)
	if err != nil {
		return SaleOrder{}, err
	}
	var o SaleOrder
	var state, createdAt string
	if err := row.Scan(&o.ID, &o.Ref, &state, &o.Currency, &o.AmountTotal, &createdAt); err != nil {
		return SaleOrder{}, mapErr(err, what)
	}
	o.State = SaleOrderState(state)
	if o.CreatedAt, err = parseTimestamp(createdAt); err != nil {
		return SaleOrder{}, err
	}

	rows, err := q.query(ctx, psql.Select("id", "order_id", "description", "quantity", "price_unit", "subtotal").
		From("sale_order_lines").Where(sq.Eq{"order_id": o.ID}).OrderBy("id"), "list sale order lines")
	if err != nil {
		return SaleOrder{}, err
	}
	defer rows.Close()
	for rows.Next() {
		var l SaleOrderLine
		if err := rows.Scan(&l.ID, &l.OrderID, &l.Description, &l.Quantity, &l.PriceUnit, &l.Subtotal); err != nil {
			return SaleOrder{}, fmt.Errorf("scan sale order line: %w", err)
		}
		o.Lines = append(o.Lines, l)
	}
	return o, rows.Err()
}

func (q *Queries) UpdateSaleOrderState(ctx context.Context, id int64, state SaleOrderState) error {
	_, err := q.exec(ctx, psql.Update("sale_orders").Set("state", string(state)).Where(sq.Eq{"id": id}),
		fmt.Sprintf("update sale order %d state", id))
	return err
}

var invoiceColumns = []string{
	"id", "ref", "order_id", "kind", "reversed_invoice_id", "state", "amount_total", "reconciled", "created_at",
}

func (q *Queries) CreateInvoice(ctx context.Context, inv Invoice) (Invoice, error) {
	if inv.State == "" {
		inv.State = InvoiceDraft
	}
	id, err := q.insert(ctx, psql.Insert("invoices").
		Columns(invoiceColumns[1:]...).
		Values(inv.Ref, inv.OrderID, string(inv.Kind), nullableInt(inv.ReversedInvoiceID), string(inv.State),
			inv.AmountTotal, inv.Reconciled, formatTimestamp(inv.CreatedAt)), "create invoice")
	if err != nil {
		return Invoice{}, err
	}
	inv.ID = id
	return inv, nil
}

func (q *Queries) GetInvoiceByRef(ctx context.Context, ref string) (Invoice, error) {
	return q.getInvoice(ctx, sq.Eq{"ref": ref}, fmt.Sprintf("invoice %q", ref))
}

// GetCustomerInvoiceForOrder returns the order's first customer invoice,
// posted or not.
func (q *Queries) GetCustomerInvoiceForOrder(ctx context.Context, orderID int64) (Invoice, error) {
	return q.getInvoice(ctx, sq.Eq{"order_id": orderID, "kind": string(KindInvoice)},
		fmt.Sprintf("invoice for order %d", orderID))
}

// GetCreditNoteFor returns the credit note reversing invoiceID.
func (q *Queries) GetCreditNoteFor(ctx context.Context, invoiceID int64) (Invoice, error) {
	return q.getInvoice(ctx, sq.Eq{"reversed_invoice_id": invoiceID, "kind": string(KindCreditNote)},
		fmt.Sprintf("credit note for invoice %d", invoiceID))
}

func (q *Queries) getInvoice(ctx context.Context, where sq.Eq, what string) (Invoice, error) {
	row, err := q.queryRow(ctx, psql.Select(invoiceColumns...).From("invoices").Where(where).OrderBy("id").Limit(1), what)
	if err != nil {
		return Invoice{}, err
	}
	var (
		inv             Invoice
		reversed        sql.NullInt64
		kind, state, ts string
	)
	if err := row.Scan(&inv.ID, &inv.Ref, &inv.OrderID, &kind, &reversed, &state, &inv.AmountTotal,
		&inv.Reconciled, &ts); err != nil {
		return Invoice{}, mapErr(err, what)
	}
	inv.Kind = InvoiceKind(kind)
	inv.State = InvoiceState(state)
	inv.ReversedInvoiceID = intPtr(reversed)
	if inv.CreatedAt, err = parseTimestamp(ts); err != nil {
		return Invoice{}, err
	}
	return inv, nil
}

func (q *Queries) UpdateInvoiceState(ctx context.Context, id int64, state InvoiceState) error {
	_, err := q.exec(ctx, psql.Update("invoices").Set("state", string(state)).Where(sq.Eq{"id": id}),
		fmt.Sprintf("update invoice %d state", id))
	return err
}

// MarkReconciled flags both the invoice and its credit note as settled.
func (q *Queries) MarkReconciled(ctx context.Context, ids ...int64) error {
	_, err := q.exec(ctx, psql.Update("invoices").Set("reconciled", true).Where(sq.Eq{"id": ids}),
		"reconcile invoices")
	return err
}
