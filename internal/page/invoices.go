package page

import (
	"context"
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"hmsportal/internal/apiclient"
)

// Invoice is one bill as listed by the billing API. Amounts may arrive as JSON
// numbers or strings.
type Invoice struct {
	ID          int64           `json:"id"`
	Number      string          `json:"invoice_number"`
	PatientName string          `json:"patient_name"`
	Status      string          `json:"status"`
	Total       decimal.Decimal `json:"total_amount"`
	Paid        decimal.Decimal `json:"paid_amount"`
}

// Due is what remains to be paid, never negative.
func (i Invoice) Due() decimal.Decimal {
	due := i.Total.Sub(i.Paid)
	if due.IsNegative() {
		return decimal.Zero
	}
	return due
}

// InvoiceTotals summarises a list of invoices.
type InvoiceTotals struct {
	Billed      decimal.Decimal
	Paid        decimal.Decimal
	Outstanding decimal.Decimal
}

// Totals adds up invoices. Outstanding is the sum of each invoice's due amount,
// so an overpaid invoice does not hide another one's debt.
func Totals(invoices []Invoice) InvoiceTotals {
	t := InvoiceTotals{Billed: decimal.Zero, Paid: decimal.Zero, Outstanding: decimal.Zero}
	for _, inv := range invoices {
		t.Billed = t.Billed.Add(inv.Total)
		t.Paid = t.Paid.Add(inv.Paid)
		t.Outstanding = t.Outstanding.Add(inv.Due())
	}
	return t
}

// Invoices is the billing page: a resource page whose list shows money totals.
// Render and Act come from Resource.
type Invoices struct {
	*Resource
}

type invoicesBody struct {
	Resource resourceBody
	Invoices []Invoice
	Totals   InvoiceTotals
}

// NewInvoices returns the factory of an invoices page.
func NewInvoices(spec ResourceSpec) Factory {
	return func(context.Context) (Page, error) {
		r, err := newResource(spec, "invoices")
		if err != nil {
			return nil, err
		}
		p := &Invoices{Resource: r}
		r.show = p.render
		return p, nil
	}
}

func (p *Invoices) render(c echo.Context, env Env, status int, message string) error {
	ctx := c.Request().Context()
	var invoices []Invoice
	if err := env.API.Do(ctx, http.MethodGet, p.spec.Endpoint, nil, &invoices); err != nil {
		if errors.Is(err, apiclient.ErrUnauthorized) {
			return err
		}
		zerolog.Ctx(ctx).Warn().Err(err).Str("endpoint", p.spec.Endpoint).Msg("list invoices failed")
		invoices = nil
		if message == "" {
			message = fetchFailure(err)
		}
	}

	f := frame(env, invoicesBody{
		Resource: p.body(env, nil),
		Invoices: invoices,
		Totals:   Totals(invoices),
	})
	f.Error = message
	return write(c, status, p.tmpl, f)
}
