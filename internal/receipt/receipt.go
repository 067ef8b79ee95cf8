// Package receipt renders printable order receipts.
package receipt

import (
	"bytes"
	"fmt"
	"strings"
	"time"

	"storefront-order-service/internal/order"
	"storefront-order-service/internal/pricing"
	"storefront-order-service/internal/whatsapp"

	"github.com/phpdave11/gofpdf"
)

type Options struct {
	Currency string
	Rate     float64
	Location *time.Location
}

func (o Options) money(amount float64) string {
	currency := o.Currency
	if currency == "" {
		currency = "CUP"
	}
	return fmt.Sprintf("%.2f %s", pricing.Round2(amount), currency)
}

// Render builds an A4 PDF for the order with amounts scaled by opts.Rate.
func Render(o *order.Order, opts Options) ([]byte, error) {
	if opts.Rate <= 0 {
		opts.Rate = 1
	}
	loc := opts.Location
	if loc == nil {
		loc = time.UTC
	}

	pdf := gofpdf.New("P", "mm", "A4", "")
	tr := pdf.UnicodeTranslatorFromDescriptor("")
	pdf.SetMargins(12, 12, 12)
	pdf.SetTitle(o.ID, true)
	pdf.AddPage()

	pdf.SetFont("Arial", "B", 14)
	pdf.CellFormat(0, 8, tr(o.Business.Name), "", 1, "C", false, 0, "")
	if o.Business.Phone != "" {
		pdf.SetFont("Arial", "", 10)
		pdf.CellFormat(0, 5, tr(o.Business.Phone), "", 1, "C", false, 0, "")
	}

	pdf.Ln(2)
	pdf.SetFont("Arial", "B", 11)
	pdf.CellFormat(0, 6, tr("Pedido "+o.ID), "", 1, "C", false, 0, "")
	pdf.SetFont("Arial", "", 9)
	pdf.CellFormat(0, 5, tr("Fecha: "+o.CreatedAt.In(loc).Format("2006-01-02 15:04")), "", 1, "C", false, 0, "")
	pdf.CellFormat(0, 5, tr("Estado: "+whatsapp.StatusLabel(o.Status)), "", 1, "C", false, 0, "")

	pdf.Ln(3)
	pdf.SetFont("Arial", "B", 10)
	pdf.CellFormat(0, 6, "Cliente", "B", 1, "L", false, 0, "")
	pdf.SetFont("Arial", "", 9)
	pdf.CellFormat(0, 5, tr(o.Customer.Name), "", 1, "L", false, 0, "")
	pdf.CellFormat(0, 5, tr(o.Customer.Phone), "", 1, "L", false, 0, "")
	if o.Customer.Address != "" {
		pdf.MultiCell(0, 4, tr(o.Customer.Address), "", "L", false)
	}

	pdf.Ln(2)
	pdf.SetFont("Arial", "B", 10)
	pdf.CellFormat(0, 6, tr("Artículos"), "B", 1, "L", false, 0, "")
	pdf.SetFont("Arial", "", 9)
	for _, item := range o.Items {
		name := item.Name
		if item.Size != "" {
			name += " (" + item.Size + ")"
		}
		pdf.CellFormat(140, 5, tr(fmt.Sprintf("%dx %s", item.Quantity, name)), "", 0, "L", false, 0, "")
		pdf.CellFormat(0, 5, opts.money(item.Total()*opts.Rate), "", 1, "R", false, 0, "")
		if len(item.Modifiers) > 0 {
			pdf.CellFormat(0, 4, tr("  "+strings.Join(item.Modifiers, ", ")), "", 1, "L", false, 0, "")
		}
	}

	p := o.Pricing.Scale(opts.Rate)
	pdf.Ln(2)
	pdf.SetFont("Arial", "B", 10)
	pdf.CellFormat(0, 6, "Totales", "B", 1, "L", false, 0, "")
	pdf.SetFont("Arial", "", 9)
	line := func(label string, amount float64) {
		pdf.CellFormat(140, 5, tr(label), "", 0, "L", false, 0, "")
		pdf.CellFormat(0, 5, opts.money(amount), "", 1, "R", false, 0, "")
	}
	line("Subtotal", p.Subtotal)
	if p.PlatformFee != 0 {
		line("Comisión", p.PlatformFee)
	}
	if p.ServiceFee != 0 {
		line("Servicio", p.ServiceFee)
	}
	if p.DeliveryFee != 0 {
		line("Envío", p.DeliveryFee)
	}
	if p.Discount != 0 {
		line("Descuento", -p.Discount)
	}
	pdf.SetFont("Arial", "B", 11)
	line("Total", p.GrandTotal)

	pdf.Ln(2)
	pdf.SetFont("Arial", "", 9)
	if o.PaymentMethod != nil && *o.PaymentMethod != "" {
		pdf.CellFormat(0, 5, tr("Pago: "+*o.PaymentMethod), "", 1, "L", false, 0, "")
	}
	if o.Notes != "" {
		pdf.MultiCell(0, 4, tr("Notas: "+o.Notes), "", "L", false)
	}

	var out bytes.Buffer
	if err := pdf.Output(&out); err != nil {
		return nil, err
	}
	return out.Bytes(), nil
}

func Filename(o *order.Order) string {
	return "receipt-" + strings.ToLower(o.ID) + ".pdf"
}
