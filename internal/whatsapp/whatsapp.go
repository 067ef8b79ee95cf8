// Package whatsapp renders order messages and wa.me deep links. Delivery is
// left to the customer's chat client.
package whatsapp

import (
	"errors"
	"fmt"
	"net/url"
	"strings"
	"unicode"

	"storefront-order-service/internal/order"
	"storefront-order-service/internal/pricing"
)

var ErrNoPhone = errors.New("whatsapp phone number is empty")

var statusLabels = map[order.Status]string{
	order.StatusPending:   "Pendiente",
	order.StatusConfirmed: "Confirmado",
	order.StatusPreparing: "En preparación",
	order.StatusReady:     "Listo",
	order.StatusInTransit: "En camino",
	order.StatusDelivered: "Entregado",
	order.StatusCancelled: "Cancelado",
	order.StatusProblem:   "Con problema",
}

func StatusLabel(s order.Status) string {
	if label, ok := statusLabels[s]; ok {
		return label
	}
	return string(s)
}

// Digits strips everything but digits from a phone number.
func Digits(phone string) string {
	var b strings.Builder
	for _, r := range phone {
		if unicode.IsDigit(r) {
			b.WriteRune(r)
		}
	}
	return b.String()
}

func Link(phone, text string) (string, error) {
	digits := Digits(phone)
	if digits == "" {
		return "", ErrNoPhone
	}
	return "https://wa.me/" + digits + "?text=" + url.QueryEscape(text), nil
}

func money(amount float64, currency string) string {
	return fmt.Sprintf("%.2f %s", pricing.Round2(amount), currency)
}

// RenderOrderMessage formats the message a customer sends to the business
// at checkout. Amounts are shown in currency after multiplying by rate.
func RenderOrderMessage(o *order.Order, currency string, rate float64) string {
	if rate <= 0 {
		rate = 1
	}
	var b strings.Builder
	fmt.Fprintf(&b, "*Nuevo pedido %s*\n", o.ID)
	fmt.Fprintf(&b, "Comercio: %s\n\n", o.Business.Name)

	for _, item := range o.Items {
		fmt.Fprintf(&b, "%d x %s", item.Quantity, item.Name)
		if item.Size != "" {
			fmt.Fprintf(&b, " (%s)", item.Size)
		}
		if len(item.Modifiers) > 0 {
			fmt.Fprintf(&b, " [%s]", strings.Join(item.Modifiers, ", "))
		}
		fmt.Fprintf(&b, " - %s\n", money(item.Total()*rate, currency))
	}

	p := o.Pricing.Scale(rate)
	b.WriteString("\n")
	fmt.Fprintf(&b, "Subtotal: %s\n", money(p.Subtotal, currency))
	if p.PlatformFee != 0 {
		fmt.Fprintf(&b, "Comisión: %s\n", money(p.PlatformFee, currency))
	}
	if p.ServiceFee != 0 {
		fmt.Fprintf(&b, "Servicio: %s\n", money(p.ServiceFee, currency))
	}
	if p.DeliveryFee != 0 {
		fmt.Fprintf(&b, "Envío: %s\n", money(p.DeliveryFee, currency))
	}
	if p.Discount != 0 {
		fmt.Fprintf(&b, "Descuento: -%s\n", money(p.Discount, currency))
	}
	fmt.Fprintf(&b, "*Total: %s*\n\n", money(p.GrandTotal, currency))

	fmt.Fprintf(&b, "Cliente: %s\n", o.Customer.Name)
	fmt.Fprintf(&b, "Teléfono: %s\n", o.Customer.Phone)
	if o.Customer.Address != "" {
		fmt.Fprintf(&b, "Dirección: %s\n", o.Customer.Address)
	}
	if o.PaymentMethod != nil && *o.PaymentMethod != "" {
		fmt.Fprintf(&b, "Pago: %s\n", *o.PaymentMethod)
	}
	if o.Notes != "" {
		fmt.Fprintf(&b, "Notas: %s\n", o.Notes)
	}
	return strings.TrimRight(b.String(), "\n")
}

// RenderStatusMessage is the short update a business sends back when an
// order changes status.
func RenderStatusMessage(orderID string, businessName string, status order.Status) string {
	return fmt.Sprintf("Hola, su pedido %s en %s está: %s", orderID, businessName, StatusLabel(status))
}
