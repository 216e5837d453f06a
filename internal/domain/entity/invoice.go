package entity

import (
	"time"

	"github.com/shopspring/decimal"
)

// Tipos de factura (conjunto cerrado).
const (
	InvoiceTypeSale     = "sale"     // venta: descuenta inventario
	InvoiceTypePurchase = "purchase" // compra: ingresa inventario y recalcula costo promedio
)

// Estados de una factura.
const (
	InvoiceStatusDraft = "draft"
	InvoiceStatusFinal = "final"
	InvoiceStatusVoid  = "void"
)

// Invoice representa la cabecera de una factura (venta o compra).
// BranchID vacío = factura de solo servicios, sin efecto en inventario.
type Invoice struct {
	ID         string
	CompanyID  string
	BranchID   string
	Type       string // ver constantes InvoiceType*
	InvoiceNo  string
	Status     string
	Date       time.Time
	Note       string
	NetTotal   decimal.Decimal
	TaxTotal   decimal.Decimal
	GrandTotal decimal.Decimal
	CreatedAt  time.Time
	UpdatedAt  time.Time
	Items      []InvoiceItem
}

// InvoiceItem representa una línea de una factura. ProductID vacío indica una
// línea sin inventario (servicios); el resumidor de deltas la ignora.
type InvoiceItem struct {
	ID          string
	InvoiceID   string
	ProductID   string
	Description string
	Qty         decimal.Decimal
	UnitPrice   decimal.Decimal
	TaxRate     decimal.Decimal
	Subtotal    decimal.Decimal
}

// ValidInvoiceType indica si el tipo pertenece al conjunto cerrado.
func ValidInvoiceType(t string) bool {
	return t == InvoiceTypeSale || t == InvoiceTypePurchase
}

// HasBranch indica si la factura está ligada a una sucursal (afecta inventario).
func (i *Invoice) HasBranch() bool {
	return i != nil && i.BranchID != ""
}
