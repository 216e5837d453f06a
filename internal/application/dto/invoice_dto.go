package dto

import (
	"github.com/shopspring/decimal"

	"github.com/jhoicas/facturacion-api/internal/domain/inventory"
)

// InvoiceItemRequest línea de factura. ProductID vacío = línea de servicio
// (requiere Description); con producto, Description vacía toma el nombre.
type InvoiceItemRequest struct {
	ProductID   string          `json:"product_id"`
	Description string          `json:"description"`
	Qty         decimal.Decimal `json:"qty"`
	UnitPrice   decimal.Decimal `json:"unit_price"`
}

// CreateInvoiceRequest creación de factura (venta o compra). BranchID vacío =
// factura de solo servicios, sin efecto en inventario.
type CreateInvoiceRequest struct {
	BranchID  string               `json:"branch_id"`
	Type      string               `json:"type"` // sale | purchase
	InvoiceNo string               `json:"invoice_no"`
	Note      string               `json:"note"`
	Items     []InvoiceItemRequest `json:"items"`
}

// UpdateInvoiceRequest edición de factura: las líneas se reemplazan completas.
// BranchID nil conserva la sucursal actual; apuntar a otra sucursal traslada
// todo el efecto de inventario.
type UpdateInvoiceRequest struct {
	BranchID  *string              `json:"branch_id"`
	InvoiceNo string               `json:"invoice_no"`
	Note      *string              `json:"note"`
	Items     []InvoiceItemRequest `json:"items"`
}

// InvoiceItemResponse línea en respuestas.
type InvoiceItemResponse struct {
	ID          string          `json:"id"`
	ProductID   string          `json:"product_id,omitempty"`
	Description string          `json:"description"`
	Qty         decimal.Decimal `json:"qty"`
	UnitPrice   decimal.Decimal `json:"unit_price"`
	TaxRate     decimal.Decimal `json:"tax_rate"`
	Subtotal    decimal.Decimal `json:"subtotal"`
}

// InvoiceResponse factura en respuestas.
type InvoiceResponse struct {
	ID         string                `json:"id"`
	CompanyID  string                `json:"company_id"`
	BranchID   string                `json:"branch_id,omitempty"`
	Type       string                `json:"type"`
	InvoiceNo  string                `json:"invoice_no"`
	Status     string                `json:"status"`
	Date       string                `json:"date"`
	Note       string                `json:"note,omitempty"`
	NetTotal   decimal.Decimal       `json:"net_total"`
	TaxTotal   decimal.Decimal       `json:"tax_total"`
	GrandTotal decimal.Decimal       `json:"grand_total"`
	Items      []InvoiceItemResponse `json:"items"`
}

// ShortageResponse cuerpo 409 cuando el inventario no alcanza: la lista de
// faltantes que bloquearon la operación (nada quedó aplicado).
type ShortageResponse struct {
	Code      string               `json:"code"`
	Message   string               `json:"message"`
	Shortages []inventory.Shortage `json:"shortages"`
}
