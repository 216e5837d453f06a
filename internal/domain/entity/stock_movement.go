package entity

import (
	"time"

	"github.com/shopspring/decimal"
)

// Tipos de movimiento de inventario (conjunto cerrado).
const (
	MovementTypePurchase   = "purchase"   // entrada por factura de compra
	MovementTypeSale       = "sale"       // salida por factura de venta
	MovementTypeAdjustment = "adjustment" // ajuste manual
)

// Tipos de documento origen de un movimiento.
const (
	SourceTypeInvoice    = "invoice"
	SourceTypeAdjustment = "adjustment"
)

// StockMovement representa una línea del libro de movimientos de inventario.
// Qty es con signo: positivo entra stock, negativo sale. Los movimientos de
// una factura se reemplazan en bloque en cada edición (borrar todo y
// reinsertar), nunca se parchan individualmente.
type StockMovement struct {
	ID         string
	CompanyID  string
	BranchID   string
	ProductID  string
	Type       string // ver constantes MovementType*
	Qty        decimal.Decimal
	UnitCost   decimal.Decimal
	TotalCost  decimal.Decimal
	SourceType string // ver constantes SourceType*
	SourceID   string // ID del documento origen (factura, ajuste)
	Note       string
	CreatedAt  time.Time
	CreatedBy  string // UserID
}

// ValidMovementType indica si el tipo pertenece al conjunto cerrado.
func ValidMovementType(t string) bool {
	switch t {
	case MovementTypePurchase, MovementTypeSale, MovementTypeAdjustment:
		return true
	}
	return false
}
