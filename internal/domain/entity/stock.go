package entity

import (
	"time"

	"github.com/shopspring/decimal"
)

// Stock representa la existencia actual de un producto en una sucursal.
// La clave (CompanyID, BranchID, ProductID) es única; la fila se crea de forma
// perezosa la primera vez que una factura con inventario toca el par
// producto/sucursal y nunca se elimina, solo se lleva a cero.
// Solo el reconciliador de inventario muta OnHand y AvgCost.
type Stock struct {
	CompanyID string
	BranchID  string
	ProductID string
	OnHand    decimal.Decimal // cantidad disponible; nunca se confirma negativa
	AvgCost   decimal.Decimal // costo promedio ponderado; cambia solo en entradas de compra
	UpdatedAt time.Time
}
