package entity

import (
	"time"

	"github.com/shopspring/decimal"
)

// Product representa un producto o SKU del catálogo (multi-sucursal).
// Las existencias y el costo promedio se manejan por sucursal en Stock;
// Cost aquí es referencial (último costo de compra conocido).
type Product struct {
	ID           string
	CompanyID    string
	SKU          string // código único por empresa
	Name         string
	Description  string
	Price        decimal.Decimal // precio de venta sugerido
	Cost         decimal.Decimal // costo de referencia
	TaxRate      decimal.Decimal // tarifa de impuesto (fracción, ej. 0.16)
	ReorderLevel decimal.Decimal // nivel de reorden para alertas
	UnitMeasure  string
	CreatedAt    time.Time
	UpdatedAt    time.Time
}
