package dto

import (
	"time"

	"github.com/shopspring/decimal"
)

// AdjustStockRequest ajuste manual de inventario. Qty con signo; UnitCost
// opcional, solo para ajustes positivos con costo conocido.
type AdjustStockRequest struct {
	BranchID  string           `json:"branch_id"`
	ProductID string           `json:"product_id"`
	Qty       decimal.Decimal  `json:"qty"`
	UnitCost  *decimal.Decimal `json:"unit_cost"`
	Note      string           `json:"note"`
}

// StockLevelResponse existencias de un producto en una sucursal.
type StockLevelResponse struct {
	BranchID  string          `json:"branch_id"`
	ProductID string          `json:"product_id"`
	OnHand    decimal.Decimal `json:"on_hand"`
	AvgCost   decimal.Decimal `json:"avg_cost"`
	UpdatedAt time.Time       `json:"updated_at"`
}

// StockMovementResponse una línea del libro de movimientos.
type StockMovementResponse struct {
	ID         string          `json:"id"`
	BranchID   string          `json:"branch_id"`
	ProductID  string          `json:"product_id"`
	Type       string          `json:"type"`
	Qty        decimal.Decimal `json:"qty"`
	UnitCost   decimal.Decimal `json:"unit_cost"`
	TotalCost  decimal.Decimal `json:"total_cost"`
	SourceType string          `json:"source_type"`
	SourceID   string          `json:"source_id"`
	Note       string          `json:"note,omitempty"`
	CreatedAt  time.Time       `json:"created_at"`
}
