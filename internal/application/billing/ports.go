package billing

import (
	"context"

	"github.com/jhoicas/facturacion-api/internal/domain/entity"
	"github.com/jhoicas/facturacion-api/internal/domain/inventory"
	"github.com/jhoicas/facturacion-api/internal/domain/repository"
)

// BillingTxRunner ejecuta una función dentro de una transacción que incluye
// los repos de inventario y facturación. Toda mutación de factura (lectura de
// stock, verificación de faltantes, escritura de stock, escritura de factura y
// reemplazo de movimientos) ocurre dentro de esa única transacción.
type BillingTxRunner interface {
	RunBilling(ctx context.Context, fn func(
		movRepo repository.StockMovementRepository,
		stockRepo repository.StockRepository,
		invoiceRepo repository.InvoiceRepository,
	) error) error
}

// InventoryEngine son los dos puntos de entrada del motor de reconciliación
// de inventario. Facturación los invoca con los repositorios de su propia
// transacción; si ApplyInvoiceInventory devuelve faltantes el caller debe
// hacer rollback sin aplicar nada.
type InventoryEngine interface {
	ApplyInvoiceInventory(
		stockRepo repository.StockRepository,
		companyID string,
		invoice, previous *entity.Invoice,
	) ([]inventory.Shortage, error)
	ReplaceInvoiceMovements(
		movRepo repository.StockMovementRepository,
		stockRepo repository.StockRepository,
		companyID, userID string,
		invoice *entity.Invoice,
	) error
}
