package inventory

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"github.com/jhoicas/facturacion-api/internal/domain/entity"
	"github.com/jhoicas/facturacion-api/internal/domain/repository"
)

// ReplaceInvoiceMovements reconstruye los movimientos de inventario de una
// factura desde su juego de líneas actual: borra todos los movimientos con
// sourceType="invoice" y sourceID=factura, y reinserta en bloque. Llamarlo dos
// veces sobre una factura sin cambios produce el mismo juego de movimientos.
// Debe ejecutarse en la misma transacción que ApplyInvoiceInventory, después
// de que el stock quedó actualizado.
func (r *Reconciler) ReplaceInvoiceMovements(
	movRepo repository.StockMovementRepository,
	stockRepo repository.StockRepository,
	companyID, userID string,
	invoice *entity.Invoice,
) error {
	if err := movRepo.DeleteBySource(entity.SourceTypeInvoice, invoice.ID); err != nil {
		return err
	}
	if !invoice.HasBranch() {
		// Sin sucursal no hay inventario que registrar; solo se limpian
		// movimientos que pudieran quedar de un estado anterior.
		return nil
	}

	now := time.Now()
	var movements []*entity.StockMovement
	for _, item := range invoice.Items {
		if item.ProductID == "" || !item.Qty.GreaterThan(decimal.Zero) {
			continue
		}
		mov := &entity.StockMovement{
			CompanyID:  companyID,
			BranchID:   invoice.BranchID,
			ProductID:  item.ProductID,
			SourceType: entity.SourceTypeInvoice,
			SourceID:   invoice.ID,
			Note:       fmt.Sprintf("Factura %s", invoice.InvoiceNo),
			CreatedAt:  now,
			CreatedBy:  userID,
		}
		if invoice.Type == entity.InvoiceTypePurchase {
			mov.Type = entity.MovementTypePurchase
			mov.Qty = item.Qty
			mov.UnitCost = item.UnitPrice
		} else {
			// Las ventas salen al costo promedio vigente al momento de
			// escribir; una reescritura posterior de la misma factura usa el
			// promedio de ese momento, no el original.
			stock, err := stockRepo.Get(companyID, invoice.BranchID, item.ProductID)
			if err != nil {
				return err
			}
			mov.Type = entity.MovementTypeSale
			mov.Qty = item.Qty.Neg()
			mov.UnitCost = stock.AvgCost
		}
		mov.TotalCost = mov.Qty.Mul(mov.UnitCost)
		movements = append(movements, mov)
	}
	if len(movements) == 0 {
		return nil
	}
	return movRepo.CreateBatch(movements)
}
