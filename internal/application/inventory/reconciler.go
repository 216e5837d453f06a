package inventory

import (
	"sort"
	"time"

	"github.com/jhoicas/facturacion-api/internal/domain/entity"
	"github.com/jhoicas/facturacion-api/internal/domain/inventory"
	"github.com/jhoicas/facturacion-api/internal/domain/repository"
)

// Reconciler mantiene las existencias y el costo promedio por sucursal
// consistentes con las líneas de las facturas que se crean, editan o borran.
// Todos sus métodos reciben repositorios atados a la transacción del caller:
// lectura de stock → validación de faltantes → escritura de stock debe ocurrir
// dentro de una sola transacción.
type Reconciler struct{}

// NewReconciler construye el reconciliador (sin estado propio).
func NewReconciler() *Reconciler {
	return &Reconciler{}
}

// ApplyInvoiceInventory reconcilia el efecto en inventario de una mutación de
// factura: previous es el estado anterior (nil en creación) e invoice el nuevo
// (nil en borrado). Devuelve la lista de faltantes; si no está vacía NO se
// aplicó nada y el caller debe abortar la transacción completa.
// Un cambio de sucursal se maneja en dos fases: revertir todo en la sucursal
// anterior y aplicar todo en la nueva, ambas dentro de la misma transacción.
func (r *Reconciler) ApplyInvoiceInventory(
	stockRepo repository.StockRepository,
	companyID string,
	invoice, previous *entity.Invoice,
) ([]inventory.Shortage, error) {
	oldSum := inventory.Summarize(previous)
	newSum := inventory.Summarize(invoice)

	oldBranch := ""
	if previous != nil {
		oldBranch = previous.BranchID
	}
	newBranch := ""
	if invoice != nil {
		newBranch = invoice.BranchID
	}

	if oldBranch == newBranch {
		return r.reconcileBranch(stockRepo, companyID, newBranch, oldSum, newSum)
	}

	// Traslado de sucursal: primero se revierte el efecto completo en la
	// sucursal anterior y luego se aplica en la nueva. Si la reversión o la
	// aplicación reporta faltantes, el caller hace rollback y ninguna de las
	// dos fases queda visible.
	shortages, err := r.reconcileBranch(stockRepo, companyID, oldBranch, oldSum, inventory.Summary{})
	if err != nil || len(shortages) > 0 {
		return shortages, err
	}
	return r.reconcileBranch(stockRepo, companyID, newBranch, inventory.Summary{}, newSum)
}

// reconcileBranch calcula los deltas por producto entre dos resúmenes y los
// aplica sobre las filas de stock de una sucursal. Dos pasadas: primero
// validación de faltantes sin mutar nada (todo o nada sobre la factura
// completa), después aplicación y upsert.
func (r *Reconciler) reconcileBranch(
	stockRepo repository.StockRepository,
	companyID, branchID string,
	oldSum, newSum inventory.Summary,
) ([]inventory.Shortage, error) {
	if branchID == "" {
		// Factura de solo servicios: no se lleva inventario.
		return nil, nil
	}

	ids := inventory.ProductIDs(oldSum, newSum)
	// Orden estable de bloqueo de filas para evitar deadlocks entre
	// transacciones que tocan los mismos productos.
	sort.Strings(ids)

	stocks := make(map[string]*entity.Stock, len(ids))
	deltas := make(map[string]inventory.Delta, len(ids))
	var shortages []inventory.Shortage

	for _, id := range ids {
		d := inventory.DeltaFor(id, oldSum, newSum)
		if d.IsZero() {
			continue
		}
		// SELECT FOR UPDATE: la fila queda bloqueada hasta el commit del
		// caller; una fila inexistente llega con OnHand=0 y AvgCost=0.
		stock, err := stockRepo.GetForUpdate(companyID, branchID, id)
		if err != nil {
			return nil, err
		}
		if s := d.ShortageFor(id, stock.OnHand); s != nil {
			shortages = append(shortages, *s)
		}
		stocks[id] = stock
		deltas[id] = d
	}
	if len(shortages) > 0 {
		return shortages, nil
	}

	now := time.Now()
	for _, id := range ids {
		d, ok := deltas[id]
		if !ok {
			continue
		}
		stock := stocks[id]
		d.Apply(stock)
		stock.UpdatedAt = now
		if err := stockRepo.Upsert(stock); err != nil {
			return nil, err
		}
	}
	return nil, nil
}
