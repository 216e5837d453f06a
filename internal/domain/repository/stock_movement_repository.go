package repository

import (
	"time"

	"github.com/jhoicas/facturacion-api/internal/domain/entity"
)

// StockMovementRepository define el puerto de persistencia para el libro de
// movimientos de inventario.
type StockMovementRepository interface {
	CreateBatch(movements []*entity.StockMovement) error
	// DeleteBySource borra todos los movimientos de un documento origen.
	// Junto con CreateBatch implementa el reemplazo en bloque: los movimientos
	// de una factura siempre reflejan su juego de líneas actual.
	DeleteBySource(sourceType, sourceID string) error
	ListBySource(sourceType, sourceID string) ([]*entity.StockMovement, error)
	ListByBranch(companyID, branchID string, from, to *time.Time, limit, offset int) ([]*entity.StockMovement, error)
	ListByProduct(companyID, productID string, from, to *time.Time, limit, offset int) ([]*entity.StockMovement, error)
}
