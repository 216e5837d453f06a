package repository

import "github.com/jhoicas/facturacion-api/internal/domain/entity"

// StockRepository define el puerto para consultar/actualizar existencias por
// empresa+sucursal+producto. Usado dentro de transacciones para garantizar
// consistencia.
type StockRepository interface {
	Get(companyID, branchID, productID string) (*entity.Stock, error)
	// GetForUpdate bloquea la fila para update (SELECT FOR UPDATE). Cierra la
	// carrera leer-validar-escribir entre ediciones concurrentes de facturas
	// que tocan la misma fila de stock. Una fila inexistente se devuelve con
	// OnHand=0 y AvgCost=0 sin crearla.
	GetForUpdate(companyID, branchID, productID string) (*entity.Stock, error)
	Upsert(stock *entity.Stock) error
	ListByBranch(companyID, branchID string, limit, offset int) ([]*entity.Stock, error)
}
