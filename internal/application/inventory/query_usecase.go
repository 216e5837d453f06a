package inventory

import (
	"context"
	"time"

	"github.com/jhoicas/facturacion-api/internal/domain"
	"github.com/jhoicas/facturacion-api/internal/domain/entity"
	"github.com/jhoicas/facturacion-api/internal/domain/repository"
)

// StockQueryUseCase consultas de solo lectura sobre existencias y movimientos
// (fuera de transacción, repos atados al pool).
type StockQueryUseCase struct {
	stockRepo  repository.StockRepository
	movRepo    repository.StockMovementRepository
	branchRepo repository.BranchRepository
}

// NewStockQueryUseCase construye el caso de uso de consultas.
func NewStockQueryUseCase(
	stockRepo repository.StockRepository,
	movRepo repository.StockMovementRepository,
	branchRepo repository.BranchRepository,
) *StockQueryUseCase {
	return &StockQueryUseCase{stockRepo: stockRepo, movRepo: movRepo, branchRepo: branchRepo}
}

// ListLevels lista las existencias de una sucursal.
func (uc *StockQueryUseCase) ListLevels(ctx context.Context, companyID, branchID string, limit, offset int) ([]*entity.Stock, error) {
	branch, _ := uc.branchRepo.GetByID(branchID)
	if branch == nil || branch.CompanyID != companyID {
		return nil, domain.ErrNotFound
	}
	return uc.stockRepo.ListByBranch(companyID, branchID, limit, offset)
}

// ListMovementsByBranch lista movimientos de una sucursal en un rango de fechas.
func (uc *StockQueryUseCase) ListMovementsByBranch(ctx context.Context, companyID, branchID string, from, to *time.Time, limit, offset int) ([]*entity.StockMovement, error) {
	branch, _ := uc.branchRepo.GetByID(branchID)
	if branch == nil || branch.CompanyID != companyID {
		return nil, domain.ErrNotFound
	}
	return uc.movRepo.ListByBranch(companyID, branchID, from, to, limit, offset)
}

// ListMovementsByProduct lista movimientos de un producto en un rango de fechas.
func (uc *StockQueryUseCase) ListMovementsByProduct(ctx context.Context, companyID, productID string, from, to *time.Time, limit, offset int) ([]*entity.StockMovement, error) {
	return uc.movRepo.ListByProduct(companyID, productID, from, to, limit, offset)
}
