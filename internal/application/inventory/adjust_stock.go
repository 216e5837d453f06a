package inventory

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/jhoicas/facturacion-api/internal/domain"
	"github.com/jhoicas/facturacion-api/internal/domain/entity"
	"github.com/jhoicas/facturacion-api/internal/domain/inventory"
	"github.com/jhoicas/facturacion-api/internal/domain/repository"
)

// AdjustStockUseCase registra ajustes manuales de inventario (conteos físicos,
// mermas, correcciones) de forma transaccional, con bloqueo de fila y las
// mismas invariantes del reconciliador: las existencias nunca quedan negativas
// y el costo promedio solo sube de nivel con entradas costeadas.
type AdjustStockUseCase struct {
	txRunner    TxRunner
	productRepo repository.ProductRepository
	branchRepo  repository.BranchRepository
}

// NewAdjustStockUseCase construye el caso de uso.
func NewAdjustStockUseCase(
	txRunner TxRunner,
	productRepo repository.ProductRepository,
	branchRepo repository.BranchRepository,
) *AdjustStockUseCase {
	return &AdjustStockUseCase{txRunner: txRunner, productRepo: productRepo, branchRepo: branchRepo}
}

// AdjustmentInput entrada para un ajuste manual. Qty es con signo: positivo
// ingresa stock, negativo lo descuenta. UnitCost aplica solo a ajustes
// positivos; si viene, el costo promedio se recalcula como en una compra.
type AdjustmentInput struct {
	CompanyID string
	UserID    string
	BranchID  string
	ProductID string
	Qty       decimal.Decimal
	UnitCost  *decimal.Decimal
	Note      string
}

// AdjustStock valida producto y sucursal, abre la transacción, bloquea la fila
// de stock, aplica el ajuste y registra un movimiento tipo adjustment.
func (uc *AdjustStockUseCase) AdjustStock(ctx context.Context, in AdjustmentInput) error {
	if in.ProductID == "" || in.BranchID == "" || in.Qty.IsZero() {
		return domain.ErrInvalidInput
	}
	if in.UnitCost != nil && in.UnitCost.IsNegative() {
		return domain.ErrInvalidInput
	}

	product, err := uc.productRepo.GetByID(in.ProductID)
	if err != nil || product == nil {
		return domain.ErrNotFound
	}
	if product.CompanyID != in.CompanyID {
		return domain.ErrForbidden
	}
	branch, _ := uc.branchRepo.GetByID(in.BranchID)
	if branch == nil || branch.CompanyID != in.CompanyID {
		return domain.ErrNotFound
	}

	return uc.txRunner.Run(ctx, func(
		movRepo repository.StockMovementRepository,
		stockRepo repository.StockRepository,
	) error {
		stock, err := stockRepo.GetForUpdate(in.CompanyID, in.BranchID, in.ProductID)
		if err != nil {
			return err
		}
		newOnHand := stock.OnHand.Add(in.Qty)
		if newOnHand.IsNegative() {
			return domain.ErrInsufficientStock
		}

		unitCost := stock.AvgCost
		if in.Qty.GreaterThan(decimal.Zero) && in.UnitCost != nil {
			unitCost = *in.UnitCost
			stock.AvgCost = inventory.CostCalculator(stock.OnHand, stock.AvgCost, in.Qty, in.Qty.Mul(unitCost))
		}
		stock.OnHand = newOnHand
		stock.UpdatedAt = time.Now()
		if err := stockRepo.Upsert(stock); err != nil {
			return err
		}

		mov := &entity.StockMovement{
			CompanyID:  in.CompanyID,
			BranchID:   in.BranchID,
			ProductID:  in.ProductID,
			Type:       entity.MovementTypeAdjustment,
			Qty:        in.Qty,
			UnitCost:   unitCost,
			TotalCost:  in.Qty.Mul(unitCost),
			SourceType: entity.SourceTypeAdjustment,
			SourceID:   uuid.New().String(),
			Note:       in.Note,
			CreatedAt:  stock.UpdatedAt,
			CreatedBy:  in.UserID,
		}
		return movRepo.CreateBatch([]*entity.StockMovement{mov})
	})
}
