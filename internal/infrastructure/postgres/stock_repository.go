package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"

	"github.com/jhoicas/facturacion-api/internal/domain/entity"
	"github.com/jhoicas/facturacion-api/internal/domain/repository"
)

var _ repository.StockRepository = (*StockRepo)(nil)

// StockRepo implementación de StockRepository sobre PostgreSQL (usable con pool o tx).
type StockRepo struct {
	q Querier
}

// NewStockRepository construye el adaptador de stock. Pasar pool o tx (Querier).
func NewStockRepository(q Querier) *StockRepo {
	return &StockRepo{q: q}
}

// zeroStock fila lazy para un par sucursal/producto que aún no existe.
func zeroStock(companyID, branchID, productID string) *entity.Stock {
	return &entity.Stock{
		CompanyID: companyID,
		BranchID:  branchID,
		ProductID: productID,
		OnHand:    decimal.Zero,
		AvgCost:   decimal.Zero,
	}
}

// Get obtiene las existencias de un producto en una sucursal. Una fila
// inexistente se devuelve con OnHand=0 y AvgCost=0 sin crearla.
func (r *StockRepo) Get(companyID, branchID, productID string) (*entity.Stock, error) {
	query := `
		SELECT company_id, branch_id, product_id, on_hand, avg_cost, updated_at
		FROM stock WHERE company_id = $1 AND branch_id = $2 AND product_id = $3`
	var s entity.Stock
	err := r.q.QueryRow(context.Background(), query, companyID, branchID, productID).Scan(
		&s.CompanyID, &s.BranchID, &s.ProductID, &s.OnHand, &s.AvgCost, &s.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return zeroStock(companyID, branchID, productID), nil
		}
		return nil, fmt.Errorf("get stock: %w", err)
	}
	return &s, nil
}

// GetForUpdate obtiene las existencias y bloquea la fila (SELECT FOR UPDATE)
// hasta el commit de la transacción del caller.
func (r *StockRepo) GetForUpdate(companyID, branchID, productID string) (*entity.Stock, error) {
	query := `
		SELECT company_id, branch_id, product_id, on_hand, avg_cost, updated_at
		FROM stock WHERE company_id = $1 AND branch_id = $2 AND product_id = $3
		FOR UPDATE`
	var s entity.Stock
	err := r.q.QueryRow(context.Background(), query, companyID, branchID, productID).Scan(
		&s.CompanyID, &s.BranchID, &s.ProductID, &s.OnHand, &s.AvgCost, &s.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return zeroStock(companyID, branchID, productID), nil
		}
		return nil, fmt.Errorf("get stock for update: %w", err)
	}
	return &s, nil
}

// Upsert inserta o actualiza existencias y costo promedio (clave empresa+sucursal+producto).
func (r *StockRepo) Upsert(stock *entity.Stock) error {
	query := `
		INSERT INTO stock (company_id, branch_id, product_id, on_hand, avg_cost, updated_at)
		VALUES ($1, $2, $3, $4, $5, now())
		ON CONFLICT (company_id, branch_id, product_id)
		DO UPDATE SET on_hand = EXCLUDED.on_hand, avg_cost = EXCLUDED.avg_cost, updated_at = now()`
	_, err := r.q.Exec(context.Background(), query,
		stock.CompanyID, stock.BranchID, stock.ProductID, stock.OnHand, stock.AvgCost,
	)
	if err != nil {
		return fmt.Errorf("upsert stock: %w", err)
	}
	return nil
}

// ListByBranch lista las existencias de una sucursal.
func (r *StockRepo) ListByBranch(companyID, branchID string, limit, offset int) ([]*entity.Stock, error) {
	query := `
		SELECT company_id, branch_id, product_id, on_hand, avg_cost, updated_at
		FROM stock WHERE company_id = $1 AND branch_id = $2
		ORDER BY product_id LIMIT $3 OFFSET $4`
	rows, err := r.q.Query(context.Background(), query, companyID, branchID, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("list stock: %w", err)
	}
	defer rows.Close()
	var list []*entity.Stock
	for rows.Next() {
		var s entity.Stock
		if err := rows.Scan(&s.CompanyID, &s.BranchID, &s.ProductID, &s.OnHand, &s.AvgCost, &s.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scan stock: %w", err)
		}
		list = append(list, &s)
	}
	return list, rows.Err()
}
