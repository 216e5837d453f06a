package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/jhoicas/facturacion-api/internal/domain/entity"
	"github.com/jhoicas/facturacion-api/internal/domain/repository"
)

var _ repository.StockMovementRepository = (*StockMovementRepo)(nil)

// StockMovementRepo implementación sobre PostgreSQL (usable con pool o tx).
type StockMovementRepo struct {
	q Querier
}

// NewStockMovementRepository construye el adaptador. Pasar pool o tx (Querier).
func NewStockMovementRepository(q Querier) *StockMovementRepo {
	return &StockMovementRepo{q: q}
}

const movementColumns = `id, company_id, branch_id, product_id, type, qty, unit_cost, total_cost, source_type, source_id, note, created_at, created_by`

// CreateBatch persiste un lote de movimientos (el juego completo de una factura).
func (r *StockMovementRepo) CreateBatch(movements []*entity.StockMovement) error {
	query := `
		INSERT INTO stock_movements (` + movementColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)`
	for _, m := range movements {
		if m.ID == "" {
			m.ID = uuid.New().String()
		}
		createdBy := (*string)(nil)
		if m.CreatedBy != "" {
			createdBy = &m.CreatedBy
		}
		_, err := r.q.Exec(context.Background(), query,
			m.ID, m.CompanyID, m.BranchID, m.ProductID, m.Type,
			m.Qty, m.UnitCost, m.TotalCost, m.SourceType, m.SourceID,
			m.Note, m.CreatedAt, createdBy,
		)
		if err != nil {
			return fmt.Errorf("create stock movement: %w", err)
		}
	}
	return nil
}

// DeleteBySource borra todos los movimientos de un documento origen.
func (r *StockMovementRepo) DeleteBySource(sourceType, sourceID string) error {
	query := `DELETE FROM stock_movements WHERE source_type = $1 AND source_id = $2`
	if _, err := r.q.Exec(context.Background(), query, sourceType, sourceID); err != nil {
		return fmt.Errorf("delete movements by source: %w", err)
	}
	return nil
}

// ListBySource lista los movimientos de un documento origen.
func (r *StockMovementRepo) ListBySource(sourceType, sourceID string) ([]*entity.StockMovement, error) {
	query := `
		SELECT ` + movementColumns + `
		FROM stock_movements WHERE source_type = $1 AND source_id = $2
		ORDER BY created_at, id`
	rows, err := r.q.Query(context.Background(), query, sourceType, sourceID)
	if err != nil {
		return nil, fmt.Errorf("list movements by source: %w", err)
	}
	defer rows.Close()
	return scanMovements(rows)
}

// ListByBranch lista movimientos de una sucursal en un rango de fechas.
func (r *StockMovementRepo) ListByBranch(companyID, branchID string, from, to *time.Time, limit, offset int) ([]*entity.StockMovement, error) {
	query := `
		SELECT ` + movementColumns + `
		FROM stock_movements WHERE company_id = $1 AND branch_id = $2`
	args := []any{companyID, branchID}
	query, args = appendDateRange(query, args, from, to)
	query += fmt.Sprintf(" ORDER BY created_at DESC LIMIT $%d OFFSET $%d", len(args)+1, len(args)+2)
	args = append(args, limit, offset)

	rows, err := r.q.Query(context.Background(), query, args...)
	if err != nil {
		return nil, fmt.Errorf("list movements by branch: %w", err)
	}
	defer rows.Close()
	return scanMovements(rows)
}

// ListByProduct lista movimientos de un producto en un rango de fechas.
func (r *StockMovementRepo) ListByProduct(companyID, productID string, from, to *time.Time, limit, offset int) ([]*entity.StockMovement, error) {
	query := `
		SELECT ` + movementColumns + `
		FROM stock_movements WHERE company_id = $1 AND product_id = $2`
	args := []any{companyID, productID}
	query, args = appendDateRange(query, args, from, to)
	query += fmt.Sprintf(" ORDER BY created_at DESC LIMIT $%d OFFSET $%d", len(args)+1, len(args)+2)
	args = append(args, limit, offset)

	rows, err := r.q.Query(context.Background(), query, args...)
	if err != nil {
		return nil, fmt.Errorf("list movements by product: %w", err)
	}
	defer rows.Close()
	return scanMovements(rows)
}

func appendDateRange(query string, args []any, from, to *time.Time) (string, []any) {
	if from != nil {
		query += fmt.Sprintf(" AND created_at >= $%d", len(args)+1)
		args = append(args, *from)
	}
	if to != nil {
		query += fmt.Sprintf(" AND created_at <= $%d", len(args)+1)
		args = append(args, *to)
	}
	return query, args
}

func scanMovements(rows pgx.Rows) ([]*entity.StockMovement, error) {
	var list []*entity.StockMovement
	for rows.Next() {
		var m entity.StockMovement
		var createdBy *string
		if err := rows.Scan(&m.ID, &m.CompanyID, &m.BranchID, &m.ProductID, &m.Type,
			&m.Qty, &m.UnitCost, &m.TotalCost, &m.SourceType, &m.SourceID,
			&m.Note, &m.CreatedAt, &createdBy); err != nil {
			return nil, fmt.Errorf("scan movement: %w", err)
		}
		if createdBy != nil {
			m.CreatedBy = *createdBy
		}
		list = append(list, &m)
	}
	return list, rows.Err()
}
