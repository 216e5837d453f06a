package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/jhoicas/facturacion-api/internal/domain"
	"github.com/jhoicas/facturacion-api/internal/domain/entity"
	"github.com/jhoicas/facturacion-api/internal/domain/repository"
)

var _ repository.InvoiceRepository = (*InvoiceRepo)(nil)

// InvoiceRepo implementación sobre PostgreSQL (usable con pool o tx).
type InvoiceRepo struct {
	q Querier
}

// NewInvoiceRepository construye el adaptador. Pasar pool o tx (Querier).
func NewInvoiceRepository(q Querier) *InvoiceRepo {
	return &InvoiceRepo{q: q}
}

// branchID se guarda NULL cuando la factura no tiene sucursal.
func nullableString(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

// Create persiste la cabecera de una factura.
func (r *InvoiceRepo) Create(invoice *entity.Invoice) error {
	query := `
		INSERT INTO invoices (id, company_id, branch_id, type, invoice_no, status, date, note, net_total, tax_total, grand_total, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)`
	_, err := r.q.Exec(context.Background(), query,
		invoice.ID, invoice.CompanyID, nullableString(invoice.BranchID), invoice.Type,
		invoice.InvoiceNo, invoice.Status, invoice.Date, invoice.Note,
		invoice.NetTotal, invoice.TaxTotal, invoice.GrandTotal,
		invoice.CreatedAt, invoice.UpdatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return domain.ErrDuplicate
		}
		return fmt.Errorf("create invoice: %w", err)
	}
	return nil
}

// CreateItem persiste una línea de factura.
func (r *InvoiceRepo) CreateItem(item *entity.InvoiceItem) error {
	query := `
		INSERT INTO invoice_items (id, invoice_id, product_id, description, qty, unit_price, tax_rate, subtotal)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`
	_, err := r.q.Exec(context.Background(), query,
		item.ID, item.InvoiceID, nullableString(item.ProductID), item.Description,
		item.Qty, item.UnitPrice, item.TaxRate, item.Subtotal,
	)
	if err != nil {
		return fmt.Errorf("create invoice item: %w", err)
	}
	return nil
}

// Update actualiza la cabecera de una factura.
func (r *InvoiceRepo) Update(invoice *entity.Invoice) error {
	query := `
		UPDATE invoices
		SET branch_id = $2, invoice_no = $3, status = $4, date = $5, note = $6,
		    net_total = $7, tax_total = $8, grand_total = $9, updated_at = $10
		WHERE id = $1`
	_, err := r.q.Exec(context.Background(), query,
		invoice.ID, nullableString(invoice.BranchID), invoice.InvoiceNo, invoice.Status,
		invoice.Date, invoice.Note, invoice.NetTotal, invoice.TaxTotal, invoice.GrandTotal,
		invoice.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("update invoice: %w", err)
	}
	return nil
}

// DeleteItems borra todas las líneas de una factura.
func (r *InvoiceRepo) DeleteItems(invoiceID string) error {
	if _, err := r.q.Exec(context.Background(), `DELETE FROM invoice_items WHERE invoice_id = $1`, invoiceID); err != nil {
		return fmt.Errorf("delete invoice items: %w", err)
	}
	return nil
}

// Delete borra la cabecera de una factura (las líneas se borran antes).
func (r *InvoiceRepo) Delete(id string) error {
	if _, err := r.q.Exec(context.Background(), `DELETE FROM invoices WHERE id = $1`, id); err != nil {
		return fmt.Errorf("delete invoice: %w", err)
	}
	return nil
}

// GetByID obtiene la cabecera de una factura (sin líneas).
func (r *InvoiceRepo) GetByID(id string) (*entity.Invoice, error) {
	query := `
		SELECT id, company_id, branch_id, type, invoice_no, status, date, note, net_total, tax_total, grand_total, created_at, updated_at
		FROM invoices WHERE id = $1`
	inv, err := r.scanInvoice(r.q.QueryRow(context.Background(), query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get invoice: %w", err)
	}
	return inv, nil
}

// GetItemsByInvoiceID obtiene las líneas de una factura.
func (r *InvoiceRepo) GetItemsByInvoiceID(invoiceID string) ([]entity.InvoiceItem, error) {
	query := `
		SELECT id, invoice_id, product_id, description, qty, unit_price, tax_rate, subtotal
		FROM invoice_items WHERE invoice_id = $1 ORDER BY id`
	rows, err := r.q.Query(context.Background(), query, invoiceID)
	if err != nil {
		return nil, fmt.Errorf("get invoice items: %w", err)
	}
	defer rows.Close()
	var items []entity.InvoiceItem
	for rows.Next() {
		var item entity.InvoiceItem
		var productID *string
		if err := rows.Scan(&item.ID, &item.InvoiceID, &productID, &item.Description,
			&item.Qty, &item.UnitPrice, &item.TaxRate, &item.Subtotal); err != nil {
			return nil, fmt.Errorf("scan invoice item: %w", err)
		}
		if productID != nil {
			item.ProductID = *productID
		}
		items = append(items, item)
	}
	return items, rows.Err()
}

// ListByCompany lista las facturas de una empresa, más reciente primero.
func (r *InvoiceRepo) ListByCompany(companyID string, limit, offset int) ([]*entity.Invoice, error) {
	query := `
		SELECT id, company_id, branch_id, type, invoice_no, status, date, note, net_total, tax_total, grand_total, created_at, updated_at
		FROM invoices WHERE company_id = $1
		ORDER BY date DESC, created_at DESC LIMIT $2 OFFSET $3`
	rows, err := r.q.Query(context.Background(), query, companyID, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("list invoices: %w", err)
	}
	defer rows.Close()
	var list []*entity.Invoice
	for rows.Next() {
		inv, err := r.scanInvoice(rows)
		if err != nil {
			return nil, fmt.Errorf("scan invoice: %w", err)
		}
		list = append(list, inv)
	}
	return list, rows.Err()
}

func (r *InvoiceRepo) scanInvoice(row pgx.Row) (*entity.Invoice, error) {
	var inv entity.Invoice
	var branchID *string
	err := row.Scan(&inv.ID, &inv.CompanyID, &branchID, &inv.Type, &inv.InvoiceNo,
		&inv.Status, &inv.Date, &inv.Note, &inv.NetTotal, &inv.TaxTotal, &inv.GrandTotal,
		&inv.CreatedAt, &inv.UpdatedAt)
	if err != nil {
		return nil, err
	}
	if branchID != nil {
		inv.BranchID = *branchID
	}
	return &inv, nil
}
