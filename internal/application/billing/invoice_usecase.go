package billing

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/jhoicas/facturacion-api/internal/application/dto"
	"github.com/jhoicas/facturacion-api/internal/domain"
	"github.com/jhoicas/facturacion-api/internal/domain/entity"
	"github.com/jhoicas/facturacion-api/internal/domain/inventory"
	"github.com/jhoicas/facturacion-api/internal/domain/repository"
)

// InvoiceUseCase coordina el ciclo de vida de las facturas: cada creación,
// edición o borrado resume el estado anterior y el nuevo, reconcilia el
// inventario, persiste la factura y reemplaza sus movimientos, todo dentro de
// una transacción. Un faltante de stock no es una excepción: es data
// estructurada que se devuelve al handler para responder 409, abortando la
// transacción sin efectos visibles.
type InvoiceUseCase struct {
	txRunner    BillingTxRunner
	engine      InventoryEngine
	invoiceRepo repository.InvoiceRepository
	productRepo repository.ProductRepository
	branchRepo  repository.BranchRepository
}

// NewInvoiceUseCase construye el caso de uso.
func NewInvoiceUseCase(
	txRunner BillingTxRunner,
	engine InventoryEngine,
	invoiceRepo repository.InvoiceRepository,
	productRepo repository.ProductRepository,
	branchRepo  repository.BranchRepository,
) *InvoiceUseCase {
	return &InvoiceUseCase{
		txRunner:    txRunner,
		engine:      engine,
		invoiceRepo: invoiceRepo,
		productRepo: productRepo,
		branchRepo:  branchRepo,
	}
}

// CreateInvoice crea una factura y aplica su efecto en inventario en una sola
// transacción. Si hay faltantes devuelve la lista junto con
// domain.ErrInsufficientStock y no persiste nada.
func (uc *InvoiceUseCase) CreateInvoice(ctx context.Context, companyID, userID string, in dto.CreateInvoiceRequest) (*dto.InvoiceResponse, []inventory.Shortage, error) {
	if !entity.ValidInvoiceType(in.Type) || len(in.Items) == 0 {
		return nil, nil, domain.ErrInvalidInput
	}
	products, err := uc.validateLines(companyID, in.BranchID, in.Items)
	if err != nil {
		return nil, nil, err
	}

	now := time.Now()
	inv := &entity.Invoice{
		ID:        uuid.New().String(),
		CompanyID: companyID,
		BranchID:  in.BranchID,
		Type:      in.Type,
		InvoiceNo: in.InvoiceNo,
		Status:    entity.InvoiceStatusFinal,
		Date:      now,
		Note:      in.Note,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if inv.InvoiceNo == "" {
		inv.InvoiceNo = fmt.Sprintf("%s-%d", invoicePrefix(in.Type), now.Unix())
	}
	inv.Items = buildItems(inv.ID, in.Items, products)
	totalize(inv)

	var shortages []inventory.Shortage
	err = uc.txRunner.RunBilling(ctx, func(
		movRepo repository.StockMovementRepository,
		stockRepo repository.StockRepository,
		invoiceRepo repository.InvoiceRepository,
	) error {
		short, err := uc.engine.ApplyInvoiceInventory(stockRepo, companyID, inv, nil)
		if err != nil {
			return err
		}
		if len(short) > 0 {
			shortages = short
			return domain.ErrInsufficientStock // fuerza el rollback
		}
		if err := invoiceRepo.Create(inv); err != nil {
			return err
		}
		for i := range inv.Items {
			if err := invoiceRepo.CreateItem(&inv.Items[i]); err != nil {
				return err
			}
		}
		return uc.engine.ReplaceInvoiceMovements(movRepo, stockRepo, companyID, userID, inv)
	})
	if err != nil {
		return nil, shortages, err
	}
	return toInvoiceResponse(inv), nil, nil
}

// UpdateInvoice edita una factura existente: toma un snapshot del estado
// anterior, aplica los cambios y reconcilia viejo-vs-nuevo. Un cambio de
// sucursal revierte todo en la anterior y aplica todo en la nueva dentro de la
// misma transacción.
func (uc *InvoiceUseCase) UpdateInvoice(ctx context.Context, companyID, userID, id string, in dto.UpdateInvoiceRequest) (*dto.InvoiceResponse, []inventory.Shortage, error) {
	previous, err := uc.loadInvoice(companyID, id)
	if err != nil {
		return nil, nil, err
	}
	if len(in.Items) == 0 {
		return nil, nil, domain.ErrInvalidInput
	}
	branchID := previous.BranchID
	if in.BranchID != nil {
		branchID = *in.BranchID
	}
	products, err := uc.validateLines(companyID, branchID, in.Items)
	if err != nil {
		return nil, nil, err
	}

	updated := *previous
	updated.BranchID = branchID
	if in.InvoiceNo != "" {
		updated.InvoiceNo = in.InvoiceNo
	}
	if in.Note != nil {
		updated.Note = *in.Note
	}
	updated.Items = buildItems(updated.ID, in.Items, products)
	updated.UpdatedAt = time.Now()
	totalize(&updated)

	var shortages []inventory.Shortage
	err = uc.txRunner.RunBilling(ctx, func(
		movRepo repository.StockMovementRepository,
		stockRepo repository.StockRepository,
		invoiceRepo repository.InvoiceRepository,
	) error {
		short, err := uc.engine.ApplyInvoiceInventory(stockRepo, companyID, &updated, previous)
		if err != nil {
			return err
		}
		if len(short) > 0 {
			shortages = short
			return domain.ErrInsufficientStock
		}
		if err := invoiceRepo.Update(&updated); err != nil {
			return err
		}
		if err := invoiceRepo.DeleteItems(updated.ID); err != nil {
			return err
		}
		for i := range updated.Items {
			if err := invoiceRepo.CreateItem(&updated.Items[i]); err != nil {
				return err
			}
		}
		return uc.engine.ReplaceInvoiceMovements(movRepo, stockRepo, companyID, userID, &updated)
	})
	if err != nil {
		return nil, shortages, err
	}
	return toInvoiceResponse(&updated), nil, nil
}

// DeleteInvoice revierte exactamente el efecto en inventario que la factura
// aplicó, limpia sus movimientos y la borra, todo en una transacción.
func (uc *InvoiceUseCase) DeleteInvoice(ctx context.Context, companyID, id string) ([]inventory.Shortage, error) {
	previous, err := uc.loadInvoice(companyID, id)
	if err != nil {
		return nil, err
	}

	var shortages []inventory.Shortage
	err = uc.txRunner.RunBilling(ctx, func(
		movRepo repository.StockMovementRepository,
		stockRepo repository.StockRepository,
		invoiceRepo repository.InvoiceRepository,
	) error {
		// Reversión total: el resumen nuevo es vacío. Revertir una compra ya
		// vendida puede dejar faltante y bloquea el borrado.
		short, err := uc.engine.ApplyInvoiceInventory(stockRepo, companyID, nil, previous)
		if err != nil {
			return err
		}
		if len(short) > 0 {
			shortages = short
			return domain.ErrInsufficientStock
		}
		if err := movRepo.DeleteBySource(entity.SourceTypeInvoice, previous.ID); err != nil {
			return err
		}
		if err := invoiceRepo.DeleteItems(previous.ID); err != nil {
			return err
		}
		return invoiceRepo.Delete(previous.ID)
	})
	if err != nil {
		return shortages, err
	}
	return nil, nil
}

// GetInvoice obtiene una factura con sus líneas.
func (uc *InvoiceUseCase) GetInvoice(ctx context.Context, companyID, id string) (*dto.InvoiceResponse, error) {
	inv, err := uc.loadInvoice(companyID, id)
	if err != nil {
		return nil, err
	}
	return toInvoiceResponse(inv), nil
}

// ListInvoices lista las facturas de la empresa (sin líneas).
func (uc *InvoiceUseCase) ListInvoices(ctx context.Context, companyID string, limit, offset int) ([]*dto.InvoiceResponse, error) {
	invoices, err := uc.invoiceRepo.ListByCompany(companyID, limit, offset)
	if err != nil {
		return nil, err
	}
	out := make([]*dto.InvoiceResponse, 0, len(invoices))
	for _, inv := range invoices {
		out = append(out, toInvoiceResponse(inv))
	}
	return out, nil
}

// loadInvoice carga cabecera + líneas validando pertenencia a la empresa.
func (uc *InvoiceUseCase) loadInvoice(companyID, id string) (*entity.Invoice, error) {
	inv, err := uc.invoiceRepo.GetByID(id)
	if err != nil {
		return nil, err
	}
	if inv == nil {
		return nil, domain.ErrNotFound
	}
	if inv.CompanyID != companyID {
		return nil, domain.ErrForbidden
	}
	items, err := uc.invoiceRepo.GetItemsByInvoiceID(id)
	if err != nil {
		return nil, err
	}
	inv.Items = items
	return inv, nil
}

// validateLines valida sucursal y productos de las líneas (fuera de la tx,
// solo lectura). Las líneas de servicio (sin producto) requieren descripción.
// Una factura con líneas de inventario exige sucursal; eso se valida aquí, en
// el caller: para el reconciliador una sucursal vacía es un no-op intencional.
func (uc *InvoiceUseCase) validateLines(companyID, branchID string, items []dto.InvoiceItemRequest) (map[string]*entity.Product, error) {
	if branchID != "" {
		branch, _ := uc.branchRepo.GetByID(branchID)
		if branch == nil || branch.CompanyID != companyID {
			return nil, domain.ErrNotFound
		}
	}
	products := make(map[string]*entity.Product)
	hasInventory := false
	for _, item := range items {
		if !item.Qty.GreaterThan(decimal.Zero) || item.UnitPrice.IsNegative() {
			return nil, domain.ErrInvalidInput
		}
		if item.ProductID == "" {
			if item.Description == "" {
				return nil, domain.ErrInvalidInput
			}
			continue
		}
		hasInventory = true
		if _, ok := products[item.ProductID]; ok {
			continue
		}
		product, err := uc.productRepo.GetByID(item.ProductID)
		if err != nil || product == nil {
			return nil, domain.ErrNotFound
		}
		if product.CompanyID != companyID {
			return nil, domain.ErrForbidden
		}
		products[item.ProductID] = product
	}
	if hasInventory && branchID == "" {
		return nil, domain.ErrInvalidInput
	}
	return products, nil
}

// buildItems materializa las líneas de la factura con IDs nuevos y subtotales.
func buildItems(invoiceID string, in []dto.InvoiceItemRequest, products map[string]*entity.Product) []entity.InvoiceItem {
	items := make([]entity.InvoiceItem, 0, len(in))
	for _, req := range in {
		item := entity.InvoiceItem{
			ID:          uuid.New().String(),
			InvoiceID:   invoiceID,
			ProductID:   req.ProductID,
			Description: req.Description,
			Qty:         req.Qty,
			UnitPrice:   req.UnitPrice,
		}
		if p, ok := products[req.ProductID]; ok {
			if item.Description == "" {
				item.Description = p.Name
			}
			item.TaxRate = normalizeTaxRate(p.TaxRate)
		}
		item.Subtotal = item.Qty.Mul(item.UnitPrice)
		items = append(items, item)
	}
	return items
}

// normalizeTaxRate acepta tarifas como fracción (0.16) o porcentaje (16).
func normalizeTaxRate(rate decimal.Decimal) decimal.Decimal {
	if rate.GreaterThan(decimal.NewFromInt(1)) {
		return rate.Div(decimal.NewFromInt(100))
	}
	return rate
}

// totalize recalcula los totales de la cabecera desde las líneas.
func totalize(inv *entity.Invoice) {
	var net, tax decimal.Decimal
	for _, item := range inv.Items {
		net = net.Add(item.Subtotal)
		tax = tax.Add(item.Subtotal.Mul(item.TaxRate))
	}
	inv.NetTotal = net
	inv.TaxTotal = tax
	inv.GrandTotal = net.Add(tax)
}

func invoicePrefix(invoiceType string) string {
	if invoiceType == entity.InvoiceTypePurchase {
		return "PUR"
	}
	return "INV"
}

func toInvoiceResponse(inv *entity.Invoice) *dto.InvoiceResponse {
	resp := &dto.InvoiceResponse{
		ID:         inv.ID,
		CompanyID:  inv.CompanyID,
		BranchID:   inv.BranchID,
		Type:       inv.Type,
		InvoiceNo:  inv.InvoiceNo,
		Status:     inv.Status,
		Date:       inv.Date.Format("2006-01-02"),
		Note:       inv.Note,
		NetTotal:   inv.NetTotal,
		TaxTotal:   inv.TaxTotal,
		GrandTotal: inv.GrandTotal,
		Items:      make([]dto.InvoiceItemResponse, 0, len(inv.Items)),
	}
	for _, item := range inv.Items {
		resp.Items = append(resp.Items, dto.InvoiceItemResponse{
			ID:          item.ID,
			ProductID:   item.ProductID,
			Description: item.Description,
			Qty:         item.Qty,
			UnitPrice:   item.UnitPrice,
			TaxRate:     item.TaxRate,
			Subtotal:    item.Subtotal,
		})
	}
	return resp
}
