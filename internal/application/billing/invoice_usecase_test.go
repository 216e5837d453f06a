package billing_test

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jhoicas/facturacion-api/internal/application/billing"
	"github.com/jhoicas/facturacion-api/internal/application/dto"
	appinv "github.com/jhoicas/facturacion-api/internal/application/inventory"
	"github.com/jhoicas/facturacion-api/internal/domain"
	"github.com/jhoicas/facturacion-api/internal/domain/entity"
	"github.com/jhoicas/facturacion-api/internal/domain/repository"
)

// ──────────────────────────────────────────────────────────────────────────────
// Fakes en memoria. El txRunner toma un snapshot antes de ejecutar y lo
// restaura si la función retorna error, emulando el rollback real.
// ──────────────────────────────────────────────────────────────────────────────

const (
	testCompany = "co-1"
	otraEmpresa = "co-2"
	testBranch  = "br-1"
	testUser    = "user-1"
)

func d(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

type fakeStockRepo struct {
	rows map[string]entity.Stock
}

func stockKey(companyID, branchID, productID string) string {
	return companyID + "|" + branchID + "|" + productID
}

func (f *fakeStockRepo) Get(companyID, branchID, productID string) (*entity.Stock, error) {
	if row, ok := f.rows[stockKey(companyID, branchID, productID)]; ok {
		copia := row
		return &copia, nil
	}
	return &entity.Stock{CompanyID: companyID, BranchID: branchID, ProductID: productID}, nil
}

func (f *fakeStockRepo) GetForUpdate(companyID, branchID, productID string) (*entity.Stock, error) {
	return f.Get(companyID, branchID, productID)
}

func (f *fakeStockRepo) Upsert(stock *entity.Stock) error {
	f.rows[stockKey(stock.CompanyID, stock.BranchID, stock.ProductID)] = *stock
	return nil
}

func (f *fakeStockRepo) ListByBranch(companyID, branchID string, limit, offset int) ([]*entity.Stock, error) {
	return nil, nil
}

type fakeMovementRepo struct {
	movements []entity.StockMovement
}

func (f *fakeMovementRepo) CreateBatch(movements []*entity.StockMovement) error {
	for _, m := range movements {
		f.movements = append(f.movements, *m)
	}
	return nil
}

func (f *fakeMovementRepo) DeleteBySource(sourceType, sourceID string) error {
	kept := f.movements[:0]
	for _, m := range f.movements {
		if m.SourceType != sourceType || m.SourceID != sourceID {
			kept = append(kept, m)
		}
	}
	f.movements = kept
	return nil
}

func (f *fakeMovementRepo) ListBySource(sourceType, sourceID string) ([]*entity.StockMovement, error) {
	var out []*entity.StockMovement
	for i := range f.movements {
		if f.movements[i].SourceType == sourceType && f.movements[i].SourceID == sourceID {
			out = append(out, &f.movements[i])
		}
	}
	return out, nil
}

func (f *fakeMovementRepo) ListByBranch(companyID, branchID string, from, to *time.Time, limit, offset int) ([]*entity.StockMovement, error) {
	return nil, nil
}

func (f *fakeMovementRepo) ListByProduct(companyID, productID string, from, to *time.Time, limit, offset int) ([]*entity.StockMovement, error) {
	return nil, nil
}

type fakeInvoiceRepo struct {
	invoices map[string]entity.Invoice
	items    map[string][]entity.InvoiceItem
}

func (f *fakeInvoiceRepo) Create(invoice *entity.Invoice) error {
	inv := *invoice
	inv.Items = nil
	f.invoices[invoice.ID] = inv
	return nil
}

func (f *fakeInvoiceRepo) CreateItem(item *entity.InvoiceItem) error {
	f.items[item.InvoiceID] = append(f.items[item.InvoiceID], *item)
	return nil
}

func (f *fakeInvoiceRepo) Update(invoice *entity.Invoice) error {
	inv := *invoice
	inv.Items = nil
	f.invoices[invoice.ID] = inv
	return nil
}

func (f *fakeInvoiceRepo) DeleteItems(invoiceID string) error {
	delete(f.items, invoiceID)
	return nil
}

func (f *fakeInvoiceRepo) Delete(id string) error {
	delete(f.invoices, id)
	return nil
}

func (f *fakeInvoiceRepo) GetByID(id string) (*entity.Invoice, error) {
	if inv, ok := f.invoices[id]; ok {
		copia := inv
		return &copia, nil
	}
	return nil, nil
}

func (f *fakeInvoiceRepo) GetItemsByInvoiceID(invoiceID string) ([]entity.InvoiceItem, error) {
	return append([]entity.InvoiceItem(nil), f.items[invoiceID]...), nil
}

func (f *fakeInvoiceRepo) ListByCompany(companyID string, limit, offset int) ([]*entity.Invoice, error) {
	var out []*entity.Invoice
	for id := range f.invoices {
		inv := f.invoices[id]
		if inv.CompanyID == companyID {
			copia := inv
			out = append(out, &copia)
		}
	}
	return out, nil
}

type fakeProductRepo struct {
	products map[string]entity.Product
}

func (f *fakeProductRepo) Create(p *entity.Product) error { f.products[p.ID] = *p; return nil }
func (f *fakeProductRepo) Update(p *entity.Product) error { f.products[p.ID] = *p; return nil }
func (f *fakeProductRepo) GetByID(id string) (*entity.Product, error) {
	if p, ok := f.products[id]; ok {
		copia := p
		return &copia, nil
	}
	return nil, nil
}
func (f *fakeProductRepo) ListByCompany(companyID string, limit, offset int) ([]*entity.Product, error) {
	return nil, nil
}

type fakeBranchRepo struct {
	branches map[string]entity.Branch
}

func (f *fakeBranchRepo) Create(b *entity.Branch) error { f.branches[b.ID] = *b; return nil }
func (f *fakeBranchRepo) GetByID(id string) (*entity.Branch, error) {
	if b, ok := f.branches[id]; ok {
		copia := b
		return &copia, nil
	}
	return nil, nil
}
func (f *fakeBranchRepo) ListByCompany(companyID string) ([]*entity.Branch, error) {
	return nil, nil
}

// fakeTxRunner emula la atomicidad: snapshot antes de ejecutar, restauración
// completa si la función falla.
type fakeTxRunner struct {
	stocks   *fakeStockRepo
	movs     *fakeMovementRepo
	invoices *fakeInvoiceRepo
}

func (f *fakeTxRunner) RunBilling(ctx context.Context, fn func(
	movRepo repository.StockMovementRepository,
	stockRepo repository.StockRepository,
	invoiceRepo repository.InvoiceRepository,
) error) error {
	stockSnap := make(map[string]entity.Stock, len(f.stocks.rows))
	for k, v := range f.stocks.rows {
		stockSnap[k] = v
	}
	movSnap := append([]entity.StockMovement(nil), f.movs.movements...)
	invSnap := make(map[string]entity.Invoice, len(f.invoices.invoices))
	for k, v := range f.invoices.invoices {
		invSnap[k] = v
	}
	itemSnap := make(map[string][]entity.InvoiceItem, len(f.invoices.items))
	for k, v := range f.invoices.items {
		itemSnap[k] = append([]entity.InvoiceItem(nil), v...)
	}

	if err := fn(f.movs, f.stocks, f.invoices); err != nil {
		f.stocks.rows = stockSnap
		f.movs.movements = movSnap
		f.invoices.invoices = invSnap
		f.invoices.items = itemSnap
		return err
	}
	return nil
}

type fixture struct {
	uc       *billing.InvoiceUseCase
	stocks   *fakeStockRepo
	movs     *fakeMovementRepo
	invoices *fakeInvoiceRepo
}

// newFixture arma el caso de uso con una sucursal y dos productos listos.
func newFixture() *fixture {
	stocks := &fakeStockRepo{rows: map[string]entity.Stock{}}
	movs := &fakeMovementRepo{}
	invoices := &fakeInvoiceRepo{invoices: map[string]entity.Invoice{}, items: map[string][]entity.InvoiceItem{}}
	products := &fakeProductRepo{products: map[string]entity.Product{
		"p1": {ID: "p1", CompanyID: testCompany, SKU: "SKU-1", Name: "Café molido", TaxRate: d("0.19")},
		"p2": {ID: "p2", CompanyID: testCompany, SKU: "SKU-2", Name: "Filtros", TaxRate: d("0.19")},
	}}
	branches := &fakeBranchRepo{branches: map[string]entity.Branch{
		testBranch: {ID: testBranch, CompanyID: testCompany, Name: "Principal"},
	}}
	runner := &fakeTxRunner{stocks: stocks, movs: movs, invoices: invoices}
	uc := billing.NewInvoiceUseCase(runner, appinv.NewReconciler(), invoices, products, branches)
	return &fixture{uc: uc, stocks: stocks, movs: movs, invoices: invoices}
}

func (fx *fixture) onHand(productID string) decimal.Decimal {
	return fx.stocks.rows[stockKey(testCompany, testBranch, productID)].OnHand
}

func compraDe(productID, qty, price string) dto.CreateInvoiceRequest {
	return dto.CreateInvoiceRequest{
		BranchID: testBranch,
		Type:     entity.InvoiceTypePurchase,
		Items:    []dto.InvoiceItemRequest{{ProductID: productID, Qty: d(qty), UnitPrice: d(price)}},
	}
}

func ventaDe(productID, qty, price string) dto.CreateInvoiceRequest {
	return dto.CreateInvoiceRequest{
		BranchID: testBranch,
		Type:     entity.InvoiceTypeSale,
		Items:    []dto.InvoiceItemRequest{{ProductID: productID, Qty: d(qty), UnitPrice: d(price)}},
	}
}

// ──────────────────────────────────────────────────────────────────────────────
// CreateInvoice
// ──────────────────────────────────────────────────────────────────────────────

func TestCreateInvoice_CompraActualizaStockYMovimientos(t *testing.T) {
	fx := newFixture()

	resp, shortages, err := fx.uc.CreateInvoice(context.Background(), testCompany, testUser, compraDe("p1", "10", "2"))
	require.NoError(t, err)
	require.Empty(t, shortages)
	require.NotNil(t, resp)

	assert.True(t, fx.onHand("p1").Equal(d("10")))
	assert.True(t, resp.NetTotal.Equal(d("20")))
	assert.True(t, resp.TaxTotal.Equal(d("3.8")), "IVA 19% sobre 20")

	movs, _ := fx.movs.ListBySource(entity.SourceTypeInvoice, resp.ID)
	require.Len(t, movs, 1)
	assert.Equal(t, entity.MovementTypePurchase, movs[0].Type)
}

func TestCreateInvoice_VentaSinStockDevuelve_FaltantesYNoPersisteNada(t *testing.T) {
	fx := newFixture()

	resp, shortages, err := fx.uc.CreateInvoice(context.Background(), testCompany, testUser, ventaDe("p1", "5", "10"))
	assert.ErrorIs(t, err, domain.ErrInsufficientStock)
	assert.Nil(t, resp)
	require.Len(t, shortages, 1)
	assert.Equal(t, "p1", shortages[0].ProductID)
	assert.True(t, shortages[0].Requested.Equal(d("5")))

	assert.Empty(t, fx.invoices.invoices, "la factura no debe quedar persistida")
	assert.Empty(t, fx.movs.movements, "no deben quedar movimientos")
	assert.Empty(t, fx.stocks.rows, "el stock no debe mutar")
}

func TestCreateInvoice_LineaDeInventarioSinSucursalEsInvalida(t *testing.T) {
	fx := newFixture()
	req := compraDe("p1", "10", "2")
	req.BranchID = ""

	_, _, err := fx.uc.CreateInvoice(context.Background(), testCompany, testUser, req)
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
}

func TestCreateInvoice_SoloServiciosSinSucursalNoTocaInventario(t *testing.T) {
	fx := newFixture()
	req := dto.CreateInvoiceRequest{
		Type:  entity.InvoiceTypeSale,
		Items: []dto.InvoiceItemRequest{{Description: "Asesoría", Qty: d("1"), UnitPrice: d("100")}},
	}

	resp, shortages, err := fx.uc.CreateInvoice(context.Background(), testCompany, testUser, req)
	require.NoError(t, err)
	assert.Empty(t, shortages)
	assert.True(t, resp.NetTotal.Equal(d("100")))
	assert.Empty(t, fx.stocks.rows)
	assert.Empty(t, fx.movs.movements)
}

func TestCreateInvoice_ProductoDeOtraEmpresaEsForbidden(t *testing.T) {
	fx := newFixture()
	// p3 pertenece a otra empresa
	otro := &fakeProductRepo{products: map[string]entity.Product{
		"p3": {ID: "p3", CompanyID: otraEmpresa, SKU: "SKU-3", Name: "Ajeno"},
	}}
	branches := &fakeBranchRepo{branches: map[string]entity.Branch{
		testBranch: {ID: testBranch, CompanyID: testCompany, Name: "Principal"},
	}}
	runner := &fakeTxRunner{stocks: fx.stocks, movs: fx.movs, invoices: fx.invoices}
	uc := billing.NewInvoiceUseCase(runner, appinv.NewReconciler(), fx.invoices, otro, branches)

	_, _, err := uc.CreateInvoice(context.Background(), testCompany, testUser, compraDe("p3", "1", "10"))
	assert.ErrorIs(t, err, domain.ErrForbidden)
}

// ──────────────────────────────────────────────────────────────────────────────
// UpdateInvoice / DeleteInvoice
// ──────────────────────────────────────────────────────────────────────────────

func TestUpdateInvoice_ReconciliaSoloElDelta(t *testing.T) {
	fx := newFixture()

	created, _, err := fx.uc.CreateInvoice(context.Background(), testCompany, testUser, compraDe("p1", "10", "2"))
	require.NoError(t, err)

	// La edición sube la cantidad de 10 a 15: el stock debe quedar en 15, no 25.
	upd := dto.UpdateInvoiceRequest{
		Items: []dto.InvoiceItemRequest{{ProductID: "p1", Qty: d("15"), UnitPrice: d("2")}},
	}
	resp, shortages, err := fx.uc.UpdateInvoice(context.Background(), testCompany, testUser, created.ID, upd)
	require.NoError(t, err)
	require.Empty(t, shortages)

	assert.True(t, fx.onHand("p1").Equal(d("15")))
	assert.True(t, resp.NetTotal.Equal(d("30")))

	movs, _ := fx.movs.ListBySource(entity.SourceTypeInvoice, created.ID)
	require.Len(t, movs, 1, "los movimientos se reemplazan, no se acumulan")
	assert.True(t, movs[0].Qty.Equal(d("15")))
}

func TestUpdateInvoice_FaltanteRestauraTodo(t *testing.T) {
	fx := newFixture()

	created, _, err := fx.uc.CreateInvoice(context.Background(), testCompany, testUser, compraDe("p1", "10", "2"))
	require.NoError(t, err)
	_, _, err = fx.uc.CreateInvoice(context.Background(), testCompany, testUser, ventaDe("p1", "8", "5"))
	require.NoError(t, err)

	// Bajar la compra de 10 a 1 dejaría las existencias en -7: bloqueado.
	upd := dto.UpdateInvoiceRequest{
		Items: []dto.InvoiceItemRequest{{ProductID: "p1", Qty: d("1"), UnitPrice: d("2")}},
	}
	_, shortages, err := fx.uc.UpdateInvoice(context.Background(), testCompany, testUser, created.ID, upd)
	assert.ErrorIs(t, err, domain.ErrInsufficientStock)
	require.NotEmpty(t, shortages)

	assert.True(t, fx.onHand("p1").Equal(d("2")), "el stock queda como antes de la edición fallida")
	items, _ := fx.invoices.GetItemsByInvoiceID(created.ID)
	require.Len(t, items, 1)
	assert.True(t, items[0].Qty.Equal(d("10")), "las líneas originales se conservan")
}

func TestDeleteInvoice_RevierteYLimpia(t *testing.T) {
	fx := newFixture()

	created, _, err := fx.uc.CreateInvoice(context.Background(), testCompany, testUser, compraDe("p1", "10", "2"))
	require.NoError(t, err)

	shortages, err := fx.uc.DeleteInvoice(context.Background(), testCompany, created.ID)
	require.NoError(t, err)
	require.Empty(t, shortages)

	assert.True(t, fx.onHand("p1").IsZero())
	assert.Empty(t, fx.invoices.invoices)
	assert.Empty(t, fx.movs.movements)
}

// Borrar una compra cuyo stock ya se vendió dejaría existencias negativas:
// se bloquea con faltantes y la factura sobrevive.
func TestDeleteInvoice_BloqueadoPorStockComprometido(t *testing.T) {
	fx := newFixture()

	created, _, err := fx.uc.CreateInvoice(context.Background(), testCompany, testUser, compraDe("p1", "10", "2"))
	require.NoError(t, err)
	_, _, err = fx.uc.CreateInvoice(context.Background(), testCompany, testUser, ventaDe("p1", "6", "5"))
	require.NoError(t, err)

	shortages, err := fx.uc.DeleteInvoice(context.Background(), testCompany, created.ID)
	assert.ErrorIs(t, err, domain.ErrInsufficientStock)
	require.NotEmpty(t, shortages)

	assert.True(t, fx.onHand("p1").Equal(d("4")))
	_, ok := fx.invoices.invoices[created.ID]
	assert.True(t, ok, "la factura no debe borrarse si la reversión falla")
}

func TestGetInvoice_DeOtraEmpresaEsForbidden(t *testing.T) {
	fx := newFixture()

	created, _, err := fx.uc.CreateInvoice(context.Background(), testCompany, testUser, compraDe("p1", "10", "2"))
	require.NoError(t, err)

	_, err = fx.uc.GetInvoice(context.Background(), otraEmpresa, created.ID)
	assert.ErrorIs(t, err, domain.ErrForbidden)
}
