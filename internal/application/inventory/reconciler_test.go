package inventory_test

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	appinv "github.com/jhoicas/facturacion-api/internal/application/inventory"
	"github.com/jhoicas/facturacion-api/internal/domain/entity"
)

// ──────────────────────────────────────────────────────────────────────────────
// Fakes en memoria de los puertos de persistencia
// ──────────────────────────────────────────────────────────────────────────────

const (
	testCompany = "co-1"
	branchA     = "br-a"
	branchB     = "br-b"
	testUser    = "user-1"
)

func d(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

type fakeStockRepo struct {
	rows map[string]entity.Stock
}

func newFakeStockRepo() *fakeStockRepo {
	return &fakeStockRepo{rows: map[string]entity.Stock{}}
}

func stockKey(companyID, branchID, productID string) string {
	return companyID + "|" + branchID + "|" + productID
}

// seed deja una fila de stock preexistente.
func (f *fakeStockRepo) seed(branchID, productID string, onHand, avgCost decimal.Decimal) {
	f.rows[stockKey(testCompany, branchID, productID)] = entity.Stock{
		CompanyID: testCompany,
		BranchID:  branchID,
		ProductID: productID,
		OnHand:    onHand,
		AvgCost:   avgCost,
	}
}

func (f *fakeStockRepo) Get(companyID, branchID, productID string) (*entity.Stock, error) {
	if row, ok := f.rows[stockKey(companyID, branchID, productID)]; ok {
		copia := row
		return &copia, nil
	}
	// Igual que el repo real: fila inexistente llega en cero, sin crearse.
	return &entity.Stock{
		CompanyID: companyID,
		BranchID:  branchID,
		ProductID: productID,
		OnHand:    decimal.Zero,
		AvgCost:   decimal.Zero,
	}, nil
}

func (f *fakeStockRepo) GetForUpdate(companyID, branchID, productID string) (*entity.Stock, error) {
	return f.Get(companyID, branchID, productID)
}

func (f *fakeStockRepo) Upsert(stock *entity.Stock) error {
	f.rows[stockKey(stock.CompanyID, stock.BranchID, stock.ProductID)] = *stock
	return nil
}

func (f *fakeStockRepo) ListByBranch(companyID, branchID string, limit, offset int) ([]*entity.Stock, error) {
	var out []*entity.Stock
	for _, row := range f.rows {
		if row.CompanyID == companyID && row.BranchID == branchID {
			copia := row
			out = append(out, &copia)
		}
	}
	return out, nil
}

// onHand devuelve las existencias actuales de la fila (cero si no existe).
func (f *fakeStockRepo) onHand(branchID, productID string) decimal.Decimal {
	return f.rows[stockKey(testCompany, branchID, productID)].OnHand
}

func (f *fakeStockRepo) avgCost(branchID, productID string) decimal.Decimal {
	return f.rows[stockKey(testCompany, branchID, productID)].AvgCost
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

// compra construye una factura de compra con una línea por producto.
func compra(id, branchID string, lineas ...entity.InvoiceItem) *entity.Invoice {
	return &entity.Invoice{
		ID:        id,
		CompanyID: testCompany,
		BranchID:  branchID,
		Type:      entity.InvoiceTypePurchase,
		InvoiceNo: "PUR-" + id,
		Items:     lineas,
	}
}

func venta(id, branchID string, lineas ...entity.InvoiceItem) *entity.Invoice {
	return &entity.Invoice{
		ID:        id,
		CompanyID: testCompany,
		BranchID:  branchID,
		Type:      entity.InvoiceTypeSale,
		InvoiceNo: "INV-" + id,
		Items:     lineas,
	}
}

func linea(productID, qty, unitPrice string) entity.InvoiceItem {
	return entity.InvoiceItem{ProductID: productID, Qty: d(qty), UnitPrice: d(unitPrice)}
}

// ──────────────────────────────────────────────────────────────────────────────
// ApplyInvoiceInventory
// ──────────────────────────────────────────────────────────────────────────────

// Dos compras sucesivas del mismo producto: 10 a $2 y 10 a $4 dejan 20
// unidades a costo promedio $3.
func TestReconciler_ComprasRecalculanPromedioPonderado(t *testing.T) {
	stocks := newFakeStockRepo()
	r := appinv.NewReconciler()

	shortages, err := r.ApplyInvoiceInventory(stocks, testCompany, compra("f1", branchA, linea("p1", "10", "2")), nil)
	require.NoError(t, err)
	require.Empty(t, shortages)

	shortages, err = r.ApplyInvoiceInventory(stocks, testCompany, compra("f2", branchA, linea("p1", "10", "4")), nil)
	require.NoError(t, err)
	require.Empty(t, shortages)

	assert.True(t, stocks.onHand(branchA, "p1").Equal(d("20")))
	assert.True(t, stocks.avgCost(branchA, "p1").Equal(d("3")), "promedio esperado 3, obtenido %s", stocks.avgCost(branchA, "p1"))
}

func TestReconciler_VentaDescuentaSinTocarPromedio(t *testing.T) {
	stocks := newFakeStockRepo()
	stocks.seed(branchA, "p1", d("20"), d("3"))
	r := appinv.NewReconciler()

	shortages, err := r.ApplyInvoiceInventory(stocks, testCompany, venta("f1", branchA, linea("p1", "5", "10")), nil)
	require.NoError(t, err)
	require.Empty(t, shortages)

	assert.True(t, stocks.onHand(branchA, "p1").Equal(d("15")))
	assert.True(t, stocks.avgCost(branchA, "p1").Equal(d("3")))
}

// Vender exactamente lo disponible deja las existencias en cero sin faltante.
func TestReconciler_VentaExactaDejaCero(t *testing.T) {
	stocks := newFakeStockRepo()
	stocks.seed(branchA, "p1", d("5"), d("2"))
	r := appinv.NewReconciler()

	shortages, err := r.ApplyInvoiceInventory(stocks, testCompany, venta("f1", branchA, linea("p1", "5", "10")), nil)
	require.NoError(t, err)
	assert.Empty(t, shortages)
	assert.True(t, stocks.onHand(branchA, "p1").IsZero())
}

// Un faltante bloquea la factura completa: ningún producto se aplica, ni
// siquiera los que sí tenían stock (todo o nada).
func TestReconciler_FaltanteNoAplicaNada(t *testing.T) {
	stocks := newFakeStockRepo()
	stocks.seed(branchA, "p1", d("5"), d("2"))
	stocks.seed(branchA, "p2", d("100"), d("1"))
	r := appinv.NewReconciler()

	inv := venta("f1", branchA, linea("p1", "8", "10"), linea("p2", "1", "10"))
	shortages, err := r.ApplyInvoiceInventory(stocks, testCompany, inv, nil)
	require.NoError(t, err)
	require.Len(t, shortages, 1)

	assert.Equal(t, "p1", shortages[0].ProductID)
	assert.True(t, shortages[0].Available.Equal(d("5")))
	assert.True(t, shortages[0].Requested.Equal(d("8")))

	assert.True(t, stocks.onHand(branchA, "p1").Equal(d("5")), "el stock no debe mutar ante un faltante")
	assert.True(t, stocks.onHand(branchA, "p2").Equal(d("100")), "tampoco los productos sin faltante")
}

// Editar una factura reconcilia solo la diferencia entre ambos estados.
func TestReconciler_EdicionAplicaSoloElDelta(t *testing.T) {
	stocks := newFakeStockRepo()
	stocks.seed(branchA, "p1", d("10"), d("2"))
	r := appinv.NewReconciler()

	previa := venta("f1", branchA, linea("p1", "2", "10"))
	editada := venta("f1", branchA, linea("p1", "6", "10"))
	shortages, err := r.ApplyInvoiceInventory(stocks, testCompany, editada, previa)
	require.NoError(t, err)
	require.Empty(t, shortages)

	// Solo salen 4 unidades más, no las 6 completas.
	assert.True(t, stocks.onHand(branchA, "p1").Equal(d("6")))
}

// Borrar una factura (invoice nil) revierte su efecto completo.
func TestReconciler_BorradoRevierteElEfecto(t *testing.T) {
	stocks := newFakeStockRepo()
	r := appinv.NewReconciler()

	inv := compra("f1", branchA, linea("p1", "10", "2"))
	_, err := r.ApplyInvoiceInventory(stocks, testCompany, inv, nil)
	require.NoError(t, err)
	require.True(t, stocks.onHand(branchA, "p1").Equal(d("10")))

	shortages, err := r.ApplyInvoiceInventory(stocks, testCompany, nil, inv)
	require.NoError(t, err)
	require.Empty(t, shortages)
	assert.True(t, stocks.onHand(branchA, "p1").IsZero())
}

// Cambiar la sucursal de una factura revierte en la anterior y aplica en la
// nueva dentro de la misma llamada: el total de la empresa no cambia.
func TestReconciler_CambioDeSucursalTraslada(t *testing.T) {
	stocks := newFakeStockRepo()
	r := appinv.NewReconciler()

	previa := compra("f1", branchA, linea("p1", "10", "2"))
	_, err := r.ApplyInvoiceInventory(stocks, testCompany, previa, nil)
	require.NoError(t, err)

	movida := compra("f1", branchB, linea("p1", "10", "2"))
	shortages, err := r.ApplyInvoiceInventory(stocks, testCompany, movida, previa)
	require.NoError(t, err)
	require.Empty(t, shortages)

	assert.True(t, stocks.onHand(branchA, "p1").IsZero(), "la sucursal anterior queda revertida")
	assert.True(t, stocks.onHand(branchB, "p1").Equal(d("10")), "la nueva sucursal recibe el efecto completo")
}

// Si revertir en la sucursal anterior dejaría stock negativo (ya se vendió lo
// que entró por esa compra), el traslado reporta faltante y no toca nada.
func TestReconciler_TrasladoBloqueadoPorStockComprometido(t *testing.T) {
	stocks := newFakeStockRepo()
	stocks.seed(branchA, "p1", d("4"), d("2")) // de las 10 compradas ya salieron 6
	r := appinv.NewReconciler()

	previa := compra("f1", branchA, linea("p1", "10", "2"))
	movida := compra("f1", branchB, linea("p1", "10", "2"))
	shortages, err := r.ApplyInvoiceInventory(stocks, testCompany, movida, previa)
	require.NoError(t, err)
	require.Len(t, shortages, 1)

	assert.True(t, stocks.onHand(branchA, "p1").Equal(d("4")), "nada debe mutar si el traslado falla")
	assert.True(t, stocks.onHand(branchB, "p1").IsZero())
}

// Una factura sin sucursal (solo servicios) no toca inventario.
func TestReconciler_FacturaSinSucursalEsNoOp(t *testing.T) {
	stocks := newFakeStockRepo()
	r := appinv.NewReconciler()

	inv := venta("f1", "", entity.InvoiceItem{Description: "Asesoría", Qty: d("1"), UnitPrice: d("100")})
	shortages, err := r.ApplyInvoiceInventory(stocks, testCompany, inv, nil)
	require.NoError(t, err)
	assert.Empty(t, shortages)
	assert.Empty(t, stocks.rows)
}

// ──────────────────────────────────────────────────────────────────────────────
// ReplaceInvoiceMovements
// ──────────────────────────────────────────────────────────────────────────────

func TestReplaceInvoiceMovements_CompraGeneraEntradas(t *testing.T) {
	stocks := newFakeStockRepo()
	movs := &fakeMovementRepo{}
	r := appinv.NewReconciler()

	inv := compra("f1", branchA, linea("p1", "10", "2"))
	require.NoError(t, r.ReplaceInvoiceMovements(movs, stocks, testCompany, testUser, inv))

	got, err := movs.ListBySource(entity.SourceTypeInvoice, "f1")
	require.NoError(t, err)
	require.Len(t, got, 1)

	m := got[0]
	assert.Equal(t, entity.MovementTypePurchase, m.Type)
	assert.True(t, m.Qty.Equal(d("10")), "las entradas llevan cantidad positiva")
	assert.True(t, m.UnitCost.Equal(d("2")), "la entrada se registra al precio de la línea")
	assert.True(t, m.TotalCost.Equal(d("20")))
	assert.Equal(t, testUser, m.CreatedBy)
}

// Las salidas de venta se registran al costo promedio vigente, no al precio de
// venta de la línea.
func TestReplaceInvoiceMovements_VentaSaleAlCostoPromedio(t *testing.T) {
	stocks := newFakeStockRepo()
	stocks.seed(branchA, "p1", d("15"), d("3"))
	movs := &fakeMovementRepo{}
	r := appinv.NewReconciler()

	inv := venta("f1", branchA, linea("p1", "5", "10"))
	require.NoError(t, r.ReplaceInvoiceMovements(movs, stocks, testCompany, testUser, inv))

	got, _ := movs.ListBySource(entity.SourceTypeInvoice, "f1")
	require.Len(t, got, 1)

	m := got[0]
	assert.Equal(t, entity.MovementTypeSale, m.Type)
	assert.True(t, m.Qty.Equal(d("-5")), "las salidas llevan cantidad negativa")
	assert.True(t, m.UnitCost.Equal(d("3")), "la salida se valora al costo promedio, no al precio de venta")
	assert.True(t, m.TotalCost.Equal(d("-15")))
}

// Reemplazar dos veces sin cambios produce el mismo juego de movimientos, no
// duplicados.
func TestReplaceInvoiceMovements_EsIdempotente(t *testing.T) {
	stocks := newFakeStockRepo()
	movs := &fakeMovementRepo{}
	r := appinv.NewReconciler()

	inv := compra("f1", branchA, linea("p1", "10", "2"), linea("p2", "3", "5"))
	require.NoError(t, r.ReplaceInvoiceMovements(movs, stocks, testCompany, testUser, inv))
	require.NoError(t, r.ReplaceInvoiceMovements(movs, stocks, testCompany, testUser, inv))

	got, _ := movs.ListBySource(entity.SourceTypeInvoice, "f1")
	assert.Len(t, got, 2, "un reemplazo repetido no debe duplicar movimientos")
}

// Quitar la sucursal de una factura limpia sus movimientos anteriores.
func TestReplaceInvoiceMovements_SinSucursalLimpiaMovimientos(t *testing.T) {
	stocks := newFakeStockRepo()
	movs := &fakeMovementRepo{}
	r := appinv.NewReconciler()

	require.NoError(t, r.ReplaceInvoiceMovements(movs, stocks, testCompany, testUser, compra("f1", branchA, linea("p1", "10", "2"))))

	sinSucursal := compra("f1", "", linea("p1", "10", "2"))
	require.NoError(t, r.ReplaceInvoiceMovements(movs, stocks, testCompany, testUser, sinSucursal))

	got, _ := movs.ListBySource(entity.SourceTypeInvoice, "f1")
	assert.Empty(t, got)
}

// Las líneas de servicio y las de cantidad no positiva no generan movimiento.
func TestReplaceInvoiceMovements_IgnoraLineasSinInventario(t *testing.T) {
	stocks := newFakeStockRepo()
	movs := &fakeMovementRepo{}
	r := appinv.NewReconciler()

	inv := compra("f1", branchA,
		linea("p1", "10", "2"),
		entity.InvoiceItem{Description: "Flete", Qty: d("1"), UnitPrice: d("30")},
		linea("p2", "0", "5"),
	)
	require.NoError(t, r.ReplaceInvoiceMovements(movs, stocks, testCompany, testUser, inv))

	got, _ := movs.ListBySource(entity.SourceTypeInvoice, "f1")
	assert.Len(t, got, 1)
}

// Propiedad de conciliación: tras una secuencia de compras y ventas, la suma
// de las cantidades de los movimientos de cada producto es igual a sus
// existencias (partiendo de cero).
func TestMovimientos_SumanIgualQueLasExistencias(t *testing.T) {
	stocks := newFakeStockRepo()
	movs := &fakeMovementRepo{}
	r := appinv.NewReconciler()

	facturas := []*entity.Invoice{
		compra("f1", branchA, linea("p1", "10", "2")),
		compra("f2", branchA, linea("p1", "10", "4")),
		venta("f3", branchA, linea("p1", "7", "9")),
	}
	for _, inv := range facturas {
		shortages, err := r.ApplyInvoiceInventory(stocks, testCompany, inv, nil)
		require.NoError(t, err)
		require.Empty(t, shortages)
		require.NoError(t, r.ReplaceInvoiceMovements(movs, stocks, testCompany, testUser, inv))
	}

	suma := decimal.Zero
	for _, m := range movs.movements {
		if m.ProductID == "p1" {
			suma = suma.Add(m.Qty)
		}
	}
	assert.True(t, suma.Equal(stocks.onHand(branchA, "p1")),
		"movimientos suman %s, existencias %s", suma, stocks.onHand(branchA, "p1"))
}
