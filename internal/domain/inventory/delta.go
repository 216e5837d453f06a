package inventory

import (
	"github.com/shopspring/decimal"

	"github.com/jhoicas/facturacion-api/internal/domain/entity"
)

// Delta es la diferencia (nuevo − anterior) de los totales de un producto
// entre dos estados de una factura.
type Delta struct {
	PurchaseQty  decimal.Decimal
	PurchaseCost decimal.Decimal
	SaleQty      decimal.Decimal
}

// Net devuelve el efecto neto sobre las existencias: PurchaseQty − SaleQty.
func (d Delta) Net() decimal.Decimal {
	return d.PurchaseQty.Sub(d.SaleQty)
}

// IsZero indica si el delta no tiene ningún efecto.
func (d Delta) IsZero() bool {
	return d.PurchaseQty.IsZero() && d.PurchaseCost.IsZero() && d.SaleQty.IsZero()
}

// DeltaFor calcula el delta de un producto entre dos resúmenes.
func DeltaFor(productID string, old, new Summary) Delta {
	o := old[productID]
	n := new[productID]
	return Delta{
		PurchaseQty:  n.PurchaseQty.Sub(o.PurchaseQty),
		PurchaseCost: n.PurchaseCost.Sub(o.PurchaseCost),
		SaleQty:      n.SaleQty.Sub(o.SaleQty),
	}
}

// Shortage describe una insuficiencia de stock que bloquea la confirmación:
// pedir Requested unidades cuando solo hay Available.
type Shortage struct {
	ProductID string          `json:"product_id"`
	Available decimal.Decimal `json:"available"`
	Requested decimal.Decimal `json:"requested"`
}

// ShortageFor valida el delta contra las existencias actuales sin mutar nada.
// Retorna nil si el stock alcanza; un decremento neto solo es válido si
// OnHand + Net ≥ 0.
func (d Delta) ShortageFor(productID string, onHand decimal.Decimal) *Shortage {
	net := d.Net()
	if net.GreaterThanOrEqual(decimal.Zero) {
		return nil
	}
	if onHand.Add(net).GreaterThanOrEqual(decimal.Zero) {
		return nil
	}
	return &Shortage{ProductID: productID, Available: onHand, Requested: net.Neg()}
}

// Apply aplica el delta a una fila de stock ya validada:
//   - PurchaseQty > 0: suma existencias y recalcula el costo promedio con
//     CostCalculator; si el delta de costo no es positivo (ej. una edición que
//     solo baja el precio) el costo agregado cae a PurchaseQty × costo actual,
//     de modo que el promedio no se mueve.
//   - PurchaseQty < 0: resta existencias sin tocar el costo (revertir una
//     compra no recalcula la base de costo de lo que queda).
//   - SaleQty se resta de las existencias; las ventas consumen al costo
//     promedio vigente pero nunca lo alteran.
func (d Delta) Apply(stock *entity.Stock) {
	if d.PurchaseQty.GreaterThan(decimal.Zero) {
		addedCost := d.PurchaseCost
		if !addedCost.GreaterThan(decimal.Zero) {
			addedCost = d.PurchaseQty.Mul(stock.AvgCost)
		}
		stock.AvgCost = CostCalculator(stock.OnHand, stock.AvgCost, d.PurchaseQty, addedCost)
		stock.OnHand = stock.OnHand.Add(d.PurchaseQty)
	} else if d.PurchaseQty.LessThan(decimal.Zero) {
		stock.OnHand = stock.OnHand.Add(d.PurchaseQty)
	}
	stock.OnHand = stock.OnHand.Sub(d.SaleQty)
}
