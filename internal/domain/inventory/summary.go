package inventory

import (
	"github.com/shopspring/decimal"

	"github.com/jhoicas/facturacion-api/internal/domain/entity"
)

// ProductTotals acumula por producto las cantidades y costos de las líneas de
// una factura: compras suman PurchaseQty y PurchaseCost (qty × precio
// unitario); ventas suman SaleQty.
type ProductTotals struct {
	PurchaseQty  decimal.Decimal
	PurchaseCost decimal.Decimal
	SaleQty      decimal.Decimal
}

// Summary agrupa los totales por ProductID para un estado de factura.
type Summary map[string]ProductTotals

// Summarize resume las líneas de una factura en totales por producto.
// Las líneas sin ProductID (servicios) se ignoran. Una factura nil produce el
// resumen vacío: es el estado "antes" de una creación o el "después" de un
// borrado.
func Summarize(inv *entity.Invoice) Summary {
	s := Summary{}
	if inv == nil {
		return s
	}
	for _, item := range inv.Items {
		if item.ProductID == "" {
			continue
		}
		t := s[item.ProductID]
		if inv.Type == entity.InvoiceTypePurchase {
			t.PurchaseQty = t.PurchaseQty.Add(item.Qty)
			t.PurchaseCost = t.PurchaseCost.Add(item.Qty.Mul(item.UnitPrice))
		} else {
			t.SaleQty = t.SaleQty.Add(item.Qty)
		}
		s[item.ProductID] = t
	}
	return s
}

// ProductIDs devuelve la unión de productos referidos por ambos resúmenes.
func ProductIDs(old, new Summary) []string {
	seen := make(map[string]bool, len(old)+len(new))
	var ids []string
	for id := range old {
		if !seen[id] {
			seen[id] = true
			ids = append(ids, id)
		}
	}
	for id := range new {
		if !seen[id] {
			seen[id] = true
			ids = append(ids, id)
		}
	}
	return ids
}
