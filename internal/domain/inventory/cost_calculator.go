package inventory

import "github.com/shopspring/decimal"

// CostCalculator implementa la lógica de costo promedio ponderado (servicio de dominio).
// NuevoCosto = ((StockActual * CostoActual) + CostoAgregado) / (StockActual + CantEntrada)
// Si el denominador es cero o negativo retorna cero (guarda contra división por cero).
func CostCalculator(stockActual, costoActual, cantEntrada, costoAgregado decimal.Decimal) decimal.Decimal {
	sum := stockActual.Add(cantEntrada)
	if sum.LessThanOrEqual(decimal.Zero) {
		return decimal.Zero
	}
	num := stockActual.Mul(costoActual).Add(costoAgregado)
	nuevo := num.Div(sum)
	if nuevo.IsNegative() {
		// Un costo negativo corrompería la fila; se conserva el costo anterior.
		return costoActual
	}
	return nuevo
}
