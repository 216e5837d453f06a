package entity

import "time"

// Branch representa una sucursal de la empresa donde se lleva inventario.
type Branch struct {
	ID        string
	CompanyID string
	Name      string
	Address   string
	CreatedAt time.Time
	UpdatedAt time.Time
}
