package repository

import "github.com/jhoicas/facturacion-api/internal/domain/entity"

// InvoiceRepository define el puerto de persistencia para Invoice y sus líneas.
type InvoiceRepository interface {
	Create(invoice *entity.Invoice) error
	CreateItem(item *entity.InvoiceItem) error
	Update(invoice *entity.Invoice) error
	// DeleteItems borra todas las líneas de la factura (se reinsertan en ediciones).
	DeleteItems(invoiceID string) error
	Delete(id string) error
	GetByID(id string) (*entity.Invoice, error)
	GetItemsByInvoiceID(invoiceID string) ([]entity.InvoiceItem, error)
	ListByCompany(companyID string, limit, offset int) ([]*entity.Invoice, error)
}
