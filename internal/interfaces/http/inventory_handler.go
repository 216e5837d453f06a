package http

import (
	"time"

	"github.com/gofiber/fiber/v2"

	appinv "github.com/jhoicas/facturacion-api/internal/application/inventory"
	"github.com/jhoicas/facturacion-api/internal/application/dto"
	"github.com/jhoicas/facturacion-api/internal/domain"
	"github.com/jhoicas/facturacion-api/internal/domain/entity"
)

// InventoryHandler expone ajustes manuales y consultas de stock (protegido).
type InventoryHandler struct {
	adjustUC *appinv.AdjustStockUseCase
	queryUC  *appinv.StockQueryUseCase
}

// NewInventoryHandler construye el handler.
func NewInventoryHandler(adjustUC *appinv.AdjustStockUseCase, queryUC *appinv.StockQueryUseCase) *InventoryHandler {
	return &InventoryHandler{adjustUC: adjustUC, queryUC: queryUC}
}

func inventoryError(c *fiber.Ctx, err error) error {
	if err == domain.ErrInvalidInput {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Code: "VALIDATION", Message: "datos inválidos"})
	}
	if err == domain.ErrNotFound {
		return c.Status(fiber.StatusNotFound).JSON(dto.ErrorResponse{Code: "NOT_FOUND", Message: "sucursal o producto no encontrado"})
	}
	if err == domain.ErrForbidden {
		return c.Status(fiber.StatusForbidden).JSON(dto.ErrorResponse{Code: "FORBIDDEN", Message: "acceso denegado al recurso"})
	}
	if err == domain.ErrInsufficientStock {
		return c.Status(fiber.StatusConflict).JSON(dto.ErrorResponse{Code: "INSUFFICIENT_STOCK", Message: "el ajuste dejaría existencias negativas"})
	}
	return c.Status(fiber.StatusInternalServerError).JSON(dto.ErrorResponse{Code: "INTERNAL", Message: err.Error()})
}

// Adjust registra un ajuste manual de inventario.
// POST /api/inventory/adjustments
func (h *InventoryHandler) Adjust(c *fiber.Ctx) error {
	companyID := GetCompanyID(c)
	userID := GetUserID(c)
	if companyID == "" || userID == "" {
		return c.Status(fiber.StatusUnauthorized).JSON(dto.ErrorResponse{Code: "UNAUTHORIZED", Message: "token inválido"})
	}
	var in dto.AdjustStockRequest
	if err := c.BodyParser(&in); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Code: "INVALID_BODY", Message: "cuerpo inválido"})
	}
	err := h.adjustUC.AdjustStock(c.Context(), appinv.AdjustmentInput{
		CompanyID: companyID,
		UserID:    userID,
		BranchID:  in.BranchID,
		ProductID: in.ProductID,
		Qty:       in.Qty,
		UnitCost:  in.UnitCost,
		Note:      in.Note,
	})
	if err != nil {
		return inventoryError(c, err)
	}
	return c.SendStatus(fiber.StatusNoContent)
}

// StockLevels lista las existencias por sucursal.
// GET /api/inventory/stock?branch_id=...
func (h *InventoryHandler) StockLevels(c *fiber.Ctx) error {
	companyID := GetCompanyID(c)
	if companyID == "" {
		return c.Status(fiber.StatusUnauthorized).JSON(dto.ErrorResponse{Code: "UNAUTHORIZED", Message: "token inválido"})
	}
	branchID := c.Query("branch_id")
	if branchID == "" {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Code: "VALIDATION", Message: "branch_id es obligatorio"})
	}
	var page dto.PageRequest
	if err := c.QueryParser(&page); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Code: "VALIDATION", Message: "paginación inválida"})
	}
	page.DefaultPage()
	levels, err := h.queryUC.ListLevels(c.Context(), companyID, branchID, page.Limit, page.Offset)
	if err != nil {
		return inventoryError(c, err)
	}
	out := make([]dto.StockLevelResponse, 0, len(levels))
	for _, s := range levels {
		out = append(out, dto.StockLevelResponse{
			BranchID:  s.BranchID,
			ProductID: s.ProductID,
			OnHand:    s.OnHand,
			AvgCost:   s.AvgCost,
			UpdatedAt: s.UpdatedAt,
		})
	}
	return c.JSON(out)
}

// Movements lista el libro de movimientos por sucursal o por producto.
// GET /api/inventory/movements?branch_id=...&product_id=...&from=...&to=...
func (h *InventoryHandler) Movements(c *fiber.Ctx) error {
	companyID := GetCompanyID(c)
	if companyID == "" {
		return c.Status(fiber.StatusUnauthorized).JSON(dto.ErrorResponse{Code: "UNAUTHORIZED", Message: "token inválido"})
	}
	branchID := c.Query("branch_id")
	productID := c.Query("product_id")
	if branchID == "" && productID == "" {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Code: "VALIDATION", Message: "branch_id o product_id es obligatorio"})
	}
	from, err := parseDate(c.Query("from"))
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Code: "VALIDATION", Message: "from inválido, use RFC3339"})
	}
	to, err := parseDate(c.Query("to"))
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Code: "VALIDATION", Message: "to inválido, use RFC3339"})
	}
	var page dto.PageRequest
	if err := c.QueryParser(&page); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Code: "VALIDATION", Message: "paginación inválida"})
	}
	page.DefaultPage()

	var movs []*entity.StockMovement
	if branchID != "" {
		movs, err = h.queryUC.ListMovementsByBranch(c.Context(), companyID, branchID, from, to, page.Limit, page.Offset)
	} else {
		movs, err = h.queryUC.ListMovementsByProduct(c.Context(), companyID, productID, from, to, page.Limit, page.Offset)
	}
	if err != nil {
		return inventoryError(c, err)
	}
	out := make([]dto.StockMovementResponse, 0, len(movs))
	for _, m := range movs {
		out = append(out, dto.StockMovementResponse{
			ID:         m.ID,
			BranchID:   m.BranchID,
			ProductID:  m.ProductID,
			Type:       m.Type,
			Qty:        m.Qty,
			UnitCost:   m.UnitCost,
			TotalCost:  m.TotalCost,
			SourceType: m.SourceType,
			SourceID:   m.SourceID,
			Note:       m.Note,
			CreatedAt:  m.CreatedAt,
		})
	}
	return c.JSON(out)
}

func parseDate(s string) (*time.Time, error) {
	if s == "" {
		return nil, nil
	}
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		return nil, err
	}
	return &t, nil
}
