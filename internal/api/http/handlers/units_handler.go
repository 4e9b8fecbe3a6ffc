package handlers

import (
	"net/http"

	"github.com/gofiber/fiber/v2"

	"github.com/municipio-kit/chamados-service/internal/api/dto"
	"github.com/municipio-kit/chamados-service/internal/auth"
	"github.com/municipio-kit/chamados-service/internal/domain"
	"github.com/municipio-kit/chamados-service/internal/service"
	apperrors "github.com/municipio-kit/chamados-service/pkg/util"
)

// UnitsHandler manages the unit catalog endpoints. All routes sit behind
// the administrator guard.
type UnitsHandler struct {
	service *service.UnitService
}

// NewUnitsHandler constructs handler.
func NewUnitsHandler(unitService *service.UnitService) *UnitsHandler {
	return &UnitsHandler{service: unitService}
}

// CreateUnit POST /units.
func (h *UnitsHandler) CreateUnit(c *fiber.Ctx) error {
	actor, ok := auth.ActorFromContext(c)
	if !ok {
		return apperrors.NewUnauthenticated("authentication required")
	}
	var req dto.CreateUnitRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}

	unit, err := h.service.CreateUnit(c.UserContext(), *actor, req.Secretaria, req.Departamento)
	if err != nil {
		return err
	}
	return c.Status(http.StatusCreated).JSON(fiber.Map{"data": unitResponse(unit)})
}

// ListUnits GET /units.
func (h *UnitsHandler) ListUnits(c *fiber.Ctx) error {
	actor, ok := auth.ActorFromContext(c)
	if !ok {
		return apperrors.NewUnauthenticated("authentication required")
	}
	units, err := h.service.ListActiveUnits(c.UserContext(), *actor)
	if err != nil {
		return err
	}
	items := make([]dto.UnitResponse, 0, len(units))
	for i := range units {
		items = append(items, unitResponse(&units[i]))
	}
	return c.JSON(fiber.Map{"data": items})
}

// RenameUnit PATCH /units/:id.
func (h *UnitsHandler) RenameUnit(c *fiber.Ctx) error {
	actor, ok := auth.ActorFromContext(c)
	if !ok {
		return apperrors.NewUnauthenticated("authentication required")
	}
	var req dto.RenameUnitRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}

	unit, cascaded, err := h.service.RenameUnit(c.UserContext(), *actor, c.Params("id"), req.Secretaria, req.Departamento)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": unitResponse(unit), "cascaded_tickets": cascaded})
}

// DeactivateUnit DELETE /units/:id. Logical removal only.
func (h *UnitsHandler) DeactivateUnit(c *fiber.Ctx) error {
	actor, ok := auth.ActorFromContext(c)
	if !ok {
		return apperrors.NewUnauthenticated("authentication required")
	}
	if err := h.service.DeactivateUnit(c.UserContext(), *actor, c.Params("id")); err != nil {
		return err
	}
	return c.SendStatus(http.StatusNoContent)
}

func unitResponse(unit *domain.Unit) dto.UnitResponse {
	return dto.UnitResponse{
		ID:           unit.ID,
		Secretaria:   unit.Secretaria,
		Departamento: unit.Departamento,
		Active:       unit.Active,
		CreatedAt:    unit.CreatedAt,
		UpdatedAt:    unit.UpdatedAt,
	}
}
