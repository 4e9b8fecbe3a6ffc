package handlers

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/gofiber/fiber/v2"

	"github.com/municipio-kit/chamados-service/internal/api/dto"
	"github.com/municipio-kit/chamados-service/internal/auth"
	"github.com/municipio-kit/chamados-service/internal/domain"
	"github.com/municipio-kit/chamados-service/internal/feed"
	"github.com/municipio-kit/chamados-service/internal/query"
	"github.com/municipio-kit/chamados-service/internal/service"
	apperrors "github.com/municipio-kit/chamados-service/pkg/util"
)

// TicketsHandler manages ticket endpoints for both roles; the service
// layer decides what each actor may see and do.
type TicketsHandler struct {
	service *service.TicketService
}

// NewTicketsHandler constructs handler.
func NewTicketsHandler(ticketService *service.TicketService) *TicketsHandler {
	return &TicketsHandler{service: ticketService}
}

// CreateTicket POST /tickets.
func (h *TicketsHandler) CreateTicket(c *fiber.Ctx) error {
	actor, ok := auth.ActorFromContext(c)
	if !ok {
		return apperrors.NewUnauthenticated("authentication required")
	}
	var req dto.CreateTicketRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	if req.Subject == "" {
		return apperrors.NewValidationError("subject required", nil)
	}

	input := service.CreateTicketInput{
		Subject:     domain.TicketSubject(strings.ToUpper(req.Subject)),
		Complement:  req.Complement,
		UnitID:      req.UnitID,
		RequesterID: req.RequesterID,
	}
	if req.Status != nil {
		status := domain.TicketStatus(strings.ToUpper(*req.Status))
		input.Status = &status
	}

	ticket, err := h.service.CreateTicket(c.UserContext(), *actor, input)
	if err != nil {
		return err
	}
	return c.Status(http.StatusCreated).JSON(fiber.Map{"data": ticketResponse(ticket)})
}

// ListTickets GET /tickets. Cursor-paginated feed; unit/status filters
// apply to administrators only.
func (h *TicketsHandler) ListTickets(c *fiber.Ctx) error {
	actor, ok := auth.ActorFromContext(c)
	if !ok {
		return apperrors.NewUnauthenticated("authentication required")
	}

	filters := parseTicketFilters(c)
	pageSize := parsePageSize(c.Query("page_size"))

	var cursor *feed.Cursor
	if raw := c.Query("cursor"); raw != "" {
		parsed := feed.Cursor(raw)
		cursor = &parsed
	}

	page, err := h.service.ListTickets(c.UserContext(), *actor, filters, pageSize, cursor)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": feedResponse(page)})
}

// GetTicket GET /tickets/:id.
func (h *TicketsHandler) GetTicket(c *fiber.Ctx) error {
	actor, ok := auth.ActorFromContext(c)
	if !ok {
		return apperrors.NewUnauthenticated("authentication required")
	}
	ticket, err := h.service.GetTicket(c.UserContext(), *actor, c.Params("id"))
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": ticketResponse(ticket)})
}

// UpdateTicket PATCH /tickets/:id.
func (h *TicketsHandler) UpdateTicket(c *fiber.Ctx) error {
	actor, ok := auth.ActorFromContext(c)
	if !ok {
		return apperrors.NewUnauthenticated("authentication required")
	}
	var req dto.UpdateTicketRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}

	input := service.UpdateTicketInput{
		Complement:  req.Complement,
		UnitID:      req.UnitID,
		RequesterID: req.RequesterID,
	}
	if req.Status != nil {
		status := domain.TicketStatus(strings.ToUpper(*req.Status))
		input.Status = &status
	}

	ticket, err := h.service.UpdateTicket(c.UserContext(), *actor, c.Params("id"), input)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": ticketResponse(ticket)})
}

// DeleteTicket DELETE /tickets/:id.
func (h *TicketsHandler) DeleteTicket(c *fiber.Ctx) error {
	actor, ok := auth.ActorFromContext(c)
	if !ok {
		return apperrors.NewUnauthenticated("authentication required")
	}
	if err := h.service.DeleteTicket(c.UserContext(), *actor, c.Params("id")); err != nil {
		return err
	}
	return c.SendStatus(http.StatusNoContent)
}

// ListAuditTrail GET /tickets/:id/audit. Administrators only.
func (h *TicketsHandler) ListAuditTrail(c *fiber.Ctx) error {
	actor, ok := auth.ActorFromContext(c)
	if !ok {
		return apperrors.NewUnauthenticated("authentication required")
	}
	limit := parsePageSize(c.Query("limit"))
	entries, err := h.service.ListAuditTrail(c.UserContext(), *actor, c.Params("id"), limit)
	if err != nil {
		return err
	}
	items := make([]dto.AuditEventResponse, 0, len(entries))
	for _, entry := range entries {
		items = append(items, auditEventResponse(entry))
	}
	return c.JSON(fiber.Map{"data": items})
}

func parseTicketFilters(c *fiber.Ctx) query.Filters {
	filters := query.Filters{}
	if secretaria := c.Query("secretaria"); secretaria != "" {
		filters.Secretaria = &secretaria
	}
	if departamento := c.Query("departamento"); departamento != "" {
		filters.Departamento = &departamento
	}
	if statusStr := c.Query("status"); statusStr != "" {
		status := domain.TicketStatus(strings.ToUpper(statusStr))
		filters.Status = &status
	}
	return filters
}

// maxPageSize bounds client-supplied page sizes so a single request
// cannot turn the feed query into an unbounded scan.
const maxPageSize = 100

func parsePageSize(val string) int {
	if val == "" {
		return 0
	}
	parsed, err := strconv.Atoi(val)
	if err != nil || parsed <= 0 {
		return 0
	}
	if parsed > maxPageSize {
		return maxPageSize
	}
	return parsed
}

func ticketResponse(ticket *domain.Ticket) dto.TicketResponse {
	return dto.TicketResponse{
		ID:            ticket.ID,
		RequesterID:   ticket.RequesterID,
		RequesterName: ticket.RequesterName,
		Secretaria:    ticket.Unit.Secretaria,
		Departamento:  ticket.Unit.Departamento,
		Subject:       ticket.Subject,
		Complement:    ticket.Complement,
		Status:        ticket.Status,
		CreatedAt:     ticket.CreatedAt,
		LastUpdatedBy: ticket.LastUpdatedBy,
		LastUpdatedAt: ticket.LastUpdatedAt,
	}
}

func feedResponse(page *feed.Page) dto.FeedResponse {
	items := make([]dto.TicketResponse, 0, len(page.Items))
	for i := range page.Items {
		items = append(items, ticketResponse(&page.Items[i]))
	}
	resp := dto.FeedResponse{Items: items, Exhausted: page.Exhausted}
	if page.NextCursor != nil {
		cursor := string(*page.NextCursor)
		resp.NextCursor = &cursor
	}
	return resp
}

func auditEventResponse(entry domain.TicketEvent) dto.AuditEventResponse {
	return dto.AuditEventResponse{
		ID:         entry.ID,
		TicketID:   entry.TicketID,
		ActorID:    entry.ActorID,
		ActorName:  entry.ActorName,
		ActorRole:  entry.ActorRole,
		ChangeType: entry.ChangeType,
		OldValue:   entry.OldValue,
		NewValue:   entry.NewValue,
		CreatedAt:  entry.CreatedAt,
	}
}
