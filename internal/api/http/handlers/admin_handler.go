package handlers

import (
	"net/http"

	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/support-desk/internal/api/dto"
	"github.com/spec-kit/support-desk/internal/domain"
	"github.com/spec-kit/support-desk/internal/service"
	apperrors "github.com/spec-kit/support-desk/pkg/util/errorutil"
)

const xlsxContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

// AdminHandler exposes back-office endpoints.
type AdminHandler struct {
	staff    *service.StaffService
	chats    *service.ChatService
	contacts *service.ContactService
	reports  *service.ReportService
}

// NewAdminHandler constructs handler.
func NewAdminHandler(staffService *service.StaffService, chatService *service.ChatService, contactService *service.ContactService, reportService *service.ReportService) *AdminHandler {
	return &AdminHandler{staff: staffService, chats: chatService, contacts: contactService, reports: reportService}
}

// CreateStaff handles POST /admin/staff.
func (h *AdminHandler) CreateStaff(c *fiber.Ctx) error {
	admin, err := adminPrincipal(c)
	if err != nil {
		return err
	}
	var req dto.StaffCreateRequest
	if err := bind(c, &req); err != nil {
		return err
	}
	staff, err := h.staff.CreateStaffMember(c.UserContext(), admin, service.StaffCreateInput{
		Name:     req.Name,
		Email:    req.Email,
		Password: req.Password,
		Roles:    req.Roles,
	})
	if err != nil {
		return err
	}
	return c.Status(http.StatusCreated).JSON(fiber.Map{"data": staffResponse(staff)})
}

// ListStaff handles GET /admin/staff.
func (h *AdminHandler) ListStaff(c *fiber.Ctx) error {
	admin, err := adminPrincipal(c)
	if err != nil {
		return err
	}
	filters := service.StaffListFilters{Active: parseBoolQuery(c, "active")}
	if raw := c.Query("role"); raw != "" {
		role, err := domain.ParseRoleTag(raw)
		if err != nil {
			return apperrors.NewValidationError(err.Error(), map[string]any{"field": "role"})
		}
		filters.Role = &role
	}
	filters.Limit, filters.Offset = pageParams(c)

	list, err := h.staff.ListStaffMembers(c.UserContext(), admin, filters)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": staffList(list)})
}

// GetStaff handles GET /admin/staff/:id.
func (h *AdminHandler) GetStaff(c *fiber.Ctx) error {
	admin, err := adminPrincipal(c)
	if err != nil {
		return err
	}
	staff, err := h.staff.GetStaffMemberByID(c.UserContext(), admin, c.Params("id"))
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": staffResponse(staff)})
}

// UpdateStaff handles PUT /admin/staff/:id.
func (h *AdminHandler) UpdateStaff(c *fiber.Ctx) error {
	admin, err := adminPrincipal(c)
	if err != nil {
		return err
	}
	var req dto.StaffUpdateRequest
	if err := bind(c, &req); err != nil {
		return err
	}
	updated, err := h.staff.UpdateStaffMember(c.UserContext(), admin, c.Params("id"), service.StaffUpdateInput{
		Name:   req.Name,
		Email:  req.Email,
		Roles:  req.Roles,
		Active: req.Active,
	})
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": staffResponse(updated)})
}

// DeactivateStaff handles DELETE /admin/staff/:id.
func (h *AdminHandler) DeactivateStaff(c *fiber.Ctx) error {
	admin, err := adminPrincipal(c)
	if err != nil {
		return err
	}
	staff, err := h.staff.DeactivateStaffMember(c.UserContext(), admin, c.Params("id"))
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": staffResponse(staff)})
}

// ListContacts handles GET /admin/contacts.
func (h *AdminHandler) ListContacts(c *fiber.Ctx) error {
	contacts, err := h.contacts.ListAllContacts(c.UserContext(), parseContactFilter(c))
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": contactList(contacts)})
}

// ListChats handles GET /admin/chats.
func (h *AdminHandler) ListChats(c *fiber.Ctx) error {
	filter, err := parseChatFilter(c)
	if err != nil {
		return err
	}
	chats, err := h.chats.ListAllChats(c.UserContext(), filter)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": chatList(chats, domain.SenderSupport)})
}

// RoutingReport handles GET /admin/reports/routing.
func (h *AdminHandler) RoutingReport(c *fiber.Ctx) error {
	rows, err := h.reports.RoutingReport(c.UserContext())
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": rows})
}

// ExportRoutingReport handles GET /admin/reports/routing/export.
func (h *AdminHandler) ExportRoutingReport(c *fiber.Ctx) error {
	data, err := h.reports.ExportRoutingReport(c.UserContext())
	if err != nil {
		return err
	}
	c.Set(fiber.HeaderContentType, xlsxContentType)
	c.Set(fiber.HeaderContentDisposition, `attachment; filename="routing-report.xlsx"`)
	return c.Send(data)
}
