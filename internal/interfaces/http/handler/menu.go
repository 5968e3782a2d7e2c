package handler

import (
	"github.com/gin-gonic/gin"

	"github.com/knwn/storefront/internal/domain/availability"
	"github.com/knwn/storefront/internal/domain/catalog"
)

// MenuSource is the menu collaborator
type MenuSource interface {
	catalog.MenuProvider
	Label(weekdayKey string) string
}

// MenuResponse is one day's menu with its order status. Menu is null on
// days nothing is served.
type MenuResponse struct {
	Date      availability.ServiceDay `json:"date"`
	Label     string                  `json:"label"`
	Weekday   string                  `json:"weekday"`
	Status    availability.DateStatus `json:"status"`
	Orderable bool                    `json:"orderable"`
	Menu      *catalog.DayMenu        `json:"menu"`
}

// MenuHandler serves daily menus
type MenuHandler struct {
	BaseHandler
	menus        MenuSource
	calendar     *availability.Calendar
	clock        availability.Clock
	allowPreview bool
}

// NewMenuHandler creates a MenuHandler
func NewMenuHandler(menus MenuSource, calendar *availability.Calendar, clock availability.Clock, allowPreview bool) *MenuHandler {
	return &MenuHandler{menus: menus, calendar: calendar, clock: clock, allowPreview: allowPreview}
}

// GetMenu returns the menu for a service day
// GET /api/v1/menu/:date
func (h *MenuHandler) GetMenu(c *gin.Context) {
	day, ok := h.parseDay(c, c.Param("date"))
	if !ok {
		return
	}

	status := h.calendar.StatusOf(h.clock.Now(), day)
	resp := MenuResponse{
		Date:      day,
		Label:     day.Display(),
		Weekday:   h.menus.Label(day.WeekdayKey()),
		Status:    status,
		Orderable: status.Orderable(h.allowPreview),
	}
	if menu, ok := h.menus.MenuFor(day); ok {
		resp.Menu = menu
	}
	h.Success(c, resp)
}
