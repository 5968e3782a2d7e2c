package handler

import (
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/knwn/storefront/internal/domain/availability"
	"github.com/knwn/storefront/internal/interfaces/http/dto"
)

// MaxHorizonDays bounds the availability window a client may ask for
const MaxHorizonDays = 60

// AvailabilityResponse is the order window as shown in the date picker
type AvailabilityResponse struct {
	ActiveOrder availability.ActiveOrder `json:"active_order"`
	Timezone    string                   `json:"timezone"`
	Days        []availability.DayView   `json:"days"`
}

// AvailabilityHandler serves the order window
type AvailabilityHandler struct {
	BaseHandler
	calendar       *availability.Calendar
	clock          availability.Clock
	defaultHorizon int
	allowPreview   bool
}

// NewAvailabilityHandler creates an AvailabilityHandler
func NewAvailabilityHandler(calendar *availability.Calendar, clock availability.Clock, defaultHorizon int, allowPreview bool) *AvailabilityHandler {
	return &AvailabilityHandler{
		calendar:       calendar,
		clock:          clock,
		defaultHorizon: defaultHorizon,
		allowPreview:   allowPreview,
	}
}

// GetAvailability returns the active service day and the classified window
// GET /api/v1/availability?horizon=14
func (h *AvailabilityHandler) GetAvailability(c *gin.Context) {
	horizon := h.defaultHorizon
	if raw := c.Query("horizon"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n > MaxHorizonDays {
			h.BadRequest(c, dto.ErrCodeBadRequest, "Horizon must be a number of days between 1 and "+strconv.Itoa(MaxHorizonDays))
			return
		}
		horizon = n
	}
	if err := availability.ValidateHorizon(horizon); err != nil {
		h.HandleError(c, err)
		return
	}

	now := h.clock.Now()
	h.Success(c, AvailabilityResponse{
		ActiveOrder: h.calendar.ActiveOrder(now),
		Timezone:    h.calendar.Location().String(),
		Days:        h.calendar.Window(now, horizon, h.allowPreview),
	})
}
