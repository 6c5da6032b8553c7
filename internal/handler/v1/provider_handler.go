package v1

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/curaflow/curaflow/internal/domain/directory"
	"github.com/curaflow/curaflow/internal/service"
)

type ProviderHandler struct {
	bookings  *service.BookingService
	providers directory.ProviderDirectory
}

func NewProviderHandler(bookings *service.BookingService, providers directory.ProviderDirectory) *ProviderHandler {
	return &ProviderHandler{bookings: bookings, providers: providers}
}

func (h *ProviderHandler) ListDoctors(c *gin.Context) {
	cards, err := h.providers.ListDoctors(c.Request.Context())
	if err != nil {
		respondServiceError(c, err)
		return
	}
	respondOK(c, cards)
}

func (h *ProviderHandler) Availability(c *gin.Context) {
	providerID, ok := parseUUID(c, "id")
	if !ok {
		return
	}
	slug := c.Query("service")
	if slug == "" {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "service query parameter is required"})
		return
	}

	avail, err := h.bookings.GetAvailability(c.Request.Context(), providerID, slug)
	if err != nil {
		respondServiceError(c, err)
		return
	}
	respondOK(c, avail)
}
