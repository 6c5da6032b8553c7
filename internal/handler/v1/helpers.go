package v1

import (
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/curaflow/curaflow/internal/domain/appointment"
	"github.com/curaflow/curaflow/internal/domain/directory"
	"github.com/curaflow/curaflow/internal/domain/slot"
	"github.com/curaflow/curaflow/internal/domain/slotblock"
	"github.com/curaflow/curaflow/internal/domain/visit"
	"github.com/curaflow/curaflow/internal/service"
)

type APIResponse[T any] struct {
	Data    T      `json:"data"`
	Message string `json:"message,omitempty"`
}

type ErrorResponse struct {
	Error   string            `json:"error"`
	Code    string            `json:"code,omitempty"`
	Details map[string]string `json:"details,omitempty"`
}

type ValidationErrorResponse struct {
	Error  string   `json:"error"`
	Fields []string `json:"fields"`
}

func respondOK(c *gin.Context, data any) {
	c.JSON(http.StatusOK, APIResponse[any]{Data: data})
}

func respondCreated(c *gin.Context, data any) {
	c.JSON(http.StatusCreated, APIResponse[any]{Data: data})
}

func respondServiceError(c *gin.Context, err error) {
	var validErr *service.ValidationError
	if errors.As(err, &validErr) {
		c.JSON(http.StatusBadRequest, ValidationErrorResponse{
			Error:  "validation failed",
			Fields: validErr.Fields,
		})
		return
	}

	switch {
	case errors.Is(err, directory.ErrPatientNotFound),
		errors.Is(err, directory.ErrProviderNotFound),
		errors.Is(err, directory.ErrLocationNotFound),
		errors.Is(err, directory.ErrServiceNotFound),
		errors.Is(err, slotblock.ErrBlockNotFound),
		errors.Is(err, slot.ErrSlotNotFound),
		errors.Is(err, appointment.ErrAppointmentNotFound),
		errors.Is(err, visit.ErrVisitNotFound):
		c.JSON(http.StatusNotFound, ErrorResponse{Error: err.Error()})

	case errors.Is(err, slotblock.ErrBlockOverlap),
		errors.Is(err, slotblock.ErrLinkedAppointments),
		errors.Is(err, slotblock.ErrBookedChildren),
		errors.Is(err, appointment.ErrSlotAlreadyBooked),
		errors.Is(err, appointment.ErrActiveVisitConflict),
		errors.Is(err, appointment.ErrInvalidTransition),
		errors.Is(err, appointment.ErrTerminalState),
		errors.Is(err, appointment.ErrStale),
		errors.Is(err, visit.ErrActiveVisitExists),
		errors.Is(err, visit.ErrVisitHasEncounters),
		errors.Is(err, visit.ErrNoActiveVisit):
		c.JSON(http.StatusConflict, ErrorResponse{Error: err.Error()})

	case errors.Is(err, slotblock.ErrPastDate),
		errors.Is(err, slotblock.ErrInvalidInterval),
		errors.Is(err, slotblock.ErrInvalidDuration),
		errors.Is(err, slotblock.ErrServiceNotOffered),
		errors.Is(err, appointment.ErrMissingProvider),
		errors.Is(err, appointment.ErrNotDraft),
		errors.Is(err, appointment.ErrAppointmentRequired),
		errors.Is(err, visit.ErrInvalidVisitType),
		errors.Is(err, visit.ErrVisitNotActive):
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: err.Error()})

	default:
		c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "internal server error"})
	}
}

func bindJSON(c *gin.Context, obj any) bool {
	if err := c.ShouldBindJSON(obj); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid request: " + err.Error()})
		return false
	}
	return true
}

func parseRFC3339(raw string) (time.Time, error) {
	return time.Parse(time.RFC3339, raw)
}

// actorID reads the caller identity forwarded by the gateway. Identity
// enforcement itself lives upstream.
func actorID(c *gin.Context) uuid.UUID {
	if raw := c.GetHeader("X-Actor-ID"); raw != "" {
		if id, err := uuid.Parse(raw); err == nil {
			return id
		}
	}
	return uuid.Nil
}

func parseUUID(c *gin.Context, param string) (uuid.UUID, bool) {
	raw := c.Param(param)
	id, err := uuid.Parse(raw)
	if err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid " + param + ": must be a valid UUID"})
		return uuid.Nil, false
	}
	return id, true
}
