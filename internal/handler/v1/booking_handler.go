package v1

import (
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/curaflow/curaflow/internal/domain/appointment"
	"github.com/curaflow/curaflow/internal/domain/visit"
	"github.com/curaflow/curaflow/internal/service"
)

type BookingHandler struct {
	bookings   *service.BookingService
	reschedule *service.RescheduleService
}

func NewBookingHandler(bookings *service.BookingService, reschedule *service.RescheduleService) *BookingHandler {
	return &BookingHandler{bookings: bookings, reschedule: reschedule}
}

type bookRequest struct {
	SlotID    uuid.UUID `json:"slot_id" binding:"required"`
	PatientID uuid.UUID `json:"patient_id" binding:"required"`
	Note      string    `json:"note"`
}

// Book returns 200 with a structured result either way: losing the slot
// race is a routine outcome, not an HTTP error.
func (h *BookingHandler) Book(c *gin.Context) {
	var req bookRequest
	if !bindJSON(c, &req) {
		return
	}

	result, err := h.bookings.Book(c.Request.Context(), &appointment.BookCommand{
		SlotID:    req.SlotID,
		PatientID: req.PatientID,
		Note:      req.Note,
		ActorID:   actorID(c),
	})
	if err != nil {
		respondServiceError(c, err)
		return
	}
	respondOK(c, result)
}

func (h *BookingHandler) Get(c *gin.Context) {
	id, ok := parseUUID(c, "id")
	if !ok {
		return
	}
	a, err := h.bookings.GetAppointment(c.Request.Context(), id)
	if err != nil {
		respondServiceError(c, err)
		return
	}
	respondOK(c, a)
}

func (h *BookingHandler) ListPatientAppointments(c *gin.Context) {
	patientID, ok := parseUUID(c, "id")
	if !ok {
		return
	}
	rows, err := h.bookings.ListPatientAppointments(c.Request.Context(), patientID)
	if err != nil {
		respondServiceError(c, err)
		return
	}
	respondOK(c, rows)
}

func (h *BookingHandler) Schedule(c *gin.Context) {
	id, ok := parseUUID(c, "id")
	if !ok {
		return
	}
	a, err := h.bookings.Schedule(c.Request.Context(), id, actorID(c))
	if err != nil {
		respondServiceError(c, err)
		return
	}
	respondOK(c, a)
}

type checkInRequest struct {
	VisitType visit.VisitType `json:"visit_type"`
}

func (h *BookingHandler) CheckIn(c *gin.Context) {
	id, ok := parseUUID(c, "id")
	if !ok {
		return
	}

	req := checkInRequest{VisitType: visit.TypeFacilityVisit}
	if c.Request.ContentLength > 0 && !bindJSON(c, &req) {
		return
	}

	a, err := h.bookings.CheckIn(c.Request.Context(), id, req.VisitType, actorID(c))
	if err != nil {
		respondServiceError(c, err)
		return
	}
	respondOK(c, a)
}

func (h *BookingHandler) CheckOut(c *gin.Context) {
	id, ok := parseUUID(c, "id")
	if !ok {
		return
	}
	a, err := h.bookings.CheckOut(c.Request.Context(), id, actorID(c))
	if err != nil {
		respondServiceError(c, err)
		return
	}
	respondOK(c, a)
}

func (h *BookingHandler) Cancel(c *gin.Context) {
	id, ok := parseUUID(c, "id")
	if !ok {
		return
	}
	a, err := h.bookings.Cancel(c.Request.Context(), id, actorID(c))
	if err != nil {
		respondServiceError(c, err)
		return
	}
	respondOK(c, a)
}

type rescheduleRequest struct {
	NewSlotID *uuid.UUID        `json:"new_slot_id"`
	Manual    *manualReschedule `json:"manual"`
}

type manualReschedule struct {
	ProviderID uuid.UUID `json:"provider_id" binding:"required"`
	LocationID uuid.UUID `json:"location_id" binding:"required"`
	ServiceID  uuid.UUID `json:"service_id" binding:"required"`
	StartTime  string    `json:"start_time" binding:"required"`
}

func (h *BookingHandler) Reschedule(c *gin.Context) {
	id, ok := parseUUID(c, "id")
	if !ok {
		return
	}

	var req rescheduleRequest
	if !bindJSON(c, &req) {
		return
	}

	cmd := &appointment.RescheduleCommand{
		AppointmentID: id,
		NewSlotID:     req.NewSlotID,
		ActorID:       actorID(c),
	}
	if req.Manual != nil {
		start, err := parseRFC3339(req.Manual.StartTime)
		if err != nil {
			respondServiceError(c, &service.ValidationError{Fields: []string{"start_time must be RFC 3339"}})
			return
		}
		cmd.Manual = &appointment.ManualReschedule{
			ProviderID: req.Manual.ProviderID,
			LocationID: req.Manual.LocationID,
			ServiceID:  req.Manual.ServiceID,
			StartTime:  start,
		}
	}

	a, err := h.reschedule.ConfirmReschedule(c.Request.Context(), cmd)
	if err != nil {
		respondServiceError(c, err)
		return
	}
	respondOK(c, a)
}
