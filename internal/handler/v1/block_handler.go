package v1

import (
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/curaflow/curaflow/internal/domain/slotblock"
	"github.com/curaflow/curaflow/internal/service"
)

type BlockHandler struct {
	svc *service.BlockService
}

func NewBlockHandler(svc *service.BlockService) *BlockHandler {
	return &BlockHandler{svc: svc}
}

type createBlockRequest struct {
	ProviderID       uuid.UUID `json:"provider_id" binding:"required"`
	LocationID       uuid.UUID `json:"location_id" binding:"required"`
	ServiceID        uuid.UUID `json:"service_id" binding:"required"`
	Date             string    `json:"date" binding:"required"`
	StartMinute      int       `json:"start_minute"`
	EndMinute        int       `json:"end_minute" binding:"required"`
	SlotDurationMins int       `json:"slot_duration_mins"`
}

func (h *BlockHandler) Create(c *gin.Context) {
	var req createBlockRequest
	if !bindJSON(c, &req) {
		return
	}

	date, err := time.Parse("2006-01-02", req.Date)
	if err != nil {
		respondServiceError(c, &service.ValidationError{Fields: []string{"date must be YYYY-MM-DD"}})
		return
	}

	duration := req.SlotDurationMins
	if duration == 0 {
		duration = 20
	}

	b, err := h.svc.CreateBlock(c.Request.Context(), &slotblock.CreateBlockCommand{
		ProviderID:       req.ProviderID,
		LocationID:       req.LocationID,
		ServiceID:        req.ServiceID,
		Date:             date,
		StartMinute:      req.StartMinute,
		EndMinute:        req.EndMinute,
		SlotDurationMins: duration,
		CreatedBy:        actorID(c),
	})
	if err != nil {
		respondServiceError(c, err)
		return
	}
	respondCreated(c, b)
}

func (h *BlockHandler) Get(c *gin.Context) {
	id, ok := parseUUID(c, "id")
	if !ok {
		return
	}
	b, err := h.svc.GetBlock(c.Request.Context(), id)
	if err != nil {
		respondServiceError(c, err)
		return
	}
	respondOK(c, b)
}

func (h *BlockHandler) Confirm(c *gin.Context) {
	id, ok := parseUUID(c, "id")
	if !ok {
		return
	}
	b, created, err := h.svc.ConfirmBlock(c.Request.Context(), id, actorID(c))
	if err != nil {
		respondServiceError(c, err)
		return
	}
	respondOK(c, gin.H{"block": b, "slots_created": created})
}

func (h *BlockHandler) Post(c *gin.Context) {
	id, ok := parseUUID(c, "id")
	if !ok {
		return
	}
	b, err := h.svc.PostBlock(c.Request.Context(), id, actorID(c))
	if err != nil {
		respondServiceError(c, err)
		return
	}
	respondOK(c, b)
}

func (h *BlockHandler) Reset(c *gin.Context) {
	id, ok := parseUUID(c, "id")
	if !ok {
		return
	}
	b, err := h.svc.ResetBlock(c.Request.Context(), id, actorID(c))
	if err != nil {
		respondServiceError(c, err)
		return
	}
	respondOK(c, b)
}

func (h *BlockHandler) Delete(c *gin.Context) {
	id, ok := parseUUID(c, "id")
	if !ok {
		return
	}
	if err := h.svc.DeleteBlock(c.Request.Context(), id, actorID(c)); err != nil {
		respondServiceError(c, err)
		return
	}
	respondOK(c, gin.H{"deleted": true})
}
