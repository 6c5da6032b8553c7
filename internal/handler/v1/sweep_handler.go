package v1

import (
	"github.com/gin-gonic/gin"

	"github.com/curaflow/curaflow/internal/service"
)

// SweepHandler exposes the reaper sweeps for ad-hoc runs; the scheduled
// loop lives in its own binary.
type SweepHandler struct {
	svc *service.ReaperService
}

func NewSweepHandler(svc *service.ReaperService) *SweepHandler {
	return &SweepHandler{svc: svc}
}

func (h *SweepHandler) SweepMissed(c *gin.Context) {
	swept, err := h.svc.SweepMissed(c.Request.Context())
	if err != nil {
		respondServiceError(c, err)
		return
	}
	respondOK(c, gin.H{"missed": swept})
}

func (h *SweepHandler) SweepExpiredSlots(c *gin.Context) {
	archived, err := h.svc.SweepExpiredSlots(c.Request.Context())
	if err != nil {
		respondServiceError(c, err)
		return
	}
	respondOK(c, gin.H{"archived": archived})
}
