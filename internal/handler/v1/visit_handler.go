package v1

import (
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/curaflow/curaflow/internal/service"
)

type VisitHandler struct {
	svc *service.VisitService
}

func NewVisitHandler(svc *service.VisitService) *VisitHandler {
	return &VisitHandler{svc: svc}
}

func (h *VisitHandler) Get(c *gin.Context) {
	id, ok := parseUUID(c, "id")
	if !ok {
		return
	}
	v, err := h.svc.GetVisit(c.Request.Context(), id)
	if err != nil {
		respondServiceError(c, err)
		return
	}
	respondOK(c, v)
}

func (h *VisitHandler) End(c *gin.Context) {
	id, ok := parseUUID(c, "id")
	if !ok {
		return
	}
	v, err := h.svc.EndVisit(c.Request.Context(), id, actorID(c))
	if err != nil {
		respondServiceError(c, err)
		return
	}
	respondOK(c, v)
}

func (h *VisitHandler) Delete(c *gin.Context) {
	id, ok := parseUUID(c, "id")
	if !ok {
		return
	}
	if err := h.svc.DeleteVisit(c.Request.Context(), id, actorID(c)); err != nil {
		respondServiceError(c, err)
		return
	}
	respondOK(c, gin.H{"deleted": true})
}

func (h *VisitHandler) Encounters(c *gin.Context) {
	id, ok := parseUUID(c, "id")
	if !ok {
		return
	}
	encs, err := h.svc.ListEncounters(c.Request.Context(), id)
	if err != nil {
		respondServiceError(c, err)
		return
	}
	respondOK(c, encs)
}

func (h *VisitHandler) Diagnoses(c *gin.Context) {
	id, ok := parseUUID(c, "id")
	if !ok {
		return
	}
	diags, err := h.svc.VisitDiagnoses(c.Request.Context(), id)
	if err != nil {
		respondServiceError(c, err)
		return
	}
	respondOK(c, diags)
}

type recordNoteRequest struct {
	PatientID uuid.UUID `json:"patient_id" binding:"required"`
	Note      string    `json:"note" binding:"required"`
	Diagnoses []string  `json:"diagnoses"`
}

func (h *VisitHandler) RecordNote(c *gin.Context) {
	var req recordNoteRequest
	if !bindJSON(c, &req) {
		return
	}

	n, err := h.svc.RecordNote(c.Request.Context(), &service.RecordNoteCommand{
		PatientID: req.PatientID,
		Note:      req.Note,
		Diagnoses: req.Diagnoses,
		ActorID:   actorID(c),
	})
	if err != nil {
		respondServiceError(c, err)
		return
	}
	respondCreated(c, n)
}
