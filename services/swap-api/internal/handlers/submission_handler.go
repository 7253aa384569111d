package handlers

import (
	"bytes"
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/nimeshabuddhika/resilient-swap-go/pkg/views"
	"github.com/nimeshabuddhika/resilient-swap-go/services/swap-api/internal/services"
	apiviews "github.com/nimeshabuddhika/resilient-swap-go/services/swap-api/internal/views"
	"go.uber.org/zap"
)

type SubmissionHandler struct {
	logger    *zap.Logger
	service   services.SubmissionService
	presenter *FormPresenter
}

func NewSubmissionHandler(logger *zap.Logger, svc services.SubmissionService, presenter *FormPresenter) *SubmissionHandler {
	return &SubmissionHandler{logger: logger, service: svc, presenter: presenter}
}

func (h *SubmissionHandler) RegisterRoutes(r *gin.RouterGroup) {
	r.POST("/forms/:id/submit", h.Submit)
	r.GET("/forms/:id/submissions", h.GetHistory)
	r.POST("/encrypt", h.Encrypt)
}

func (h *SubmissionHandler) Submit(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		respondError(c, h.logger, invalidInput("invalid form id", err))
		return
	}
	var req apiviews.SubmitRequest
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			respondError(c, h.logger, invalidInput("invalid request body", err))
			return
		}
	}

	sub, err := h.service.Submit(c.Request.Context(), traceID(c), id, req.PublicKey)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	respond(c, http.StatusOK, views.SubmissionView{
		FormID:           sub.FormID.String(),
		Payload:          sub.Payload,
		EncryptedPayload: sub.EncryptedPayload,
		Form:             h.presenter.Present(sub.Form),
	})
}

// GetHistory lists the audited submit attempts of a form. ?limit= caps the result.
func (h *SubmissionHandler) GetHistory(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		respondError(c, h.logger, invalidInput("invalid form id", err))
		return
	}
	limit, err := strconv.Atoi(c.DefaultQuery("limit", "0"))
	if err != nil || limit < 0 {
		respondError(c, h.logger, invalidInput("limit must be a positive integer", err))
		return
	}
	records, err := h.service.History(c.Request.Context(), id, limit)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	respond(c, http.StatusOK, records)
}

// Encrypt encrypts any JSON value. The value is re-encoded canonically, so key order and
// whitespace of the request do not leak into the ciphertext.
func (h *SubmissionHandler) Encrypt(c *gin.Context) {
	var req apiviews.EncryptRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, h.logger, invalidInput("invalid request body", err))
		return
	}
	var payload any
	dec := json.NewDecoder(bytes.NewReader(req.Payload))
	dec.UseNumber()
	if err := dec.Decode(&payload); err != nil {
		respondError(c, h.logger, invalidInput("payload is not valid JSON", err))
		return
	}
	encrypted, err := h.service.Encrypt(c.Request.Context(), traceID(c), payload, req.PublicKey)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	respond(c, http.StatusOK, views.EncryptView{EncryptedPayload: encrypted})
}
