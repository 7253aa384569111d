package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/nimeshabuddhika/resilient-swap-go/pkg/swap"
	"github.com/nimeshabuddhika/resilient-swap-go/services/swap-api/internal/services"
	apiviews "github.com/nimeshabuddhika/resilient-swap-go/services/swap-api/internal/views"
	"go.uber.org/zap"
)

type FormHandler struct {
	logger    *zap.Logger
	service   services.FormService
	presenter *FormPresenter
}

func NewFormHandler(logger *zap.Logger, svc services.FormService, presenter *FormPresenter) *FormHandler {
	return &FormHandler{logger: logger, service: svc, presenter: presenter}
}

// RegisterRoutes registers form routes on the provided group.
func (h *FormHandler) RegisterRoutes(r *gin.RouterGroup) {
	forms := r.Group("/forms")
	forms.POST("", h.CreateForm)
	forms.GET("/:id", h.GetForm)
	forms.DELETE("/:id", h.DeleteForm)
	forms.PUT("/:id/selection", h.UpdateSelection)
	forms.PUT("/:id/amounts", h.EditAmount)
	forms.POST("/:id/rate", h.RefreshRate)
	forms.POST("/:id/max", h.ApplyMax)
	forms.PUT("/:id/recipient", h.SetRecipient)
	forms.GET("/:id/validation", h.GetValidation)
}

func (h *FormHandler) CreateForm(c *gin.Context) {
	var req apiviews.CreateFormRequest
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			respondError(c, h.logger, invalidInput("invalid request body", err))
			return
		}
	}
	form, err := h.service.Create(c.Request.Context(), traceID(c), req.Network)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	respond(c, http.StatusCreated, h.presenter.Present(form))
}

func (h *FormHandler) GetForm(c *gin.Context) {
	id, ok := h.formID(c)
	if !ok {
		return
	}
	form, err := h.service.Get(c.Request.Context(), id)
	h.reply(c, form, err)
}

func (h *FormHandler) DeleteForm(c *gin.Context) {
	id, ok := h.formID(c)
	if !ok {
		return
	}
	if err := h.service.Delete(c.Request.Context(), traceID(c), id); err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *FormHandler) UpdateSelection(c *gin.Context) {
	id, ok := h.formID(c)
	if !ok {
		return
	}
	var req apiviews.SelectionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, h.logger, invalidInput("invalid request body", err))
		return
	}
	form, err := h.service.Select(c.Request.Context(), traceID(c), id, services.SelectionUpdate{
		Token:    req.Token,
		Currency: req.Currency,
	})
	h.reply(c, form, err)
}

func (h *FormHandler) EditAmount(c *gin.Context) {
	id, ok := h.formID(c)
	if !ok {
		return
	}
	var req apiviews.AmountRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, h.logger, invalidInput("invalid request body", err))
		return
	}
	field, err := swap.ParseActiveField(req.Field)
	if err != nil {
		respondError(c, h.logger, invalidInput("field must be sent or received", err))
		return
	}
	form, err := h.service.EditAmount(c.Request.Context(), traceID(c), id, field, req.Value)
	h.reply(c, form, err)
}

func (h *FormHandler) RefreshRate(c *gin.Context) {
	id, ok := h.formID(c)
	if !ok {
		return
	}
	form, err := h.service.RefreshRate(c.Request.Context(), traceID(c), id)
	h.reply(c, form, err)
}

func (h *FormHandler) ApplyMax(c *gin.Context) {
	id, ok := h.formID(c)
	if !ok {
		return
	}
	var req apiviews.MaxRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, h.logger, invalidInput("invalid request body", err))
		return
	}
	form, applied, err := h.service.ApplyMax(c.Request.Context(), traceID(c), id, req.WalletAddress)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	respond(c, http.StatusOK, gin.H{"applied": applied, "form": h.presenter.Present(form)})
}

func (h *FormHandler) SetRecipient(c *gin.Context) {
	id, ok := h.formID(c)
	if !ok {
		return
	}
	var req apiviews.RecipientRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, h.logger, invalidInput("invalid request body", err))
		return
	}
	form, err := h.service.SetRecipient(c.Request.Context(), traceID(c), id, swap.Recipient{
		Institution:       req.Institution,
		AccountIdentifier: req.AccountIdentifier,
		AccountName:       req.AccountName,
		Memo:              req.Memo,
	})
	h.reply(c, form, err)
}

func (h *FormHandler) GetValidation(c *gin.Context) {
	id, ok := h.formID(c)
	if !ok {
		return
	}
	form, report, submittable, err := h.service.Validate(c.Request.Context(), id)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	respond(c, http.StatusOK, h.presenter.PresentWithReport(form, report, submittable))
}

func (h *FormHandler) reply(c *gin.Context, form swap.Form, err error) {
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	respond(c, http.StatusOK, h.presenter.Present(form))
}

func (h *FormHandler) formID(c *gin.Context) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		respondError(c, h.logger, invalidInput("invalid form id", err))
		return uuid.Nil, false
	}
	return id, true
}
