package handler

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/schoolplan/timetable-api/internal/models"
	"github.com/schoolplan/timetable-api/internal/service"
	appErrors "github.com/schoolplan/timetable-api/pkg/errors"
	"github.com/schoolplan/timetable-api/pkg/response"
)

// BindingHandler manages binding endpoints.
type BindingHandler struct {
	service *service.BindingService
}

// NewBindingHandler constructs handler.
func NewBindingHandler(svc *service.BindingService) *BindingHandler {
	return &BindingHandler{service: svc}
}

// Create godoc
// @Summary Create a binding
// @Tags Bindings
// @Accept json
// @Produce json
// @Param payload body service.CreateBindingRequest true "Binding payload"
// @Success 201 {object} response.Envelope
// @Router /bindings [post]
func (h *BindingHandler) Create(c *gin.Context) {
	var req service.CreateBindingRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "invalid request body"))
		return
	}
	binding, err := h.service.Create(c.Request.Context(), actorFromContext(c), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, binding)
}

// Get godoc
// @Summary Get a binding
// @Tags Bindings
// @Produce json
// @Param id path string true "Binding ID"
// @Success 200 {object} response.Envelope
// @Router /bindings/{id} [get]
func (h *BindingHandler) Get(c *gin.Context) {
	binding, err := h.service.Get(c.Request.Context(), actorFromContext(c), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, binding, nil)
}

// Update godoc
// @Summary Update a binding (partial)
// @Tags Bindings
// @Accept json
// @Produce json
// @Param id path string true "Binding ID"
// @Param payload body service.UpdateBindingRequest true "Fields to change"
// @Success 200 {object} response.Envelope
// @Router /bindings/{id} [put]
func (h *BindingHandler) Update(c *gin.Context) {
	var req service.UpdateBindingRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "invalid request body"))
		return
	}
	binding, err := h.service.Update(c.Request.Context(), actorFromContext(c), c.Param("id"), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, binding, nil)
}

// Delete godoc
// @Summary Soft-delete a binding
// @Tags Bindings
// @Param id path string true "Binding ID"
// @Success 204
// @Router /bindings/{id} [delete]
func (h *BindingHandler) Delete(c *gin.Context) {
	if err := h.service.Delete(c.Request.Context(), actorFromContext(c), c.Param("id")); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}

// ListByTeacher godoc
// @Summary List a teacher's bindings
// @Tags Bindings
// @Produce json
// @Param id path string true "Teacher ID"
// @Param page query int false "Page number"
// @Param page_size query int false "Page size"
// @Success 200 {object} response.Envelope
// @Router /teachers/{id}/bindings [get]
func (h *BindingHandler) ListByTeacher(c *gin.Context) {
	bindings, err := h.service.ListByTeacher(c.Request.Context(), actorFromContext(c), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}

	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	pageSize, _ := strconv.Atoi(c.DefaultQuery("page_size", "20"))
	pagination := models.NewPagination(page, pageSize, len(bindings))

	start := (pagination.Page - 1) * pagination.PageSize
	if start > len(bindings) {
		start = len(bindings)
	}
	end := start + pagination.PageSize
	if end > len(bindings) {
		end = len(bindings)
	}
	response.JSON(c, http.StatusOK, bindings[start:end], pagination)
}

// Replace godoc
// @Summary Bulk replace a binding reference
// @Tags Bindings
// @Accept json
// @Produce json
// @Param payload body service.ReplaceBindingFieldRequest true "Replace payload"
// @Success 200 {object} response.Envelope
// @Router /bindings/replace [post]
func (h *BindingHandler) Replace(c *gin.Context) {
	var req service.ReplaceBindingFieldRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "invalid request body"))
		return
	}
	result, err := h.service.ReplaceField(c.Request.Context(), actorFromContext(c), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, result, nil)
}

// AttachRule godoc
// @Summary Attach a rule to a binding
// @Tags Bindings
// @Param id path string true "Binding ID"
// @Param ruleId path string true "Rule ID"
// @Success 204
// @Router /bindings/{id}/rules/{ruleId} [post]
func (h *BindingHandler) AttachRule(c *gin.Context) {
	if err := h.service.AttachRule(c.Request.Context(), actorFromContext(c), c.Param("id"), c.Param("ruleId")); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}

// DetachRule godoc
// @Summary Detach a rule from a binding
// @Tags Bindings
// @Param id path string true "Binding ID"
// @Param ruleId path string true "Rule ID"
// @Success 204
// @Router /bindings/{id}/rules/{ruleId} [delete]
func (h *BindingHandler) DetachRule(c *gin.Context) {
	if err := h.service.DetachRule(c.Request.Context(), actorFromContext(c), c.Param("id"), c.Param("ruleId")); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}
