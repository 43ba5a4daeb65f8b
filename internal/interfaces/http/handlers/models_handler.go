package handlers

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/turtacn/Opinion-Intelligence/internal/intelligence/common"
	"github.com/turtacn/Opinion-Intelligence/pkg/errors"
)

// ModelsHandler lists the loaded models.
type ModelsHandler struct {
	registry *common.ModelRegistry
	task     string
}

// NewModelsHandler creates the handler for registry.
func NewModelsHandler(registry *common.ModelRegistry, task string) *ModelsHandler {
	return &ModelsHandler{registry: registry, task: task}
}

// ModelsResponse is the body of GET /api/v1/models.
type ModelsResponse struct {
	Task   string                  `json:"task"`
	Models []*common.ModelMetadata `json:"models"`
}

// List handles GET /api/v1/models.
func (h *ModelsHandler) List(c *gin.Context) {
	c.JSON(http.StatusOK, ModelsResponse{Task: h.task, Models: h.registry.List()})
}

// Get handles GET /api/v1/models/:name.
func (h *ModelsHandler) Get(c *gin.Context) {
	meta, err := h.registry.Get(c.Param("name"))
	if err != nil {
		writeAppError(c, errors.Wrap(err, errors.ErrCodeNotFound, "model not loaded").WithDetail("name="+c.Param("name")))
		return
	}
	c.JSON(http.StatusOK, meta)
}

// ModelsLoaded is a readiness check that fails until registry holds at
// least one model.
func ModelsLoaded(registry *common.ModelRegistry) HealthChecker {
	return CheckFunc{CheckName: "models", Fn: func(context.Context) error {
		if registry.Len() == 0 {
			return errors.New(errors.ErrCodeModelNotFound, "no model loaded")
		}
		return nil
	}}
}
