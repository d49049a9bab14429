package handlers

import (
	"github.com/gin-gonic/gin"

	"reportengine/internal/core/apperror"
	"reportengine/internal/infrastructure/http/v1/dto"
	"reportengine/internal/metadata"
)

// MetadataHandler exposes the field registry so clients can build report
// configurations.
type MetadataHandler struct {
	*BaseHandler
	registry *metadata.Registry
}

func NewMetadataHandler(base *BaseHandler, registry *metadata.Registry) *MetadataHandler {
	return &MetadataHandler{
		BaseHandler: base,
		registry:    registry,
	}
}

// ListEntities returns the reportable entities.
// GET /api/v1/reports/entities
func (h *MetadataHandler) ListEntities(c *gin.Context) {
	h.OK(c, dto.FromEntities(h.registry.List()))
}

// GetEntity returns the fields of one entity with their capabilities.
// GET /api/v1/reports/entities/:name
func (h *MetadataHandler) GetEntity(c *gin.Context) {
	name := c.Param("name")
	def, ok := h.registry.Get(name)
	if !ok {
		h.Error(c, apperror.NewNotFound("entity", name))
		return
	}
	h.OK(c, def)
}
