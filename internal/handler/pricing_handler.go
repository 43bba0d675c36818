package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/nitikorn/featured-slots/internal/domain"
	"github.com/nitikorn/featured-slots/internal/dto"
	"github.com/nitikorn/featured-slots/internal/service"
	"github.com/nitikorn/featured-slots/pkg/telemetry"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
)

// PricingHandler handles pricing catalog HTTP requests
type PricingHandler struct {
	catalogService service.CatalogService
}

// NewPricingHandler creates a new pricing handler
func NewPricingHandler(catalogService service.CatalogService) *PricingHandler {
	return &PricingHandler{catalogService: catalogService}
}

// ListEntries handles GET /featured/pricing
func (h *PricingHandler) ListEntries(c *gin.Context) {
	ctx, span := telemetry.StartSpan(c.Request.Context(), "handler.pricing.list")
	defer span.End()
	c.Request = c.Request.WithContext(ctx)

	entries, err := h.catalogService.ListEntries(ctx)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		h.handleError(c, err)
		return
	}

	span.SetStatus(codes.Ok, "")
	c.JSON(http.StatusOK, gin.H{"entries": entries})
}

// GetEntry handles GET /featured/pricing/:category
func (h *PricingHandler) GetEntry(c *gin.Context) {
	ctx, span := telemetry.StartSpan(c.Request.Context(), "handler.pricing.get")
	defer span.End()
	c.Request = c.Request.WithContext(ctx)

	category := domain.SlotCategory(c.Param("category"))
	span.SetAttributes(attribute.String("slot_category", category.String()))

	entry, err := h.catalogService.GetEntry(ctx, category)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		h.handleError(c, err)
		return
	}

	span.SetStatus(codes.Ok, "")
	c.JSON(http.StatusOK, entry)
}

// UpdateEntry handles PUT /featured/pricing/:category
func (h *PricingHandler) UpdateEntry(c *gin.Context) {
	ctx, span := telemetry.StartSpan(c.Request.Context(), "handler.pricing.update")
	defer span.End()
	c.Request = c.Request.WithContext(ctx)

	category := domain.SlotCategory(c.Param("category"))
	span.SetAttributes(attribute.String("slot_category", category.String()))

	var req dto.PricingEntryRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "invalid request")
		c.JSON(http.StatusBadRequest, dto.ErrorResponse{
			Error:   "invalid request",
			Code:    "INVALID_REQUEST",
			Message: err.Error(),
		})
		return
	}

	entry, err := h.catalogService.UpdateEntry(ctx, category, &req)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		h.handleError(c, err)
		return
	}

	span.SetStatus(codes.Ok, "")
	c.JSON(http.StatusOK, entry)
}

func (h *PricingHandler) handleError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, domain.ErrCategoryNotFound):
		c.JSON(http.StatusNotFound, dto.ErrorResponse{
			Error: err.Error(),
			Code:  "CATEGORY_NOT_FOUND",
		})
	default:
		c.JSON(http.StatusInternalServerError, dto.ErrorResponse{
			Error: "internal server error",
			Code:  "INTERNAL_ERROR",
		})
	}
}
