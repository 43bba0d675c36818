package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/nitikorn/featured-slots/internal/domain"
	"github.com/nitikorn/featured-slots/internal/dto"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
)

// MockCatalogService is a mock implementation of CatalogService
type MockCatalogService struct {
	mock.Mock
}

func (m *MockCatalogService) GetEntry(ctx context.Context, category domain.SlotCategory) (*domain.PricingCatalogEntry, error) {
	args := m.Called(ctx, category)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.PricingCatalogEntry), args.Error(1)
}

func (m *MockCatalogService) ListEntries(ctx context.Context) ([]*domain.PricingCatalogEntry, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*domain.PricingCatalogEntry), args.Error(1)
}

func (m *MockCatalogService) UpdateEntry(ctx context.Context, category domain.SlotCategory, req *dto.PricingEntryRequest) (*domain.PricingCatalogEntry, error) {
	args := m.Called(ctx, category, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.PricingCatalogEntry), args.Error(1)
}

func setupPricingTestRouter(handler *PricingHandler) *gin.Engine {
	gin.SetMode(gin.TestMode)
	router := gin.New()

	pricing := router.Group("/featured/pricing")
	{
		pricing.GET("", handler.ListEntries)
		pricing.GET("/:category", handler.GetEntry)
		pricing.PUT("/:category", handler.UpdateEntry)
	}

	return router
}

func TestPricingHandler_ListEntries(t *testing.T) {
	mockCatalog := new(MockCatalogService)
	router := setupPricingTestRouter(NewPricingHandler(mockCatalog))

	entries := []*domain.PricingCatalogEntry{
		{SlotCategory: domain.SlotCategoryHero, PricePerDay: 150000, MinDays: 3, MaxConcurrent: 2, Active: true},
		{SlotCategory: domain.SlotCategoryCarousel, PricePerDay: 40000, MinDays: 1, MaxConcurrent: 5, Active: true},
	}

	mockCatalog.On("ListEntries", mock.Anything).Return(entries, nil)

	req, _ := http.NewRequest("GET", "/featured/pricing", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)

	var response struct {
		Entries []*domain.PricingCatalogEntry `json:"entries"`
	}
	err := json.Unmarshal(w.Body.Bytes(), &response)
	assert.NoError(t, err)
	assert.Len(t, response.Entries, 2)
	assert.Equal(t, int64(150000), response.Entries[0].PricePerDay)

	mockCatalog.AssertExpectations(t)
}

func TestPricingHandler_GetEntry(t *testing.T) {
	mockCatalog := new(MockCatalogService)
	router := setupPricingTestRouter(NewPricingHandler(mockCatalog))

	entry := &domain.PricingCatalogEntry{
		SlotCategory:  domain.SlotCategoryHero,
		PricePerDay:   150000,
		MinDays:       3,
		MaxConcurrent: 2,
		Active:        true,
	}

	mockCatalog.On("GetEntry", mock.Anything, domain.SlotCategoryHero).Return(entry, nil)

	req, _ := http.NewRequest("GET", "/featured/pricing/hero", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)

	var response domain.PricingCatalogEntry
	err := json.Unmarshal(w.Body.Bytes(), &response)
	assert.NoError(t, err)
	assert.Equal(t, domain.SlotCategoryHero, response.SlotCategory)
	assert.Equal(t, 3, response.MinDays)

	mockCatalog.AssertExpectations(t)
}

func TestPricingHandler_GetEntry_NotFound(t *testing.T) {
	mockCatalog := new(MockCatalogService)
	router := setupPricingTestRouter(NewPricingHandler(mockCatalog))

	mockCatalog.On("GetEntry", mock.Anything, domain.SlotCategory("banner")).Return(nil, domain.ErrCategoryNotFound)

	req, _ := http.NewRequest("GET", "/featured/pricing/banner", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusNotFound, w.Code)

	var response dto.ErrorResponse
	err := json.Unmarshal(w.Body.Bytes(), &response)
	assert.NoError(t, err)
	assert.Equal(t, "CATEGORY_NOT_FOUND", response.Code)

	mockCatalog.AssertExpectations(t)
}

func TestPricingHandler_UpdateEntry(t *testing.T) {
	mockCatalog := new(MockCatalogService)
	router := setupPricingTestRouter(NewPricingHandler(mockCatalog))

	updated := &domain.PricingCatalogEntry{
		SlotCategory:  domain.SlotCategoryHero,
		PricePerDay:   200000,
		MinDays:       3,
		MaxConcurrent: 2,
		Active:        true,
	}

	mockCatalog.On("UpdateEntry", mock.Anything, domain.SlotCategoryHero, mock.AnythingOfType("*dto.PricingEntryRequest")).Return(updated, nil)

	reqBody := dto.PricingEntryRequest{
		PricePerDay:   200000,
		MinDays:       3,
		MaxConcurrent: 2,
	}
	body, _ := json.Marshal(reqBody)

	req, _ := http.NewRequest("PUT", "/featured/pricing/hero", bytes.NewBuffer(body))
	req.Header.Set("Content-Type", "application/json")

	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)

	var response domain.PricingCatalogEntry
	err := json.Unmarshal(w.Body.Bytes(), &response)
	assert.NoError(t, err)
	assert.Equal(t, int64(200000), response.PricePerDay)

	mockCatalog.AssertExpectations(t)
}

func TestPricingHandler_UpdateEntry_InvalidRequest(t *testing.T) {
	mockCatalog := new(MockCatalogService)
	router := setupPricingTestRouter(NewPricingHandler(mockCatalog))

	// price_per_day must be at least 1
	body, _ := json.Marshal(map[string]any{"price_per_day": 0, "min_days": 1, "max_concurrent": 1})

	req, _ := http.NewRequest("PUT", "/featured/pricing/hero", bytes.NewBuffer(body))
	req.Header.Set("Content-Type", "application/json")

	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)
}
