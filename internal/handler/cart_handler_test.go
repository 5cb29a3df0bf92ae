package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/coursehub/checkout-system/internal/model"
	"github.com/coursehub/checkout-system/internal/service"
	appvalidator "github.com/coursehub/checkout-system/internal/validator"
)

// mockCartService is a mock implementation of CartServiceInterface.
type mockCartService struct {
	addFn    func(ctx context.Context, userID, courseID int64) error
	removeFn func(ctx context.Context, userID, courseID int64) error
	listFn   func(ctx context.Context, userID int64) ([]model.CartItemView, error)
}

func (m *mockCartService) Add(ctx context.Context, userID, courseID int64) error {
	if m.addFn != nil {
		return m.addFn(ctx, userID, courseID)
	}
	return nil
}

func (m *mockCartService) Remove(ctx context.Context, userID, courseID int64) error {
	if m.removeFn != nil {
		return m.removeFn(ctx, userID, courseID)
	}
	return nil
}

func (m *mockCartService) List(ctx context.Context, userID int64) ([]model.CartItemView, error) {
	if m.listFn != nil {
		return m.listFn(ctx, userID)
	}
	return []model.CartItemView{}, nil
}

func setupCartApp(mockSvc *mockCartService) *fiber.App {
	app := fiber.New()
	h := NewCartHandler(mockSvc, appvalidator.New())
	app.Post("/api/cart", h.AddToCart)
	app.Get("/api/cart/:userId", h.ListCart)
	app.Delete("/api/cart/:userId/:courseId", h.RemoveFromCart)
	return app
}

func TestAddToCart_Created(t *testing.T) {
	app := setupCartApp(&mockCartService{})

	resp := postJSON(t, app, "/api/cart", `{"userId": 1, "courseId": 10}`)

	assert.Equal(t, fiber.StatusCreated, resp.StatusCode)
}

func TestAddToCart_MissingCourseID(t *testing.T) {
	app := setupCartApp(&mockCartService{})

	resp := postJSON(t, app, "/api/cart", `{"userId": 1}`)

	assert.Equal(t, fiber.StatusBadRequest, resp.StatusCode)

	var result map[string]string
	err := json.NewDecoder(resp.Body).Decode(&result)
	require.NoError(t, err)
	assert.Equal(t, "invalid request: CourseID is required", result["error"])
}

func TestAddToCart_UnknownCourse(t *testing.T) {
	mockSvc := &mockCartService{
		addFn: func(ctx context.Context, userID, courseID int64) error {
			return service.ErrCourseNotFound
		},
	}
	app := setupCartApp(mockSvc)

	resp := postJSON(t, app, "/api/cart", `{"userId": 1, "courseId": 99}`)

	assert.Equal(t, fiber.StatusNotFound, resp.StatusCode)
}

func TestAddToCart_AlreadyInCart(t *testing.T) {
	mockSvc := &mockCartService{
		addFn: func(ctx context.Context, userID, courseID int64) error {
			return service.ErrAlreadyInCart
		},
	}
	app := setupCartApp(mockSvc)

	resp := postJSON(t, app, "/api/cart", `{"userId": 1, "courseId": 10}`)

	assert.Equal(t, fiber.StatusConflict, resp.StatusCode)
}

func TestListCart_ReturnsLivePrices(t *testing.T) {
	couponID := int64(5)
	mockSvc := &mockCartService{
		listFn: func(ctx context.Context, userID int64) ([]model.CartItemView, error) {
			return []model.CartItemView{
				{
					CourseID:    10,
					CourseTitle: "Go from Zero",
					CouponID:    &couponID,
					Price:       decimal.RequireFromString("100000"),
					FinalPrice:  decimal.RequireFromString("85000"),
				},
			}, nil
		},
	}
	app := setupCartApp(mockSvc)

	req := httptest.NewRequest(http.MethodGet, "/api/cart/1", nil)
	resp, err := app.Test(req)
	require.NoError(t, err)

	assert.Equal(t, fiber.StatusOK, resp.StatusCode)

	var views []model.CartItemView
	err = json.NewDecoder(resp.Body).Decode(&views)
	require.NoError(t, err)
	require.Len(t, views, 1)
	assert.Equal(t, "Go from Zero", views[0].CourseTitle)
	assert.True(t, views[0].FinalPrice.Equal(decimal.RequireFromString("85000")))
}

func TestListCart_InvalidUserID(t *testing.T) {
	app := setupCartApp(&mockCartService{})

	req := httptest.NewRequest(http.MethodGet, "/api/cart/abc", nil)
	resp, err := app.Test(req)
	require.NoError(t, err)

	assert.Equal(t, fiber.StatusBadRequest, resp.StatusCode)
}

func TestRemoveFromCart_NoContent(t *testing.T) {
	var removed bool
	mockSvc := &mockCartService{
		removeFn: func(ctx context.Context, userID, courseID int64) error {
			removed = true
			return nil
		},
	}
	app := setupCartApp(mockSvc)

	req := httptest.NewRequest(http.MethodDelete, "/api/cart/1/10", nil)
	resp, err := app.Test(req)
	require.NoError(t, err)

	assert.Equal(t, fiber.StatusNoContent, resp.StatusCode)
	assert.True(t, removed)
}

func TestRemoveFromCart_InvalidCourseID(t *testing.T) {
	app := setupCartApp(&mockCartService{})

	req := httptest.NewRequest(http.MethodDelete, "/api/cart/1/zero", nil)
	resp, err := app.Test(req)
	require.NoError(t, err)

	assert.Equal(t, fiber.StatusBadRequest, resp.StatusCode)
}
