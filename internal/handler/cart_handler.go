package handler

import (
	"context"
	"errors"
	"strconv"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog/log"

	"github.com/coursehub/checkout-system/internal/model"
	"github.com/coursehub/checkout-system/internal/service"
)

// CartServiceInterface defines the interface for cart business logic.
type CartServiceInterface interface {
	Add(ctx context.Context, userID, courseID int64) error
	Remove(ctx context.Context, userID, courseID int64) error
	List(ctx context.Context, userID int64) ([]model.CartItemView, error)
}

// CartHandler handles HTTP requests for cart operations.
type CartHandler struct {
	service   CartServiceInterface
	validator *validator.Validate
}

// NewCartHandler creates a new CartHandler with the given service and validator.
func NewCartHandler(svc CartServiceInterface, v *validator.Validate) *CartHandler {
	return &CartHandler{service: svc, validator: v}
}

// AddToCart handles POST /api/cart requests.
func (h *CartHandler) AddToCart(c *fiber.Ctx) error {
	var req model.AddCartRequest

	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid request body"})
	}
	if err := h.validator.Struct(req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": formatValidationError(err)})
	}

	if err := h.service.Add(c.Context(), req.UserID, req.CourseID); err != nil {
		if errors.Is(err, service.ErrCourseNotFound) {
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "course not found"})
		}
		if errors.Is(err, service.ErrAlreadyInCart) {
			return c.Status(fiber.StatusConflict).JSON(fiber.Map{"error": service.ErrAlreadyInCart.Error()})
		}
		log.Error().Err(err).Int64("user_id", req.UserID).Int64("course_id", req.CourseID).
			Msg("failed to add course to cart")
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "internal server error"})
	}
	return c.Status(fiber.StatusCreated).Send(nil)
}

// ListCart handles GET /api/cart/:userId requests, returning the cart with
// live prices.
func (h *CartHandler) ListCart(c *fiber.Ctx) error {
	userID, err := strconv.ParseInt(c.Params("userId"), 10, 64)
	if err != nil || userID <= 0 {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid request: userId must be a positive integer"})
	}

	items, err := h.service.List(c.Context(), userID)
	if err != nil {
		log.Error().Err(err).Int64("user_id", userID).Msg("failed to list cart")
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "internal server error"})
	}
	return c.JSON(items)
}

// RemoveFromCart handles DELETE /api/cart/:userId/:courseId requests.
func (h *CartHandler) RemoveFromCart(c *fiber.Ctx) error {
	userID, err := strconv.ParseInt(c.Params("userId"), 10, 64)
	if err != nil || userID <= 0 {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid request: userId must be a positive integer"})
	}
	courseID, err := strconv.ParseInt(c.Params("courseId"), 10, 64)
	if err != nil || courseID <= 0 {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid request: courseId must be a positive integer"})
	}

	if err := h.service.Remove(c.Context(), userID, courseID); err != nil {
		log.Error().Err(err).Int64("user_id", userID).Int64("course_id", courseID).
			Msg("failed to remove course from cart")
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "internal server error"})
	}
	return c.SendStatus(fiber.StatusNoContent)
}
