package handler

import (
	"context"
	"errors"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog/log"

	"github.com/coursehub/checkout-system/internal/model"
	"github.com/coursehub/checkout-system/internal/service"
)

// CouponServiceInterface defines the interface for coupon lifecycle logic.
type CouponServiceInterface interface {
	Create(ctx context.Context, req *model.CreateCouponRequest) (*model.Coupon, error)
	GetByCode(ctx context.Context, code string) (*model.Coupon, error)
	AttachToCourse(ctx context.Context, couponID, courseID int64) error
	PromoteRunning(ctx context.Context, couponID, courseID int64) error
}

// CouponHandler handles HTTP requests for coupon operations.
type CouponHandler struct {
	service   CouponServiceInterface
	validator *validator.Validate
}

// NewCouponHandler creates a new CouponHandler with the given service and validator.
func NewCouponHandler(svc CouponServiceInterface, v *validator.Validate) *CouponHandler {
	return &CouponHandler{service: svc, validator: v}
}

// CreateCoupon handles POST /api/coupons requests to create a new coupon.
func (h *CouponHandler) CreateCoupon(c *fiber.Ctx) error {
	var req model.CreateCouponRequest

	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid request body"})
	}
	if err := h.validator.Struct(req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": formatValidationError(err)})
	}

	coupon, err := h.service.Create(c.Context(), &req)
	if err != nil {
		if errors.Is(err, service.ErrCouponCodeExists) {
			return c.Status(fiber.StatusConflict).JSON(fiber.Map{"error": service.ErrCouponCodeExists.Error()})
		}
		if errors.Is(err, service.ErrInvalidRequest) {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": err.Error()})
		}
		log.Error().Err(err).Str("coupon_code", req.Code).Msg("failed to create coupon")
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "internal server error"})
	}

	return c.Status(fiber.StatusCreated).JSON(coupon)
}

// GetCouponByCode handles GET /api/coupons/:code requests.
func (h *CouponHandler) GetCouponByCode(c *fiber.Ctx) error {
	code := c.Params("code")
	if code == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "invalid request: code is required",
		})
	}

	coupon, err := h.service.GetByCode(c.Context(), code)
	if err != nil {
		if errors.Is(err, service.ErrCouponNotFound) {
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "coupon not found"})
		}
		log.Error().Err(err).Str("coupon_code", code).Msg("failed to get coupon")
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "internal server error"})
	}
	return c.JSON(coupon)
}

// AttachCoupon handles POST /api/coupons/attach requests to link a coupon to a course.
func (h *CouponHandler) AttachCoupon(c *fiber.Ctx) error {
	var req model.AttachCouponRequest

	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid request body"})
	}
	if err := h.validator.Struct(req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": formatValidationError(err)})
	}

	if err := h.service.AttachToCourse(c.Context(), req.CouponID, req.CourseID); err != nil {
		if errors.Is(err, service.ErrCouponNotFound) {
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "coupon not found"})
		}
		if errors.Is(err, service.ErrCouponAlreadyAttached) {
			return c.Status(fiber.StatusConflict).JSON(fiber.Map{"error": service.ErrCouponAlreadyAttached.Error()})
		}
		log.Error().Err(err).Int64("coupon_id", req.CouponID).Int64("course_id", req.CourseID).
			Msg("failed to attach coupon")
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "internal server error"})
	}
	return c.Status(fiber.StatusCreated).Send(nil)
}

// PromoteCoupon handles POST /api/coupons/promote requests to make a coupon
// the active discount of its course.
func (h *CouponHandler) PromoteCoupon(c *fiber.Ctx) error {
	var req model.AttachCouponRequest

	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid request body"})
	}
	if err := h.validator.Struct(req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": formatValidationError(err)})
	}

	if err := h.service.PromoteRunning(c.Context(), req.CouponID, req.CourseID); err != nil {
		if errors.Is(err, service.ErrCouponNotAttached) {
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": service.ErrCouponNotAttached.Error()})
		}
		log.Error().Err(err).Int64("coupon_id", req.CouponID).Int64("course_id", req.CourseID).
			Msg("failed to promote coupon")
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "internal server error"})
	}
	return c.Status(fiber.StatusOK).Send(nil)
}
