package handler

import (
	"context"
	"errors"
	"strconv"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"

	"github.com/coursehub/checkout-system/internal/model"
	"github.com/coursehub/checkout-system/internal/service"
	"github.com/coursehub/checkout-system/pkg/metrics"
)

// CheckoutServiceInterface defines the interface for checkout business logic.
type CheckoutServiceInterface interface {
	Checkout(ctx context.Context, req *model.CheckoutRequest) (*model.CheckoutResult, error)
	ListPayments(ctx context.Context, filter model.PaymentFilter) ([]model.PaymentSummary, error)
}

// PaymentHandler handles HTTP requests for checkout and payment history.
type PaymentHandler struct {
	service   CheckoutServiceInterface
	validator *validator.Validate
	metrics   *metrics.CheckoutMetrics
}

// NewPaymentHandler creates a new PaymentHandler with the given service,
// validator, and metrics.
func NewPaymentHandler(svc CheckoutServiceInterface, v *validator.Validate, m *metrics.CheckoutMetrics) *PaymentHandler {
	return &PaymentHandler{service: svc, validator: v, metrics: m}
}

// formatValidationError converts validator errors to client-facing messages.
func formatValidationError(err error) string {
	var ve validator.ValidationErrors
	if errors.As(err, &ve) {
		for _, fe := range ve {
			field := fe.Field()
			switch fe.Tag() {
			case "required":
				return "invalid request: " + field + " is required"
			case "gt", "gte":
				return "invalid request: " + field + " must be positive"
			case "max":
				return "invalid request: " + field + " exceeds maximum length"
			case "notblank":
				return "invalid request: " + field + " cannot be whitespace only"
			case "oneof":
				return "invalid request: " + field + " has an unsupported value"
			default:
				return "invalid request: " + field + " is invalid"
			}
		}
	}
	return "invalid request"
}

// checkoutFailureReason labels aborted checkouts for the failure counter.
func checkoutFailureReason(err error) string {
	switch {
	case errors.Is(err, service.ErrEmptyCart):
		return "empty_cart"
	case errors.Is(err, service.ErrCourseNotFound):
		return "course_not_found"
	case errors.Is(err, service.ErrCourseNotInCart):
		return "course_not_in_cart"
	case errors.Is(err, service.ErrPriceMismatch):
		return "price_mismatch"
	case errors.Is(err, service.ErrCouponExhausted):
		return "coupon_exhausted"
	case errors.Is(err, service.ErrCouponNotFound), errors.Is(err, service.ErrCouponNotGlobal):
		return "bad_coupon"
	case errors.Is(err, service.ErrInvalidRequest):
		return "invalid_request"
	default:
		return "internal"
	}
}

// CreatePayment handles POST /api/payments requests to run a checkout.
func (h *PaymentHandler) CreatePayment(c *fiber.Ctx) error {
	var req model.CheckoutRequest

	// Parse JSON body
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid request body"})
	}

	// Validate request
	if err := h.validator.Struct(req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": formatValidationError(err)})
	}

	result, err := h.service.Checkout(c.Context(), &req)
	if err != nil {
		h.metrics.Failed.WithLabelValues(checkoutFailureReason(err)).Inc()

		switch {
		case errors.Is(err, service.ErrEmptyCart),
			errors.Is(err, service.ErrCourseNotFound),
			errors.Is(err, service.ErrCourseNotInCart),
			errors.Is(err, service.ErrCouponNotFound),
			errors.Is(err, service.ErrCouponNotGlobal),
			errors.Is(err, service.ErrInvalidRequest):
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": err.Error()})
		case errors.Is(err, service.ErrPriceMismatch):
			// Distinct flag so the client knows to refresh its cart state and retry.
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
				"error":     service.ErrPriceMismatch.Error(),
				"integrity": true,
			})
		case errors.Is(err, service.ErrCouponExhausted):
			return c.Status(fiber.StatusConflict).JSON(fiber.Map{"error": service.ErrCouponExhausted.Error()})
		}

		log.Error().
			Err(err).
			Str("request_id", c.GetRespHeader("X-Request-ID")).
			Int64("user_id", req.UserID).
			Int("item_count", len(req.ItemCart)).
			Msg("checkout failed")
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "internal server error"})
	}

	h.metrics.Succeeded.Inc()
	if len(result.Warnings) == 0 {
		h.metrics.Fulfillment.WithLabelValues("ok").Inc()
	} else {
		h.metrics.Fulfillment.WithLabelValues("partial").Inc()
	}

	log.Info().
		Str("request_id", c.GetRespHeader("X-Request-ID")).
		Int64("user_id", req.UserID).
		Int64("payment_id", result.Payment.ID).
		Str("final_price", result.Payment.FinalPrice.String()).
		Int("warnings", len(result.Warnings)).
		Msg("checkout committed")

	return c.JSON(result)
}

// ListPayments handles GET /api/payments requests for paginated payment history.
func (h *PaymentHandler) ListPayments(c *fiber.Ctx) error {
	filter, err := parsePaymentFilter(c)
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": err.Error()})
	}

	payments, err := h.service.ListPayments(c.Context(), filter)
	if err != nil {
		log.Error().Err(err).Msg("failed to list payments")
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "internal server error"})
	}
	return c.JSON(payments)
}

func parsePaymentFilter(c *fiber.Ctx) (model.PaymentFilter, error) {
	filter := model.PaymentFilter{
		Limit: c.QueryInt("limit", 20),
		Skip:  c.QueryInt("skip", 0),
	}

	if raw := c.Query("userId"); raw != "" {
		id, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			return filter, errors.New("invalid request: userId must be an integer")
		}
		filter.UserID = &id
	}
	if raw := c.Query("startDate"); raw != "" {
		t, err := parseDate(raw)
		if err != nil {
			return filter, errors.New("invalid request: startDate must be RFC3339 or YYYY-MM-DD")
		}
		filter.StartDate = &t
	}
	if raw := c.Query("endDate"); raw != "" {
		t, err := parseDate(raw)
		if err != nil {
			return filter, errors.New("invalid request: endDate must be RFC3339 or YYYY-MM-DD")
		}
		filter.EndDate = &t
	}
	if raw := c.Query("minPrice"); raw != "" {
		d, err := decimal.NewFromString(raw)
		if err != nil {
			return filter, errors.New("invalid request: minPrice must be a number")
		}
		filter.MinPrice = &d
	}
	if raw := c.Query("maxPrice"); raw != "" {
		d, err := decimal.NewFromString(raw)
		if err != nil {
			return filter, errors.New("invalid request: maxPrice must be a number")
		}
		filter.MaxPrice = &d
	}
	return filter, nil
}

func parseDate(raw string) (time.Time, error) {
	if t, err := time.Parse(time.RFC3339, raw); err == nil {
		return t, nil
	}
	return time.Parse("2006-01-02", raw)
}
