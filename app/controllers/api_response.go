package controllers

import (
	"errors"
	"strconv"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	log "github.com/sirupsen/logrus"
	"gorm.io/gorm"

	"github.com/ManuelReschke/CourseFox/internal/pkg/checkout"
)

var validate = validator.New()

// errResponseHandled signals that a helper already wrote the response.
var errResponseHandled = errors.New("response already handled")

func jsonError(c *fiber.Ctx, status int, message string) error {
	return c.Status(status).JSON(fiber.Map{
		"success": false,
		"message": message,
	})
}

// paramID parses a positive numeric route parameter.
func paramID(c *fiber.Ctx, name string) (uint, bool) {
	id, err := strconv.ParseUint(c.Params(name), 10, 64)
	if err != nil || id == 0 {
		return 0, false
	}
	return uint(id), true
}

// checkoutErrorStatus maps checkout errors to HTTP status codes.
func checkoutErrorStatus(err error) int {
	switch {
	case errors.Is(err, checkout.ErrNotFound), errors.Is(err, gorm.ErrRecordNotFound):
		return fiber.StatusNotFound
	case errors.Is(err, checkout.ErrForbidden):
		return fiber.StatusForbidden
	case errors.Is(err, checkout.ErrConfiguration):
		return fiber.StatusInternalServerError
	case errors.Is(err, checkout.ErrUnprocessable),
		errors.Is(err, checkout.ErrGateway),
		errors.Is(err, checkout.ErrSignatureInvalid),
		errors.Is(err, checkout.ErrAlreadyPurchased),
		errors.Is(err, checkout.ErrInvalidInput):
		return fiber.StatusBadRequest
	default:
		return fiber.StatusInternalServerError
	}
}

// checkoutErrorMessage keeps user facing messages generic. fallback is used
// for everything that is not a caller mistake.
func checkoutErrorMessage(err error, fallback string) string {
	switch {
	case errors.Is(err, checkout.ErrNotFound), errors.Is(err, gorm.ErrRecordNotFound):
		return "Not found"
	case errors.Is(err, checkout.ErrForbidden):
		return "Unauthorized access to this session"
	case errors.Is(err, checkout.ErrUnprocessable):
		return "Payment not completed"
	case errors.Is(err, checkout.ErrAlreadyPurchased):
		return "Course already purchased"
	case errors.Is(err, checkout.ErrSignatureInvalid):
		return "Webhook signature verification failed"
	case errors.Is(err, checkout.ErrInvalidInput):
		return "Invalid request"
	default:
		return fallback
	}
}

func respondCheckoutError(c *fiber.Ctx, err error, fallback string, fields log.Fields) error {
	status := checkoutErrorStatus(err)
	entry := log.WithError(err).WithFields(fields)
	if status >= fiber.StatusInternalServerError {
		entry.Error(fallback)
	} else {
		entry.Warn(fallback)
	}
	return jsonError(c, status, checkoutErrorMessage(err, fallback))
}
