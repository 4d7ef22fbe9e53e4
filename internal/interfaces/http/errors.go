package http

import (
	"errors"

	"github.com/gofiber/fiber/v2"

	"github.com/SafetyDady/smart-erp-backend/internal/application/dto"
	"github.com/SafetyDady/smart-erp-backend/internal/domain"
)

// errorStatus maps a domain error onto its HTTP status and response code.
// More specific kinds are checked before the kinds they wrap.
func errorStatus(err error) (int, string) {
	switch {
	case errors.Is(err, domain.ErrValidation):
		return fiber.StatusBadRequest, "VALIDATION"
	case errors.Is(err, domain.ErrUnauthorized):
		return fiber.StatusUnauthorized, "UNAUTHORIZED"
	case errors.Is(err, domain.ErrForbidden):
		return fiber.StatusForbidden, "FORBIDDEN"
	case errors.Is(err, domain.ErrNotFound):
		return fiber.StatusNotFound, "NOT_FOUND"
	case errors.Is(err, domain.ErrInsufficientStock):
		return fiber.StatusConflict, "INSUFFICIENT_STOCK"
	case errors.Is(err, domain.ErrAlreadyReversed):
		return fiber.StatusConflict, "ALREADY_REVERSED"
	case errors.Is(err, domain.ErrNotLatestMovement):
		return fiber.StatusConflict, "NOT_LATEST_MOVEMENT"
	case errors.Is(err, domain.ErrDuplicate):
		return fiber.StatusConflict, "DUPLICATE"
	case errors.Is(err, domain.ErrPersistence):
		return fiber.StatusConflict, "PERSISTENCE"
	case errors.Is(err, domain.ErrConflict):
		return fiber.StatusConflict, "CONFLICT"
	case errors.Is(err, domain.ErrLocked):
		return fiber.StatusLocked, "LOCKED"
	case errors.Is(err, domain.ErrUnsupportedUnit):
		return fiber.StatusUnprocessableEntity, "UNSUPPORTED_UNIT"
	case errors.Is(err, domain.ErrUnsupportedOperation):
		return fiber.StatusUnprocessableEntity, "UNSUPPORTED_OPERATION"
	case errors.Is(err, domain.ErrBusy):
		return fiber.StatusServiceUnavailable, "BUSY"
	case errors.Is(err, domain.ErrTimeout):
		return fiber.StatusGatewayTimeout, "TIMEOUT"
	}
	return fiber.StatusInternalServerError, "INTERNAL"
}

// writeError renders err as an ErrorResponse. Internal errors never leak their message.
func writeError(c *fiber.Ctx, err error) error {
	status, code := errorStatus(err)
	body := dto.ErrorResponse{Code: code, Message: err.Error()}
	if status == fiber.StatusInternalServerError {
		body.Message = "internal error"
	}

	var vErr *ValidationError
	var stockErr *domain.InsufficientStockError
	switch {
	case errors.As(err, &vErr):
		body.Details = vErr.Fields
	case errors.As(err, &stockErr):
		body.Details = fiber.Map{
			"product_id": stockErr.ProductID,
			"available":  stockErr.Available.String(),
			"requested":  stockErr.Requested.String(),
		}
	}
	if status == fiber.StatusServiceUnavailable {
		c.Set(fiber.HeaderRetryAfter, "1")
	}
	return c.Status(status).JSON(body)
}

// ErrorHandler is the fiber fallback for errors returned by handlers and for fiber's own errors.
func ErrorHandler(c *fiber.Ctx, err error) error {
	var fe *fiber.Error
	if errors.As(err, &fe) {
		return c.Status(fe.Code).JSON(dto.ErrorResponse{Code: httpCode(fe.Code), Message: fe.Message})
	}
	return writeError(c, err)
}

func httpCode(status int) string {
	switch status {
	case fiber.StatusNotFound:
		return "NOT_FOUND"
	case fiber.StatusMethodNotAllowed:
		return "METHOD_NOT_ALLOWED"
	case fiber.StatusRequestEntityTooLarge:
		return "BODY_TOO_LARGE"
	}
	return "ERROR"
}

func invalidBody(c *fiber.Ctx) error {
	return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Code: "INVALID_BODY", Message: "request body is not valid JSON"})
}

func invalidID(c *fiber.Ctx, name string) error {
	return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Code: "INVALID_ID", Message: name + " must be a positive integer"})
}
