package routes

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/gofiber/fiber/v2"

	"github.com/aframp/aframp_backend/internal/stellar"
	"github.com/aframp/aframp_backend/internal/validation"
)

// ErrorHandler renders domain errors as JSON with a stable error code.
func ErrorHandler(logger *slog.Logger) fiber.ErrorHandler {
	return func(c *fiber.Ctx, err error) error {
		status, body := errorResponse(err)
		if status >= http.StatusInternalServerError {
			logger.Error("request failed", slog.String("path", c.Path()), slog.Any("error", err))
		}
		return c.Status(status).JSON(body)
	}
}

func errorResponse(err error) (int, fiber.Map) {
	var (
		fieldErrs validation.FieldErrors
		fe        *fiber.Error
		se        *stellar.Error
	)
	switch {
	case errors.As(err, &fieldErrs):
		return http.StatusBadRequest, fiber.Map{"error": "validation_error", "message": "invalid request", "fields": fieldErrs}
	case errors.As(err, &fe):
		return fe.Code, fiber.Map{"error": http.StatusText(fe.Code), "message": fe.Message}
	case errors.As(err, &se):
		body := fiber.Map{"error": se.Kind.String(), "message": se.Error()}
		status := http.StatusInternalServerError
		switch se.Kind {
		case stellar.KindInvalidAddress, stellar.KindValidation, stellar.KindSigning:
			status = http.StatusBadRequest
		case stellar.KindAccountNotFound:
			status = http.StatusNotFound
		case stellar.KindTimeout:
			status = http.StatusGatewayTimeout
		case stellar.KindNetwork:
			status = http.StatusBadGateway
		case stellar.KindSubmissionRejected:
			status = http.StatusUnprocessableEntity
			if se.Rejection != nil {
				body["rejection"] = se.Rejection
			}
		}
		return status, body
	default:
		return http.StatusInternalServerError, fiber.Map{"error": "internal_error", "message": "internal server error"}
	}
}
