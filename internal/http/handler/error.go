package handler

import (
	"errors"
	"log/slog"

	"github.com/gofiber/fiber/v2"

	"uploadstore/internal/http/middleware"
)

// errorPayload defines the standardized error response body.
type errorPayload struct {
	RequestID string        `json:"request_id"`
	Error     errorEnvelope `json:"error"`
}

type errorEnvelope struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// fiberErrorCodes maps framework errors to the machine-readable codes clients see.
var fiberErrorCodes = map[int]errorEnvelope{
	fiber.StatusBadRequest:            {"BAD_REQUEST", "bad request"},
	fiber.StatusNotFound:              {"NOT_FOUND", "resource not found"},
	fiber.StatusMethodNotAllowed:      {"METHOD_NOT_ALLOWED", "method not allowed"},
	fiber.StatusRequestTimeout:        {"REQUEST_TIMEOUT", "request timeout"},
	fiber.StatusRequestEntityTooLarge: {"PAYLOAD_TOO_LARGE", "payload too large"},
	fiber.StatusUnsupportedMediaType:  {"UNSUPPORTED_MEDIA_TYPE", "unsupported media type"},
}

// writeError writes a standardized JSON error response. code is a short machine-readable
// identifier such as "NOT_FOUND"; message must be safe to show to clients.
func writeError(c *fiber.Ctx, status int, code, message string) error {
	res := errorPayload{
		RequestID: middleware.RequestIDFrom(c),
		Error: errorEnvelope{
			Code:    code,
			Message: message,
		},
	}
	return c.Status(status).JSON(res)
}

// ErrorHandler returns a Fiber global error handler that standardizes error responses.
// Errors that are not *fiber.Error are logged and reported as INTERNAL_ERROR.
func ErrorHandler() fiber.ErrorHandler {
	return func(c *fiber.Ctx, err error) error {
		var fe *fiber.Error
		if !errors.As(err, &fe) {
			slog.Default().ErrorContext(c.UserContext(), "unhandled request error",
				"component", "http",
				"request_id", middleware.RequestIDFrom(c),
				"path", c.Path(),
				"error", err,
			)
			return writeError(c, fiber.StatusInternalServerError, "INTERNAL_ERROR", "internal server error")
		}

		if env, ok := fiberErrorCodes[fe.Code]; ok {
			return writeError(c, fe.Code, env.Code, env.Message)
		}
		if fe.Code >= fiber.StatusInternalServerError {
			return writeError(c, fe.Code, "INTERNAL_ERROR", "internal server error")
		}
		return writeError(c, fe.Code, "REQUEST_ERROR", fe.Message)
	}
}
