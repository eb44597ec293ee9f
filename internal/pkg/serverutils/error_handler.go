package serverutils

import (
	"errors"

	"medrag-be/pkg/apperror"

	"github.com/gofiber/fiber/v2"
)

// StatusFor maps an error kind to its HTTP status.
func StatusFor(kind apperror.Kind) int {
	switch kind {
	case apperror.KindValidation:
		return fiber.StatusBadRequest
	case apperror.KindNotFound:
		return fiber.StatusNotFound
	case apperror.KindPrecondition:
		return fiber.StatusConflict
	case apperror.KindEngineUnavailable:
		return fiber.StatusServiceUnavailable
	case apperror.KindTimeout:
		return fiber.StatusGatewayTimeout
	default:
		return fiber.StatusInternalServerError
	}
}

// ErrorHandlerMiddleware turns errors returned by handlers into the standard error envelope.
func ErrorHandlerMiddleware() fiber.Handler {
	return func(ctx *fiber.Ctx) error {
		err := ctx.Next()
		if err == nil {
			return nil
		}
		return WriteError(ctx, err)
	}
}

func WriteError(ctx *fiber.Ctx, err error) error {
	var fiberErr *fiber.Error
	if errors.As(err, &fiberErr) {
		return ctx.Status(fiberErr.Code).JSON(ErrorResponse(fiberErr.Code, fiberErr.Message))
	}

	var appErr *apperror.AppError
	if !errors.As(err, &appErr) {
		return ctx.Status(fiber.StatusInternalServerError).JSON(ErrorResponse(fiber.StatusInternalServerError, err.Error()))
	}

	code := StatusFor(appErr.Kind)
	if appErr.Kind == apperror.KindValidation {
		resp := ValidationErrorResponse(appErr.Message, appErr.Fields)
		return ctx.Status(code).JSON(resp)
	}
	return ctx.Status(code).JSON(ErrorResponse(code, appErr.Error()))
}
