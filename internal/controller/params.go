package controller

import (
	"medrag-be/pkg/apperror"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
)

func uuidParam(ctx *fiber.Ctx, name string) (uuid.UUID, error) {
	id, err := uuid.Parse(ctx.Params(name))
	if err != nil {
		return uuid.Nil, apperror.Validation("invalid "+name, map[string]string{name: "must be a valid UUID"})
	}
	return id, nil
}

func bindJSON(ctx *fiber.Ctx, req interface{}) error {
	if err := ctx.BodyParser(req); err != nil {
		return apperror.Validation("invalid request body", map[string]string{"body": err.Error()})
	}
	return nil
}

func bindQuery(ctx *fiber.Ctx, req interface{}) error {
	if err := ctx.QueryParser(req); err != nil {
		return apperror.Validation("invalid query parameters", map[string]string{"query": err.Error()})
	}
	return nil
}
