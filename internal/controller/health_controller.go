package controller

import (
	"medrag-be/internal/pkg/serverutils"
	"medrag-be/internal/service"

	"github.com/gofiber/fiber/v2"
)

type IHealthController interface {
	RegisterRoutes(r fiber.Router)
	Health(ctx *fiber.Ctx) error
	Stats(ctx *fiber.Ctx) error
}

type healthController struct {
	service service.IHealthService
}

func NewHealthController(service service.IHealthService) IHealthController {
	return &healthController{service: service}
}

func (c *healthController) RegisterRoutes(r fiber.Router) {
	r.Get("/health", c.Health)
	r.Get("/stats", c.Stats)
}

func (c *healthController) Health(ctx *fiber.Ctx) error {
	return ctx.JSON(c.service.Check(ctx.UserContext()))
}

func (c *healthController) Stats(ctx *fiber.Ctx) error {
	res, err := c.service.Stats(ctx.UserContext())
	if err != nil {
		return err
	}

	return ctx.JSON(serverutils.SuccessResponse("Success get stats", res))
}
