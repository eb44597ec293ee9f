package controller

import (
	"medrag-be/internal/dto"
	"medrag-be/internal/pkg/serverutils"
	"medrag-be/internal/service"

	"github.com/gofiber/fiber/v2"
)

type ICaseController interface {
	RegisterRoutes(r fiber.Router, middlewares ...fiber.Handler)
	Details(ctx *fiber.Ctx) error
	Search(ctx *fiber.Ctx) error
}

type caseController struct {
	service service.ICaseService
}

func NewCaseController(service service.ICaseService) ICaseController {
	return &caseController{service: service}
}

func (c *caseController) RegisterRoutes(r fiber.Router, middlewares ...fiber.Handler) {
	h := r.Group("/cases", middlewares...)
	h.Get("/search", c.Search)
	h.Get("/:id", c.Details)
}

func (c *caseController) Details(ctx *fiber.Ctx) error {
	res, err := c.service.Details(ctx.UserContext(), ctx.Params("id"))
	if err != nil {
		return err
	}

	return ctx.JSON(serverutils.SuccessResponse("Success get case details", res))
}

func (c *caseController) Search(ctx *fiber.Ctx) error {
	var req dto.CaseSearchRequest
	if err := bindQuery(ctx, &req); err != nil {
		return err
	}
	if err := serverutils.ValidateRequest(req); err != nil {
		return err
	}

	res, err := c.service.Search(ctx.UserContext(), &req)
	if err != nil {
		return err
	}

	return ctx.JSON(serverutils.SuccessResponse("Success search similar cases", res))
}
