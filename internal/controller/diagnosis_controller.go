package controller

import (
	"fmt"

	"medrag-be/internal/dto"
	"medrag-be/internal/pkg/serverutils"
	"medrag-be/internal/service"

	"github.com/gofiber/fiber/v2"
)

type IDiagnosisController interface {
	RegisterRoutes(r fiber.Router, middlewares ...fiber.Handler)
	Start(ctx *fiber.Ctx) error
	Status(ctx *fiber.Ctx) error
	Export(ctx *fiber.Ctx) error
	Download(ctx *fiber.Ctx) error
	Feedback(ctx *fiber.Ctx) error
	Summary(ctx *fiber.Ctx) error
	Delete(ctx *fiber.Ctx) error
}

type diagnosisController struct {
	service service.IDiagnosisService
}

func NewDiagnosisController(service service.IDiagnosisService) IDiagnosisController {
	return &diagnosisController{service: service}
}

func (c *diagnosisController) RegisterRoutes(r fiber.Router, middlewares ...fiber.Handler) {
	h := r.Group("/diagnosis", middlewares...)
	h.Post("/start", c.Start)
	h.Get("/:id", c.Status)
	h.Post("/:id/export", c.Export)
	h.Get("/:id/download/:ref", c.Download)
	h.Post("/:id/feedback", c.Feedback)
	h.Get("/:id/summary", c.Summary)
	h.Delete("/:id", c.Delete)
}

func (c *diagnosisController) Start(ctx *fiber.Ctx) error {
	var req dto.StartDiagnosisRequest
	if err := bindJSON(ctx, &req); err != nil {
		return err
	}

	res, err := c.service.Start(ctx.UserContext(), &req)
	if err != nil {
		return err
	}

	return ctx.Status(fiber.StatusAccepted).JSON(serverutils.SuccessResponse("Diagnosis started", res))
}

func (c *diagnosisController) Status(ctx *fiber.Ctx) error {
	id, err := uuidParam(ctx, "id")
	if err != nil {
		return err
	}

	res, err := c.service.Status(ctx.UserContext(), id)
	if err != nil {
		return err
	}

	return ctx.JSON(serverutils.SuccessResponse("Success get diagnosis status", res))
}

func (c *diagnosisController) Export(ctx *fiber.Ctx) error {
	id, err := uuidParam(ctx, "id")
	if err != nil {
		return err
	}

	var req dto.ExportDiagnosisRequest
	if err := bindJSON(ctx, &req); err != nil {
		return err
	}
	if err := serverutils.ValidateRequest(req); err != nil {
		return err
	}

	res, err := c.service.Export(ctx.UserContext(), id, &req)
	if err != nil {
		return err
	}

	return ctx.JSON(serverutils.SuccessResponse("Success export diagnosis", res))
}

func (c *diagnosisController) Download(ctx *fiber.Ctx) error {
	id, err := uuidParam(ctx, "id")
	if err != nil {
		return err
	}

	download, err := c.service.Download(ctx.UserContext(), id, ctx.Params("ref"))
	if err != nil {
		return err
	}

	ctx.Set(fiber.HeaderContentType, download.ContentType)
	ctx.Set(fiber.HeaderContentDisposition, fmt.Sprintf("attachment; filename=%q", download.Name))
	return ctx.Send(download.Data)
}

func (c *diagnosisController) Feedback(ctx *fiber.Ctx) error {
	id, err := uuidParam(ctx, "id")
	if err != nil {
		return err
	}

	var req dto.FeedbackRequest
	if err := bindJSON(ctx, &req); err != nil {
		return err
	}
	if err := serverutils.ValidateRequest(req); err != nil {
		return err
	}

	res, err := c.service.SubmitFeedback(ctx.UserContext(), id, &req)
	if err != nil {
		return err
	}

	return ctx.JSON(serverutils.SuccessResponse("Feedback submitted successfully", res))
}

func (c *diagnosisController) Summary(ctx *fiber.Ctx) error {
	id, err := uuidParam(ctx, "id")
	if err != nil {
		return err
	}

	res, err := c.service.Summary(ctx.UserContext(), id)
	if err != nil {
		return err
	}

	return ctx.JSON(serverutils.SuccessResponse("Success get diagnosis summary", res))
}

func (c *diagnosisController) Delete(ctx *fiber.Ctx) error {
	id, err := uuidParam(ctx, "id")
	if err != nil {
		return err
	}

	if err := c.service.Delete(ctx.UserContext(), id); err != nil {
		return err
	}

	return ctx.JSON(serverutils.SuccessResponse[any]("Diagnosis session deleted", nil))
}
