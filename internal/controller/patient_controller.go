package controller

import (
	"medrag-be/internal/dto"
	"medrag-be/internal/pkg/serverutils"
	"medrag-be/internal/service"

	"github.com/gofiber/fiber/v2"
)

type IPatientController interface {
	RegisterRoutes(r fiber.Router, middlewares ...fiber.Handler)
	Create(ctx *fiber.Ctx) error
	Show(ctx *fiber.Ctx) error
	Update(ctx *fiber.Ctx) error
	Delete(ctx *fiber.Ctx) error
	List(ctx *fiber.Ctx) error
	Sessions(ctx *fiber.Ctx) error
}

type patientController struct {
	service service.IPatientService
}

func NewPatientController(service service.IPatientService) IPatientController {
	return &patientController{service: service}
}

func (c *patientController) RegisterRoutes(r fiber.Router, middlewares ...fiber.Handler) {
	h := r.Group("/patients", middlewares...)
	h.Get("", c.List)
	h.Post("", c.Create)
	h.Get("/:id", c.Show)
	h.Put("/:id", c.Update)
	h.Delete("/:id", c.Delete)
	h.Get("/:id/sessions", c.Sessions)
}

func (c *patientController) Create(ctx *fiber.Ctx) error {
	var req dto.CreatePatientRequest
	if err := bindJSON(ctx, &req); err != nil {
		return err
	}
	if err := serverutils.ValidateRequest(req); err != nil {
		return err
	}

	res, err := c.service.Create(ctx.UserContext(), &req)
	if err != nil {
		return err
	}

	return ctx.Status(fiber.StatusCreated).JSON(serverutils.SuccessResponse("Patient created successfully", res))
}

func (c *patientController) Show(ctx *fiber.Ctx) error {
	id, err := uuidParam(ctx, "id")
	if err != nil {
		return err
	}

	res, err := c.service.Show(ctx.UserContext(), id)
	if err != nil {
		return err
	}

	return ctx.JSON(serverutils.SuccessResponse("Success show patient", res))
}

func (c *patientController) Update(ctx *fiber.Ctx) error {
	id, err := uuidParam(ctx, "id")
	if err != nil {
		return err
	}

	var req dto.UpdatePatientRequest
	if err := bindJSON(ctx, &req); err != nil {
		return err
	}
	req.Id = id
	if err := serverutils.ValidateRequest(req); err != nil {
		return err
	}

	res, err := c.service.Update(ctx.UserContext(), &req)
	if err != nil {
		return err
	}

	return ctx.JSON(serverutils.SuccessResponse("Patient updated successfully", res))
}

func (c *patientController) Delete(ctx *fiber.Ctx) error {
	id, err := uuidParam(ctx, "id")
	if err != nil {
		return err
	}

	if err := c.service.Delete(ctx.UserContext(), id); err != nil {
		return err
	}

	return ctx.JSON(serverutils.SuccessResponse[any]("Patient deleted successfully", nil))
}

func (c *patientController) List(ctx *fiber.Ctx) error {
	var req dto.ListPatientsRequest
	if err := bindQuery(ctx, &req); err != nil {
		return err
	}
	if err := serverutils.ValidateRequest(req); err != nil {
		return err
	}

	res, err := c.service.List(ctx.UserContext(), &req)
	if err != nil {
		return err
	}

	return ctx.JSON(serverutils.SuccessResponse("Success list patients", res))
}

func (c *patientController) Sessions(ctx *fiber.Ctx) error {
	id, err := uuidParam(ctx, "id")
	if err != nil {
		return err
	}

	var req dto.PatientSessionsRequest
	if err := bindQuery(ctx, &req); err != nil {
		return err
	}
	req.PatientId = id
	if err := serverutils.ValidateRequest(req); err != nil {
		return err
	}

	res, err := c.service.Sessions(ctx.UserContext(), &req)
	if err != nil {
		return err
	}

	return ctx.JSON(serverutils.SuccessResponse("Success list patient sessions", res))
}
