package controller

import (
	"medrag-be/internal/dto"
	"medrag-be/internal/pkg/serverutils"
	"medrag-be/internal/service"

	"github.com/gofiber/fiber/v2"
)

type IKnowledgeGraphController interface {
	RegisterRoutes(r fiber.Router, middlewares ...fiber.Handler)
	SessionGraph(ctx *fiber.Ctx) error
	Explore(ctx *fiber.Ctx) error
	Path(ctx *fiber.Ctx) error
	Disease(ctx *fiber.Ctx) error
	Symptom(ctx *fiber.Ctx) error
	Stats(ctx *fiber.Ctx) error
	Analyze(ctx *fiber.Ctx) error
}

type knowledgeGraphController struct {
	service service.IKnowledgeGraphService
}

func NewKnowledgeGraphController(service service.IKnowledgeGraphService) IKnowledgeGraphController {
	return &knowledgeGraphController{service: service}
}

func (c *knowledgeGraphController) RegisterRoutes(r fiber.Router, middlewares ...fiber.Handler) {
	h := r.Group("/kg", middlewares...)
	h.Get("/stats", c.Stats)
	h.Get("/explore/:nodeId", c.Explore)
	h.Get("/path/:source/:target", c.Path)
	h.Get("/disease/:name", c.Disease)
	h.Get("/symptoms/:symptom", c.Symptom)
	h.Post("/analyze", c.Analyze)
	// catch-all session route goes last
	h.Get("/:sessionId", c.SessionGraph)
}

func (c *knowledgeGraphController) SessionGraph(ctx *fiber.Ctx) error {
	id, err := uuidParam(ctx, "sessionId")
	if err != nil {
		return err
	}

	res, err := c.service.SessionGraph(ctx.UserContext(), id)
	if err != nil {
		return err
	}

	return ctx.JSON(serverutils.SuccessResponse("Success get session knowledge graph", res))
}

func (c *knowledgeGraphController) Explore(ctx *fiber.Ctx) error {
	res, err := c.service.Explore(ctx.UserContext(), ctx.Params("nodeId"), ctx.QueryInt("radius", 1))
	if err != nil {
		return err
	}

	return ctx.JSON(serverutils.SuccessResponse("Success explore node", res))
}

func (c *knowledgeGraphController) Path(ctx *fiber.Ctx) error {
	res, err := c.service.Path(ctx.UserContext(), ctx.Params("source"), ctx.Params("target"))
	if err != nil {
		return err
	}

	return ctx.JSON(serverutils.SuccessResponse("Success find path", res))
}

func (c *knowledgeGraphController) Disease(ctx *fiber.Ctx) error {
	res, err := c.service.Disease(ctx.UserContext(), ctx.Params("name"))
	if err != nil {
		return err
	}

	return ctx.JSON(serverutils.SuccessResponse("Success get disease info", res))
}

func (c *knowledgeGraphController) Symptom(ctx *fiber.Ctx) error {
	res, err := c.service.SymptomRelations(ctx.UserContext(), ctx.Params("symptom"), ctx.QueryInt("max", 10))
	if err != nil {
		return err
	}

	return ctx.JSON(serverutils.SuccessResponse("Success get symptom relations", res))
}

func (c *knowledgeGraphController) Stats(ctx *fiber.Ctx) error {
	return ctx.JSON(serverutils.SuccessResponse("Knowledge graph statistics retrieved successfully", c.service.Stats(ctx.UserContext())))
}

func (c *knowledgeGraphController) Analyze(ctx *fiber.Ctx) error {
	var req dto.AnalyzeSymptomsRequest
	if err := bindJSON(ctx, &req); err != nil {
		return err
	}
	if err := serverutils.ValidateRequest(req); err != nil {
		return err
	}

	res, err := c.service.Analyze(ctx.UserContext(), &req)
	if err != nil {
		return err
	}

	return ctx.JSON(serverutils.SuccessResponse("Success analyze symptoms", res))
}
