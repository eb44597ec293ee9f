package controller

import (
	"io"
	"mime/multipart"

	"medrag-be/internal/pkg/serverutils"
	"medrag-be/internal/service"
	"medrag-be/pkg/apperror"

	"github.com/gofiber/fiber/v2"
)

type IUploadController interface {
	RegisterRoutes(r fiber.Router, middlewares ...fiber.Handler)
	Upload(ctx *fiber.Ctx) error
	Progress(ctx *fiber.Ctx) error
	Extraction(ctx *fiber.Ctx) error
}

type uploadController struct {
	service service.IUploadService
}

func NewUploadController(service service.IUploadService) IUploadController {
	return &uploadController{service: service}
}

func (c *uploadController) RegisterRoutes(r fiber.Router, middlewares ...fiber.Handler) {
	uploads := r.Group("/uploads", middlewares...)
	uploads.Post("", c.Upload)
	uploads.Get("/:id/progress", c.Progress)

	extract := r.Group("/extract", middlewares...)
	extract.Get("/:id", c.Extraction)
}

// Upload accepts any number of "files" parts; a lone "file" part is accepted as well.
func (c *uploadController) Upload(ctx *fiber.Ctx) error {
	form, err := ctx.MultipartForm()
	if err != nil {
		return apperror.Validation("no file provided", map[string]string{"files": "is required"})
	}
	headers := append(append([]*multipart.FileHeader{}, form.File["files"]...), form.File["file"]...)

	files := make([]service.UploadFile, 0, len(headers))
	for _, fh := range headers {
		data, err := readPart(fh)
		if err != nil {
			return err
		}
		files = append(files, service.UploadFile{Name: fh.Filename, Data: data})
	}

	res, err := c.service.UploadBatch(ctx.UserContext(), files)
	if err != nil {
		return err
	}

	message := "File uploaded successfully"
	if len(res.Files) > 1 {
		message = "Files uploaded successfully"
	}
	return ctx.Status(fiber.StatusAccepted).JSON(serverutils.SuccessResponse(message, res))
}

func readPart(fh *multipart.FileHeader) ([]byte, error) {
	file, err := fh.Open()
	if err != nil {
		return nil, err
	}
	defer file.Close()
	return io.ReadAll(file)
}

func (c *uploadController) Progress(ctx *fiber.Ctx) error {
	res, err := c.service.Progress(ctx.UserContext(), ctx.Params("id"))
	if err != nil {
		return err
	}

	return ctx.JSON(serverutils.SuccessResponse("Success get upload progress", res))
}

func (c *uploadController) Extraction(ctx *fiber.Ctx) error {
	res, err := c.service.Extraction(ctx.UserContext(), ctx.Params("id"))
	if err != nil {
		return err
	}

	return ctx.JSON(serverutils.SuccessResponse("Success get extraction result", res))
}
