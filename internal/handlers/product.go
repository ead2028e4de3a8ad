package handlers

import (
	"encoding/json"
	"io"
	"strings"

	"github.com/gofiber/fiber/v2"

	"github.com/example/retailpulse/internal/services"
	"github.com/example/retailpulse/internal/utils"
)

// ProductHandler manages product CRUD.
type ProductHandler struct {
	products *services.ProductService
}

// NewProductHandler constructs ProductHandler.
func NewProductHandler(products *services.ProductService) *ProductHandler {
	return &ProductHandler{products: products}
}

// ListProducts returns paginated products, optionally filtered by ?search=.
func (h *ProductHandler) ListProducts(c *fiber.Ctx) error {
	pg := utils.ParsePagination(c)
	search := strings.TrimSpace(c.Query("search"))

	products, total, err := h.products.List(c.UserContext(), search, pg.Limit, pg.Offset)
	if err != nil {
		return err
	}

	return c.JSON(fiber.Map{
		"success":    true,
		"data":       products,
		"pagination": pg.Meta(total),
	})
}

// GetProduct loads a product with its comments.
func (h *ProductHandler) GetProduct(c *fiber.Ctx) error {
	id, err := parseUUIDParam(c, "id")
	if err != nil {
		return err
	}

	product, err := h.products.Get(c.UserContext(), id)
	if err != nil {
		return err
	}
	return respondData(c, product)
}

// CreateProduct accepts either a JSON body or a multipart form with a
// "product" JSON field and an optional "image" file.
func (h *ProductHandler) CreateProduct(c *fiber.Ctx) error {
	in, image, err := parseProductRequest(c)
	if err != nil {
		return err
	}

	defer closeImage(image)

	product, err := h.products.Create(c.UserContext(), in, image)
	if err != nil {
		return err
	}
	return c.Status(fiber.StatusCreated).JSON(fiber.Map{"success": true, "data": product})
}

// UpdateProduct replaces the product fields and, when sent, its image.
func (h *ProductHandler) UpdateProduct(c *fiber.Ctx) error {
	id, err := parseUUIDParam(c, "id")
	if err != nil {
		return err
	}

	in, image, err := parseProductRequest(c)
	if err != nil {
		return err
	}

	defer closeImage(image)

	product, err := h.products.Update(c.UserContext(), id, in, image)
	if err != nil {
		return err
	}
	return respondData(c, product)
}

// DeleteProduct removes a product together with its cart lines and comments.
func (h *ProductHandler) DeleteProduct(c *fiber.Ctx) error {
	id, err := parseUUIDParam(c, "id")
	if err != nil {
		return err
	}

	if err := h.products.Delete(c.UserContext(), id); err != nil {
		return err
	}
	return c.SendStatus(fiber.StatusNoContent)
}

func parseProductRequest(c *fiber.Ctx) (services.ProductInput, *services.ImageUpload, error) {
	var in services.ProductInput

	if !strings.HasPrefix(string(c.Request().Header.ContentType()), fiber.MIMEMultipartForm) {
		if err := c.BodyParser(&in); err != nil {
			return in, nil, fiber.NewError(fiber.StatusBadRequest, "invalid request body")
		}
		return in, nil, nil
	}

	raw := c.FormValue("product")
	if raw == "" {
		return in, nil, fiber.NewError(fiber.StatusBadRequest, "product field is required")
	}
	if err := json.Unmarshal([]byte(raw), &in); err != nil {
		return in, nil, fiber.NewError(fiber.StatusBadRequest, "invalid product field")
	}

	fh, err := c.FormFile("image")
	if err != nil {
		// no file part
		return in, nil, nil
	}
	f, err := fh.Open()
	if err != nil {
		return in, nil, fiber.NewError(fiber.StatusBadRequest, "unable to read image")
	}
	return in, &services.ImageUpload{Filename: fh.Filename, Content: f}, nil
}

func closeImage(image *services.ImageUpload) {
	if image == nil {
		return
	}
	if closer, ok := image.Content.(io.Closer); ok {
		closer.Close()
	}
}
