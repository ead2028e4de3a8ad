package handlers

import (
	"github.com/gofiber/fiber/v2"

	"github.com/example/retailpulse/internal/services"
)

// CommentHandler serves product comments.
type CommentHandler struct {
	comments *services.CommentService
}

func NewCommentHandler(comments *services.CommentService) *CommentHandler {
	return &CommentHandler{comments: comments}
}

type addCommentRequest struct {
	Content string `json:"content"`
	Score   int    `json:"score"`
}

// AddComment posts a comment with a 1..5 score on the product in :id.
func (h *CommentHandler) AddComment(c *fiber.Ctx) error {
	userID, err := currentUserID(c)
	if err != nil {
		return err
	}
	productID, err := parseUUIDParam(c, "id")
	if err != nil {
		return err
	}

	var req addCommentRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid request body")
	}

	comment, err := h.comments.AddComment(c.UserContext(), productID, userID, req.Content, req.Score)
	if err != nil {
		return err
	}
	return c.Status(fiber.StatusCreated).JSON(fiber.Map{"success": true, "data": comment})
}

func (h *CommentHandler) ListComments(c *fiber.Ctx) error {
	productID, err := parseUUIDParam(c, "id")
	if err != nil {
		return err
	}

	comments, err := h.comments.ListComments(c.UserContext(), productID)
	if err != nil {
		return err
	}
	return respondData(c, comments)
}
