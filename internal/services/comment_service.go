package services

import (
	"context"
	"strings"

	"github.com/google/uuid"

	"github.com/example/retailpulse/internal/models"
	"github.com/example/retailpulse/internal/repository"
)

type CommentService struct {
	store repository.Store
}

func NewCommentService(store repository.Store) *CommentService {
	return &CommentService{store: store}
}

// AddComment attaches a scored comment from userID to a product.
func (s *CommentService) AddComment(ctx context.Context, productID, userID uuid.UUID, content string, score int) (*models.Comment, error) {
	content = strings.TrimSpace(content)
	if content == "" {
		return nil, newError(KindInvalidInput, "comment content is required")
	}
	if score < 1 || score > 5 {
		return nil, newError(KindInvalidInput, "score must be between 1 and 5")
	}

	if _, err := s.store.GetProductByID(ctx, productID); err != nil {
		return nil, notFoundOr(err, "product %s not found", productID)
	}
	if _, err := s.store.GetUserByID(ctx, userID); err != nil {
		return nil, notFoundOr(err, "user not found")
	}

	comment := &models.Comment{
		Content:   content,
		Score:     score,
		ProductID: productID,
		UserID:    userID,
	}
	if err := s.store.CreateComment(ctx, comment); err != nil {
		return nil, err
	}
	return comment, nil
}

// ListComments returns the comments of a product, newest first.
func (s *CommentService) ListComments(ctx context.Context, productID uuid.UUID) ([]models.Comment, error) {
	if _, err := s.store.GetProductByID(ctx, productID); err != nil {
		return nil, notFoundOr(err, "product %s not found", productID)
	}
	return s.store.ListCommentsByProduct(ctx, productID)
}
