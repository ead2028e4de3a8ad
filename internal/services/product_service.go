package services

import (
	"context"
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/example/retailpulse/internal/models"
	"github.com/example/retailpulse/internal/repository"
)

// ImagePathPrefix is the public URL prefix of uploaded product images.
const ImagePathPrefix = "/images/"

// ImageStore persists uploaded product images and returns their public path.
type ImageStore interface {
	Save(name string, r io.Reader) (string, error)
	Remove(publicPath string) error
}

// DiskImageStore writes images into a local directory served at ImagePathPrefix.
type DiskImageStore struct {
	dir string
}

func NewDiskImageStore(dir string) *DiskImageStore {
	return &DiskImageStore{dir: dir}
}

// Save stores r as <uuid>_<basename of name>.
func (s *DiskImageStore) Save(name string, r io.Reader) (string, error) {
	if err := os.MkdirAll(s.dir, 0o755); err != nil {
		return "", fmt.Errorf("create upload dir: %w", err)
	}

	base := filepath.Base(strings.ReplaceAll(name, "\\", "/"))
	if base == "." || base == "/" || base == "" {
		base = "image"
	}
	fileName := uuid.NewString() + "_" + base

	f, err := os.Create(filepath.Join(s.dir, fileName))
	if err != nil {
		return "", fmt.Errorf("create image file: %w", err)
	}
	defer f.Close()

	if _, err := io.Copy(f, r); err != nil {
		return "", fmt.Errorf("write image file: %w", err)
	}
	return ImagePathPrefix + fileName, nil
}

// Remove deletes a previously saved image. Unknown paths are ignored.
func (s *DiskImageStore) Remove(publicPath string) error {
	if !strings.HasPrefix(publicPath, ImagePathPrefix) {
		return nil
	}
	name := filepath.Base(strings.TrimPrefix(publicPath, ImagePathPrefix))
	err := os.Remove(filepath.Join(s.dir, name))
	if os.IsNotExist(err) {
		return nil
	}
	return err
}

// ProductInput carries the editable product fields.
type ProductInput struct {
	Name        string          `json:"name"`
	Description string          `json:"description"`
	Price       decimal.Decimal `json:"price"`
	Quantity    int             `json:"quantity"`
}

func (in *ProductInput) validate() error {
	in.Name = strings.TrimSpace(in.Name)
	switch {
	case in.Name == "":
		return newError(KindInvalidInput, "product name is required")
	case in.Price.IsNegative():
		return newError(KindInvalidInput, "price must not be negative")
	case in.Quantity < 0:
		return newError(KindInvalidInput, "quantity must not be negative")
	}
	return nil
}

// ImageUpload is an optional image attached to a create or update request.
type ImageUpload struct {
	Filename string
	Content  io.Reader
}

// ProductService manages the catalog.
type ProductService struct {
	store  repository.Store
	images ImageStore
}

func NewProductService(store repository.Store, images ImageStore) *ProductService {
	return &ProductService{store: store, images: images}
}

func (s *ProductService) saveImage(image *ImageUpload) (string, error) {
	if image == nil || s.images == nil {
		return "", nil
	}
	return s.images.Save(image.Filename, image.Content)
}

func (s *ProductService) removeImage(path string) {
	if path == "" || s.images == nil {
		return
	}
	if err := s.images.Remove(path); err != nil {
		log.Printf("[Product] failed to remove image %s: %v", path, err)
	}
}

func (s *ProductService) Create(ctx context.Context, in ProductInput, image *ImageUpload) (*models.Product, error) {
	if err := in.validate(); err != nil {
		return nil, err
	}

	path, err := s.saveImage(image)
	if err != nil {
		return nil, err
	}

	product := &models.Product{
		Name:        in.Name,
		Description: in.Description,
		Price:       in.Price,
		Quantity:    in.Quantity,
		Image:       path,
	}
	if err := s.store.CreateProduct(ctx, product); err != nil {
		s.removeImage(path)
		return nil, err
	}
	return product, nil
}

// Update replaces the product fields. A new image replaces the old file.
func (s *ProductService) Update(ctx context.Context, id uuid.UUID, in ProductInput, image *ImageUpload) (*models.Product, error) {
	if err := in.validate(); err != nil {
		return nil, err
	}

	product, err := s.store.GetProductByID(ctx, id)
	if err != nil {
		return nil, notFoundOr(err, "product %s not found", id)
	}

	oldImage := product.Image
	path, err := s.saveImage(image)
	if err != nil {
		return nil, err
	}

	product.Name = in.Name
	product.Description = in.Description
	product.Price = in.Price
	product.Quantity = in.Quantity
	if path != "" {
		product.Image = path
	}

	if err := s.store.UpdateProduct(ctx, product); err != nil {
		s.removeImage(path)
		return nil, notFoundOr(err, "product %s not found", id)
	}
	if path != "" {
		s.removeImage(oldImage)
	}
	return product, nil
}

// Delete removes the product with its cart lines and comments.
func (s *ProductService) Delete(ctx context.Context, id uuid.UUID) error {
	product, err := s.store.GetProductByID(ctx, id)
	if err != nil {
		return notFoundOr(err, "product %s not found", id)
	}
	if err := s.store.DeleteProduct(ctx, id); err != nil {
		return notFoundOr(err, "product %s not found", id)
	}
	s.removeImage(product.Image)
	return nil
}

// Get returns a product with its comments.
func (s *ProductService) Get(ctx context.Context, id uuid.UUID) (*models.Product, error) {
	product, err := s.store.GetProductByID(ctx, id)
	if err != nil {
		return nil, notFoundOr(err, "product %s not found", id)
	}
	comments, err := s.store.ListCommentsByProduct(ctx, id)
	if err != nil {
		return nil, err
	}
	product.Comments = comments
	return product, nil
}

// List returns a page of products without comments.
func (s *ProductService) List(ctx context.Context, search string, limit, offset int) ([]models.Product, int64, error) {
	return s.store.ListProducts(ctx, repository.ProductFilter{Search: search, Limit: limit, Offset: offset})
}
