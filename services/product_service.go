package services

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"
	"io"
	"path/filepath"
	"strings"

	"github.com/disintegration/imaging"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	_ "golang.org/x/image/webp"

	"github.com/mansatask/mansatask-api/models"
	"github.com/mansatask/mansatask-api/repository"
	"github.com/mansatask/mansatask-api/storage"
	"github.com/mansatask/mansatask-api/utils"
)

const (
	productImagePrefix = "products/"
	thumbnailSize      = 300
)

type CreateProductInput struct {
	Name         string          `json:"name" binding:"required"`
	Description  string          `json:"description"`
	Price        decimal.Decimal `json:"price"`
	Currency     string          `json:"currency"`
	ImageURL     string          `json:"image_url"`
	ImageKey     string          `json:"image_key"`
	ThumbnailURL string          `json:"thumbnail_url"`
	Quantity     *int            `json:"quantity"`
}

type UpdateProductInput struct {
	Name         *string          `json:"name"`
	Description  *string          `json:"description"`
	Price        *decimal.Decimal `json:"price"`
	Currency     *string          `json:"currency"`
	ImageURL     *string          `json:"image_url"`
	ImageKey     *string          `json:"image_key"`
	ThumbnailURL *string          `json:"thumbnail_url"`
	Quantity     *int             `json:"quantity"`
}

type UploadedImage struct {
	Key          string `json:"key"`
	URL          string `json:"url"`
	ThumbnailKey string `json:"thumbnail_key"`
	ThumbnailURL string `json:"thumbnail_url"`
}

type ProductService struct {
	products ProductRepository
	storage  storage.ObjectStorage
}

func NewProductService(products ProductRepository, store storage.ObjectStorage) *ProductService {
	return &ProductService{products: products, storage: store}
}

func (s *ProductService) Create(ctx context.Context, userID uint, input CreateProductInput) (*models.Product, error) {
	name := strings.TrimSpace(input.Name)
	if ok, msg := utils.ValidateTitle(name); !ok {
		return nil, utils.BadRequestError(msg, nil)
	}
	if ok, msg := utils.ValidateXSS(input.Description); !ok {
		return nil, utils.BadRequestError(msg, nil)
	}
	if !input.Price.IsPositive() {
		return nil, utils.BadRequestError(utils.ErrInvalidAmount, nil)
	}

	currency := strings.TrimSpace(input.Currency)
	if currency == "" {
		currency = utils.DefaultCurrency
	}
	if ok, msg := utils.ValidateCurrency(currency); !ok {
		return nil, utils.BadRequestError(msg, nil)
	}

	quantity := models.UnlimitedQuantity
	if input.Quantity != nil {
		if *input.Quantity < 0 {
			return nil, utils.BadRequestError("Quantity cannot be negative", nil)
		}
		quantity = *input.Quantity
	}

	product := &models.Product{
		UserID:       userID,
		Name:         name,
		Description:  strings.TrimSpace(input.Description),
		Price:        input.Price.Round(2),
		Currency:     currency,
		ImageURL:     input.ImageURL,
		ImageKey:     input.ImageKey,
		ThumbnailURL: input.ThumbnailURL,
		Quantity:     quantity,
	}
	if err := s.products.Create(ctx, product); err != nil {
		return nil, utils.InternalError("Failed to create product", err)
	}

	utils.LogInfo("Product %d created for user ID: %d", product.ID, userID)
	return product, nil
}

func (s *ProductService) List(ctx context.Context, userID uint, search string, page repository.Page) ([]models.Product, int64, error) {
	products, total, err := s.products.List(ctx, userID, strings.TrimSpace(search), page)
	if err != nil {
		return nil, 0, utils.InternalError("Failed to fetch products", err)
	}
	return products, total, nil
}

func (s *ProductService) Get(ctx context.Context, userID, id uint) (*models.Product, error) {
	product, err := s.products.FindByID(ctx, userID, id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, utils.NotFoundError("Product not found", err)
		}
		return nil, utils.InternalError("Failed to fetch product", err)
	}
	return product, nil
}

func (s *ProductService) Update(ctx context.Context, userID, id uint, input UpdateProductInput) (*models.Product, error) {
	product, err := s.Get(ctx, userID, id)
	if err != nil {
		return nil, err
	}

	updates := map[string]interface{}{}
	if input.Name != nil {
		name := strings.TrimSpace(*input.Name)
		if ok, msg := utils.ValidateTitle(name); !ok {
			return nil, utils.BadRequestError(msg, nil)
		}
		updates["name"] = name
	}
	if input.Description != nil {
		if ok, msg := utils.ValidateXSS(*input.Description); !ok {
			return nil, utils.BadRequestError(msg, nil)
		}
		updates["description"] = strings.TrimSpace(*input.Description)
	}
	if input.Price != nil {
		if !input.Price.IsPositive() {
			return nil, utils.BadRequestError(utils.ErrInvalidAmount, nil)
		}
		updates["price"] = input.Price.Round(2)
	}
	if input.Currency != nil {
		if ok, msg := utils.ValidateCurrency(*input.Currency); !ok {
			return nil, utils.BadRequestError(msg, nil)
		}
		updates["currency"] = *input.Currency
	}
	if input.ImageURL != nil {
		updates["image_url"] = *input.ImageURL
	}
	if input.ImageKey != nil {
		updates["image_key"] = *input.ImageKey
	}
	if input.ThumbnailURL != nil {
		updates["thumbnail_url"] = *input.ThumbnailURL
	}
	if input.Quantity != nil {
		if *input.Quantity < 0 {
			return nil, utils.BadRequestError("Quantity cannot be negative", nil)
		}
		updates["quantity"] = *input.Quantity
	}

	if len(updates) == 0 {
		return nil, utils.BadRequestError("No fields to update", nil)
	}
	if err := s.products.Update(ctx, product, updates); err != nil {
		return nil, utils.InternalError("Failed to update product", err)
	}

	utils.LogInfo("Product %d updated for user ID: %d", id, userID)
	return s.Get(ctx, userID, id)
}

func (s *ProductService) Delete(ctx context.Context, userID, id uint) error {
	if err := s.products.Delete(ctx, userID, id); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return utils.NotFoundError("Product not found", err)
		}
		return utils.InternalError("Failed to delete product", err)
	}
	utils.LogInfo("Product %d deleted for user ID: %d", id, userID)
	return nil
}

// UploadImage stores the original image and a 300x300 JPEG thumbnail
func (s *ProductService) UploadImage(ctx context.Context, filename string, data []byte) (*UploadedImage, error) {
	if len(data) > utils.MaxFileSize {
		return nil, utils.BadRequestError(utils.ErrFileTooLarge, nil)
	}
	ext := strings.ToLower(filepath.Ext(filename))
	if _, ok := utils.AllowedImageTypes[ext]; !ok {
		return nil, utils.BadRequestError(utils.ErrInvalidFileType, nil)
	}

	img, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, utils.BadRequestError("Uploaded file is not a valid image", err)
	}

	id := uuid.New().String()
	key := productImagePrefix + id + ext
	thumbKey := productImagePrefix + "thumbs/" + id + ".jpg"

	thumb, err := createThumbnail(img)
	if err != nil {
		return nil, utils.InternalError("Failed to create thumbnail", err)
	}

	url, err := s.storage.Put(ctx, key, data, utils.ImageContentType(filename))
	if err != nil {
		return nil, utils.InternalError("Failed to store image", err)
	}
	thumbURL, err := s.storage.Put(ctx, thumbKey, thumb, "image/jpeg")
	if err != nil {
		// the original is usable without a thumbnail
		utils.LogError("Failed to store thumbnail %s: %v", thumbKey, err)
		thumbKey, thumbURL = "", ""
	}

	utils.LogInfo("Product image stored at %s", key)
	return &UploadedImage{Key: key, URL: url, ThumbnailKey: thumbKey, ThumbnailURL: thumbURL}, nil
}

// OpenImage streams a stored product image; keys outside the product prefix are not served
func (s *ProductService) OpenImage(ctx context.Context, key string) (io.ReadCloser, string, error) {
	clean, ok := utils.CleanObjectKey(key)
	if !ok || !strings.HasPrefix(clean, productImagePrefix) {
		return nil, "", utils.NotFoundError("Image not found", nil)
	}

	body, contentType, err := s.storage.Get(ctx, clean)
	if err != nil {
		if errors.Is(err, storage.ErrObjectNotFound) {
			return nil, "", utils.NotFoundError("Image not found", err)
		}
		return nil, "", utils.InternalError("Failed to read image", err)
	}
	if contentType == "" {
		contentType = utils.ImageContentType(clean)
	}
	return body, contentType, nil
}

func createThumbnail(img image.Image) ([]byte, error) {
	thumb := imaging.Thumbnail(img, thumbnailSize, thumbnailSize, imaging.Lanczos)

	var buf bytes.Buffer
	if err := imaging.Encode(&buf, thumb, imaging.JPEG, imaging.JPEGQuality(85)); err != nil {
		return nil, fmt.Errorf("failed to encode thumbnail: %w", err)
	}
	return buf.Bytes(), nil
}
