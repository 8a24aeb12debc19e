package services

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	qrcode "github.com/skip2/go-qrcode"

	"github.com/mansatask/mansatask-api/models"
	"github.com/mansatask/mansatask-api/repository"
	"github.com/mansatask/mansatask-api/utils"
)

const (
	maxSlugAttempts = 5
	qrCodeSize      = 256
)

type CreatePaymentLinkInput struct {
	Title            string           `json:"title" binding:"required"`
	Description      string           `json:"description"`
	Amount           *decimal.Decimal `json:"amount"`
	Currency         string           `json:"currency"`
	ProductID        *uint            `json:"product_id"`
	ExpiresAt        *time.Time       `json:"expires_at"`
	ExpiresAfterDays *int             `json:"expires_after_days"`
	MaxUses          *int             `json:"max_uses"`
	IsActive         *bool            `json:"is_active"`
}

type UpdatePaymentLinkInput struct {
	Title        *string          `json:"title"`
	Description  *string          `json:"description"`
	Amount       *decimal.Decimal `json:"amount"`
	Currency     *string          `json:"currency"`
	IsActive     *bool            `json:"is_active"`
	ExpiresAt    *time.Time       `json:"expires_at"`
	ClearExpiry  bool             `json:"clear_expiry"`
	MaxUses      *int             `json:"max_uses"`
	ClearMaxUses bool             `json:"clear_max_uses"`
}

// PaymentLinkView is a merchant's link with its state computed at read time
type PaymentLinkView struct {
	*models.PaymentLink
	Status        models.LinkStatus `json:"status"`
	IsValid       bool              `json:"is_valid"`
	RemainingUses *int              `json:"remaining_uses"`
	URL           string            `json:"url"`
}

// PublicPaymentLink is what customers see on the payment page
type PublicPaymentLink struct {
	Slug            string            `json:"slug"`
	Title           string            `json:"title"`
	Description     string            `json:"description"`
	Amount          decimal.Decimal   `json:"amount"`
	Currency        string            `json:"currency"`
	ProductName     string            `json:"product_name,omitempty"`
	ProductImageURL string            `json:"product_image_url,omitempty"`
	MerchantName    string            `json:"merchant_name"`
	ExpiresAt       *time.Time        `json:"expires_at"`
	IsValid         bool              `json:"is_valid"`
	Status          models.LinkStatus `json:"status"`
}

type PaymentLinkService struct {
	links       PaymentLinkRepository
	products    ProductRepository
	frontendURL string
	now         func() time.Time
	newSlug     func(title string) (string, error)
}

func NewPaymentLinkService(links PaymentLinkRepository, products ProductRepository, frontendURL string) *PaymentLinkService {
	return &PaymentLinkService{
		links:       links,
		products:    products,
		frontendURL: strings.TrimRight(frontendURL, "/"),
		now:         func() time.Time { return time.Now().UTC() },
		newSlug:     utils.NewSlug,
	}
}

// PublicURL is the customer-facing address of a link
func (s *PaymentLinkService) PublicURL(slug string) string {
	return s.frontendURL + "/pay/" + slug
}

func (s *PaymentLinkService) Create(ctx context.Context, userID uint, input CreatePaymentLinkInput) (*PaymentLinkView, error) {
	now := s.now()

	title := strings.TrimSpace(input.Title)
	if ok, msg := utils.ValidateTitle(title); !ok {
		return nil, utils.BadRequestError(msg, nil)
	}
	if ok, msg := utils.ValidateXSS(input.Description); !ok {
		return nil, utils.BadRequestError(msg, nil)
	}

	link := &models.PaymentLink{
		UserID:      userID,
		Title:       title,
		Description: strings.TrimSpace(input.Description),
		Currency:    strings.TrimSpace(input.Currency),
		IsActive:    true,
	}

	if input.ProductID != nil {
		product, err := s.products.FindByID(ctx, userID, *input.ProductID)
		if err != nil {
			if errors.Is(err, repository.ErrNotFound) {
				return nil, utils.BadRequestError("Product not found", err)
			}
			return nil, utils.InternalError("Failed to fetch product", err)
		}
		link.ProductID = &product.ID
		link.Amount = product.Price
		if link.Currency == "" {
			link.Currency = product.Currency
		}
	}

	if input.Amount != nil {
		link.Amount = *input.Amount
	}
	if !link.Amount.IsPositive() {
		return nil, utils.BadRequestError(utils.ErrInvalidAmount, nil)
	}
	link.Amount = link.Amount.Round(2)

	if link.Currency == "" {
		link.Currency = utils.DefaultCurrency
	}
	if ok, msg := utils.ValidateCurrency(link.Currency); !ok {
		return nil, utils.BadRequestError(msg, nil)
	}

	if input.MaxUses != nil && *input.MaxUses < 1 {
		return nil, utils.BadRequestError("Max uses must be at least 1", nil)
	}
	link.MaxUses = input.MaxUses

	if input.ExpiresAfterDays != nil {
		if *input.ExpiresAfterDays < 1 {
			return nil, utils.BadRequestError("Expiry days must be at least 1", nil)
		}
		link.ExpiresAfterDays = input.ExpiresAfterDays
	}
	switch {
	case input.ExpiresAt != nil:
		if !input.ExpiresAt.After(now) {
			return nil, utils.BadRequestError("Expiry date must be in the future", nil)
		}
		expires := input.ExpiresAt.UTC()
		link.ExpiresAt = &expires
	case input.ExpiresAfterDays != nil:
		expires := now.AddDate(0, 0, *input.ExpiresAfterDays)
		link.ExpiresAt = &expires
	}

	if input.IsActive != nil {
		link.IsActive = *input.IsActive
	}

	if err := s.createWithUniqueSlug(ctx, link); err != nil {
		return nil, err
	}

	utils.LogInfo("Payment link %d (%s) created for user ID: %d", link.ID, link.Slug, userID)
	return s.Get(ctx, userID, link.ID)
}

// createWithUniqueSlug regenerates the slug when the unique index rejects it
func (s *PaymentLinkService) createWithUniqueSlug(ctx context.Context, link *models.PaymentLink) error {
	for attempt := 1; attempt <= maxSlugAttempts; attempt++ {
		slug, err := s.newSlug(link.Title)
		if err != nil {
			return utils.InternalError("Failed to generate link slug", err)
		}
		link.Slug = slug

		err = s.links.Create(ctx, link)
		if err == nil {
			return nil
		}
		if !errors.Is(err, repository.ErrDuplicate) {
			return utils.InternalError("Failed to create payment link", err)
		}
		utils.LogDebug("Slug collision on %s (attempt %d)", slug, attempt)
	}
	return utils.InternalError("Failed to generate a unique link slug", nil)
}

func (s *PaymentLinkService) List(ctx context.Context, userID uint, status string, page repository.Page) ([]PaymentLinkView, int64, error) {
	status = strings.ToUpper(strings.TrimSpace(status))
	if status != "" && !models.IsValidLinkStatus(status) {
		return nil, 0, utils.BadRequestError("Invalid status filter", nil)
	}

	now := s.now()
	links, total, err := s.links.List(ctx, userID, models.LinkStatus(status), now, page)
	if err != nil {
		return nil, 0, utils.InternalError("Failed to fetch payment links", err)
	}

	views := make([]PaymentLinkView, 0, len(links))
	for i := range links {
		views = append(views, s.view(&links[i], now))
	}
	return views, total, nil
}

func (s *PaymentLinkService) Get(ctx context.Context, userID, id uint) (*PaymentLinkView, error) {
	link, err := s.find(ctx, userID, id)
	if err != nil {
		return nil, err
	}
	view := s.view(link, s.now())
	return &view, nil
}

func (s *PaymentLinkService) Update(ctx context.Context, userID, id uint, input UpdatePaymentLinkInput) (*PaymentLinkView, error) {
	link, err := s.find(ctx, userID, id)
	if err != nil {
		return nil, err
	}

	updates := map[string]interface{}{}
	if input.Title != nil {
		title := strings.TrimSpace(*input.Title)
		if ok, msg := utils.ValidateTitle(title); !ok {
			return nil, utils.BadRequestError(msg, nil)
		}
		updates["title"] = title
	}
	if input.Description != nil {
		if ok, msg := utils.ValidateXSS(*input.Description); !ok {
			return nil, utils.BadRequestError(msg, nil)
		}
		updates["description"] = strings.TrimSpace(*input.Description)
	}
	if input.Amount != nil {
		if !input.Amount.IsPositive() {
			return nil, utils.BadRequestError(utils.ErrInvalidAmount, nil)
		}
		updates["amount"] = input.Amount.Round(2)
	}
	if input.Currency != nil {
		if ok, msg := utils.ValidateCurrency(*input.Currency); !ok {
			return nil, utils.BadRequestError(msg, nil)
		}
		updates["currency"] = *input.Currency
	}
	if input.IsActive != nil {
		updates["is_active"] = *input.IsActive
	}
	switch {
	case input.ClearExpiry:
		updates["expires_at"] = nil
		updates["expires_after_days"] = nil
	case input.ExpiresAt != nil:
		if !input.ExpiresAt.After(s.now()) {
			return nil, utils.BadRequestError("Expiry date must be in the future", nil)
		}
		updates["expires_at"] = input.ExpiresAt.UTC()
	}
	switch {
	case input.ClearMaxUses:
		updates["max_uses"] = nil
	case input.MaxUses != nil:
		if *input.MaxUses < 1 {
			return nil, utils.BadRequestError("Max uses must be at least 1", nil)
		}
		updates["max_uses"] = *input.MaxUses
	}

	if len(updates) == 0 {
		return nil, utils.BadRequestError("No fields to update", nil)
	}
	if err := s.links.Update(ctx, link, updates); err != nil {
		return nil, utils.InternalError("Failed to update payment link", err)
	}

	utils.LogInfo("Payment link %d updated for user ID: %d", id, userID)
	return s.Get(ctx, userID, id)
}

func (s *PaymentLinkService) Delete(ctx context.Context, userID, id uint) error {
	if err := s.links.Delete(ctx, userID, id); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return utils.NotFoundError("Payment link not found", err)
		}
		return utils.InternalError("Failed to delete payment link", err)
	}
	utils.LogInfo("Payment link %d deleted for user ID: %d", id, userID)
	return nil
}

// GetPublic returns the customer view of a link; deleted links are not found
func (s *PaymentLinkService) GetPublic(ctx context.Context, slug string) (*PublicPaymentLink, error) {
	link, err := s.findBySlug(ctx, slug)
	if err != nil {
		return nil, err
	}

	now := s.now()
	public := &PublicPaymentLink{
		Slug:        link.Slug,
		Title:       link.Title,
		Description: link.Description,
		Amount:      link.Amount,
		Currency:    link.Currency,
		ExpiresAt:   link.ExpiresAt,
		IsValid:     link.IsUsable(now),
		Status:      link.Status(now),
	}
	if link.Product != nil {
		public.ProductName = link.Product.Name
		public.ProductImageURL = link.Product.ImageURL
	}
	if link.User != nil {
		public.MerchantName = link.User.DisplayName()
	}
	return public, nil
}

// QRCode renders a PNG of the link's public URL
func (s *PaymentLinkService) QRCode(ctx context.Context, userID, id uint) ([]byte, error) {
	link, err := s.find(ctx, userID, id)
	if err != nil {
		return nil, err
	}
	return s.encodeQR(link.Slug)
}

func (s *PaymentLinkService) PublicQRCode(ctx context.Context, slug string) ([]byte, error) {
	link, err := s.findBySlug(ctx, slug)
	if err != nil {
		return nil, err
	}
	return s.encodeQR(link.Slug)
}

// ExpireLinks switches off every active link whose expiry passed
func (s *PaymentLinkService) ExpireLinks(ctx context.Context) (int64, error) {
	count, err := s.links.DeactivateExpired(ctx, s.now())
	if err != nil {
		return 0, utils.InternalError("Failed to expire payment links", err)
	}
	utils.LogInfo("Deactivated %d expired payment links", count)
	return count, nil
}

func (s *PaymentLinkService) encodeQR(slug string) ([]byte, error) {
	png, err := qrcode.Encode(s.PublicURL(slug), qrcode.Medium, qrCodeSize)
	if err != nil {
		return nil, utils.InternalError("Failed to generate QR code", err)
	}
	return png, nil
}

func (s *PaymentLinkService) find(ctx context.Context, userID, id uint) (*models.PaymentLink, error) {
	link, err := s.links.FindByID(ctx, userID, id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, utils.NotFoundError("Payment link not found", err)
		}
		return nil, utils.InternalError("Failed to fetch payment link", err)
	}
	return link, nil
}

func (s *PaymentLinkService) findBySlug(ctx context.Context, slug string) (*models.PaymentLink, error) {
	link, err := s.links.FindBySlug(ctx, strings.TrimSpace(slug))
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, utils.NotFoundError("Payment link not found", err)
		}
		return nil, utils.InternalError("Failed to fetch payment link", err)
	}
	return link, nil
}

func (s *PaymentLinkService) view(link *models.PaymentLink, now time.Time) PaymentLinkView {
	return PaymentLinkView{
		PaymentLink:   link,
		Status:        link.Status(now),
		IsValid:       link.IsUsable(now),
		RemainingUses: link.RemainingUses(),
		URL:           s.PublicURL(link.Slug),
	}
}
