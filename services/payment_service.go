package services

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/datatypes"

	"github.com/mansatask/mansatask-api/events"
	"github.com/mansatask/mansatask-api/gateways"
	"github.com/mansatask/mansatask-api/models"
	"github.com/mansatask/mansatask-api/repository"
	"github.com/mansatask/mansatask-api/utils"
)

const (
	idempotencyLockTTL  = 30 * time.Second
	statusCheckInterval = 10 * time.Second
	maxIdempotencyKey   = 255
	maxApplyAttempts    = 3
)

type InitiatePaymentInput struct {
	Slug          string `json:"slug" binding:"required"`
	CustomerName  string `json:"customer_name" binding:"required"`
	CustomerPhone string `json:"customer_phone" binding:"required"`
	CustomerEmail string `json:"customer_email"`
	Provider      string `json:"provider" binding:"required"`
}

// PaymentView is the public state of a payment
type PaymentView struct {
	ExternalReference string                   `json:"external_reference"`
	Status            models.TransactionStatus `json:"status"`
	Amount            decimal.Decimal          `json:"amount"`
	Currency          string                   `json:"currency"`
	Provider          models.PaymentProvider   `json:"provider"`
	FailureReason     string                   `json:"failure_reason,omitempty"`
	ReceiptAvailable  bool                     `json:"receipt_available"`
	Checkout          map[string]interface{}   `json:"checkout,omitempty"`
	CreatedAt         time.Time                `json:"created_at"`
	CompletedAt       *time.Time               `json:"completed_at"`
}

// GatewayResolver returns the gateway serving a provider
type GatewayResolver interface {
	For(provider models.PaymentProvider) (gateways.Gateway, error)
}

// ReceiptIssuer creates the receipt once a payment succeeds
type ReceiptIssuer interface {
	IssueForTransaction(ctx context.Context, txn *models.Transaction) (*models.Receipt, error)
}

type PaymentService struct {
	links     PaymentLinkRepository
	txns      TransactionRepository
	webhooks  WebhookRepository
	gateways  GatewayResolver
	locks     IdempotencyLocker
	throttle  StatusThrottle
	receipts  ReceiptIssuer
	publisher events.Publisher
	secret    string
	now       func() time.Time
}

type PaymentServiceDeps struct {
	Links         PaymentLinkRepository
	Transactions  TransactionRepository
	Webhooks      WebhookRepository
	Gateways      GatewayResolver
	Locks         IdempotencyLocker
	Throttle      StatusThrottle
	Receipts      ReceiptIssuer
	Publisher     events.Publisher
	WebhookSecret string
}

func NewPaymentService(deps PaymentServiceDeps) *PaymentService {
	publisher := deps.Publisher
	if publisher == nil {
		publisher = events.NoopPublisher{}
	}
	return &PaymentService{
		links:     deps.Links,
		txns:      deps.Transactions,
		webhooks:  deps.Webhooks,
		gateways:  deps.Gateways,
		locks:     deps.Locks,
		throttle:  deps.Throttle,
		receipts:  deps.Receipts,
		publisher: publisher,
		secret:    deps.WebhookSecret,
		now:       func() time.Time { return time.Now().UTC() },
	}
}

// NewExternalReference returns the public identifier of a payment
func NewExternalReference() string {
	id := strings.ReplaceAll(uuid.New().String(), "-", "")
	return "TXN-" + strings.ToUpper(id[:16])
}

// Initiate starts a payment against a link. A repeated idempotency key returns
// the transaction created by the first request without consuming another use.
func (s *PaymentService) Initiate(ctx context.Context, input InitiatePaymentInput, idempotencyKey string) (*PaymentView, error) {
	provider, ok := models.ParseProvider(strings.ToUpper(strings.TrimSpace(input.Provider)))
	if !ok {
		return nil, utils.BadRequestError("Unsupported payment provider", nil)
	}
	name := strings.TrimSpace(input.CustomerName)
	if ok, msg := utils.ValidateName(name); !ok {
		return nil, utils.BadRequestError(msg, nil)
	}
	phone := utils.NormalizePhone(input.CustomerPhone)
	if ok, msg := utils.ValidatePhone(phone); !ok {
		return nil, utils.BadRequestError(msg, nil)
	}
	email := utils.NormalizeEmail(input.CustomerEmail)
	if email != "" {
		if ok, msg := utils.ValidateEmail(email); !ok {
			return nil, utils.BadRequestError(msg, nil)
		}
	}

	key := strings.TrimSpace(idempotencyKey)
	if len(key) > maxIdempotencyKey {
		return nil, utils.BadRequestError("Idempotency key is too long", nil)
	}

	if key != "" {
		if existing, err := s.replay(ctx, key, input.Slug); existing != nil || err != nil {
			return existing, err
		}

		lockToken, acquired, err := s.locks.Acquire(ctx, key, idempotencyLockTTL)
		switch {
		case err != nil:
			// the unique index on the key still rejects duplicates
			utils.LogError("Idempotency lock unavailable for key %s: %v", key, err)
		case !acquired:
			return nil, utils.ConflictError("A payment with this idempotency key is already in progress", nil)
		default:
			defer func() {
				if err := s.locks.Release(context.WithoutCancel(ctx), key, lockToken); err != nil {
					utils.LogError("Failed to release idempotency lock %s: %v", key, err)
				}
			}()
		}
	}

	gateway, err := s.gateways.For(provider)
	if err != nil {
		return nil, utils.BadRequestError("Payment provider is not available", err)
	}

	link, err := s.links.FindBySlug(ctx, strings.TrimSpace(input.Slug))
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, utils.NotFoundError("Payment link not found", err)
		}
		return nil, utils.InternalError("Failed to fetch payment link", err)
	}

	now := s.now()
	if !link.IsUsable(now) {
		return nil, utils.BadRequestError(linkUnavailableMessage(link.Status(now)), nil)
	}

	metadata, _ := json.Marshal(map[string]interface{}{"payment_link_slug": link.Slug})
	txn := &models.Transaction{
		UserID:            link.UserID,
		PaymentLinkID:     link.ID,
		ExternalReference: NewExternalReference(),
		Status:            models.StatusPending,
		Provider:          provider,
		CustomerName:      name,
		CustomerPhone:     phone,
		CustomerEmail:     email,
		Amount:            link.Amount,
		Currency:          link.Currency,
		Metadata:          datatypes.JSON(metadata),
	}
	if key != "" {
		txn.IdempotencyKey = &key
	}

	if err := s.txns.CreateWithReservation(ctx, txn, now); err != nil {
		switch {
		case errors.Is(err, repository.ErrLinkUnavailable):
			return nil, utils.BadRequestError("This payment link is no longer valid", err)
		case errors.Is(err, repository.ErrDuplicate) && key != "":
			if existing, replayErr := s.replay(ctx, key, input.Slug); existing != nil || replayErr != nil {
				return existing, replayErr
			}
		}
		return nil, utils.InternalError("Failed to create transaction", err)
	}
	utils.LogInfo("Transaction %s created on link %s via %s", txn.ExternalReference, link.Slug, provider)

	result, err := gateway.Initiate(ctx, gateways.InitiateRequest{
		ExternalReference: txn.ExternalReference,
		Provider:          provider,
		Amount:            txn.Amount,
		Currency:          txn.Currency,
		Description:       link.Title,
		CustomerName:      name,
		CustomerPhone:     phone,
		CustomerEmail:     email,
	})
	if err != nil {
		utils.LogError("Gateway rejected %s: %v", txn.ExternalReference, err)
		failed, applyErr := s.ApplyStatus(ctx, txn, models.StatusFailed, "", "Payment could not be initiated with the provider")
		if applyErr != nil {
			utils.LogError("Failed to mark %s as failed: %v", txn.ExternalReference, applyErr)
		}
		if errors.Is(err, gateways.ErrProviderUnavailable) {
			return nil, utils.ServiceUnavailableError(utils.ErrServiceUnavailable, err)
		}
		if failed != nil {
			txn = failed
		}
		return s.view(txn, nil), nil
	}

	if result.ProviderTransactionID != "" {
		if err := s.txns.Update(ctx, txn.ID, map[string]interface{}{"provider_transaction_id": result.ProviderTransactionID}); err != nil {
			return nil, utils.InternalError("Failed to store provider reference", err)
		}
		txn.ProviderTransactionID = result.ProviderTransactionID
	}

	if result.Status != "" && result.Status != txn.Status {
		updated, err := s.ApplyStatus(ctx, txn, result.Status, result.ProviderTransactionID, "")
		if err != nil {
			return nil, err
		}
		txn = updated
	}

	return s.view(txn, result.Checkout), nil
}

// replay returns the transaction already created under key, if any
func (s *PaymentService) replay(ctx context.Context, key, slug string) (*PaymentView, error) {
	existing, err := s.txns.FindByIdempotencyKey(ctx, key)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, nil
		}
		return nil, utils.InternalError("Failed to check idempotency key", err)
	}
	if existing.PaymentLink != nil && existing.PaymentLink.Slug != strings.TrimSpace(slug) {
		return nil, utils.UnprocessableError("Idempotency key was already used for another payment", nil)
	}
	utils.LogInfo("Idempotent replay of %s", existing.ExternalReference)
	return s.view(existing, nil), nil
}

// GetStatus returns the payment state, asking the provider for news at most
// once per interval while the payment is still open
func (s *PaymentService) GetStatus(ctx context.Context, externalReference string) (*PaymentView, error) {
	txn, err := s.findByReference(ctx, externalReference)
	if err != nil {
		return nil, err
	}

	if s.shouldRefresh(ctx, txn) {
		if refreshed := s.refresh(ctx, txn); refreshed != nil {
			txn = refreshed
		}
	}
	return s.view(txn, nil), nil
}

func (s *PaymentService) shouldRefresh(ctx context.Context, txn *models.Transaction) bool {
	if txn.Status.IsTerminal() || txn.ProviderTransactionID == "" {
		return false
	}
	if txn.LastCheckedAt != nil && s.now().Sub(*txn.LastCheckedAt) < statusCheckInterval {
		return false
	}
	allowed, err := s.throttle.Allow(ctx, txn.ExternalReference, statusCheckInterval)
	if err != nil {
		utils.LogError("Status throttle unavailable for %s: %v", txn.ExternalReference, err)
		return true
	}
	return allowed
}

func (s *PaymentService) refresh(ctx context.Context, txn *models.Transaction) *models.Transaction {
	gateway, err := s.gateways.For(txn.Provider)
	if err != nil {
		return nil
	}

	if err := s.txns.Update(ctx, txn.ID, map[string]interface{}{"last_checked_at": s.now()}); err != nil {
		utils.LogError("Failed to record status check for %s: %v", txn.ExternalReference, err)
	}

	result, err := gateway.FetchStatus(ctx, txn.ProviderTransactionID)
	if err != nil {
		utils.LogError("Status check failed for %s: %v", txn.ExternalReference, err)
		return nil
	}
	if !result.Known || result.Status == txn.Status {
		return nil
	}

	updated, err := s.ApplyStatus(ctx, txn, result.Status, "", result.Reason)
	if err != nil {
		utils.LogError("Failed to apply provider status for %s: %v", txn.ExternalReference, err)
		return nil
	}
	return updated
}

// ApplyStatus moves a transaction along PENDING -> PROCESSING -> terminal.
// Repeating the current status is a no-op; terminal states never change.
func (s *PaymentService) ApplyStatus(ctx context.Context, txn *models.Transaction, next models.TransactionStatus, providerTxnID, reason string) (*models.Transaction, error) {
	for attempt := 0; attempt < maxApplyAttempts; attempt++ {
		if txn.Status == next {
			return txn, nil
		}
		if !txn.Status.CanTransitionTo(next) {
			return txn, utils.UnprocessableError("Cannot move a "+string(txn.Status)+" transaction to "+string(next), nil)
		}

		now := s.now()
		updates := map[string]interface{}{"status": next}
		if next.ReleasesUse() {
			if reason == "" {
				reason = "Payment " + strings.ToLower(string(next))
			}
			updates["failure_reason"] = reason
		}
		if next == models.StatusSuccess {
			updates["completed_at"] = now
		}
		if providerTxnID != "" && txn.ProviderTransactionID == "" {
			updates["provider_transaction_id"] = providerTxnID
		}

		err := s.txns.UpdateStatus(ctx, txn.ID, txn.Status, updates, next.ReleasesUse())
		if errors.Is(err, repository.ErrStaleStatus) {
			// another request moved it first; re-evaluate against the fresh state
			fresh, findErr := s.txns.FindByExternalReference(ctx, txn.ExternalReference)
			if findErr != nil {
				return nil, utils.InternalError("Failed to reload transaction", findErr)
			}
			txn = fresh
			continue
		}
		if err != nil {
			return nil, utils.InternalError("Failed to update transaction status", err)
		}

		previous := txn.Status
		utils.LogInfo("Transaction %s moved from %s to %s", txn.ExternalReference, previous, next)
		s.publish(ctx, txn, previous, next, now)

		updated, err := s.txns.FindByExternalReference(ctx, txn.ExternalReference)
		if err != nil {
			return nil, utils.InternalError("Failed to reload transaction", err)
		}

		if next == models.StatusSuccess && s.receipts != nil {
			receipt, err := s.receipts.IssueForTransaction(ctx, updated)
			if err != nil {
				utils.LogError("Failed to issue receipt for %s: %v", updated.ExternalReference, err)
			} else {
				updated.Receipt = receipt
			}
		}
		return updated, nil
	}
	return nil, utils.ConflictError("Transaction is being updated concurrently", nil)
}

func (s *PaymentService) publish(ctx context.Context, txn *models.Transaction, previous, next models.TransactionStatus, at time.Time) {
	event := events.TransactionEvent{
		Type:              events.TransactionStatusChanged,
		ExternalReference: txn.ExternalReference,
		Status:            string(next),
		PreviousStatus:    string(previous),
		Amount:            txn.Amount,
		Currency:          txn.Currency,
		Provider:          string(txn.Provider),
		MerchantID:        txn.UserID,
		OccurredAt:        at,
	}
	if err := s.publisher.Publish(ctx, txn.ExternalReference, event); err != nil {
		utils.LogError("Failed to publish status change for %s: %v", txn.ExternalReference, err)
	}
}

func (s *PaymentService) findByReference(ctx context.Context, externalReference string) (*models.Transaction, error) {
	txn, err := s.txns.FindByExternalReference(ctx, strings.TrimSpace(externalReference))
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, utils.NotFoundError("Transaction not found", err)
		}
		return nil, utils.InternalError("Failed to fetch transaction", err)
	}
	return txn, nil
}

func (s *PaymentService) view(txn *models.Transaction, checkout map[string]interface{}) *PaymentView {
	return &PaymentView{
		ExternalReference: txn.ExternalReference,
		Status:            txn.Status,
		Amount:            txn.Amount,
		Currency:          txn.Currency,
		Provider:          txn.Provider,
		FailureReason:     txn.FailureReason,
		ReceiptAvailable:  txn.Status == models.StatusSuccess,
		Checkout:          checkout,
		CreatedAt:         txn.CreatedAt,
		CompletedAt:       txn.CompletedAt,
	}
}

func linkUnavailableMessage(status models.LinkStatus) string {
	switch status {
	case models.LinkStatusExhausted:
		return "This payment link has reached its usage limit"
	case models.LinkStatusExpired:
		return "This payment link has expired"
	case models.LinkStatusInactive:
		return "This payment link is not active"
	}
	return "This payment link is no longer valid"
}
