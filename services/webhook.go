package services

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"strings"

	"gorm.io/datatypes"

	"github.com/mansatask/mansatask-api/models"
	"github.com/mansatask/mansatask-api/repository"
	"github.com/mansatask/mansatask-api/utils"
)

// WebhookPayload is the status notification a provider posts
type WebhookPayload struct {
	EventID               string `json:"eventId"`
	ExternalReference     string `json:"externalReference"`
	ProviderTransactionID string `json:"providerTransactionId"`
	Status                string `json:"status"`
	Reason                string `json:"reason"`
}

type WebhookResult struct {
	Duplicate         bool                     `json:"duplicate"`
	ExternalReference string                   `json:"external_reference,omitempty"`
	Status            models.TransactionStatus `json:"status,omitempty"`
}

// SignWebhook returns the hex HMAC-SHA256 of body
func SignWebhook(secret string, body []byte) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(body)
	return hex.EncodeToString(mac.Sum(nil))
}

// VerifyWebhookSignature compares in constant time
func VerifyWebhookSignature(secret string, body []byte, signature string) bool {
	if secret == "" || signature == "" {
		return false
	}
	given, err := hex.DecodeString(strings.TrimSpace(signature))
	if err != nil {
		return false
	}
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(body)
	return hmac.Equal(given, mac.Sum(nil))
}

// HandleWebhook verifies and applies a provider notification. Each
// (provider, event id) pair is applied once; replays of a successfully
// processed event are acknowledged, replays of a failed one run again.
func (s *PaymentService) HandleWebhook(ctx context.Context, providerName string, body []byte, signature string) (*WebhookResult, error) {
	if !VerifyWebhookSignature(s.secret, body, signature) {
		utils.LogError("Rejected webhook from %s: bad signature", providerName)
		return nil, utils.UnauthorizedError("Invalid webhook signature", nil)
	}

	provider, ok := models.ParseProvider(strings.ToUpper(providerName))
	if !ok {
		return nil, utils.BadRequestError("Unsupported payment provider", nil)
	}

	var payload WebhookPayload
	if err := json.Unmarshal(body, &payload); err != nil {
		return nil, utils.BadRequestError("Invalid webhook payload", err)
	}
	if payload.EventID == "" || payload.Status == "" {
		return nil, utils.BadRequestError("Webhook payload requires eventId and status", nil)
	}
	if payload.ExternalReference == "" && payload.ProviderTransactionID == "" {
		return nil, utils.BadRequestError("Webhook payload requires externalReference or providerTransactionId", nil)
	}
	status, ok := models.ParseStatus(strings.ToUpper(payload.Status))
	if !ok {
		return nil, utils.BadRequestError("Unknown payment status", nil)
	}

	event := &models.WebhookEvent{
		Provider:        string(provider),
		ProviderEventID: payload.EventID,
		EventType:       "payment.status." + strings.ToLower(string(status)),
		Payload:         datatypes.JSON(body),
	}
	if err := s.webhooks.Create(ctx, event); err != nil {
		if !errors.Is(err, repository.ErrDuplicate) {
			return nil, utils.InternalError("Failed to record webhook", err)
		}
		existing, findErr := s.webhooks.FindByProviderEvent(ctx, string(provider), payload.EventID)
		if findErr != nil {
			return nil, utils.InternalError("Failed to load recorded webhook", findErr)
		}
		if existing.ProcessedAt != nil && existing.ProcessingError == "" {
			utils.LogInfo("Duplicate webhook %s/%s acknowledged", provider, payload.EventID)
			return &WebhookResult{Duplicate: true}, nil
		}
		utils.LogInfo("Retrying webhook %s/%s (previous error: %s)", provider, payload.EventID, existing.ProcessingError)
		event = existing
	}

	txn, err := s.webhookTransaction(ctx, provider, payload)
	if err != nil {
		s.markProcessed(ctx, event, err.Error())
		if utils.IsNotFoundError(err) {
			// nothing to retry; the event stays recorded with the error
			return &WebhookResult{}, nil
		}
		return nil, err
	}

	updated, err := s.ApplyStatus(ctx, txn, status, payload.ProviderTransactionID, payload.Reason)
	if err != nil {
		s.markProcessed(ctx, event, err.Error())
		if appErr := utils.GetAppError(err); appErr != nil && appErr.Code < 500 {
			utils.LogInfo("Webhook %s/%s not applied: %v", provider, payload.EventID, err)
			return &WebhookResult{ExternalReference: txn.ExternalReference, Status: txn.Status}, nil
		}
		return nil, err
	}

	s.markProcessed(ctx, event, "")
	return &WebhookResult{ExternalReference: updated.ExternalReference, Status: updated.Status}, nil
}

func (s *PaymentService) webhookTransaction(ctx context.Context, provider models.PaymentProvider, payload WebhookPayload) (*models.Transaction, error) {
	var (
		txn *models.Transaction
		err error
	)
	if payload.ExternalReference != "" {
		txn, err = s.txns.FindByExternalReference(ctx, payload.ExternalReference)
	} else {
		txn, err = s.txns.FindByProviderTransactionID(ctx, provider, payload.ProviderTransactionID)
	}
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			if payload.ExternalReference == "" {
				// the provider ID is stored only after the gateway answers, so
				// a fast callback can beat Initiate; ask the provider to retry
				return nil, utils.ServiceUnavailableError("Transaction not ready", err)
			}
			return nil, utils.NotFoundError("Transaction not found", err)
		}
		return nil, utils.InternalError("Failed to fetch transaction", err)
	}
	if txn.Provider != provider {
		return nil, utils.NotFoundError("Transaction not found for provider", nil)
	}
	return txn, nil
}

func (s *PaymentService) markProcessed(ctx context.Context, event *models.WebhookEvent, processingError string) {
	if err := s.webhooks.MarkProcessed(ctx, event.ID, processingError, s.now()); err != nil {
		utils.LogError("Failed to mark webhook %d processed: %v", event.ID, err)
	}
}
