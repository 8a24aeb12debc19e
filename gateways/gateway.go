package gateways

import (
	"context"
	"errors"
	"fmt"
	"net"

	"github.com/shopspring/decimal"

	"github.com/mansatask/mansatask-api/models"
)

var (
	// ErrProviderUnavailable marks network and timeout failures towards a provider
	ErrProviderUnavailable = errors.New("payment provider unavailable")
	// ErrUnsupportedProvider is returned when no gateway serves the provider
	ErrUnsupportedProvider = errors.New("unsupported payment provider")
)

type InitiateRequest struct {
	ExternalReference string
	Provider          models.PaymentProvider
	Amount            decimal.Decimal
	Currency          string
	Description       string
	CustomerName      string
	CustomerPhone     string
	CustomerEmail     string
}

type InitiateResult struct {
	ProviderTransactionID string
	Status                models.TransactionStatus
	// Checkout carries whatever the client needs to complete the payment
	Checkout map[string]interface{}
}

type StatusResult struct {
	// Known is false when the provider cannot report a status and webhooks must be awaited
	Known  bool
	Status models.TransactionStatus
	Reason string
}

// Gateway hands payments to a provider and asks it for their status
type Gateway interface {
	Initiate(ctx context.Context, req InitiateRequest) (*InitiateResult, error)
	FetchStatus(ctx context.Context, providerTransactionID string) (*StatusResult, error)
}

// Registry maps each provider to the gateway serving it
type Registry map[models.PaymentProvider]Gateway

func (r Registry) For(provider models.PaymentProvider) (Gateway, error) {
	gw, ok := r[provider]
	if !ok || gw == nil {
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedProvider, provider)
	}
	return gw, nil
}

// NewRegistry registers the mobile-money gateway for every mobile-money
// provider and the Razorpay gateway when one is given
func NewRegistry(mobileMoney Gateway, razorpay Gateway) Registry {
	registry := Registry{}
	for _, p := range models.Providers {
		if p == models.ProviderRazorpay {
			continue
		}
		registry[p] = mobileMoney
	}
	if razorpay != nil {
		registry[models.ProviderRazorpay] = razorpay
	}
	return registry
}

// classify wraps network and timeout errors with ErrProviderUnavailable
func classify(err error) error {
	if err == nil {
		return nil
	}
	var netErr net.Error
	if errors.Is(err, context.DeadlineExceeded) || errors.As(err, &netErr) {
		return fmt.Errorf("%w: %v", ErrProviderUnavailable, err)
	}
	return err
}
