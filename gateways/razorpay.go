package gateways

import (
	"context"
	"errors"
	"fmt"
	"strings"

	razorpay "github.com/razorpay/razorpay-go"
	"github.com/shopspring/decimal"

	"github.com/mansatask/mansatask-api/models"
	"github.com/mansatask/mansatask-api/utils"
)

// orderAPI is the part of the Razorpay client the gateway uses
type orderAPI interface {
	Create(data map[string]interface{}, extraHeaders map[string]string) (map[string]interface{}, error)
	Fetch(orderID string, queryParams map[string]interface{}, extraHeaders map[string]string) (map[string]interface{}, error)
}

type RazorpayGateway struct {
	orders orderAPI
	key    string
}

func NewRazorpayGateway(key, secret string) *RazorpayGateway {
	client := razorpay.NewClient(key, secret)
	return &RazorpayGateway{orders: client.Order, key: key}
}

// currencies without a minor unit
var zeroDecimalCurrencies = map[string]bool{"XOF": true, "XAF": true, "GNF": true, "JPY": true}

// MinorUnits converts an amount to the provider's smallest currency unit
func MinorUnits(amount decimal.Decimal, currency string) int64 {
	if zeroDecimalCurrencies[strings.ToUpper(currency)] {
		return amount.Round(0).IntPart()
	}
	return amount.Mul(decimal.NewFromInt(100)).Round(0).IntPart()
}

func (g *RazorpayGateway) Initiate(ctx context.Context, req InitiateRequest) (*InitiateResult, error) {
	orderData := map[string]interface{}{
		"amount":          MinorUnits(req.Amount, req.Currency),
		"currency":        req.Currency,
		"receipt":         req.ExternalReference,
		"payment_capture": 1,
		"notes": map[string]interface{}{
			"external_reference": req.ExternalReference,
			"customer_phone":     req.CustomerPhone,
		},
	}

	order, err := g.orders.Create(orderData, nil)
	if err != nil {
		utils.LogError("Failed to create Razorpay order for %s: %v", req.ExternalReference, err)
		return nil, classify(err)
	}

	orderID := fmt.Sprintf("%v", order["id"])
	if order["id"] == nil || orderID == "" {
		return nil, errors.New("razorpay order response carried no id")
	}
	utils.LogInfo("Created Razorpay order %s for %s", orderID, req.ExternalReference)

	return &InitiateResult{
		ProviderTransactionID: orderID,
		Status:                models.StatusPending,
		Checkout: map[string]interface{}{
			"razorpay_order_id": orderID,
			"key":               g.key,
			"amount":            orderData["amount"],
			"currency":          req.Currency,
			"name":              req.CustomerName,
			"email":             req.CustomerEmail,
			"contact":           req.CustomerPhone,
		},
	}, nil
}

func (g *RazorpayGateway) FetchStatus(ctx context.Context, providerTransactionID string) (*StatusResult, error) {
	order, err := g.orders.Fetch(providerTransactionID, nil, nil)
	if err != nil {
		return nil, classify(err)
	}

	switch fmt.Sprintf("%v", order["status"]) {
	case "paid":
		return &StatusResult{Known: true, Status: models.StatusSuccess}, nil
	case "attempted":
		return &StatusResult{Known: true, Status: models.StatusProcessing}, nil
	case "created":
		return &StatusResult{Known: true, Status: models.StatusPending}, nil
	default:
		return &StatusResult{Known: false}, nil
	}
}
