package controllers

import (
	"github.com/gin-gonic/gin"

	"github.com/mansatask/mansatask-api/services"
	"github.com/mansatask/mansatask-api/utils"
)

type PaymentController struct {
	payments *services.PaymentService
}

func NewPaymentController(payments *services.PaymentService) *PaymentController {
	return &PaymentController{payments: payments}
}

// Initiate starts a customer payment on a public link. Clients retrying the
// same payment send the same Idempotency-Key header.
func (ctl *PaymentController) Initiate(c *gin.Context) {
	utils.LogInfo("InitiatePayment called")

	var req services.InitiatePaymentInput
	if !bindJSON(c, &req) {
		return
	}

	payment, err := ctl.payments.Initiate(c.Request.Context(), req, c.GetHeader(utils.IdempotencyHeader))
	if err != nil {
		utils.RespondWithError(c, err)
		return
	}
	utils.Created(c, "Payment initiated", gin.H{"payment": payment})
}

// Status is polled by the payment page until the payment is terminal
func (ctl *PaymentController) Status(c *gin.Context) {
	payment, err := ctl.payments.GetStatus(c.Request.Context(), c.Param("externalReference"))
	if err != nil {
		utils.RespondWithError(c, err)
		return
	}
	utils.Success(c, "Payment status retrieved", gin.H{"payment": payment})
}

// Webhook receives provider notifications signed with the shared secret
func (ctl *PaymentController) Webhook(c *gin.Context) {
	provider := c.Param("provider")
	utils.LogInfo("Webhook received from %s", provider)

	body, err := c.GetRawData()
	if err != nil {
		utils.LogError("Failed to read webhook body: %v", err)
		utils.BadRequest(c, "Invalid webhook payload", nil)
		return
	}

	result, err := ctl.payments.HandleWebhook(c.Request.Context(), provider, body, c.GetHeader(utils.WebhookSignatureHeader))
	if err != nil {
		utils.RespondWithError(c, err)
		return
	}
	utils.Success(c, "Webhook processed", result)
}
