package controllers

import (
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/mansatask/mansatask-api/services"
	"github.com/mansatask/mansatask-api/utils"
)

type ReceiptController struct {
	receipts *services.ReceiptService
}

func NewReceiptController(receipts *services.ReceiptService) *ReceiptController {
	return &ReceiptController{receipts: receipts}
}

func (ctl *ReceiptController) Generate(c *gin.Context) {
	utils.LogInfo("GenerateReceipt called")

	userID, ok := currentUserID(c)
	if !ok {
		return
	}
	txnID, ok := paramID(c, "transactionId", "transaction ID")
	if !ok {
		return
	}

	receipt, err := ctl.receipts.Generate(c.Request.Context(), userID, txnID)
	if err != nil {
		utils.RespondWithError(c, err)
		return
	}
	utils.Created(c, "Receipt generated successfully", gin.H{"receipt": receipt})
}

func (ctl *ReceiptController) Get(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}
	txnID, ok := paramID(c, "transactionId", "transaction ID")
	if !ok {
		return
	}

	receipt, err := ctl.receipts.Get(c.Request.Context(), userID, txnID)
	if err != nil {
		utils.RespondWithError(c, err)
		return
	}
	utils.Success(c, "Receipt retrieved successfully", gin.H{"receipt": receipt})
}

func (ctl *ReceiptController) Download(c *gin.Context) {
	utils.LogInfo("DownloadReceipt called")

	userID, ok := currentUserID(c)
	if !ok {
		return
	}
	txnID, ok := paramID(c, "transactionId", "transaction ID")
	if !ok {
		return
	}

	file, err := ctl.receipts.Download(c.Request.Context(), userID, txnID)
	if err != nil {
		utils.RespondWithError(c, err)
		return
	}
	sendPDF(c, file)
}

// DownloadPublic lets the paying customer fetch the receipt by payment reference
func (ctl *ReceiptController) DownloadPublic(c *gin.Context) {
	utils.LogInfo("DownloadPublicReceipt called")

	file, err := ctl.receipts.DownloadPublic(c.Request.Context(), c.Param("externalReference"))
	if err != nil {
		utils.RespondWithError(c, err)
		return
	}
	sendPDF(c, file)
}

func sendPDF(c *gin.Context, file *services.ReceiptFile) {
	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%s", file.Filename))
	c.Data(http.StatusOK, "application/pdf", file.Content)
}
