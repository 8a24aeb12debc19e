package controllers

import (
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/mansatask/mansatask-api/services"
	"github.com/mansatask/mansatask-api/utils"
)

const xlsxContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

type TransactionController struct {
	txns *services.TransactionService
}

func NewTransactionController(txns *services.TransactionService) *TransactionController {
	return &TransactionController{txns: txns}
}

func transactionQuery(c *gin.Context) (services.TransactionQuery, bool) {
	query := services.TransactionQuery{
		Status:   c.Query("status"),
		Provider: c.Query("provider"),
		From:     c.Query("from"),
		To:       c.Query("to"),
		Search:   c.Query("search"),
	}
	if raw := c.Query("payment_link_id"); raw != "" {
		id, err := strconv.ParseUint(raw, 10, 64)
		if err != nil {
			utils.LogError("Invalid payment_link_id filter: %s", raw)
			utils.BadRequest(c, "Invalid payment link ID", nil)
			return query, false
		}
		query.PaymentLinkID = uint(id)
	}
	return query, true
}

// List supports status, provider, from, to, payment_link_id and search filters
func (ctl *TransactionController) List(c *gin.Context) {
	utils.LogInfo("ListTransactions called")

	userID, ok := currentUserID(c)
	if !ok {
		return
	}
	query, ok := transactionQuery(c)
	if !ok {
		return
	}

	pagination := utils.NewPagination(c)
	txns, total, err := ctl.txns.List(c.Request.Context(), userID, query, pageFrom(pagination))
	if err != nil {
		utils.RespondWithError(c, err)
		return
	}

	pagination.SetTotal(total)
	utils.LogInfo("Retrieved %d transactions for user ID: %d", len(txns), userID)
	pagination.Respond(c, "Transactions retrieved successfully", gin.H{"transactions": txns})
}

func (ctl *TransactionController) Stats(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}

	stats, err := ctl.txns.Stats(c.Request.Context(), userID)
	if err != nil {
		utils.RespondWithError(c, err)
		return
	}
	utils.Success(c, "Transaction statistics retrieved successfully", gin.H{"stats": stats})
}

// Export downloads the filtered transactions as an Excel workbook
func (ctl *TransactionController) Export(c *gin.Context) {
	utils.LogInfo("ExportTransactions called")

	userID, ok := currentUserID(c)
	if !ok {
		return
	}
	query, ok := transactionQuery(c)
	if !ok {
		return
	}

	data, err := ctl.txns.Export(c.Request.Context(), userID, query)
	if err != nil {
		utils.RespondWithError(c, err)
		return
	}

	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=transactions_%s.xlsx", time.Now().Format("20060102")))
	c.Data(http.StatusOK, xlsxContentType, data)
}

func (ctl *TransactionController) Get(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}
	id, ok := paramID(c, "id", "transaction ID")
	if !ok {
		return
	}

	txn, err := ctl.txns.Get(c.Request.Context(), userID, id)
	if err != nil {
		utils.RespondWithError(c, err)
		return
	}
	utils.Success(c, "Transaction retrieved successfully", gin.H{"transaction": txn})
}
