package services

import (
	"bytes"
	"context"
	"errors"
	"strings"

	"github.com/tealeg/xlsx"

	"github.com/mansatask/mansatask-api/models"
	"github.com/mansatask/mansatask-api/repository"
	"github.com/mansatask/mansatask-api/utils"
)

// maxExportRows caps a single spreadsheet export
const maxExportRows = 10000

// TransactionQuery is the raw filter as it arrives from the query string
type TransactionQuery struct {
	Status        string
	Provider      string
	From          string
	To            string
	PaymentLinkID uint
	Search        string
}

type TransactionService struct {
	txns TransactionRepository
}

func NewTransactionService(txns TransactionRepository) *TransactionService {
	return &TransactionService{txns: txns}
}

// ParseFilter validates the query. A date-only "to" includes that whole day.
func ParseFilter(q TransactionQuery) (repository.TransactionFilter, error) {
	filter := repository.TransactionFilter{
		PaymentLinkID: q.PaymentLinkID,
		Search:        strings.TrimSpace(q.Search),
	}

	if q.Status != "" {
		status, ok := models.ParseStatus(strings.ToUpper(q.Status))
		if !ok {
			return filter, utils.BadRequestError("Invalid status filter", nil)
		}
		filter.Status = status
	}
	if q.Provider != "" {
		provider, ok := models.ParseProvider(strings.ToUpper(q.Provider))
		if !ok {
			return filter, utils.BadRequestError("Invalid provider filter", nil)
		}
		filter.Provider = provider
	}
	if q.From != "" {
		from, err := utils.ParseDateBound(q.From, false)
		if err != nil {
			return filter, utils.BadRequestError("Invalid from date, use YYYY-MM-DD or RFC3339", err)
		}
		filter.From = &from
	}
	if q.To != "" {
		to, err := utils.ParseDateBound(q.To, true)
		if err != nil {
			return filter, utils.BadRequestError("Invalid to date, use YYYY-MM-DD or RFC3339", err)
		}
		filter.To = &to
	}
	if filter.From != nil && filter.To != nil && !filter.From.Before(*filter.To) {
		return filter, utils.BadRequestError("from must be before to", nil)
	}
	return filter, nil
}

func (s *TransactionService) List(ctx context.Context, userID uint, query TransactionQuery, page repository.Page) ([]models.Transaction, int64, error) {
	filter, err := ParseFilter(query)
	if err != nil {
		return nil, 0, err
	}
	txns, total, err := s.txns.List(ctx, userID, filter, page)
	if err != nil {
		return nil, 0, utils.InternalError("Failed to fetch transactions", err)
	}
	return txns, total, nil
}

func (s *TransactionService) Get(ctx context.Context, userID, id uint) (*models.Transaction, error) {
	txn, err := s.txns.FindByID(ctx, userID, id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, utils.NotFoundError("Transaction not found", err)
		}
		return nil, utils.InternalError("Failed to fetch transaction", err)
	}
	return txn, nil
}

func (s *TransactionService) Stats(ctx context.Context, userID uint) (*repository.TransactionStats, error) {
	stats, err := s.txns.Stats(ctx, userID)
	if err != nil {
		return nil, utils.InternalError("Failed to compute statistics", err)
	}
	return stats, nil
}

// Export writes the filtered transactions to an XLSX workbook
func (s *TransactionService) Export(ctx context.Context, userID uint, query TransactionQuery) ([]byte, error) {
	filter, err := ParseFilter(query)
	if err != nil {
		return nil, err
	}
	txns, _, err := s.txns.List(ctx, userID, filter, repository.Page{Limit: maxExportRows})
	if err != nil {
		return nil, utils.InternalError("Failed to fetch transactions", err)
	}

	file := xlsx.NewFile()
	sheet, err := file.AddSheet("Transactions")
	if err != nil {
		return nil, utils.InternalError("Failed to create sheet", err)
	}

	headers := []string{"Reference", "Date", "Payment Link", "Customer", "Phone", "Email", "Provider", "Status", "Amount", "Currency", "Completed", "Failure Reason"}
	headerRow := sheet.AddRow()
	style := xlsx.NewStyle()
	font := xlsx.DefaultFont()
	font.Bold = true
	style.Font = *font
	for _, h := range headers {
		cell := headerRow.AddCell()
		cell.SetString(h)
		cell.SetStyle(style)
	}

	for _, txn := range txns {
		row := sheet.AddRow()
		row.AddCell().SetString(txn.ExternalReference)
		row.AddCell().SetString(txn.CreatedAt.UTC().Format("2006-01-02 15:04"))
		title := ""
		if txn.PaymentLink != nil {
			title = txn.PaymentLink.Title
		}
		row.AddCell().SetString(title)
		row.AddCell().SetString(txn.CustomerName)
		row.AddCell().SetString(txn.CustomerPhone)
		row.AddCell().SetString(txn.CustomerEmail)
		row.AddCell().SetString(string(txn.Provider))
		row.AddCell().SetString(string(txn.Status))
		amount, _ := txn.Amount.Float64()
		row.AddCell().SetFloat(amount)
		row.AddCell().SetString(txn.Currency)
		completed := ""
		if txn.CompletedAt != nil {
			completed = txn.CompletedAt.UTC().Format("2006-01-02 15:04")
		}
		row.AddCell().SetString(completed)
		row.AddCell().SetString(txn.FailureReason)
	}

	var buf bytes.Buffer
	if err := file.Write(&buf); err != nil {
		return nil, utils.InternalError("Failed to write spreadsheet", err)
	}
	utils.LogInfo("Exported %d transactions for user ID: %d", len(txns), userID)
	return buf.Bytes(), nil
}
