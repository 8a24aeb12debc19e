package services

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/mansatask/mansatask-api/models"
	"github.com/mansatask/mansatask-api/repository"
	"github.com/mansatask/mansatask-api/storage"
	"github.com/mansatask/mansatask-api/utils"
)

const receiptAlphabet = "ABCDEFGHJKLMNPQRSTUVWXYZ23456789"

// ReceiptFile is a rendered receipt ready to stream
type ReceiptFile struct {
	Filename string
	Content  []byte
}

type ReceiptService struct {
	receipts      ReceiptRepository
	txns          TransactionRepository
	users         UserRepository
	storage       storage.ObjectStorage
	renderer      ReceiptRenderer
	mailer        Mailer
	publicBaseURL string
	now           func() time.Time
}

func NewReceiptService(receipts ReceiptRepository, txns TransactionRepository, users UserRepository, store storage.ObjectStorage, renderer ReceiptRenderer, mailer Mailer, publicBaseURL string) *ReceiptService {
	return &ReceiptService{
		receipts:      receipts,
		txns:          txns,
		users:         users,
		storage:       store,
		renderer:      renderer,
		mailer:        mailer,
		publicBaseURL: strings.TrimRight(publicBaseURL, "/"),
		now:           func() time.Time { return time.Now().UTC() },
	}
}

// NewReceiptNumber formats RCP-YYYYMMDD-XXXXXXXX
func NewReceiptNumber(now time.Time) (string, error) {
	b := make([]byte, 8)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	for i := range b {
		b[i] = receiptAlphabet[int(b[i])%len(receiptAlphabet)]
	}
	return fmt.Sprintf("RCP-%s-%s", now.Format("20060102"), string(b)), nil
}

// Generate issues the receipt for a merchant's successful transaction
func (s *ReceiptService) Generate(ctx context.Context, userID, transactionID uint) (*models.Receipt, error) {
	txn, err := s.findTransaction(ctx, userID, transactionID)
	if err != nil {
		return nil, err
	}
	receipt, _, err := s.issue(ctx, txn)
	return receipt, err
}

// IssueForTransaction creates the receipt after a payment succeeds and emails
// it to the customer the first time it is created
func (s *ReceiptService) IssueForTransaction(ctx context.Context, txn *models.Transaction) (*models.Receipt, error) {
	receipt, pdf, err := s.issue(ctx, txn)
	if err != nil {
		return nil, err
	}
	if pdf != nil && txn.CustomerEmail != "" {
		merchant := s.merchantName(ctx, txn.UserID)
		if err := s.mailer.SendPaymentReceipt(txn.CustomerEmail, txn.CustomerName, merchant, receipt.ReceiptNumber, pdf); err != nil {
			utils.LogError("Failed to email receipt %s: %v", receipt.ReceiptNumber, err)
		}
	}
	return receipt, nil
}

func (s *ReceiptService) Get(ctx context.Context, userID, transactionID uint) (*models.Receipt, error) {
	txn, err := s.findTransaction(ctx, userID, transactionID)
	if err != nil {
		return nil, err
	}
	return s.findReceipt(ctx, txn.ID)
}

func (s *ReceiptService) Download(ctx context.Context, userID, transactionID uint) (*ReceiptFile, error) {
	txn, err := s.findTransaction(ctx, userID, transactionID)
	if err != nil {
		return nil, err
	}
	receipt, err := s.findReceipt(ctx, txn.ID)
	if err != nil {
		return nil, err
	}
	return s.load(ctx, txn, receipt)
}

// DownloadPublic serves the receipt to the paying customer, generating it on first request
func (s *ReceiptService) DownloadPublic(ctx context.Context, externalReference string) (*ReceiptFile, error) {
	txn, err := s.txns.FindByExternalReference(ctx, externalReference)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, utils.NotFoundError("Transaction not found", err)
		}
		return nil, utils.InternalError("Failed to fetch transaction", err)
	}

	receipt, _, err := s.issue(ctx, txn)
	if err != nil {
		return nil, err
	}
	return s.load(ctx, txn, receipt)
}

// issue returns the existing receipt or creates one. The rendered PDF is
// returned only when this call created the receipt.
func (s *ReceiptService) issue(ctx context.Context, txn *models.Transaction) (*models.Receipt, []byte, error) {
	if txn.Status != models.StatusSuccess {
		return nil, nil, utils.BadRequestError("Receipts are only available for successful transactions", nil)
	}

	existing, err := s.receipts.FindByTransactionID(ctx, txn.ID)
	if err == nil {
		return existing, nil, nil
	}
	if !errors.Is(err, repository.ErrNotFound) {
		return nil, nil, utils.InternalError("Failed to fetch receipt", err)
	}

	now := s.now()
	number, err := NewReceiptNumber(now)
	if err != nil {
		return nil, nil, utils.InternalError("Failed to generate receipt number", err)
	}

	pdf, err := s.render(ctx, txn, number, now)
	if err != nil {
		return nil, nil, err
	}

	key := "receipts/" + number + ".pdf"
	if _, err := s.storage.Put(ctx, key, pdf, "application/pdf"); err != nil {
		return nil, nil, utils.InternalError("Failed to store receipt", err)
	}

	receipt := &models.Receipt{
		TransactionID: txn.ID,
		ReceiptNumber: number,
		PDFURL:        s.publicBaseURL + "/v1/receipts/public/" + txn.ExternalReference + "/download",
		PDFKey:        key,
	}
	if err := s.receipts.Create(ctx, receipt); err != nil {
		if cleanupErr := s.storage.Delete(ctx, key); cleanupErr != nil {
			utils.LogError("Failed to remove orphan receipt %s: %v", key, cleanupErr)
		}
		if errors.Is(err, repository.ErrDuplicate) {
			// a concurrent request issued the receipt first
			winner, findErr := s.receipts.FindByTransactionID(ctx, txn.ID)
			if findErr != nil {
				return nil, nil, utils.InternalError("Failed to fetch receipt", findErr)
			}
			return winner, nil, nil
		}
		return nil, nil, utils.InternalError("Failed to save receipt", err)
	}

	utils.LogInfo("Receipt %s issued for transaction %s", number, txn.ExternalReference)
	return receipt, pdf, nil
}

func (s *ReceiptService) render(ctx context.Context, txn *models.Transaction, number string, now time.Time) ([]byte, error) {
	data := ReceiptData{
		ReceiptNumber:         number,
		MerchantName:          utils.AppName,
		CustomerName:          txn.CustomerName,
		CustomerPhone:         txn.CustomerPhone,
		CustomerEmail:         txn.CustomerEmail,
		Amount:                txn.Amount,
		Currency:              txn.Currency,
		Provider:              string(txn.Provider),
		ExternalReference:     txn.ExternalReference,
		ProviderTransactionID: txn.ProviderTransactionID,
		PaidAt:                now,
		IssuedAt:              now,
	}
	if txn.CompletedAt != nil {
		data.PaidAt = txn.CompletedAt.UTC()
	}
	if txn.PaymentLink != nil {
		data.Description = txn.PaymentLink.Title
	}
	if merchant, err := s.users.FindProfile(ctx, txn.UserID); err == nil {
		data.MerchantName = merchant.DisplayName()
		data.MerchantEmail = merchant.Email
	} else {
		utils.LogError("Failed to load merchant %d for receipt: %v", txn.UserID, err)
	}

	pdf, err := s.renderer.Render(data)
	if err != nil {
		return nil, utils.InternalError("Failed to render receipt", err)
	}
	return pdf, nil
}

// load reads the stored PDF, rendering it again if the object went missing
func (s *ReceiptService) load(ctx context.Context, txn *models.Transaction, receipt *models.Receipt) (*ReceiptFile, error) {
	filename := receipt.ReceiptNumber + ".pdf"

	body, _, err := s.storage.Get(ctx, receipt.PDFKey)
	if err == nil {
		defer body.Close()
		content, err := io.ReadAll(body)
		if err != nil {
			return nil, utils.InternalError("Failed to read receipt", err)
		}
		return &ReceiptFile{Filename: filename, Content: content}, nil
	}
	if !errors.Is(err, storage.ErrObjectNotFound) {
		return nil, utils.InternalError("Failed to read receipt", err)
	}

	utils.LogError("Receipt object %s missing, rendering again", receipt.PDFKey)
	pdf, err := s.render(ctx, txn, receipt.ReceiptNumber, receipt.CreatedAt.UTC())
	if err != nil {
		return nil, err
	}
	if _, err := s.storage.Put(ctx, receipt.PDFKey, pdf, "application/pdf"); err != nil {
		utils.LogError("Failed to restore receipt %s: %v", receipt.PDFKey, err)
	}
	return &ReceiptFile{Filename: filename, Content: pdf}, nil
}

func (s *ReceiptService) merchantName(ctx context.Context, userID uint) string {
	merchant, err := s.users.FindProfile(ctx, userID)
	if err != nil {
		utils.LogError("Failed to load merchant %d for receipt: %v", userID, err)
		return utils.AppName
	}
	return merchant.DisplayName()
}

func (s *ReceiptService) findTransaction(ctx context.Context, userID, transactionID uint) (*models.Transaction, error) {
	txn, err := s.txns.FindByID(ctx, userID, transactionID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, utils.NotFoundError("Transaction not found", err)
		}
		return nil, utils.InternalError("Failed to fetch transaction", err)
	}
	return txn, nil
}

func (s *ReceiptService) findReceipt(ctx context.Context, transactionID uint) (*models.Receipt, error) {
	receipt, err := s.receipts.FindByTransactionID(ctx, transactionID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, utils.NotFoundError("Receipt not found", err)
		}
		return nil, utils.InternalError("Failed to fetch receipt", err)
	}
	return receipt, nil
}
