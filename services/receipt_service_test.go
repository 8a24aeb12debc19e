package services

import (
	"context"
	"net/http"
	"os"
	"path/filepath"
	"regexp"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/mansatask/mansatask-api/models"
	"github.com/mansatask/mansatask-api/repository"
	"github.com/mansatask/mansatask-api/storage"
	"github.com/mansatask/mansatask-api/utils"
)

type receiptFixture struct {
	db     *gorm.DB
	svc    *ReceiptService
	mailer *mockMailer
	root   string
	user   *models.User
	link   *models.PaymentLink
}

func newReceiptFixture(t *testing.T) *receiptFixture {
	t.Helper()
	db := newServiceTestDB(t)
	root := t.TempDir()
	store, err := storage.NewLocalStorage(root, "http://localhost:8080/files")
	require.NoError(t, err)

	mailer := &mockMailer{}
	user := seedMerchant(t, db, "merchant@example.com")
	svc := NewReceiptService(
		repository.NewReceiptRepository(db),
		repository.NewTransactionRepository(db),
		repository.NewUserRepository(db),
		store,
		fakeRenderer{},
		mailer,
		"https://api.example.com/",
	)
	return &receiptFixture{
		db:     db,
		svc:    svc,
		mailer: mailer,
		root:   root,
		user:   user,
		link:   seedPaymentLink(t, db, user.ID, "braids-a1b2c3", nil),
	}
}

func TestNewReceiptNumberFormat(t *testing.T) {
	number, err := NewReceiptNumber(time.Date(2024, 3, 9, 12, 0, 0, 0, time.UTC))
	require.NoError(t, err)
	assert.Regexp(t, regexp.MustCompile(`^RCP-20240309-[A-Z2-9]{8}$`), number)
}

func TestIssueForTransactionEmailsOnce(t *testing.T) {
	f := newReceiptFixture(t)
	ctx := context.Background()
	txn := seedTransaction(t, f.db, f.link, "TXN-0000000000000001", models.StatusSuccess)

	receipt, err := f.svc.IssueForTransaction(ctx, txn)
	require.NoError(t, err)
	assert.Equal(t, "https://api.example.com/v1/receipts/public/TXN-0000000000000001/download", receipt.PDFURL)
	assert.FileExists(t, filepath.Join(f.root, receipt.PDFKey))

	again, err := f.svc.IssueForTransaction(ctx, txn)
	require.NoError(t, err)
	assert.Equal(t, receipt.ReceiptNumber, again.ReceiptNumber)

	sent := f.mailer.Sent()
	require.Len(t, sent, 1)
	assert.Equal(t, "kofi@example.com", sent[0].To)
	assert.Equal(t, []byte("%PDF-"+receipt.ReceiptNumber), sent[0].PDF)
}

func TestReceiptRequiresSuccessfulTransaction(t *testing.T) {
	f := newReceiptFixture(t)
	txn := seedTransaction(t, f.db, f.link, "TXN-0000000000000002", models.StatusProcessing)

	_, err := f.svc.Generate(context.Background(), f.user.ID, txn.ID)
	assert.True(t, utils.HasCode(err, http.StatusBadRequest))

	_, err = f.svc.DownloadPublic(context.Background(), txn.ExternalReference)
	assert.True(t, utils.HasCode(err, http.StatusBadRequest))
}

func TestReceiptScopedToMerchant(t *testing.T) {
	f := newReceiptFixture(t)
	txn := seedTransaction(t, f.db, f.link, "TXN-0000000000000003", models.StatusSuccess)

	_, err := f.svc.Generate(context.Background(), f.user.ID+1, txn.ID)
	assert.True(t, utils.HasCode(err, http.StatusNotFound))

	_, err = f.svc.Get(context.Background(), f.user.ID, txn.ID)
	assert.True(t, utils.HasCode(err, http.StatusNotFound))

	receipt, err := f.svc.Generate(context.Background(), f.user.ID, txn.ID)
	require.NoError(t, err)

	got, err := f.svc.Get(context.Background(), f.user.ID, txn.ID)
	require.NoError(t, err)
	assert.Equal(t, receipt.ReceiptNumber, got.ReceiptNumber)
}

func TestDownloadPublicIssuesLazily(t *testing.T) {
	f := newReceiptFixture(t)
	txn := seedTransaction(t, f.db, f.link, "TXN-0000000000000004", models.StatusSuccess)

	file, err := f.svc.DownloadPublic(context.Background(), txn.ExternalReference)
	require.NoError(t, err)
	assert.Regexp(t, `^RCP-\d{8}-[A-Z2-9]{8}\.pdf$`, file.Filename)

	_, err = f.svc.DownloadPublic(context.Background(), "TXN-UNKNOWN")
	assert.True(t, utils.HasCode(err, http.StatusNotFound))
}

func TestDownloadRendersMissingObjectAgain(t *testing.T) {
	f := newReceiptFixture(t)
	txn := seedTransaction(t, f.db, f.link, "TXN-0000000000000005", models.StatusSuccess)

	receipt, err := f.svc.Generate(context.Background(), f.user.ID, txn.ID)
	require.NoError(t, err)
	require.NoError(t, os.Remove(filepath.Join(f.root, receipt.PDFKey)))

	file, err := f.svc.Download(context.Background(), f.user.ID, txn.ID)
	require.NoError(t, err)
	assert.Equal(t, []byte("%PDF-"+receipt.ReceiptNumber), file.Content)
	assert.FileExists(t, filepath.Join(f.root, receipt.PDFKey))
}
