package services

import (
	"bytes"
	"fmt"
	"time"

	"github.com/jung-kurt/gofpdf"
	"github.com/shopspring/decimal"
)

// ReceiptData is everything printed on a payment receipt
type ReceiptData struct {
	ReceiptNumber         string
	MerchantName          string
	MerchantEmail         string
	CustomerName          string
	CustomerPhone         string
	CustomerEmail         string
	Description           string
	Amount                decimal.Decimal
	Currency              string
	Provider              string
	ExternalReference     string
	ProviderTransactionID string
	PaidAt                time.Time
	IssuedAt              time.Time
}

// ReceiptRenderer turns receipt data into a document
type ReceiptRenderer interface {
	Render(data ReceiptData) ([]byte, error)
}

// PDFReceiptRenderer draws A4 receipts with gofpdf
type PDFReceiptRenderer struct{}

func (PDFReceiptRenderer) Render(data ReceiptData) ([]byte, error) {
	pdf := gofpdf.New("P", "mm", "A4", "")
	tr := pdf.UnicodeTranslatorFromDescriptor("")
	pdf.AddPage()

	pdf.SetFont("Arial", "B", 18)
	pdf.Cell(100, 10, tr(data.MerchantName))
	pdf.Ln(8)
	if data.MerchantEmail != "" {
		pdf.SetFont("Arial", "", 11)
		pdf.Cell(100, 8, data.MerchantEmail)
		pdf.Ln(8)
	}
	pdf.Ln(6)

	pdf.SetFont("Arial", "B", 16)
	pdf.Cell(100, 10, "PAYMENT RECEIPT")
	pdf.Ln(12)

	pdf.SetFont("Arial", "", 12)
	pdf.Cell(95, 8, "Receipt No: "+data.ReceiptNumber)
	pdf.Cell(95, 8, "Issued: "+data.IssuedAt.Format("2006-01-02 15:04 MST"))
	pdf.Ln(8)
	pdf.Cell(95, 8, "Reference: "+data.ExternalReference)
	pdf.Cell(95, 8, "Paid: "+data.PaidAt.Format("2006-01-02 15:04 MST"))
	pdf.Ln(12)

	pdf.SetFont("Arial", "B", 13)
	pdf.Cell(100, 8, "Paid By:")
	pdf.Ln(7)
	pdf.SetFont("Arial", "", 12)
	pdf.Cell(100, 8, tr(data.CustomerName))
	pdf.Ln(6)
	pdf.Cell(100, 8, "Phone: "+data.CustomerPhone)
	pdf.Ln(6)
	if data.CustomerEmail != "" {
		pdf.Cell(100, 8, data.CustomerEmail)
		pdf.Ln(6)
	}
	pdf.Ln(6)

	pdf.SetFont("Arial", "B", 12)
	pdf.CellFormat(110, 8, "Description", "1", 0, "C", false, 0, "")
	pdf.CellFormat(40, 8, "Method", "1", 0, "C", false, 0, "")
	pdf.CellFormat(40, 8, "Amount", "1", 0, "C", false, 0, "")
	pdf.Ln(-1)
	pdf.SetFont("Arial", "", 12)
	pdf.CellFormat(110, 8, tr(data.Description), "1", 0, "L", false, 0, "")
	pdf.CellFormat(40, 8, data.Provider, "1", 0, "C", false, 0, "")
	pdf.CellFormat(40, 8, formatMoney(data.Amount, data.Currency), "1", 0, "R", false, 0, "")
	pdf.Ln(-1)

	pdf.Ln(4)
	pdf.SetFont("Arial", "B", 13)
	pdf.CellFormat(150, 10, "Total Paid:", "", 0, "L", false, 0, "")
	pdf.CellFormat(40, 10, formatMoney(data.Amount, data.Currency), "", 1, "R", false, 0, "")

	if data.ProviderTransactionID != "" {
		pdf.SetFont("Arial", "", 10)
		pdf.Cell(0, 8, "Provider transaction: "+data.ProviderTransactionID)
		pdf.Ln(8)
	}

	pdf.Ln(10)
	pdf.SetFont("Arial", "I", 11)
	pdf.Cell(0, 10, "Thank you for your payment.")

	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return nil, fmt.Errorf("failed to render receipt %s: %w", data.ReceiptNumber, err)
	}
	return buf.Bytes(), nil
}

func formatMoney(amount decimal.Decimal, currency string) string {
	return amount.StringFixed(2) + " " + currency
}
