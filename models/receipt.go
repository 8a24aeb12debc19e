package models

import "gorm.io/gorm"

// Receipt is the PDF proof issued once a transaction succeeds
type Receipt struct {
	gorm.Model
	TransactionID uint   `gorm:"uniqueIndex;not null" json:"transaction_id"`
	ReceiptNumber string `gorm:"uniqueIndex;not null" json:"receipt_number"`
	PDFURL        string `json:"pdf_url"`
	PDFKey        string `json:"-"`
}
