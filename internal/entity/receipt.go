package entity

import "time"

// ReceiptRecord is the canonical, normalized shape of one receipt. It is the
// output of normalization and the unit of persistence; money fields are kept
// as decimal strings exactly as extracted, never re-derived.
type ReceiptRecord struct {
	ReceiptID     string      `json:"receipt_id" firestore:"receipt_id"`
	UserID        string      `json:"user_id,omitempty" firestore:"user_id,omitempty"`
	Vendor        Vendor      `json:"vendor" firestore:"vendor"`
	Date          string      `json:"date,omitempty" firestore:"date,omitempty"`
	Time          string      `json:"time,omitempty" firestore:"time,omitempty"`
	InvoiceNumber string      `json:"invoice_number,omitempty" firestore:"invoice_number,omitempty"`
	CountryRegion string      `json:"country_region,omitempty" firestore:"country_region,omitempty"`
	Financials    Financials  `json:"financials" firestore:"financials"`
	Category      string      `json:"category" firestore:"category"`
	LineItems     []LineItem  `json:"line_items" firestore:"line_items"`
	TaxDetails    []TaxDetail `json:"tax_details,omitempty" firestore:"tax_details,omitempty"`
	Payment       Payment     `json:"payment" firestore:"payment"`
	ImageURL      string      `json:"image_url,omitempty" firestore:"image_url,omitempty"`
	Note          string      `json:"note,omitempty" firestore:"note,omitempty"`
	IsDuplicate   bool        `json:"is_duplicate,omitempty" firestore:"is_duplicate,omitempty"`
	CreatedAt     time.Time   `json:"created_at" firestore:"created_at,serverTimestamp"`
}

// Vendor holds merchant identity fields; each defaults to "" when the OCR
// payload lacks it.
type Vendor struct {
	Name    string `json:"name" firestore:"name"`
	Address string `json:"address" firestore:"address"`
	Phone   string `json:"phone" firestore:"phone"`
}

// Financials groups the money fields. Values are decimal strings taken
// verbatim from the OCR payload; absence means unknown, not zero.
type Financials struct {
	Subtotal string `json:"subtotal,omitempty" firestore:"subtotal,omitempty"`
	Tax      string `json:"tax,omitempty" firestore:"tax,omitempty"`
	Total    string `json:"total,omitempty" firestore:"total,omitempty"`
	Tip      string `json:"tip,omitempty" firestore:"tip,omitempty"`
	Currency string `json:"currency" firestore:"currency"`
}

// LineItem is one purchased product/service entry. IDs are 1-based and
// sequential within a receipt when the source carries none.
type LineItem struct {
	ID          int       `json:"id" firestore:"id"`
	Description string    `json:"description" firestore:"description"`
	Quantity    string    `json:"quantity" firestore:"quantity"`
	TotalPrice  string    `json:"total_price" firestore:"total_price"`
	Warranty    *Warranty `json:"warranty,omitempty" firestore:"warranty,omitempty"`
}

// TaxDetail is one entry of the receipt's tax breakdown. Entries with no
// populated fields are still kept to preserve source ordering.
type TaxDetail struct {
	Rate        string `json:"rate,omitempty" firestore:"rate,omitempty"`
	Description string `json:"description,omitempty" firestore:"description,omitempty"`
	NetAmount   string `json:"net_amount,omitempty" firestore:"net_amount,omitempty"`
}

// Payment describes how the receipt was paid. Type is the lowercased form
// of DisplayName.
type Payment struct {
	DisplayName string `json:"display_name" firestore:"display_name"`
	Type        string `json:"type" firestore:"type"`
}

// Warranty is per-line-item warranty tracking added by the user after
// ingestion; it never comes from OCR.
type Warranty struct {
	HasWarranty bool   `json:"has_warranty" firestore:"has_warranty"`
	PeriodDays  int    `json:"period_days" firestore:"period_days"`
	ExpiryDate  string `json:"expiry_date,omitempty" firestore:"expiry_date,omitempty"`
}
