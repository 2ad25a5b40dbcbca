package normalize

import (
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/qaydhq/qayd/constants"
	"github.com/qaydhq/qayd/internal/entity"
	"github.com/qaydhq/qayd/internal/ocr"
)

// ErrNoDocuments is returned when the analyze result carries no recognized
// documents. Callers must treat this as "no usable data" and never persist.
var ErrNoDocuments = errors.New("no documents found in analyze result")

// fieldNames maps canonical scalar field names to the vendor field names of
// the prebuilt-receipt model. Missing vendor fields are simply omitted.
var fieldNames = map[string]string{
	"date":           "TransactionDate",
	"time":           "TransactionTime",
	"total":          "Total",
	"subtotal":       "Subtotal",
	"tax":            "TotalTax",
	"tip":            "Tip",
	"currency":       "currencyCode",
	"invoice_number": "TransactionId",
	"country_region": "CountryRegion",
}

// Normalizer turns a raw analyze result into the canonical ReceiptRecord.
// It is a pure function of the payload: the id and timestamp generators are
// injectable so the same payload always yields the same record in tests.
// Safe for concurrent use; it holds no mutable state.
type Normalizer struct {
	NewID    func() string
	Now      func() time.Time
	Currency string
}

func New() *Normalizer {
	return &Normalizer{
		NewID:    uuid.NewString,
		Now:      func() time.Time { return time.Now().UTC() },
		Currency: constants.DefaultCurrency,
	}
}

// Normalize maps the first recognized document into a ReceiptRecord.
// Scalar fields are taken verbatim (no date parsing, no arithmetic); nested
// structures are unpacked by unpack.go. An empty result is an error, not a
// partial record.
func (n *Normalizer) Normalize(res *ocr.AnalyzeResult) (*entity.ReceiptRecord, error) {
	if res == nil || len(res.Documents) == 0 {
		return nil, fmt.Errorf("extracting fields: %w", ErrNoDocuments)
	}

	fields := res.Documents[0].Fields

	scalar := func(name string) string {
		if f, ok := fields[fieldNames[name]]; ok {
			return f.Text()
		}
		return ""
	}

	rec := &entity.ReceiptRecord{
		ReceiptID: n.NewID(),
		Vendor: entity.Vendor{
			Name:    fields["MerchantName"].Text(),
			Address: fields["MerchantAddress"].Text(),
			Phone:   fields["MerchantPhoneNumber"].Text(),
		},
		Date:          scalar("date"),
		Time:          scalar("time"),
		InvoiceNumber: scalar("invoice_number"),
		CountryRegion: scalar("country_region"),
		Financials: entity.Financials{
			Subtotal: scalar("subtotal"),
			Tax:      scalar("tax"),
			Total:    scalar("total"),
			Tip:      scalar("tip"),
			Currency: scalar("currency"),
		},
		Category:   n.category(fields),
		LineItems:  unpackLineItems(fields["Items"]),
		TaxDetails: unpackTaxDetails(fields["TaxDetails"]),
		Payment:    unpackPayment(fields["Payments"]),
		CreatedAt:  n.Now(),
	}

	if rec.Financials.Currency == "" {
		rec.Financials.Currency = n.Currency
	}
	return rec, nil
}

// category reads ReceiptType and runs it through the standardizer. The
// vendor sets valueString rather than content for this field.
func (n *Normalizer) category(fields map[string]ocr.Field) string {
	raw := ""
	if f, ok := fields["ReceiptType"]; ok {
		raw = f.Text()
	}
	return constants.Standardize(raw)
}
