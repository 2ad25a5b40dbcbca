package normalize

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/qaydhq/qayd/internal/ocr"
)

func fixedNormalizer() *Normalizer {
	return &Normalizer{
		NewID:    func() string { return "rec-1" },
		Now:      func() time.Time { return time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC) },
		Currency: "SAR",
	}
}

func strField(s string) ocr.Field {
	return ocr.Field{Type: "string", Content: s}
}

func fullResult() *ocr.AnalyzeResult {
	return &ocr.AnalyzeResult{
		Documents: []ocr.Document{{
			DocType: "receipt",
			Fields: map[string]ocr.Field{
				"MerchantName":        strField("Al Baik"),
				"MerchantAddress":     strField("King Fahd Rd, Riyadh"),
				"MerchantPhoneNumber": strField("+966500000000"),
				"TransactionDate":     strField("2025-05-30"),
				"TransactionTime":     strField("19:42"),
				"Total":               strField("57.50"),
				"Subtotal":            strField("50.00"),
				"TotalTax":            strField("7.50"),
				"TransactionId":       strField("INV-1001"),
				"CountryRegion":       strField("SAU"),
				"ReceiptType":         {Type: "string", ValueString: "Meal"},
				"Items": {ValueArray: []ocr.Field{
					{ValueObject: map[string]ocr.Field{
						"Description": strField("Chicken meal"),
						"Quantity":    strField("2"),
						"TotalPrice":  strField("40.00"),
					}},
					{ValueObject: map[string]ocr.Field{
						"Description": strField("Fries"),
					}},
				}},
				"TaxDetails": {ValueArray: []ocr.Field{
					{ValueObject: map[string]ocr.Field{
						"Rate":      strField("15%"),
						"NetAmount": strField("7.50"),
					}},
					{ValueObject: map[string]ocr.Field{}},
				}},
				"Payments": {ValueArray: []ocr.Field{
					{ValueObject: map[string]ocr.Field{
						"Method": strField("Mada"),
					}},
				}},
			},
		}},
	}
}

func TestNormalizeFullReceipt(t *testing.T) {
	rec, err := fixedNormalizer().Normalize(fullResult())
	require.NoError(t, err)

	assert.Equal(t, "rec-1", rec.ReceiptID)
	assert.Equal(t, "Al Baik", rec.Vendor.Name)
	assert.Equal(t, "King Fahd Rd, Riyadh", rec.Vendor.Address)
	assert.Equal(t, "+966500000000", rec.Vendor.Phone)
	assert.Equal(t, "2025-05-30", rec.Date)
	assert.Equal(t, "19:42", rec.Time)
	assert.Equal(t, "INV-1001", rec.InvoiceNumber)
	assert.Equal(t, "SAU", rec.CountryRegion)
	assert.Equal(t, "57.50", rec.Financials.Total)
	assert.Equal(t, "50.00", rec.Financials.Subtotal)
	assert.Equal(t, "7.50", rec.Financials.Tax)
	assert.Equal(t, "Meal", rec.Category)
	assert.Equal(t, "Mada", rec.Payment.DisplayName)
	assert.Equal(t, "mada", rec.Payment.Type)
}

func TestNormalizeNoDocuments(t *testing.T) {
	n := fixedNormalizer()

	_, err := n.Normalize(nil)
	assert.ErrorIs(t, err, ErrNoDocuments)

	_, err = n.Normalize(&ocr.AnalyzeResult{})
	assert.ErrorIs(t, err, ErrNoDocuments)
}

func TestNormalizeDefaults(t *testing.T) {
	res := &ocr.AnalyzeResult{
		Documents: []ocr.Document{{Fields: map[string]ocr.Field{}}},
	}
	rec, err := fixedNormalizer().Normalize(res)
	require.NoError(t, err)

	assert.Equal(t, "", rec.Vendor.Name)
	assert.Equal(t, "", rec.Vendor.Address)
	assert.Equal(t, "", rec.Vendor.Phone)
	assert.Equal(t, "SAR", rec.Financials.Currency)
	assert.Equal(t, "Other", rec.Category)
	assert.NotNil(t, rec.LineItems)
	assert.Empty(t, rec.LineItems)
	assert.Nil(t, rec.TaxDetails)
}

func TestNormalizeLineItemDefaults(t *testing.T) {
	rec, err := fixedNormalizer().Normalize(fullResult())
	require.NoError(t, err)
	require.Len(t, rec.LineItems, 2)

	first := rec.LineItems[0]
	assert.Equal(t, 1, first.ID)
	assert.Equal(t, "Chicken meal", first.Description)
	assert.Equal(t, "2", first.Quantity)
	assert.Equal(t, "40.00", first.TotalPrice)

	second := rec.LineItems[1]
	assert.Equal(t, 2, second.ID)
	assert.Equal(t, "Fries", second.Description)
	assert.Equal(t, "1", second.Quantity)
	assert.Equal(t, "0", second.TotalPrice)
}

func TestNormalizeKeepsEmptyTaxEntries(t *testing.T) {
	rec, err := fixedNormalizer().Normalize(fullResult())
	require.NoError(t, err)
	require.Len(t, rec.TaxDetails, 2)

	assert.Equal(t, "15%", rec.TaxDetails[0].Rate)
	assert.Equal(t, "7.50", rec.TaxDetails[0].NetAmount)
	assert.Equal(t, "", rec.TaxDetails[1].Rate)
}

func TestNormalizePaymentFlatString(t *testing.T) {
	res := fullResult()
	res.Documents[0].Fields["Payments"] = ocr.Field{Content: "Cash"}

	rec, err := fixedNormalizer().Normalize(res)
	require.NoError(t, err)
	assert.Equal(t, "Cash", rec.Payment.DisplayName)
	assert.Equal(t, "cash", rec.Payment.Type)
}

func TestNormalizeCurrencyKeptWhenPresent(t *testing.T) {
	res := fullResult()
	res.Documents[0].Fields["currencyCode"] = strField("USD")

	rec, err := fixedNormalizer().Normalize(res)
	require.NoError(t, err)
	assert.Equal(t, "USD", rec.Financials.Currency)
}

func TestNormalizeDeterministic(t *testing.T) {
	n := fixedNormalizer()
	a, err := n.Normalize(fullResult())
	require.NoError(t, err)
	b, err := n.Normalize(fullResult())
	require.NoError(t, err)
	assert.Equal(t, a, b)
}

func TestNormalizedRecordPassesSchema(t *testing.T) {
	rec, err := fixedNormalizer().Normalize(fullResult())
	require.NoError(t, err)

	raw, err := json.Marshal(rec)
	require.NoError(t, err)
	assert.NoError(t, ValidateAgainstSchema(BuildRecordSchema(), raw))
}

func TestSchemaRejectsMissingVendor(t *testing.T) {
	doc := map[string]any{
		"receipt_id": "rec-1",
		"financials": map[string]any{"currency": "SAR"},
		"line_items": []any{},
		"created_at": "2025-06-01T12:00:00Z",
	}
	raw, err := json.Marshal(doc)
	require.NoError(t, err)
	assert.Error(t, ValidateAgainstSchema(BuildRecordSchema(), raw))
}
