package repository

import (
	"fmt"
	"time"

	"github.com/qaydhq/qayd/internal/entity"
)

// DecodeDocument maps a stored document onto the canonical record shape.
// The store holds several generations of documents: early ones carry flat
// merchant fields and an `items` array, some wrap nested arrays in a
// `{content: [...]}` envelope, and the oldest lack receipt_id and creation
// time entirely. Both shapes are supported indefinitely since historical
// data is never rewritten.
func DecodeDocument(docID string, data map[string]any) *entity.ReceiptRecord {
	rec := &entity.ReceiptRecord{
		ReceiptID:     str(data, "receipt_id"),
		UserID:        str(data, "user_id"),
		Date:          str(data, "date"),
		Time:          str(data, "time"),
		InvoiceNumber: str(data, "invoice_number", "transactionId"),
		CountryRegion: str(data, "country_region", "countryRegion"),
		Category:      str(data, "category"),
		ImageURL:      str(data, "image_url", "imageUrl", "receipt_image"),
		Note:          str(data, "note"),
		IsDuplicate:   boolean(data, "is_duplicate"),
		CreatedAt:     timestamp(data, "created_at", "createdTime"),
	}
	if rec.ReceiptID == "" {
		rec.ReceiptID = docID
	}
	if rec.Category == "" {
		rec.Category = "Other"
	}

	rec.Vendor = decodeVendor(data)
	rec.Financials = decodeFinancials(data)
	rec.LineItems = decodeLineItems(data)
	rec.TaxDetails = decodeTaxDetails(data)
	rec.Payment = decodePayment(data)
	return rec
}

func decodeVendor(data map[string]any) entity.Vendor {
	if v, ok := data["vendor"].(map[string]any); ok {
		return entity.Vendor{
			Name:    str(v, "name"),
			Address: str(v, "address"),
			Phone:   str(v, "phone"),
		}
	}
	// legacy flat shape
	return entity.Vendor{
		Name:    str(data, "merchantName"),
		Address: str(data, "address"),
		Phone:   str(data, "phone"),
	}
}

func decodeFinancials(data map[string]any) entity.Financials {
	src := data
	if f, ok := data["financials"].(map[string]any); ok {
		src = f
	}
	fin := entity.Financials{
		Subtotal: str(src, "subtotal"),
		Tax:      str(src, "tax", "totalTax"),
		Total:    str(src, "total"),
		Tip:      str(src, "tip"),
		Currency: str(src, "currency"),
	}
	if fin.Currency == "" {
		fin.Currency = "SAR"
	}
	return fin
}

func decodeLineItems(data map[string]any) []entity.LineItem {
	raw, ok := data["line_items"]
	if !ok {
		raw = data["items"]
	}
	entries := unwrapArray(raw)
	out := make([]entity.LineItem, 0, len(entries))
	for i, e := range entries {
		m, ok := e.(map[string]any)
		if !ok {
			continue
		}
		li := entity.LineItem{
			ID:          i + 1,
			Description: str(m, "description", "Description"),
			Quantity:    str(m, "quantity", "Quantity"),
			TotalPrice:  str(m, "total_price", "total", "amount", "Amount"),
		}
		if id, ok := asInt(m["id"]); ok && id > 0 {
			li.ID = id
		}
		if w, ok := m["warranty"].(map[string]any); ok {
			period, _ := asInt(w["period_days"])
			li.Warranty = &entity.Warranty{
				HasWarranty: boolean(w, "has_warranty"),
				PeriodDays:  period,
				ExpiryDate:  str(w, "expiry_date"),
			}
		}
		out = append(out, li)
	}
	return out
}

func decodeTaxDetails(data map[string]any) []entity.TaxDetail {
	entries := unwrapArray(data["tax_details"])
	if entries == nil {
		entries = unwrapArray(data["taxDetailsArray"])
	}
	if len(entries) == 0 {
		return nil
	}
	out := make([]entity.TaxDetail, 0, len(entries))
	for _, e := range entries {
		m, ok := e.(map[string]any)
		if !ok {
			continue
		}
		out = append(out, entity.TaxDetail{
			Rate:        str(m, "rate"),
			Description: str(m, "description"),
			NetAmount:   str(m, "net_amount", "netAmount"),
		})
	}
	return out
}

func decodePayment(data map[string]any) entity.Payment {
	if p, ok := data["payment"].(map[string]any); ok {
		return entity.Payment{
			DisplayName: str(p, "display_name"),
			Type:        str(p, "type"),
		}
	}
	return entity.Payment{}
}

// unwrapArray resolves the two historical array shapes in one step: a flat
// array, or an object wrapping the array under "content".
func unwrapArray(raw any) []any {
	switch v := raw.(type) {
	case []any:
		return v
	case map[string]any:
		if arr, ok := v["content"].([]any); ok {
			return arr
		}
	}
	return nil
}

func str(m map[string]any, keys ...string) string {
	for _, k := range keys {
		switch v := m[k].(type) {
		case string:
			if v != "" {
				return v
			}
		case float64:
			return trimFloat(v)
		case int64:
			return fmt.Sprintf("%d", v)
		}
	}
	return ""
}

func trimFloat(f float64) string {
	if f == float64(int64(f)) {
		return fmt.Sprintf("%d", int64(f))
	}
	return fmt.Sprintf("%g", f)
}

func boolean(m map[string]any, key string) bool {
	b, _ := m[key].(bool)
	return b
}

func asInt(v any) (int, bool) {
	switch n := v.(type) {
	case int:
		return n, true
	case int64:
		return int(n), true
	case float64:
		return int(n), true
	}
	return 0, false
}

// timestamp tolerates the encodings creation time shows up as: native
// time.Time from Firestore, RFC3339 strings from JSON documents, and
// absent for legacy records (zero time).
func timestamp(m map[string]any, keys ...string) time.Time {
	for _, k := range keys {
		switch v := m[k].(type) {
		case time.Time:
			return v
		case string:
			if t, err := time.Parse(time.RFC3339, v); err == nil {
				return t
			}
			if t, err := time.Parse(time.RFC3339Nano, v); err == nil {
				return t
			}
		}
	}
	return time.Time{}
}
