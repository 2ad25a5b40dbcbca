package normalize

import (
	"strings"

	"github.com/qaydhq/qayd/internal/entity"
	"github.com/qaydhq/qayd/internal/ocr"
)

// Unpackers for the three independently-optional nested structures. Each
// tolerates absent fields; entries keep their source order.

// unpackLineItems returns one LineItem per Items entry. Ids are 1-based and
// sequential; quantity defaults to "1" and total price to "0" when the
// entry lacks them. Always returns a non-nil slice.
func unpackLineItems(items ocr.Field) []entity.LineItem {
	out := make([]entity.LineItem, 0, len(items.ValueArray))
	for i, item := range items.ValueArray {
		li := entity.LineItem{
			ID:         i + 1,
			Quantity:   "1",
			TotalPrice: "0",
		}
		if obj := item.ValueObject; obj != nil {
			li.Description = obj["Description"].Text()
			if q := obj["Quantity"].Text(); q != "" {
				li.Quantity = q
			}
			if tp := obj["TotalPrice"].Text(); tp != "" {
				li.TotalPrice = tp
			}
		}
		out = append(out, li)
	}
	return out
}

// unpackTaxDetails keeps every entry, including ones with no recognized
// sub-fields, so the breakdown stays aligned with the printed receipt.
func unpackTaxDetails(details ocr.Field) []entity.TaxDetail {
	if len(details.ValueArray) == 0 {
		return nil
	}
	out := make([]entity.TaxDetail, 0, len(details.ValueArray))
	for _, d := range details.ValueArray {
		td := entity.TaxDetail{}
		if obj := d.ValueObject; obj != nil {
			td.Rate = obj["Rate"].Text()
			td.Description = obj["Description"].Text()
			td.NetAmount = obj["NetAmount"].Text()
		}
		out = append(out, td)
	}
	return out
}

// unpackPayment takes the first payment method when an array is present;
// older payloads carry only a flat string, which is treated as the display
// name. Type is always the lowercased display name.
func unpackPayment(payments ocr.Field) entity.Payment {
	display := ""
	if len(payments.ValueArray) > 0 {
		if obj := payments.ValueArray[0].ValueObject; obj != nil {
			display = obj["Method"].Text()
		}
	} else if payments.Content != "" {
		display = payments.Content
	}
	return entity.Payment{
		DisplayName: display,
		Type:        strings.ToLower(display),
	}
}
