package ocr

// Wire types for the Document Intelligence operation endpoint. The payload
// is decoded once here at the boundary; downstream code works with typed
// fields instead of probing untyped maps.

// OperationResult is the body returned by polling the Operation-Location URL.
type OperationResult struct {
	Status        string           `json:"status"`
	Errors        []OperationError `json:"errors,omitempty"`
	AnalyzeResult *AnalyzeResult   `json:"analyzeResult,omitempty"`
}

type OperationError struct {
	Code    string `json:"code,omitempty"`
	Message string `json:"message,omitempty"`
}

// AnalyzeResult is the vendor's structured output for one scanned receipt.
type AnalyzeResult struct {
	ModelID   string     `json:"modelId,omitempty"`
	Content   string     `json:"content,omitempty"`
	Documents []Document `json:"documents"`
}

// Document is one recognized receipt with its extracted fields.
type Document struct {
	DocType    string           `json:"docType,omitempty"`
	Confidence float64          `json:"confidence,omitempty"`
	Fields     map[string]Field `json:"fields"`
}

// Field is the recursive value shape: scalar fields carry Content (and
// usually a typed value), arrays carry ValueArray, objects ValueObject.
// Every extracted field also carries a confidence score.
type Field struct {
	Type          string           `json:"type,omitempty"`
	Content       string           `json:"content,omitempty"`
	Confidence    float64          `json:"confidence,omitempty"`
	ValueString   string           `json:"valueString,omitempty"`
	ValueNumber   float64          `json:"valueNumber,omitempty"`
	ValueArray    []Field          `json:"valueArray,omitempty"`
	ValueObject   map[string]Field `json:"valueObject,omitempty"`
	ValueCurrency *CurrencyValue   `json:"valueCurrency,omitempty"`
}

type CurrencyValue struct {
	Amount       float64 `json:"amount,omitempty"`
	CurrencyCode string  `json:"currencyCode,omitempty"`
}

// Text returns the field's display value: Content when present, otherwise
// the typed string value (ReceiptType, for one, only sets valueString).
func (f Field) Text() string {
	if f.Content != "" {
		return f.Content
	}
	return f.ValueString
}
