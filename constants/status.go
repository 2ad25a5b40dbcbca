package constants

// AnalysisStatus is the status field reported by the OCR operation endpoint.
type AnalysisStatus string

// Stable vendor values (compare against these exact strings).
const (
	AnalysisNotStarted AnalysisStatus = "notStarted"
	AnalysisRunning    AnalysisStatus = "running"
	AnalysisSucceeded  AnalysisStatus = "succeeded"
	AnalysisFailed     AnalysisStatus = "failed"
)

// DefaultCurrency is applied when the OCR payload carries no currency code.
const DefaultCurrency = "SAR"

// DefaultImageURL is stored when the blob upload fails; the record is still
// persisted with a placeholder so the receipt itself is not lost.
const DefaultImageURL = "/assets/receipt-placeholder.png"
