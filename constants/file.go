package constants

import "strings"

// MaxUploadBytes is the Azure prebuilt-receipt request limit (4MB).
const MaxUploadBytes = 4 << 20

// AllowedExtensions holds the accepted file extensions for receipt uploads.
// HEIC/HEIF are accepted but converted to JPEG before analysis.
var AllowedExtensions = map[string]struct{}{
	"jpg":  {},
	"jpeg": {},
	"png":  {},
	"heic": {},
	"heif": {},
}

// ContentTypeForExt returns the MIME type to send to the OCR service.
func ContentTypeForExt(ext string) string {
	switch NormalizeExt(ext) {
	case "jpg", "jpeg":
		return "image/jpeg"
	case "png":
		return "image/png"
	case "heic":
		return "image/heic"
	case "heif":
		return "image/heif"
	default:
		return "application/octet-stream"
	}
}

// NormalizeExt lowercases and trims the dot from a file extension.
func NormalizeExt(ext string) string {
	return strings.ToLower(strings.TrimPrefix(ext, "."))
}

// IsAllowedExt reports whether the extension is accepted for upload.
func IsAllowedExt(ext string) bool {
	_, ok := AllowedExtensions[NormalizeExt(ext)]
	return ok
}
