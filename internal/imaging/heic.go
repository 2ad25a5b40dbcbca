package imaging

import (
	"bytes"
	"fmt"
	"image/jpeg"
	"strings"

	"github.com/gen2brain/heic"
)

// heicBrands are the ftyp box brands that mark HEIC/HEIF containers.
var heicBrands = map[string]struct{}{
	"heic": {}, "heix": {}, "heif": {}, "hevc": {},
	"heim": {}, "heis": {}, "mif1": {}, "msf1": {},
}

// IsHEIC reports whether the bytes are a HEIC/HEIF container, checking the
// ftyp brand at offset 4. MIME type alone is not trusted: browsers often
// upload HEIC as application/octet-stream.
func IsHEIC(data []byte, contentType string) bool {
	ct := strings.ToLower(strings.TrimSpace(contentType))
	if strings.Contains(ct, "heic") || strings.Contains(ct, "heif") {
		return true
	}
	if len(data) < 12 || string(data[4:8]) != "ftyp" {
		return false
	}
	_, ok := heicBrands[string(data[8:12])]
	return ok
}

// ToJPEG decodes a HEIC image and re-encodes it as JPEG, stepping the
// quality down until the output fits maxBytes. The OCR service does not
// accept HEIC, so iPhone uploads must pass through here first.
func ToJPEG(data []byte, maxBytes int) ([]byte, error) {
	img, err := heic.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("decoding HEIC image: %w", err)
	}

	for quality := 90; quality >= 30; quality -= 10 {
		var buf bytes.Buffer
		if err := jpeg.Encode(&buf, img, &jpeg.Options{Quality: quality}); err != nil {
			return nil, fmt.Errorf("encoding JPEG: %w", err)
		}
		if maxBytes <= 0 || buf.Len() <= maxBytes {
			return buf.Bytes(), nil
		}
	}
	return nil, fmt.Errorf("converted JPEG exceeds %d bytes at minimum quality", maxBytes)
}
