package vision

import (
	"encoding/base64"

	"github.com/Bruhadev45/Cardsnap-AI/internal/domain"
)

// NormaliseMIME maps an image MIME type to one the hosted vision APIs accept.
// They accept only jpeg, png, gif and webp; anything else is sent as jpeg.
func NormaliseMIME(mimeType string) string {
	switch mimeType {
	case "image/png", "image/gif", "image/webp":
		return mimeType
	default:
		return "image/jpeg"
	}
}

// Base64 encodes the image payload.
func Base64(img domain.Image) string {
	return base64.StdEncoding.EncodeToString(img.Data)
}

// DataURL renders img as a data: URL.
func DataURL(img domain.Image) string {
	return "data:" + NormaliseMIME(img.MimeType) + ";base64," + Base64(img)
}

// Images returns front followed by back when present.
func Images(front domain.Image, back *domain.Image) []domain.Image {
	if back == nil {
		return []domain.Image{front}
	}
	return []domain.Image{front, *back}
}
