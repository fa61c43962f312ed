package photostore

import (
	"context"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"strings"
)

var ErrNotFound = errors.New("photo not found")

// Sides of a business card.
const (
	Front = "front"
	Back  = "back"
)

type PhotoStore interface {
	Save(ctx context.Context, key string, r io.Reader) (size int64, err error)
	Get(ctx context.Context, key string) (io.ReadCloser, string, error)
	Delete(ctx context.Context, key string) error
	Size(ctx context.Context, key string) (int64, error)
}

// Key names the stored image for one side of a contact's card, e.g.
// contact_<id>_front.jpg.
func Key(contactID, side, mimeType string) string {
	return fmt.Sprintf("contact_%s_%s%s", contactID, side, MimeTypeToExt(mimeType))
}

func MimeTypeToExt(mimeType string) string {
	switch mimeType {
	case "image/png":
		return ".png"
	case "image/gif":
		return ".gif"
	case "image/webp":
		return ".webp"
	default:
		return ".jpg"
	}
}

func ExtToMimeType(key string) string {
	switch strings.ToLower(filepath.Ext(key)) {
	case ".png":
		return "image/png"
	case ".gif":
		return "image/gif"
	case ".webp":
		return "image/webp"
	default:
		return "image/jpeg"
	}
}
