package web

import (
	"io"
	"net/http"

	"github.com/Bruhadev45/Cardsnap-AI/internal/domain"
)

const maxPhotoSize = 50 * 1024 * 1024 // 50 MB

// allowedImageTypes is the set of MIME types accepted for uploaded photos.
// http.DetectContentType recognises JPEG, PNG and GIF. WebP has no signature
// in its sniffing table and is checked by isWebP.
var allowedImageTypes = map[string]bool{
	"image/jpeg": true,
	"image/png":  true,
	"image/gif":  true,
}

// isWebP reports whether data is a WebP image (RIFF container with "WEBP" at
// offset 8).
func isWebP(data []byte) bool {
	return len(data) >= 12 &&
		string(data[0:4]) == "RIFF" &&
		string(data[8:12]) == "WEBP"
}

// allowedImageMIME returns the detected MIME type and true if the data is an
// accepted image format, or ("", false) otherwise.
func allowedImageMIME(data []byte) (string, bool) {
	if isWebP(data) {
		return "image/webp", true
	}
	mime := http.DetectContentType(data)
	if allowedImageTypes[mime] {
		return mime, true
	}
	return "", false
}

// readUploadedImage pulls the multipart "image" field and sniffs its type. On
// failure it writes the response and returns false.
func (s *Server) readUploadedImage(w http.ResponseWriter, r *http.Request) (domain.Image, bool) {
	r.Body = http.MaxBytesReader(w, r.Body, maxPhotoSize)
	if err := r.ParseMultipartForm(maxPhotoSize); err != nil {
		writeError(w, http.StatusBadRequest, "failed to parse form")
		return domain.Image{}, false
	}

	file, _, err := r.FormFile("image")
	if err != nil {
		writeError(w, http.StatusBadRequest, "image file required")
		return domain.Image{}, false
	}
	defer closeWithLog(file, "upload file", s.logger)

	data, err := io.ReadAll(file)
	if err != nil {
		s.logger.Error("read upload failed", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to read file")
		return domain.Image{}, false
	}

	mimeType, ok := allowedImageMIME(data)
	if !ok {
		writeError(w, http.StatusBadRequest, "unsupported image format")
		return domain.Image{}, false
	}
	return domain.Image{Data: data, MimeType: mimeType}, true
}
