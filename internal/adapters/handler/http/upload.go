package http

import (
	"errors"
	"fmt"
	"io"
	"mime"
	"net/http"

	"github.com/vncsmyrnk/polls/internal/core/domain"
)

// multipartOverhead is the room left for form fields next to the file itself.
const multipartOverhead = 1 << 20

func isMultipart(r *http.Request) bool {
	return hasMediaType(r, "multipart/form-data")
}

func isForm(r *http.Request) bool {
	return hasMediaType(r, "application/x-www-form-urlencoded") || isMultipart(r)
}

// hasMediaType compares the request's media type, ignoring parameters such as charset.
func hasMediaType(r *http.Request, want string) bool {
	mediaType, _, err := mime.ParseMediaType(r.Header.Get("Content-Type"))
	return err == nil && mediaType == want
}

// parseMultipart caps the body at maxFileBytes plus form overhead before parsing.
// An oversized body is reported as a field error on fileField.
func parseMultipart(w http.ResponseWriter, r *http.Request, fileField string, maxFileBytes int64) error {
	r.Body = http.MaxBytesReader(w, r.Body, maxFileBytes+multipartOverhead)
	if err := r.ParseMultipartForm(maxFileBytes + multipartOverhead); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			v := &domain.ValidationError{}
			v.Add(fileField, fmt.Sprintf("image must be at most %d bytes", maxFileBytes))
			return v
		}
		return fmt.Errorf("invalid multipart form: %w", err)
	}
	return nil
}

// readUpload returns the named file of a parsed multipart form, or nil when the
// field is absent. The content type is sniffed from the data and at most
// maxBytes+1 bytes are read, which is enough for size validation to fail.
func readUpload(r *http.Request, field string, maxBytes int64) (*domain.ImageUpload, error) {
	file, header, err := r.FormFile(field)
	if errors.Is(err, http.ErrMissingFile) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", field, err)
	}
	defer file.Close()

	data, err := io.ReadAll(io.LimitReader(file, maxBytes+1))
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", field, err)
	}

	return &domain.ImageUpload{
		Filename:    header.Filename,
		ContentType: http.DetectContentType(data),
		Data:        data,
	}, nil
}
