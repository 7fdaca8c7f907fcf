package domain

import "fmt"

var allowedImageTypes = map[string]string{
	"image/png":  ".png",
	"image/jpeg": ".jpg",
	"image/gif":  ".gif",
	"image/webp": ".webp",
}

// ImageUpload is an image received from a client, before it is handed to file
// storage. ContentType is the sniffed type, not the client-declared one.
type ImageUpload struct {
	Filename    string
	ContentType string
	Data        []byte
}

func (u *ImageUpload) Size() int64 {
	return int64(len(u.Data))
}

// Extension returns the canonical file extension for the upload's type.
func (u *ImageUpload) Extension() string {
	return allowedImageTypes[u.ContentType]
}

// ValidateImage records a field error when the upload is not an accepted
// image or is larger than maxBytes. A nil upload is valid.
func ValidateImage(v *ValidationError, field string, u *ImageUpload, maxBytes int64) {
	if u == nil {
		return
	}
	if len(u.Data) == 0 {
		v.Add(field, "the submitted file is empty")
		return
	}
	if _, ok := allowedImageTypes[u.ContentType]; !ok {
		v.Add(field, "upload a valid image (png, jpeg, gif or webp)")
		return
	}
	if maxBytes > 0 && u.Size() > maxBytes {
		v.Add(field, fmt.Sprintf("image must be at most %d bytes", maxBytes))
	}
}
