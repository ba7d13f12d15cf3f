package books

import (
	"fmt"
	"mime"
	"path"
	"strings"

	"github.com/google/uuid"

	pkgerrors "github.com/librisvault/librisvault-backend/pkg/errors"
)

var coverContentTypes = map[string]string{
	"image/jpeg": ".jpg",
	"image/png":  ".png",
	"image/webp": ".webp",
}

// coverObjectName validates the upload and returns the bucket object it is stored under.
func coverObjectName(storeID uuid.UUID, upload *CoverUpload) (string, error) {
	if upload == nil || upload.Body == nil {
		return "", pkgerrors.New(pkgerrors.CodeValidation, "cover body is required")
	}
	contentType, ext, err := ImageType(upload.ContentType, upload.Filename)
	if err != nil {
		return "", err
	}
	upload.ContentType = contentType
	return fmt.Sprintf("covers/%s/%s%s", storeID, uuid.NewString(), ext), nil
}

// ImageType resolves the media type of an uploaded image, falling back to the
// filename extension, and returns the extension objects are stored with.
func ImageType(contentType, filename string) (string, string, error) {
	mediaType := normalizeContentType(contentType)
	if mediaType == "" {
		mediaType = normalizeContentType(mime.TypeByExtension(strings.ToLower(path.Ext(filename))))
	}
	ext, ok := coverContentTypes[mediaType]
	if !ok {
		return "", "", pkgerrors.New(pkgerrors.CodeValidation, "image must be a jpeg, png or webp file")
	}
	return mediaType, ext, nil
}

func normalizeContentType(value string) string {
	mediaType, _, err := mime.ParseMediaType(strings.TrimSpace(value))
	if err != nil {
		return ""
	}
	return strings.ToLower(mediaType)
}
