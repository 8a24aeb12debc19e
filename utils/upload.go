package utils

import (
	"errors"
	"mime/multipart"
	"path/filepath"
	"strings"
)

// AllowedImageTypes defines the allowed image file extensions and their content types
var AllowedImageTypes = map[string]string{
	".jpg":  "image/jpeg",
	".jpeg": "image/jpeg",
	".png":  "image/png",
	".gif":  "image/gif",
	".webp": "image/webp",
}

// ValidateImageFile checks if the uploaded file is a valid image
func ValidateImageFile(file *multipart.FileHeader) error {
	if file.Size > MaxFileSize {
		return errors.New(ErrFileTooLarge)
	}

	ext := strings.ToLower(filepath.Ext(file.Filename))
	if _, ok := AllowedImageTypes[ext]; !ok {
		return errors.New(ErrInvalidFileType)
	}

	return nil
}

// ImageContentType returns the content type for an allowed image extension
func ImageContentType(filename string) string {
	if ct, ok := AllowedImageTypes[strings.ToLower(filepath.Ext(filename))]; ok {
		return ct
	}
	return "application/octet-stream"
}

// CleanObjectKey rejects keys that try to escape the storage root
func CleanObjectKey(key string) (string, bool) {
	key = strings.TrimPrefix(key, "/")
	if key == "" || strings.Contains(key, "..") || strings.Contains(key, "\\") {
		return "", false
	}
	return key, true
}
