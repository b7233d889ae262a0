package dto

import (
	"errors"
	"fmt"
	"mime/multipart"
	"path/filepath"
	"strings"
)

// SessionRequest opens a session against the current month sheet.
type SessionRequest struct {
	UserID string `json:"user_id"`
}

type SelectUserRequest struct {
	UserID string `json:"user_id" binding:"required"`
}

// SelectionRequest carries the user's choice among pending candidates.
type SelectionRequest struct {
	RawMatch string `json:"raw_match" binding:"required"`
}

// SubmissionForm is the multipart upload of one running-log image.
type SubmissionForm struct {
	File   *multipart.FileHeader `form:"file" binding:"required"`
	Mode   string                `form:"mode"`
	Policy string                `form:"policy"`
	Date   string                `form:"date"`
}

var allowedExtensions = map[string]string{
	".jpg":  "image/jpeg",
	".jpeg": "image/jpeg",
	".png":  "image/png",
	".pdf":  "application/pdf",
}

// Validate performs basic validation on the upload and returns its
// content type.
func (f *SubmissionForm) Validate(maxSize int64) (string, error) {
	if f.File == nil {
		return "", errors.New("file is required")
	}
	if maxSize > 0 && f.File.Size > maxSize {
		return "", errors.New("file exceeds maximum upload size")
	}
	return ContentTypeFor(f.File.Filename)
}

// ContentTypeFor returns the content type of an accepted upload name.
func ContentTypeFor(filename string) (string, error) {
	ct, ok := allowedExtensions[strings.ToLower(filepath.Ext(filename))]
	if !ok {
		return "", fmt.Errorf("%w: %q", ErrUnsupportedFile, filepath.Ext(filename))
	}
	return ct, nil
}
