package code

import (
	"net/http"

	"github.com/lvow2022/research-assistant/pkg/ginx/errors"
)

// Common
const (
	ErrBind = iota + 100001
	ErrValidation
	ErrUnauthorized
	ErrTokenInvalid
	ErrNotFound
)

// Papers and uploads
const (
	ErrNoFile = iota + 110001
	ErrNotPDF
	ErrFileTooLarge
	ErrUploadFailed
	ErrPaperNotFound
	ErrDuplicatePaper
)

// Integrations
const (
	ErrIntegrationDisabled = iota + 120001
	ErrUpstream
	ErrSchedule
)

func init() {
	errors.Register(ErrBind, http.StatusBadRequest, "request body could not be parsed")
	errors.Register(ErrValidation, http.StatusBadRequest, "validation failed")
	errors.Register(ErrUnauthorized, http.StatusUnauthorized, "username or password is incorrect")
	errors.Register(ErrTokenInvalid, http.StatusUnauthorized, "token invalid")
	errors.Register(ErrNotFound, http.StatusNotFound, "not found")

	errors.Register(ErrNoFile, http.StatusBadRequest, "No file uploaded")
	errors.Register(ErrNotPDF, http.StatusBadRequest, "Please upload a PDF file")
	errors.Register(ErrFileTooLarge, http.StatusRequestEntityTooLarge, "File too large")
	errors.Register(ErrUploadFailed, http.StatusInternalServerError, "Processing failed")
	errors.Register(ErrPaperNotFound, http.StatusNotFound, "paper not found")
	errors.Register(ErrDuplicatePaper, http.StatusConflict, "paper already exists")

	errors.Register(ErrIntegrationDisabled, http.StatusServiceUnavailable, "integration not configured")
	errors.Register(ErrUpstream, http.StatusBadGateway, "upstream service failed")
	errors.Register(ErrSchedule, http.StatusBadRequest, "invalid schedule")
}
