package service

import "errors"

var (
	ErrUnauthorized        = errors.New("unauthorized")
	ErrForbidden           = errors.New("forbidden")
	ErrBadRequest          = errors.New("bad request")
	ErrNotFound            = errors.New("not found")
	ErrFileTooLarge        = errors.New("file too large")
	ErrUnsupportedMedia    = errors.New("unsupported media type")
	ErrStorageWriteFailed  = errors.New("storage write failed")
	ErrMetadataWriteFailed = errors.New("metadata write failed")
	ErrInternal            = errors.New("internal error")

	ErrAlreadyExists      = errors.New("user with this email already exists")
	ErrWeakPassword       = errors.New("password must be at least 8 characters long")
	ErrInvalidCredentials = errors.New("invalid credentials")
)
