package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"moonlit/gallery/internal/service"
)

type errorMapping struct {
	err    error
	status int
	code   string
	stage  string
}

// Order matters only where one error wraps another; the first match wins.
var errorMappings = []errorMapping{
	{service.ErrUnauthorized, http.StatusUnauthorized, "unauthorized", ""},
	{service.ErrInvalidCredentials, http.StatusUnauthorized, "invalid_credentials", ""},
	{service.ErrForbidden, http.StatusForbidden, "forbidden", ""},
	{service.ErrWeakPassword, http.StatusBadRequest, "weak_password", ""},
	{service.ErrBadRequest, http.StatusBadRequest, "bad_request", ""},
	{service.ErrNotFound, http.StatusNotFound, "not_found", ""},
	{service.ErrAlreadyExists, http.StatusConflict, "already_exists", ""},
	{service.ErrFileTooLarge, http.StatusRequestEntityTooLarge, "file_too_large", ""},
	{service.ErrUnsupportedMedia, http.StatusUnsupportedMediaType, "unsupported_media_type", ""},
	{service.ErrStorageWriteFailed, http.StatusInternalServerError, "storage_write_failed", "storage"},
	{service.ErrMetadataWriteFailed, http.StatusInternalServerError, "metadata_write_failed", "metadata"},
}

// respondError writes the error body for err. Internal faults are logged
// in full and answered with a generic message.
func respondError(c *gin.Context, log zerolog.Logger, err error, extra ...gin.H) {
	for _, m := range errorMappings {
		if !errors.Is(err, m.err) {
			continue
		}
		body := gin.H{"error": m.code, "message": clientMessage(err, m)}
		if m.stage != "" {
			body["stage"] = m.stage
			log.Error().Err(err).Str("stage", m.stage).Msg("request failed")
		}
		for _, e := range extra {
			for k, v := range e {
				body[k] = v
			}
		}
		c.AbortWithStatusJSON(m.status, body)
		return
	}

	log.Error().Err(err).Str("path", c.FullPath()).Msg("internal error")
	c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{
		"error":   "internal",
		"message": "internal server error",
		"stage":   "internal",
	})
}

// clientMessage hides wrapped store errors for the 500 class.
func clientMessage(err error, m errorMapping) string {
	if m.status >= http.StatusInternalServerError {
		return m.err.Error()
	}
	return err.Error()
}

func badRequest(c *gin.Context, message string) {
	c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "bad_request", "message": message})
}
