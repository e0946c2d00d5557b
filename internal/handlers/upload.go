package handlers

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"

	"moonlit/gallery/internal/middleware"
	"moonlit/gallery/internal/service"
)

// formOverhead is headroom for multipart boundaries and the album_id field.
const formOverhead = 1 << 20

// UploadPhoto accepts multipart fields photo and album_id. Parts above
// upload.memorybytes spool to temporary files, which are removed once the
// request is done.
func (h HandlerSet) UploadPhoto(c *gin.Context) {
	maxBytes := h.uploads.MaxBytes()
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, maxBytes+formOverhead)

	if err := c.Request.ParseMultipartForm(h.cfg.Upload.MemoryBytes); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			respondError(c, h.log, fmt.Errorf("%w: limit is %d bytes", service.ErrFileTooLarge, maxBytes))
			return
		}
		badRequest(c, "invalid multipart form")
		return
	}
	defer func() {
		_ = c.Request.MultipartForm.RemoveAll()
	}()

	input := service.UploadInput{
		Token:   middleware.AccessToken(c),
		AlbumID: c.Request.FormValue("album_id"),
		Size:    -1,
	}

	file, header, err := c.Request.FormFile("photo")
	switch {
	case err == nil:
		defer file.Close()
		input.File = file
		input.Filename = header.Filename
		input.MimeType = header.Header.Get("Content-Type")
		input.Size = header.Size
	case errors.Is(err, http.ErrMissingFile):
		// the pipeline reports it after the gate has run
	default:
		badRequest(c, "unreadable photo part")
		return
	}

	result, err := h.uploads.Upload(c.Request.Context(), input)
	if err != nil {
		if errors.Is(err, service.ErrMetadataWriteFailed) {
			respondError(c, h.log, err, gin.H{"url": result.URL})
			return
		}
		respondError(c, h.log, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message":  "Photo uploaded successfully",
		"url":      result.URL,
		"metadata": newPhotoResponse(result.Photo),
	})
}
