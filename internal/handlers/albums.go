package handlers

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"moonlit/gallery/internal/models"
	"moonlit/gallery/internal/service"
)

const (
	defaultPageSize = 50
	maxPageSize     = 200
)

type createAlbumRequest struct {
	Title       string `json:"title"`
	Description string `json:"description"`
}

type albumResponse struct {
	ID             string    `json:"id"`
	PhotographerID string    `json:"photographer_id"`
	Title          string    `json:"title"`
	Description    string    `json:"description"`
	CreatedAt      time.Time `json:"created_at"`
}

func newAlbumResponse(album models.Album) albumResponse {
	return albumResponse{
		ID:             album.ID,
		PhotographerID: album.PhotographerID,
		Title:          album.Title,
		Description:    album.Description,
		CreatedAt:      album.CreatedAt,
	}
}

type photoResponse struct {
	ID           string    `json:"id"`
	AlbumID      string    `json:"album_id"`
	Filename     string    `json:"filename"`
	ObjectURL    string    `json:"object_url"`
	OriginalName string    `json:"original_name,omitempty"`
	ContentType  string    `json:"content_type"`
	SizeBytes    int64     `json:"size_bytes"`
	UploadedAt   time.Time `json:"uploaded_at"`
}

func newPhotoResponse(photo models.Photo) photoResponse {
	return photoResponse{
		ID:           photo.ID,
		AlbumID:      photo.AlbumID,
		Filename:     photo.Filename,
		ObjectURL:    photo.ObjectURL,
		OriginalName: photo.OriginalName,
		ContentType:  photo.ContentType,
		SizeBytes:    photo.SizeBytes,
		UploadedAt:   photo.UploadedAt,
	}
}

func (h HandlerSet) CreateAlbum(c *gin.Context) {
	principal, ok := h.principal(c)
	if !ok {
		return
	}

	var req createAlbumRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "invalid json body")
		return
	}

	album, err := h.albums.Create(c.Request.Context(), principal, service.CreateAlbumInput{
		Title:       req.Title,
		Description: req.Description,
	})
	if err != nil {
		respondError(c, h.log, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message": "Album created successfully",
		"album":   newAlbumResponse(album),
	})
}

func (h HandlerSet) ListAlbums(c *gin.Context) {
	principal, ok := h.principal(c)
	if !ok {
		return
	}
	limit, offset, ok := pagination(c)
	if !ok {
		return
	}

	albums, err := h.albums.List(c.Request.Context(), principal, limit, offset)
	if err != nil {
		respondError(c, h.log, err)
		return
	}

	resp := make([]albumResponse, 0, len(albums))
	for _, album := range albums {
		resp = append(resp, newAlbumResponse(album))
	}
	c.JSON(http.StatusOK, gin.H{"albums": resp})
}

func (h HandlerSet) ListPhotos(c *gin.Context) {
	principal, ok := h.principal(c)
	if !ok {
		return
	}
	limit, offset, ok := pagination(c)
	if !ok {
		return
	}

	photos, err := h.albums.Photos(c.Request.Context(), principal, c.Param("id"), limit, offset)
	if err != nil {
		respondError(c, h.log, err)
		return
	}

	resp := make([]photoResponse, 0, len(photos))
	for _, photo := range photos {
		resp = append(resp, newPhotoResponse(photo))
	}
	c.JSON(http.StatusOK, gin.H{"photos": resp})
}

func pagination(c *gin.Context) (limit, offset int, ok bool) {
	limit, offset = defaultPageSize, 0
	if raw := c.Query("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 {
			badRequest(c, "limit must be a positive integer")
			return 0, 0, false
		}
		limit = min(n, maxPageSize)
	}
	if raw := c.Query("offset"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 0 {
			badRequest(c, "offset must be a non-negative integer")
			return 0, 0, false
		}
		offset = n
	}
	return limit, offset, true
}
