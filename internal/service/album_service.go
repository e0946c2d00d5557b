package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"unicode/utf8"

	"moonlit/gallery/internal/ids"
	"moonlit/gallery/internal/models"
	"moonlit/gallery/internal/repository"
)

const maxTitleLength = 200

type AlbumService struct {
	albums AlbumStore
	photos PhotoStore
}

func NewAlbumService(albums AlbumStore, photos PhotoStore) *AlbumService {
	return &AlbumService{albums: albums, photos: photos}
}

type CreateAlbumInput struct {
	Title       string
	Description string
}

func (s *AlbumService) Create(ctx context.Context, principal models.Principal, input CreateAlbumInput) (models.Album, error) {
	if principal.Role != models.UserRolePhotographer {
		return models.Album{}, ErrForbidden
	}

	title := strings.TrimSpace(input.Title)
	if title == "" {
		return models.Album{}, fmt.Errorf("%w: album title is required", ErrBadRequest)
	}
	if utf8.RuneCountInString(title) > maxTitleLength {
		return models.Album{}, fmt.Errorf("%w: album title is longer than %d characters", ErrBadRequest, maxTitleLength)
	}

	album, err := s.albums.Create(ctx, models.Album{
		ID:             ids.New(),
		PhotographerID: principal.UserID,
		Title:          title,
		Description:    strings.TrimSpace(input.Description),
	})
	if err != nil {
		return models.Album{}, fmt.Errorf("%w: create album: %w", ErrInternal, err)
	}
	return album, nil
}

func (s *AlbumService) List(ctx context.Context, principal models.Principal, limit, offset int) ([]models.Album, error) {
	albums, err := s.albums.ListByPhotographer(ctx, principal.UserID, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("%w: list albums: %w", ErrInternal, err)
	}
	return albums, nil
}

func (s *AlbumService) Photos(ctx context.Context, principal models.Principal, albumID string, limit, offset int) ([]models.Photo, error) {
	if _, err := ownedAlbum(ctx, s.albums, principal, albumID); err != nil {
		return nil, err
	}
	photos, err := s.photos.ListByAlbum(ctx, albumID, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("%w: list photos: %w", ErrInternal, err)
	}
	return photos, nil
}

// ownedAlbum loads albumID and checks the principal owns it.
func ownedAlbum(ctx context.Context, albums AlbumStore, principal models.Principal, albumID string) (models.Album, error) {
	albumID = strings.TrimSpace(albumID)
	if albumID == "" || !ids.Valid(albumID) {
		return models.Album{}, fmt.Errorf("%w: invalid album id", ErrBadRequest)
	}

	album, err := albums.GetByID(ctx, albumID)
	if err != nil {
		if errors.Is(err, repository.ErrAlbumNotFound) {
			return models.Album{}, fmt.Errorf("%w: album %s", ErrNotFound, albumID)
		}
		return models.Album{}, fmt.Errorf("%w: load album: %w", ErrInternal, err)
	}
	if album.PhotographerID != principal.UserID {
		return models.Album{}, ErrForbidden
	}
	return album, nil
}
