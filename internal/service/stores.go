package service

import (
	"context"
	"io"

	"moonlit/gallery/internal/models"
	"moonlit/gallery/internal/storage"
)

// UserStore is the credential store.
type UserStore interface {
	Create(ctx context.Context, user models.User) (models.User, error)
	FindByEmail(ctx context.Context, email string) (models.User, error)
	GetByID(ctx context.Context, id string) (models.User, error)
}

type SessionStore interface {
	Save(ctx context.Context, session models.Session) error
	GetByID(ctx context.Context, id string) (models.Session, error)
	FindByRefreshHash(ctx context.Context, userID string, refreshHash []byte) (models.Session, error)
	ListByUser(ctx context.Context, userID string) ([]models.Session, error)
	CountByUser(ctx context.Context, userID string) (int, error)
	DeleteOldest(ctx context.Context, userID string, keepLatest int) error
	DeleteByID(ctx context.Context, id string) error
	DeleteByDevice(ctx context.Context, userID string, deviceID string) error
	DeleteExpired(ctx context.Context) (int64, error)
	Touch(ctx context.Context, sessionID string, ip string, userAgent string) error
}

type AlbumStore interface {
	Create(ctx context.Context, album models.Album) (models.Album, error)
	GetByID(ctx context.Context, id string) (models.Album, error)
	ListByPhotographer(ctx context.Context, photographerID string, limit, offset int) ([]models.Album, error)
}

type PhotoStore interface {
	Create(ctx context.Context, photo models.Photo) (models.Photo, error)
	ListByAlbum(ctx context.Context, albumID string, limit, offset int) ([]models.Photo, error)
}

// BlobStore is the object store as the upload pipeline sees it.
type BlobStore interface {
	Put(ctx context.Context, key string, r io.Reader, size int64, opts storage.PutOptions) (storage.ObjectInfo, error)
	PublicURL(key string) string
}
