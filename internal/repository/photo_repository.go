package repository

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"

	"moonlit/gallery/internal/models"
)

type PhotoRepository struct {
	pool *pgxpool.Pool
}

func NewPhotoRepository(pool *pgxpool.Pool) *PhotoRepository {
	return &PhotoRepository{pool: pool}
}

// Create inserts the row; the id and uploaded_at come from the database.
func (r *PhotoRepository) Create(ctx context.Context, photo models.Photo) (models.Photo, error) {
	const query = `
		INSERT INTO photos (album_id, filename, object_url, original_name, content_type, size_bytes, uploaded_at)
		VALUES ($1, $2, $3, $4, $5, $6, NOW())
		RETURNING id, uploaded_at
	`
	if err := r.pool.QueryRow(ctx, query,
		photo.AlbumID,
		photo.Filename,
		photo.ObjectURL,
		photo.OriginalName,
		photo.ContentType,
		photo.SizeBytes,
	).Scan(&photo.ID, &photo.UploadedAt); err != nil {
		return models.Photo{}, err
	}
	return photo, nil
}

func (r *PhotoRepository) ListByAlbum(ctx context.Context, albumID string, limit, offset int) ([]models.Photo, error) {
	const query = `
		SELECT id, album_id, filename, object_url, original_name, content_type, size_bytes, uploaded_at
		FROM photos
		WHERE album_id = $1
		ORDER BY uploaded_at DESC
		LIMIT $2 OFFSET $3
	`
	rows, err := r.pool.Query(ctx, query, albumID, limit, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var photos []models.Photo
	for rows.Next() {
		var photo models.Photo
		if err := rows.Scan(
			&photo.ID,
			&photo.AlbumID,
			&photo.Filename,
			&photo.ObjectURL,
			&photo.OriginalName,
			&photo.ContentType,
			&photo.SizeBytes,
			&photo.UploadedAt,
		); err != nil {
			return nil, err
		}
		photos = append(photos, photo)
	}
	return photos, rows.Err()
}
