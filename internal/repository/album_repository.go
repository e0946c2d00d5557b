package repository

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"moonlit/gallery/internal/models"
)

type AlbumRepository struct {
	pool *pgxpool.Pool
}

func NewAlbumRepository(pool *pgxpool.Pool) *AlbumRepository {
	return &AlbumRepository{pool: pool}
}

func (r *AlbumRepository) Create(ctx context.Context, album models.Album) (models.Album, error) {
	const query = `
		INSERT INTO albums (id, photographer_id, title, description, created_at)
		VALUES ($1, $2, $3, $4, NOW())
		RETURNING created_at
	`
	if err := r.pool.QueryRow(ctx, query,
		album.ID,
		album.PhotographerID,
		album.Title,
		album.Description,
	).Scan(&album.CreatedAt); err != nil {
		return models.Album{}, err
	}
	return album, nil
}

func (r *AlbumRepository) GetByID(ctx context.Context, id string) (models.Album, error) {
	const query = `
		SELECT id, photographer_id, title, description, created_at
		FROM albums WHERE id = $1
	`
	var album models.Album
	if err := r.pool.QueryRow(ctx, query, id).Scan(
		&album.ID,
		&album.PhotographerID,
		&album.Title,
		&album.Description,
		&album.CreatedAt,
	); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return models.Album{}, ErrAlbumNotFound
		}
		return models.Album{}, err
	}
	return album, nil
}

func (r *AlbumRepository) ListByPhotographer(ctx context.Context, photographerID string, limit, offset int) ([]models.Album, error) {
	const query = `
		SELECT id, photographer_id, title, description, created_at
		FROM albums
		WHERE photographer_id = $1
		ORDER BY created_at DESC
		LIMIT $2 OFFSET $3
	`
	rows, err := r.pool.Query(ctx, query, photographerID, limit, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var albums []models.Album
	for rows.Next() {
		var album models.Album
		if err := rows.Scan(
			&album.ID,
			&album.PhotographerID,
			&album.Title,
			&album.Description,
			&album.CreatedAt,
		); err != nil {
			return nil, err
		}
		albums = append(albums, album)
	}
	return albums, rows.Err()
}
