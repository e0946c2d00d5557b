package repository_test

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"moonlit/gallery/internal/database"
	"moonlit/gallery/internal/ids"
	"moonlit/gallery/internal/models"
	"moonlit/gallery/internal/repository"
)

func testPool(t *testing.T) *pgxpool.Pool {
	t.Helper()
	dsn := os.Getenv("TEST_DATABASE_URL")
	if dsn == "" {
		t.Skip("TEST_DATABASE_URL not set")
	}

	ctx := context.Background()
	pool, err := pgxpool.New(ctx, dsn)
	require.NoError(t, err)
	t.Cleanup(pool.Close)

	require.NoError(t, database.Migrate(ctx, pool))
	require.NoError(t, database.Migrate(ctx, pool), "schema is idempotent")
	return pool
}

func createUser(t *testing.T, users *repository.UserRepository, role models.UserRole) models.User {
	t.Helper()
	user, err := users.Create(context.Background(), models.User{
		ID:           ids.New(),
		Email:        ids.New() + "@example.com",
		Name:         "Test",
		PasswordHash: []byte("$argon2id$test"),
		Role:         role,
	})
	require.NoError(t, err)
	return user
}

func TestUserRepository(t *testing.T) {
	pool := testPool(t)
	users := repository.NewUserRepository(pool)
	ctx := context.Background()

	user := createUser(t, users, models.UserRolePhotographer)
	assert.False(t, user.CreatedAt.IsZero())

	found, err := users.FindByEmail(ctx, user.Email)
	require.NoError(t, err)
	assert.Equal(t, user.ID, found.ID)
	assert.Equal(t, models.UserRolePhotographer, found.Role)

	_, err = users.Create(ctx, models.User{ID: ids.New(), Email: user.Email, Name: "Dup", PasswordHash: []byte("x"), Role: models.UserRoleUser})
	assert.ErrorIs(t, err, repository.ErrEmailTaken)

	_, err = users.GetByID(ctx, ids.New())
	assert.ErrorIs(t, err, repository.ErrUserNotFound)
}

func TestSessionRepository(t *testing.T) {
	pool := testPool(t)
	users := repository.NewUserRepository(pool)
	sessions := repository.NewSessionRepository(pool)
	ctx := context.Background()
	user := createUser(t, users, models.UserRoleClient)

	session := models.Session{
		ID:               ids.New(),
		UserID:           user.ID,
		DeviceID:         "laptop",
		DeviceName:       "Laptop",
		RefreshTokenHash: []byte("hash-1"),
		ExpiresAt:        time.Now().Add(time.Hour),
	}
	require.NoError(t, sessions.Save(ctx, session))

	rotated := session
	rotated.ID = ids.New()
	rotated.RefreshTokenHash = []byte("hash-2")
	require.NoError(t, sessions.Save(ctx, rotated))

	count, err := sessions.CountByUser(ctx, user.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, count, "one session per device")

	got, err := sessions.FindByRefreshHash(ctx, user.ID, []byte("hash-2"))
	require.NoError(t, err)
	assert.Equal(t, rotated.ID, got.ID)

	_, err = sessions.GetByID(ctx, session.ID)
	assert.ErrorIs(t, err, repository.ErrSessionNotFound)

	listed, err := sessions.ListByUser(ctx, user.ID)
	require.NoError(t, err)
	assert.Len(t, listed, 1)

	require.NoError(t, sessions.DeleteByID(ctx, rotated.ID))
	assert.ErrorIs(t, sessions.DeleteByID(ctx, rotated.ID), repository.ErrSessionNotFound)
}

func TestAlbumAndPhotoRepositories(t *testing.T) {
	pool := testPool(t)
	users := repository.NewUserRepository(pool)
	albums := repository.NewAlbumRepository(pool)
	photos := repository.NewPhotoRepository(pool)
	ctx := context.Background()
	owner := createUser(t, users, models.UserRolePhotographer)

	album, err := albums.Create(ctx, models.Album{ID: ids.New(), PhotographerID: owner.ID, Title: "Wedding"})
	require.NoError(t, err)

	got, err := albums.GetByID(ctx, album.ID)
	require.NoError(t, err)
	assert.Equal(t, "Wedding", got.Title)

	_, err = albums.GetByID(ctx, ids.New())
	assert.ErrorIs(t, err, repository.ErrAlbumNotFound)

	listed, err := albums.ListByPhotographer(ctx, owner.ID, 10, 0)
	require.NoError(t, err)
	require.Len(t, listed, 1)

	key := album.ID + "/" + ids.New() + ".jpg"
	photo, err := photos.Create(ctx, models.Photo{
		AlbumID:     album.ID,
		Filename:    key,
		ObjectURL:   "https://storage.example.com/moonlit-photos/" + key,
		ContentType: "image/jpeg",
		SizeBytes:   42,
	})
	require.NoError(t, err)
	assert.NotEmpty(t, photo.ID)
	assert.False(t, photo.UploadedAt.IsZero())

	rows, err := photos.ListByAlbum(ctx, album.ID, 10, 0)
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, photo.ObjectURL, rows[0].ObjectURL)

	_, err = photos.Create(ctx, models.Photo{AlbumID: ids.New(), Filename: ids.New(), ObjectURL: "x"})
	assert.Error(t, err, "photo rows need an existing album")
}
