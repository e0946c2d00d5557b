// Package memory holds process-local implementations of the repository
// contracts. Each store is created explicitly and owns its own state; they
// back the test suites and single-process demo runs.
package memory

import (
	"bytes"
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"moonlit/gallery/internal/models"
	"moonlit/gallery/internal/repository"
)

type Users struct {
	mu      sync.RWMutex
	byID    map[string]models.User
	byEmail map[string]string
}

func NewUsers() *Users {
	return &Users{
		byID:    make(map[string]models.User),
		byEmail: make(map[string]string),
	}
}

func (s *Users) Create(_ context.Context, user models.User) (models.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.byEmail[user.Email]; ok {
		return models.User{}, repository.ErrEmailTaken
	}
	now := time.Now().UTC()
	user.CreatedAt = now
	user.UpdatedAt = now
	s.byID[user.ID] = user
	s.byEmail[user.Email] = user.ID
	return user, nil
}

func (s *Users) FindByEmail(_ context.Context, email string) (models.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	id, ok := s.byEmail[email]
	if !ok {
		return models.User{}, repository.ErrUserNotFound
	}
	return s.byID[id], nil
}

func (s *Users) GetByID(_ context.Context, id string) (models.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	user, ok := s.byID[id]
	if !ok {
		return models.User{}, repository.ErrUserNotFound
	}
	return user, nil
}

type Sessions struct {
	mu   sync.Mutex
	rows map[string]models.Session
}

func NewSessions() *Sessions {
	return &Sessions{rows: make(map[string]models.Session)}
}

func (s *Sessions) Save(_ context.Context, session models.Session) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := time.Now().UTC()
	session.CreatedAt = now
	for id, existing := range s.rows {
		if existing.UserID == session.UserID && existing.DeviceID == session.DeviceID {
			session.CreatedAt = existing.CreatedAt
			delete(s.rows, id)
		}
	}
	session.LastSeenAt = now
	s.rows[session.ID] = session
	return nil
}

func (s *Sessions) CountByUser(_ context.Context, userID string) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	count := 0
	for _, row := range s.rows {
		if row.UserID == userID {
			count++
		}
	}
	return count, nil
}

func (s *Sessions) DeleteOldest(_ context.Context, userID string, keepLatest int) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	var owned []models.Session
	for _, row := range s.rows {
		if row.UserID == userID {
			owned = append(owned, row)
		}
	}
	sort.Slice(owned, func(i, j int) bool {
		return owned[i].LastSeenAt.After(owned[j].LastSeenAt)
	})
	for i := keepLatest; i < len(owned); i++ {
		delete(s.rows, owned[i].ID)
	}
	return nil
}

func (s *Sessions) GetByID(_ context.Context, id string) (models.Session, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	row, ok := s.rows[id]
	if !ok {
		return models.Session{}, repository.ErrSessionNotFound
	}
	return row, nil
}

func (s *Sessions) FindByRefreshHash(_ context.Context, userID string, refreshHash []byte) (models.Session, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, row := range s.rows {
		if row.UserID == userID && bytes.Equal(row.RefreshTokenHash, refreshHash) {
			return row, nil
		}
	}
	return models.Session{}, repository.ErrSessionNotFound
}

func (s *Sessions) ListByUser(_ context.Context, userID string) ([]models.Session, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var owned []models.Session
	for _, row := range s.rows {
		if row.UserID == userID {
			owned = append(owned, row)
		}
	}
	sort.Slice(owned, func(i, j int) bool {
		return owned[i].LastSeenAt.After(owned[j].LastSeenAt)
	})
	return owned, nil
}

func (s *Sessions) DeleteByID(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.rows[id]; !ok {
		return repository.ErrSessionNotFound
	}
	delete(s.rows, id)
	return nil
}

func (s *Sessions) DeleteByDevice(_ context.Context, userID string, deviceID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for id, row := range s.rows {
		if row.UserID == userID && row.DeviceID == deviceID {
			delete(s.rows, id)
		}
	}
	return nil
}

func (s *Sessions) DeleteExpired(_ context.Context) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := time.Now()
	var removed int64
	for id, row := range s.rows {
		if row.ExpiresAt.Before(now) {
			delete(s.rows, id)
			removed++
		}
	}
	return removed, nil
}

func (s *Sessions) Touch(_ context.Context, sessionID string, ip string, userAgent string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	row, ok := s.rows[sessionID]
	if !ok {
		return nil
	}
	row.LastSeenAt = time.Now().UTC()
	if ip != "" {
		row.IPAddress = ip
	}
	if userAgent != "" {
		row.UserAgent = userAgent
	}
	s.rows[sessionID] = row
	return nil
}

type Albums struct {
	mu   sync.RWMutex
	rows map[string]models.Album
}

func NewAlbums() *Albums {
	return &Albums{rows: make(map[string]models.Album)}
}

func (s *Albums) Create(_ context.Context, album models.Album) (models.Album, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	album.CreatedAt = time.Now().UTC()
	s.rows[album.ID] = album
	return album, nil
}

func (s *Albums) GetByID(_ context.Context, id string) (models.Album, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	album, ok := s.rows[id]
	if !ok {
		return models.Album{}, repository.ErrAlbumNotFound
	}
	return album, nil
}

func (s *Albums) ListByPhotographer(_ context.Context, photographerID string, limit, offset int) ([]models.Album, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var albums []models.Album
	for _, album := range s.rows {
		if album.PhotographerID == photographerID {
			albums = append(albums, album)
		}
	}
	// ids are time ordered, which breaks ties between equal timestamps
	sort.Slice(albums, func(i, j int) bool { return albums[i].ID > albums[j].ID })
	return page(albums, limit, offset), nil
}

// Photos records inserted rows. Setting Fail makes every Create return it.
type Photos struct {
	mu   sync.RWMutex
	rows []models.Photo
	Fail error
}

func NewPhotos() *Photos {
	return &Photos{}
}

func (s *Photos) Create(_ context.Context, photo models.Photo) (models.Photo, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.Fail != nil {
		return models.Photo{}, s.Fail
	}
	photo.ID = uuid.NewString()
	photo.UploadedAt = time.Now().UTC()
	s.rows = append(s.rows, photo)
	return photo, nil
}

func (s *Photos) ListByAlbum(_ context.Context, albumID string, limit, offset int) ([]models.Photo, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var photos []models.Photo
	for i := len(s.rows) - 1; i >= 0; i-- {
		if s.rows[i].AlbumID == albumID {
			photos = append(photos, s.rows[i])
		}
	}
	return page(photos, limit, offset), nil
}

func (s *Photos) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.rows)
}

func page[T any](items []T, limit, offset int) []T {
	if offset >= len(items) {
		return nil
	}
	items = items[offset:]
	if limit > 0 && limit < len(items) {
		items = items[:limit]
	}
	return items
}
