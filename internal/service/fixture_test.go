package service

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"moonlit/gallery/internal/config"
	"moonlit/gallery/internal/events"
	"moonlit/gallery/internal/models"
	"moonlit/gallery/internal/repository/memory"
	"moonlit/gallery/internal/security"
	"moonlit/gallery/internal/storage"
)

const testSecret = "test-secret"

var fastArgon = security.Argon2Params{Time: 1, Memory: 8 * 1024, Threads: 1, KeyLen: 32, SaltLen: 16}

type fixture struct {
	users    *memory.Users
	sessions *memory.Sessions
	albums   *memory.Albums
	photos   *memory.Photos
	blobs    *storage.MemoryStore
	events   *recordingPublisher
	gate     *RoleGate
	auth     *AuthService
	albumSvc *AlbumService
	uploads  *UploadService
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	f := &fixture{
		users:    memory.NewUsers(),
		sessions: memory.NewSessions(),
		albums:   memory.NewAlbums(),
		photos:   memory.NewPhotos(),
		blobs:    storage.NewMemoryStore("https://storage.example.com", "moonlit-photos"),
		events:   &recordingPublisher{},
	}
	f.gate = NewRoleGate(testSecret, f.users, f.sessions)
	f.auth = NewAuthService(f.users, f.sessions, config.SecurityConfig{
		JWTAccessSecret: testSecret,
		JWTAccessTTL:    time.Hour,
		JWTRefreshTTL:   24 * time.Hour,
		MaxSessions:     3,
	}, zerolog.Nop())
	f.auth.hash = func(password string) ([]byte, error) {
		return security.HashPasswordWithParams(password, fastArgon)
	}
	f.albumSvc = NewAlbumService(f.albums, f.photos)
	f.uploads = NewUploadService(f.gate, f.albums, f.photos, f.blobs, f.events, nil, 1<<20, zerolog.Nop())
	return f
}

// login creates a user with role and returns its principal and token.
func (f *fixture) login(t *testing.T, email string, role models.UserRole) (models.Principal, string) {
	t.Helper()
	ctx := context.Background()

	_, err := f.auth.createUser(ctx, "Test", email, "longenough1", role)
	require.NoError(t, err)

	result, err := f.auth.Login(ctx, LoginInput{Email: email, Password: "longenough1"})
	require.NoError(t, err)

	principal, err := f.gate.Resolve(ctx, result.AccessToken)
	require.NoError(t, err)
	return principal, result.AccessToken
}

func (f *fixture) album(t *testing.T, owner models.Principal) models.Album {
	t.Helper()
	album, err := f.albumSvc.Create(context.Background(), owner, CreateAlbumInput{Title: "Wedding"})
	require.NoError(t, err)
	return album
}

type recordingPublisher struct {
	mu     sync.Mutex
	events []events.Event
	fail   error
}

func (p *recordingPublisher) Publish(_ context.Context, event events.Event) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, event)
	return p.fail
}

func (p *recordingPublisher) types() []events.Type {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]events.Type, 0, len(p.events))
	for _, e := range p.events {
		out = append(out, e.Type)
	}
	return out
}
