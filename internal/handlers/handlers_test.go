package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/textproto"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"moonlit/gallery/internal/config"
	"moonlit/gallery/internal/ids"
	"moonlit/gallery/internal/repository/memory"
	"moonlit/gallery/internal/service"
	"moonlit/gallery/internal/storage"
)

type testEnv struct {
	router *gin.Engine
	blobs  *storage.MemoryStore
	photos *memory.Photos
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	gin.SetMode(gin.TestMode)

	cfg := &config.AppConfig{
		Environment: "test",
		Security: config.SecurityConfig{
			JWTAccessSecret: "handler-secret",
			JWTAccessTTL:    time.Hour,
			JWTRefreshTTL:   24 * time.Hour,
			MaxSessions:     5,
			CookieName:      "gallery_session",
		},
		Upload: config.UploadConfig{MaxBytes: 64 << 10, MemoryBytes: 16 << 10},
	}

	users := memory.NewUsers()
	sessions := memory.NewSessions()
	albums := memory.NewAlbums()
	env := &testEnv{
		blobs:  storage.NewMemoryStore("https://storage.example.com", "moonlit-photos"),
		photos: memory.NewPhotos(),
	}

	gate := service.NewRoleGate(cfg.Security.JWTAccessSecret, users, sessions)
	auth := service.NewAuthService(users, sessions, cfg.Security, zerolog.Nop())
	require.NoError(t, auth.SeedUsers(context.Background(), []config.SeedUser{
		{Email: "photographer@example.com", Name: "Pat", Password: "photographer-pw", Role: "photographer"},
		{Email: "other@example.com", Name: "Oli", Password: "photographer-pw", Role: "photographer"},
		{Email: "client@example.com", Name: "Cam", Password: "client-pw", Role: "client"},
	}))

	h := NewHandlerSet(zerolog.Nop(), cfg, Services{
		Gate:    gate,
		Auth:    auth,
		Albums:  service.NewAlbumService(albums, env.photos),
		Uploads: service.NewUploadService(gate, albums, env.photos, env.blobs, nil, nil, cfg.Upload.MaxBytes, zerolog.Nop()),
	}, HealthCheck{Name: "storage", Ping: env.blobs.Ping})

	env.router = gin.New()
	h.Register(env.router.Group("/api"))
	return env
}

func (e *testEnv) do(req *http.Request) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	e.router.ServeHTTP(rec, req)
	return rec
}

func (e *testEnv) postJSON(path, token string, body any) *httptest.ResponseRecorder {
	raw, _ := json.Marshal(body)
	req := httptest.NewRequest(http.MethodPost, path, bytes.NewReader(raw))
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	return e.do(req)
}

func (e *testEnv) login(t *testing.T, email, password string) string {
	t.Helper()
	rec := e.postJSON("/api/v1/auth/login", "", gin.H{"email": email, "password": password})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var resp authResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	return resp.AccessToken
}

func (e *testEnv) createAlbum(t *testing.T, token string) string {
	t.Helper()
	rec := e.postJSON("/api/v1/albums", token, gin.H{"title": "Wedding"})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var resp struct {
		Album albumResponse `json:"album"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	return resp.Album.ID
}

func decode(t *testing.T, rec *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var body map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body), rec.Body.String())
	return body
}

type part struct {
	field, filename, contentType string
	data                         []byte
}

func multipartRequest(t *testing.T, token string, parts ...part) *http.Request {
	t.Helper()
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	for _, p := range parts {
		if p.filename == "" {
			require.NoError(t, w.WriteField(p.field, string(p.data)))
			continue
		}
		header := make(textproto.MIMEHeader)
		header.Set("Content-Disposition", `form-data; name="`+p.field+`"; filename="`+p.filename+`"`)
		header.Set("Content-Type", p.contentType)
		fw, err := w.CreatePart(header)
		require.NoError(t, err)
		_, err = fw.Write(p.data)
		require.NoError(t, err)
	}
	require.NoError(t, w.Close())

	req := httptest.NewRequest(http.MethodPost, "/api/v1/upload", &buf)
	req.Header.Set("Content-Type", w.FormDataContentType())
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	return req
}

func jpeg(n int) []byte {
	return append([]byte{0xff, 0xd8, 0xff, 0xe0}, bytes.Repeat([]byte{0x42}, n)...)
}

func photoPart(data []byte) part {
	return part{field: "photo", filename: "IMG_0001.jpg", contentType: "image/jpeg", data: data}
}

func albumPart(id string) part {
	return part{field: "album_id", data: []byte(id)}
}

func TestSignup(t *testing.T) {
	env := newTestEnv(t)

	rec := env.postJSON("/api/v1/auth/signup", "", gin.H{"name": "Ada", "email": "ada@example.com", "password": "correct horse"})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	body := decode(t, rec)
	assert.Equal(t, "User created successfully", body["message"])
	user := body["user"].(map[string]any)
	assert.Equal(t, "ada@example.com", user["email"])
	assert.Equal(t, "user", user["role"])
	assert.NotContains(t, rec.Body.String(), "password")
	assert.NotContains(t, rec.Body.String(), "argon2")

	rec = env.postJSON("/api/v1/auth/signup", "", gin.H{"name": "Ada", "email": "ada@example.com", "password": "correct horse"})
	assert.Equal(t, http.StatusConflict, rec.Code)
	assert.Equal(t, "already_exists", decode(t, rec)["error"])

	rec = env.postJSON("/api/v1/auth/signup", "", gin.H{"name": "Bo", "email": "bo@example.com", "password": "short1"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "weak_password", decode(t, rec)["error"])

	rec = env.postJSON("/api/v1/auth/signup", "", gin.H{"email": "bo@example.com"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "bad_request", decode(t, rec)["error"])
}

func TestLoginAndMe(t *testing.T) {
	env := newTestEnv(t)

	rec := env.postJSON("/api/v1/auth/login", "", gin.H{"email": "client@example.com", "password": "wrong"})
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Equal(t, "invalid_credentials", decode(t, rec)["error"])

	rec = env.postJSON("/api/v1/auth/login", "", gin.H{"email": "client@example.com", "password": "client-pw"})
	require.Equal(t, http.StatusOK, rec.Code)
	cookies := rec.Result().Cookies()
	require.NotEmpty(t, cookies)
	assert.Equal(t, "gallery_session", cookies[0].Name)
	assert.True(t, cookies[0].HttpOnly)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/auth/me", nil)
	req.AddCookie(cookies[0])
	rec = env.do(req)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"role":"client"`)

	rec = env.do(httptest.NewRequest(http.MethodGet, "/api/v1/auth/me", nil))
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestLogoutRevokesToken(t *testing.T) {
	env := newTestEnv(t)
	token := env.login(t, "client@example.com", "client-pw")

	rec := env.postJSON("/api/v1/auth/logout", token, nil)
	require.Equal(t, http.StatusNoContent, rec.Code)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/auth/me", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	assert.Equal(t, http.StatusUnauthorized, env.do(req).Code)
}

func TestAlbums(t *testing.T) {
	env := newTestEnv(t)
	photographer := env.login(t, "photographer@example.com", "photographer-pw")
	client := env.login(t, "client@example.com", "client-pw")

	rec := env.postJSON("/api/v1/albums", "", gin.H{"title": "Wedding"})
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = env.postJSON("/api/v1/albums", client, gin.H{"title": "Wedding"})
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec = env.postJSON("/api/v1/albums", photographer, gin.H{"title": ""})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	id := env.createAlbum(t, photographer)
	assert.True(t, ids.Valid(id))

	req := httptest.NewRequest(http.MethodGet, "/api/v1/albums", nil)
	req.Header.Set("Authorization", "Bearer "+photographer)
	rec = env.do(req)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), id)

	req = httptest.NewRequest(http.MethodGet, "/api/v1/albums?limit=zero", nil)
	req.Header.Set("Authorization", "Bearer "+photographer)
	assert.Equal(t, http.StatusBadRequest, env.do(req).Code)
}

func TestUploadPhoto(t *testing.T) {
	env := newTestEnv(t)
	token := env.login(t, "photographer@example.com", "photographer-pw")
	albumID := env.createAlbum(t, token)

	rec := env.do(multipartRequest(t, token, albumPart(albumID), photoPart(jpeg(20<<10))))
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	body := decode(t, rec)
	assert.Equal(t, "Photo uploaded successfully", body["message"])
	url := body["url"].(string)
	assert.True(t, strings.HasPrefix(url, "https://storage.example.com/moonlit-photos/"+albumID+"/"), url)
	metadata := body["metadata"].(map[string]any)
	assert.Equal(t, albumID, metadata["album_id"])
	assert.Equal(t, url, metadata["object_url"])
	assert.Equal(t, "image/jpeg", metadata["content_type"])

	req := httptest.NewRequest(http.MethodGet, "/api/v1/albums/"+albumID+"/photos", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	rec = env.do(req)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), url)
}

func TestUploadRejections(t *testing.T) {
	env := newTestEnv(t)
	token := env.login(t, "photographer@example.com", "photographer-pw")
	other := env.login(t, "other@example.com", "photographer-pw")
	client := env.login(t, "client@example.com", "client-pw")
	albumID := env.createAlbum(t, token)
	foreign := env.createAlbum(t, other)

	plain := httptest.NewRequest(http.MethodPost, "/api/v1/upload", strings.NewReader("x"))
	plain.Header.Set("Content-Type", "text/plain")
	plain.Header.Set("Authorization", "Bearer "+token)

	cases := []struct {
		name   string
		req    *http.Request
		status int
		code   string
	}{
		{"no token", multipartRequest(t, "", albumPart(albumID), photoPart(jpeg(10))), http.StatusUnauthorized, "unauthorized"},
		{"client role", multipartRequest(t, client, albumPart(albumID), photoPart(jpeg(10))), http.StatusForbidden, "forbidden"},
		{"missing photo", multipartRequest(t, token, albumPart(albumID)), http.StatusBadRequest, "bad_request"},
		{"missing album", multipartRequest(t, token, photoPart(jpeg(10))), http.StatusBadRequest, "bad_request"},
		{"unknown album", multipartRequest(t, token, albumPart(ids.New()), photoPart(jpeg(10))), http.StatusNotFound, "not_found"},
		{"foreign album", multipartRequest(t, token, albumPart(foreign), photoPart(jpeg(10))), http.StatusForbidden, "forbidden"},
		{"not an image", multipartRequest(t, token, albumPart(albumID), part{field: "photo", filename: "notes.txt", contentType: "text/plain", data: []byte("hello there")}), http.StatusUnsupportedMediaType, "unsupported_media_type"},
		{"over limit", multipartRequest(t, token, albumPart(albumID), photoPart(jpeg(100<<10))), http.StatusRequestEntityTooLarge, "file_too_large"},
		{"far over limit", multipartRequest(t, token, albumPart(albumID), photoPart(jpeg(2<<20))), http.StatusRequestEntityTooLarge, "file_too_large"},
		{"not multipart", plain, http.StatusBadRequest, "bad_request"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			rec := env.do(tc.req)
			assert.Equal(t, tc.status, rec.Code, rec.Body.String())
			assert.Equal(t, tc.code, decode(t, rec)["error"])
		})
	}

	assert.Equal(t, 0, env.blobs.Puts(), "no rejected upload reaches the object store")
}

func TestUploadStorageFailure(t *testing.T) {
	env := newTestEnv(t)
	token := env.login(t, "photographer@example.com", "photographer-pw")
	albumID := env.createAlbum(t, token)
	env.blobs.Fail = errors.New("connection reset")

	rec := env.do(multipartRequest(t, token, albumPart(albumID), photoPart(jpeg(100))))
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	body := decode(t, rec)
	assert.Equal(t, "storage", body["stage"])
	assert.NotContains(t, rec.Body.String(), "connection reset")
	assert.Equal(t, 0, env.photos.Len())
}

func TestUploadMetadataFailure(t *testing.T) {
	env := newTestEnv(t)
	token := env.login(t, "photographer@example.com", "photographer-pw")
	albumID := env.createAlbum(t, token)
	env.photos.Fail = errors.New("db unavailable")

	rec := env.do(multipartRequest(t, token, albumPart(albumID), photoPart(jpeg(100))))
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	body := decode(t, rec)
	assert.Equal(t, "metadata", body["stage"])
	assert.Equal(t, "metadata_write_failed", body["error"])

	url, _ := body["url"].(string)
	require.NotEmpty(t, url)
	key := strings.TrimPrefix(url, "https://storage.example.com/moonlit-photos/")
	_, ok := env.blobs.Bytes(key)
	assert.True(t, ok)
}

func TestHealth(t *testing.T) {
	env := newTestEnv(t)
	rec := env.do(httptest.NewRequest(http.MethodGet, "/api/healthz", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"storage":"ok"`)

	gin.SetMode(gin.TestMode)
	h := NewHandlerSet(zerolog.Nop(), &config.AppConfig{}, Services{}, HealthCheck{
		Name: "database",
		Ping: func(context.Context) error { return errors.New("refused") },
	})
	r := gin.New()
	r.GET("/healthz", h.Health)
	rec = httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	assert.Contains(t, rec.Body.String(), `"database":"error"`)
}
