package service

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"path"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"moonlit/gallery/internal/events"
	"moonlit/gallery/internal/ids"
	"moonlit/gallery/internal/media/sniffer"
	"moonlit/gallery/internal/models"
	"moonlit/gallery/internal/storage"
)

// Gate authorizes a raw session token.
type Gate interface {
	Require(ctx context.Context, token string, roles ...models.UserRole) (models.Principal, error)
}

type UploadObserver interface {
	Stage(stage string, err error)
	Done(duration time.Duration, sizeBytes int64, err error)
}

type UploadInput struct {
	Token    string
	AlbumID  string
	File     io.Reader
	Filename string
	MimeType string
	// Size is the declared length, or -1 when unknown.
	Size int64
}

type UploadResult struct {
	URL       string
	ObjectKey string
	Photo     models.Photo
}

type UploadService struct {
	gate     Gate
	albums   AlbumStore
	photos   PhotoStore
	blobs    BlobStore
	events   events.Publisher
	observer UploadObserver
	maxBytes int64
	log      zerolog.Logger
}

func NewUploadService(
	gate Gate,
	albums AlbumStore,
	photos PhotoStore,
	blobs BlobStore,
	publisher events.Publisher,
	observer UploadObserver,
	maxBytes int64,
	log zerolog.Logger,
) *UploadService {
	if publisher == nil {
		publisher = events.Nop{}
	}
	return &UploadService{
		gate:     gate,
		albums:   albums,
		photos:   photos,
		blobs:    blobs,
		events:   publisher,
		observer: observer,
		maxBytes: maxBytes,
		log:      log,
	}
}

func (s *UploadService) MaxBytes() int64 {
	return s.maxBytes
}

// Upload authorizes the caller, checks the album, streams the file to the
// object store and only then records the photo row. When the row insert
// fails the error is ErrMetadataWriteFailed and the result still carries
// the URL of the already written blob.
func (s *UploadService) Upload(ctx context.Context, input UploadInput) (result UploadResult, err error) {
	start := time.Now()
	var written int64
	defer func() {
		if s.observer != nil {
			s.observer.Done(time.Since(start), written, err)
		}
	}()

	principal, err := s.gate.Require(ctx, input.Token, models.UserRolePhotographer)
	s.stage("gate", err)
	if err != nil {
		return UploadResult{}, err
	}

	err = s.validate(input)
	s.stage("validate", err)
	if err != nil {
		return UploadResult{}, err
	}

	album, err := ownedAlbum(ctx, s.albums, principal, input.AlbumID)
	s.stage("album", err)
	if err != nil {
		return UploadResult{}, err
	}

	body := bufio.NewReaderSize(input.File, sniffer.HeadSize)
	detected, err := sniffer.Peek(body)
	if err != nil {
		if errors.Is(err, sniffer.ErrUnknownType) {
			err = fmt.Errorf("%w: file is not a supported image", ErrUnsupportedMedia)
		} else {
			err = fmt.Errorf("%w: read upload: %w", ErrBadRequest, err)
		}
	}
	s.stage("sniff", err)
	if err != nil {
		return UploadResult{}, err
	}

	key := path.Join(album.ID, ids.New()+objectExt(input.Filename, detected))
	contentType := sniffer.NormalizeContentType(input.MimeType)
	if !strings.HasPrefix(contentType, "image/") {
		contentType = detected.MIME
	}

	guard := &sizeGuard{r: body, max: s.maxBytes}
	_, err = s.blobs.Put(ctx, key, guard, input.Size, storage.PutOptions{
		ContentType:  contentType,
		CacheControl: storage.CacheControlImmutable,
	})
	if err != nil {
		if guard.exceeded {
			err = fmt.Errorf("%w: limit is %d bytes", ErrFileTooLarge, s.maxBytes)
		} else {
			err = fmt.Errorf("%w: %w", ErrStorageWriteFailed, err)
		}
	}
	s.stage("storage", err)
	if err != nil {
		s.log.Error().Err(err).Str("album_id", album.ID).Str("object_key", key).Msg("object store write failed")
		return UploadResult{}, err
	}
	written = guard.n

	url := s.blobs.PublicURL(key)
	photo, err := s.photos.Create(ctx, models.Photo{
		AlbumID:      album.ID,
		Filename:     key,
		ObjectURL:    url,
		OriginalName: path.Base(strings.ReplaceAll(input.Filename, "\\", "/")),
		ContentType:  contentType,
		SizeBytes:    guard.n,
	})
	s.stage("metadata", err)
	if err != nil {
		s.log.Error().Err(err).
			Str("album_id", album.ID).
			Str("object_key", key).
			Str("url", url).
			Msg("photo row insert failed after blob write, blob is orphaned")
		s.publish(ctx, events.Event{
			Type:      events.PhotoOrphaned,
			AlbumID:   album.ID,
			ObjectKey: key,
			URL:       url,
			Reason:    err.Error(),
		})
		return UploadResult{URL: url, ObjectKey: key}, fmt.Errorf("%w: %w", ErrMetadataWriteFailed, err)
	}

	s.publish(ctx, events.Event{
		Type:      events.PhotoRegistered,
		AlbumID:   album.ID,
		PhotoID:   photo.ID,
		ObjectKey: key,
		URL:       url,
	})

	s.log.Info().
		Str("photo_id", photo.ID).
		Str("album_id", album.ID).
		Str("user_id", principal.UserID).
		Int64("size_bytes", photo.SizeBytes).
		Msg("photo uploaded")

	return UploadResult{URL: url, ObjectKey: key, Photo: photo}, nil
}

func (s *UploadService) validate(input UploadInput) error {
	if strings.TrimSpace(input.AlbumID) == "" {
		return fmt.Errorf("%w: album id is required", ErrBadRequest)
	}
	if !ids.Valid(strings.TrimSpace(input.AlbumID)) {
		return fmt.Errorf("%w: invalid album id", ErrBadRequest)
	}
	if input.File == nil {
		return fmt.Errorf("%w: no file uploaded", ErrBadRequest)
	}
	if input.Size == 0 {
		return fmt.Errorf("%w: empty file", ErrBadRequest)
	}
	if input.Size > s.maxBytes {
		return fmt.Errorf("%w: limit is %d bytes", ErrFileTooLarge, s.maxBytes)
	}
	return nil
}

func (s *UploadService) stage(name string, err error) {
	if s.observer != nil {
		s.observer.Stage(name, err)
	}
}

// publish is best effort and outlives a cancelled request.
func (s *UploadService) publish(ctx context.Context, event events.Event) {
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 2*time.Second)
	defer cancel()
	if err := s.events.Publish(ctx, event); err != nil {
		s.log.Warn().Err(err).Str("event", string(event.Type)).Str("object_key", event.ObjectKey).Msg("publish event failed")
	}
}

var imageExts = map[string]struct{}{
	".jpg": {}, ".jpeg": {}, ".png": {}, ".gif": {}, ".webp": {}, ".avif": {}, ".heic": {}, ".heif": {},
}

// objectExt keeps the client's extension when it names an image format and
// falls back to the detected one.
func objectExt(filename string, detected sniffer.Result) string {
	ext := strings.ToLower(path.Ext(filename))
	if _, ok := imageExts[ext]; ok {
		return ext
	}
	return detected.Ext()
}

// sizeGuard counts bytes read and fails once more than max have passed.
type sizeGuard struct {
	r        io.Reader
	max      int64
	n        int64
	exceeded bool
}

func (g *sizeGuard) Read(p []byte) (int, error) {
	n, err := g.r.Read(p)
	g.n += int64(n)
	if g.n > g.max {
		g.exceeded = true
		return n, ErrFileTooLarge
	}
	return n, err
}
