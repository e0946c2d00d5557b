package tasks

import (
	"context"
	"errors"
	"fmt"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"moonlit/gallery/internal/events"
	"moonlit/gallery/internal/storage"
)

// ObjectStat looks up a stored blob.
type ObjectStat interface {
	Stat(ctx context.Context, key string) (storage.ObjectInfo, error)
}

// Processor handles photo lifecycle events from the API. Registered photos
// are verified against the object store; orphaned blobs are surfaced for
// an operator, never deleted.
type Processor struct {
	logger  zerolog.Logger
	objects ObjectStat
}

func NewProcessor(logger zerolog.Logger, objects ObjectStat) *Processor {
	return &Processor{
		logger:  logger,
		objects: objects,
	}
}

func (p *Processor) Handle(ctx context.Context, msg redis.XMessage) error {
	event, err := events.Decode(msg.Values)
	if err != nil {
		// a malformed message will never decode, so ack it
		p.logger.Warn().Err(err).Str("message_id", msg.ID).Msg("dropping undecodable event")
		return nil
	}

	switch event.Type {
	case events.PhotoRegistered:
		return p.handleRegistered(ctx, event)
	case events.PhotoOrphaned:
		return p.handleOrphaned(ctx, event)
	default:
		p.logger.Warn().Str("type", string(event.Type)).Msg("unknown event type")
		return nil
	}
}

func (p *Processor) handleRegistered(ctx context.Context, event events.Event) error {
	info, err := p.objects.Stat(ctx, event.ObjectKey)
	if err != nil {
		if errors.Is(err, storage.ErrObjectNotFound) {
			p.logger.Error().
				Str("photo_id", event.PhotoID).
				Str("object_key", event.ObjectKey).
				Msg("registered photo has no blob")
			return nil
		}
		return fmt.Errorf("stat %s: %w", event.ObjectKey, err)
	}

	p.logger.Info().
		Str("photo_id", event.PhotoID).
		Str("album_id", event.AlbumID).
		Int64("size_bytes", info.Size).
		Msg("photo verified")
	return nil
}

func (p *Processor) handleOrphaned(ctx context.Context, event events.Event) error {
	info, err := p.objects.Stat(ctx, event.ObjectKey)
	if err != nil {
		if errors.Is(err, storage.ErrObjectNotFound) {
			p.logger.Info().Str("object_key", event.ObjectKey).Msg("orphaned blob already gone")
			return nil
		}
		return fmt.Errorf("stat %s: %w", event.ObjectKey, err)
	}

	p.logger.Warn().
		Str("album_id", event.AlbumID).
		Str("object_key", event.ObjectKey).
		Str("url", event.URL).
		Int64("size_bytes", info.Size).
		Str("reason", event.Reason).
		Time("occurred_at", event.OccurredAt).
		Msg("orphaned blob needs operator attention")
	return nil
}
