// Package events carries photo lifecycle notifications over a Redis stream
// from the API to the worker.
package events

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

type Type string

const (
	PhotoRegistered Type = "photo.registered"
	// PhotoOrphaned means the blob was written but its metadata row was not.
	PhotoOrphaned Type = "photo.orphaned"
)

type Event struct {
	Type       Type
	AlbumID    string
	PhotoID    string
	ObjectKey  string
	URL        string
	Reason     string
	OccurredAt time.Time
}

func (e Event) Values() map[string]any {
	return map[string]any{
		"type":       string(e.Type),
		"albumId":    e.AlbumID,
		"photoId":    e.PhotoID,
		"objectKey":  e.ObjectKey,
		"url":        e.URL,
		"reason":     e.Reason,
		"occurredAt": e.OccurredAt.UTC().Format(time.RFC3339Nano),
	}
}

// Decode rebuilds an Event from stream message values.
func Decode(values map[string]any) (Event, error) {
	str := func(key string) string {
		v, _ := values[key].(string)
		return v
	}

	event := Event{
		Type:      Type(str("type")),
		AlbumID:   str("albumId"),
		PhotoID:   str("photoId"),
		ObjectKey: str("objectKey"),
		URL:       str("url"),
		Reason:    str("reason"),
	}
	if event.Type == "" {
		return Event{}, fmt.Errorf("event missing type")
	}
	if ts := str("occurredAt"); ts != "" {
		parsed, err := time.Parse(time.RFC3339Nano, ts)
		if err != nil {
			return Event{}, fmt.Errorf("parse occurredAt: %w", err)
		}
		event.OccurredAt = parsed
	}
	return event, nil
}

type Publisher interface {
	Publish(ctx context.Context, event Event) error
}

type RedisPublisher struct {
	client *redis.Client
	stream string
}

func NewRedisPublisher(client *redis.Client, stream string) *RedisPublisher {
	return &RedisPublisher{client: client, stream: stream}
}

func (p *RedisPublisher) Publish(ctx context.Context, event Event) error {
	if event.OccurredAt.IsZero() {
		event.OccurredAt = time.Now()
	}
	_, err := p.client.XAdd(ctx, &redis.XAddArgs{
		Stream: p.stream,
		Values: event.Values(),
	}).Result()
	if err != nil {
		return fmt.Errorf("xadd %s: %w", p.stream, err)
	}
	return nil
}

// Nop drops every event.
type Nop struct{}

func (Nop) Publish(context.Context, Event) error { return nil }
