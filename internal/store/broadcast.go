package store

import (
	"context"
	"encoding/json"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"
)

const changesChannel = "pvflow:records:changes"

// ChangeKind: "upsert" | "delete"
type ChangeKind string

const (
	ChangeUpsert ChangeKind = "upsert"
	ChangeDelete ChangeKind = "delete"
)

// Change announces a write to other server processes.
type Change struct {
	Instance string     `json:"instance"`
	RecordID string     `json:"recordId"`
	Kind     ChangeKind `json:"kind"`
	Version  int64      `json:"version"`
}

// Broadcaster carries change notifications between processes.
type Broadcaster interface {
	Publish(ctx context.Context, c Change) error
	// Listen blocks until ctx is done, calling fn for changes made by other
	// instances.
	Listen(ctx context.Context, fn func(Change))
	Instance() string
}

type redisBroadcaster struct {
	rdb      *redis.Client
	instance string
}

func NewRedisBroadcaster(rdb *redis.Client, instance string) Broadcaster {
	return &redisBroadcaster{rdb: rdb, instance: instance}
}

func (b *redisBroadcaster) Instance() string { return b.instance }

func (b *redisBroadcaster) Publish(ctx context.Context, c Change) error {
	c.Instance = b.instance
	data, err := json.Marshal(c)
	if err != nil {
		return err
	}
	return b.rdb.Publish(ctx, changesChannel, data).Err()
}

func (b *redisBroadcaster) Listen(ctx context.Context, fn func(Change)) {
	sub := b.rdb.Subscribe(ctx, changesChannel)
	defer sub.Close()

	ch := sub.Channel()
	for {
		select {
		case <-ctx.Done():
			return
		case msg, ok := <-ch:
			if !ok {
				return
			}
			var c Change
			if err := json.Unmarshal([]byte(msg.Payload), &c); err != nil {
				log.Warn().Err(err).Msg("store: mensagem de mudanca invalida")
				continue
			}
			if c.Instance == b.instance {
				continue
			}
			fn(c)
		}
	}
}
