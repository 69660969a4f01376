// File: internal/infra/bus/redis.go
package bus

import (
	"context"
	"encoding/json"
	"time"

	"video-analysis-platform/internal/domain/model"
	"video-analysis-platform/internal/domain/ports/adapter"

	"github.com/go-redis/redis/v8"
	"github.com/rs/zerolog"
)

var _ adapter.ProgressBus = (*RedisBus)(nil)

const (
	channelPrefix = "progress:events:"
	latestPrefix  = "progress:latest:"
	latestTTL     = 24 * time.Hour
)

// RedisBus is the shared-broker ProgressBus for multi-instance deployments:
// publishes fan out over Redis pub/sub so a listener registered on any
// instance observes every publish, and the latest update is kept in a keyed
// value for replay-on-connect.
type RedisBus struct {
	cli *redis.Client
	log *zerolog.Logger
}

func NewRedisBus(ctx context.Context, url, password string, db int, logger *zerolog.Logger) (*RedisBus, error) {
	cli := redis.NewClient(&redis.Options{Addr: url, Password: password, DB: db})
	if err := cli.Ping(ctx).Err(); err != nil {
		return nil, err
	}
	busLog := logger.With().Str("component", "RedisBus").Logger()
	return &RedisBus{cli: cli, log: &busLog}, nil
}

func (b *RedisBus) Publish(ctx context.Context, u model.ProgressUpdate) error {
	payload, err := json.Marshal(u)
	if err != nil {
		return err
	}
	pipe := b.cli.Pipeline()
	pipe.Set(ctx, latestPrefix+u.JobID, payload, latestTTL)
	pipe.Publish(ctx, channelPrefix+u.JobID, payload)
	_, err = pipe.Exec(ctx)
	return err
}

func (b *RedisBus) Subscribe(jobID string, fn adapter.ProgressListener) func() {
	ps := b.cli.Subscribe(context.Background(), channelPrefix+jobID)
	go func() {
		for msg := range ps.Channel() {
			var u model.ProgressUpdate
			if err := json.Unmarshal([]byte(msg.Payload), &u); err != nil {
				b.log.Warn().Err(err).Str("job_id", jobID).Msg("dropping malformed progress payload")
				continue
			}
			fn(u)
		}
	}()
	return func() { _ = ps.Close() }
}

func (b *RedisBus) Latest(ctx context.Context, jobID string) (*model.ProgressUpdate, error) {
	raw, err := b.cli.Get(ctx, latestPrefix+jobID).Result()
	if err == redis.Nil {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	var u model.ProgressUpdate
	if err := json.Unmarshal([]byte(raw), &u); err != nil {
		return nil, err
	}
	return &u, nil
}

func (b *RedisBus) Close() error { return b.cli.Close() }
