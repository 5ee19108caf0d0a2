package sink

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/redis/go-redis/v9"
)

// KeyPrefix prefixes the per-run narration list.
const KeyPrefix = "cae:narration:"

// Redis appends narration to the list cae:narration:<run>.
type Redis struct {
	rdb    *redis.Client
	logger *slog.Logger
}

// NewRedis connects to the server at redisURL (redis://host:port/db) and
// checks the connection.
func NewRedis(ctx context.Context, redisURL string, logger *slog.Logger) (*Redis, error) {
	if logger == nil {
		logger = slog.Default()
	}
	opt, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse redis URL: %w", err)
	}

	rdb := redis.NewClient(opt)
	if err := rdb.Ping(ctx).Err(); err != nil {
		rdb.Close()
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}

	logger.Info("connected to redis narration sink", "addr", opt.Addr)
	return &Redis{rdb: rdb, logger: logger}, nil
}

// Key returns the list key for runID.
func Key(runID string) string {
	return KeyPrefix + runID
}

func (r *Redis) Publish(ctx context.Context, runID string, turn int, lines []string) error {
	if len(lines) == 0 {
		return nil
	}
	values := make([]any, len(lines))
	for i, l := range lines {
		values[i] = l
	}
	key := Key(runID)
	if err := r.rdb.RPush(ctx, key, values...).Err(); err != nil {
		r.logger.Error("failed to publish narration",
			"error", err,
			"run_id", runID,
			"turn", turn,
			"key", key)
		return fmt.Errorf("publish narration turn %d: %w", turn, err)
	}
	r.logger.Debug("published narration", "run_id", runID, "turn", turn, "count", len(lines))
	return nil
}

// Lines reads back every line published for runID.
func (r *Redis) Lines(ctx context.Context, runID string) ([]string, error) {
	lines, err := r.rdb.LRange(ctx, Key(runID), 0, -1).Result()
	if err != nil && !errors.Is(err, redis.Nil) {
		return nil, fmt.Errorf("read narration: %w", err)
	}
	if lines == nil {
		lines = []string{}
	}
	return lines, nil
}

// Clear deletes the narration list of runID.
func (r *Redis) Clear(ctx context.Context, runID string) error {
	if err := r.rdb.Del(ctx, Key(runID)).Err(); err != nil {
		return fmt.Errorf("clear narration: %w", err)
	}
	return nil
}

// Close closes the connection.
func (r *Redis) Close() error {
	return r.rdb.Close()
}
