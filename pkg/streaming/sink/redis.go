package sink

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"

	gfcontext "github.com/vnykmshr/goplumb/pkg/common/context"
	gferrors "github.com/vnykmshr/goplumb/pkg/common/errors"
	"github.com/vnykmshr/goplumb/pkg/common/validation"
)

// RedisConfig holds configuration for a RedisSink.
type RedisConfig struct {
	// Redis is the client used for all commands. The sink does not close it.
	Redis redis.UniversalClient

	// Key is the Redis list holding the entries.
	Key string

	// MaxLen caps the list length. Older entries are trimmed first.
	// Zero keeps everything.
	MaxLen int64

	// TTL expires the list after the last write. Zero disables expiry.
	TTL time.Duration

	// Timeout bounds each Redis call. Defaults to one second.
	Timeout time.Duration
}

// RedisSink appends entries as JSON to a Redis list so run history is
// shared between processes.
type RedisSink struct {
	config       RedisConfig
	appendScript *redis.Script

	mu     sync.RWMutex
	closed bool
}

// NewRedisSink creates a sink from config.
func NewRedisSink(config RedisConfig) (*RedisSink, error) {
	if config.Redis == nil {
		return nil, gferrors.NewValidationError("sink.redis", "Redis", nil, "cannot be nil").
			WithHint("provide a redis.UniversalClient")
	}
	if err := validation.ValidateNotEmpty("sink.redis", "Key", config.Key); err != nil {
		return nil, err
	}
	if config.MaxLen < 0 {
		return nil, gferrors.NewValidationError("sink.redis", "MaxLen", config.MaxLen, "must be non-negative")
	}
	if config.Timeout <= 0 {
		config.Timeout = time.Second
	}
	return &RedisSink{
		config:       config,
		appendScript: redis.NewScript(luaAppendEntry),
	}, nil
}

// Write implements Sink.
func (s *RedisSink) Write(ctx context.Context, e Entry) error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return closedError("sink.redis")
	}

	payload, err := json.Marshal(e)
	if err != nil {
		return gferrors.NewOperationError("sink.redis", "Write", err)
	}

	ctx, cancel := gfcontext.WithOptionalTimeout(ctx, s.config.Timeout)
	defer cancel()

	err = s.appendScript.Run(ctx, s.config.Redis, []string{s.config.Key},
		payload, s.config.MaxLen, s.config.TTL.Milliseconds()).Err()
	if err != nil && err != redis.Nil {
		return gferrors.NewOperationError("sink.redis", "Write", err).WithContext(s.config.Key)
	}
	return nil
}

// Recent returns up to n of the newest entries, oldest first.
func (s *RedisSink) Recent(ctx context.Context, n int64) ([]Entry, error) {
	if n <= 0 {
		return nil, nil
	}
	ctx, cancel := gfcontext.WithOptionalTimeout(ctx, s.config.Timeout)
	defer cancel()

	raw, err := s.config.Redis.LRange(ctx, s.config.Key, -n, -1).Result()
	if err != nil {
		return nil, gferrors.NewOperationError("sink.redis", "Recent", err).WithContext(s.config.Key)
	}

	entries := make([]Entry, 0, len(raw))
	for _, item := range raw {
		var e Entry
		if err := json.Unmarshal([]byte(item), &e); err != nil {
			return nil, gferrors.NewOperationError("sink.redis", "Recent", err).WithContext(s.config.Key)
		}
		entries = append(entries, e)
	}
	return entries, nil
}

// Len returns the length of the list.
func (s *RedisSink) Len(ctx context.Context) (int64, error) {
	ctx, cancel := gfcontext.WithOptionalTimeout(ctx, s.config.Timeout)
	defer cancel()
	return s.config.Redis.LLen(ctx, s.config.Key).Result()
}

// Reset deletes the list.
func (s *RedisSink) Reset(ctx context.Context) error {
	ctx, cancel := gfcontext.WithOptionalTimeout(ctx, s.config.Timeout)
	defer cancel()
	return s.config.Redis.Del(ctx, s.config.Key).Err()
}

// Close implements Sink. The Redis client stays open.
func (s *RedisSink) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	return nil
}

// luaAppendEntry pushes, trims and refreshes the TTL in one round trip.
// KEYS[1] list key; ARGV[1] payload; ARGV[2] max length; ARGV[3] ttl in ms.
const luaAppendEntry = `
redis.call('RPUSH', KEYS[1], ARGV[1])
local max_len = tonumber(ARGV[2])
if max_len > 0 then
    redis.call('LTRIM', KEYS[1], -max_len, -1)
end
local ttl = tonumber(ARGV[3])
if ttl > 0 then
    redis.call('PEXPIRE', KEYS[1], ttl)
end
return redis.call('LLEN', KEYS[1])
`
