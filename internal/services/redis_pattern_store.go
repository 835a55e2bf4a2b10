package services

import (
	"context"
	"fmt"
	"sort"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/huangang/issuepulse/internal/analytics"
	"github.com/redis/go-redis/v9"
)

const redisPatternPrefix = "issuepulse:pattern:"

// upsertPatternScript increments the frequency, records the hit, prunes hits
// older than two windows and recomputes the trend at last_occurred in one
// atomic step.
//
// KEYS: pattern hash, hits zset, index set
// ARGV: at (ms), hit member, window (ms), pattern name
var upsertPatternScript = redis.NewScript(`
local freq = redis.call('HINCRBY', KEYS[1], 'frequency', 1)
local at = tonumber(ARGV[1])
local window = tonumber(ARGV[3])
redis.call('SADD', KEYS[3], ARGV[4])

local last = tonumber(redis.call('HGET', KEYS[1], 'last_occurred') or '0')
if freq == 1 or at > last then
  last = at
  redis.call('HSET', KEYS[1], 'last_occurred', ARGV[1])
end

redis.call('ZADD', KEYS[2], at, ARGV[2])
redis.call('ZREMRANGEBYSCORE', KEYS[2], '-inf', last - 2 * window)

local trend = 'new'
if freq > 1 then
  local cur = redis.call('ZCOUNT', KEYS[2], '(' .. (last - window), last)
  local prev = redis.call('ZCOUNT', KEYS[2], '(' .. (last - 2 * window), last - window)
  if cur > prev then
    trend = 'increasing'
  elseif cur < prev then
    trend = 'decreasing'
  else
    trend = 'stable'
  end
end
redis.call('HSET', KEYS[1], 'trend', trend)
return {freq, tostring(last), trend}
`)

// RedisPatternStore keeps pattern state in Redis so several server
// instances share one view of pattern frequencies.
type RedisPatternStore struct {
	rdb    redis.UniversalClient
	window time.Duration
}

func NewRedisPatternStore(rdb redis.UniversalClient, window time.Duration) *RedisPatternStore {
	if window <= 0 {
		window = analytics.DefaultTrendWindow
	}
	return &RedisPatternStore{rdb: rdb, window: window}
}

func patternKey(name string) string     { return redisPatternPrefix + name }
func patternHitsKey(name string) string { return redisPatternPrefix + name + ":hits" }
func patternIndexKey() string           { return redisPatternPrefix + "index" }

func (s *RedisPatternStore) Upsert(ctx context.Context, name string, at time.Time) (analytics.ErrorPattern, error) {
	keys := []string{patternKey(name), patternHitsKey(name), patternIndexKey()}
	res, err := upsertPatternScript.Run(ctx, s.rdb, keys,
		at.UnixMilli(), uuid.NewString(), s.window.Milliseconds(), name).Slice()
	if err != nil {
		return analytics.ErrorPattern{}, fmt.Errorf("upsert error pattern %q: %w", name, err)
	}
	if len(res) != 3 {
		return analytics.ErrorPattern{}, fmt.Errorf("upsert error pattern %q: unexpected reply %v", name, res)
	}

	freq, _ := res[0].(int64)
	lastStr, _ := res[1].(string)
	trend, _ := res[2].(string)
	last, err := strconv.ParseInt(lastStr, 10, 64)
	if err != nil {
		return analytics.ErrorPattern{}, fmt.Errorf("upsert error pattern %q: bad last_occurred %q", name, lastStr)
	}

	return analytics.ErrorPattern{
		Name:         name,
		Frequency:    freq,
		LastOccurred: time.UnixMilli(last).UTC(),
		Trend:        analytics.PatternTrend(trend),
	}, nil
}

func (s *RedisPatternStore) List(ctx context.Context) ([]analytics.ErrorPattern, error) {
	names, err := s.rdb.SMembers(ctx, patternIndexKey()).Result()
	if err != nil {
		return nil, fmt.Errorf("list error patterns: %w", err)
	}
	if len(names) == 0 {
		return []analytics.ErrorPattern{}, nil
	}

	pipe := s.rdb.Pipeline()
	cmds := make([]*redis.MapStringStringCmd, len(names))
	for i, name := range names {
		cmds[i] = pipe.HGetAll(ctx, patternKey(name))
	}
	if _, err := pipe.Exec(ctx); err != nil {
		return nil, fmt.Errorf("list error patterns: %w", err)
	}

	patterns := make([]analytics.ErrorPattern, 0, len(names))
	for i, cmd := range cmds {
		fields := cmd.Val()
		freq, _ := strconv.ParseInt(fields["frequency"], 10, 64)
		if freq == 0 {
			continue
		}
		last, _ := strconv.ParseInt(fields["last_occurred"], 10, 64)
		patterns = append(patterns, analytics.ErrorPattern{
			Name:         names[i],
			Frequency:    freq,
			LastOccurred: time.UnixMilli(last).UTC(),
			Trend:        analytics.PatternTrend(fields["trend"]),
		})
	}
	sort.Slice(patterns, func(i, j int) bool { return patterns[i].Name < patterns[j].Name })
	return patterns, nil
}

// NewRedisClient connects and pings with a short timeout.
func NewRedisClient(ctx context.Context, addr, password string, db int) (*redis.Client, error) {
	rdb := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})

	pingCtx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()
	if err := rdb.Ping(pingCtx).Err(); err != nil {
		rdb.Close()
		return nil, fmt.Errorf("ping redis at %s: %w", addr, err)
	}
	return rdb, nil
}

// Reset deletes every indexed pattern with its hits, then the index itself.
func (s *RedisPatternStore) Reset(ctx context.Context) error {
	names, err := s.rdb.SMembers(ctx, patternIndexKey()).Result()
	if err != nil {
		return fmt.Errorf("reset error patterns: %w", err)
	}
	keys := make([]string, 0, 2*len(names)+1)
	for _, name := range names {
		keys = append(keys, patternKey(name), patternHitsKey(name))
	}
	keys = append(keys, patternIndexKey())

	pipe := s.rdb.Pipeline()
	for _, key := range keys {
		pipe.Del(ctx, key)
	}
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("reset error patterns: %w", err)
	}
	return nil
}
