package redisclient

import (
	"context"
	_ "embed"
	"fmt"
	"strconv"
	"time"

	"github.com/go-redis/redis/v8"
)

//go:embed scripts/apply_progress.lua
var applyProgressScript string

const dashboardKey = "analytics:dashboard"

// Progress is the cached view of a deal's committed quantity. It is a
// read-side mirror fed from the event stream; the ledger in the store stays
// authoritative.
type Progress struct {
	Committed int  `json:"committed"`
	Target    int  `json:"target"`
	Fulfilled bool `json:"fulfilled"`
}

type Client struct {
	rdb            *redis.Client
	progressScript *redis.Script
}

// NewClient creates a new Redis client with the progress script loaded
func NewClient(addr, password string, db int) (*Client, error) {
	rdb := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := rdb.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("redis ping failed: %w", err)
	}

	return &Client{
		rdb:            rdb,
		progressScript: redis.NewScript(applyProgressScript),
	}, nil
}

// GetClient returns the underlying Redis client
func (c *Client) GetClient() *redis.Client {
	return c.rdb
}

// Close closes the Redis connection
func (c *Client) Close() error {
	return c.rdb.Close()
}

func progressKey(dealID int64) string {
	return fmt.Sprintf("deal:progress:%d", dealID)
}

// ApplyProgress atomically applies a quantity delta to a deal's progress
// mirror and latches the fulfilled flag once the target is reached.
func (c *Client) ApplyProgress(ctx context.Context, dealID int64, delta, target int) (int, error) {
	result, err := c.progressScript.Run(ctx, c.rdb, []string{progressKey(dealID)}, delta, target).Result()
	if err != nil {
		return 0, fmt.Errorf("apply progress script failed: %w", err)
	}

	committed, ok := result.(int64)
	if !ok {
		return 0, fmt.Errorf("unexpected script result type")
	}
	return int(committed), nil
}

// SetProgress overwrites a deal's progress mirror (used when seeding from
// the store).
func (c *Client) SetProgress(ctx context.Context, dealID int64, p Progress) error {
	fulfilled := 0
	if p.Fulfilled {
		fulfilled = 1
	}

	pipe := c.rdb.Pipeline()
	pipe.HSet(ctx, progressKey(dealID), "committed", p.Committed)
	pipe.HSet(ctx, progressKey(dealID), "target", p.Target)
	pipe.HSet(ctx, progressKey(dealID), "fulfilled", fulfilled)

	_, err := pipe.Exec(ctx)
	return err
}

// GetProgress retrieves a deal's progress mirror. A missing key is not an
// error; ok is false and the caller falls back to the store.
func (c *Client) GetProgress(ctx context.Context, dealID int64) (Progress, bool, error) {
	result, err := c.rdb.HGetAll(ctx, progressKey(dealID)).Result()
	if err != nil {
		return Progress{}, false, err
	}
	if len(result) == 0 {
		return Progress{}, false, nil
	}

	committed, _ := strconv.Atoi(result["committed"])
	target, _ := strconv.Atoi(result["target"])
	return Progress{
		Committed: committed,
		Target:    target,
		Fulfilled: result["fulfilled"] == "1",
	}, true, nil
}

// DropProgress removes a deal's progress mirror.
func (c *Client) DropProgress(ctx context.Context, dealID int64) error {
	return c.rdb.Del(ctx, progressKey(dealID)).Err()
}

// CacheDashboard stores the serialized dashboard payload with a TTL.
func (c *Client) CacheDashboard(ctx context.Context, payload []byte, ttl time.Duration) error {
	return c.rdb.Set(ctx, dashboardKey, payload, ttl).Err()
}

// GetDashboard retrieves the cached dashboard payload, or nil on a miss.
func (c *Client) GetDashboard(ctx context.Context) ([]byte, error) {
	payload, err := c.rdb.Get(ctx, dashboardKey).Bytes()
	if err == redis.Nil {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return payload, nil
}

// InvalidateDashboard drops the cached dashboard payload.
func (c *Client) InvalidateDashboard(ctx context.Context) error {
	return c.rdb.Del(ctx, dashboardKey).Err()
}
