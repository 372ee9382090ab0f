package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	tweetrivia "github.com/tweetrivia/tweetrivia"
)

// Redis provides a Redis-backed cache of fetched posts keyed by handle, so
// repeated game creation for the same author does not re-hit the fetch API.
type Redis struct {
	Client *redis.Client
}

// ErrCacheMiss is returned when no cached posts exist for a handle.
var ErrCacheMiss = errors.New("posts not cached")

// NewRedis creates a new Redis client connection with the provided
// configuration and verifies it with a ping.
func NewRedis(addr, password string, db int) (Redis, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if _, err := client.Ping(ctx).Result(); err != nil {
		return Redis{}, fmt.Errorf("failed to connect to Redis: %w", err)
	}

	return Redis{
		Client: client,
	}, nil
}

func postsKey(handle string) string {
	return "posts:" + handle
}

// CachedPosts retrieves cached posts for a handle. It returns ErrCacheMiss
// when the handle has no cached entry.
func (r Redis) CachedPosts(ctx context.Context, handle string) ([]tweetrivia.Post, error) {
	content, err := r.Client.Get(ctx, postsKey(handle)).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, ErrCacheMiss
		}
		return nil, fmt.Errorf("failed to get cached posts: %w", err)
	}

	var posts []tweetrivia.Post
	if err := json.Unmarshal([]byte(content), &posts); err != nil {
		return nil, fmt.Errorf("failed to decode cached posts: %w", err)
	}

	return posts, nil
}

// CachePosts stores posts for a handle with the given TTL.
func (r Redis) CachePosts(ctx context.Context, handle string, posts []tweetrivia.Post, ttl time.Duration) error {
	encoded, err := json.Marshal(posts)
	if err != nil {
		return fmt.Errorf("failed to encode posts: %w", err)
	}

	if err := r.Client.Set(ctx, postsKey(handle), encoded, ttl).Err(); err != nil {
		return fmt.Errorf("failed to cache posts: %w", err)
	}

	return nil
}
