package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"sort"
	"time"

	"github.com/go-redis/redis/v8"

	"github.com/i474232898/solar-weather-analytics/internal/energy"
	"github.com/i474232898/solar-weather-analytics/internal/weather"
)

const (
	seriesKeyPrefix = "series:"
	userKeyPrefix   = "user:"
	usersSetKey     = "users"
)

// RedisOptions configure a RedisStore.
type RedisOptions struct {
	Addr     string
	Password string
	DB       int
	// SeriesTTL expires stored series; zero keeps them forever.
	SeriesTTL time.Duration
}

// RedisStore keeps series as JSON documents with a TTL and users as hashes.
type RedisStore struct {
	client    *redis.Client
	seriesTTL time.Duration
}

// NewRedisStore connects to Redis and verifies the connection.
func NewRedisStore(ctx context.Context, opts RedisOptions) (*RedisStore, error) {
	client := redis.NewClient(&redis.Options{
		Addr:         opts.Addr,
		Password:     opts.Password,
		DB:           opts.DB,
		PoolSize:     20,
		MinIdleConns: 2,
		DialTimeout:  5 * time.Second,
		ReadTimeout:  3 * time.Second,
		WriteTimeout: 3 * time.Second,
	})

	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}
	log.Printf("INFO: Connected to Redis at %s", opts.Addr)

	return NewRedisStoreFromClient(client, opts.SeriesTTL), nil
}

// NewRedisStoreFromClient wraps an existing client.
func NewRedisStoreFromClient(client *redis.Client, seriesTTL time.Duration) *RedisStore {
	return &RedisStore{client: client, seriesTTL: seriesTTL}
}

func (rs *RedisStore) PutSeries(ctx context.Context, key string, series weather.Series) error {
	data, err := json.Marshal(series)
	if err != nil {
		return fmt.Errorf("failed to marshal series %s: %w", key, err)
	}
	if err := rs.client.Set(ctx, seriesKeyPrefix+key, data, rs.seriesTTL).Err(); err != nil {
		return fmt.Errorf("failed to store series %s: %w", key, err)
	}
	return nil
}

func (rs *RedisStore) GetSeries(ctx context.Context, key string) (weather.Series, error) {
	data, err := rs.client.Get(ctx, seriesKeyPrefix+key).Bytes()
	if errors.Is(err, redis.Nil) {
		return weather.Series{}, ErrNotFound
	}
	if err != nil {
		return weather.Series{}, fmt.Errorf("failed to get series %s: %w", key, err)
	}

	var series weather.Series
	if err := json.Unmarshal(data, &series); err != nil {
		return weather.Series{}, fmt.Errorf("failed to unmarshal series %s: %w", key, err)
	}
	return series, nil
}

// PutUser creates or replaces a user record.
func (rs *RedisStore) PutUser(ctx context.Context, userID string, rec energy.Record) error {
	key := userKeyPrefix + userID
	_, err := rs.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Del(ctx, key)
		if len(rec) > 0 {
			pipe.HSet(ctx, key, recordValues(rec)...)
		}
		pipe.SAdd(ctx, usersSetKey, userID)
		return nil
	})
	if err != nil {
		return fmt.Errorf("failed to store user %s: %w", userID, err)
	}
	return nil
}

func (rs *RedisStore) GetUser(ctx context.Context, userID string) (energy.Record, error) {
	exists, err := rs.client.SIsMember(ctx, usersSetKey, userID).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to get user %s: %w", userID, err)
	}
	if !exists {
		return nil, ErrNotFound
	}

	fields, err := rs.client.HGetAll(ctx, userKeyPrefix+userID).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to get user %s: %w", userID, err)
	}
	return energy.Record(fields), nil
}

// UpdateUser sets fields on an existing user. Unknown users are not created.
func (rs *RedisStore) UpdateUser(ctx context.Context, userID string, fields energy.Record) error {
	exists, err := rs.client.SIsMember(ctx, usersSetKey, userID).Result()
	if err != nil {
		return fmt.Errorf("failed to update user %s: %w", userID, err)
	}
	if !exists {
		return ErrNotFound
	}
	if len(fields) == 0 {
		return nil
	}
	if err := rs.client.HSet(ctx, userKeyPrefix+userID, recordValues(fields)...).Err(); err != nil {
		return fmt.Errorf("failed to update user %s: %w", userID, err)
	}
	return nil
}

func (rs *RedisStore) ListUsers(ctx context.Context) ([]string, error) {
	ids, err := rs.client.SMembers(ctx, usersSetKey).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to list users: %w", err)
	}
	sort.Strings(ids)
	return ids, nil
}

// HealthCheck checks Redis connectivity.
func (rs *RedisStore) HealthCheck(ctx context.Context) error {
	return rs.client.Ping(ctx).Err()
}

func (rs *RedisStore) Close() error {
	return rs.client.Close()
}

func recordValues(rec energy.Record) []interface{} {
	values := make([]interface{}, 0, len(rec)*2)
	for k, v := range rec {
		values = append(values, k, v)
	}
	return values
}
