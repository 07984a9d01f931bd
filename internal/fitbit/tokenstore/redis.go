package tokenstore

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/go-redis/redis/v8"
)

const redisKeyPrefix = "fitbit-tokens::"

// RedisStore keeps token records as redis hashes, one key per user id.
// Redis is the durable copy itself, so Load and Save are no-ops.
type RedisStore struct {
	redisClient *redis.Client
}

func NewRedisStore(redisClient *redis.Client) *RedisStore {
	return &RedisStore{
		redisClient: redisClient,
	}
}

func (s *RedisStore) Load(_ context.Context) error {
	return nil
}

func (s *RedisStore) Save(_ context.Context) error {
	return nil
}

func (s *RedisStore) Get(ctx context.Context, userID string) (TokenRecord, error) {
	fields, err := s.redisClient.HGetAll(ctx, redisKeyPrefix+userID).Result()
	if err != nil {
		return TokenRecord{}, fmt.Errorf("get token record: %w", err)
	}
	if len(fields) == 0 {
		return TokenRecord{}, ErrUnknownUser
	}
	return TokenRecord{
		UserID:       userID,
		AccessToken:  fields["access_token"],
		RefreshToken: fields["refresh_token"],
	}, nil
}

func (s *RedisStore) Put(ctx context.Context, record TokenRecord) error {
	cmd := s.redisClient.HSet(ctx, redisKeyPrefix+record.UserID,
		"access_token", record.AccessToken,
		"refresh_token", record.RefreshToken,
	)
	if err := cmd.Err(); err != nil {
		return fmt.Errorf("put token record: %w", err)
	}
	return nil
}

func (s *RedisStore) All(ctx context.Context) ([]string, error) {
	var userIDs []string
	iter := s.redisClient.Scan(ctx, 0, redisKeyPrefix+"*", 0).Iterator()
	for iter.Next(ctx) {
		userIDs = append(userIDs, strings.TrimPrefix(iter.Val(), redisKeyPrefix))
	}
	if err := iter.Err(); err != nil {
		return nil, fmt.Errorf("scan token records: %w", err)
	}
	sort.Strings(userIDs)
	return userIDs, nil
}
