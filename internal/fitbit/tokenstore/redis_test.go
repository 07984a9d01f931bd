package tokenstore

import (
	"context"
	"testing"

	"github.com/go-redis/redismock/v8"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRedisStore_Get(t *testing.T) {
	rdb, mock := redismock.NewClientMock()
	store := NewRedisStore(rdb)

	mock.ExpectHGetAll("fitbit-tokens::ABC123").SetVal(map[string]string{
		"access_token":  "at-1",
		"refresh_token": "rt-1",
	})

	got, err := store.Get(context.Background(), "ABC123")
	require.NoError(t, err)
	assert.Equal(t, TokenRecord{
		UserID:       "ABC123",
		AccessToken:  "at-1",
		RefreshToken: "rt-1",
	}, got)

	require.NoError(t, mock.ExpectationsWereMet())
}

func TestRedisStore_GetUnknownUser(t *testing.T) {
	rdb, mock := redismock.NewClientMock()
	store := NewRedisStore(rdb)

	mock.ExpectHGetAll("fitbit-tokens::nobody").SetVal(map[string]string{})

	_, err := store.Get(context.Background(), "nobody")
	assert.ErrorIs(t, err, ErrUnknownUser)

	require.NoError(t, mock.ExpectationsWereMet())
}

func TestRedisStore_Put(t *testing.T) {
	rdb, mock := redismock.NewClientMock()
	store := NewRedisStore(rdb)

	mock.ExpectHSet("fitbit-tokens::ABC123",
		"access_token", "at-1",
		"refresh_token", "rt-1",
	).SetVal(2)

	err := store.Put(context.Background(), TokenRecord{
		UserID:       "ABC123",
		AccessToken:  "at-1",
		RefreshToken: "rt-1",
	})
	require.NoError(t, err)

	require.NoError(t, mock.ExpectationsWereMet())
}

func TestRedisStore_LoadSaveNoOps(t *testing.T) {
	rdb, mock := redismock.NewClientMock()
	store := NewRedisStore(rdb)

	require.NoError(t, store.Load(context.Background()))
	require.NoError(t, store.Save(context.Background()))
	require.NoError(t, mock.ExpectationsWereMet())
}
