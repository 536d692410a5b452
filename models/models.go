package models

import (
	"context"
	"fmt"

	"github.com/fipehub/billing-processor/config/database"
	"github.com/fipehub/billing-processor/config/redis"
)

const ERROR_NOT_FOUND string = "record not found"

// SubscriptionStore wraps the relational backend holding subscription
// records. All queries go through it.
type SubscriptionStore struct {
	db *database.DB
}

func NewSubscriptionStore(db *database.DB) *SubscriptionStore {
	return &SubscriptionStore{
		db: db,
	}
}

// FlagStore pushes identifiers into a redis set consumed by the dashboard
// layer, so it can re-evaluate access after a status transition.
type FlagStore struct {
	name    string
	context context.Context
	db      *redis.RedisDB
}

type Flagger interface {
	Flag(value string) error
}

func NewFlagStore(ctx context.Context, redis *redis.RedisDB, name string) *FlagStore {
	return &FlagStore{
		name:    name,
		context: ctx,
		db:      redis,
	}
}

func (store *FlagStore) Flag(value string) error {
	result := store.db.Client.SAdd(store.context, store.name, fmt.Sprintf("%s", value))
	if err := result.Err(); err != nil {
		return err
	}

	return nil
}

func (store *FlagStore) Close() error {
	return store.db.Client.Close()
}
