package models

import (
	"testing"

	"github.com/DATA-DOG/go-sqlmock"

	"github.com/fipehub/billing-processor/tests"
)

func setupSubscriptionStore(t *testing.T) (*SubscriptionStore, sqlmock.Sqlmock, func()) {
	db, mock, cleanup := tests.SetupMockStore(t)

	store := &SubscriptionStore{
		db: db,
	}

	return store, mock, cleanup
}
