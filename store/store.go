// Package store provides the backends that keep best times across games.
//
// Every backend implements game.BestTimeStore. Failures of the underlying
// storage are logged and otherwise swallowed: a record that cannot be read
// is reported as absent and a write that fails is dropped, so a broken store
// never interrupts a game.
package store

import (
	"context"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/they4kman/gosweep/game"
)

type Store interface {
	game.BestTimeStore
	Close() error
}

type Kind string

const (
	KindMemory   Kind = "memory"
	KindFile     Kind = "file"
	KindRedis    Kind = "redis"
	KindPostgres Kind = "postgres"
)

// Bound on every round trip made by the network backends
const requestTimeout = 2 * time.Second

// Open connects to the backend of the given kind. dsn is a file path for
// KindFile and a connection URL for KindRedis and KindPostgres.
func Open(ctx context.Context, kind Kind, dsn string, log logrus.FieldLogger) (Store, error) {
	if log == nil {
		log = logrus.StandardLogger()
	}
	log = log.WithField("store", kind)

	var (
		store Store
		err   error
	)
	switch kind {
	case KindMemory, "":
		store = NewMemory()
	case KindFile:
		store, err = OpenFile(dsn, log)
	case KindRedis:
		store, err = OpenRedis(ctx, dsn, log)
	case KindPostgres:
		store, err = OpenPostgres(ctx, dsn, log)
	default:
		err = fmt.Errorf("unknown best time store %q", kind)
	}
	if err != nil {
		return nil, err
	}
	return store, nil
}
