// Package firestore is the remote document store adapter, backed by Google
// Cloud Firestore. Each logical database lives under databases/<name> with
// items and devices subcollections.
package firestore

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"cloud.google.com/go/firestore"
	"google.golang.org/api/option"
)

const (
	databasesCollection = "databases"
	itemsCollection     = "items"
	devicesCollection   = "devices"
)

// Store owns the Firestore client for one invocation.
type Store struct {
	client *firestore.Client
	db     *firestore.DocumentRef
	log    *slog.Logger
}

// Open connects to projectID and verifies the connection with a read bounded
// by pingTimeout, so an unreachable project fails here rather than on first use.
// credentialsFile may be empty to use application default credentials.
func Open(
	ctx context.Context,
	projectID, credentialsFile, dbName string,
	pingTimeout time.Duration,
	log *slog.Logger,
) (*Store, error) {
	var opts []option.ClientOption
	if credentialsFile != "" {
		opts = append(opts, option.WithCredentialsFile(credentialsFile))
	}

	client, err := firestore.NewClient(ctx, projectID, opts...)
	if err != nil {
		return nil, fmt.Errorf("create firestore client: %w", err)
	}

	s := &Store{
		client: client,
		db:     client.Collection(databasesCollection).Doc(dbName),
		log:    log,
	}

	pingCtx, cancel := context.WithTimeout(ctx, pingTimeout)
	defer cancel()
	if _, err := s.items().Limit(1).Documents(pingCtx).GetAll(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("ping firestore project %q: %w", projectID, err)
	}

	return s, nil
}

// EnsureIndexes reports whether the store runs degraded. Firestore indexes
// every single field automatically and credential uniqueness is carried by the
// document id, so there is nothing to create and the store is never degraded.
func (s *Store) EnsureIndexes(_ context.Context) bool {
	s.log.Debug("firestore uses automatic single-field indexes; nothing to create")
	return false
}

// Close releases the client.
func (s *Store) Close() error {
	return s.client.Close()
}

func (s *Store) items() *firestore.CollectionRef {
	return s.db.Collection(itemsCollection)
}

func (s *Store) devices() *firestore.CollectionRef {
	return s.db.Collection(devicesCollection)
}
