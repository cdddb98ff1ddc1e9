// Package bootstrap opens the external clients both binaries share: the
// Firebase app and the document store selected by configuration.
package bootstrap

import (
	"context"
	"fmt"
	"time"

	firebase "firebase.google.com/go/v4"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"google.golang.org/api/option"

	"github.com/pkordes/community-admin/backend/internal/config"
	"github.com/pkordes/community-admin/backend/internal/repo"
)

// OpenFirebase initializes the Firebase app. Without a credentials file it
// falls back to application default credentials.
func OpenFirebase(ctx context.Context, s config.Store) (*firebase.App, error) {
	var opts []option.ClientOption
	if s.FirebaseCredentialsFile != "" {
		opts = append(opts, option.WithCredentialsFile(s.FirebaseCredentialsFile))
	}
	var fbCfg *firebase.Config
	if s.FirebaseProjectID != "" {
		fbCfg = &firebase.Config{ProjectID: s.FirebaseProjectID}
	}
	app, err := firebase.NewApp(ctx, fbCfg, opts...)
	if err != nil {
		return nil, fmt.Errorf("bootstrap.OpenFirebase: %w", err)
	}
	return app, nil
}

// OpenStore returns the configured DocumentStore and a func that releases
// its connection. app is only used by the firestore backend; pass nil to
// have OpenStore initialize Firebase itself.
func OpenStore(ctx context.Context, s config.Store, app *firebase.App) (repo.DocumentStore, func() error, error) {
	switch s.Backend {
	case config.BackendFirestore:
		if app == nil {
			var err error
			if app, err = OpenFirebase(ctx, s); err != nil {
				return nil, nil, err
			}
		}
		client, err := app.Firestore(ctx)
		if err != nil {
			return nil, nil, fmt.Errorf("bootstrap.OpenStore: firestore: %w", err)
		}
		return repo.NewFirestoreStore(client), client.Close, nil

	case config.BackendMongo:
		client, err := mongo.Connect(ctx, options.Client().ApplyURI(s.MongoURI))
		if err != nil {
			return nil, nil, fmt.Errorf("bootstrap.OpenStore: mongo connect: %w", err)
		}
		pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
		defer cancel()
		if err := client.Ping(pingCtx, nil); err != nil {
			_ = client.Disconnect(context.Background())
			return nil, nil, fmt.Errorf("bootstrap.OpenStore: mongo ping: %w", err)
		}
		closeFn := func() error { return client.Disconnect(context.Background()) }
		return repo.NewMongoStore(client.Database(s.MongoDatabase)), closeFn, nil

	case config.BackendMemory:
		noop := func() error { return nil }
		if s.SeedFile == "" {
			return repo.NewMemoryStore(), noop, nil
		}
		store, err := repo.LoadMemoryStore(s.SeedFile)
		if err != nil {
			return nil, nil, fmt.Errorf("bootstrap.OpenStore: %w", err)
		}
		return store, noop, nil

	default:
		return nil, nil, fmt.Errorf("bootstrap.OpenStore: unsupported backend %q", s.Backend)
	}
}
