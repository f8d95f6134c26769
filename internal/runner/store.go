package runner

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/forgo/admin-e2e/internal/config"
	"github.com/forgo/admin-e2e/internal/database"
	"github.com/forgo/admin-e2e/internal/model"
	"github.com/forgo/admin-e2e/internal/repository"
	"github.com/forgo/admin-e2e/internal/store"
	"github.com/forgo/admin-e2e/internal/store/postgres"
	"github.com/forgo/admin-e2e/internal/store/rest"
)

// Store is an opened fixture backend
type Store struct {
	store.Client
	Kind  string
	close func() error
}

// Close releases the backend connection
func (s *Store) Close() error {
	if s.close == nil {
		return nil
	}
	return s.close()
}

// OpenStore connects to the backend named by cfg.Store.Kind
func OpenStore(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*Store, error) {
	switch cfg.Store.Kind {
	case config.StoreREST:
		client, err := rest.New(cfg.StoreURL(), rest.WithLogger(logger), rest.WithToken(cfg.Store.Token))
		if err != nil {
			return nil, err
		}
		if cfg.Store.Token == "" && cfg.Admin.Email != "" {
			if err := client.Login(ctx, cfg.Admin.AuthCollection, cfg.Admin.Email, cfg.Admin.Password); err != nil {
				return nil, err
			}
		}
		logger.Info("using rest store", slog.String("url", cfg.StoreURL()))
		return &Store{Client: client, Kind: cfg.Store.Kind}, nil

	case config.StoreSurreal:
		db := database.NewSurrealDB(database.Config{
			URL:       cfg.Database.URL,
			Host:      cfg.Database.Host,
			Port:      cfg.Database.Port,
			User:      cfg.Database.User,
			Password:  cfg.Database.Password,
			Namespace: cfg.Database.Namespace,
			Database:  cfg.Database.Database,
		})
		if err := db.Connect(ctx); err != nil {
			return nil, fmt.Errorf("connect to surrealdb: %w", err)
		}
		logger.Info("connected to database",
			slog.String("namespace", cfg.Database.Namespace),
			slog.String("database", cfg.Database.Database),
		)
		return &Store{Client: repository.NewDocumentRepository(db), Kind: cfg.Store.Kind, close: db.Close}, nil

	case config.StorePostgres:
		pg, err := postgres.Open(ctx, cfg.Store.PostgresURL)
		if err != nil {
			return nil, err
		}
		if err := pg.EnsureSchema(ctx); err != nil {
			_ = pg.Close()
			return nil, err
		}
		logger.Info("connected to postgres")
		return &Store{Client: pg, Kind: cfg.Store.Kind, close: pg.Close}, nil

	case config.StoreMemory:
		mem := store.NewMemory(store.WithRequiredFields(cfg.Admin.Collection, model.FieldTitle))
		return &Store{Client: mem, Kind: cfg.Store.Kind}, nil
	}
	return nil, fmt.Errorf("unknown store %q", cfg.Store.Kind)
}
