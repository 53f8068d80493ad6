package storage

import (
	"context"
	"fmt"

	"github.com/tortaapp/tradewatch/tradewatch/services"
)

const (
	BackendFile   = "file"
	BackendSpaces = "spaces"
	BackendMongo  = "mongo"
)

// Config selects and configures one profile store backend.
type Config struct {
	Backend string       `toml:"backend" validate:"omitempty,oneof=file spaces mongo"`
	Path    string       `toml:"path"`
	Spaces  SpacesConfig `toml:"spaces"`
	Mongo   MongoConfig  `toml:"mongo"`
}

// Open builds the configured store. The returned close function releases
// any connection the store holds and is never nil.
func Open(ctx context.Context, cfg Config) (services.ProfileStore, func(context.Context) error, error) {
	noop := func(context.Context) error { return nil }

	switch cfg.Backend {
	case "", BackendFile:
		path := cfg.Path
		if path == "" {
			path = "data/service_profiles.json"
		}
		return NewFileStore(path), noop, nil
	case BackendSpaces:
		store, err := NewSpacesStore(ctx, cfg.Spaces)
		if err != nil {
			return nil, noop, err
		}
		return store, noop, nil
	case BackendMongo:
		store, err := NewMongoStore(ctx, cfg.Mongo)
		if err != nil {
			return nil, noop, err
		}
		return store, store.Close, nil
	default:
		return nil, noop, fmt.Errorf("unknown storage backend %q", cfg.Backend)
	}
}
