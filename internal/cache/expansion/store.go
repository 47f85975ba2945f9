package expansion

import (
	"context"

	"kgbuilder/internal/types/kg"
)

// Store is the durable backing of a Cache. Load is called once at startup;
// Save is called after every new entry so that an interrupted run keeps
// everything it paid for.
type Store interface {
	Load(ctx context.Context) (map[string]kg.Expansion, error)
	Save(ctx context.Context, key string, exp kg.Expansion) error
}
