package pipeline

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/theirongolddev/aboradar/internal/model"
	"github.com/theirongolddev/aboradar/internal/store"
)

// LoadResult holds a subscription snapshot read from the store.
type LoadResult struct {
	Subscriptions []model.Subscription
	Dropped       int // structurally invalid rows skipped on load
	LoadTime      time.Duration
}

// Load opens the database at dbPath, reads every subscription and closes it.
func Load(dbPath string) (*LoadResult, error) {
	start := time.Now()

	st, err := store.Open(dbPath)
	if err != nil {
		return nil, fmt.Errorf("opening store: %w", err)
	}
	defer func() { _ = st.Close() }()

	lr, err := st.List()
	if err != nil {
		return nil, fmt.Errorf("listing subscriptions: %w", err)
	}

	return &LoadResult{
		Subscriptions: lr.Subscriptions,
		Dropped:       lr.Dropped,
		LoadTime:      time.Since(start),
	}, nil
}

// DataDir returns the platform-appropriate data directory.
func DataDir() string {
	if xdg := os.Getenv("XDG_DATA_HOME"); xdg != "" {
		return filepath.Join(xdg, "aboradar")
	}
	home, _ := os.UserHomeDir()
	return filepath.Join(home, ".local", "share", "aboradar")
}

// DBPath returns the default path of the subscription database.
func DBPath() string {
	return filepath.Join(DataDir(), "aboradar.db")
}
