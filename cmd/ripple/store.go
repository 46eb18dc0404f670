package main

import (
	"github.com/vango-dev/ripple/internal/config"
	"github.com/vango-dev/ripple/pkg/snapshot"
)

// openStore opens the configured snapshot store, or returns nil when
// snapshots are disabled.
func openStore(cfg config.SnapshotConfig) (snapshot.Store, error) {
	switch cfg.Backend {
	case config.BackendBolt:
		store, err := snapshot.OpenBolt(cfg.Path)
		if err != nil {
			return nil, err
		}
		return store, nil
	case config.BackendS3:
		client := snapshot.NewS3Client(cfg.Region, cfg.Endpoint)
		return snapshot.NewS3Store(client, cfg.Bucket, cfg.Prefix), nil
	}
	return nil, nil
}
