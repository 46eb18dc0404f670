package snapshot

import (
	"context"
	stderrors "errors"

	"github.com/vango-dev/ripple/internal/errors"
)

// ErrNotFound is returned, wrapped in an S002 error, when a key has no
// snapshot.
var ErrNotFound = stderrors.New("snapshot not found")

// Store keeps snapshots under string keys.
type Store interface {
	Save(ctx context.Context, key string, data []byte) error
	Load(ctx context.Context, key string) ([]byte, error)
	Close() error
}

func notFound(key string) error {
	return errors.New("S002").WithDetail(key).Wrap(ErrNotFound)
}

func backendError(op, key string, err error) error {
	return errors.New("S001").WithDetailf("%s %s", op, key).Wrap(err)
}

// SaveState encodes v and saves it under key.
func SaveState(ctx context.Context, st Store, key string, v any) error {
	data, err := Encode(v)
	if err != nil {
		return err
	}
	return st.Save(ctx, key, data)
}

// LoadState loads and decodes the snapshot under key.
func LoadState(ctx context.Context, st Store, key string) (map[string]any, error) {
	data, err := st.Load(ctx, key)
	if err != nil {
		return nil, err
	}
	return Decode(data)
}
