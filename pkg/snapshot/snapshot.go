package snapshot

import (
	"fmt"
	"math"
	"reflect"

	"github.com/fxamacker/cbor/v2"

	"github.com/vango-dev/ripple/internal/errors"
	"github.com/vango-dev/ripple/pkg/reactive"
)

// Version is the envelope version written by Encode.
const Version = 1

type envelope struct {
	Version int            `cbor:"v"`
	State   map[string]any `cbor:"state"`
}

var (
	encMode cbor.EncMode
	decMode cbor.DecMode
)

func init() {
	em, err := cbor.CanonicalEncOptions().EncMode()
	if err != nil {
		panic(fmt.Sprintf("snapshot: failed to create CBOR enc mode: %v", err))
	}
	encMode = em

	dm, err := cbor.DecOptions{
		DefaultMapType: reflect.TypeOf(map[string]any(nil)),
	}.DecMode()
	if err != nil {
		panic(fmt.Sprintf("snapshot: failed to create CBOR dec mode: %v", err))
	}
	decMode = dm
}

// Encode returns the snapshot of v. v must unwrap to a map: an *Object, a
// map with string keys, or a struct.
func Encode(v any) ([]byte, error) {
	state, err := toState(v)
	if err != nil {
		return nil, err
	}
	data, err := encMode.Marshal(envelope{Version: Version, State: state})
	if err != nil {
		return nil, errors.New("S001").WithDetail("encode snapshot").Wrap(err)
	}
	return data, nil
}

// Decode parses a snapshot. Integers come back as int when they fit, so a
// restored value compares equal to the one that was saved.
func Decode(data []byte) (map[string]any, error) {
	var env envelope
	if err := decMode.Unmarshal(data, &env); err != nil {
		return nil, errors.New("S001").WithDetail("decode snapshot").Wrap(err)
	}
	if env.Version != Version {
		return nil, errors.New("S001").WithDetailf("unsupported snapshot version %d", env.Version)
	}
	if env.State == nil {
		return map[string]any{}, nil
	}
	return normalize(env.State).(map[string]any), nil
}

func toState(v any) (map[string]any, error) {
	switch x := reactive.Unwrap(v).(type) {
	case nil:
		return map[string]any{}, nil
	case map[string]any:
		return x, nil
	}
	// Plain Go values go through a CBOR round trip so structs and typed maps
	// end up in the same shape as observable ones.
	data, err := encMode.Marshal(v)
	if err != nil {
		return nil, errors.New("S001").WithDetail("encode snapshot").Wrap(err)
	}
	var state map[string]any
	if err := decMode.Unmarshal(data, &state); err != nil {
		return nil, errors.New("S001").WithDetailf("%T is not a record", v).Wrap(err)
	}
	return state, nil
}

func normalize(v any) any {
	switch x := v.(type) {
	case map[string]any:
		for k, item := range x {
			x[k] = normalize(item)
		}
		return x
	case map[any]any:
		out := make(map[string]any, len(x))
		for k, item := range x {
			out[fmt.Sprint(k)] = normalize(item)
		}
		return out
	case []any:
		for i, item := range x {
			x[i] = normalize(item)
		}
		return x
	case uint64:
		if x <= math.MaxInt {
			return int(x)
		}
		return x
	case int64:
		if x >= math.MinInt && x <= math.MaxInt {
			return int(x)
		}
		return x
	}
	return v
}
