// Package snapshot persists the state of observable values.
//
// A snapshot is the canonical CBOR encoding of reactive.Unwrap(v), so two
// snapshots of equal state are byte-identical regardless of the order in
// which properties were defined. Stores keep snapshots under string keys:
// BoltStore in a local bbolt file, S3Store in an S3 bucket.
//
//	st, err := snapshot.OpenBolt("ripple.db")
//	...
//	err = snapshot.SaveState(ctx, st, "state", comp.Data())
//	state, err := snapshot.LoadState(ctx, st, "state")
package snapshot
