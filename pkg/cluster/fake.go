package cluster

import "context"

// FakeReader is a scripted, deterministic Reader for tests: it returns the
// same Snapshot on every call regardless of context, matching the design
// note that all fakes in this codebase must be deterministic given a
// scripted response set.
type FakeReader struct {
	Snapshot Snapshot
	Err      error
}

func (f *FakeReader) Read(ctx context.Context) (Snapshot, error) {
	if f.Err != nil {
		return Snapshot{}, f.Err
	}
	return f.Snapshot, nil
}
