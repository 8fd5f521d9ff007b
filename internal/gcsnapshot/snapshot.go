// Package gcsnapshot encodes garbage-collector diagnostic snapshots as
// canonical CBOR, for tooling that inspects collector behavior across a
// run without parsing log text.
package gcsnapshot

import (
	"fmt"
	"os"

	"github.com/fxamacker/cbor/v2"

	"github.com/chazu/loxvm/internal/alloc"
)

// cborEncMode is canonical so two snapshots of identical collector
// state always serialize to identical bytes, the way vm/dist encodes
// its wire types.
var cborEncMode cbor.EncMode

func init() {
	em, err := cbor.CanonicalEncOptions().EncMode()
	if err != nil {
		panic(fmt.Sprintf("gcsnapshot: failed to create CBOR enc mode: %v", err))
	}
	cborEncMode = em
}

// Entry is one collection's recorded stats, timestamped by sequence
// number rather than wall-clock time so snapshots stay reproducible.
type Entry struct {
	Sequence       int `cbor:"sequence"`
	BytesBefore    int `cbor:"bytes_before"`
	BytesAfter     int `cbor:"bytes_after"`
	ObjectsFreed   int `cbor:"objects_freed"`
	NextCollection int `cbor:"next_collection"`
}

// Recorder accumulates Entries by hooking alloc.Allocator.StatsHook.
type Recorder struct {
	Entries []Entry
}

// Attach installs the recorder as a's StatsHook, appending one Entry
// per collection.
func (r *Recorder) Attach(a *alloc.Allocator) {
	a.StatsHook = func(s alloc.Stats) {
		r.Entries = append(r.Entries, Entry{
			Sequence:       len(r.Entries),
			BytesBefore:    s.BytesBefore,
			BytesAfter:     s.BytesAfter,
			ObjectsFreed:   s.ObjectsFreed,
			NextCollection: s.NextCollection,
		})
	}
}

// Marshal encodes the recorded entries as canonical CBOR.
func (r *Recorder) Marshal() ([]byte, error) {
	return cborEncMode.Marshal(r.Entries)
}

// WriteFile encodes the recorded entries and writes them to path.
func (r *Recorder) WriteFile(path string) error {
	data, err := r.Marshal()
	if err != nil {
		return fmt.Errorf("gcsnapshot: marshal: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("gcsnapshot: write %s: %w", path, err)
	}
	return nil
}

// Unmarshal decodes a snapshot previously produced by Marshal.
func Unmarshal(data []byte) ([]Entry, error) {
	var entries []Entry
	if err := cbor.Unmarshal(data, &entries); err != nil {
		return nil, fmt.Errorf("gcsnapshot: unmarshal: %w", err)
	}
	return entries, nil
}
