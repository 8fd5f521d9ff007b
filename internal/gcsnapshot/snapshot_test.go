package gcsnapshot

import (
	"testing"

	"github.com/chazu/loxvm/internal/alloc"
)

func TestRecorderCapturesCollectionsInOrder(t *testing.T) {
	a := alloc.New()
	rec := &Recorder{}
	rec.Attach(a)

	a.Collect()
	a.Collect()

	if len(rec.Entries) != 2 {
		t.Fatalf("expected 2 recorded collections, got %d", len(rec.Entries))
	}
	if rec.Entries[0].Sequence != 0 || rec.Entries[1].Sequence != 1 {
		t.Errorf("expected sequence numbers 0,1; got %d,%d", rec.Entries[0].Sequence, rec.Entries[1].Sequence)
	}
}

func TestMarshalUnmarshalRoundTrip(t *testing.T) {
	a := alloc.New()
	rec := &Recorder{}
	rec.Attach(a)
	a.Collect()

	data, err := rec.Marshal()
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}

	entries, err := Unmarshal(data)
	if err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if len(entries) != len(rec.Entries) {
		t.Fatalf("got %d entries, want %d", len(entries), len(rec.Entries))
	}
	if entries[0].NextCollection != rec.Entries[0].NextCollection {
		t.Errorf("round-trip mismatch: %+v vs %+v", entries[0], rec.Entries[0])
	}
}

func TestCanonicalEncodingIsDeterministic(t *testing.T) {
	a := alloc.New()
	rec := &Recorder{}
	rec.Attach(a)
	a.Collect()

	b1, err := rec.Marshal()
	if err != nil {
		t.Fatal(err)
	}
	b2, err := rec.Marshal()
	if err != nil {
		t.Fatal(err)
	}
	if string(b1) != string(b2) {
		t.Error("canonical CBOR encoding of identical data should be byte-identical")
	}
}
