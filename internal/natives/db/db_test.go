package db

import (
	"bytes"
	"testing"

	"github.com/chazu/loxvm/internal/alloc"
	"github.com/chazu/loxvm/internal/vm"
)

func newTestVM(t *testing.T) (*vm.VM, *alloc.Allocator, *bytes.Buffer) {
	t.Helper()
	var out bytes.Buffer
	a := alloc.New()
	v := vm.New(a, vm.Config{Stdout: &out, Stderr: &out})
	Register(v, a)
	return v, a, &out
}

func TestOpenExecQueryClose(t *testing.T) {
	v, _, out := newTestVM(t)

	err := v.Interpret(`
		var db = dbOpen(":memory:");
		dbExec(db, "create table counters (name text, value integer)");
		dbExec(db, "insert into counters (name, value) values ('hits', 1)");
		print(dbQuery(db, "select value from counters where name = 'hits'"));
		dbClose(db);
	`)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got := out.String(); got != "1\n" {
		t.Fatalf("got %q, want \"1\\n\"", got)
	}
}

func TestQueryWithNoRowsReturnsNil(t *testing.T) {
	v, _, out := newTestVM(t)

	err := v.Interpret(`
		var db = dbOpen(":memory:");
		dbExec(db, "create table t (v integer)");
		print(dbQuery(db, "select v from t"));
	`)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got := out.String(); got != "nil\n" {
		t.Fatalf("got %q, want \"nil\\n\"", got)
	}
}

func TestBadHandleArgumentIsARuntimeError(t *testing.T) {
	v, _, _ := newTestVM(t)
	err := v.Interpret(`dbExec("not a handle", "select 1");`)
	if err == nil {
		t.Fatal("expected a runtime error for a non-handle argument")
	}
}
