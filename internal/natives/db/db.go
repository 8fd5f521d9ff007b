// Package db wires a small SQL persistence surface into the VM's
// native function table, backed by modernc.org/sqlite through the
// standard database/sql interface. Handles are opaque NativeHandle
// values: scripts pass them around but never reach into the driver.
package db

import (
	"database/sql"
	"fmt"

	_ "modernc.org/sqlite"

	"github.com/chazu/loxvm/internal/alloc"
	"github.com/chazu/loxvm/internal/bytecode"
	"github.com/chazu/loxvm/internal/vm"
)

const handleKind = "sql.DB"

// Register installs dbOpen, dbExec, dbQuery, and dbClose as globals on
// v, allocating their NativeHandle results through a.
func Register(v *vm.VM, a *alloc.Allocator) {
	v.RegisterNative("dbOpen", func(args []bytecode.Value) (bytecode.Value, error) {
		path, err := stringArg(args, 0, "dbOpen")
		if err != nil {
			return bytecode.Nil, err
		}
		handle, err := open(a, path)
		if err != nil {
			return bytecode.Nil, err
		}
		return bytecode.FromObject(handle), nil
	})

	v.RegisterNative("dbExec", func(args []bytecode.Value) (bytecode.Value, error) {
		handle, err := handleArg(args, 0, "dbExec")
		if err != nil {
			return bytecode.Nil, err
		}
		stmt, err := stringArg(args, 1, "dbExec")
		if err != nil {
			return bytecode.Nil, err
		}
		db := handle.Value.(*sql.DB)
		result, err := db.Exec(stmt)
		if err != nil {
			return bytecode.Nil, fmt.Errorf("dbExec: %w", err)
		}
		affected, err := result.RowsAffected()
		if err != nil {
			return bytecode.Nil, fmt.Errorf("dbExec: %w", err)
		}
		return bytecode.Number(float64(affected)), nil
	})

	v.RegisterNative("dbQuery", func(args []bytecode.Value) (bytecode.Value, error) {
		handle, err := handleArg(args, 0, "dbQuery")
		if err != nil {
			return bytecode.Nil, err
		}
		query, err := stringArg(args, 1, "dbQuery")
		if err != nil {
			return bytecode.Nil, err
		}
		db := handle.Value.(*sql.DB)

		var cell any
		row := db.QueryRow(query)
		if err := row.Scan(&cell); err != nil {
			if err == sql.ErrNoRows {
				return bytecode.Nil, nil
			}
			return bytecode.Nil, fmt.Errorf("dbQuery: %w", err)
		}
		return scalarToValue(a, cell), nil
	})

	v.RegisterNative("dbClose", func(args []bytecode.Value) (bytecode.Value, error) {
		handle, err := handleArg(args, 0, "dbClose")
		if err != nil {
			return bytecode.Nil, err
		}
		if handle.Close != nil {
			if err := handle.Close(); err != nil {
				return bytecode.Nil, fmt.Errorf("dbClose: %w", err)
			}
			handle.Close = nil
		}
		return bytecode.Nil, nil
	})
}

func open(a *alloc.Allocator, path string) (*bytecode.NativeHandleObj, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("dbOpen: %w", err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("dbOpen: %w", err)
	}
	return a.NewNativeHandle(handleKind, db, db.Close), nil
}

func scalarToValue(a *alloc.Allocator, cell any) bytecode.Value {
	switch v := cell.(type) {
	case nil:
		return bytecode.Nil
	case int64:
		return bytecode.Number(float64(v))
	case float64:
		return bytecode.Number(v)
	case string:
		return bytecode.FromObject(a.InternString(v))
	case []byte:
		return bytecode.FromObject(a.InternString(string(v)))
	case bool:
		return bytecode.Bool(v)
	default:
		return bytecode.FromObject(a.InternString(fmt.Sprintf("%v", v)))
	}
}

func stringArg(args []bytecode.Value, i int, fn string) (string, error) {
	if i >= len(args) {
		return "", fmt.Errorf("%s: expected a string argument at position %d", fn, i)
	}
	s, ok := args[i].AsObject().(*bytecode.StringObj)
	if !args[i].IsObject() || !ok {
		return "", fmt.Errorf("%s: argument %d must be a string", fn, i)
	}
	return s.Chars, nil
}

func handleArg(args []bytecode.Value, i int, fn string) (*bytecode.NativeHandleObj, error) {
	if i >= len(args) {
		return nil, fmt.Errorf("%s: expected a handle argument at position %d", fn, i)
	}
	h, ok := args[i].AsObject().(*bytecode.NativeHandleObj)
	if !args[i].IsObject() || !ok || h.Kind != handleKind {
		return nil, fmt.Errorf("%s: argument %d must be a database handle", fn, i)
	}
	return h, nil
}
