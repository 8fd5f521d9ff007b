package bytecode

import "testing"

func TestValuePredicatesAreMutuallyExclusive(t *testing.T) {
	values := []Value{Nil, Bool(true), Bool(false), Number(1), Number(-1.5)}
	for _, v := range values {
		count := 0
		for _, ok := range []bool{v.IsNil(), v.IsBool(), v.IsNumber(), v.IsObject()} {
			if ok {
				count++
			}
		}
		if count != 1 {
			t.Errorf("value %v: expected exactly one tag, got %d", v, count)
		}
	}
}

func TestIsFalsey(t *testing.T) {
	cases := []struct {
		v    Value
		want bool
	}{
		{Nil, true},
		{Bool(false), true},
		{Bool(true), false},
		{Number(0), false},
		{Number(1), false},
	}
	for _, c := range cases {
		if got := c.v.IsFalsey(); got != c.want {
			t.Errorf("IsFalsey(%v) = %v, want %v", c.v, got, c.want)
		}
	}
}

func TestEqualRequiresMatchingTag(t *testing.T) {
	if Number(0).Equal(Bool(false)) {
		t.Error("Number(0) should not equal Bool(false)")
	}
	if !Nil.Equal(Nil) {
		t.Error("Nil should equal Nil")
	}
	if !Number(3).Equal(Number(3)) {
		t.Error("Number(3) should equal Number(3)")
	}
}

func TestStringObjectEqualityIsHandleIdentity(t *testing.T) {
	a := &StringObj{Chars: "hi"}
	b := &StringObj{Chars: "hi"}
	va, vb := FromObject(a), FromObject(b)
	if va.Equal(vb) {
		t.Error("distinct StringObj handles with equal text should not compare equal without interning")
	}
	if !va.Equal(FromObject(a)) {
		t.Error("a value should equal itself")
	}
}

func TestFormatNumber(t *testing.T) {
	cases := map[float64]string{
		3:    "3",
		-3:   "-3",
		0:    "0",
		1.5:  "1.5",
		-1.5: "-1.5",
	}
	for n, want := range cases {
		if got := Number(n).String(); got != want {
			t.Errorf("Number(%v).String() = %q, want %q", n, got, want)
		}
	}
}

func TestTypeName(t *testing.T) {
	if Nil.TypeName() != "nil" || Bool(true).TypeName() != "bool" || Number(1).TypeName() != "number" {
		t.Error("unexpected TypeName results")
	}
	s := FromObject(&StringObj{Chars: "x"})
	if s.TypeName() != "string" {
		t.Errorf("got %q, want string", s.TypeName())
	}
}
