package main

import "testing"

func TestBraceDeltaTracksNesting(t *testing.T) {
	cases := []struct {
		line string
		want int
	}{
		{"fun f() {", 1},
		{"}", -1},
		{"print(\"{\");", 0},
		{"// { ignored", 0},
		{"if (x) { print(1); }", 0},
	}
	for _, c := range cases {
		if got := braceDelta(c.line); got != c.want {
			t.Errorf("braceDelta(%q) = %d, want %d", c.line, got, c.want)
		}
	}
}
