package race

import (
	"errors"
	"math"
	"testing"
)

func TestParseAnswer(t *testing.T) {
	cases := []struct {
		in   string
		want int
	}{
		{"0", 0},
		{"7", 7},
		{"  12", 12},
		{"12  ", 12},
		{"\t5\n", 5},
		{"3.9", 3},
		{"12abc", 12},
		{"+4", 4},
		{"-3", -3},
		{"007", 7},
		{"99999999999999999999999", math.MaxInt},
	}
	for _, tc := range cases {
		got, err := ParseAnswer(tc.in)
		if err != nil {
			t.Fatalf("%q: unexpected error %v", tc.in, err)
		}
		if got != tc.want {
			t.Fatalf("%q: expected %d, got %d", tc.in, tc.want, got)
		}
	}
}

func TestParseAnswerRejects(t *testing.T) {
	for _, in := range []string{"", " ", "abc", "-", "+-1", ".9", "e5", "one"} {
		if _, err := ParseAnswer(in); !errors.Is(err, ErrNotANumber) {
			t.Fatalf("%q: expected ErrNotANumber, got %v", in, err)
		}
	}
}
