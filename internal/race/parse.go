package race

import (
	"errors"
	"strconv"
	"strings"
	"unicode"
)

// ErrNotANumber is returned when a submitted answer has no leading integer.
var ErrNotANumber = errors.New("not a number")

// ParseAnswer coerces raw input to a whole number. Leading whitespace and an
// optional sign are accepted, then the leading run of digits is used and the
// rest ignored, so "3.9" yields 3 and "12abc" yields 12.
func ParseAnswer(raw string) (int, error) {
	s := strings.TrimLeftFunc(raw, unicode.IsSpace)
	start := 0
	if start < len(s) && (s[start] == '+' || s[start] == '-') {
		start++
	}
	end := start
	for end < len(s) && s[end] >= '0' && s[end] <= '9' {
		end++
	}
	if end == start {
		return 0, ErrNotANumber
	}
	n, err := strconv.Atoi(s[:end])
	if err != nil {
		// Out-of-range values saturate and can never match an answer.
		if errors.Is(err, strconv.ErrRange) {
			return n, nil
		}
		return 0, ErrNotANumber
	}
	return n, nil
}
