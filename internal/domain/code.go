package domain

import (
	"fmt"
	"sort"
	"strconv"
	"strings"
)

// CodeWidth is the number of digits in a canonical section code.
const CodeWidth = 5

// Code identifies a catalog section. It is ordered by its integer value and
// matched by its canonical string form (zero-padded to CodeWidth digits).
type Code string

// ParseCode validates s and returns its canonical form.
func ParseCode(s string) (Code, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return "", fmt.Errorf("empty section code")
	}
	n, err := strconv.Atoi(s)
	if err != nil || n < 0 {
		return "", fmt.Errorf("invalid section code %q", s)
	}
	return CodeFromInt(n), nil
}

// MustParseCode is ParseCode for literals; it panics on invalid input.
func MustParseCode(s string) Code {
	c, err := ParseCode(s)
	if err != nil {
		panic(err)
	}
	return c
}

// CodeFromInt returns the canonical code for n.
func CodeFromInt(n int) Code {
	return Code(fmt.Sprintf("%0*d", CodeWidth, n))
}

// Int returns the numeric value used for range bucketing. Codes that were not
// produced by ParseCode or CodeFromInt report -1.
func (c Code) Int() int {
	n, err := strconv.Atoi(string(c))
	if err != nil {
		return -1
	}
	return n
}

func (c Code) String() string { return string(c) }

// Codes parses a list of raw codes, failing on the first invalid entry.
func Codes(raw ...string) ([]Code, error) {
	out := make([]Code, 0, len(raw))
	for _, r := range raw {
		c, err := ParseCode(r)
		if err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, nil
}

// SortCodes sorts codes ascending by numeric value and drops duplicates.
// The returned slice shares the input's backing array.
func SortCodes(codes []Code) []Code {
	sort.Slice(codes, func(i, j int) bool { return codes[i].Int() < codes[j].Int() })
	out := codes[:0]
	for i, c := range codes {
		if i > 0 && c == codes[i-1] {
			continue
		}
		out = append(out, c)
	}
	return out
}

// CodeSet is an unordered set of codes.
type CodeSet map[Code]struct{}

// NewCodeSet builds a set from codes.
func NewCodeSet(codes ...Code) CodeSet {
	s := make(CodeSet, len(codes))
	for _, c := range codes {
		s[c] = struct{}{}
	}
	return s
}

// Add inserts c.
func (s CodeSet) Add(c Code) { s[c] = struct{}{} }

// Has reports whether c is a member.
func (s CodeSet) Has(c Code) bool {
	_, ok := s[c]
	return ok
}

// Sorted returns the members in ascending numeric order.
func (s CodeSet) Sorted() []Code {
	out := make([]Code, 0, len(s))
	for c := range s {
		out = append(out, c)
	}
	return SortCodes(out)
}
