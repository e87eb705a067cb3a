package coverage

import (
	"encoding/json"
	"sort"
)

const (
	StatusComputed    = "computed"
	StatusNotComputed = "not_computed"
)

// Result is the outcome of resolving a polygon. A zero Result is NotComputed,
// which is what callers get when the reference dataset has not been loaded;
// it never stands in for a genuine empty intersection.
type Result struct {
	computed bool
	codes    []string
}

func NotComputed() Result {
	return Result{}
}

// Computed sorts and dedupes codes.
func Computed(codes []string) Result {
	return Result{computed: true, codes: SortedUnique(codes)}
}

func (r Result) IsComputed() bool { return r.computed }

func (r Result) Codes() []string { return r.codes }

func (r Result) Len() int { return len(r.codes) }

// Empty is true only for a computed result with no codes.
func (r Result) Empty() bool { return r.computed && len(r.codes) == 0 }

func (r Result) Status() string {
	if r.computed {
		return StatusComputed
	}
	return StatusNotComputed
}

func (r Result) MarshalJSON() ([]byte, error) {
	codes := r.codes
	if codes == nil {
		codes = []string{}
	}
	return json.Marshal(struct {
		Status string   `json:"status"`
		Codes  []string `json:"codes"`
		Count  int      `json:"count"`
	}{r.Status(), codes, len(codes)})
}

// SortedUnique returns a sorted copy of codes without duplicates or blanks.
func SortedUnique(codes []string) []string {
	seen := make(map[string]struct{}, len(codes))
	out := make([]string, 0, len(codes))
	for _, c := range codes {
		if c == "" {
			continue
		}
		if _, ok := seen[c]; ok {
			continue
		}
		seen[c] = struct{}{}
		out = append(out, c)
	}
	sort.Strings(out)
	return out
}
