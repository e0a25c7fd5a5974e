package finder

import (
	"github.com/CageChen/layerhub/internal/entry"
)

// Direction is the order search paths are walked in.
type Direction int

const (
	// Forward walks search paths in insertion order.
	Forward Direction = iota
	// Reversed walks search paths from the last added to the first.
	Reversed
)

func (d Direction) String() string {
	if d == Reversed {
		return "reversed"
	}
	return "forward"
}

// Mode selects between the first match and every match.
type Mode int

const (
	ModeOne Mode = iota
	ModeAll
)

func (m Mode) String() string {
	if m == ModeAll {
		return "all"
	}
	return "one"
}

// Key identifies a cached lookup.
type Key struct {
	Mode      Mode
	Type      entry.Type
	Name      string
	Direction Direction
}

// Query describes one lookup. Reload bypasses the cache for this call; the
// fresh result still replaces the cached one.
type Query struct {
	Name      string
	Type      entry.Type
	Direction Direction
	Mode      Mode
	Reload    bool
}

// Match is one resolved path.
type Match struct {
	Path string     `json:"path"`
	Type entry.Type `json:"type"`
}

// Entry wraps the match in a file or directory handle.
func (m Match) Entry() entry.Entry {
	return entry.New(m.Path, m.Type)
}

// Result holds the matches of a lookup in search order. A ModeOne result
// holds at most one match.
type Result struct {
	Matches []Match
}

// Found reports whether anything matched.
func (r Result) Found() bool {
	return len(r.Matches) > 0
}

// First returns the first match.
func (r Result) First() (Match, bool) {
	if len(r.Matches) == 0 {
		return Match{}, false
	}
	return r.Matches[0], true
}

// Paths returns the matched paths.
func (r Result) Paths() []string {
	paths := make([]string, len(r.Matches))
	for i, m := range r.Matches {
		paths[i] = m.Path
	}
	return paths
}

// Entries returns a handle for every match.
func (r Result) Entries() []entry.Entry {
	entries := make([]entry.Entry, len(r.Matches))
	for i, m := range r.Matches {
		entries[i] = m.Entry()
	}
	return entries
}

func (r Result) clone() Result {
	if r.Matches == nil {
		return Result{}
	}
	matches := make([]Match, len(r.Matches))
	copy(matches, r.Matches)
	return Result{Matches: matches}
}
