package models

// Sport is a catalogue entry synced wholesale from the upstream feed.
// Sport records are never mutated in place — a catalogue sync replaces the
// whole set.
type Sport struct {
	Key         string // stable slug, e.g. "americanfootball_nfl"
	Group       string // e.g. "American Football"
	Title       string
	Active      bool
	HasOutcomes bool // true when wagers are still accepted
}
