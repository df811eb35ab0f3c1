package models

import "time"

// Window is a closed time range [Start, End] used to query the source.
type Window struct {
	Start time.Time `json:"start"`
	End   time.Time `json:"end"`
}

// IsZero reports whether the window is unset.
func (w Window) IsZero() bool {
	return w.Start.IsZero() && w.End.IsZero()
}

// Contains reports whether t falls inside the window, bounds included.
func (w Window) Contains(t time.Time) bool {
	return !t.Before(w.Start) && !t.After(w.End)
}

// EntityRecord is one student's activity for a window, as observed by the source.
// It lives for a single sync cycle.
type EntityRecord struct {
	SourceID string `json:"source_id"`
	Name     string `json:"name"`
	Key      string `json:"key"`
	Level    string `json:"level"`
	Seconds  int64  `json:"seconds"`
	Window   Window `json:"window"`
}

// Signature returns the dedup identity of the record.
func (r EntityRecord) Signature() Signature {
	return Signature{Key: r.Key, Level: r.Level}
}

// Signature is the (normalized identity, level) pair used to detect duplicates.
// Duration is deliberately not part of it.
type Signature struct {
	Key   string `json:"key"`
	Level string `json:"level"`
}

func (s Signature) String() string {
	return s.Key + "|" + s.Level
}
