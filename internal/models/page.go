package models

import "time"

// Page is a destination page as read back from the store.
type Page struct {
	ID        string     `json:"id"`
	Name      string     `json:"name"`
	Key       string     `json:"key"`
	Level     string     `json:"level"`
	Duration  string     `json:"duration"`
	Seconds   int64      `json:"seconds"`
	WeekStart *time.Time `json:"week_start,omitempty"`
	Archived  bool       `json:"archived"`
}

// PageFields is the property set written on create and update.
type PageFields struct {
	Name      string
	Key       string
	Level     string
	Duration  string
	Seconds   int64
	WeekStart time.Time
	Status    string
	Teacher   string
}

// PageFilter narrows a store query. A zero filter matches every active page.
type PageFilter struct {
	Key string
}

// PageList is one page of query results.
type PageList struct {
	Pages      []Page
	NextCursor string
}

// HasMore reports whether another query page is available.
func (l PageList) HasMore() bool {
	return l.NextCursor != ""
}
