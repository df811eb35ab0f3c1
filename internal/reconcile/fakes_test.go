package reconcile

import (
	"context"

	"studysync/internal/models"
)

// staticFetcher returns a fixed record set.
type staticFetcher struct {
	records []models.EntityRecord
	err     error
}

func (f *staticFetcher) Fetch(context.Context, models.Window) ([]models.EntityRecord, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.records, nil
}

func record(name, key, level string, seconds int64) models.EntityRecord {
	return models.EntityRecord{SourceID: key, Name: name, Key: key, Level: level, Seconds: seconds}
}
