// Package store holds the personalization collaborators: the profile
// store that maps a user to a trait code and the journal store that
// returns recent mood entries. Both are optional at runtime; the relay
// degrades to a persona-only instruction when either is absent or
// failing.
package store

import (
	"context"
	"errors"
	"time"
)

// ErrNotFound is returned when a user has no record in a store.
var ErrNotFound = errors.New("record not found")

// ProfileStore resolves a user's trait code (four letters, one per
// personality axis).
type ProfileStore interface {
	GetTraits(ctx context.Context, userID string) (string, error)
}

// JournalEntry is one mood-journal record.
type JournalEntry struct {
	Date time.Time `bson:"date" json:"date"`
	Mood string    `bson:"mood" json:"mood"`
	Text string    `bson:"text" json:"text"`
	Time string    `bson:"time" json:"time"` // HH:mm wall-clock label
}

// JournalStore returns a user's mood entries within the trailing
// window, newest first.
type JournalStore interface {
	GetEntries(ctx context.Context, userID string, windowDays int) ([]JournalEntry, error)
}
