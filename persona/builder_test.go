package persona

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/moodbuddy/relay/store"
)

type fakeProfiles struct {
	code string
	err  error
}

func (f *fakeProfiles) GetTraits(ctx context.Context, userID string) (string, error) {
	return f.code, f.err
}

type fakeJournal struct {
	entries []store.JournalEntry
	err     error
}

func (f *fakeJournal) GetEntries(ctx context.Context, userID string, windowDays int) ([]store.JournalEntry, error) {
	return f.entries, f.err
}

func entry(mood string) store.JournalEntry {
	return store.JournalEntry{
		Date: time.Date(2026, 8, 20, 0, 0, 0, 0, time.UTC),
		Mood: mood,
		Text: "journal text",
		Time: "20:15",
	}
}

func TestDominantMood(t *testing.T) {
	tests := []struct {
		name  string
		moods []string
		want  string
	}{
		{"empty defaults to neutral", nil, DefaultMood},
		{"simple majority", []string{"sad", "sad", "happy"}, "sad"},
		{"single entry", []string{"joyful"}, "joyful"},
		{"tie goes to first encountered", []string{"happy", "sad", "sad", "happy"}, "happy"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var entries []store.JournalEntry
			for _, m := range tt.moods {
				entries = append(entries, entry(m))
			}
			assert.Equal(t, tt.want, DominantMood(entries))
		})
	}
}

func TestBuildWithoutUserID(t *testing.T) {
	b := &Builder{}
	got := b.Build(context.Background(), "")

	assert.True(t, strings.HasPrefix(got, BasePersona))
	assert.Contains(t, got, ClosingDirective)
	assert.NotContains(t, got, "dominant mood")
}

func TestBuildWithoutTraitCode(t *testing.T) {
	b := &Builder{
		Profiles: &fakeProfiles{err: store.ErrNotFound},
		Journal:  &fakeJournal{entries: []store.JournalEntry{entry("Sad")}},
	}
	got := b.Build(context.Background(), "u1")

	assert.Contains(t, got, BasePersona)
	assert.Contains(t, got, ClosingDirective)
	assert.Contains(t, got, "dominant mood in their recent journal has been Sad")
	assert.NotContains(t, got, "The user is", "no axis directives without a trait code")
}

func TestBuildINTJDirectiveOrder(t *testing.T) {
	b := &Builder{
		Profiles: &fakeProfiles{code: "INTJ"},
		Journal:  &fakeJournal{},
	}
	got := b.Build(context.Background(), "u1")

	reserved := strings.Index(got, "reserved and introspective")
	abstract := strings.Index(got, "theoretical and abstract")
	analytical := strings.Index(got, "processes feelings analytically")
	structured := strings.Index(got, "structure and closure")

	require.NotEqual(t, -1, reserved)
	require.NotEqual(t, -1, abstract)
	require.NotEqual(t, -1, analytical)
	require.NotEqual(t, -1, structured)

	assert.Less(t, reserved, abstract)
	assert.Less(t, abstract, analytical)
	assert.Less(t, analytical, structured)

	// Opposite poles must not appear
	assert.NotContains(t, got, "outgoing and energized")
	assert.NotContains(t, got, "concrete, practical")
	assert.NotContains(t, got, "leads with empathy")
	assert.NotContains(t, got, "prefers flexibility")
}

func TestBuildUnknownTraitLettersIgnored(t *testing.T) {
	b := &Builder{
		Profiles: &fakeProfiles{code: "XQTZ"},
		Journal:  &fakeJournal{},
	}
	got := b.Build(context.Background(), "u1")

	// Only the T axis matched; the rest contribute nothing.
	assert.Contains(t, got, "processes feelings analytically")
	assert.NotContains(t, got, "reserved and introspective")
	assert.NotContains(t, got, "structure and closure")
}

func TestBuildJournalEntryLines(t *testing.T) {
	entries := []store.JournalEntry{
		{Date: time.Date(2026, 8, 22, 0, 0, 0, 0, time.UTC), Mood: "Happy", Text: "good walk", Time: "09:30"},
		{Date: time.Date(2026, 8, 21, 0, 0, 0, 0, time.UTC), Mood: "Sad", Text: "rough day", Time: "22:00"},
	}
	b := &Builder{Journal: &fakeJournal{entries: entries}}
	got := b.Build(context.Background(), "u1")

	first := strings.Index(got, "- 2026-08-22, 09:30, Happy, good walk")
	second := strings.Index(got, "- 2026-08-21, 22:00, Sad, rough day")
	require.NotEqual(t, -1, first)
	require.NotEqual(t, -1, second)
	assert.Less(t, first, second, "entries listed in the order received")
}

func TestBuildDegradesOnStoreFailure(t *testing.T) {
	b := &Builder{
		Profiles: &fakeProfiles{err: errors.New("connection refused")},
		Journal:  &fakeJournal{err: errors.New("server selection timeout")},
	}
	got := b.Build(context.Background(), "u1")

	assert.Contains(t, got, BasePersona)
	assert.Contains(t, got, "has been "+DefaultMood)
	assert.Contains(t, got, ClosingDirective)
	assert.NotContains(t, got, "The user is")
}

func TestClosingDirectiveAlwaysLast(t *testing.T) {
	b := &Builder{
		Profiles: &fakeProfiles{code: "ENFP"},
		Journal:  &fakeJournal{entries: []store.JournalEntry{entry("Joyful")}},
	}
	got := b.Build(context.Background(), "u1")
	assert.True(t, strings.HasSuffix(got, ClosingDirective))
}
