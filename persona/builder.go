// Package persona composes the per-session system instruction: the
// fixed MoodBuddy persona, a summary of the user's recent mood
// journal, and one communication directive per personality axis.
package persona

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/sirupsen/logrus"

	"github.com/moodbuddy/relay/store"
)

// BasePersona is the MoodBuddy identity, injected verbatim for every
// session whether or not any user data is available.
const BasePersona = "You are MoodBuddy. Moodbuddy facilitates access to mental health care by tackling the top barriers to care, so that every person has the support they need and it is always available when and where they need it. MoodBuddy strives to improve the emotional wellbeing of its users and contribute to a more supportive and better understanding society through unyielding guidance and individual attention. Talk gently and soft, show your understanding,don't talk too much and don't provide too many suggestion. Focus on your understanding is fine."

// ClosingDirective always terminates the instruction.
const ClosingDirective = "Above all, keep your tone gentle, concise, understanding-first."

// DefaultMood is reported when the journal has no entries.
const DefaultMood = "neutral"

// Trait directives. Axes are checked independently in this fixed
// order; a letter that matches neither side of an axis contributes
// nothing.
var axisDirectives = []struct {
	letter    byte
	directive string
}{
	{'E', "The user is outgoing and energized by connection: engage warmly and ask open questions."},
	{'I', "The user is reserved and introspective: leave room for quiet and let them set the pace."},
	{'S', "The user thinks in concrete, practical terms: ground your responses in specific, tangible steps."},
	{'N', "The user leans theoretical and abstract: it is fine to explore patterns and bigger-picture meaning."},
	{'T', "The user processes feelings analytically: acknowledge emotion, then be ready to reason through it together."},
	{'F', "The user leads with empathy: validate feelings before anything else."},
	{'J', "The user prefers structure and closure: keep the conversation organized and bring threads to a clear close."},
	{'P', "The user prefers flexibility: keep things open-ended and avoid rigid agendas."},
}

// Builder assembles the instruction from the collaborator stores.
// Either store may be nil, which behaves like a user with no data.
type Builder struct {
	Profiles   store.ProfileStore
	Journal    store.JournalStore
	WindowDays int
	Log        *logrus.Logger
}

// Build produces the system instruction for one session. Collaborator
// failures degrade to the data-absent path; Build never fails.
func (b *Builder) Build(ctx context.Context, userID string) string {
	if userID == "" {
		return BasePersona + "\n\n" + ClosingDirective
	}

	var sb strings.Builder
	sb.WriteString(BasePersona)
	sb.WriteString("\n\n")

	entries := b.fetchEntries(ctx, userID)
	sb.WriteString(fmt.Sprintf("The user's dominant mood in their recent journal has been %s.\n", DominantMood(entries)))
	for _, e := range entries {
		sb.WriteString(fmt.Sprintf("- %s, %s, %s, %s\n", e.Date.Format("2006-01-02"), e.Time, e.Mood, e.Text))
	}

	if code := b.fetchTraits(ctx, userID); code != "" {
		for _, axis := range axisDirectives {
			if strings.ContainsRune(code, rune(axis.letter)) {
				sb.WriteString(axis.directive)
				sb.WriteString("\n")
			}
		}
	}

	sb.WriteString("\n")
	sb.WriteString(ClosingDirective)
	return sb.String()
}

func (b *Builder) fetchEntries(ctx context.Context, userID string) []store.JournalEntry {
	if b.Journal == nil {
		return nil
	}
	window := b.WindowDays
	if window <= 0 {
		window = 365
	}
	entries, err := b.Journal.GetEntries(ctx, userID, window)
	if err != nil {
		if b.Log != nil {
			b.Log.WithField("user", userID).WithError(err).Warn("journal fetch failed, continuing without mood history")
		}
		return nil
	}
	return entries
}

func (b *Builder) fetchTraits(ctx context.Context, userID string) string {
	if b.Profiles == nil {
		return ""
	}
	code, err := b.Profiles.GetTraits(ctx, userID)
	if err != nil {
		if !errors.Is(err, store.ErrNotFound) && b.Log != nil {
			b.Log.WithField("user", userID).WithError(err).Warn("profile fetch failed, continuing without trait directives")
		}
		return ""
	}
	return code
}

// DominantMood is the mode of the mood field across entries, ties
// broken by first encounter in the given order. Empty input yields
// DefaultMood.
func DominantMood(entries []store.JournalEntry) string {
	if len(entries) == 0 {
		return DefaultMood
	}

	counts := make(map[string]int, len(entries))
	max := 0
	for _, e := range entries {
		counts[e.Mood]++
		if counts[e.Mood] > max {
			max = counts[e.Mood]
		}
	}
	// Ties go to the mood encountered first in the returned order.
	for _, e := range entries {
		if counts[e.Mood] == max {
			return e.Mood
		}
	}
	return DefaultMood
}
