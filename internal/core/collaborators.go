package core

import "context"

// QuestionSynthesizer turns a brief into an ordered list of clarifying
// questions with stable IDs.
type QuestionSynthesizer interface {
	// Questions asks between two and ten clarifying questions for a brief.
	Questions(ctx context.Context, brief string) ([]Question, error)

	// Clarify asks exactly two follow-up questions for a refined prompt.
	Clarify(ctx context.Context, prompt string) ([]Question, error)
}

// NameGenerator produces candidate domain names from a refined prompt.
type NameGenerator interface {
	Generate(ctx context.Context, prompt string, settings Settings) ([]string, error)
}

// AvailabilityChecker classifies a single domain name as available or taken.
type AvailabilityChecker interface {
	Check(ctx context.Context, name string) (Status, error)
}

// Store owns per-session state with per-session serialized mutation.
type Store interface {
	// Put inserts a freshly created session.
	Put(ctx context.Context, sess *Session) error

	// Get returns a deep-copy snapshot, or a NotFound error.
	Get(ctx context.Context, id string) (*Session, error)

	// Mutate applies fn to the session under a per-session critical section:
	// no other mutation of the same session interleaves while fn runs. fn
	// receives a working copy; if fn returns an error nothing is committed.
	// Returns the committed session.
	Mutate(ctx context.Context, id string, fn func(*Session) error) (*Session, error)
}
