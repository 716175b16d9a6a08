package core

import (
	"fmt"
	"sort"
	"strings"
	"time"

	gonanoid "github.com/matoous/go-nanoid/v2"
)

// Step is the explicit per-session state of the question/generate/feedback loop.
type Step string

const (
	StepAwaitingAnswers Step = "AWAITING_ANSWERS"
	StepReadyToGenerate Step = "READY_TO_GENERATE"
	StepGenerated       Step = "GENERATED"
)

// Status is the last-known registration status of a checked domain name.
type Status string

const (
	StatusAvailable Status = "AVAILABLE"
	StatusTaken     Status = "TAKEN"
)

// Question is a single clarifying question shown to the user.
type Question struct {
	ID   string `json:"id"`
	Text string `json:"text"`
}

// HistoryEntry records one domain name that was checked in a session.
type HistoryEntry struct {
	Name   string `json:"name"`
	Status Status `json:"status"`
}

// Session holds all conversation state for one refinement loop.
type Session struct {
	ID            string            `json:"id"`
	Brief         string            `json:"brief"`
	Questions     []Question        `json:"questions"`
	Answers       map[string]string `json:"answers"`
	PendingPrompt string            `json:"pending_prompt,omitempty"`
	History       []HistoryEntry    `json:"history"`
	Liked         map[string]string `json:"liked"`
	Disliked      map[string]string `json:"disliked"`
	DislikeReason string            `json:"dislike_reason,omitempty"`
	Round         int               `json:"round"`
	Step          Step              `json:"step"`
	Settings      Settings          `json:"settings"`
	CreatedAt     time.Time         `json:"created_at"`
	UpdatedAt     time.Time         `json:"updated_at"`
}

// NewSessionID generates a cryptographically random session ID. Session IDs
// double as authorization tokens, so they must be unguessable.
func NewSessionID() (string, error) {
	id, err := gonanoid.New(24)
	if err != nil {
		return "", err
	}
	return "ses_" + id, nil
}

// NewSession creates a session at round 0, waiting for answers.
func NewSession(brief string) (*Session, error) {
	id, err := NewSessionID()
	if err != nil {
		return nil, fmt.Errorf("generate session id: %w", err)
	}
	now := time.Now().UTC()
	return &Session{
		ID:        id,
		Brief:     brief,
		Answers:   make(map[string]string),
		History:   make([]HistoryEntry, 0),
		Liked:     make(map[string]string),
		Disliked:  make(map[string]string),
		Step:      StepAwaitingAnswers,
		Settings:  DefaultSettings(),
		CreatedAt: now,
		UpdatedAt: now,
	}, nil
}

// Clone creates a deep copy of the session.
func (s *Session) Clone() *Session {
	clone := *s
	clone.Questions = make([]Question, len(s.Questions))
	copy(clone.Questions, s.Questions)
	clone.History = make([]HistoryEntry, len(s.History))
	copy(clone.History, s.History)
	clone.Answers = copyMap(s.Answers)
	clone.Liked = copyMap(s.Liked)
	clone.Disliked = copyMap(s.Disliked)
	clone.Settings = s.Settings.clone()
	return &clone
}

// InHistory reports whether name was already checked in this session,
// compared case-insensitively.
func (s *Session) InHistory(name string) bool {
	key := NormalizeDomain(name)
	for _, e := range s.History {
		if NormalizeDomain(e.Name) == key {
			return true
		}
	}
	return false
}

// QuestionByID returns the current-round question with the given ID.
func (s *Session) QuestionByID(id string) (Question, bool) {
	for _, q := range s.Questions {
		if q.ID == id {
			return q, true
		}
	}
	return Question{}, false
}

// NormalizeDomain is the deduplication key for domain names: lowercase with
// surrounding whitespace and a trailing dot removed. Punycode and unicode
// forms are deliberately left untouched; candidates come from the generator
// as ASCII.
func NormalizeDomain(name string) string {
	return strings.TrimSuffix(strings.ToLower(strings.TrimSpace(name)), ".")
}

func copyMap(m map[string]string) map[string]string {
	out := make(map[string]string, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}

// sortedKeys returns map keys in lexical order, for deterministic folds.
func sortedKeys(m map[string]string) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
