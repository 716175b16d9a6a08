package core

import (
	"context"
	"fmt"
	"regexp"
	"sort"
	"strconv"
	"strings"

	"golang.org/x/sync/errgroup"

	"github.com/guc1/domain-agent/internal/metrics"
)

// Orchestrator drives the session state machine:
// AWAITING_ANSWERS -> READY_TO_GENERATE -> GENERATED -> AWAITING_ANSWERS,
// looping until the client stops calling.
type Orchestrator struct {
	store   Store
	synth   QuestionSynthesizer
	gen     NameGenerator
	checker AvailabilityChecker
	log     Logger

	maxAttempts int
	checkLimit  int
}

// Option configures an Orchestrator.
type Option func(*Orchestrator)

// WithLogger sets the logger.
func WithLogger(log Logger) Option {
	return func(o *Orchestrator) { o.log = log }
}

// WithMaxAttempts caps how many generator batches a single generate call may
// run while chasing the session's domain goal.
func WithMaxAttempts(n int) Option {
	return func(o *Orchestrator) {
		if n > 0 {
			o.maxAttempts = n
		}
	}
}

// WithCheckConcurrency bounds the availability-check fan-out per batch.
func WithCheckConcurrency(n int) Option {
	return func(o *Orchestrator) {
		if n > 0 {
			o.checkLimit = n
		}
	}
}

// NewOrchestrator wires the orchestrator with its collaborators.
func NewOrchestrator(store Store, synth QuestionSynthesizer, gen NameGenerator, checker AvailabilityChecker, opts ...Option) *Orchestrator {
	o := &Orchestrator{
		store:       store,
		synth:       synth,
		gen:         gen,
		checker:     checker,
		log:         NopLogger{},
		maxAttempts: 5,
		checkLimit:  4,
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// StartResult is returned by Start.
type StartResult struct {
	SessionID string     `json:"session_id"`
	Questions []Question `json:"questions"`
}

// GenerateResult is returned by Generate.
type GenerateResult struct {
	Available []string       `json:"available"`
	Taken     []string       `json:"taken"`
	History   []HistoryEntry `json:"history"`
}

// FeedbackInput carries a feedback round: per-name reasons and/or a single
// free-text dislike reason.
type FeedbackInput struct {
	Liked         map[string]string `json:"liked,omitempty"`
	Disliked      map[string]string `json:"disliked,omitempty"`
	DislikeReason string            `json:"dislike_reason,omitempty"`
}

// FeedbackResult is returned by Feedback.
type FeedbackResult struct {
	Prompt    string     `json:"prompt"`
	Questions []Question `json:"questions"`
}

// CombineInput is the stateless variant of the composer step, for clients
// managing their own state.
type CombineInput struct {
	PreviousPrompt string            `json:"previous_prompt"`
	Answers        map[string]string `json:"answers,omitempty"`
	QuestionMap    map[string]string `json:"question_map,omitempty"`
	Liked          map[string]string `json:"liked_domains,omitempty"`
	Disliked       map[string]string `json:"disliked_domains,omitempty"`
	Taken          []string          `json:"taken_domains,omitempty"`
}

// Start creates a session for the brief and asks the initial clarifying
// questions.
func (o *Orchestrator) Start(ctx context.Context, brief string) (*StartResult, error) {
	brief = strings.TrimSpace(brief)
	if brief == "" {
		return nil, NewInvalidInput("initial brief must not be empty")
	}

	sess, err := NewSession(brief)
	if err != nil {
		return nil, err
	}

	questions, err := o.synth.Questions(ctx, brief)
	if err != nil {
		return nil, NewUpstreamFailure("question synthesis", err)
	}
	sess.Questions = sequenceQuestions(questions)

	if err := o.store.Put(ctx, sess); err != nil {
		return nil, err
	}

	metrics.SessionsStarted.Inc()
	o.log.Info("session started", "session_id", sess.ID, "questions", len(sess.Questions))
	return &StartResult{SessionID: sess.ID, Questions: sess.Questions}, nil
}

// SubmitAnswers merges answers for the current round and composes the pending
// prompt. It does not advance the round or mutate the brief; the prompt is
// committed on Generate.
func (o *Orchestrator) SubmitAnswers(ctx context.Context, sessionID string, answers map[string]string) (string, error) {
	sess, err := o.store.Mutate(ctx, sessionID, func(sess *Session) error {
		for id := range answers {
			if _, ok := sess.QuestionByID(id); !ok {
				return NewInvalidAnswers(fmt.Sprintf("unknown question id %q", id))
			}
		}

		merged := copyMap(sess.Answers)
		for id, text := range answers {
			merged[id] = text
		}
		for _, q := range sess.Questions {
			if _, ok := merged[q.ID]; !ok {
				return NewInvalidAnswers(fmt.Sprintf("question %q has no answer", q.ID))
			}
		}

		sess.Answers = merged
		sess.PendingPrompt = ComposePrompt(ComposeInput{
			Brief:         sess.Brief,
			Questions:     sess.Questions,
			Answers:       merged,
			Liked:         sess.Liked,
			Disliked:      sess.Disliked,
			DislikeReason: sess.DislikeReason,
			Tone:          sess.Settings.Tone,
		})
		sess.Step = StepReadyToGenerate
		return nil
	})
	if err != nil {
		return "", err
	}
	return sess.PendingPrompt, nil
}

// Generate commits the pending prompt, asks the generator for candidates,
// filters names already in history, checks the remainder concurrently and
// appends everything checked in one atomic step. A generator batch that falls
// short of the session's domain goal is retried up to the attempt cap.
func (o *Orchestrator) Generate(ctx context.Context, sessionID string) (*GenerateResult, error) {
	var result GenerateResult
	_, err := o.store.Mutate(ctx, sessionID, func(sess *Session) error {
		if sess.Step == StepAwaitingAnswers && len(sess.Questions) > 0 {
			return NewSequenceError("answers must be submitted before generating")
		}

		if sess.PendingPrompt != "" {
			sess.Brief = sess.PendingPrompt
			sess.PendingPrompt = ""
		}

		seen := make(map[string]bool, len(sess.History))
		for _, e := range sess.History {
			seen[NormalizeDomain(e.Name)] = true
		}

		goal := sess.Settings.DomainGoal
		if goal < 1 {
			goal = 1
		}

		var entries []HistoryEntry
		var available, taken []string

		for attempt := 1; attempt <= o.maxAttempts && len(available) < goal; attempt++ {
			metrics.GenerateAttempts.Inc()
			o.log.Info("generation attempt", "session_id", sess.ID, "attempt", attempt)

			names, err := o.gen.Generate(ctx, sess.Brief, sess.Settings)
			if err != nil {
				return NewUpstreamFailure("name generation", err)
			}

			var fresh []string
			for _, name := range names {
				key := NormalizeDomain(name)
				if key == "" || seen[key] {
					continue
				}
				seen[key] = true
				fresh = append(fresh, key)
			}
			if len(fresh) == 0 {
				o.log.Warn("generator returned no new names", "session_id", sess.ID, "attempt", attempt)
				continue
			}

			for _, res := range o.checkBatch(ctx, fresh) {
				if res.err != nil {
					metrics.DomainsChecked.WithLabelValues("error").Inc()
					o.log.Warn("availability check failed, name skipped",
						"session_id", sess.ID, "name", res.name, "error", res.err)
					continue
				}
				metrics.DomainsChecked.WithLabelValues(string(res.status)).Inc()
				entries = append(entries, HistoryEntry{Name: res.name, Status: res.status})
				if res.status == StatusAvailable {
					available = append(available, res.name)
				} else {
					taken = append(taken, res.name)
				}
			}
		}

		sess.History = append(sess.History, entries...)
		sess.Step = StepGenerated

		result = GenerateResult{
			Available: emptyIfNil(available),
			Taken:     emptyIfNil(taken),
			History:   append([]HistoryEntry(nil), sess.History...),
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &result, nil
}

type checkResult struct {
	name   string
	status Status
	err    error
}

// checkBatch fans out availability checks and merges results in candidate
// order. A single failed lookup never aborts the batch.
func (o *Orchestrator) checkBatch(ctx context.Context, names []string) []checkResult {
	results := make([]checkResult, len(names))
	g := new(errgroup.Group)
	g.SetLimit(o.checkLimit)
	for i, name := range names {
		i, name := i, name
		g.Go(func() error {
			status, err := o.checker.Check(ctx, name)
			results[i] = checkResult{name: name, status: status, err: err}
			return nil
		})
	}
	_ = g.Wait()
	return results
}

// Feedback merges like/dislike signal, advances the round, refines the brief
// from all accumulated context and starts a fresh question round.
func (o *Orchestrator) Feedback(ctx context.Context, sessionID string, fb FeedbackInput) (*FeedbackResult, error) {
	var result FeedbackResult
	_, err := o.store.Mutate(ctx, sessionID, func(sess *Session) error {
		for name := range fb.Liked {
			if !sess.InHistory(name) {
				return NewInvalidFeedback(fmt.Sprintf("liked domain %q is not in session history", name))
			}
		}
		for name := range fb.Disliked {
			if !sess.InHistory(name) {
				return NewInvalidFeedback(fmt.Sprintf("disliked domain %q is not in session history", name))
			}
		}

		// Last write wins per name; a name moves between the two maps.
		for name, reason := range fb.Liked {
			key := NormalizeDomain(name)
			sess.Liked[key] = reason
			delete(sess.Disliked, key)
		}
		for name, reason := range fb.Disliked {
			key := NormalizeDomain(name)
			sess.Disliked[key] = reason
			delete(sess.Liked, key)
		}
		if reason := strings.TrimSpace(fb.DislikeReason); reason != "" {
			if sess.DislikeReason != "" {
				sess.DislikeReason += "; " + reason
			} else {
				sess.DislikeReason = reason
			}
		}

		sess.Round++

		var takenNames []string
		for _, e := range sess.History {
			if e.Status == StatusTaken {
				takenNames = append(takenNames, e.Name)
			}
		}

		answeredQuestions, answersByText := collapseAnswers(sess)
		refined := ComposePrompt(ComposeInput{
			Brief:         sess.Brief,
			Questions:     answeredQuestions,
			Answers:       answersByText,
			Liked:         sess.Liked,
			Disliked:      sess.Disliked,
			DislikeReason: sess.DislikeReason,
			Taken:         takenNames,
			Tone:          sess.Settings.Tone,
		})

		questions, err := o.synth.Clarify(ctx, refined)
		if err != nil {
			return NewUpstreamFailure("question synthesis", err)
		}

		sess.Brief = refined
		sess.Questions = sequenceQuestions(questions)
		sess.Answers = make(map[string]string)
		sess.PendingPrompt = ""
		sess.Step = StepAwaitingAnswers

		metrics.FeedbackRounds.Inc()
		o.log.Info("feedback applied", "session_id", sess.ID, "round", sess.Round,
			"liked", len(fb.Liked), "disliked", len(fb.Disliked))

		result = FeedbackResult{Prompt: refined, Questions: sess.Questions}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &result, nil
}

// GetState returns a read-only snapshot of the session.
func (o *Orchestrator) GetState(ctx context.Context, sessionID string) (*Session, error) {
	return o.store.Get(ctx, sessionID)
}

// SetSettings applies override values from a raw key/value map, validated
// against the fixed allow-list of recognized option names.
func (o *Orchestrator) SetSettings(ctx context.Context, sessionID string, overrides map[string]any) (Settings, error) {
	sess, err := o.store.Mutate(ctx, sessionID, func(sess *Session) error {
		return sess.Settings.Apply(overrides)
	})
	if err != nil {
		return Settings{}, err
	}
	return sess.Settings, nil
}

// GetSettings returns the session's current settings.
func (o *Orchestrator) GetSettings(ctx context.Context, sessionID string) (Settings, error) {
	sess, err := o.store.Get(ctx, sessionID)
	if err != nil {
		return Settings{}, err
	}
	return sess.Settings, nil
}

// Clarify asks exactly two follow-up questions for a prompt. Stateless: no
// session is read or written.
func (o *Orchestrator) Clarify(ctx context.Context, prompt string) ([]Question, error) {
	if strings.TrimSpace(prompt) == "" {
		return nil, NewInvalidInput("prompt must not be empty")
	}
	questions, err := o.synth.Clarify(ctx, prompt)
	if err != nil {
		return nil, NewUpstreamFailure("question synthesis", err)
	}
	if len(questions) != 2 {
		return nil, NewUpstreamFailure("question synthesis",
			fmt.Errorf("expected 2 questions, got %d", len(questions)))
	}
	return sequenceQuestions(questions), nil
}

// Combine folds client-held state into a refined prompt. Stateless composer
// access for clients that do not use server-side sessions.
func (o *Orchestrator) Combine(_ context.Context, in CombineInput) (string, error) {
	if strings.TrimSpace(in.PreviousPrompt) == "" {
		return "", NewInvalidInput("previous prompt must not be empty")
	}
	return ComposePrompt(ComposeInput{
		Brief:     in.PreviousPrompt,
		Questions: questionsFromMap(in.QuestionMap),
		Answers:   in.Answers,
		Liked:     in.Liked,
		Disliked:  in.Disliked,
		Taken:     in.Taken,
	}), nil
}

// collapseAnswers folds the current round's answers into question-text keyed
// form for the feedback composer.
func collapseAnswers(sess *Session) ([]Question, map[string]string) {
	questions := make([]Question, 0, len(sess.Questions))
	byText := make(map[string]string, len(sess.Answers))
	for _, q := range sess.Questions {
		answer, ok := sess.Answers[q.ID]
		if !ok {
			continue
		}
		questions = append(questions, Question{ID: q.Text, Text: q.Text})
		byText[q.Text] = answer
	}
	return questions, byText
}

var questionIDPattern = regexp.MustCompile(`^q(\d+)$`)

// sequenceQuestions guarantees unique per-round question IDs; synthesizer
// output with missing or colliding IDs is resequenced as q1..qN.
func sequenceQuestions(questions []Question) []Question {
	out := make([]Question, len(questions))
	copy(out, questions)

	ids := make(map[string]bool, len(out))
	valid := true
	for _, q := range out {
		if q.ID == "" || ids[q.ID] {
			valid = false
			break
		}
		ids[q.ID] = true
	}
	if valid {
		return out
	}
	for i := range out {
		out[i].ID = fmt.Sprintf("q%d", i+1)
	}
	return out
}

// questionsFromMap orders a question map by its IDs, numerically for the
// q1..qN convention so q10 sorts after q2.
func questionsFromMap(m map[string]string) []Question {
	ids := make([]string, 0, len(m))
	for id := range m {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool {
		mi := questionIDPattern.FindStringSubmatch(ids[i])
		mj := questionIDPattern.FindStringSubmatch(ids[j])
		if mi != nil && mj != nil {
			ni, _ := strconv.Atoi(mi[1])
			nj, _ := strconv.Atoi(mj[1])
			return ni < nj
		}
		return ids[i] < ids[j]
	})

	out := make([]Question, 0, len(ids))
	for _, id := range ids {
		out = append(out, Question{ID: id, Text: m[id]})
	}
	return out
}

func emptyIfNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}
