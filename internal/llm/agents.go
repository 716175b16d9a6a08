package llm

import (
	"context"
	"fmt"
	"regexp"
	"sort"
	"strconv"

	"github.com/guc1/domain-agent/internal/core"
)

// Synthesizer implements core.QuestionSynthesizer over the model API.
type Synthesizer struct {
	client *Client
	agents AgentsConfig
	log    core.Logger
}

// NewSynthesizer builds a question synthesizer.
func NewSynthesizer(client *Client, agents AgentsConfig, log core.Logger) *Synthesizer {
	return &Synthesizer{client: client, agents: agents, log: log}
}

// Questions asks the clarifier model for 2-10 questions about a brief.
func (s *Synthesizer) Questions(ctx context.Context, brief string) ([]core.Question, error) {
	out, err := ChatJSON[map[string]string](s.client, ctx, ChatParams{
		Agent:       "question",
		Model:       s.agents.Question.Model,
		Temperature: s.agents.Question.Temperature,
		System:      questionSystemPrompt,
		User:        BuildQuestionPrompt(brief),
		JSONMode:    true,
	}, func(m *map[string]string) error {
		if n := len(*m); n < 2 || n > 10 {
			return fmt.Errorf("expected 2-10 questions, got %d", n)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	questions := questionsFromKeyed(*out)
	s.log.Info("clarifying questions generated", "count", len(questions))
	return questions, nil
}

// Clarify asks the refinement model for exactly two follow-up questions.
func (s *Synthesizer) Clarify(ctx context.Context, prompt string) ([]core.Question, error) {
	out, err := ChatJSON[map[string]string](s.client, ctx, ChatParams{
		Agent:       "refinement",
		Model:       s.agents.Refinement.Model,
		Temperature: s.agents.Refinement.Temperature,
		System:      refinementSystemPrompt,
		User:        BuildRefinementPrompt(prompt),
		JSONMode:    true,
	}, func(m *map[string]string) error {
		if len(*m) != 2 {
			return fmt.Errorf("expected exactly 2 questions, got %d", len(*m))
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return questionsFromKeyed(*out), nil
}

var keyedQuestionPattern = regexp.MustCompile(`^q(\d+)$`)

// questionsFromKeyed orders a {"q1": ..., "q2": ...} map numerically, so q10
// sorts after q2, and preserves the keys as question IDs.
func questionsFromKeyed(m map[string]string) []core.Question {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool {
		mi := keyedQuestionPattern.FindStringSubmatch(keys[i])
		mj := keyedQuestionPattern.FindStringSubmatch(keys[j])
		if mi != nil && mj != nil {
			ni, _ := strconv.Atoi(mi[1])
			nj, _ := strconv.Atoi(mj[1])
			return ni < nj
		}
		return keys[i] < keys[j]
	})

	out := make([]core.Question, 0, len(keys))
	for _, k := range keys {
		out = append(out, core.Question{ID: k, Text: m[k]})
	}
	return out
}

// creatorOrder fixes the merge order of the three creator profiles.
var creatorOrder = []string{"A", "B", "C"}

// CreatorPool implements core.NameGenerator by fanning a prompt through up to
// three creator profiles with different sampling temperatures and merging
// their batches in profile order.
type CreatorPool struct {
	client   *Client
	creators map[string]AgentConfig
	log      core.Logger
}

// NewCreatorPool builds a creator pool from the configured profiles.
func NewCreatorPool(client *Client, agents AgentsConfig, log core.Logger) *CreatorPool {
	return &CreatorPool{client: client, creators: agents.Creators, log: log}
}

type creatorBatch struct {
	Domains []string `json:"domains"`
}

// Generate collects candidate names from the active creators. A single
// failing creator is logged and skipped; the call only errors when every
// active creator fails.
func (p *CreatorPool) Generate(ctx context.Context, prompt string, settings core.Settings) ([]string, error) {
	active := make(map[string]bool, len(settings.ActiveCreators))
	for _, tag := range settings.ActiveCreators {
		active[tag] = true
	}

	var names []string
	seen := make(map[string]bool)
	var lastErr error
	attempted := 0

	for _, tag := range creatorOrder {
		cfg, ok := p.creators[tag]
		if !ok || !active[tag] {
			continue
		}
		count := settings.GenerationCount
		if count <= 0 {
			count = cfg.GenerationCount
		}
		if count <= 0 {
			continue
		}
		attempted++

		out, err := ChatJSON[creatorBatch](p.client, ctx, ChatParams{
			Agent:       "creator-" + tag,
			Model:       cfg.Model,
			Temperature: cfg.Temperature,
			System:      BuildCreatorSystemPrompt(count),
			User:        prompt,
			JSONMode:    true,
		}, func(b *creatorBatch) error {
			if len(b.Domains) == 0 {
				return fmt.Errorf("empty domain list")
			}
			return nil
		})
		if err != nil {
			lastErr = err
			p.log.Warn("creator failed", "creator", tag, "error", err)
			continue
		}

		batch := out.Domains
		if len(batch) > count {
			batch = batch[:count]
		}
		for _, name := range batch {
			key := core.NormalizeDomain(name)
			if key == "" || seen[key] {
				continue
			}
			seen[key] = true
			names = append(names, key)
		}
	}

	if attempted == 0 {
		return nil, fmt.Errorf("no active creators configured")
	}
	if len(names) == 0 && lastErr != nil {
		return nil, lastErr
	}
	return names, nil
}
