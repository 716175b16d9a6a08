package core

import (
	"context"
	"sync"
)

// MockSynthesizer implements QuestionSynthesizer with canned responses.
type MockSynthesizer struct {
	QuestionsOut []Question
	ClarifyOut   []Question
	Err          error

	mu            sync.Mutex
	QuestionCalls int
	ClarifyCalls  int
	LastBrief     string
	LastPrompt    string
}

func (m *MockSynthesizer) Questions(_ context.Context, brief string) ([]Question, error) {
	m.mu.Lock()
	m.QuestionCalls++
	m.LastBrief = brief
	m.mu.Unlock()
	if m.Err != nil {
		return nil, m.Err
	}
	return append([]Question(nil), m.QuestionsOut...), nil
}

func (m *MockSynthesizer) Clarify(_ context.Context, prompt string) ([]Question, error) {
	m.mu.Lock()
	m.ClarifyCalls++
	m.LastPrompt = prompt
	m.mu.Unlock()
	if m.Err != nil {
		return nil, m.Err
	}
	return append([]Question(nil), m.ClarifyOut...), nil
}

// MockGenerator implements NameGenerator. Batches are returned in order; the
// last batch repeats once exhausted.
type MockGenerator struct {
	Batches [][]string
	Err     error

	mu         sync.Mutex
	Calls      int
	LastPrompt string
}

func (m *MockGenerator) Generate(_ context.Context, prompt string, _ Settings) ([]string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Calls++
	m.LastPrompt = prompt
	if m.Err != nil {
		return nil, m.Err
	}
	if len(m.Batches) == 0 {
		return nil, nil
	}
	idx := m.Calls - 1
	if idx >= len(m.Batches) {
		idx = len(m.Batches) - 1
	}
	return append([]string(nil), m.Batches[idx]...), nil
}

// MockChecker implements AvailabilityChecker from a fixed status table.
// Names absent from both tables are reported available.
type MockChecker struct {
	Statuses map[string]Status
	Errs     map[string]error

	mu    sync.Mutex
	Calls int
}

func (m *MockChecker) Check(_ context.Context, name string) (Status, error) {
	m.mu.Lock()
	m.Calls++
	m.mu.Unlock()
	if err, ok := m.Errs[name]; ok {
		return "", err
	}
	if status, ok := m.Statuses[name]; ok {
		return status, nil
	}
	return StatusAvailable, nil
}
