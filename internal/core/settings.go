package core

import (
	"fmt"
	"math"
)

// Settings are per-session overrides applied to subsequent generate calls.
type Settings struct {
	// GenerationCount is how many names each active creator is asked for
	// per generation batch.
	GenerationCount int `json:"generation_count"`

	// DomainGoal is the number of available names a generate call tries to
	// accumulate before giving up after the attempt cap.
	DomainGoal int `json:"domain_goal"`

	// ActiveCreators selects which creator profiles participate ("A", "B", "C").
	ActiveCreators []string `json:"active_creators"`

	// Tone is an optional style hint passed through to the generator prompt.
	Tone string `json:"tone,omitempty"`
}

// DefaultSettings mirrors the server defaults: every creator active, one name
// each, stop as soon as a single available name is found.
func DefaultSettings() Settings {
	return Settings{
		GenerationCount: 1,
		DomainGoal:      1,
		ActiveCreators:  []string{"A", "B", "C"},
	}
}

func (s Settings) clone() Settings {
	out := s
	out.ActiveCreators = make([]string, len(s.ActiveCreators))
	copy(out.ActiveCreators, s.ActiveCreators)
	return out
}

// settingKeys is the fixed allow-list of recognized option names.
var settingKeys = map[string]bool{
	"generation_count": true,
	"domain_goal":      true,
	"active_creators":  true,
	"tone":             true,
}

// Apply merges raw overrides into the settings, rejecting unrecognized keys
// and ill-typed values. Values arrive as decoded JSON, so numbers are float64.
func (s *Settings) Apply(overrides map[string]any) error {
	for key, val := range overrides {
		if !settingKeys[key] {
			return NewInvalidInput(fmt.Sprintf("unrecognized setting %q", key))
		}
		switch key {
		case "generation_count", "domain_goal":
			n, err := asPositiveInt(key, val)
			if err != nil {
				return err
			}
			if key == "generation_count" {
				s.GenerationCount = n
			} else {
				s.DomainGoal = n
			}
		case "active_creators":
			creators, err := asStringSlice(key, val)
			if err != nil {
				return err
			}
			s.ActiveCreators = creators
		case "tone":
			tone, ok := val.(string)
			if !ok {
				return NewInvalidInput("setting \"tone\" must be a string")
			}
			s.Tone = tone
		}
	}
	return nil
}

func asPositiveInt(key string, val any) (int, error) {
	var n int
	switch v := val.(type) {
	case int:
		n = v
	case float64:
		if v != math.Trunc(v) {
			return 0, NewInvalidInput(fmt.Sprintf("setting %q must be an integer", key))
		}
		n = int(v)
	default:
		return 0, NewInvalidInput(fmt.Sprintf("setting %q must be an integer", key))
	}
	if n < 1 {
		return 0, NewInvalidInput(fmt.Sprintf("setting %q must be positive", key))
	}
	return n, nil
}

func asStringSlice(key string, val any) ([]string, error) {
	switch v := val.(type) {
	case []string:
		return append([]string(nil), v...), nil
	case []any:
		out := make([]string, 0, len(v))
		for _, item := range v {
			s, ok := item.(string)
			if !ok {
				return nil, NewInvalidInput(fmt.Sprintf("setting %q must be a list of strings", key))
			}
			out = append(out, s)
		}
		return out, nil
	default:
		return nil, NewInvalidInput(fmt.Sprintf("setting %q must be a list of strings", key))
	}
}
