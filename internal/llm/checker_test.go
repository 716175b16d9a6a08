package llm

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/guc1/domain-agent/internal/core"
)

func newSearchChecker(t *testing.T, reply string) *SearchChecker {
	t.Helper()
	srv, _ := chatServer(t, reply)
	c := newTestClient(t, srv.URL)
	return NewSearchChecker(c, DefaultAgents(), core.NopLogger{})
}

func TestSearchChecker_Check(t *testing.T) {
	cases := []struct {
		name  string
		reply string
		want  core.Status
	}{
		{"registered", `{"brewbox.com": "OK"}`, core.StatusTaken},
		{"available", `{"brewbox.com": "NOT"}`, core.StatusAvailable},
		{"lowercase verdict", `{"brewbox.com": "not"}`, core.StatusAvailable},
		{"fenced json", "```json\n{\"brewbox.com\": \"NOT\"}\n```", core.StatusAvailable},
		{"prose wrapped", `Based on my search: {"brewbox.com": "OK"} is the result.`, core.StatusTaken},
		{"unquoted verdict", `{"brewbox.com": NOT}`, core.StatusAvailable},
		{"missing domain", `{"other.com": "NOT"}`, core.StatusTaken},
		{"ambiguous verdict", `{"brewbox.com": "MAYBE"}`, core.StatusTaken},
		{"unparseable", `I could not determine the status.`, core.StatusTaken},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			checker := newSearchChecker(t, tc.reply)
			status, err := checker.Check(context.Background(), "brewbox.com")
			require.NoError(t, err)
			assert.Equal(t, tc.want, status)
		})
	}
}

func TestSearchChecker_CheckNormalizesName(t *testing.T) {
	checker := newSearchChecker(t, `{"BrewBox.COM": "NOT"}`)
	status, err := checker.Check(context.Background(), "brewbox.com")
	require.NoError(t, err)
	assert.Equal(t, core.StatusAvailable, status)
}

func TestParseVerdicts_RegexFallback(t *testing.T) {
	got := parseVerdicts(`The results are "a.com": "OK", "b.com": NOT, done.`)
	assert.Equal(t, map[string]string{"a.com": "OK", "b.com": "NOT"}, got)
}
