package llm

import (
	"context"
	"encoding/json"
	"regexp"
	"strings"

	"github.com/guc1/domain-agent/internal/core"
)

// SearchChecker implements core.AvailabilityChecker by asking a web-search
// capable model whether a domain is registered (MODEL checking mode). Checks
// run one domain at a time; batching the whole list into a single call made
// the model hallucinate statuses.
type SearchChecker struct {
	client *Client
	model  string
	log    core.Logger
}

// NewSearchChecker builds a model-backed checker.
func NewSearchChecker(client *Client, agents AgentsConfig, log core.Logger) *SearchChecker {
	return &SearchChecker{client: client, model: agents.Checker.SearchModel, log: log}
}

var statusPairPattern = regexp.MustCompile(`"([^"]+)":\s*"?(OK|NOT)"?`)

// Check classifies one domain. An ambiguous model verdict counts as taken so
// the user is never shown a name that turns out to be registered.
func (c *SearchChecker) Check(ctx context.Context, name string) (core.Status, error) {
	raw, err := c.client.ChatText(ctx, ChatParams{
		Agent:  "checker",
		Model:  c.model,
		System: checkerInstructions,
		User:   BuildCheckerPrompt(name),
	})
	if err != nil {
		return "", err
	}

	verdicts := parseVerdicts(raw)
	status, ok := verdicts[core.NormalizeDomain(name)]
	if !ok {
		c.log.Warn("checker verdict missing domain, assuming taken", "name", name)
		return core.StatusTaken, nil
	}
	switch status {
	case "OK":
		return core.StatusTaken, nil
	case "NOT":
		return core.StatusAvailable, nil
	default:
		c.log.Warn("ambiguous checker verdict, assuming taken", "name", name, "verdict", status)
		return core.StatusTaken, nil
	}
}

// parseVerdicts reads the {"domain": "OK"|"NOT"} reply, with a regex fallback
// for models that wrap the JSON in stray text.
func parseVerdicts(raw string) map[string]string {
	out := make(map[string]string)

	var parsed map[string]string
	if err := json.Unmarshal([]byte(cleanMarkdownFences(raw)), &parsed); err == nil {
		for name, verdict := range parsed {
			out[core.NormalizeDomain(name)] = strings.ToUpper(strings.TrimSpace(verdict))
		}
		return out
	}

	for _, match := range statusPairPattern.FindAllStringSubmatch(raw, -1) {
		out[core.NormalizeDomain(match[1])] = strings.ToUpper(match[2])
	}
	return out
}
