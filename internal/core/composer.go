package core

import (
	"fmt"
	"strings"
)

// ComposeInput is the accumulated context folded into a generator prompt.
type ComposeInput struct {
	Brief         string
	Questions     []Question
	Answers       map[string]string
	Liked         map[string]string
	Disliked      map[string]string
	DislikeReason string
	Taken         []string
	Tone          string
}

// ComposePrompt deterministically folds a brief, answered questions and prior
// feedback into a single refined prompt for the name generator. Pure function,
// no side effects: the brief comes first, then Q/A pairs in question order,
// then liked domains as positive signal, disliked domains and the dislike
// reason as negative signal, and taken domains to steer away from.
func ComposePrompt(in ComposeInput) string {
	var sb strings.Builder

	sb.WriteString("User Brief: ")
	sb.WriteString(strings.TrimSpace(in.Brief))

	var qa []string
	for _, q := range in.Questions {
		answer, ok := in.Answers[q.ID]
		if !ok {
			continue
		}
		qa = append(qa, fmt.Sprintf("Q: %s\nA: %s", q.Text, answer))
	}
	if len(qa) > 0 {
		sb.WriteString("\n\n")
		sb.WriteString(strings.Join(qa, "\n"))
	}

	if len(in.Liked) > 0 {
		sb.WriteString("\n\nPOSITIVE FEEDBACK (domains the user liked):")
		for _, name := range sortedKeys(in.Liked) {
			sb.WriteString(fmt.Sprintf("\n- Liked '%s': %s", name, in.Liked[name]))
		}
	}

	if len(in.Disliked) > 0 {
		sb.WriteString("\n\nNEGATIVE FEEDBACK (domains the user disliked):")
		for _, name := range sortedKeys(in.Disliked) {
			sb.WriteString(fmt.Sprintf("\n- Disliked '%s': %s", name, in.Disliked[name]))
		}
	}

	if reason := strings.TrimSpace(in.DislikeReason); reason != "" {
		sb.WriteString("\n\nCRITICAL FEEDBACK (why the user disliked the previous suggestions):\n- ")
		sb.WriteString(reason)
	}

	if len(in.Taken) > 0 {
		sb.WriteString("\n\nThese names were good ideas but are already taken; avoid names resembling these: ")
		sb.WriteString(strings.Join(in.Taken, ", "))
	}

	if tone := strings.TrimSpace(in.Tone); tone != "" {
		sb.WriteString("\n\nDesired tone: ")
		sb.WriteString(tone)
	}

	return sb.String()
}
