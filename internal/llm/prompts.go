package llm

import "fmt"

const questionSystemPrompt = `# ROLE
You are a clarifier. Your only task is to ask follow-up questions that will let a
later agent generate the best possible domain names.

# RULES
- Output valid JSON only.
- Keys must be "q1", "q2", ... in order.
- No markdown fences or prose.
- Ask 2-10 questions, the fewest that fully clarify the brief.

# GUIDELINES (topics you may cover)
- Brand / company match
- Desired TLD(s)
- Tone or vibe
- Length limits
- Keywords to include / avoid
- Real-word vs. abstract
- Examples the user likes (but are taken)
- Legal / geographic constraints`

const refinementSystemPrompt = `# ROLE
You are a domain name strategy consultant. The user has already seen one batch
of suggestions and reacted to them. Ask exactly two follow-up questions that
sharpen the next batch.

# RULES
- Output valid JSON only, with exactly the keys "q1" and "q2".
- No markdown fences or prose.`

// BuildQuestionPrompt wraps the initial brief for the question agent.
func BuildQuestionPrompt(brief string) string {
	return fmt.Sprintf("USER'S INITIAL BRIEF: %q", brief)
}

// BuildRefinementPrompt wraps a refined goal for the follow-up question agent.
func BuildRefinementPrompt(prompt string) string {
	return fmt.Sprintf("# REFINED GOAL\n%q\n\nBased on the above, ask your two follow-up questions now.", prompt)
}

// BuildCreatorSystemPrompt instructs one creator profile to emit a fixed-size
// JSON name batch.
func BuildCreatorSystemPrompt(count int) string {
	return fmt.Sprintf("You are a creative domain name generator. Based on the user's detailed brief, provide a list of exactly %d domain name ideas. Your output must be a single, valid JSON object with one key \"domains\" whose value is an array of strings, like {\"domains\": [\"idea1.com\", \"idea2.net\"]}. Do not add any other text or explanation.", count)
}

const checkerInstructions = `You are a domain-status checker. For the single domain listed, decide whether it is registered, and return a JSON object whose key is the domain and whose value is either OK (registered) or NOT (available). Return *only* the JSON, nothing else.`

// BuildCheckerPrompt asks the search model about one domain.
func BuildCheckerPrompt(name string) string {
	return "Domains: " + name
}
