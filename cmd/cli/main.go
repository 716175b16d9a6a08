// Command cli runs an interactive domain-naming session in the terminal,
// driving the orchestrator directly without the HTTP layer.
package main

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"

	"github.com/joho/godotenv"

	"github.com/guc1/domain-agent/internal/config"
	"github.com/guc1/domain-agent/internal/core"
	"github.com/guc1/domain-agent/internal/llm"
	"github.com/guc1/domain-agent/internal/rdap"
	"github.com/guc1/domain-agent/internal/store"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "fatal: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		return err
	}

	// Keep stdout clean for the interactive prompt.
	log := core.NewLoggerWriter(cfg.LogLevel, os.Stderr)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	agents, err := llm.LoadAgents(cfg.AgentsFile)
	if err != nil {
		return err
	}

	client, err := llm.NewClient(&llm.Config{
		APIKey:  cfg.OpenRouterAPIKey,
		BaseURL: cfg.OpenRouterBaseURL,
	})
	if err != nil {
		return err
	}

	var checker core.AvailabilityChecker
	if agents.Checker.Mode == "MODEL" {
		checker = llm.NewSearchChecker(client, agents, log)
	} else {
		checker = rdap.NewChecker(rdap.NewBootstrap(rdap.DefaultBootstrapURL, nil), 0, log)
	}

	orc := core.NewOrchestrator(
		store.NewMemory(cfg.SessionTTL),
		llm.NewSynthesizer(client, agents, log),
		llm.NewCreatorPool(client, agents, log),
		checker,
		core.WithLogger(log),
		core.WithMaxAttempts(cfg.MaxGenerationAttempts),
		core.WithCheckConcurrency(cfg.CheckConcurrency),
	)

	return runSession(ctx, orc)
}

func runSession(ctx context.Context, orc *core.Orchestrator) error {
	in := bufio.NewScanner(os.Stdin)

	fmt.Println("--- Domain Agent ---")
	brief := prompt(in, "Describe the business or project you need a domain for: ")
	if brief == "" {
		return fmt.Errorf("a brief is required")
	}

	start, err := orc.Start(ctx, brief)
	if err != nil {
		return err
	}
	questions := start.Questions
	sessionID := start.SessionID

	for round := 1; ; round++ {
		fmt.Printf("\n%s\nRound #%d\n", strings.Repeat("=", 50), round)

		answers := make(map[string]string, len(questions))
		for _, q := range questions {
			a := prompt(in, fmt.Sprintf("? %s ", q.Text))
			if a == "" {
				a = "no comment"
			}
			answers[q.ID] = a
		}

		if _, err := orc.SubmitAnswers(ctx, sessionID, answers); err != nil {
			return err
		}

		result, err := orc.Generate(ctx, sessionID)
		if err != nil {
			return err
		}

		if len(result.Available) == 0 {
			fmt.Println("\nNo available domains in this batch.")
		} else {
			fmt.Println("\nThe following domains appear to be AVAILABLE:")
			for i, name := range result.Available {
				fmt.Printf("  %d. %s\n", i+1, name)
			}
		}

		fmt.Println("\nEnter the numbers of domains you like (e.g. '1, 3'),")
		fmt.Println("press Enter for a new batch, or type 'n' to stop.")
		choice := prompt(in, "> ")

		switch strings.ToLower(choice) {
		case "n", "no", "stop", "exit":
			fmt.Println("\nSession ended.")
			return nil
		}

		fb := core.FeedbackInput{Liked: map[string]string{}}
		for _, field := range strings.Split(choice, ",") {
			i, err := strconv.Atoi(strings.TrimSpace(field))
			if err != nil || i < 1 || i > len(result.Available) {
				continue
			}
			name := result.Available[i-1]
			reason := prompt(in, fmt.Sprintf("  Why did you like '%s'? (optional) ", name))
			if reason == "" {
				reason = "no specific reason given"
			}
			fb.Liked[name] = reason
		}
		if len(fb.Liked) == 0 {
			fb.DislikeReason = prompt(in, "What did you dislike about this batch? ")
			if fb.DislikeReason == "" {
				fb.DislikeReason = "no reason given"
			}
		}

		next, err := orc.Feedback(ctx, sessionID, fb)
		if err != nil {
			return err
		}
		questions = next.Questions
	}
}

func prompt(in *bufio.Scanner, label string) string {
	fmt.Print(label)
	if !in.Scan() {
		return ""
	}
	return strings.TrimSpace(in.Text())
}
