// cmd/council/main.go
//
// council is the one-shot CLI: it runs a single deliberation turn
// in-process and watches it through the TUI monitor. The turn commits
// to .council/conversations even if the monitor is quit early.
package main

import (
	"flag"
	"fmt"
	"os"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/joho/godotenv"

	"github.com/kingrea/council/internal/config"
	"github.com/kingrea/council/internal/council"
	"github.com/kingrea/council/internal/gateway"
	"github.com/kingrea/council/internal/logbook"
	"github.com/kingrea/council/internal/roster"
	"github.com/kingrea/council/internal/runner"
	"github.com/kingrea/council/internal/store"
	"github.com/kingrea/council/internal/tui"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "council: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	directive := flag.String("directive", "", "synthesis directive: balanced, risk-averse, or novelty-seeking")
	conversationID := flag.String("conversation", "", "append the turn to an existing conversation")
	flag.Parse()
	query := strings.TrimSpace(strings.Join(flag.Args(), " "))
	if query == "" {
		return fmt.Errorf("usage: council [-directive name] [-conversation id] <query>")
	}

	_ = godotenv.Load()

	cwd, err := os.Getwd()
	if err != nil {
		return fmt.Errorf("working directory: %w", err)
	}
	if err := config.InitCouncilDir(cwd); err != nil {
		return err
	}
	cfg, err := config.Load(cwd)
	if err != nil {
		return err
	}

	lb, err := logbook.New(cfg.LogPath())
	if err != nil {
		return err
	}
	registry, err := roster.New(cfg.Participants(), cfg.Project.Synthesizer)
	if err != nil {
		return err
	}
	clients, err := buildClients(registry)
	if err != nil {
		return err
	}
	gw := gateway.New(clients, cfg.GatewayLimits(), gateway.WithLogger(lb))
	st, err := store.New(cfg.ConversationsDir())
	if err != nil {
		return err
	}
	orch, err := council.NewOrchestrator(gw, registry,
		council.WithLogger(lb),
		council.WithDefaultDirective(cfg.Project.Directive),
	)
	if err != nil {
		return err
	}
	r, err := runner.New(orch, st, runner.WithLogger(lb))
	if err != nil {
		return err
	}

	convID := *conversationID
	if convID == "" {
		conv, err := st.Create(truncateTitle(query))
		if err != nil {
			return err
		}
		convID = conv.ID
	}

	handle, err := r.Submit(convID, council.TurnInput{Query: query, Directive: *directive})
	if err != nil {
		return err
	}

	p := tea.NewProgram(tui.NewMonitor(handle, query), tea.WithAltScreen())
	if _, err := p.Run(); err != nil {
		return fmt.Errorf("tui: %w", err)
	}

	select {
	case <-handle.Done():
		if _, err := handle.Wait(); err != nil {
			return err
		}
		fmt.Printf("Turn committed to conversation %s\n", convID)
	default:
		// Monitor was quit mid-run. The runner owns the turn; it will
		// still commit in the background once we wait it out.
		fmt.Printf("Detached; waiting for the run to commit to %s\n", convID)
		if _, err := handle.Wait(); err != nil {
			return err
		}
		fmt.Printf("Turn committed to conversation %s\n", convID)
	}
	return nil
}

func truncateTitle(query string) string {
	const max = 60
	if len(query) <= max {
		return query
	}
	return query[:max] + "…"
}

func buildClients(registry *roster.Registry) (map[string]gateway.Client, error) {
	participants := registry.Enabled()
	if s := registry.Synthesizer(); !s.Enabled {
		participants = append(participants, s)
	}
	clients := make(map[string]gateway.Client, len(participants))
	for _, p := range participants {
		key := os.Getenv(p.APIKeyEnv)
		if key == "" {
			return nil, fmt.Errorf("participant %s: %s is not set", p.ID, p.APIKeyEnv)
		}
		client, err := gateway.NewOpenAIClient(key, p.BaseURL)
		if err != nil {
			return nil, fmt.Errorf("participant %s: %w", p.ID, err)
		}
		clients[p.ID] = client
	}
	return clients, nil
}
