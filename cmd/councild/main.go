// cmd/councild/main.go
//
// councild is the long-running daemon: it loads .council/config.yaml
// from the working directory, wires the deliberation pipeline, and
// serves the HTTP API plus the per-run websocket event stream.
package main

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"

	"github.com/kingrea/council/internal/config"
	"github.com/kingrea/council/internal/council"
	"github.com/kingrea/council/internal/gateway"
	"github.com/kingrea/council/internal/logbook"
	"github.com/kingrea/council/internal/roster"
	"github.com/kingrea/council/internal/runner"
	"github.com/kingrea/council/internal/server"
	"github.com/kingrea/council/internal/store"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "councild: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	// Missing .env is fine; keys may come from the real environment.
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
	lb.Printf("councild starting with %d participants", len(cfg.Participants()))

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

	srv := server.New(r, st, server.WithLogger(lb), server.WithLogbook(lb))
	lb.Printf("listening on %s", cfg.Project.Server.Listen)
	return srv.Listen(cfg.Project.Server.Listen)
}

// buildClients resolves one API client per participant that can be
// called: every enabled participant plus the synthesizer.
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
