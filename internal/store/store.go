package store

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/kingrea/council/internal/council"
)

// ErrNotFound is returned when no conversation exists for the given ID.
var ErrNotFound = errors.New("store: conversation not found")

// Conversation is the persisted unit: an append-only sequence of
// committed turns.
type Conversation struct {
	ID        string         `json:"id"`
	Title     string         `json:"title"`
	CreatedAt time.Time      `json:"created_at"`
	Turns     []council.Turn `json:"turns"`
}

// Metadata summarizes a conversation for listings.
type Metadata struct {
	ID        string    `json:"id"`
	Title     string    `json:"title"`
	CreatedAt time.Time `json:"created_at"`
	TurnCount int       `json:"turn_count"`
}

// Store persists conversations as one JSON document each under dir.
// Writes are serialized; the pipeline appends exactly once per
// completed turn.
type Store struct {
	dir   string
	mu    sync.Mutex
	clock func() time.Time
}

// Option customizes the store.
type Option func(*Store)

// WithClock injects a deterministic clock (tests).
func WithClock(clock func() time.Time) Option {
	return func(s *Store) {
		if clock != nil {
			s.clock = clock
		}
	}
}

// New creates (or reuses) the conversation directory.
func New(dir string, opts ...Option) (*Store, error) {
	if strings.TrimSpace(dir) == "" {
		return nil, fmt.Errorf("store: directory is required")
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("store: ensure dir: %w", err)
	}
	s := &Store{dir: dir, clock: time.Now}
	for _, opt := range opts {
		if opt != nil {
			opt(s)
		}
	}
	return s, nil
}

// Create starts a new, empty conversation.
func (s *Store) Create(title string) (Conversation, error) {
	conv := Conversation{
		ID:        uuid.NewString(),
		Title:     strings.TrimSpace(title),
		CreatedAt: s.clock().UTC(),
		Turns:     []council.Turn{},
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.save(conv); err != nil {
		return Conversation{}, err
	}
	return conv, nil
}

// Get loads one conversation.
func (s *Store) Get(id string) (Conversation, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.load(id)
}

// List returns metadata for every conversation, newest first.
func (s *Store) List() ([]Metadata, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		return nil, fmt.Errorf("store: read dir: %w", err)
	}
	out := make([]Metadata, 0, len(entries))
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".json") {
			continue
		}
		conv, err := s.load(strings.TrimSuffix(entry.Name(), ".json"))
		if err != nil {
			continue
		}
		out = append(out, Metadata{
			ID:        conv.ID,
			Title:     conv.Title,
			CreatedAt: conv.CreatedAt,
			TurnCount: len(conv.Turns),
		})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

// Append commits one turn to the conversation's history. The turn's
// ephemeral metadata (label map, aggregate rankings) is stripped before
// persisting: it belongs only to the run's own caller.
func (s *Store) Append(id string, turn council.Turn) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	conv, err := s.load(id)
	if err != nil {
		return err
	}
	turn.Metadata = nil
	conv.Turns = append(conv.Turns, turn)
	return s.save(conv)
}

func (s *Store) path(id string) string {
	return filepath.Join(s.dir, id+".json")
}

func (s *Store) load(id string) (Conversation, error) {
	data, err := os.ReadFile(s.path(id))
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return Conversation{}, ErrNotFound
		}
		return Conversation{}, fmt.Errorf("store: read %s: %w", id, err)
	}
	var conv Conversation
	if err := json.Unmarshal(data, &conv); err != nil {
		return Conversation{}, fmt.Errorf("store: decode %s: %w", id, err)
	}
	return conv, nil
}

func (s *Store) save(conv Conversation) error {
	encoded, err := json.MarshalIndent(conv, "", "  ")
	if err != nil {
		return fmt.Errorf("store: encode %s: %w", conv.ID, err)
	}
	return os.WriteFile(s.path(conv.ID), append(encoded, '\n'), 0o644)
}
