package roster

import (
	"fmt"
	"strings"
)

// Participant describes one configured model identity that answers and
// critiques within a deliberation turn. The registry owns the declared
// order; the pipeline treats every field as read-only for the duration
// of a run.
type Participant struct {
	ID           string
	Name         string
	Provider     string
	Model        string
	BaseURL      string
	APIKeyEnv    string
	SystemPrompt string
	StancePrompt string
	Enabled      bool
}

// Validate ensures the participant entry is well-formed.
func (p Participant) Validate() error {
	if strings.TrimSpace(p.ID) == "" {
		return fmt.Errorf("roster: participant id is required")
	}
	if strings.TrimSpace(p.Model) == "" {
		return fmt.Errorf("roster: model is required for %s", p.ID)
	}
	return nil
}

// DisplayName returns the human-facing name, falling back to the ID.
func (p Participant) DisplayName() string {
	if p.Name != "" {
		return p.Name
	}
	return p.ID
}

// Registry holds the ordered participant list plus the designated
// synthesizer. Declared order is load-bearing: label assignment and
// ranking tie-breaks both follow it.
type Registry struct {
	participants []Participant
	synthesizer  string
}

// New validates the participant list and builds a registry. The
// synthesizer must reference one of the supplied participants.
func New(participants []Participant, synthesizerID string) (*Registry, error) {
	if len(participants) == 0 {
		return nil, fmt.Errorf("roster: at least one participant is required")
	}
	seen := make(map[string]struct{}, len(participants))
	for _, p := range participants {
		if err := p.Validate(); err != nil {
			return nil, err
		}
		if _, dup := seen[p.ID]; dup {
			return nil, fmt.Errorf("roster: duplicate participant id %s", p.ID)
		}
		seen[p.ID] = struct{}{}
	}
	synthesizerID = strings.TrimSpace(synthesizerID)
	if synthesizerID == "" {
		return nil, fmt.Errorf("roster: synthesizer id is required")
	}
	if _, ok := seen[synthesizerID]; !ok {
		return nil, fmt.Errorf("roster: synthesizer %s is not a registered participant", synthesizerID)
	}
	reg := &Registry{
		participants: append([]Participant{}, participants...),
		synthesizer:  synthesizerID,
	}
	return reg, nil
}

// All returns every participant in declared order.
func (r *Registry) All() []Participant {
	if r == nil {
		return nil
	}
	return append([]Participant{}, r.participants...)
}

// Enabled returns the enabled participants in declared order.
func (r *Registry) Enabled() []Participant {
	if r == nil {
		return nil
	}
	out := make([]Participant, 0, len(r.participants))
	for _, p := range r.participants {
		if p.Enabled {
			out = append(out, p)
		}
	}
	return out
}

// Lookup finds a participant by ID.
func (r *Registry) Lookup(id string) (Participant, bool) {
	if r == nil {
		return Participant{}, false
	}
	for _, p := range r.participants {
		if p.ID == id {
			return p, true
		}
	}
	return Participant{}, false
}

// Synthesizer returns the participant designated to produce the final
// answer. The synthesizer participates in synthesis even when its
// Enabled flag is false for the answering stages.
func (r *Registry) Synthesizer() Participant {
	p, _ := r.Lookup(r.synthesizer)
	return p
}
