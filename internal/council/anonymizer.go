package council

import "fmt"

// LabelMap records the bijection between opaque response labels and the
// participants whose stage-one answers survived collection. Labels are
// assigned in the participants' declared order, not completion order,
// so a fixed surviving subset always yields the same map. Scoped to one
// turn; discarded once the turn's metadata is handed off.
type LabelMap struct {
	order         []string
	byLabel       map[string]string
	byParticipant map[string]string
}

// AssignLabels labels the surviving stage-one responses in order:
// "Response A", "Response B", and so on.
func AssignLabels(responses []Stage1Response) LabelMap {
	m := LabelMap{
		order:         make([]string, 0, len(responses)),
		byLabel:       make(map[string]string, len(responses)),
		byParticipant: make(map[string]string, len(responses)),
	}
	for i, r := range responses {
		label := labelForIndex(i)
		m.order = append(m.order, label)
		m.byLabel[label] = r.Participant
		m.byParticipant[r.Participant] = label
	}
	return m
}

// labelForIndex produces A..Z, then AA, AB, ... for larger councils.
func labelForIndex(i int) string {
	name := ""
	n := i
	for {
		name = string(rune('A'+n%26)) + name
		n = n/26 - 1
		if n < 0 {
			break
		}
	}
	return fmt.Sprintf("Response %s", name)
}

// Labels returns every label in assignment order.
func (m LabelMap) Labels() []string {
	return append([]string{}, m.order...)
}

// Len reports how many responses were labeled.
func (m LabelMap) Len() int {
	return len(m.order)
}

// Participant resolves a label back to its participant.
func (m LabelMap) Participant(label string) (string, bool) {
	id, ok := m.byLabel[label]
	return id, ok
}

// Label looks up the label assigned to a participant.
func (m LabelMap) Label(participant string) (string, bool) {
	label, ok := m.byParticipant[participant]
	return label, ok
}

// Snapshot copies the label→participant mapping for turn metadata.
func (m LabelMap) Snapshot() map[string]string {
	out := make(map[string]string, len(m.byLabel))
	for label, id := range m.byLabel {
		out[label] = id
	}
	return out
}
