package knowledge

import (
	"fmt"
	"strconv"
	"strings"
)

// Store is the in-memory axiom collection. Entries are kept in creation order
// and are never removed; IDs come from a monotonic counter and are never
// reused.
//
// Store is not safe for concurrent use; the orchestrator owns it exclusively.
type Store struct {
	axioms []Axiom
	index  map[string]int
	nextID int
}

// NewStore creates an empty store whose first minted ID is A1.
func NewStore() *Store {
	return &Store{
		index:  make(map[string]int),
		nextID: 1,
	}
}

// ApplyProposals appends one Material axiom per proposal with a freshly
// minted ID and a single "[label] Created" history entry. The created axioms
// are returned in order.
func (s *Store) ApplyProposals(proposals []Proposal, label string) []Axiom {
	created := make([]Axiom, 0, len(proposals))
	for _, p := range proposals {
		ax := Axiom{
			ID:         formatID(s.nextID),
			Status:     StatusMaterial,
			Premises:   append([]string(nil), p.Premises...),
			Conclusion: p.Conclusion,
			Rationale:  p.Rationale,
			History:    []string{historyEntry(label, "Created")},
		}
		s.nextID++
		s.index[ax.ID] = len(s.axioms)
		s.axioms = append(s.axioms, ax)
		created = append(created, ax.clone())
	}
	return created
}

// ApplyUpdates applies each update to the axiom it references. Status and
// conclusion are overwritten only when the update supplies them; one history
// entry is appended per applied update. Updates naming unknown IDs are
// ignored. Returns the number of updates applied.
func (s *Store) ApplyUpdates(updates []Update, label string) int {
	applied := 0
	for _, u := range updates {
		i, ok := s.index[u.AxiomID]
		if !ok {
			continue
		}
		ax := &s.axioms[i]
		if u.NewStatus != "" {
			ax.Status = u.NewStatus
		}
		if u.RefinedConclusion != "" {
			ax.Conclusion = u.RefinedConclusion
		}
		ax.History = append(ax.History, historyEntry(label, u.Rationale))
		applied++
	}
	return applied
}

// ListActive returns all non-Stale axioms in creation order.
func (s *Store) ListActive() []Axiom {
	out := make([]Axiom, 0, len(s.axioms))
	for _, ax := range s.axioms {
		if ax.Active() {
			out = append(out, ax.clone())
		}
	}
	return out
}

// ListAll returns every axiom, Stale included, in creation order.
func (s *Store) ListAll() []Axiom {
	out := make([]Axiom, len(s.axioms))
	for i, ax := range s.axioms {
		out[i] = ax.clone()
	}
	return out
}

// Get returns the axiom with the given ID.
func (s *Store) Get(id string) (Axiom, bool) {
	i, ok := s.index[id]
	if !ok {
		return Axiom{}, false
	}
	return s.axioms[i].clone(), true
}

// Len returns the total number of axioms.
func (s *Store) Len() int {
	return len(s.axioms)
}

// Counts returns the number of axioms per status.
func (s *Store) Counts() map[Status]int {
	counts := make(map[Status]int, len(Statuses))
	for _, ax := range s.axioms {
		counts[ax.Status]++
	}
	return counts
}

// NextID returns the numeric part of the next ID to be minted.
func (s *Store) NextID() int {
	return s.nextID
}

// Restore replaces the store contents with axioms, e.g. from an imported
// session. nextID may be zero, in which case it is derived from the highest
// sequential ID present. Duplicate or empty IDs are rejected and leave the
// store untouched.
func (s *Store) Restore(axioms []Axiom, nextID int) error {
	index := make(map[string]int, len(axioms))
	restored := make([]Axiom, len(axioms))
	highest := 0
	for i, ax := range axioms {
		if ax.ID == "" {
			return fmt.Errorf("axiom at index %d has empty id", i)
		}
		if _, dup := index[ax.ID]; dup {
			return fmt.Errorf("duplicate axiom id %q", ax.ID)
		}
		if !ax.Status.Valid() {
			return fmt.Errorf("axiom %s has invalid status %q", ax.ID, ax.Status)
		}
		index[ax.ID] = i
		restored[i] = ax.clone()
		if n, ok := parseID(ax.ID); ok && n > highest {
			highest = n
		}
	}

	if nextID <= highest {
		nextID = highest + 1
	}

	s.axioms = restored
	s.index = index
	s.nextID = nextID
	return nil
}

func historyEntry(label, text string) string {
	return fmt.Sprintf("[%s] %s", label, text)
}

// parseID extracts n from a sequential "A<n>" identifier.
func parseID(id string) (int, bool) {
	rest, ok := strings.CutPrefix(id, "A")
	if !ok {
		return 0, false
	}
	n, err := strconv.Atoi(rest)
	if err != nil || n <= 0 {
		return 0, false
	}
	return n, true
}
