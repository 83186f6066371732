package agent

import (
	"fmt"

	"github.com/spec-kit/ticket-advisor/internal/domain"
)

// ObservationStore records one result per tool and the set of tools used.
type ObservationStore struct {
	results map[domain.ToolName]domain.Observation
	order   []domain.ToolName
}

func NewObservationStore() *ObservationStore {
	return &ObservationStore{results: make(map[domain.ToolName]domain.Observation)}
}

// Record stores the result of name. A tool can be recorded only once.
func (s *ObservationStore) Record(name domain.ToolName, obs domain.Observation) error {
	if _, exists := s.results[name]; exists {
		return fmt.Errorf("tool %s already observed", name)
	}
	s.results[name] = obs
	s.order = append(s.order, name)
	return nil
}

// Used reports whether name has been dispatched.
func (s *ObservationStore) Used(name domain.ToolName) bool {
	_, ok := s.results[name]
	return ok
}

func (s *ObservationStore) Get(name domain.ToolName) (domain.Observation, bool) {
	obs, ok := s.results[name]
	return obs, ok
}

// UsedTools lists tools in the order they were dispatched.
func (s *ObservationStore) UsedTools() []domain.ToolName {
	return append([]domain.ToolName(nil), s.order...)
}

func (s *ObservationStore) Len() int {
	return len(s.order)
}

// Unused filters candidates, keeping their order.
func (s *ObservationStore) Unused(candidates []domain.ToolName) []domain.ToolName {
	out := make([]domain.ToolName, 0, len(candidates))
	for _, name := range candidates {
		if !s.Used(name) {
			out = append(out, name)
		}
	}
	return out
}

// Category returns the successful categorizer result, if any.
func (s *ObservationStore) Category() *domain.CategoryResult {
	obs, ok := s.results[domain.ToolCategorizer]
	if !ok || obs.Failed() {
		return nil
	}
	return obs.Category
}

// Priority returns the successful scorer result, if any.
func (s *ObservationStore) Priority() *domain.PriorityResult {
	obs, ok := s.results[domain.ToolPriority]
	if !ok || obs.Failed() {
		return nil
	}
	return obs.Priority
}

// Search returns the successful knowledge-base result, if any.
func (s *ObservationStore) Search() *domain.SearchResult {
	obs, ok := s.results[domain.ToolKBSearch]
	if !ok || obs.Failed() {
		return nil
	}
	return obs.Search
}

// session is the state of one analysis. It is owned by a single Analyze call.
type session struct {
	ticket       domain.Ticket
	text         string
	chain        []domain.ReasoningStep
	observations *ObservationStore
	step         int
}

func newSession(ticket domain.Ticket) *session {
	return &session{
		ticket:       ticket,
		text:         ticket.Text(),
		chain:        make([]domain.ReasoningStep, 0, 3),
		observations: NewObservationStore(),
	}
}

// inputFor attaches the detected category to every tool except the categorizer.
func (s *session) inputFor(name domain.ToolName) domain.ActionInput {
	input := domain.ActionInput{TicketText: s.text}
	if name == domain.ToolCategorizer {
		return input
	}
	if cat := s.observations.Category(); cat != nil {
		input.Category = cat.Category
	}
	return input
}
