package agents

import "sort"

// Registry holds one agent per type. A Registry is built once and read
// concurrently; Register must not be called while an audit is running.
type Registry struct {
	agents map[AgentType]Agent
}

// NewRegistry creates a registry holding the given agents. A later agent of
// the same type replaces an earlier one.
func NewRegistry(agents ...Agent) *Registry {
	r := &Registry{agents: make(map[AgentType]Agent, len(agents))}
	for _, a := range agents {
		r.Register(a)
	}
	return r
}

// DefaultRegistry returns a fresh registry with the four built-in agents.
func DefaultRegistry() *Registry {
	return NewRegistry(
		NewOriginAgent(),
		NewATGAgent(),
		NewTaxAgent(),
		NewPaymentAgent(),
	)
}

// Register adds or replaces the agent for a.Type().
func (r *Registry) Register(a Agent) {
	r.agents[a.Type()] = a
}

// Get returns the agent registered for t.
func (r *Registry) Get(t AgentType) (Agent, bool) {
	a, ok := r.agents[t]
	return a, ok
}

// All returns the registered agents in canonical order.
func (r *Registry) All() []Agent {
	out := make([]Agent, 0, len(r.agents))
	for _, a := range r.agents {
		out = append(out, a)
	}
	sort.Slice(out, func(i, j int) bool {
		ri, rj := Rank(out[i].Type()), Rank(out[j].Type())
		if ri != rj {
			return ri < rj
		}
		return out[i].Type() < out[j].Type()
	})
	return out
}
