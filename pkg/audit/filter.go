package audit

import (
	"strings"

	"gra-pca/sentinel/pkg/agents"
	"gra-pca/sentinel/pkg/declaration"
)

// Filter returns the declarations the audit will process, in input order.
// Nil entries are dropped.
func Filter(cfg *Config, decls []*declaration.Declaration) []*declaration.Declaration {
	m := newMatcher(cfg)
	selected := make([]*declaration.Declaration, 0, len(decls))
	for _, d := range decls {
		if d != nil && m.matches(d) {
			selected = append(selected, d)
		}
	}
	return selected
}

type matcher struct {
	scope     Scope
	hsCodes   []string
	shipments map[string]bool
	countries map[string]bool
	sectors   map[declaration.Sector]bool
	filters   TargetFilters
}

func newMatcher(cfg *Config) *matcher {
	m := &matcher{scope: cfg.Scope, hsCodes: nonEmpty(cfg.Filters.HSCodes), filters: cfg.Filters}
	if len(cfg.Filters.ShipmentIDs) > 0 {
		m.shipments = make(map[string]bool, len(cfg.Filters.ShipmentIDs))
		for _, id := range cfg.Filters.ShipmentIDs {
			m.shipments[id] = true
		}
	}
	if len(cfg.Filters.Countries) > 0 {
		m.countries = make(map[string]bool, len(cfg.Filters.Countries))
		for _, c := range cfg.Filters.Countries {
			m.countries[strings.ToUpper(strings.TrimSpace(c))] = true
		}
	}
	if len(cfg.Filters.Sectors) > 0 {
		m.sectors = make(map[declaration.Sector]bool, len(cfg.Filters.Sectors))
		for _, s := range cfg.Filters.Sectors {
			m.sectors[s] = true
		}
	}
	return m
}

func (m *matcher) matches(d *declaration.Declaration) bool {
	switch m.scope {
	case ScopeHSCodes:
		if !declaration.HasPrefix(d.HSCode, m.hsCodes) {
			return false
		}
	case ScopeShipments:
		if !m.shipments[d.ID] {
			return false
		}
	}

	f := m.filters
	if f.DateFrom != nil && d.Date.Before(*f.DateFrom) {
		return false
	}
	if f.DateTo != nil && d.Date.After(*f.DateTo) {
		return false
	}
	if m.countries != nil &&
		!m.countries[strings.ToUpper(strings.TrimSpace(d.OriginCountry))] &&
		!m.countries[strings.ToUpper(strings.TrimSpace(d.DestinationCountry))] {
		return false
	}
	if f.MinRiskScore != nil && d.EffectiveRiskScore() < *f.MinRiskScore {
		return false
	}
	if m.sectors != nil && !m.sectors[d.Sector] {
		return false
	}
	return true
}

// SelectAgents returns the agents that apply to d, in canonical order:
// origin when ECOWAS origin is claimed or the origin is an ECOWAS member,
// ATG for petroleum HS codes, tax always, payment above the payment value
// threshold. Disabled agents and agents missing from the registry are
// skipped.
func SelectAgents(d *declaration.Declaration, toggles AgentToggles, registry *agents.Registry) []agents.Agent {
	applies := map[agents.AgentType]bool{
		agents.AgentOrigin:  d.ECOWASOrigin || declaration.IsECOWAS(d.OriginCountry),
		agents.AgentATG:     declaration.IsPetroleum(d.HSCode),
		agents.AgentTax:     true,
		agents.AgentPayment: d.Value > agents.PaymentValueThreshold,
	}

	var selected []agents.Agent
	for _, at := range agents.Order {
		if !applies[at] || !toggles.Enabled(at) {
			continue
		}
		if a, ok := registry.Get(at); ok {
			selected = append(selected, a)
		}
	}
	return selected
}
