package audit

import (
	"strings"
	"time"

	"gra-pca/sentinel/pkg/agents"
	"gra-pca/sentinel/pkg/declaration"
)

// Scope selects which declarations an audit considers before the common
// filters are applied.
type Scope string

const (
	ScopeAll       Scope = "all"
	ScopeHSCodes   Scope = "hs-codes"
	ScopeShipments Scope = "shipments"
)

// Mode selects how declarations are dispatched.
type Mode string

const (
	ModeParallel   Mode = "parallel"
	ModeSequential Mode = "sequential"
)

// DefaultMaxConcurrency is used when Options.MaxConcurrency is zero.
const DefaultMaxConcurrency = 4

// DefaultCaseID labels executions started without a case.
const DefaultCaseID = "ad-hoc"

// TargetFilters narrow the declarations an audit runs over. All present
// criteria must match.
type TargetFilters struct {
	// HSCodes are prefixes used by ScopeHSCodes.
	HSCodes []string `yaml:"hs_codes" json:"hs_codes,omitempty"`

	// ShipmentIDs are declaration identifiers used by ScopeShipments.
	ShipmentIDs []string `yaml:"shipment_ids" json:"shipment_ids,omitempty"`

	// DateFrom and DateTo are inclusive bounds on the declaration date.
	DateFrom *time.Time `yaml:"date_from" json:"date_from,omitempty"`
	DateTo   *time.Time `yaml:"date_to" json:"date_to,omitempty"`

	// Countries match either the origin or the destination country.
	Countries []string `yaml:"countries" json:"countries,omitempty"`

	// MinRiskScore keeps declarations whose pre-assessed risk is at least
	// this value. Declarations without a score count as 0.
	MinRiskScore *float64 `yaml:"min_risk_score" json:"min_risk_score,omitempty"`

	Sectors []declaration.Sector `yaml:"sectors" json:"sectors,omitempty"`
}

// AgentToggles enable or disable each agent for the whole audit.
type AgentToggles struct {
	Origin  bool `yaml:"origin" json:"origin"`
	ATG     bool `yaml:"atg" json:"atg"`
	Tax     bool `yaml:"tax" json:"tax"`
	Payment bool `yaml:"payment" json:"payment"`
}

// AllAgents enables every agent.
func AllAgents() AgentToggles {
	return AgentToggles{Origin: true, ATG: true, Tax: true, Payment: true}
}

// Enabled reports whether the agent type is switched on.
func (t AgentToggles) Enabled(at agents.AgentType) bool {
	switch at {
	case agents.AgentOrigin:
		return t.Origin
	case agents.AgentATG:
		return t.ATG
	case agents.AgentTax:
		return t.Tax
	case agents.AgentPayment:
		return t.Payment
	}
	return false
}

func (t AgentToggles) any() bool {
	return t.Origin || t.ATG || t.Tax || t.Payment
}

// Options control dispatch.
type Options struct {
	Mode           Mode `yaml:"mode" json:"mode"`
	MaxConcurrency int  `yaml:"max_concurrency" json:"max_concurrency"`

	// BatchSize is the number of declarations dispatched together in
	// parallel mode. Defaults to MaxConcurrency.
	BatchSize int `yaml:"batch_size" json:"batch_size"`
}

// Config describes one audit run.
type Config struct {
	CaseID     string        `yaml:"case_id" json:"case_id"`
	RulePackID string        `yaml:"rule_pack_id" json:"rule_pack_id,omitempty"`
	Scope      Scope         `yaml:"scope" json:"scope"`
	Filters    TargetFilters `yaml:"target_filters" json:"target_filters"`
	Agents     AgentToggles  `yaml:"agents" json:"agents"`
	Options    Options       `yaml:"options" json:"options"`
}

// DefaultConfig returns a config auditing every declaration with every agent
// in parallel.
func DefaultConfig() *Config {
	return &Config{
		CaseID: DefaultCaseID,
		Scope:  ScopeAll,
		Agents: AllAgents(),
		Options: Options{
			Mode:           ModeParallel,
			MaxConcurrency: DefaultMaxConcurrency,
		},
	}
}

// ApplyDefaults fills unset optional fields.
func (c *Config) ApplyDefaults() {
	if c.CaseID == "" {
		c.CaseID = DefaultCaseID
	}
	if c.Scope == "" {
		c.Scope = ScopeAll
	}
	if c.Options.Mode == "" {
		c.Options.Mode = ModeParallel
	}
	if c.Options.MaxConcurrency == 0 {
		c.Options.MaxConcurrency = DefaultMaxConcurrency
	}
	if c.Options.BatchSize == 0 {
		c.Options.BatchSize = c.Options.MaxConcurrency
	}
}

// Validate checks the configuration. It returns a *ConfigError describing the
// first problem found.
func (c *Config) Validate() error {
	switch c.Scope {
	case ScopeAll:
	case ScopeHSCodes:
		if len(nonEmpty(c.Filters.HSCodes)) == 0 {
			return newConfigError("target_filters.hs_codes", "scope %q requires at least one HS code prefix", c.Scope)
		}
	case ScopeShipments:
		if len(nonEmpty(c.Filters.ShipmentIDs)) == 0 {
			return newConfigError("target_filters.shipment_ids", "scope %q requires at least one shipment id", c.Scope)
		}
	default:
		return newConfigError("scope", "unknown scope %q", c.Scope)
	}

	f := c.Filters
	if f.DateFrom != nil && f.DateTo != nil && f.DateFrom.After(*f.DateTo) {
		return newConfigError("target_filters.date_from", "date_from %s is after date_to %s",
			f.DateFrom.Format(time.RFC3339), f.DateTo.Format(time.RFC3339))
	}
	if f.MinRiskScore != nil && (*f.MinRiskScore < 0 || *f.MinRiskScore > agents.MaxRiskScore) {
		return newConfigError("target_filters.min_risk_score", "must be between 0 and 100, got %v", *f.MinRiskScore)
	}
	for _, s := range f.Sectors {
		if !s.Valid() {
			return newConfigError("target_filters.sectors", "unknown sector %q", s)
		}
	}

	if !c.Agents.any() {
		return newConfigError("agents", "at least one agent must be enabled")
	}

	switch c.Options.Mode {
	case ModeParallel, ModeSequential:
	default:
		return newConfigError("options.mode", "unknown mode %q", c.Options.Mode)
	}
	if c.Options.MaxConcurrency < 1 {
		return newConfigError("options.max_concurrency", "must be positive, got %d", c.Options.MaxConcurrency)
	}
	if c.Options.BatchSize < 1 {
		return newConfigError("options.batch_size", "must be positive, got %d", c.Options.BatchSize)
	}
	return nil
}

func nonEmpty(values []string) []string {
	var out []string
	for _, v := range values {
		if strings.TrimSpace(v) != "" {
			out = append(out, v)
		}
	}
	return out
}
