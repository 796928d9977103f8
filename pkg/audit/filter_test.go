package audit

import (
	"reflect"
	"testing"
	"time"

	"gra-pca/sentinel/pkg/agents"
	"gra-pca/sentinel/pkg/declaration"
)

func TestFilter_HSCodeScope(t *testing.T) {
	decls := []*declaration.Declaration{
		{ID: "D1", HSCode: "27101990"},
		{ID: "D2", HSCode: "52010000"},
	}
	cfg := DefaultConfig()
	cfg.Scope = ScopeHSCodes
	cfg.Filters.HSCodes = []string{"2710"}

	got := ids(Filter(cfg, decls))
	if !reflect.DeepEqual(got, []string{"D1"}) {
		t.Errorf("Filter() = %v, want [D1]", got)
	}
}

func TestFilter(t *testing.T) {
	from := day(time.February, 15)
	to := day(time.March, 20)

	tests := []struct {
		name   string
		modify func(*Config)
		want   []string
	}{
		{"all", func(*Config) {}, []string{"D1", "D2", "D3", "D4"}},
		{"hs prefixes", func(c *Config) {
			c.Scope = ScopeHSCodes
			c.Filters.HSCodes = []string{"52", "8703.23"}
		}, []string{"D2", "D3"}},
		{"shipments keep input order", func(c *Config) {
			c.Scope = ScopeShipments
			c.Filters.ShipmentIDs = []string{"D4", "D1", "missing"}
		}, []string{"D1", "D4"}},
		{"inclusive date range", func(c *Config) {
			c.Filters.DateFrom = &from
			c.Filters.DateTo = &to
		}, []string{"D2", "D3"}},
		{"country matches origin or destination", func(c *Config) {
			c.Filters.Countries = []string{"tg", "JP"}
		}, []string{"D3", "D4"}},
		{"min risk treats missing score as zero", func(c *Config) {
			c.Filters.MinRiskScore = declaration.Float(55)
		}, []string{"D1", "D2"}},
		{"zero min risk keeps unscored", func(c *Config) {
			c.Filters.MinRiskScore = declaration.Float(0)
		}, []string{"D1", "D2", "D3", "D4"}},
		{"sectors", func(c *Config) {
			c.Filters.Sectors = []declaration.Sector{declaration.SectorPetroleum, declaration.SectorOther}
		}, []string{"D1", "D4"}},
		{"filters compose with AND", func(c *Config) {
			c.Scope = ScopeHSCodes
			c.Filters.HSCodes = []string{"27", "52"}
			c.Filters.Countries = []string{"CN"}
		}, []string{"D2"}},
		{"no match is empty", func(c *Config) {
			c.Filters.Countries = []string{"US"}
		}, []string{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.modify(cfg)
			got := ids(Filter(cfg, fixtures()))
			if !reflect.DeepEqual(got, tt.want) {
				t.Errorf("Filter() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestFilter_DropsNil(t *testing.T) {
	decls := []*declaration.Declaration{nil, {ID: "A"}, nil}
	got := ids(Filter(DefaultConfig(), decls))
	if !reflect.DeepEqual(got, []string{"A"}) {
		t.Errorf("Filter() = %v", got)
	}
}

func agentTypes(list []agents.Agent) []agents.AgentType {
	out := make([]agents.AgentType, len(list))
	for i, a := range list {
		out[i] = a.Type()
	}
	return out
}

func TestSelectAgents(t *testing.T) {
	registry := agents.DefaultRegistry()

	tests := []struct {
		name    string
		decl    *declaration.Declaration
		toggles AgentToggles
		want    []agents.AgentType
	}{
		{
			name:    "ecowas claim petroleum high value",
			decl:    &declaration.Declaration{ID: "x", HSCode: "27101990", OriginCountry: "CN", ECOWASOrigin: true, Value: 5000},
			toggles: AllAgents(),
			want:    []agents.AgentType{agents.AgentOrigin, agents.AgentATG, agents.AgentTax, agents.AgentPayment},
		},
		{
			name:    "ecowas member origin without claim",
			decl:    &declaration.Declaration{ID: "x", HSCode: "52010000", OriginCountry: "ng", Value: 1000},
			toggles: AllAgents(),
			want:    []agents.AgentType{agents.AgentOrigin, agents.AgentTax},
		},
		{
			name:    "tax only",
			decl:    &declaration.Declaration{ID: "x", HSCode: "87032390", OriginCountry: "JP", Value: 999},
			toggles: AllAgents(),
			want:    []agents.AgentType{agents.AgentTax},
		},
		{
			name:    "payment just above threshold",
			decl:    &declaration.Declaration{ID: "x", HSCode: "87032390", OriginCountry: "JP", Value: 1000.01},
			toggles: AllAgents(),
			want:    []agents.AgentType{agents.AgentTax, agents.AgentPayment},
		},
		{
			name:    "toggles also gate",
			decl:    &declaration.Declaration{ID: "x", HSCode: "27090000", OriginCountry: "GH", Value: 5000},
			toggles: AgentToggles{ATG: true, Payment: true},
			want:    []agents.AgentType{agents.AgentATG, agents.AgentPayment},
		},
		{
			name:    "disabled everything applicable",
			decl:    &declaration.Declaration{ID: "x", HSCode: "87032390", OriginCountry: "JP", Value: 10},
			toggles: AgentToggles{Origin: true, ATG: true},
			want:    []agents.AgentType{},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := agentTypes(SelectAgents(tt.decl, tt.toggles, registry))
			if !reflect.DeepEqual(got, tt.want) {
				t.Errorf("SelectAgents() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestSelectAgents_MissingFromRegistry(t *testing.T) {
	registry := agents.NewRegistry(agents.NewTaxAgent())
	d := &declaration.Declaration{ID: "x", HSCode: "27101990", ECOWASOrigin: true, Value: 5000}

	got := agentTypes(SelectAgents(d, AllAgents(), registry))
	if !reflect.DeepEqual(got, []agents.AgentType{agents.AgentTax}) {
		t.Errorf("SelectAgents() = %v", got)
	}
}
