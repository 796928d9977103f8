package execution

import (
	"context"
	"io"
	"time"

	"gra-pca/sentinel/pkg/agents"
)

// Status is the lifecycle state of an execution.
type Status string

const (
	StatusRunning   Status = "running"
	StatusCompleted Status = "completed"
	StatusFailed    Status = "failed"
	StatusCancelled Status = "cancelled"
)

// Terminal reports whether s is a final state.
func (s Status) Terminal() bool {
	return s == StatusCompleted || s == StatusFailed || s == StatusCancelled
}

// Valid reports whether s is a known status.
func (s Status) Valid() bool {
	return s == StatusRunning || s.Terminal()
}

// Risk levels used to bucket numeric agent risk scores.
const (
	RiskCritical = "critical"
	RiskHigh     = "high"
	RiskMedium   = "medium"
	RiskLow      = "low"
)

// RiskLevel buckets a 0-100 risk score. This is independent of finding
// severity.
func RiskLevel(score float64) string {
	switch {
	case score >= 80:
		return RiskCritical
	case score >= 60:
		return RiskHigh
	case score >= 40:
		return RiskMedium
	default:
		return RiskLow
	}
}

// UnknownSector labels results whose metadata carries no sector.
const UnknownSector = "unknown"

// Execution is one audit run. It is mutated only by the orchestrator that
// owns it and is immutable once its status is terminal.
type Execution struct {
	// Identity
	ID         string `json:"id"`
	CaseID     string `json:"case_id"`
	RulePackID string `json:"rule_pack_id,omitempty"`

	// Lifecycle
	Status    Status     `json:"status"`
	StartedAt time.Time  `json:"started_at"`
	EndedAt   *time.Time `json:"ended_at,omitempty"`

	// Counts. Processed + Failed never exceeds Total.
	TotalDeclarations     int `json:"total_declarations"`
	ProcessedDeclarations int `json:"processed_declarations"`
	FailedDeclarations    int `json:"failed_declarations"`

	AgentResults     []*agents.Result                      `json:"agent_results"`
	AgentPerformance map[agents.AgentType]AgentPerformance `json:"agent_performance"`
	GhanaMetrics     GhanaMetrics                          `json:"ghana_metrics"`
	Performance      PerformanceMetrics                    `json:"performance"`
	Errors           []ErrorEntry                          `json:"errors"`
}

// AgentPerformance aggregates the runs of one agent within an execution.
type AgentPerformance struct {
	Runs              int           `json:"runs"`
	Violations        int           `json:"violations"`
	Errors            int           `json:"errors"`
	AverageDuration   time.Duration `json:"average_duration"`
	AverageRiskScore  float64       `json:"average_risk_score"`
	AverageConfidence float64       `json:"average_confidence"`
}

// SectorStats tallies one sector of the Ghana metrics.
type SectorStats struct {
	Declarations int     `json:"declarations"`
	Violations   int     `json:"violations"`
	Recovery     float64 `json:"recovery"`
}

// GhanaMetrics are the case-level aggregates reported to GRA.
type GhanaMetrics struct {
	TotalViolations   int                    `json:"total_violations"`
	TotalRecovery     float64                `json:"total_recovery"`
	SectoralBreakdown map[string]SectorStats `json:"sectoral_breakdown"`
	ViolationTypes    map[string]int         `json:"violation_types"`
	RiskLevels        map[string]int         `json:"risk_levels"`
	ComplianceRate    float64                `json:"compliance_rate"`
}

// PerformanceMetrics describe how quickly an execution ran.
type PerformanceMetrics struct {
	WallTime              time.Duration `json:"wall_time"`
	AverageProcessingTime time.Duration `json:"average_processing_time"`
	Throughput            float64       `json:"throughput"` // declarations per second
	ErrorRate             float64       `json:"error_rate"` // percent of declarations failed
}

// ErrorEntry records a per-declaration agent failure.
type ErrorEntry struct {
	DeclarationID string           `json:"declaration_id"`
	AgentType     agents.AgentType `json:"agent_type,omitempty"`
	Message       string           `json:"message"`
	Timestamp     time.Time        `json:"timestamp"`
}

// New creates a running execution.
func New(id, caseID, rulePackID string, total int, startedAt time.Time) *Execution {
	return &Execution{
		ID:                id,
		CaseID:            caseID,
		RulePackID:        rulePackID,
		Status:            StatusRunning,
		StartedAt:         startedAt,
		TotalDeclarations: total,
		AgentResults:      []*agents.Result{},
		AgentPerformance:  map[agents.AgentType]AgentPerformance{},
		GhanaMetrics:      NewGhanaMetrics(),
		Errors:            []ErrorEntry{},
	}
}

// NewGhanaMetrics returns zeroed metrics with every map allocated.
func NewGhanaMetrics() GhanaMetrics {
	return GhanaMetrics{
		SectoralBreakdown: map[string]SectorStats{},
		ViolationTypes:    map[string]int{},
		RiskLevels: map[string]int{
			RiskCritical: 0,
			RiskHigh:     0,
			RiskMedium:   0,
			RiskLow:      0,
		},
	}
}

// Transition moves a running execution into a terminal status and stamps its
// end time. Any other transition returns ErrInvalidTransition.
func (e *Execution) Transition(to Status, at time.Time) error {
	if e.Status != StatusRunning || !to.Terminal() {
		return &TransitionError{From: e.Status, To: to}
	}
	e.Status = to
	e.EndedAt = &at
	return nil
}

// Duration returns the wall time of a finished execution, or zero.
func (e *Execution) Duration() time.Duration {
	if e.EndedAt == nil {
		return 0
	}
	return e.EndedAt.Sub(e.StartedAt)
}

// Query filters stored executions. Zero values match everything.
type Query struct {
	IDs       []string   `json:"ids,omitempty"`
	CaseID    string     `json:"case_id,omitempty"`
	Status    Status     `json:"status,omitempty"`
	StartTime *time.Time `json:"start_time,omitempty"` // inclusive, on StartedAt
	EndTime   *time.Time `json:"end_time,omitempty"`   // inclusive, on StartedAt

	Limit  int `json:"limit,omitempty"`
	Offset int `json:"offset,omitempty"`
}

// Matches reports whether e satisfies the query filters, ignoring pagination.
func (q *Query) Matches(e *Execution) bool {
	if q == nil {
		return true
	}
	if len(q.IDs) > 0 && !containsID(q.IDs, e.ID) {
		return false
	}
	if q.CaseID != "" && e.CaseID != q.CaseID {
		return false
	}
	if q.Status != "" && e.Status != q.Status {
		return false
	}
	if q.StartTime != nil && e.StartedAt.Before(*q.StartTime) {
		return false
	}
	if q.EndTime != nil && e.StartedAt.After(*q.EndTime) {
		return false
	}
	return true
}

func containsID(ids []string, id string) bool {
	for _, candidate := range ids {
		if candidate == id {
			return true
		}
	}
	return false
}

// Storage persists executions. Implementations must be safe for concurrent
// use.
type Storage interface {
	// Save inserts or replaces an execution by ID.
	Save(ctx context.Context, e *Execution) error

	// Get returns the execution with the given ID, or ErrNotFound.
	Get(ctx context.Context, id string) (*Execution, error)

	// Query returns executions matching q, newest first.
	Query(ctx context.Context, q *Query) ([]*Execution, error)

	// Count returns the number of executions matching q.
	Count(ctx context.Context, q *Query) (int64, error)

	// Delete removes executions matching q and returns how many were removed.
	Delete(ctx context.Context, q *Query) (int64, error)

	// Close releases backend resources.
	Close() error
}

// Exporter writes executions in a specific format.
type Exporter interface {
	Export(ctx context.Context, executions []*Execution, w io.Writer) error
}

// Clone returns a copy that shares no slices or maps with e. Agent results are
// immutable and shared by pointer.
func (e *Execution) Clone() *Execution {
	c := *e
	if e.EndedAt != nil {
		ended := *e.EndedAt
		c.EndedAt = &ended
	}
	c.AgentResults = append([]*agents.Result(nil), e.AgentResults...)
	c.Errors = append([]ErrorEntry(nil), e.Errors...)

	c.AgentPerformance = make(map[agents.AgentType]AgentPerformance, len(e.AgentPerformance))
	for k, v := range e.AgentPerformance {
		c.AgentPerformance[k] = v
	}

	c.GhanaMetrics.SectoralBreakdown = make(map[string]SectorStats, len(e.GhanaMetrics.SectoralBreakdown))
	for k, v := range e.GhanaMetrics.SectoralBreakdown {
		c.GhanaMetrics.SectoralBreakdown[k] = v
	}
	c.GhanaMetrics.ViolationTypes = make(map[string]int, len(e.GhanaMetrics.ViolationTypes))
	for k, v := range e.GhanaMetrics.ViolationTypes {
		c.GhanaMetrics.ViolationTypes[k] = v
	}
	c.GhanaMetrics.RiskLevels = make(map[string]int, len(e.GhanaMetrics.RiskLevels))
	for k, v := range e.GhanaMetrics.RiskLevels {
		c.GhanaMetrics.RiskLevels[k] = v
	}
	return &c
}
