package retention

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"gra-pca/sentinel/pkg/execution"
	"gra-pca/sentinel/pkg/execution/export"
)

// Config contains configuration for the retention pruner.
type Config struct {
	// RetentionDays is the number of days to keep executions.
	// 0 keeps them forever.
	RetentionDays int

	// PruneSchedule is a standard cron expression, e.g. "0 3 * * *".
	PruneSchedule string

	// MaxRecords is the maximum number of executions to keep. 0 is unlimited.
	MaxRecords int64

	// ArchiveBeforeDelete exports executions to ArchivePath as JSON before
	// deleting them.
	ArchiveBeforeDelete bool
	ArchivePath         string
}

// DefaultConfig returns the default retention configuration.
func DefaultConfig() *Config {
	return &Config{
		RetentionDays: 365,
		PruneSchedule: "0 3 * * *",
		ArchivePath:   "data/archives/",
	}
}

// Pruner enforces retention on stored executions. Running executions are
// never pruned.
type Pruner struct {
	storage   execution.Storage
	config    *Config
	logger    *slog.Logger
	now       func() time.Time
	scheduler *Scheduler

	// OnPrune, if set, is called after every scheduled prune.
	OnPrune func(deleted int64, err error)
}

// NewPruner creates a new retention pruner.
func NewPruner(storage execution.Storage, config *Config, logger *slog.Logger) *Pruner {
	if config == nil {
		config = DefaultConfig()
	}
	if logger == nil {
		logger = slog.Default()
	}

	p := &Pruner{
		storage: storage,
		config:  config,
		logger:  logger.With("component", "execution.retention"),
		now:     time.Now,
	}
	p.scheduler = NewScheduler(p)
	return p
}

// Prune deletes executions older than the retention period, then the oldest
// executions beyond MaxRecords. It returns the total number deleted.
func (p *Pruner) Prune(ctx context.Context) (int64, error) {
	var total int64

	if p.config.RetentionDays > 0 {
		deleted, err := p.pruneByAge(ctx)
		if err != nil {
			return total, fmt.Errorf("prune by age failed: %w", err)
		}
		total += deleted
	}

	if p.config.MaxRecords > 0 {
		deleted, err := p.pruneByCount(ctx)
		if err != nil {
			return total, fmt.Errorf("prune by count failed: %w", err)
		}
		total += deleted
	}

	if total > 0 {
		p.logger.Info("execution pruning completed",
			"total_deleted", total,
			"retention_days", p.config.RetentionDays,
			"max_records", p.config.MaxRecords,
		)
	} else {
		p.logger.Debug("no executions pruned")
	}
	return total, nil
}

func (p *Pruner) pruneByAge(ctx context.Context) (int64, error) {
	cutoff := p.now().AddDate(0, 0, -p.config.RetentionDays)

	candidates, err := p.storage.Query(ctx, &execution.Query{EndTime: &cutoff})
	if err != nil {
		return 0, execution.NewRetentionError(p.config.RetentionDays, err)
	}
	return p.deleteAll(ctx, terminal(candidates), "age")
}

func (p *Pruner) pruneByCount(ctx context.Context) (int64, error) {
	count, err := p.storage.Count(ctx, &execution.Query{})
	if err != nil {
		return 0, fmt.Errorf("failed to count executions: %w", err)
	}
	if count <= p.config.MaxRecords {
		return 0, nil
	}

	// Query returns newest first, so everything past MaxRecords is oldest.
	all, err := p.storage.Query(ctx, &execution.Query{})
	if err != nil {
		return 0, fmt.Errorf("failed to query executions: %w", err)
	}
	if int64(len(all)) <= p.config.MaxRecords {
		return 0, nil
	}
	return p.deleteAll(ctx, terminal(all[p.config.MaxRecords:]), "count")
}

func (p *Pruner) deleteAll(ctx context.Context, executions []*execution.Execution, reason string) (int64, error) {
	if len(executions) == 0 {
		return 0, nil
	}

	if p.config.ArchiveBeforeDelete {
		if err := p.archive(ctx, executions, reason); err != nil {
			return 0, execution.NewRetentionError(p.config.RetentionDays, err)
		}
	}

	ids := make([]string, len(executions))
	for i, e := range executions {
		ids[i] = e.ID
	}
	deleted, err := p.storage.Delete(ctx, &execution.Query{IDs: ids})
	if err != nil {
		return 0, execution.NewRetentionError(p.config.RetentionDays, err)
	}

	p.logger.Info("pruned executions", "reason", reason, "deleted_count", deleted)
	return deleted, nil
}

func (p *Pruner) archive(ctx context.Context, executions []*execution.Execution, reason string) error {
	if err := os.MkdirAll(p.config.ArchivePath, 0o755); err != nil {
		return fmt.Errorf("failed to create archive directory: %w", err)
	}

	name := fmt.Sprintf("executions-%s-%s.json", reason, p.now().Format("2006-01-02-150405"))
	path := filepath.Join(p.config.ArchivePath, name)
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create archive file: %w", err)
	}
	defer f.Close()

	if err := export.NewJSONExporter(true).Export(ctx, executions, f); err != nil {
		return fmt.Errorf("failed to export executions to archive: %w", err)
	}

	p.logger.Info("executions archived", "archive_file", path, "count", len(executions))
	return nil
}

func terminal(executions []*execution.Execution) []*execution.Execution {
	out := executions[:0:0]
	for _, e := range executions {
		if e.Status.Terminal() {
			out = append(out, e)
		}
	}
	return out
}

// Start starts the automatic pruning scheduler.
func (p *Pruner) Start(ctx context.Context) error {
	return p.scheduler.Start(ctx)
}

// Stop stops the automatic pruning scheduler.
func (p *Pruner) Stop() {
	p.scheduler.Stop()
}

// NextPruning returns the time of the next scheduled pruning.
func (p *Pruner) NextPruning() *time.Time {
	return p.scheduler.NextRun()
}
