package git

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"gra-pca/sentinel/pkg/config"
	"gra-pca/sentinel/pkg/rulepack"
)

// SyncResult reports one sync pass.
type SyncResult struct {
	Commit   string   // HEAD after the pass
	Imported []string // pack IDs
	Errors   []error
}

// Syncer keeps a rule pack store in step with a Git repository.
type Syncer struct {
	repo     *Repository
	store    rulepack.Store
	logger   *slog.Logger
	interval time.Duration
	now      func() time.Time

	// OnSync, if set, is called after every sync pass.
	OnSync func(SyncResult)

	mu      sync.Mutex
	cloned  bool
	running bool
	stopCh  chan struct{}
	doneCh  chan struct{}
}

// NewSyncer creates a syncer that polls repo every interval.
func NewSyncer(repo *Repository, store rulepack.Store, interval time.Duration, logger *slog.Logger) *Syncer {
	if interval <= 0 {
		interval = config.DefaultGitPollInterval
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Syncer{
		repo:     repo,
		store:    store,
		logger:   logger.With("component", "rulepack.git", "repository", repo.cfg.Repository, "branch", repo.cfg.Branch),
		interval: interval,
		now:      time.Now,
		stopCh:   make(chan struct{}),
		doneCh:   make(chan struct{}),
	}
}

// Sync clones on first use and imports every pack file. Later calls pull and
// import only the pack files that changed. Invalid packs are logged, reported
// and skipped.
func (s *Syncer) Sync(ctx context.Context) (SyncResult, error) {
	s.mu.Lock()
	first := !s.cloned
	s.mu.Unlock()

	if first {
		return s.initialSync(ctx)
	}

	pull, err := s.repo.Pull(ctx)
	if err != nil {
		s.logger.Error("failed to pull rule pack repository", "error", err)
		return SyncResult{}, err
	}
	result := SyncResult{Commit: pull.ToSHA, Imported: []string{}}
	if !pull.HadChanges() {
		s.logger.Debug("rule pack repository up to date", "commit", shortSHA(pull.ToSHA))
		s.notify(result)
		return result, nil
	}

	s.logger.Info("rule pack repository updated",
		"from", shortSHA(pull.FromSHA),
		"to", shortSHA(pull.ToSHA),
		"changed_files", len(pull.ChangedFiles),
	)
	s.importFiles(ctx, s.repo.packPaths(pull.ChangedFiles), &result)
	s.notify(result)
	return result, nil
}

func (s *Syncer) initialSync(ctx context.Context) (SyncResult, error) {
	if err := s.repo.Clone(ctx); err != nil {
		s.logger.Error("failed to clone rule pack repository", "error", err)
		return SyncResult{}, err
	}
	// An existing clone may be behind the remote.
	if _, err := s.repo.Pull(ctx); err != nil {
		s.logger.Warn("failed to pull after clone", "error", err)
	}

	s.mu.Lock()
	s.cloned = true
	s.mu.Unlock()

	result := SyncResult{Imported: []string{}}
	if head, err := s.repo.Head(); err == nil {
		result.Commit = head.SHA
	}

	files, err := s.repo.PackFiles()
	if err != nil {
		result.Errors = append(result.Errors, err)
		s.logger.Warn("no rule packs found in repository", "path", s.repo.PackDir(), "error", err)
		s.notify(result)
		return result, nil
	}
	s.importFiles(ctx, files, &result)

	s.logger.Info("rule packs synced from git",
		"commit", shortSHA(result.Commit),
		"imported", len(result.Imported),
		"errors", len(result.Errors),
	)
	s.notify(result)
	return result, nil
}

func (s *Syncer) importFiles(ctx context.Context, paths []string, result *SyncResult) {
	for _, path := range paths {
		p, err := rulepack.LoadFile(path)
		if err != nil {
			result.Errors = append(result.Errors, err)
			s.logger.Warn("skipped invalid rule pack", "file", path, "error", err)
			continue
		}
		if err := rulepack.Import(ctx, s.store, p, s.now()); err != nil {
			result.Errors = append(result.Errors, err)
			s.logger.Error("failed to import rule pack", "file", path, "pack_id", p.ID, "error", err)
			continue
		}
		result.Imported = append(result.Imported, p.ID)
		s.logger.Info("rule pack imported", "file", path, "pack_id", p.ID, "version", p.Version)
	}
}

// Run syncs once and then every interval until ctx is cancelled or Stop is
// called. Failed passes are logged and retried on the next tick.
func (s *Syncer) Run(ctx context.Context) error {
	s.mu.Lock()
	if s.running {
		s.mu.Unlock()
		return errors.New("syncer already running")
	}
	select {
	case <-s.stopCh:
		s.mu.Unlock()
		return nil
	default:
	}
	s.running = true
	s.mu.Unlock()

	defer close(s.doneCh)

	s.Sync(ctx)

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			s.logger.Info("git syncer stopped by context")
			return ctx.Err()
		case <-s.stopCh:
			s.logger.Info("git syncer stopped")
			return nil
		case <-ticker.C:
			s.Sync(ctx)
		}
	}
}

// Stop ends Run and waits for it to return.
func (s *Syncer) Stop() {
	s.mu.Lock()
	running := s.running
	select {
	case <-s.stopCh:
		s.mu.Unlock()
		return
	default:
		close(s.stopCh)
	}
	s.mu.Unlock()

	if running {
		<-s.doneCh
	}
}

func (s *Syncer) notify(result SyncResult) {
	if s.OnSync != nil {
		s.OnSync(result)
	}
}
