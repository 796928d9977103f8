package git

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	gogit "github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing"

	"gra-pca/sentinel/pkg/config"
	"gra-pca/sentinel/pkg/rulepack"
)

// ErrNotCloned is returned by operations that need a local clone.
var ErrNotCloned = errors.New("repository not initialized, call Clone() first")

// CommitInfo describes a commit.
type CommitInfo struct {
	SHA       string    `json:"sha"`
	Author    string    `json:"author"`
	Email     string    `json:"email"`
	Timestamp time.Time `json:"timestamp"`
	Message   string    `json:"message"`
	Branch    string    `json:"branch"`
}

// ShortSHA returns the first eight characters of the SHA.
func (c *CommitInfo) ShortSHA() string {
	return shortSHA(c.SHA)
}

// PullResult reports one pull.
type PullResult struct {
	FromSHA string
	ToSHA   string

	// ChangedFiles are repository-relative paths changed between FromSHA and
	// ToSHA, including deletions.
	ChangedFiles []string
}

// HadChanges reports whether HEAD moved.
func (r *PullResult) HadChanges() bool {
	return r.FromSHA != r.ToSHA
}

// Repository is a local clone of a rule pack repository.
type Repository struct {
	cfg  config.GitConfig
	auth Auth

	mu   sync.RWMutex
	repo *gogit.Repository
}

// NewRepository validates cfg and prepares a repository. Nothing is cloned
// until Clone is called.
func NewRepository(cfg config.GitConfig) (*Repository, error) {
	if cfg.Repository == "" {
		return nil, errors.New("repository URL cannot be empty")
	}
	if cfg.Branch == "" {
		return nil, errors.New("branch cannot be empty")
	}
	auth, err := NewAuth(cfg.Auth)
	if err != nil {
		return nil, fmt.Errorf("failed to create auth provider: %w", err)
	}
	if cfg.LocalPath == "" {
		cfg.LocalPath = filepath.Join(os.TempDir(), "sentinel-rulepacks")
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = config.DefaultGitTimeout
	}
	return &Repository{cfg: cfg, auth: auth}, nil
}

// Clone clones the tracked branch into LocalPath, or opens an existing clone
// there.
func (r *Repository) Clone(ctx context.Context) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, err := os.Stat(filepath.Join(r.cfg.LocalPath, ".git")); err == nil {
		repo, err := gogit.PlainOpen(r.cfg.LocalPath)
		if err != nil {
			return fmt.Errorf("failed to open existing repo: %w", err)
		}
		r.repo = repo
		return nil
	}

	if err := os.MkdirAll(r.cfg.LocalPath, 0o755); err != nil {
		return fmt.Errorf("failed to create repository directory: %w", err)
	}

	auth, err := r.auth.Method()
	if err != nil {
		return fmt.Errorf("failed to get auth: %w", err)
	}

	cloneCtx, cancel := context.WithTimeout(ctx, r.cfg.Timeout)
	defer cancel()

	repo, err := gogit.PlainCloneContext(cloneCtx, r.cfg.LocalPath, false, &gogit.CloneOptions{
		URL:           r.cfg.Repository,
		Auth:          auth,
		ReferenceName: plumbing.NewBranchReferenceName(r.cfg.Branch),
		SingleBranch:  true,
		Depth:         r.cfg.Depth,
	})
	if err != nil {
		return fmt.Errorf("failed to clone repository: %w", err)
	}
	r.repo = repo
	return nil
}

// Pull fast-forwards the tracked branch and reports what changed.
func (r *Repository) Pull(ctx context.Context) (*PullResult, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.repo == nil {
		return nil, ErrNotCloned
	}

	ref, err := r.repo.Head()
	if err != nil {
		return nil, fmt.Errorf("failed to get HEAD: %w", err)
	}
	from := ref.Hash()

	worktree, err := r.repo.Worktree()
	if err != nil {
		return nil, fmt.Errorf("failed to get worktree: %w", err)
	}
	auth, err := r.auth.Method()
	if err != nil {
		return nil, fmt.Errorf("failed to get auth: %w", err)
	}

	pullCtx, cancel := context.WithTimeout(ctx, r.cfg.Timeout)
	defer cancel()

	err = worktree.PullContext(pullCtx, &gogit.PullOptions{
		RemoteName:    "origin",
		ReferenceName: plumbing.NewBranchReferenceName(r.cfg.Branch),
		SingleBranch:  true,
		Auth:          auth,
	})
	if err != nil && !errors.Is(err, gogit.NoErrAlreadyUpToDate) {
		return nil, fmt.Errorf("failed to pull: %w", err)
	}

	ref, err = r.repo.Head()
	if err != nil {
		return nil, fmt.Errorf("failed to get new HEAD: %w", err)
	}
	result := &PullResult{FromSHA: from.String(), ToSHA: ref.Hash().String()}
	if result.HadChanges() {
		if result.ChangedFiles, err = r.changedFiles(from, ref.Hash()); err != nil {
			return nil, err
		}
	}
	return result, nil
}

func (r *Repository) changedFiles(from, to plumbing.Hash) ([]string, error) {
	fromCommit, err := r.repo.CommitObject(from)
	if err != nil {
		return nil, fmt.Errorf("failed to get from commit: %w", err)
	}
	toCommit, err := r.repo.CommitObject(to)
	if err != nil {
		return nil, fmt.Errorf("failed to get to commit: %w", err)
	}
	fromTree, err := fromCommit.Tree()
	if err != nil {
		return nil, fmt.Errorf("failed to get from tree: %w", err)
	}
	toTree, err := toCommit.Tree()
	if err != nil {
		return nil, fmt.Errorf("failed to get to tree: %w", err)
	}

	changes, err := fromTree.Diff(toTree)
	if err != nil {
		return nil, fmt.Errorf("failed to diff trees: %w", err)
	}

	files := make([]string, 0, len(changes))
	for _, change := range changes {
		if change.To.Name != "" {
			files = append(files, change.To.Name)
		} else if change.From.Name != "" {
			files = append(files, change.From.Name)
		}
	}
	return files, nil
}

// Head returns the current HEAD commit.
func (r *Repository) Head() (*CommitInfo, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if r.repo == nil {
		return nil, ErrNotCloned
	}
	ref, err := r.repo.Head()
	if err != nil {
		return nil, fmt.Errorf("failed to get HEAD: %w", err)
	}
	commit, err := r.repo.CommitObject(ref.Hash())
	if err != nil {
		return nil, fmt.Errorf("failed to get commit: %w", err)
	}
	return &CommitInfo{
		SHA:       commit.Hash.String(),
		Author:    commit.Author.Name,
		Email:     commit.Author.Email,
		Timestamp: commit.Author.When,
		Message:   strings.TrimSpace(commit.Message),
		Branch:    r.cfg.Branch,
	}, nil
}

// PackDir returns the pack directory inside the local clone.
func (r *Repository) PackDir() string {
	return filepath.Join(r.cfg.LocalPath, r.cfg.Path)
}

// PackFiles returns every pack file under PackDir, skipping hidden files and
// directories.
func (r *Repository) PackFiles() ([]string, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	dir := r.PackDir()
	if _, err := os.Stat(dir); err != nil {
		return nil, fmt.Errorf("pack path does not exist: %w", err)
	}

	var files []string
	err := filepath.WalkDir(dir, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if strings.HasPrefix(d.Name(), ".") && path != dir {
			if d.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}
		if !d.IsDir() && rulepack.IsPackFile(path) {
			files = append(files, path)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to walk pack directory: %w", err)
	}
	return files, nil
}

// packPaths maps repository-relative changed files to local pack file paths
// under PackDir. Deleted files are dropped.
func (r *Repository) packPaths(changed []string) []string {
	dir := r.PackDir()
	var paths []string
	for _, name := range changed {
		path := filepath.Join(r.cfg.LocalPath, filepath.FromSlash(name))
		rel, err := filepath.Rel(dir, path)
		if err != nil || strings.HasPrefix(rel, "..") {
			continue
		}
		if !rulepack.IsPackFile(path) || strings.HasPrefix(filepath.Base(path), ".") {
			continue
		}
		if _, err := os.Stat(path); err != nil {
			continue
		}
		paths = append(paths, path)
	}
	return paths
}

func shortSHA(sha string) string {
	if len(sha) > 8 {
		return sha[:8]
	}
	return sha
}
