package main

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	gogit "github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing/object"
	"github.com/spf13/cobra"

	"gra-pca/sentinel/pkg/audit"
	"gra-pca/sentinel/pkg/cli"
	"gra-pca/sentinel/pkg/config"
	"gra-pca/sentinel/pkg/execution"
	"gra-pca/sentinel/pkg/rulepack"
	"gra-pca/sentinel/pkg/simulation"
)

const testDeclarations = `[
  {"id": "GH-001", "hs_code": "61091000", "sector": "textiles", "origin_country": "CN",
   "destination_country": "GH", "value": 50000, "weight": 1200, "ecowas_origin": true},
  {"id": "GH-002", "hs_code": "87032390", "sector": "vehicles", "origin_country": "NG",
   "destination_country": "GH", "value": 90000, "weight": 1500, "ecowas_origin": true,
   "documents": {"certificate_of_origin": "ECOWAS-COO-1"}}
]`

// setup writes a config with sqlite stores in a temp dir and points --config
// at it.
func setup(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	cfg := fmt.Sprintf(`rulepacks:
  backend: sqlite
  sqlite_path: %s
executions:
  backend: sqlite
  sqlite:
    path: %s
telemetry:
  logging:
    level: error
`, filepath.Join(dir, "rulepacks.db"), filepath.Join(dir, "executions.db"))

	path := filepath.Join(dir, "config.yaml")
	writeFile(t, path, cfg)
	writeFile(t, filepath.Join(dir, "declarations.json"), testDeclarations)
	return dir
}

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
}

func execute(t *testing.T, dir string, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetErr(&out)
	rootCmd.SetArgs(append([]string{"--config", filepath.Join(dir, "config.yaml")}, args...))
	err := rootCmd.ExecuteContext(context.Background())
	return out.String(), err
}

func TestVersionCommand(t *testing.T) {
	out, err := execute(t, setup(t), "version")
	if err != nil {
		t.Fatalf("version: %v", err)
	}
	if !strings.Contains(out, "Sentinel "+Version) {
		t.Errorf("version output = %q", out)
	}
}

func TestRunAndInspectExecutions(t *testing.T) {
	dir := setup(t)

	out, err := execute(t, dir, "run",
		"--declarations", filepath.Join(dir, "declarations.json"),
		"--case", "PCA-TEST", "--format", "json", "--no-progress")
	if err != nil {
		t.Fatalf("run: %v\n%s", err, out)
	}
	var exec execution.Execution
	if err := json.Unmarshal([]byte(out), &exec); err != nil {
		t.Fatalf("decode run output: %v\n%s", err, out)
	}
	if exec.Status != execution.StatusCompleted {
		t.Errorf("Status = %s, want completed", exec.Status)
	}
	if exec.CaseID != "PCA-TEST" || exec.RulePackID != rulepack.DefaultID {
		t.Errorf("CaseID = %q, RulePackID = %q", exec.CaseID, exec.RulePackID)
	}
	if exec.TotalDeclarations != 2 || exec.GhanaMetrics.TotalViolations == 0 {
		t.Errorf("TotalDeclarations = %d, TotalViolations = %d", exec.TotalDeclarations, exec.GhanaMetrics.TotalViolations)
	}

	out, err = execute(t, dir, "executions", "list", "--case", "PCA-TEST", "--format", "json")
	if err != nil {
		t.Fatalf("executions list: %v", err)
	}
	var listed []*execution.Execution
	if err := json.Unmarshal([]byte(out), &listed); err != nil {
		t.Fatalf("decode list output: %v\n%s", err, out)
	}
	if len(listed) != 1 || listed[0].ID != exec.ID {
		t.Fatalf("listed %d executions, want %s", len(listed), exec.ID)
	}

	out, err = execute(t, dir, "executions", "list", "--case", "PCA-TEST", "--format", "text")
	if err != nil {
		t.Fatalf("executions list: %v", err)
	}
	if !strings.HasPrefix(out, "ID ") || !strings.Contains(out, exec.ID) {
		t.Errorf("list table = %q", out)
	}

	out, err = execute(t, dir, "executions", "report", exec.ID, "--format", "text", "--period", "Q1 2026")
	if err != nil {
		t.Fatalf("executions report: %v", err)
	}
	if !strings.Contains(out, "# Post-Clearance Audit Report: PCA-TEST") || !strings.Contains(out, "Q1 2026") {
		t.Errorf("report = %q", out)
	}

	csvPath := filepath.Join(dir, "findings.csv")
	if _, err := execute(t, dir, "executions", "export", "--case", "PCA-TEST", "--format", "csv", "--output", csvPath); err != nil {
		t.Fatalf("executions export: %v", err)
	}
	data, err := os.ReadFile(csvPath)
	if err != nil {
		t.Fatal(err)
	}
	if !strings.HasPrefix(string(data), "execution_id,case_id,status") || !strings.Contains(string(data), "GH-001") {
		t.Errorf("csv export = %q", data)
	}

	if _, err := execute(t, dir, "executions", "show", "missing", "--format", "json"); !errors.Is(err, execution.ErrNotFound) {
		t.Errorf("show missing error = %v, want ErrNotFound", err)
	}

	out, err = execute(t, dir, "executions", "prune")
	if err != nil {
		t.Fatalf("executions prune: %v", err)
	}
	if out != "Pruned 0 executions\n" {
		t.Errorf("prune output = %q", out)
	}
}

func TestRulePackCommands(t *testing.T) {
	dir := setup(t)

	out, err := execute(t, dir, "rulepack", "list", "--format", "text")
	if err != nil {
		t.Fatalf("rulepack list: %v", err)
	}
	if !strings.Contains(out, rulepack.DefaultID) || !strings.Contains(out, "*") {
		t.Errorf("list output = %q", out)
	}

	candidate := rulepack.Default()
	candidate.ID = "candidate"
	candidate.Version = "2.0.0"
	candidate.IsActive = false
	data, err := rulepack.Marshal(candidate)
	if err != nil {
		t.Fatal(err)
	}
	packFile := filepath.Join(dir, "candidate.yaml")
	writeFile(t, packFile, string(data))

	out, err = execute(t, dir, "rulepack", "validate", packFile)
	if err != nil {
		t.Fatalf("rulepack validate: %v\n%s", err, out)
	}

	badFile := filepath.Join(dir, "bad.yaml")
	writeFile(t, badFile, "id: \"\"\nrules: []\n")
	_, err = execute(t, dir, "rulepack", "validate", packFile, badFile)
	if err == nil || cli.ExitCode(err) != cli.ExitFailure {
		t.Errorf("validate bad file error = %v", err)
	}

	out, err = execute(t, dir, "rulepack", "import", packFile, "--activate", "candidate")
	if err != nil {
		t.Fatalf("rulepack import: %v\n%s", err, out)
	}
	if !strings.Contains(out, "imported candidate v2.0.0") || !strings.Contains(out, "activated candidate") {
		t.Errorf("import output = %q", out)
	}

	out, err = execute(t, dir, "rulepack", "show", "candidate", "--format", "json")
	if err != nil {
		t.Fatalf("rulepack show: %v", err)
	}
	var shown rulepack.RulePack
	if err := json.Unmarshal([]byte(out), &shown); err != nil {
		t.Fatalf("decode show output: %v", err)
	}
	if !shown.IsActive {
		t.Error("imported pack should be active")
	}

	if _, err := execute(t, dir, "rulepack", "activate", rulepack.DefaultID); err != nil {
		t.Fatalf("rulepack activate: %v", err)
	}
	if _, err := execute(t, dir, "rulepack", "activate", "nope"); !errors.Is(err, rulepack.ErrNotFound) {
		t.Errorf("activate missing error = %v, want ErrNotFound", err)
	}
}

func TestRulePackSyncCommand(t *testing.T) {
	dir := setup(t)

	if _, err := execute(t, dir, "rulepack", "sync"); cli.ExitCode(err) != cli.ExitUsage {
		t.Errorf("sync without repository exit = %d (%v), want usage", cli.ExitCode(err), err)
	}

	src := filepath.Join(dir, "source")
	repo, err := gogit.PlainInit(src, false)
	if err != nil {
		t.Fatal(err)
	}
	extra := rulepack.Default()
	extra.ID = "git-pack"
	extra.IsActive = false
	data, err := rulepack.Marshal(extra)
	if err != nil {
		t.Fatal(err)
	}
	if err := os.MkdirAll(filepath.Join(src, "packs"), 0o755); err != nil {
		t.Fatal(err)
	}
	writeFile(t, filepath.Join(src, "packs", "git-pack.yaml"), string(data))
	worktree, err := repo.Worktree()
	if err != nil {
		t.Fatal(err)
	}
	if _, err := worktree.Add("packs/git-pack.yaml"); err != nil {
		t.Fatal(err)
	}
	if _, err := worktree.Commit("add pack", &gogit.CommitOptions{
		Author: &object.Signature{Name: "Test User", Email: "test@example.com"},
	}); err != nil {
		t.Fatal(err)
	}

	cfgPath := filepath.Join(dir, "config.yaml")
	cfg, err := os.ReadFile(cfgPath)
	if err != nil {
		t.Fatal(err)
	}
	gitSection := fmt.Sprintf("rulepacks:\n  git:\n    repository: %s\n    branch: master\n    path: packs\n    local_path: %s\n",
		src, filepath.Join(dir, "clone"))
	writeFile(t, cfgPath, strings.Replace(string(cfg), "rulepacks:\n", gitSection, 1))

	out, err := execute(t, dir, "rulepack", "sync")
	if err != nil {
		t.Fatalf("rulepack sync: %v\n%s", err, out)
	}
	if !strings.Contains(out, "✓ imported git-pack") || !strings.Contains(out, "Synced 1 packs at") {
		t.Errorf("sync output = %q", out)
	}

	out, err = execute(t, dir, "rulepack", "show", "git-pack", "--format", "json")
	if err != nil {
		t.Fatalf("rulepack show: %v\n%s", err, out)
	}
}

func TestSimulateCommand(t *testing.T) {
	dir := setup(t)

	out, err := execute(t, dir, "simulate", "--dataset", filepath.Join(dir, "declarations.json"), "--format", "json")
	if err != nil {
		t.Fatalf("simulate: %v\n%s", err, out)
	}
	var result simulation.Result
	if err := json.Unmarshal([]byte(out), &result); err != nil {
		t.Fatalf("decode simulate output: %v", err)
	}
	if result.RulePackID != rulepack.DefaultID || result.TotalDeclarations != 2 {
		t.Errorf("RulePackID = %q, TotalDeclarations = %d", result.RulePackID, result.TotalDeclarations)
	}
}

func TestUsageErrors(t *testing.T) {
	dir := setup(t)
	decls := filepath.Join(dir, "declarations.json")

	tests := []struct {
		name string
		args []string
	}{
		{"format", []string{"run", "--declarations", decls, "--format", "xml"}},
		{"scope", []string{"run", "--declarations", decls, "--format", "text", "--scope", "hs-codes"}},
		{"date", []string{"run", "--declarations", decls, "--format", "text", "--scope", "all", "--from", "01/03/2026"}},
		{"status", []string{"executions", "list", "--format", "text", "--status", "paused"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := execute(t, dir, tt.args...)
			if cli.ExitCode(err) != cli.ExitUsage {
				t.Errorf("ExitCode(%v) = %d, want %d", err, cli.ExitCode(err), cli.ExitUsage)
			}
		})
	}
	runFlags.audit.from = ""
	executionsFlags.query.status = ""
}

func TestAuditConfig(t *testing.T) {
	engine := config.Default().Engine
	engine.Agents.Payment = config.Bool(false)

	cmd := &cobra.Command{}
	var f auditFlags
	f.register(cmd)
	if err := cmd.ParseFlags([]string{
		"--case", "PCA-9", "--scope", "hs-codes", "--hs-code", "2710,2711",
		"--from", "2026-03-01", "--to", "2026-03-31", "--min-risk", "0",
		"--sector", "petroleum", "--mode", "sequential",
	}); err != nil {
		t.Fatal(err)
	}

	cfg, err := f.auditConfig(cmd, engine)
	if err != nil {
		t.Fatalf("auditConfig() error = %v", err)
	}
	if cfg.CaseID != "PCA-9" || cfg.Scope != audit.ScopeHSCodes || len(cfg.Filters.HSCodes) != 2 {
		t.Errorf("cfg = %+v", cfg)
	}
	if cfg.Options.Mode != audit.ModeSequential || cfg.Options.MaxConcurrency != engine.MaxConcurrency {
		t.Errorf("options = %+v", cfg.Options)
	}
	if cfg.Agents.Payment || !cfg.Agents.Origin {
		t.Errorf("agents = %+v", cfg.Agents)
	}
	if cfg.Filters.MinRiskScore == nil || *cfg.Filters.MinRiskScore != 0 {
		t.Error("explicit --min-risk 0 should set the filter")
	}
	if got := cfg.Filters.DateTo.Format("2006-01-02 15:04"); got != "2026-03-31 23:59" {
		t.Errorf("DateTo = %s, want end of day", got)
	}
}

func TestParseDate(t *testing.T) {
	if got, err := parseDate("from", "", false); got != nil || err != nil {
		t.Errorf("empty date = %v, %v", got, err)
	}
	got, err := parseDate("from", "2026-02-28", false)
	if err != nil || got.Day() != 28 || got.Hour() != 0 {
		t.Errorf("parseDate() = %v, %v", got, err)
	}
	if _, err := parseDate("to", "28-02-2026", true); cli.ExitCode(err) != cli.ExitUsage {
		t.Errorf("malformed date error = %v", err)
	}
}
