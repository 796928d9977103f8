// Package git syncs rule packs from a Git repository into a rule pack store.
//
// A Syncer clones the repository on first use and imports every pack file
// under the configured path. Later syncs pull the tracked branch and import
// only the pack files changed between the old and new HEAD. Invalid packs are
// reported in the SyncResult and skipped; files removed from the repository
// never delete stored packs.
//
//	repo, err := git.NewRepository(cfg.RulePacks.Git)
//	syncer := git.NewSyncer(repo, store, cfg.RulePacks.Git.PollInterval, logger)
//	syncer.OnSync = func(r git.SyncResult) { collector.RecordRulePackSync(len(r.Imported), len(r.Errors)) }
//	go syncer.Run(ctx)
package git
