package db

import (
	"fmt"

	domaincluster "github.com/ds4psb/komission-core/internal/domain/cluster"
	domaincoaching "github.com/ds4psb/komission-core/internal/domain/coaching"
	domaincontent "github.com/ds4psb/komission-core/internal/domain/content"
	domaincuration "github.com/ds4psb/komission-core/internal/domain/curation"
	domainevidence "github.com/ds4psb/komission-core/internal/domain/evidence"
	domainruns "github.com/ds4psb/komission-core/internal/domain/runs"
	"gorm.io/gorm"
)

func AutoMigrateAll(db *gorm.DB) error {
	return db.AutoMigrate(

		// =========================
		// Run queue + artifacts
		// =========================
		&domainruns.Run{},
		&domainruns.Artifact{},

		// =========================
		// Content (crawl + genealogy)
		// =========================
		&domaincontent.OutlierItem{},
		&domaincontent.PatternNode{},

		// =========================
		// Clustering (STPF)
		// =========================
		&domaincluster.PatternCluster{},
		&domaincluster.PatternRecurrenceLink{},
		&domaincluster.NotebookLibraryEntry{},

		// =========================
		// Coaching
		// =========================
		&domaincoaching.Session{},
		&domaincoaching.Intervention{},
		&domaincoaching.Outcome{},
		&domaincoaching.UploadOutcome{},

		// =========================
		// Curation
		// =========================
		&domaincuration.Rule{},

		// =========================
		// Evidence Loop (VDG + Bayes)
		// =========================
		&domainevidence.Event{},
		&domainevidence.Snapshot{},
		&domainevidence.DecisionObject{},
		&domainevidence.PatternLibrary{},
		&domainevidence.DirectorPack{},
		&domainevidence.PatternPrior{},
	)
}

// EnsureContentIndexes hardens constraints AutoMigrate cannot express as
// struct tags: partial uniqueness and dedupe keys that depend on soft-delete
// and business-key semantics rather than the column set alone.
func EnsureContentIndexes(db *gorm.DB) error {
	if err := db.Exec(`CREATE EXTENSION IF NOT EXISTS "uuid-ossp";`).Error; err != nil {
		return fmt.Errorf("enable uuid-ossp: %w", err)
	}

	// Dedupe key for ingested outliers: (platform, external_id).
	if err := db.Exec(`
		CREATE UNIQUE INDEX IF NOT EXISTS idx_outlier_item_platform_external_id
		ON outlier_item (platform, external_id);
	`).Error; err != nil {
		return fmt.Errorf("create idx_outlier_item_platform_external_id: %w", err)
	}
	if err := db.Exec(`
		CREATE INDEX IF NOT EXISTS idx_outlier_item_video_url
		ON outlier_item (video_url);
	`).Error; err != nil {
		return fmt.Errorf("create idx_outlier_item_video_url: %w", err)
	}

	// Genealogy walk: children of a pattern node, newest first.
	if err := db.Exec(`
		CREATE INDEX IF NOT EXISTS idx_pattern_node_parent_created
		ON pattern_node (parent_node_id, created_at DESC);
	`).Error; err != nil {
		return fmt.Errorf("create idx_pattern_node_parent_created: %w", err)
	}
	if err := db.Exec(`
		CREATE INDEX IF NOT EXISTS idx_pattern_node_cluster
		ON pattern_node (cluster_id);
	`).Error; err != nil {
		return fmt.Errorf("create idx_pattern_node_cluster: %w", err)
	}

	return nil
}

func EnsureRunIndexes(db *gorm.DB) error {
	// At most one COMPLETED row per (run_type, idempotency_key); the aggregate
	// layer checks this before claiming, but the constraint is the backstop.
	if err := db.Exec(`
		CREATE UNIQUE INDEX IF NOT EXISTS idx_run_type_idempotency_completed
		ON run (run_type, idempotency_key)
		WHERE status = 'COMPLETED';
	`).Error; err != nil {
		return fmt.Errorf("create idx_run_type_idempotency_completed: %w", err)
	}

	// Claim-query hot path: oldest runnable row of a given run_type.
	if err := db.Exec(`
		CREATE INDEX IF NOT EXISTS idx_run_type_status_created
		ON run (run_type, status, created_at);
	`).Error; err != nil {
		return fmt.Errorf("create idx_run_type_status_created: %w", err)
	}

	return nil
}

func EnsureCurationIndexes(db *gorm.DB) error {
	// Rule selection walks active rules ordered by priority; an index on the
	// filter+sort columns keeps Select() from scanning inactive rows.
	if err := db.Exec(`
		CREATE INDEX IF NOT EXISTS idx_curation_rule_active_priority
		ON curation_rule (active, priority DESC, name ASC);
	`).Error; err != nil {
		return fmt.Errorf("create idx_curation_rule_active_priority: %w", err)
	}
	return nil
}

func (s *PostgresService) AutoMigrateAll() error {
	s.log.Info("Auto migrating postgres tables...")
	if err := AutoMigrateAll(s.db); err != nil {
		s.log.Error("Auto migration failed", "error", err)
		return err
	}
	if err := EnsureContentIndexes(s.db); err != nil {
		s.log.Error("Content index migration failed", "error", err)
		return err
	}
	if err := EnsureRunIndexes(s.db); err != nil {
		s.log.Error("Run index migration failed", "error", err)
		return err
	}
	if err := EnsureCurationIndexes(s.db); err != nil {
		s.log.Error("Curation index migration failed", "error", err)
		return err
	}

	return nil
}
