package query

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"gorm.io/gorm"

	contentrepos "github.com/ds4psb/komission-core/internal/data/repos/content"
	domaincontent "github.com/ds4psb/komission-core/internal/domain/content"
	"github.com/ds4psb/komission-core/internal/platform/dbctx"
)

// VDGStatus reports an outlier's promotion and quality-gate state — the
// read-model behind the original's vdg/{outlier_id} resource. ProofReady
// and Issues come from the promoted PatternNode's quality gate
// (internal/vdg/qualitygate); an outlier not yet promoted reports
// Promoted=false with the rest zero-valued.
type VDGStatus struct {
	OutlierID      uuid.UUID
	AnalysisStatus domaincontent.AnalysisStatus
	Status         domaincontent.OutlierStatus
	Promoted       bool
	NodeID         string
	ProofReady     bool
	Issues         []string
}

// BuildVDGStatus loads outlierID, and if it has been promoted, its
// PatternNode's quality-gate outcome.
func BuildVDGStatus(ctx context.Context, outliers contentrepos.OutlierRepo, nodes contentrepos.PatternNodeRepo, outlierID uuid.UUID) (VDGStatus, error) {
	dbc := dbctx.Context{Ctx: ctx}
	item, err := outliers.GetByID(dbc, outlierID)
	if err != nil {
		return VDGStatus{}, err
	}

	status := VDGStatus{
		OutlierID:      item.ID,
		AnalysisStatus: item.AnalysisStat,
		Status:         item.Status,
	}
	if item.PromotedToNodeID == nil {
		return status, nil
	}

	node, err := nodes.GetByID(dbc, *item.PromotedToNodeID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return status, nil
		}
		return VDGStatus{}, err
	}

	status.Promoted = true
	status.NodeID = node.NodeID
	status.ProofReady = node.ProofReady
	if len(node.QualityIssues) > 0 {
		_ = decodeStrings(node.QualityIssues, &status.Issues)
	}
	return status, nil
}
