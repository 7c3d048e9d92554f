package runtime

import (
	"context"

	"gorm.io/gorm"

	domainruns "github.com/ds4psb/komission-core/internal/domain/runs"
	"github.com/ds4psb/komission-core/internal/platform/logger"
)

// Context is the capability-scoped execution handle a Handler receives for
// one claimed Run. Handlers never touch the run table directly; they read
// Run for their inputs and report failure through the worker's fail path (a
// non-nil return fails the Run; a nil return leaves the run row untouched, so
// the handler itself is responsible for persisting any RunType-specific
// result and terminal state via its own repos before returning).
type Context struct {
	Ctx context.Context
	DB  *gorm.DB
	Run *domainruns.Run
	Log *logger.Logger
}
