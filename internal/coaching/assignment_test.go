package coaching

import (
	"fmt"
	"testing"

	domaincoaching "github.com/ds4psb/komission-core/internal/domain/coaching"
)

// TestCoachingAssignmentDistribution is spec.md §8 scenario 6.
func TestCoachingAssignmentDistribution(t *testing.T) {
	var control, holdout, coached int
	for i := 0; i < 1000; i++ {
		sessionID := fmt.Sprintf("session_%d", i)
		assignment, isHoldout := AssignSession(sessionID)
		switch {
		case assignment == domaincoaching.AssignmentControl:
			control++
		case isHoldout:
			holdout++
		default:
			coached++
		}
	}
	if control < 70 || control > 130 {
		t.Fatalf("expected control count in [70,130], got %d", control)
	}
	if holdout < 30 || holdout > 70 {
		t.Fatalf("expected holdout count in [30,70], got %d", holdout)
	}
	if coached < 800 || coached > 900 {
		t.Fatalf("expected coached count in [800,900], got %d", coached)
	}
}

func TestCoachingAssignmentIsDeterministic(t *testing.T) {
	first, firstHoldout := AssignSession("stable_session_id")
	second, secondHoldout := AssignSession("stable_session_id")
	if first != second || firstHoldout != secondHoldout {
		t.Fatalf("expected the same session_id to always return the same assignment")
	}
}
