package runs

import "gorm.io/gorm/clause"

// clauseLockingUpdate is SELECT ... FOR UPDATE, used whenever a repo method
// must read-then-conditionally-write a row inside the caller's transaction.
func clauseLockingUpdate() clause.Locking {
	return clause.Locking{Strength: "UPDATE"}
}

// clauseLockingUpdateSkipLocked backs ClaimNextRunnable: concurrent claimants
// skip rows already locked by another transaction instead of blocking on them.
func clauseLockingUpdateSkipLocked() clause.Locking {
	return clause.Locking{Strength: "UPDATE", Options: "SKIP LOCKED"}
}
