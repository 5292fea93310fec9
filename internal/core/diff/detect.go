// Package diff compares snapshots and decides whether a change is worth
// notifying about.
package diff

import "github.com/namelens/domainwatch/internal/core"

// FirstRunMessage is the sentinel text recorded when no previous snapshot exists.
const FirstRunMessage = "first check, no prior snapshot"

// skipFields are persisted for audit only and never compared.
var skipFields = map[string]bool{
	core.FieldCheckTime: true,
	core.FieldRawText:   true,
}

// Detect diffs two snapshots. A nil previous means the first run.
//
// An error snapshot short-circuits to a single error entry; the first run
// yields a single message entry. Both are sentinels, see Actionable.
func Detect(previous, current *core.Snapshot) *core.ChangeSet {
	changes := core.NewChangeSet()

	if errValue, ok := current.Get(core.FieldError); ok {
		changes.Set(core.FieldError, core.Change{From: core.Null(), To: errValue})
		return changes
	}

	if previous == nil {
		changes.Set(core.FieldMessage, core.Change{From: core.Null(), To: core.String(FirstRunMessage)})
		return changes
	}

	for _, field := range current.Keys() {
		if skipFields[field] {
			continue
		}
		now, _ := current.Get(field)
		before, existed := previous.Get(field)
		switch {
		case !existed:
			changes.Set(field, core.Change{From: core.Null(), To: now})
		case !before.Equal(now):
			changes.Set(field, core.Change{From: before, To: now})
		}
	}

	for _, field := range previous.Keys() {
		if skipFields[field] || current.Has(field) {
			continue
		}
		before, _ := previous.Get(field)
		changes.Set(field, core.Change{From: before, To: core.Null()})
	}

	return changes
}

// Actionable reports whether a change set should trigger a notification:
// it must be non-empty and carry neither sentinel key.
func Actionable(changes *core.ChangeSet) bool {
	if changes.Len() == 0 {
		return false
	}
	return !changes.Has(core.FieldMessage) && !changes.Has(core.FieldError)
}

// IsFirstRun reports whether the change set is the first-run sentinel.
func IsFirstRun(changes *core.ChangeSet) bool {
	return changes.Len() == 1 && changes.Has(core.FieldMessage)
}

// IsLookupError reports whether the change set is the lookup-error sentinel.
func IsLookupError(changes *core.ChangeSet) bool {
	return changes.Has(core.FieldError)
}
