package reporting

import "github.com/poiesic/wayfind/core"

// DefaultThreshold is the number of reports that flags a working utility as reported.
const DefaultThreshold = 3

// DeriveStatus returns the status shown for a utility with the given stored
// status and report count. Reports only escalate working utilities: broken and
// maintenance are set by staff and always win.
func DeriveStatus(stored core.Status, reports, threshold int) core.Status {
	switch stored {
	case core.StatusBroken, core.StatusMaintenance:
		return stored
	}
	if reports >= threshold {
		return core.StatusReported
	}
	if stored == "" {
		return core.StatusWorking
	}
	return stored
}
