package dock

import "errors"

// Sync failures are benign: every one of them degrades to "try again on the
// next event" or "use a sane default". Callers branch on them with errors.Is
// and log; none are surfaced to the user.
var (
	// ErrNotPresent means the panel window does not exist (yet, or anymore).
	ErrNotPresent = errors.New("panel window not present")
	// ErrPrimaryUnavailable means the primary window geometry could not be queried.
	ErrPrimaryUnavailable = errors.New("primary window geometry unavailable")
	// ErrApplyFailed wraps window-manager calls that were rejected.
	ErrApplyFailed = errors.New("window manager rejected geometry update")
	// ErrConfigIO means the persisted dock settings could not be read or written.
	ErrConfigIO = errors.New("dock settings unreadable or unwritable")
)

// IsBenign reports whether err is one of the expected races between the
// daemon and the window manager (window missing or not laid out yet).
func IsBenign(err error) bool {
	return errors.Is(err, ErrNotPresent) || errors.Is(err, ErrPrimaryUnavailable)
}
