package schedule

import (
	"errors"
)

// Calendar errors
var (
	ErrCalendarStarted    = errors.New("calendar already started")
	ErrCalendarNotStarted = errors.New("calendar not started")
	ErrEntrySpecEmpty     = errors.New("calendar entry has no cron spec")
	ErrEntryEventEmpty    = errors.New("calendar entry has no event kind")
)
