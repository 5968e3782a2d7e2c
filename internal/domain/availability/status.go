package availability

// DateStatus classifies a ServiceDay relative to the current instant.
// It is recomputed on every evaluation and never persisted.
type DateStatus string

const (
	// StatusPast is any date strictly before today
	StatusPast DateStatus = "PAST"
	// StatusTodayClosed is today when today is not the active day
	StatusTodayClosed DateStatus = "TODAY_CLOSED"
	// StatusWeekend is a future date on which the kitchen does not deliver
	StatusWeekend DateStatus = "WEEKEND"
	// StatusActive is the single date currently open for ordering
	StatusActive DateStatus = "ACTIVE"
	// StatusPreview is a future open date that is not yet the active day
	StatusPreview DateStatus = "PREVIEW"
)

// AllStatuses lists every DateStatus value
var AllStatuses = []DateStatus{StatusPast, StatusTodayClosed, StatusWeekend, StatusActive, StatusPreview}

// String implements fmt.Stringer
func (s DateStatus) String() string {
	return string(s)
}

// IsValid reports whether s is one of the five known statuses
func (s DateStatus) IsValid() bool {
	switch s {
	case StatusPast, StatusTodayClosed, StatusWeekend, StatusActive, StatusPreview:
		return true
	}
	return false
}

// Orderable reports whether a date with this status accepts new cart lines.
// PREVIEW is orderable only when the storefront opts in.
func (s DateStatus) Orderable(allowPreview bool) bool {
	switch s {
	case StatusActive:
		return true
	case StatusPreview:
		return allowPreview
	}
	return false
}
