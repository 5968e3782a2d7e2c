// Package availability decides, for any calendar date, whether ordering is
// open, closed, or previewable.
//
// Every reading of "now" is normalized into the service location before a
// calendar date is derived from it. A Calendar is configured once with the
// daily cutoff hour and the set of open weekdays, and its operations are pure
// functions of the instant passed in:
//
//   - ActiveServiceDay: the single day currently open for ordering
//   - StatusOf: the DateStatus of any ServiceDay relative to now
//   - WindowDates: a lazy, bounded run of consecutive days for display
//
// Nothing in this package performs I/O or reads the wall clock on its own;
// callers inject a Clock.
package availability
