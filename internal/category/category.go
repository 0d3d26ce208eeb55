// Package category holds the fixed bug category enumeration and the
// client-side groupings built on top of it.
package category

import "github.com/tgienger/bugtrack/internal/models"

// Label is one entry of the bug category enumeration
type Label string

const (
	Crash                  Label = "Crash / Segmentation Fault"
	AssertionFailure       Label = "Assertion Failure"
	InfiniteLoop           Label = "Infinite Loop / Hang"
	IncorrectQueryResult   Label = "Incorrect Query Result"
	TransactionAnomaly     Label = "Transaction Anomaly"
	ConstraintViolation    Label = "Constraint Violation"
	DataCorruption         Label = "Data Corruption"
	PerformanceDegradation Label = "Performance Degradation"
	Deadlock               Label = "Deadlock"
	Others                 Label = "Others"
	NoneSelected           Label = "None Selected"
)

// Labels is the ordered enumeration; a label's index is its category id.
var Labels = []Label{
	Crash,
	AssertionFailure,
	InfiniteLoop,
	IncorrectQueryResult,
	TransactionAnomaly,
	ConstraintViolation,
	DataCorruption,
	PerformanceDegradation,
	Deadlock,
	Others,
	NoneSelected,
}

// IDOf returns the category id for a label
func IDOf(label Label) (int, bool) {
	for i, l := range Labels {
		if l == label {
			return i, true
		}
	}
	return 0, false
}

// LabelOf returns the label for a category id
func LabelOf(id int) (Label, bool) {
	return labelIn(Labels, id)
}

func labelIn(labels []Label, id int) (Label, bool) {
	if id < 0 || id >= len(labels) {
		return "", false
	}
	return labels[id], true
}

// PriorityFilter is a priority choice in the dashboard filter
type PriorityFilter string

// PriorityNoneSelected disables priority filtering
const PriorityNoneSelected PriorityFilter = "None Selected"

// PriorityFilters lists the filter choices in display order
var PriorityFilters = []PriorityFilter{
	PriorityFilter(models.PriorityLow),
	PriorityFilter(models.PriorityMedium),
	PriorityFilter(models.PriorityHigh),
	PriorityFilter(models.PriorityUnassigned),
	PriorityNoneSelected,
}

// FilterSettings are the dashboard search filters
type FilterSettings struct {
	Category Label
	Priority PriorityFilter
}

// DefaultFilters selects nothing
func DefaultFilters() FilterSettings {
	return FilterSettings{Category: NoneSelected, Priority: PriorityNoneSelected}
}

// CategoryID returns the id to search with, or nil when no category is selected
func (f FilterSettings) CategoryID() *int {
	if f.Category == NoneSelected || f.Category == "" {
		return nil
	}
	id, ok := IDOf(f.Category)
	if !ok {
		return nil
	}
	return &id
}

// MatchesPriority reports whether a bug passes the priority filter
func (f FilterSettings) MatchesPriority(bug models.BugReport) bool {
	if f.Priority == PriorityNoneSelected || f.Priority == "" {
		return true
	}
	return string(bug.Priority) == string(f.Priority)
}
