package category

import "github.com/tgienger/bugtrack/internal/models"

// Option is one autocomplete entry
type Option struct {
	Display     string
	BugReportID int64
}

// Group is a category heading in the autocomplete dropdown
type Group struct {
	Title   Label
	Options []Option
}

// Autocomplete is the grouped dropdown content
type Autocomplete struct {
	Categories []Group
}

// Len returns the number of options across all groups
func (a Autocomplete) Len() int {
	n := 0
	for _, g := range a.Categories {
		n += len(g.Options)
	}
	return n
}

// Categorise groups reports for the autocomplete dropdown. Groups appear in
// the order their category is first seen; reports keep their relative order.
// Reports without a category id inside labels are skipped.
func Categorise(reports []models.BugReport, labels []Label) Autocomplete {
	result := Autocomplete{Categories: []Group{}}
	index := make(map[Label]int)

	for _, r := range reports {
		if r.CategoryID == nil {
			continue
		}
		label, ok := labelIn(labels, *r.CategoryID)
		if !ok {
			continue
		}

		idx, seen := index[label]
		if !seen {
			idx = len(result.Categories)
			result.Categories = append(result.Categories, Group{Title: label})
			index[label] = idx
		}
		result.Categories[idx].Options = append(result.Categories[idx].Options, Option{
			Display:     r.Title,
			BugReportID: r.ID,
		})
	}

	return result
}
