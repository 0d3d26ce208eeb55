package category

import (
	"sort"

	"github.com/tgienger/bugtrack/internal/models"
)

// SearchResult is a bug as listed in the explorer and search tabs
type SearchResult struct {
	BugReportID int64
	Display     string
	Description string
}

// Bucket holds the loaded bugs of one category
type Bucket struct {
	CategoryID int
	Title      Label
	Bugs       []SearchResult
}

// SearchResults maps a category label to its bucket
type SearchResults map[Label]*Bucket

// Ordered returns the buckets sorted by category id
func (s SearchResults) Ordered() []Bucket {
	out := make([]Bucket, 0, len(s))
	for _, b := range s {
		out = append(out, *b)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CategoryID < out[j].CategoryID })
	return out
}

// ToSearchResults converts reports into list entries
func ToSearchResults(reports []models.BugReport) []SearchResult {
	out := make([]SearchResult, 0, len(reports))
	for _, r := range reports {
		out = append(out, SearchResult{
			BugReportID: r.ID,
			Display:     r.Title,
			Description: r.DescriptionText(),
		})
	}
	return out
}

// GroupSearchResults buckets reports by category for the search results tab.
func GroupSearchResults(reports []models.BugReport, labels []Label) SearchResults {
	result := SearchResults{}
	for _, r := range reports {
		if r.CategoryID == nil {
			continue
		}
		id := *r.CategoryID
		label, ok := labelIn(labels, id)
		if !ok {
			continue
		}
		b, ok := result[label]
		if !ok {
			b = &Bucket{CategoryID: id, Title: label, Bugs: []SearchResult{}}
			result[label] = b
		}
		b.Bugs = append(b.Bugs, SearchResult{
			BugReportID: r.ID,
			Display:     r.Title,
			Description: r.DescriptionText(),
		})
	}
	return result
}

// Explore is the category explorer state: loaded bugs per category and the
// per-category counts the server uses as "load more" offsets.
type Explore struct {
	labels       []Label
	buckets      SearchResults
	distribution []int
}

// NewExplore returns an empty explorer over labels
func NewExplore(labels []Label) *Explore {
	return &Explore{
		labels:       labels,
		buckets:      SearchResults{},
		distribution: make([]int, len(labels)),
	}
}

// Replace rebuilds the whole grouping from reports and recounts the
// distribution from scratch.
func (e *Explore) Replace(reports []models.BugReport) {
	distr := make([]int, len(e.labels))
	e.buckets = GroupSearchResults(reports, e.labels)
	for _, b := range e.buckets {
		distr[b.CategoryID] = len(b.Bugs)
	}
	e.distribution = distr
}

// LoadMore appends delta to one category's bucket. Every other bucket is left
// as it was. newDistribution replaces the offsets when it covers every label.
func (e *Explore) LoadMore(categoryID int, delta []models.BugReport, newDistribution []int) bool {
	label, ok := labelIn(e.labels, categoryID)
	if !ok {
		return false
	}

	existing := e.buckets[label]
	next := &Bucket{CategoryID: categoryID, Title: label}
	if existing != nil {
		next.Bugs = make([]SearchResult, 0, len(existing.Bugs)+len(delta))
		next.Bugs = append(next.Bugs, existing.Bugs...)
	}
	next.Bugs = append(next.Bugs, ToSearchResults(delta)...)
	e.buckets[label] = next

	if len(newDistribution) == len(e.labels) {
		e.distribution = append([]int(nil), newDistribution...)
	} else {
		e.distribution[categoryID] += len(delta)
	}
	return true
}

// Distribution returns a copy of the per-category counts
func (e *Explore) Distribution() []int {
	return append([]int(nil), e.distribution...)
}

// Bucket returns the bucket for a category id
func (e *Explore) Bucket(categoryID int) (Bucket, bool) {
	label, ok := labelIn(e.labels, categoryID)
	if !ok {
		return Bucket{}, false
	}
	b, ok := e.buckets[label]
	if !ok {
		return Bucket{}, false
	}
	return *b, true
}

// Categories returns the non-empty buckets ordered by category id
func (e *Explore) Categories() []Bucket {
	return e.buckets.Ordered()
}
