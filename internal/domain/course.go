package domain

// Course is a configured course section. Name is the user supplied alias
// shown in the listing, not the course title reported by Canvas.
type Course struct {
	ID   int
	Name string
}

// Module is a named, ordered grouping of items inside a course.
type Module struct {
	ID       int
	Name     string
	Position int
}

// ModuleItem is a single entry of a module. URL is empty for items that
// cannot be navigated to (sub headers, some external tools).
type ModuleItem struct {
	ID    int
	Title string
	Type  ItemType
	URL   string
}

// ModuleResult holds a module and its items in server order.
// Err is set when the item list could not be fetched; Items is then empty.
type ModuleResult struct {
	Module Module
	Items  []ModuleItem
	Err    error
}

// CourseResult is the per-course output of the fetcher.
type CourseResult struct {
	Course  Course
	Modules []ModuleResult
}

// CourseFailure records a course whose module list could not be fetched.
type CourseFailure struct {
	Course Course
	Err    error
}

// AggregateResult is the merged output of all course fetches.
// Both slices follow configured course order.
type AggregateResult struct {
	Successes []CourseResult
	Failures  []CourseFailure
}

// ItemCount returns the number of items across all successful courses.
func (r AggregateResult) ItemCount() int {
	n := 0
	for _, c := range r.Successes {
		for _, m := range c.Modules {
			n += len(m.Items)
		}
	}
	return n
}
