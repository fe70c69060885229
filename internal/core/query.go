package core

import "time"

// AllCategories is the category sentinel meaning "no category filter".
const AllCategories = "All"

// Filters are the optional list parameters. Zero values mean absent:
// empty Category, zero SpecificDate, Year 0, Month 0.
type Filters struct {
	Category     string
	SpecificDate Date
	Year         int
	Month        time.Month
}

// Predicate is the storage-neutral form of Filters. An empty Category
// matches every category.
type Predicate struct {
	Category string
	Window   Window
}

// ResolveFilters turns list filters into a predicate. A specific date wins
// over year and month; a month without a year is ignored.
func ResolveFilters(f Filters) Predicate {
	var p Predicate
	if f.Category != "" && f.Category != AllCategories {
		p.Category = f.Category
	}

	switch {
	case !f.SpecificDate.IsZero():
		p.Window = OnDay(f.SpecificDate)
	case f.Year != 0 && f.Month >= time.January && f.Month <= time.December:
		p.Window = InMonth(f.Year, f.Month)
	case f.Year != 0:
		p.Window = InYear(f.Year)
	default:
		p.Window = AllTime()
	}
	return p
}

// Match reports whether e satisfies both the category and temporal axes.
func (p Predicate) Match(e Expense) bool {
	if p.Category != "" && e.Category != p.Category {
		return false
	}
	return p.Window.Contains(e.Date)
}
