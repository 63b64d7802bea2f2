// Package categories provides the allowed category set used by record
// validation. Typed imports reject categories outside the set; callers that
// want free-form categories must extend the set explicitly via config.
package categories

// Set provides in-memory lookup over allowed category names.
type Set struct {
	ordered []string
	names   map[string]struct{}
}

// NewSet creates a Set from a slice of category names, preserving order and
// dropping duplicates.
func NewSet(names []string) *Set {
	s := &Set{names: make(map[string]struct{}, len(names))}
	for _, n := range names {
		if _, ok := s.names[n]; ok {
			continue
		}
		s.names[n] = struct{}{}
		s.ordered = append(s.ordered, n)
	}
	return s
}

// Default returns a Set with the built-in income/expense categories.
func Default() *Set {
	return NewSet(DefaultNames())
}

// DefaultNames returns the built-in category names.
func DefaultNames() []string {
	return []string{
		"Food & Groceries",
		"Dining Out",
		"Transport",
		"Housing & Rent",
		"Utilities",
		"Health",
		"Entertainment",
		"Shopping",
		"Education",
		"Travel",
		"Salary",
		"Investments",
		"Gifts",
		"Other",
	}
}

// All returns the category names in declaration order.
func (s *Set) All() []string {
	return s.ordered
}

// Allowed reports whether name is in the set.
func (s *Set) Allowed(name string) bool {
	_, ok := s.names[name]
	return ok
}
