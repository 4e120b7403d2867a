package models

// ListFilter narrows administrative registry listings. Zero values match
// everything.
type ListFilter struct {
	Status     Status
	ClientType string
	ModelName  string
}

// Matches reports whether the entry satisfies the filter.
func (f ListFilter) Matches(e *Entry) bool {
	if f.Status != "" && e.Status != f.Status {
		return false
	}
	if f.ClientType != "" && e.ClientType != f.ClientType {
		return false
	}
	if f.ModelName != "" && e.ModelName != f.ModelName {
		return false
	}
	return true
}
