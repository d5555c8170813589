package domain

import "fmt"

// PrimaryFilter is the three-way view selector applied on top of search and tag filters.
type PrimaryFilter string

// Primary filters. All and Favorites never include archived items.
const (
	FilterAll       PrimaryFilter = "all"
	FilterFavorites PrimaryFilter = "favorites"
	FilterArchived  PrimaryFilter = "archived"
)

// ParsePrimaryFilter maps user input to a PrimaryFilter. Empty means all.
func ParsePrimaryFilter(s string) (PrimaryFilter, error) {
	switch PrimaryFilter(s) {
	case "", FilterAll:
		return FilterAll, nil
	case FilterFavorites:
		return FilterFavorites, nil
	case FilterArchived:
		return FilterArchived, nil
	default:
		return "", fmt.Errorf("unknown filter %q (want all, favorites or archived)", s)
	}
}

// Matches reports whether item belongs in a view with this filter.
// Favorited items that are archived show up only under FilterArchived.
func (f PrimaryFilter) Matches(item *SavedItem) bool {
	switch f {
	case FilterArchived:
		return item.IsArchived
	case FilterFavorites:
		return item.IsFavorite && !item.IsArchived
	default:
		return !item.IsArchived
	}
}
