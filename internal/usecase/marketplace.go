package usecase

import (
	"sort"
	"strings"

	"entrepreneursim/internal/domain"
)

// AllIndustries disables the industry filter
const AllIndustries = "all"

// MarketFilter narrows the marketplace listing
type MarketFilter struct {
	Search   string
	Industry string
}

// Active reports whether the filter removes anything
func (f MarketFilter) Active() bool {
	return strings.TrimSpace(f.Search) != "" || (f.Industry != "" && f.Industry != AllIndustries)
}

// Matches reports whether a business passes both the search term (name or
// description, case-insensitive) and the industry filter
func (f MarketFilter) Matches(b domain.Business) bool {
	if f.Industry != "" && f.Industry != AllIndustries && b.Industry != f.Industry {
		return false
	}

	term := strings.ToLower(strings.TrimSpace(f.Search))
	if term == "" {
		return true
	}
	return strings.Contains(strings.ToLower(b.Name), term) ||
		strings.Contains(strings.ToLower(b.Description), term)
}

// FilterBusinesses keeps businesses matching f, in their original order
func FilterBusinesses(businesses []domain.Business, f MarketFilter) []domain.Business {
	out := make([]domain.Business, 0, len(businesses))
	for _, b := range businesses {
		if f.Matches(b) {
			out = append(out, b)
		}
	}
	return out
}

// Industries lists the distinct industries present, sorted
func Industries(businesses []domain.Business) []string {
	seen := make(map[string]struct{})
	var out []string
	for _, b := range businesses {
		if b.Industry == "" {
			continue
		}
		if _, ok := seen[b.Industry]; ok {
			continue
		}
		seen[b.Industry] = struct{}{}
		out = append(out, b.Industry)
	}
	sort.Strings(out)
	return out
}
