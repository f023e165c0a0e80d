package collector

import (
	"strings"

	"github.com/google/go-github/v57/github"
)

const (
	// minSize is the minimum repository size accepted, in the units
	// reported by the GitHub API.
	minSize = 2000

	// minStars is the minimum stargazer count accepted.
	minStars = 100
)

// Filter decides whether a search candidate belongs in the dataset.
type Filter struct {
	years map[int]bool
}

// NewFilter creates a Filter accepting repositories last updated in one of
// the given years.
func NewFilter(years []int) *Filter {
	set := make(map[int]bool, len(years))
	for _, y := range years {
		set[y] = true
	}
	return &Filter{years: set}
}

// Suitable reports whether a candidate repository fits the dataset criteria:
// public, not a fork, size of at least 2000, at least 100 stars, last
// updated in an accepted year, and not Android-related. Missing fields
// reject the candidate rather than crashing; the getters treat nil as the
// zero value.
func (f *Filter) Suitable(repo *github.Repository) bool {
	if repo == nil {
		return false
	}
	if repo.GetPrivate() || repo.GetFork() {
		return false
	}
	if repo.GetSize() < minSize {
		return false
	}
	if repo.GetStargazersCount() < minStars {
		return false
	}
	if !f.years[repo.GetUpdatedAt().Year()] {
		return false
	}
	return !mentionsAndroid(repo)
}

// mentionsAndroid checks the topics and description for the token "android",
// case-insensitively.
func mentionsAndroid(repo *github.Repository) bool {
	for _, topic := range repo.Topics {
		if strings.Contains(strings.ToLower(topic), "android") {
			return true
		}
	}
	return strings.Contains(strings.ToLower(repo.GetDescription()), "android")
}
