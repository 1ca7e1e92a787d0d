package state

import (
	"regexp"
	"slices"
	"strings"
)

var (
	milestoneWordPattern = regexp.MustCompile(`claims milestone (\w+)`)
	awardWordPattern     = regexp.MustCompile(`funds (\w+) award`)
)

// MilestoneClaimed returns the milestone a "claims milestone X" description names. Known
// display names are matched longest first so multi-word names survive; otherwise the first
// word after the phrase is used.
func MilestoneClaimed(description string, known []string) (string, bool) {
	for _, name := range longestFirst(known) {
		if strings.Contains(description, "claims milestone "+name) {
			return name, true
		}
	}
	if m := milestoneWordPattern.FindStringSubmatch(description); m != nil {
		return m[1], true
	}
	return "", false
}

// AwardFunded returns the award a "funds X award" description names, with the same
// matching rules as MilestoneClaimed.
func AwardFunded(description string, known []string) (string, bool) {
	for _, name := range longestFirst(known) {
		if strings.Contains(description, "funds "+name+" award") {
			return name, true
		}
	}
	if m := awardWordPattern.FindStringSubmatch(description); m != nil {
		return m[1], true
	}
	return "", false
}

func longestFirst(names []string) []string {
	out := slices.DeleteFunc(slices.Clone(names), func(s string) bool { return s == "" })
	slices.SortStableFunc(out, func(a, b string) int { return len(b) - len(a) })
	return out
}
