package aggregate

import (
	"regexp"
	"strings"
)

// UnmatchedPage is the page key for failing tests whose name does not start
// with a URL. Such failures are counted like any other page.
const UnmatchedPage = "(unmatched)"

// pageURLPattern matches the page URL at the start of a test name: the
// longest prefix ending in '/' that contains no ')'.
var pageURLPattern = regexp.MustCompile(`^https?://[^)]+/`)

// Failure is the page and description extracted from a test name.
type Failure struct {
	URL         string
	Description string
	// Matched is false when the name has no leading URL and URL is
	// UnmatchedPage.
	Matched bool
}

// ExtractFailure splits a test name into its leading page URL and the
// remaining description.
func ExtractFailure(name string) Failure {
	loc := pageURLPattern.FindStringIndex(name)
	if loc == nil {
		return Failure{
			URL:         UnmatchedPage,
			Description: strings.TrimSpace(name),
		}
	}
	return Failure{
		URL:         name[:loc[1]],
		Description: strings.TrimSpace(name[loc[1]:]),
		Matched:     true,
	}
}
