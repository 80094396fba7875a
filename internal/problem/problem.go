// Package problem extracts LeetCode problem identifiers from page URLs.
package problem

import "regexp"

var problemPath = regexp.MustCompile(`leetcode\.com/problems/([^/?#]+)`)

// FromURL returns the problem slug in a page URL, e.g. "two-sum" for
// https://leetcode.com/problems/two-sum/description/.
func FromURL(raw string) (string, bool) {
	m := problemPath.FindStringSubmatch(raw)
	if m == nil {
		return "", false
	}
	return m[1], true
}

// FileName returns the persisted document name for a problem.
func FileName(problemID string) string {
	return "drawing_" + problemID + ".json"
}
