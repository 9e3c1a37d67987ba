package pipeline

import "strings"

// ContentType is the coarse classification of a media channel.
type ContentType string

const (
	ContentSearch   ContentType = "Search"
	ContentSocial   ContentType = "Social"
	ContentStandard ContentType = "Standard"
	ContentUnknown  ContentType = "Unknown"
)

// searchMarkers are domain fragments identifying search-engine channels.
// The trailing dot avoids matching names that merely contain the word
// (e.g. "googleblog").
var searchMarkers = []string{"google.", "bing."}

// socialMarkers are name fragments identifying social platforms.
var socialMarkers = []string{"facebook", "instagram", "tiktok", "youtube"}

// ClassifyContentType classifies a media channel name. Pure and total:
// every input maps to exactly one content type; matching is
// case-insensitive substring, search before social.
func ClassifyContentType(channel string) ContentType {
	if channel == "" {
		return ContentUnknown
	}
	lowered := strings.ToLower(channel)
	for _, m := range searchMarkers {
		if strings.Contains(lowered, m) {
			return ContentSearch
		}
	}
	for _, m := range socialMarkers {
		if strings.Contains(lowered, m) {
			return ContentSocial
		}
	}
	return ContentStandard
}
