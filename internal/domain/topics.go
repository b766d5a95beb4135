package domain

import "strings"

// Topic is a fixed categorical tag. Its value is the display name reported in misses.
type Topic string

const (
	TopicWeldingSymbols   Topic = "Welding Symbols"
	TopicVisualInspection Topic = "Visual Inspection Criteria"
	TopicCodeNavigation   Topic = "Code & Standards Navigation"
	TopicWPS              Topic = "Welder & Procedure Qualification"
	TopicSafety           Topic = "Job Site Safety"

	// TopicAll selects the whole bank. It is never attached to a question.
	TopicAll Topic = "All"
)

// Topics lists every question topic in catalog order.
func Topics() []Topic {
	return []Topic{
		TopicWeldingSymbols,
		TopicVisualInspection,
		TopicCodeNavigation,
		TopicWPS,
		TopicSafety,
	}
}

var topicCodes = map[string]Topic{
	"weldingsymbols":   TopicWeldingSymbols,
	"visualinspection": TopicVisualInspection,
	"codenavigation":   TopicCodeNavigation,
	"wps":              TopicWPS,
	"safety":           TopicSafety,
	"all":              TopicAll,
}

// shortNames are the labels used on topic selection cards.
var shortNames = map[Topic]string{
	TopicAll:              "Comprehensive Quiz",
	TopicWeldingSymbols:   "Welding Symbols",
	TopicVisualInspection: "Visual Inspection",
	TopicCodeNavigation:   "Code Navigation",
	TopicWPS:              "WPS/PQR",
	TopicSafety:           "Job Site Safety",
}

// Valid reports whether t is a question topic (TopicAll is not).
func (t Topic) Valid() bool {
	for _, known := range Topics() {
		if t == known {
			return true
		}
	}
	return false
}

// Name is the short card label of the topic.
func (t Topic) Name() string {
	if name, ok := shortNames[t]; ok {
		return name
	}
	return string(t)
}

// ParseTopic accepts a display value ("Job Site Safety") or a short code ("Safety"),
// case-insensitively.
func ParseTopic(raw string) (Topic, error) {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return "", ErrUnknownTopic
	}
	for _, t := range append(Topics(), TopicAll) {
		if strings.EqualFold(trimmed, string(t)) {
			return t, nil
		}
	}
	if t, ok := topicCodes[strings.ToLower(trimmed)]; ok {
		return t, nil
	}
	return "", ErrUnknownTopic
}
