package bus

import (
	"errors"
	"fmt"
	"strings"
)

// Wildcard segments accepted in subscription patterns.
const (
	// WildcardSegment matches exactly one topic segment.
	WildcardSegment = "+"
	// WildcardRemainder matches zero or more trailing segments. It must be
	// the final segment of a pattern.
	WildcardRemainder = "#"
)

// ErrPatternInvalid indicates a malformed subscription pattern.
var ErrPatternInvalid = errors.New("subscription pattern is invalid")

// ValidatePattern checks a subscription pattern's shape. Patterns use the
// same slash-separated hierarchy as event topics, with "+" standing in for
// one segment and a trailing "#" for the remainder.
func ValidatePattern(pattern string) error {
	if strings.TrimSpace(pattern) == "" {
		return fmt.Errorf("%w: empty pattern", ErrPatternInvalid)
	}
	segments := strings.Split(pattern, "/")
	for i, segment := range segments {
		if segment == "" {
			return fmt.Errorf("%w: empty segment in %q", ErrPatternInvalid, pattern)
		}
		if segment == WildcardRemainder && i != len(segments)-1 {
			return fmt.Errorf("%w: %q must be the final segment in %q", ErrPatternInvalid, WildcardRemainder, pattern)
		}
	}
	return nil
}

// MatchTopic reports whether a topic matches a subscription pattern.
//
// "events/task/+" matches every task instance; "events/#" matches the whole
// store. Matching is segment-wise, so "+" never crosses a slash.
func MatchTopic(pattern, topic string) bool {
	if pattern == "" || topic == "" {
		return false
	}
	patternSegs := strings.Split(pattern, "/")
	topicSegs := strings.Split(topic, "/")

	for i, seg := range patternSegs {
		if seg == WildcardRemainder {
			return true
		}
		if i >= len(topicSegs) {
			return false
		}
		if seg != WildcardSegment && seg != topicSegs[i] {
			return false
		}
	}
	return len(patternSegs) == len(topicSegs)
}
