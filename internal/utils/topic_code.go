package utils

import (
	"strings"
	"unicode"
)

const (
	topicCodeSubjectLen = 3
	topicCodeTitleLen   = 40
)

// TopicCode maps (subject, title) to the stable node identifier used as the
// primary key of a topic, e.g. ("Physics", "Mechanics") -> "PHY_MECHANICS".
//
// The subject contributes its first three characters upper-cased. The title
// is upper-cased, spaces and hyphens become underscores, anything other than
// letters, numbers and underscores is dropped (so "²" and "Ⅻ" survive), and
// the result is cut to 40 characters. TopicCode is pure so repeated references to the same topic
// always land on the same node.
func TopicCode(subject, title string) string {
	prefix := []rune(strings.ToUpper(subject))
	if len(prefix) > topicCodeSubjectLen {
		prefix = prefix[:topicCodeSubjectLen]
	}

	var b strings.Builder
	n := 0
	for _, r := range strings.ToUpper(title) {
		if n >= topicCodeTitleLen {
			break
		}
		switch {
		case r == ' ' || r == '-':
			r = '_'
		case r == '_' || unicode.IsLetter(r) || unicode.IsNumber(r):
		default:
			continue
		}
		b.WriteRune(r)
		n++
	}
	return string(prefix) + "_" + b.String()
}
