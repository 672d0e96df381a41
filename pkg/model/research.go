package model

import (
	"strings"
)

// Plan is the ordered list of subtopics produced by the planner.
// Three subtopics are requested from the LLM but the count is not enforced.
type Plan []string

// Notes maps subtopic to research notes while preserving plan order
type Notes struct {
	order []string
	notes map[string]string
}

// NewNotes creates an empty Notes
func NewNotes() *Notes {
	return &Notes{notes: make(map[string]string)}
}

// Set stores notes for a subtopic. Setting an existing subtopic replaces its notes in place.
func (n *Notes) Set(subtopic, content string) {
	if _, ok := n.notes[subtopic]; !ok {
		n.order = append(n.order, subtopic)
	}
	n.notes[subtopic] = content
}

// Get returns notes for a subtopic
func (n *Notes) Get(subtopic string) (string, bool) {
	v, ok := n.notes[subtopic]
	return v, ok
}

// Subtopics returns subtopics in insertion order
func (n *Notes) Subtopics() []string {
	return append([]string(nil), n.order...)
}

// Len returns the number of subtopics
func (n *Notes) Len() int {
	return len(n.order)
}

// Combined renders all notes as markdown sections
func (n *Notes) Combined() string {
	var b strings.Builder
	for _, s := range n.order {
		b.WriteString("\n## ")
		b.WriteString(s)
		b.WriteString("\n")
		b.WriteString(n.notes[s])
		b.WriteString("\n")
	}
	return b.String()
}

// Verdict is the critic's classification of a draft report
type Verdict string

const (
	VerdictAccept  Verdict = "ACCEPT"
	VerdictRetry   Verdict = "RETRY"
	VerdictUnknown Verdict = "UNKNOWN"
)

// ParseVerdict normalises critic output. Anything other than ACCEPT or RETRY is VerdictUnknown.
func ParseVerdict(raw string) Verdict {
	switch Verdict(strings.ToUpper(strings.TrimSpace(raw))) {
	case VerdictAccept:
		return VerdictAccept
	case VerdictRetry:
		return VerdictRetry
	default:
		return VerdictUnknown
	}
}
