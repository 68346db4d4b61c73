// Package nlp pulls structured fields out of free-form message text.
// Extraction is best effort: missing fields stay zero, the extractor never
// fails, and a confidence score lets the caller decide when to ask a
// clarifying question instead.
package nlp

import (
	"regexp"
	"strings"
	"time"

	"planbot/app/service/intent"
	"planbot/app/util/timeparse"
)

type Fields struct {
	Title        string
	When         *timeparse.Result
	Location     string
	Note         string
	StatusFilter string // open, completed or all
	Priority     int    // 1 (normal) .. 4 (urgent), 0 when absent

	// Confidence grows with the number of recognized fields.
	Confidence float64
}

type Extractor struct {
	resolver *timeparse.Resolver
}

func NewExtractor(resolver *timeparse.Resolver) *Extractor {
	return &Extractor{resolver: resolver}
}

var (
	leadInRe   = regexp.MustCompile(`(?i)^(?:please\s+)?(?:create|add|new|schedule|delete|remove|cancel|update|change|complete|finish|show|list)\s+(?:a\s+|an\s+|the\s+|my\s+)?(?:task|event|meeting|appointment|reminder)s?\s*:?\s*`)
	priorityRe = regexp.MustCompile(`(?i)\bpriority\s*:?\s*(urgent|high|medium|normal|low|[1-4])\b`)
)

var statusWords = map[string][]string{
	"open":      {"open", "pending", "todo", "incomplete", "active"},
	"completed": {"completed", "done", "finished", "closed"},
	"all":       {"all", "everything", "any"},
}

// Extract parses text into fields. Delimited segments ("location X",
// "note: Y") take precedence over free prose for overlapping fields.
func (e *Extractor) Extract(text string, hint intent.Intent, now time.Time) Fields {
	var fields Fields

	text = strings.TrimSpace(text)
	if text == "" {
		return fields
	}

	body := leadInRe.ReplaceAllString(text, "")

	if m := priorityRe.FindStringSubmatch(body); m != nil {
		fields.Priority = parsePriority(m[1])
		body = strings.TrimSpace(priorityRe.ReplaceAllString(body, ""))
	}

	var main []string
	for _, segment := range strings.Split(body, ",") {
		segment = strings.TrimSpace(segment)
		if segment == "" {
			continue
		}

		lower := strings.ToLower(segment)
		switch {
		case strings.HasPrefix(lower, "location"):
			fields.Location = markerValue(segment, "location")
		case strings.HasPrefix(lower, "notes"):
			fields.Note = markerValue(segment, "notes")
		case strings.HasPrefix(lower, "note"):
			fields.Note = markerValue(segment, "note")
		default:
			main = append(main, segment)
		}
	}

	clause := strings.Join(main, ", ")
	fields.Title, fields.When = e.splitTitleAndTime(clause, now)

	if hint == intent.ListTasks || hint == intent.UpdateTask {
		fields.StatusFilter = extractStatus(text)
	}

	fields.Confidence = e.score(fields)

	return fields
}

// splitTitleAndTime separates the free-text title from a trailing date
// phrase ("Buy groceries on January 15th at 2pm").
func (e *Extractor) splitTitleAndTime(clause string, now time.Time) (string, *timeparse.Result) {
	clause = strings.TrimSpace(clause)
	if clause == "" {
		return "", nil
	}

	for _, sep := range []string{" on ", " at ", " for ", " by ", " due "} {
		idx := strings.Index(strings.ToLower(clause), sep)
		if idx < 0 {
			continue
		}

		phrase := clause[idx+len(sep):]
		if result, err := e.resolver.Resolve(phrase, now); err == nil {
			return strings.TrimSpace(clause[:idx]), &result
		}
	}

	// No separator: the whole clause may still carry a phrase ("events
	// next week"), in which case the title is what precedes it.
	if result, err := e.resolver.Resolve(clause, now); err == nil {
		title := stripDatePhrase(clause)
		return title, &result
	}

	return clause, nil
}

var datePhraseRe = regexp.MustCompile(`(?i)\b(?:today|tomorrow|yesterday|this\s+week|next\s+week|(?:this|next)\s+(?:monday|tuesday|wednesday|thursday|friday|saturday|sunday)|in\s+\d+\s+days?|\d{4}-\d{2}-\d{2}|(?:january|february|march|april|may|june|july|august|september|october|november|december)\s+\d{1,2}(?:st|nd|rd|th)?|\d{1,2}/\d{1,2}(?:/\d{2,4})?|(?:at\s+)?\d{1,2}(?::\d{2})?\s*(?:am|pm)|\d{1,2}:\d{2})\b`)

func stripDatePhrase(clause string) string {
	cleaned := datePhraseRe.ReplaceAllString(clause, "")
	cleaned = strings.TrimSpace(strings.Trim(cleaned, " ,.-"))

	return cleaned
}

func markerValue(segment, marker string) string {
	value := segment[len(marker):]
	value = strings.TrimSpace(value)
	value = strings.TrimPrefix(value, ":")

	return strings.TrimSpace(value)
}

func extractStatus(text string) string {
	lower := strings.ToLower(text)

	for _, status := range []string{"completed", "open", "all"} {
		for _, word := range statusWords[status] {
			if strings.Contains(lower, word) {
				return status
			}
		}
	}

	return ""
}

func parsePriority(raw string) int {
	switch strings.ToLower(raw) {
	case "urgent", "4":
		return 4
	case "high", "3":
		return 3
	case "medium", "2":
		return 2
	case "normal", "low", "1":
		return 1
	default:
		return 0
	}
}

func (e *Extractor) score(fields Fields) float64 {
	score := 0.35

	for _, present := range []bool{
		fields.Title != "",
		fields.When != nil,
		fields.Location != "",
		fields.Note != "",
		fields.StatusFilter != "",
		fields.Priority != 0,
	} {
		if present {
			score += 0.12
		}
	}

	if score > 0.95 {
		score = 0.95
	}

	return score
}
