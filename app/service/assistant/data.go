package assistant

import (
	"planbot/app/service/intent"
	"planbot/app/service/nlp"
)

// ParsedRequest is the structured form of one inbound message: the routed
// intent plus whatever fields the extractor recognized. It lives for a
// single dispatch and is never persisted.
type ParsedRequest struct {
	Intent     intent.Intent
	Fields     nlp.Fields
	Confidence float64
	Degraded   bool // classifier answered via the rule fallback
	Text       string
}
