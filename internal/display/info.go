// Package display derives everything the UI shows about a tool call from
// the call record itself. Every function here is pure and total: it can be
// recomputed on any render, and malformed or partially-streamed input
// degrades to empty values instead of errors.
package display

// State buckets the call lifecycle for presentation. Pending covers both
// queued and running calls; cancelled calls land in the error bucket.
type State string

const (
	StatePending State = "pending"
	StateSuccess State = "success"
	StateError   State = "error"
)

// ContentKind classifies result text for rendering (markdown gets the
// glamour treatment, JSON gets syntax highlighting, text is shown as is).
type ContentKind string

const (
	ContentText     ContentKind = "text"
	ContentMarkdown ContentKind = "markdown"
	ContentJSON     ContentKind = "json"
)

// Info is the derived display model of one tool call. The line-count
// fields are populated exclusively: edits carry the ± pair, writes carry
// added only, reads carry ReadLines, everything else carries none.
type Info struct {
	Icon      string
	Action    string
	Primary   string
	Secondary string

	AddedLines   *int
	RemovedLines *int
	ReadLines    *int

	State        State
	InputLoading bool
	ErrorMessage string
}
