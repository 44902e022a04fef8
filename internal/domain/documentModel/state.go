package documentModel

import (
	"fmt"

	"github.com/akolanti/docmind/internal/apperr"
)

// State is the closed set of processing states. The unexported marker method keeps
// other packages from adding variants, so type switches over State are exhaustive.
type State interface {
	Status() Status
	isState()
}

type Pending struct{}

type Processing struct{}

type Completed struct {
	Text      string
	PageCount int
	WordCount int
	Warnings  []string
}

type Failed struct {
	Reason string
}

func (Pending) Status() Status    { return StatusPending }
func (Processing) Status() Status { return StatusProcessing }
func (Completed) Status() Status  { return StatusCompleted }
func (Failed) Status() Status     { return StatusFailed }

func (Pending) isState()    {}
func (Processing) isState() {}
func (Completed) isState()  {}
func (Failed) isState()     {}

// Event drives Transition.
type Event interface {
	isEvent()
}

// Start begins an extraction attempt.
type Start struct{}

// Succeed finishes an attempt with extracted text.
type Succeed struct {
	Text      string
	PageCount int
	WordCount int
	Warnings  []string
}

// Fail finishes an attempt with a human readable cause.
type Fail struct {
	Reason string
}

func (Start) isEvent()   {}
func (Succeed) isEvent() {}
func (Fail) isEvent()    {}

// Transition returns the next state or a Conflict error for illegal moves.
//
//	pending|failed|completed --Start--> processing
//	processing --Succeed--> completed
//	processing --Fail--> failed
func Transition(from State, ev Event) (State, error) {
	switch s := from.(type) {
	case Pending, Failed, Completed:
		if _, ok := ev.(Start); ok {
			return Processing{}, nil
		}
		return nil, illegal(s, ev)
	case Processing:
		switch e := ev.(type) {
		case Succeed:
			if e.Text == "" {
				return nil, apperr.New(apperr.Internal, "completed state requires extracted text")
			}
			return Completed{Text: e.Text, PageCount: e.PageCount, WordCount: e.WordCount, Warnings: e.Warnings}, nil
		case Fail:
			reason := e.Reason
			if reason == "" {
				reason = "extraction failed"
			}
			return Failed{Reason: reason}, nil
		case Start:
			return nil, apperr.New(apperr.Validation, "document is currently processing")
		}
		return nil, illegal(s, ev)
	}
	return nil, apperr.Newf(apperr.Internal, "unknown state %T", from)
}

func illegal(from State, ev Event) error {
	return apperr.Newf(apperr.Conflict, "illegal transition from %s on %s", from.Status(), eventName(ev))
}

func eventName(ev Event) string {
	switch ev.(type) {
	case Start:
		return "start"
	case Succeed:
		return "succeed"
	case Fail:
		return "fail"
	}
	return fmt.Sprintf("%T", ev)
}

// State reads the typed state back from the stored columns.
func (d *Document) State() State {
	switch d.Status {
	case StatusProcessing:
		return Processing{}
	case StatusCompleted:
		m := d.Meta()
		return Completed{Text: d.ExtractedText, PageCount: m.PageCount, WordCount: m.WordCount, Warnings: m.Warnings}
	case StatusFailed:
		reason := ""
		if d.ProcessingError != nil {
			reason = *d.ProcessingError
		}
		return Failed{Reason: reason}
	}
	return Pending{}
}

// Apply writes a state into the stored columns keeping
// extractedText != "" <=> completed and processingError != nil <=> failed.
func (d *Document) Apply(s State) {
	m := d.Meta()
	switch st := s.(type) {
	case Pending:
		d.ExtractedText = ""
		d.ProcessingError = nil
	case Processing:
		d.ExtractedText = ""
		d.RestructuredText = nil
		d.ProcessingError = nil
		m.Warnings = nil
	case Completed:
		d.ExtractedText = st.Text
		d.ProcessingError = nil
		m.PageCount = st.PageCount
		m.WordCount = st.WordCount
		m.Warnings = st.Warnings
	case Failed:
		reason := st.Reason
		d.ExtractedText = ""
		d.ProcessingError = &reason
	}
	d.Status = s.Status()
	d.SetMeta(m)
}
