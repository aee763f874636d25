package domain

// ErrorKind classifies why an itinerary revision failed.
type ErrorKind string

const (
	KindGeneration ErrorKind = "generation"
	KindTool       ErrorKind = "tool"
	KindParse      ErrorKind = "parse"
)

// Outcome is the result of a revision attempt: either an itinerary or an error kind.
type Outcome struct {
	Itinerary *Itinerary
	Kind      ErrorKind
	Err       error
}

// Revised builds a successful outcome.
func Revised(it *Itinerary) Outcome {
	return Outcome{Itinerary: it}
}

// Failed builds a failed outcome.
func Failed(kind ErrorKind, err error) Outcome {
	return Outcome{Kind: kind, Err: err}
}

// OK reports whether the outcome carries an itinerary.
func (o Outcome) OK() bool {
	return o.Kind == "" && o.Itinerary != nil
}
