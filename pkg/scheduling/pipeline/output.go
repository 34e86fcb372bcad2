package pipeline

import "time"

// Output is the result of a successful run.
type Output struct {
	// RunID identifies the run in logs and sinks.
	RunID string

	// Records is the trace, oldest first.
	Records []Record

	// Params is the final parameter mapping, including exported keys.
	Params Params

	// Data is the final shared output.
	Data interface{}

	StartTime time.Time
	EndTime   time.Time
	Duration  time.Duration
}

// LastRecord returns the most recent trace entry.
func (o *Output) LastRecord() (Record, bool) {
	if o == nil || len(o.Records) == 0 {
		return Record{}, false
	}
	return o.Records[len(o.Records)-1], true
}

// LastMessage returns the message of the most recent trace entry.
func (o *Output) LastMessage() (string, bool) {
	rec, ok := o.LastRecord()
	return rec.Message, ok
}

// LastStatus returns the status of the most recent trace entry.
func (o *Output) LastStatus() (int, bool) {
	rec, ok := o.LastRecord()
	return rec.Status, ok
}
