package sink

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"sync"

	"gopkg.in/yaml.v3"

	gferrors "github.com/vnykmshr/goplumb/pkg/common/errors"
)

// Format selects the encoding of a WriterSink.
type Format int

const (
	// FormatJSON writes one JSON object per line.
	FormatJSON Format = iota

	// FormatYAML writes a YAML document stream.
	FormatYAML
)

func (f Format) String() string {
	switch f {
	case FormatJSON:
		return "json"
	case FormatYAML:
		return "yaml"
	default:
		return fmt.Sprintf("Format(%d)", int(f))
	}
}

type encoder interface {
	Encode(v interface{}) error
}

// WriterSink encodes entries to an io.Writer. It does not close the writer.
type WriterSink struct {
	mu     sync.Mutex
	format Format
	enc    encoder
	yaml   *yaml.Encoder
	closed bool
}

// NewWriterSink creates a sink writing to w in the given format.
func NewWriterSink(w io.Writer, format Format) (*WriterSink, error) {
	s := &WriterSink{format: format}
	switch format {
	case FormatJSON:
		s.enc = json.NewEncoder(w)
	case FormatYAML:
		s.yaml = yaml.NewEncoder(w)
		s.yaml.SetIndent(2)
		s.enc = s.yaml
	default:
		return nil, gferrors.NewValidationError("sink", "format", format, "unsupported").
			WithHint("use FormatJSON or FormatYAML")
	}
	return s, nil
}

// Write implements Sink.
func (s *WriterSink) Write(ctx context.Context, e Entry) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return closedError("sink.writer")
	}
	if err := s.enc.Encode(e); err != nil {
		return gferrors.NewOperationError("sink.writer", "Write", err).
			WithContext(s.format.String())
	}
	return nil
}

// Close implements Sink. For YAML it terminates the document stream.
func (s *WriterSink) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return nil
	}
	s.closed = true
	if s.yaml != nil {
		return s.yaml.Close()
	}
	return nil
}
