package sink

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	promtest "github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"

	"github.com/vnykmshr/goplumb/internal/testutil"
	gferrors "github.com/vnykmshr/goplumb/pkg/common/errors"
	"github.com/vnykmshr/goplumb/pkg/metrics"
	"github.com/vnykmshr/goplumb/pkg/scheduling/pipeline"
)

func sampleEntry(job string, status int) Entry {
	start := time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC)
	return Entry{
		Job:        job,
		Pipeline:   "signup",
		PipelineID: "p-1",
		RunID:      "r-" + job,
		Records: []pipeline.Record{
			{StageID: "validate", Message: "ok", Status: 0, Index: 0, Count: 0},
			{StageID: "store", Message: "stored", Status: status, Index: 1, Count: 1},
		},
		StartedAt:  start,
		FinishedAt: start.Add(time.Second),
	}
}

func TestNewEntry(t *testing.T) {
	p := pipeline.NewWithConfig(pipeline.Config{Name: "signup"},
		pipeline.NewStage(pipeline.StageConfig{Status: func(pipeline.Call) int { return 2 }}))

	out, err := p.Run(nil)
	require.NoError(t, err)

	e := NewEntry("nightly", p, out, nil)
	assert.Equal(t, "nightly", e.Job)
	assert.Equal(t, "signup", e.Pipeline)
	assert.Equal(t, p.ID(), e.PipelineID)
	assert.Equal(t, out.RunID, e.RunID)
	assert.False(t, e.Failed())
	status, ok := e.LastStatus()
	require.True(t, ok)
	assert.Equal(t, 2, status)

	_, err = p.Run(pipeline.Params{"out": 1})
	require.Error(t, err)
	failed := NewEntry("", p, nil, err)
	assert.True(t, failed.Failed())
	assert.Empty(t, failed.RunID)
	_, ok = failed.LastStatus()
	assert.False(t, ok)
}

func TestMemorySink(t *testing.T) {
	s, err := NewMemorySink(2)
	require.NoError(t, err)
	ctx := context.Background()

	for _, job := range []string{"a", "b", "c"} {
		require.NoError(t, s.Write(ctx, sampleEntry(job, 0)))
	}

	entries := s.Entries()
	require.Len(t, entries, 2)
	assert.Equal(t, "b", entries[0].Job)
	assert.Equal(t, "c", entries[1].Job)

	require.NoError(t, s.Close())
	err = s.Write(ctx, sampleEntry("d", 0))
	assert.True(t, errors.Is(err, gferrors.ErrClosed))
	assert.Equal(t, 2, s.Len())
}

func TestMemorySinkValidation(t *testing.T) {
	_, err := NewMemorySink(0)
	assert.True(t, gferrors.IsValidationError(err))
}

func TestMemorySinkConcurrent(t *testing.T) {
	s, err := NewMemorySink(1000)
	require.NoError(t, err)

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 50; j++ {
				_ = s.Write(context.Background(), sampleEntry("job", j))
			}
		}()
	}
	wg.Wait()
	assert.Equal(t, 500, s.Len())
}

func TestMemorySinkCanceled(t *testing.T) {
	s, err := NewMemorySink(1)
	require.NoError(t, err)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	assert.ErrorIs(t, s.Write(ctx, sampleEntry("a", 0)), context.Canceled)
}

func TestWriterSinkJSON(t *testing.T) {
	var buf bytes.Buffer
	s, err := NewWriterSink(&buf, FormatJSON)
	require.NoError(t, err)

	require.NoError(t, s.Write(context.Background(), sampleEntry("a", 0)))
	require.NoError(t, s.Write(context.Background(), sampleEntry("b", 1)))
	require.NoError(t, s.Close())

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Len(t, lines, 2)

	var got Entry
	require.NoError(t, json.Unmarshal([]byte(lines[1]), &got))
	assert.Equal(t, sampleEntry("b", 1), got)
	assert.Contains(t, lines[0], `"stage_id":"validate"`)
}

func TestWriterSinkYAML(t *testing.T) {
	var buf bytes.Buffer
	s, err := NewWriterSink(&buf, FormatYAML)
	require.NoError(t, err)

	require.NoError(t, s.Write(context.Background(), sampleEntry("a", 0)))
	require.NoError(t, s.Write(context.Background(), sampleEntry("b", 1)))
	require.NoError(t, s.Close())

	dec := yaml.NewDecoder(&buf)
	var jobs []string
	for {
		var e Entry
		err := dec.Decode(&e)
		if errors.Is(err, io.EOF) {
			break
		}
		require.NoError(t, err)
		jobs = append(jobs, e.Job)
		assert.Equal(t, "signup", e.Pipeline)
		require.Len(t, e.Records, 2)
	}
	assert.Equal(t, []string{"a", "b"}, jobs)
}

func TestWriterSinkErrors(t *testing.T) {
	w := testutil.NewMockWriter()
	w.SetAlwaysError(errors.New("disk full"))

	s, err := NewWriterSink(w, FormatJSON)
	require.NoError(t, err)

	err = s.Write(context.Background(), sampleEntry("a", 0))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "disk full")

	var opErr *gferrors.OperationError
	assert.True(t, errors.As(err, &opErr))

	require.NoError(t, s.Close())
	require.NoError(t, s.Close())
	assert.True(t, errors.Is(s.Write(context.Background(), sampleEntry("b", 0)), gferrors.ErrClosed))

	_, err = NewWriterSink(w, Format(7))
	assert.True(t, gferrors.IsValidationError(err))
}

func TestWriterSinkPartialFailure(t *testing.T) {
	w := testutil.NewMockWriter()
	w.FailAfter(1, errors.New("disk full"))

	s, err := NewWriterSink(w, FormatJSON)
	require.NoError(t, err)

	require.NoError(t, s.Write(context.Background(), sampleEntry("a", 0)))
	require.Error(t, s.Write(context.Background(), sampleEntry("b", 0)))

	lines := w.Lines()
	require.Len(t, lines, 1)
	assert.Contains(t, lines[0], `"job":"a"`)
}

func TestInstrumented(t *testing.T) {
	m := metrics.NewRegistry(prometheus.NewRegistry())
	mem, err := NewMemorySink(4)
	require.NoError(t, err)

	s := Instrumented(mem, "memory", m)
	require.NoError(t, s.Write(context.Background(), sampleEntry("a", 0)))
	require.NoError(t, s.Close())
	require.Error(t, s.Write(context.Background(), sampleEntry("b", 0)))

	assert.Equal(t, 1.0, promtest.ToFloat64(m.SinkWrites.WithLabelValues("memory", "ok")))
	assert.Equal(t, 1.0, promtest.ToFloat64(m.SinkWrites.WithLabelValues("memory", "error")))

	assert.Same(t, mem, Instrumented(mem, "memory", nil))
}

func TestMulti(t *testing.T) {
	a, err := NewMemorySink(4)
	require.NoError(t, err)
	b, err := NewMemorySink(4)
	require.NoError(t, err)
	require.NoError(t, b.Close())

	s := Multi(a, b)
	err = s.Write(context.Background(), sampleEntry("a", 0))
	require.Error(t, err)
	assert.True(t, errors.Is(err, gferrors.ErrClosed))
	assert.Equal(t, 1, a.Len(), "a healthy sink still receives the entry")

	require.NoError(t, s.Close())
}
