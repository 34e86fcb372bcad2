package pipeline

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	gferrors "github.com/vnykmshr/goplumb/pkg/common/errors"
)

func TestReferencesResolve(t *testing.T) {
	ctx := Context{
		Sequence: []string{"a", "b", "c", "d"},
		Index:    1,
		Records: []Record{
			{StageID: "a", Index: 0, Count: 0},
			{StageID: "b", Index: 1, Count: 1},
		},
	}

	tests := []struct {
		name string
		ref  Reference
		want Target
	}{
		{"previous", Previous, Target{ID: "b", Index: 1}},
		{"first", First, Target{ID: "a", Index: 0}},
		{"last", Last, Target{ID: "d", Index: 3}},
		{"next", Next, Target{ID: "c", Index: 2}},
		{"skip", Skip, Target{ID: "d", Index: 3}},
		{"by id", ByID("c"), Target{ID: "c", Index: 2}},
		{"by index", ByIndex(3), Target{ID: "d", Index: 3}},
		{"by increment", ByIncrement(-1), Target{ID: "a", Index: 0}},
		{"by increment zero", ByIncrement(0), Target{ID: "b", Index: 1}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := tt.ref.Resolve(ctx)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestReferencesTerminal(t *testing.T) {
	ctx := Context{Sequence: []string{"a", "b"}, Index: 1}

	for _, ref := range []Reference{Next, Skip, ByIncrement(1), ByIncrement(5)} {
		t.Run(ref.String(), func(t *testing.T) {
			got, err := ref.Resolve(ctx)
			require.NoError(t, err)
			assert.True(t, got.Terminal())
		})
	}

	got, err := Next.Resolve(Context{})
	require.NoError(t, err)
	assert.True(t, got.Terminal())
}

func TestReferencesUnresolved(t *testing.T) {
	empty := Context{}
	tests := []struct {
		name string
		ref  Reference
		ctx  Context
	}{
		{"previous without records", Previous, empty},
		{"first without records", First, empty},
		{"last on empty sequence", Last, empty},
		{"by index on empty sequence", ByIndex(1), empty},
		{"by id on empty sequence", ByID("a"), empty},
		{"by increment forward on empty sequence", ByIncrement(1), empty},
		{"by increment backward on empty sequence", ByIncrement(-1), empty},
		{"by id absent", ByID("z"), Context{Sequence: []string{"a"}}},
		{"by index negative", ByIndex(-1), Context{Sequence: []string{"a"}}},
		{"by index past end", ByIndex(1), Context{Sequence: []string{"a"}}},
		{"by increment before start", ByIncrement(-1), Context{Sequence: []string{"a", "b"}}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := tt.ref.Resolve(tt.ctx)
			require.Error(t, err)
			assert.True(t, errors.Is(err, gferrors.ErrUnresolvedReference))

			var pe *PipelineError
			require.True(t, errors.As(err, &pe))
			assert.Equal(t, tt.ref.String(), pe.Reference)
		})
	}
}

func TestReferencesLoopWrap(t *testing.T) {
	ctx := Context{Sequence: []string{"a", "b"}, Index: 0, Loop: true}

	got, err := ByIncrement(-1).Resolve(ctx)
	require.NoError(t, err)
	assert.Equal(t, Target{ID: "b", Index: 1}, got)

	got, err = Skip.Resolve(ctx)
	require.NoError(t, err)
	assert.Equal(t, Target{ID: "a", Index: 0}, got)

	ctx.Index = 1
	got, err = ByIncrement(-3).Resolve(ctx)
	require.NoError(t, err)
	assert.Equal(t, Target{ID: "a", Index: 0}, got)

	got, err = Next.Resolve(ctx)
	require.NoError(t, err)
	assert.Equal(t, Target{ID: "a", Index: 0}, got)
}

func TestPreviousNextN(t *testing.T) {
	ctx := Context{Sequence: []string{"a", "b", "c"}, Index: 1}

	prev, err := PreviousN(1)
	require.NoError(t, err)
	got, err := prev.Resolve(ctx)
	require.NoError(t, err)
	assert.Equal(t, "a", got.ID)

	next, err := NextN(1)
	require.NoError(t, err)
	got, err = next.Resolve(ctx)
	require.NoError(t, err)
	assert.Equal(t, "c", got.ID)

	_, err = PreviousN(-1)
	require.Error(t, err)
	assert.True(t, gferrors.IsValidationError(err))

	_, err = NextN(-2)
	require.Error(t, err)
	assert.True(t, errors.Is(err, gferrors.ErrInvalidConfiguration))
}

func TestReferenceStrings(t *testing.T) {
	assert.Equal(t, "Previous", Previous.String())
	assert.Equal(t, "Skip", Skip.String())
	assert.Equal(t, `ByID("a")`, ByID("a").String())
	assert.Equal(t, "ByIndex(2)", ByIndex(2).String())
	assert.Equal(t, "ByIncrement(-1)", ByIncrement(-1).String())
	assert.Equal(t, "<terminal>", Target{}.String())
	assert.Equal(t, "a@1", Target{ID: "a", Index: 1}.String())
}
