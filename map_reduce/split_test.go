package map_reduce

import (
	"errors"
	"fmt"
	"math/rand/v2"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestReducerCount(t *testing.T) {
	tests := []struct {
		name    string
		nodes   int
		want    int
		wantErr bool
	}{
		{name: "negative", nodes: -3, wantErr: true},
		{name: "zero", nodes: 0, wantErr: true},
		{name: "single node has no reducers", nodes: 1, wantErr: true},
		{name: "two nodes", nodes: 2, want: 1},
		{name: "four nodes", nodes: 4, want: 2},
		{name: "five nodes floors", nodes: 5, want: 2},
		{name: "many nodes", nodes: 33, want: 16},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ReducerCount(tt.nodes)
			if tt.wantErr {
				require.ErrorIs(t, err, ErrInvalidConfiguration)
				return
			}
			require.NoError(t, err)
			require.Equal(t, tt.want, got)
		})
	}
}

func TestNewSplitPlannerRejectsNonPositiveNodes(t *testing.T) {
	_, err := NewSplitPlanner(0)
	require.ErrorIs(t, err, ErrInvalidConfiguration)

	_, err = NewSplitPlanner(-1)
	require.ErrorIs(t, err, ErrInvalidConfiguration)
}

func TestPlanAlignsToLines(t *testing.T) {
	data := "1 10\n1 20\n2 5\n"
	p, err := NewSplitPlanner(2)
	require.NoError(t, err)

	splits, err := p.Plan(strings.NewReader(data), int64(len(data)))
	require.NoError(t, err)
	require.Equal(t, []Split{
		{Index: 0, Start: 0, End: 10},
		{Index: 1, Start: 10, End: 14},
	}, splits)
}

func TestPlanCutOnBoundaryIsKept(t *testing.T) {
	data := "1 1\n2 2\n3 3\n4 4\n"
	p, err := NewSplitPlanner(4)
	require.NoError(t, err)

	splits, err := p.Plan(strings.NewReader(data), int64(len(data)))
	require.NoError(t, err)
	require.Len(t, splits, 4)
	for i, s := range splits {
		require.Equal(t, int64(i*4), s.Start)
		require.Equal(t, int64(4), s.Len())
	}
}

func TestPlanEmptyInput(t *testing.T) {
	p, err := NewSplitPlanner(3)
	require.NoError(t, err)

	splits, err := p.Plan(strings.NewReader(""), 0)
	require.NoError(t, err)
	require.Empty(t, splits)
}

func TestPlanLongLineAbsorbsCuts(t *testing.T) {
	data := "1 " + strings.Repeat("9", 40) + "\n2 3\n"
	p, err := NewSplitPlanner(4)
	require.NoError(t, err)

	splits, err := p.Plan(strings.NewReader(data), int64(len(data)))
	require.NoError(t, err)
	requireValidSplits(t, data, splits, 4)
	require.Equal(t, int64(43), splits[0].End)
}

func TestPlanWithoutTrailingNewline(t *testing.T) {
	data := "10 1\n20 2\n30 3"
	p, err := NewSplitPlanner(2)
	require.NoError(t, err)

	splits, err := p.Plan(strings.NewReader(data), int64(len(data)))
	require.NoError(t, err)
	requireValidSplits(t, data, splits, 2)
}

func TestPlanMoreNodesThanBytes(t *testing.T) {
	data := "1 2\n"
	p, err := NewSplitPlanner(16)
	require.NoError(t, err)

	splits, err := p.Plan(strings.NewReader(data), int64(len(data)))
	require.NoError(t, err)
	require.Equal(t, []Split{{Index: 0, Start: 0, End: 4}}, splits)
}

func TestPlanCoversRandomInputs(t *testing.T) {
	rng := rand.New(rand.NewPCG(7, 11))

	for round := 0; round < 50; round++ {
		data := randomDataset(rng, rng.IntN(200))
		nodes := 1 + rng.IntN(12)

		t.Run(fmt.Sprintf("round-%d-nodes-%d", round, nodes), func(t *testing.T) {
			p, err := NewSplitPlanner(nodes)
			require.NoError(t, err)

			splits, err := p.Plan(strings.NewReader(data), int64(len(data)))
			require.NoError(t, err)
			requireValidSplits(t, data, splits, nodes)
		})
	}
}

type failingReaderAt struct{}

func (failingReaderAt) ReadAt(p []byte, off int64) (int, error) {
	return 0, errors.New("disk on fire")
}

func TestPlanReadFailure(t *testing.T) {
	p, err := NewSplitPlanner(2)
	require.NoError(t, err)

	_, err = p.Plan(failingReaderAt{}, 100)
	require.ErrorIs(t, err, ErrIO)
}

func requireValidSplits(t *testing.T, data string, splits []Split, nodes int) {
	t.Helper()

	if len(data) == 0 {
		require.Empty(t, splits)
		return
	}

	require.NotEmpty(t, splits)
	require.LessOrEqual(t, len(splits), nodes)
	require.Equal(t, int64(0), splits[0].Start)
	require.Equal(t, int64(len(data)), splits[len(splits)-1].End)

	for i, s := range splits {
		require.Equal(t, i, s.Index)
		require.Positive(t, s.Len(), "split %d is empty", i)
		if i > 0 {
			require.Equal(t, splits[i-1].End, s.Start, "gap or overlap before split %d", i)
			require.Equal(t, byte('\n'), data[s.Start-1], "split %d starts inside a line", i)
		}
	}
}

// randomDataset builds n "<key> <value>" lines with keys drawn from a small
// range so groups have several members, including negative prices.
func randomDataset(rng *rand.Rand, n int) string {
	var b strings.Builder
	for i := 0; i < n; i++ {
		fmt.Fprintf(&b, "%d %d\n", rng.IntN(20), rng.IntN(2000)-500)
	}
	return b.String()
}
