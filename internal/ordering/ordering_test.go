package ordering_test

import (
	"fmt"
	"math/rand"
	"sort"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pkordes/trip-planner/backend/internal/ordering"
)

func TestAppend(t *testing.T) {
	in := []string{"a", "b"}
	got := ordering.Append(in, "c")

	assert.Equal(t, []string{"a", "b", "c"}, got)
	assert.Equal(t, []string{"a", "b"}, in, "input must not be modified")
}

func TestRemove(t *testing.T) {
	assert.Equal(t, []string{"a", "c"}, ordering.Remove([]string{"a", "b", "c"}, "b"))
	assert.Equal(t, []string{"a"}, ordering.Remove([]string{"a"}, "zz"))
	assert.Empty(t, ordering.Remove(nil, "a"))
}

func TestMoveID_ToEnd(t *testing.T) {
	got := ordering.MoveID([]string{"a", "b", "c"}, "a", 2)
	assert.Equal(t, []string{"b", "c", "a"}, got)
}

func TestMoveID_ToFront(t *testing.T) {
	got := ordering.MoveID([]string{"a", "b", "c"}, "c", 0)
	assert.Equal(t, []string{"c", "a", "b"}, got)
}

func TestMoveID_ClampsIndex(t *testing.T) {
	assert.Equal(t, []string{"b", "c", "a"}, ordering.MoveID([]string{"a", "b", "c"}, "a", 99))
	assert.Equal(t, []string{"c", "a", "b"}, ordering.MoveID([]string{"a", "b", "c"}, "c", -4))
}

func TestMoveID_AbsentIDIsInserted(t *testing.T) {
	got := ordering.MoveID([]string{"a", "b"}, "x", 1)
	assert.Equal(t, []string{"a", "x", "b"}, got)
}

func TestMove_ByIndex(t *testing.T) {
	got, ok := ordering.Move([]string{"a", "b", "c"}, 0, 2)
	require.True(t, ok)
	assert.Equal(t, []string{"b", "c", "a"}, got)
}

func TestMove_SourceOutOfRange(t *testing.T) {
	in := []string{"a", "b"}
	got, ok := ordering.Move(in, 5, 0)
	assert.False(t, ok)
	assert.Equal(t, in, got)
}

func TestReconcile_DropsDanglingAndDuplicates(t *testing.T) {
	got := ordering.Reconcile([]string{"b", "ghost", "a", "b"}, []string{"a", "b"})
	assert.Equal(t, []string{"b", "a"}, got)
}

func TestReconcile_AppendsMissingKeysSorted(t *testing.T) {
	got := ordering.Reconcile([]string{"c"}, []string{"z", "c", "a"})
	assert.Equal(t, []string{"c", "a", "z"}, got)
}

func TestReconcile_NoOrderFallsBackToKeyOrder(t *testing.T) {
	got := ordering.Reconcile(nil, []string{"k3", "k1", "k2"})
	assert.Equal(t, []string{"k1", "k2", "k3"}, got)
}

func TestIsPermutation(t *testing.T) {
	keys := []string{"a", "b", "c"}
	assert.True(t, ordering.IsPermutation([]string{"c", "a", "b"}, keys))
	assert.False(t, ordering.IsPermutation([]string{"a", "b"}, keys))
	assert.False(t, ordering.IsPermutation([]string{"a", "a", "b"}, keys))
	assert.False(t, ordering.IsPermutation([]string{"a", "b", "x"}, keys))
}

// TestRandomOperations_KeepOrderInSyncWithMap drives a random sequence of
// add, remove and move operations against an order array and a key set, and
// checks after each step that the order holds exactly the keys, each once.
func TestRandomOperations_KeepOrderInSyncWithMap(t *testing.T) {
	rng := rand.New(rand.NewSource(7))
	keys := map[string]bool{}
	var order []string
	next := 0

	for step := 0; step < 500; step++ {
		switch op := rng.Intn(3); {
		case op == 0 || len(order) == 0:
			id := fmt.Sprintf("id%d", next)
			next++
			keys[id] = true
			order = ordering.Append(order, id)
		case op == 1:
			id := order[rng.Intn(len(order))]
			delete(keys, id)
			order = ordering.Remove(order, id)
		default:
			id := order[rng.Intn(len(order))]
			order = ordering.MoveID(order, id, rng.Intn(len(order)+1))
		}

		want := ordering.Keys(keys)
		require.True(t, ordering.IsPermutation(order, want), "step %d: order %v keys %v", step, order, want)
	}
}

func TestAddThenRemove_RoundTrip(t *testing.T) {
	before := []string{"a", "b", "c"}
	after := ordering.Remove(ordering.Append(before, "d"), "d")
	assert.Equal(t, before, after)
}

func TestKeys(t *testing.T) {
	got := ordering.Keys(map[string]int{"x": 1, "y": 2})
	sort.Strings(got)
	assert.Equal(t, []string{"x", "y"}, got)
}
