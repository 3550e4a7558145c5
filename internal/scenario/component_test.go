package scenario

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// islands builds two components:
//
//	start → A → s1 → B → s2
//	t0 → C → t1
//
// where t0 and t1 share no interval with the first chain.
type islands struct {
	*chain
	t0 *TimeSync
	t1 *TimeSync
	c  *TimeInterval
}

func newIslands(t *testing.T, opts ...Option) *islands {
	t.Helper()
	ch := newChain(t, opts...)
	t0 := NewTimeSync("t0")
	t1 := NewTimeSync("t1")
	require.NoError(t, ch.sc.AddTimeSync(t0))
	require.NoError(t, ch.sc.AddTimeSync(t1))
	c := NewTimeInterval("C", t0.Events()[0], t1.Events()[0], Durations{Max: Infinite})
	require.NoError(t, ch.sc.AddTimeInterval(c))
	return &islands{chain: ch, t0: t0, t1: t1, c: c}
}

func TestComponent_FollowsBothDirections(t *testing.T) {
	g := newIslands(t)

	comp, err := g.sc.Component(g.s1)
	require.NoError(t, err)
	assert.Equal(t, []SyncID{"start", "s1", "s2"}, ids(comp))

	comp, err = g.sc.Component(g.t1)
	require.NoError(t, err)
	assert.Equal(t, []SyncID{"t0", "t1"}, ids(comp))
}

func TestComponent_IsolatedSync(t *testing.T) {
	sc := New()
	lone := NewTimeSync("lone")
	require.NoError(t, sc.AddTimeSync(lone))

	comp, err := sc.Component(lone)
	require.NoError(t, err)
	assert.Equal(t, []SyncID{"lone"}, ids(comp))
}

func TestResetComponent_ResetsUpstreamAndDownstream(t *testing.T) {
	g := newIslands(t)
	g.s0.Events()[0].RestoreStatus(StatusHappened)
	g.s1.Events()[0].RestoreStatus(StatusHappened)
	g.t0.Events()[0].RestoreStatus(StatusHappened)
	require.NoError(t, g.sc.Start())
	require.True(t, g.b.Running())
	require.True(t, g.c.Running())
	g.s2.SetBeingTriggered(true)

	require.NoError(t, g.sc.ResetComponent(g.s2))

	for _, n := range []*TimeSync{g.s0, g.s1, g.s2} {
		assert.Equal(t, StatusNone, n.Events()[0].Status(), "sync %s", n.ID())
		assert.False(t, n.IsBeingTriggered())
	}
	assert.False(t, g.b.Running())
	assert.False(t, g.sc.IsRunning(g.b))

	// Other component untouched.
	assert.True(t, g.c.Running())
	assert.Equal(t, StatusHappened, g.t0.Events()[0].Status())
}

func TestResetComponent_Idempotent(t *testing.T) {
	g := newIslands(t)
	g.t0.Events()[0].RestoreStatus(StatusHappened)
	require.NoError(t, g.sc.Start())

	require.NoError(t, g.sc.ResetComponent(g.t0))
	firstRunning := itvIDs(g.sc.RunningIntervals())
	firstStatus := g.t0.Events()[0].Status()

	require.NoError(t, g.sc.ResetComponent(g.t0))
	assert.Equal(t, firstRunning, itvIDs(g.sc.RunningIntervals()))
	assert.Equal(t, firstStatus, g.t0.Events()[0].Status())
	assert.Empty(t, g.sc.RunningIntervals())
}

func TestResetComponent_UnknownSync(t *testing.T) {
	sc := New()
	err := sc.ResetComponent(NewTimeSync("ghost"))
	assert.Equal(t, ErrCodeUnknownEntity, CodeOf(err))
}

type countingObserver struct {
	NoopObserver
	roots     []SyncID
	syncs     []int
	intervals []int
}

func (c *countingObserver) OnComponentReset(root SyncID, syncs, intervals int) {
	c.roots = append(c.roots, root)
	c.syncs = append(c.syncs, syncs)
	c.intervals = append(c.intervals, intervals)
}

func TestResetComponent_ReportsCounts(t *testing.T) {
	obs := &countingObserver{}
	g := newIslands(t, WithObserver(obs))
	g.t0.Events()[0].RestoreStatus(StatusHappened)
	require.NoError(t, g.sc.Start())

	require.NoError(t, g.sc.ResetComponent(g.t1))

	assert.Equal(t, []SyncID{"t1"}, obs.roots)
	assert.Equal(t, []int{2}, obs.syncs)
	assert.Equal(t, []int{1}, obs.intervals)
}

// reentrantObserver tries to start another walk from inside a reset.
type reentrantObserver struct {
	NoopObserver
	sc  *Scenario
	err error
}

func (r *reentrantObserver) OnComponentReset(root SyncID, _, _ int) {
	n, _ := r.sc.TimeSync(root)
	r.err = r.sc.ResetComponent(n)
}

func TestResetComponent_ReentrantWalkFails(t *testing.T) {
	obs := &reentrantObserver{}
	g := newIslands(t, WithObserver(obs))
	obs.sc = g.sc

	require.NoError(t, g.sc.ResetComponent(g.s1))

	require.Error(t, obs.err)
	assert.True(t, IsReentrantWalk(obs.err))

	// The outer walk released the guard.
	require.NoError(t, g.sc.ResetComponent(g.s1))
}

func TestResetAllComponentsExcept_ConnectedChainUntouched(t *testing.T) {
	c := newChain(t)
	c.s0.Events()[0].RestoreStatus(StatusHappened)
	c.s1.Events()[0].RestoreStatus(StatusHappened)
	require.NoError(t, c.sc.Start())
	require.True(t, c.b.Running())
	c.s2.SetBeingTriggered(true)

	require.NoError(t, c.sc.ResetAllComponentsExcept(c.s0))

	// s1 and s2 share s0's component, whatever A's state.
	assert.True(t, c.b.Running())
	assert.True(t, c.s2.IsBeingTriggered())
	assert.Equal(t, StatusHappened, c.s1.Events()[0].Status())
}

func TestResetAllComponentsExcept_LiveForeignComponentReset(t *testing.T) {
	tests := []struct {
		name  string
		setup func(g *islands)
	}{
		{
			name:  "running interval",
			setup: func(g *islands) { g.t0.Events()[0].RestoreStatus(StatusHappened) },
		},
		{
			name:  "triggered sync",
			setup: func(g *islands) { g.t1.SetBeingTriggered(true) },
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			obs := &countingObserver{}
			g := newIslands(t, WithObserver(obs))
			g.s0.Events()[0].RestoreStatus(StatusHappened)
			tt.setup(g)
			require.NoError(t, g.sc.Start())
			// Start clears trigger flags; reapply for the triggered case.
			tt.setup(g)

			require.NoError(t, g.sc.ResetAllComponentsExcept(g.s0))

			assert.False(t, g.c.Running())
			assert.False(t, g.t1.IsBeingTriggered())
			assert.Equal(t, StatusNone, g.t0.Events()[0].Status())
			// Own component untouched.
			assert.True(t, g.a.Running())
			assert.Equal(t, StatusHappened, g.s0.Events()[0].Status())
			// One reset per foreign component.
			assert.Len(t, obs.roots, 1)
		})
	}
}

func TestResetAllComponentsExcept_IdleForeignComponentUntouched(t *testing.T) {
	obs := &countingObserver{}
	g := newIslands(t, WithObserver(obs))
	g.s0.Events()[0].RestoreStatus(StatusHappened)
	require.NoError(t, g.sc.Start())
	g.t1.Events()[0].RestoreStatus(StatusPending)

	require.NoError(t, g.sc.ResetAllComponentsExcept(g.s0))

	assert.Empty(t, obs.roots)
	assert.Equal(t, StatusPending, g.t1.Events()[0].Status())
}

func TestResetSubgraph(t *testing.T) {
	g := newIslands(t)
	g.s0.Events()[0].RestoreStatus(StatusHappened)
	g.t0.Events()[0].RestoreStatus(StatusHappened)
	require.NoError(t, g.sc.Start())

	stranger := NewTimeSync("stranger")
	stranger.Events()[0].RestoreStatus(StatusHappened)

	g.sc.ResetSubgraph([]*TimeSync{g.t0, stranger, nil}, []*TimeInterval{g.c, nil})

	assert.Equal(t, StatusNone, g.t0.Events()[0].Status())
	assert.Equal(t, StatusHappened, stranger.Events()[0].Status())
	assert.False(t, g.c.Running())
	assert.True(t, g.a.Running())
	assert.Equal(t, []IntervalID{"A"}, itvIDs(g.sc.RunningIntervals()))
}
