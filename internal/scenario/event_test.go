package scenario

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStatus_StringAndParse(t *testing.T) {
	for _, st := range []Status{StatusNone, StatusPending, StatusHappened, StatusDisposed} {
		got, err := ParseStatus(st.String())
		require.NoError(t, err)
		assert.Equal(t, st, got)
	}

	got, err := ParseStatus("happened")
	require.NoError(t, err)
	assert.Equal(t, StatusHappened, got)

	_, err = ParseStatus("running")
	assert.Error(t, err)
	assert.Equal(t, "Status(9)", Status(9).String())
}

func TestSetStatus_Transitions(t *testing.T) {
	tests := []struct {
		from, to Status
		ok       bool
	}{
		{StatusNone, StatusPending, true},
		{StatusNone, StatusHappened, true},
		{StatusPending, StatusHappened, true},
		{StatusPending, StatusDisposed, true},
		{StatusHappened, StatusDisposed, true},
		{StatusHappened, StatusHappened, true},
		{StatusNone, StatusDisposed, false},
		{StatusHappened, StatusPending, false},
		{StatusPending, StatusNone, false},
		{StatusDisposed, StatusNone, false},
		{StatusDisposed, StatusHappened, false},
	}

	for _, tt := range tests {
		t.Run(tt.from.String()+"->"+tt.to.String(), func(t *testing.T) {
			ev := NewTimeSync("s").Events()[0]
			ev.RestoreStatus(tt.from)

			err := ev.SetStatus(tt.to)
			if tt.ok {
				require.NoError(t, err)
				assert.Equal(t, tt.to, ev.Status())
				return
			}
			require.Error(t, err)
			assert.Equal(t, ErrCodeInvalidTransition, CodeOf(err))
			assert.Equal(t, tt.from, ev.Status())

			var ee *ExecutionError
			require.ErrorAs(t, err, &ee)
			assert.Equal(t, EventID("s/0"), ee.Event)
			assert.Contains(t, err.Error(), "event=s/0")
		})
	}
}

func TestTimeSync_Events(t *testing.T) {
	ts := NewTimeSync("or", "or/a", "or/b")
	require.Len(t, ts.Events(), 2)

	ev, ok := ts.Event("or/b")
	require.True(t, ok)
	assert.Same(t, ts, ev.TimeSync())

	extra := ts.AddEvent("or/c")
	assert.Equal(t, StatusNone, extra.Status())
	assert.Len(t, ts.Events(), 3)

	_, ok = ts.Event("missing")
	assert.False(t, ok)
}

func TestTimeSync_Reset(t *testing.T) {
	ts := NewTimeSync("s", "s/a", "s/b")
	ts.Events()[0].RestoreStatus(StatusHappened)
	ts.Events()[1].RestoreStatus(StatusDisposed)
	ts.SetBeingTriggered(true)

	ts.Reset()

	for _, ev := range ts.Events() {
		assert.Equal(t, StatusNone, ev.Status())
	}
	assert.False(t, ts.IsBeingTriggered())
}

func TestTimeInterval_Lifecycle(t *testing.T) {
	a := NewTimeSync("a")
	b := NewTimeSync("b")
	itv := NewTimeInterval("i", a.Events()[0], b.Events()[0], Durations{Nominal: time.Second, Min: 0, Max: 2 * time.Second})

	assert.Equal(t, time.Duration(0), itv.Advance(time.Second), "stopped interval must not advance")

	itv.Start()
	assert.True(t, itv.Running())
	itv.Advance(500 * time.Millisecond)
	itv.Start()
	assert.Equal(t, 500*time.Millisecond, itv.Date(), "Start on a running interval is a no-op")

	itv.Pause()
	itv.Advance(time.Second)
	assert.Equal(t, 500*time.Millisecond, itv.Date())
	itv.Resume()

	assert.False(t, itv.MaxReached())
	itv.Advance(1500 * time.Millisecond)
	assert.True(t, itv.MaxReached())

	itv.Stop()
	assert.False(t, itv.Running())
	assert.Equal(t, time.Duration(0), itv.Date())
}

func TestTimeInterval_InfiniteMaxNeverReached(t *testing.T) {
	a := NewTimeSync("a")
	b := NewTimeSync("b")
	itv := NewTimeInterval("i", a.Events()[0], b.Events()[0], Durations{Max: Infinite})

	itv.Start()
	itv.Advance(Infinite - 1)
	itv.Advance(time.Hour)
	assert.Equal(t, time.Duration(Infinite), itv.Date(), "progress saturates")
	assert.False(t, itv.MaxReached())
}
