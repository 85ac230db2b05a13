package player

import (
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nvaillant/quaver/queue"
)

func newTestQueued(t *testing.T, env *fakeEnv) *QueuedAudioPlayer {
	t.Helper()
	q, err := NewQueued(Options{Factory: env.factory})
	require.NoError(t, err)
	t.Cleanup(func() { _ = q.Close() })
	return q
}

// trace records playback-end, current-item and state events in emission
// order, so ordering guarantees can be asserted across event types.
func trace(q *QueuedAudioPlayer) *stateLog {
	log := &stateLog{}
	q.Events().PlaybackEnd.AddListener(log, func(e PlaybackEnded) {
		log.add("end:" + e.Reason.String())
	})
	q.Events().CurrentItem.AddListener(log, func(e CurrentItemChanged) {
		log.add(fmt.Sprintf("current:%d", e.Index))
	})
	q.Events().StateChange.AddListener(log, func(e StateChanged) {
		log.add("state:" + e.Current.String())
	})
	return log
}

func TestAddToEmptyQueueLoadsFirstItem(t *testing.T) {
	env := newFakeEnv()
	q := newTestQueued(t, env)
	log := trace(q)

	q.Add(item("a.mp3"), item("b.mp3"))

	assert.Equal(t, 0, q.CurrentIndex())
	assert.Equal(t, 2, q.Count())
	assert.Equal(t, StateReady, q.PlayerState())
	assert.False(t, q.PlayWhenReady())
	assert.Equal(t, []string{"current:0", "state:loading", "state:ready"}, log.all())
}

func TestAddMoreItemsDoesNotDisturbPlayback(t *testing.T) {
	env := newFakeEnv()
	q := newTestQueued(t, env)
	q.Add(item("a.mp3"))
	q.Play()

	q.Add(item("b.mp3"), item("c.mp3"))

	assert.Equal(t, 0, q.CurrentIndex())
	assert.Equal(t, StatePlaying, q.PlayerState())
	assert.Equal(t, 1, env.loadsFor("a.mp3"))
}

func TestAddAtBeforeCurrentShiftsCursor(t *testing.T) {
	env := newFakeEnv()
	q := newTestQueued(t, env)
	q.Add(item("a.mp3"), item("b.mp3"))
	require.NoError(t, q.JumpToItem(1))

	require.NoError(t, q.AddAt(0, item("x.mp3")))

	assert.Equal(t, 2, q.CurrentIndex())
	assert.Equal(t, "b.mp3", q.Items()[2].SourceURL())
	assert.Equal(t, 1, env.loadsFor("b.mp3"))
}

func TestNextPreservesPlayIntentAndOrdersEvents(t *testing.T) {
	env := newFakeEnv()
	q := newTestQueued(t, env)
	q.Add(item("a.mp3"), item("b.mp3"))
	q.Play()
	log := trace(q)

	q.Next()

	assert.Equal(t, 1, q.CurrentIndex())
	assert.Equal(t, StatePlaying, q.PlayerState())
	assert.True(t, q.PlayWhenReady())
	assert.Equal(t, []string{
		"end:skipped to next",
		"current:1",
		"state:loading",
		"state:playing",
	}, log.all())
}

func TestNextWhilePausedStaysPaused(t *testing.T) {
	env := newFakeEnv()
	q := newTestQueued(t, env)
	q.Add(item("a.mp3"), item("b.mp3"))

	q.Next()

	assert.Equal(t, 1, q.CurrentIndex())
	assert.Equal(t, StateReady, q.PlayerState())
	assert.False(t, q.PlayWhenReady())
}

func TestNextAtLastItemIsNoOpWithoutRepeat(t *testing.T) {
	env := newFakeEnv()
	q := newTestQueued(t, env)
	q.Add(item("a.mp3"), item("b.mp3"))
	require.NoError(t, q.JumpToItem(1))
	log := trace(q)

	q.Next()

	assert.Equal(t, 1, q.CurrentIndex())
	assert.Empty(t, log.all())
	assert.Equal(t, 1, env.loadsFor("b.mp3"))
}

func TestNextWrapsUnderRepeatQueue(t *testing.T) {
	env := newFakeEnv()
	q := newTestQueued(t, env)
	q.Add(item("a.mp3"), item("b.mp3"))
	require.NoError(t, q.JumpToItem(1))
	q.SetRepeatMode(RepeatQueue)

	q.Next()

	assert.Equal(t, 0, q.CurrentIndex())
	assert.Equal(t, 2, env.loadsFor("a.mp3"))
}

func TestPreviousAtFirstItemIsNoOpWithoutRepeat(t *testing.T) {
	env := newFakeEnv()
	q := newTestQueued(t, env)
	q.Add(item("a.mp3"), item("b.mp3"))
	log := trace(q)

	q.Previous()

	assert.Equal(t, 0, q.CurrentIndex())
	assert.Empty(t, log.all())
}

func TestPreviousMovesBack(t *testing.T) {
	env := newFakeEnv()
	q := newTestQueued(t, env)
	q.Add(item("a.mp3"), item("b.mp3"))
	require.NoError(t, q.JumpToItem(1))
	log := trace(q)

	q.Previous()

	assert.Equal(t, 0, q.CurrentIndex())
	assert.Contains(t, log.all(), "end:skipped to previous")
}

func TestJumpToItemReportsReason(t *testing.T) {
	env := newFakeEnv()
	q := newTestQueued(t, env)
	q.Add(item("a.mp3"), item("b.mp3"), item("c.mp3"))
	log := trace(q)

	require.NoError(t, q.JumpToItem(2))

	assert.Equal(t, 2, q.CurrentIndex())
	assert.Equal(t, "end:jumped to index", log.all()[0])
}

func TestJumpToCurrentIndexRestartsItem(t *testing.T) {
	env := newFakeEnv()
	q := newTestQueued(t, env)
	q.Add(item("a.mp3"))
	q.Play()
	log := trace(q)

	require.NoError(t, q.JumpToItem(0))

	assert.Equal(t, 0, q.CurrentIndex())
	assert.Equal(t, 2, env.loadsFor("a.mp3"))
	assert.Equal(t, StatePlaying, q.PlayerState())
	assert.Contains(t, log.all(), "current:0")
}

func TestJumpToInvalidIndexFails(t *testing.T) {
	env := newFakeEnv()
	q := newTestQueued(t, env)
	q.Add(item("a.mp3"))
	log := trace(q)

	err := q.JumpToItem(5)

	var idxErr *queue.InvalidIndexError
	require.ErrorAs(t, err, &idxErr)
	assert.Equal(t, 5, idxErr.Index)
	assert.Empty(t, log.all())
}

func TestCurrentItemChangedCarriesPreviousPosition(t *testing.T) {
	env := newFakeEnv()
	q := newTestQueued(t, env)
	q.Add(item("a.mp3"), item("b.mp3"))
	q.Play()
	env.current().tick(45 * time.Second)

	var changes []CurrentItemChanged
	q.Events().CurrentItem.AddListener(t, func(e CurrentItemChanged) { changes = append(changes, e) })

	q.Next()

	require.Len(t, changes, 1)
	assert.Equal(t, "b.mp3", changes[0].Item.SourceURL())
	assert.Equal(t, 1, changes[0].Index)
	assert.Equal(t, "a.mp3", changes[0].PreviousItem.SourceURL())
	assert.Equal(t, 0, changes[0].PreviousIndex)
	assert.Equal(t, 45*time.Second, changes[0].PreviousPosition)
}

func TestNaturalEndAdvancesToNextItem(t *testing.T) {
	env := newFakeEnv()
	q := newTestQueued(t, env)
	q.Add(item("a.mp3"), item("b.mp3"))
	q.Play()
	log := trace(q)

	env.current().endTrack()

	assert.Equal(t, 1, q.CurrentIndex())
	assert.Equal(t, StatePlaying, q.PlayerState())
	assert.Equal(t, []string{
		"end:played until end",
		"current:1",
		"state:loading",
		"state:playing",
	}, log.all())
}

func TestNaturalEndAtLastItemEndsPlayback(t *testing.T) {
	env := newFakeEnv()
	q := newTestQueued(t, env)
	q.Add(item("a.mp3"), item("b.mp3"))
	q.Play()
	q.Next()
	log := trace(q)

	env.current().endTrack()

	assert.Equal(t, 1, q.CurrentIndex())
	assert.Equal(t, StateEnded, q.PlayerState())
	assert.False(t, q.PlayWhenReady())
	assert.Equal(t, []string{"end:played until end", "state:ended"}, log.all())
}

func TestRepeatTrackRestartsOnNaturalEnd(t *testing.T) {
	env := newFakeEnv()
	q := newTestQueued(t, env)
	q.Add(item("a.mp3"), item("b.mp3"))
	q.Play()
	q.SetRepeatMode(RepeatTrack)

	env.current().endTrack()

	assert.Equal(t, 0, q.CurrentIndex())
	assert.Equal(t, 2, env.loadsFor("a.mp3"))
	assert.Equal(t, StatePlaying, q.PlayerState())
}

func TestRepeatQueueWrapsOnNaturalEnd(t *testing.T) {
	env := newFakeEnv()
	q := newTestQueued(t, env)
	q.Add(item("a.mp3"), item("b.mp3"))
	q.Play()
	q.Next()
	q.SetRepeatMode(RepeatQueue)

	env.current().endTrack()

	assert.Equal(t, 0, q.CurrentIndex())
	assert.Equal(t, 2, env.loadsFor("a.mp3"))
	assert.Equal(t, StatePlaying, q.PlayerState())
}

func TestRepeatQueueSingleItemRestarts(t *testing.T) {
	env := newFakeEnv()
	q := newTestQueued(t, env)
	q.Add(item("a.mp3"))
	q.Play()
	q.SetRepeatMode(RepeatQueue)

	env.current().endTrack()

	assert.Equal(t, 0, q.CurrentIndex())
	assert.Equal(t, 2, env.loadsFor("a.mp3"))
	assert.Equal(t, StatePlaying, q.PlayerState())
}

func TestRemoveCurrentItemLoadsReplacement(t *testing.T) {
	env := newFakeEnv()
	q := newTestQueued(t, env)
	q.Add(item("a.mp3"), item("b.mp3"), item("c.mp3"))
	q.Play()

	removed, err := q.RemoveItem(0)
	require.NoError(t, err)
	assert.Equal(t, "a.mp3", removed.SourceURL())
	assert.Equal(t, 0, q.CurrentIndex())
	assert.Equal(t, "b.mp3", q.Items()[0].SourceURL())
	assert.Equal(t, 1, env.loadsFor("b.mp3"))
	assert.Equal(t, StatePlaying, q.PlayerState())
}

func TestRemoveOtherItemKeepsPlayback(t *testing.T) {
	env := newFakeEnv()
	q := newTestQueued(t, env)
	q.Add(item("a.mp3"), item("b.mp3"))
	q.Play()

	_, err := q.RemoveItem(1)
	require.NoError(t, err)
	assert.Equal(t, 0, q.CurrentIndex())
	assert.Equal(t, 1, env.loadsFor("a.mp3"))
}

func TestMoveItemDoesNotInterruptPlayback(t *testing.T) {
	env := newFakeEnv()
	q := newTestQueued(t, env)
	q.Add(item("a.mp3"), item("b.mp3"), item("c.mp3"))
	q.Play()

	require.NoError(t, q.MoveItem(2, 0))

	assert.Equal(t, 1, q.CurrentIndex())
	assert.Equal(t, "a.mp3", q.Items()[1].SourceURL())
	assert.Equal(t, 1, env.loadsFor("a.mp3"))
	assert.Equal(t, StatePlaying, q.PlayerState())
}

func TestReplaceCurrentItemLoadsReplacement(t *testing.T) {
	env := newFakeEnv()
	q := newTestQueued(t, env)
	q.Add(item("a.mp3"), item("b.mp3"))
	q.Play()

	q.ReplaceCurrentItem(item("x.mp3"))

	assert.Equal(t, 0, q.CurrentIndex())
	assert.Equal(t, "x.mp3", q.Items()[0].SourceURL())
	assert.Equal(t, 1, env.loadsFor("x.mp3"))
	assert.Equal(t, StatePlaying, q.PlayerState())
}

func TestRemoveUpcomingAndPreviousItems(t *testing.T) {
	env := newFakeEnv()
	q := newTestQueued(t, env)
	q.Add(item("a.mp3"), item("b.mp3"), item("c.mp3"))
	require.NoError(t, q.JumpToItem(1))

	q.RemoveUpcomingItems()
	assert.Empty(t, q.NextItems())

	q.RemovePreviousItems()
	assert.Empty(t, q.PreviousItems())
	assert.Equal(t, 0, q.CurrentIndex())
	assert.Equal(t, 1, q.Count())
	assert.Equal(t, "b.mp3", q.Items()[0].SourceURL())
}

func TestClearQueueStopsPlayback(t *testing.T) {
	env := newFakeEnv()
	q := newTestQueued(t, env)
	q.Add(item("a.mp3"), item("b.mp3"))
	q.Play()
	log := trace(q)

	q.ClearQueue()

	assert.Equal(t, -1, q.CurrentIndex())
	assert.Equal(t, 0, q.Count())
	assert.Equal(t, StateIdle, q.PlayerState())
	assert.Nil(t, q.CurrentItem())
	all := log.all()
	require.NotEmpty(t, all)
	assert.Equal(t, "end:player stopped", all[0])
	assert.Contains(t, all, "current:-1")
}

func TestRemoteNextAndPreviousAreWired(t *testing.T) {
	env := newFakeEnv()
	router := &recordingRouter{}
	q, err := NewQueued(Options{Factory: env.factory, RemoteCommands: router})
	require.NoError(t, err)
	t.Cleanup(func() { _ = q.Close() })
	q.Add(item("a.mp3"), item("b.mp3"))

	router.cmds.Next()
	assert.Equal(t, 1, q.CurrentIndex())
	router.cmds.Previous()
	assert.Equal(t, 0, q.CurrentIndex())
	assert.Equal(t, 2, router.attached)
}

func TestNowPlayingCarriesQueuePosition(t *testing.T) {
	env := newFakeEnv()
	sink := &recordingSink{}
	q, err := NewQueued(Options{Factory: env.factory, NowPlaying: sink})
	require.NoError(t, err)
	t.Cleanup(func() { _ = q.Close() })

	q.Add(item("a.mp3"), item("b.mp3"))
	q.Next()

	info, ok := sink.last()
	require.True(t, ok)
	assert.Equal(t, 1, info.QueueIndex)
	assert.Equal(t, 2, info.QueueCount)
}

func TestAddWithIntentStartsPlaybackOnEmptyQueue(t *testing.T) {
	env := newFakeEnv()
	q := newTestQueued(t, env)

	q.AddWithIntent(true, item("a.mp3"), item("b.mp3"))

	assert.Equal(t, 0, q.CurrentIndex())
	assert.Equal(t, StatePlaying, q.PlayerState())
	assert.True(t, q.PlayWhenReady())
}

func TestAddWithIntentOnNonEmptyQueueKeepsCurrentIntent(t *testing.T) {
	env := newFakeEnv()
	q := newTestQueued(t, env)
	q.Add(item("a.mp3"))
	require.Equal(t, StateReady, q.PlayerState())

	q.AddWithIntent(true, item("b.mp3"))
	assert.Equal(t, StateReady, q.PlayerState())
	assert.False(t, q.PlayWhenReady())

	q.Next()
	assert.Equal(t, StateReady, q.PlayerState())
	assert.False(t, q.PlayWhenReady())
}

func TestJumpToItemWithIntentStartsPlayback(t *testing.T) {
	env := newFakeEnv()
	q := newTestQueued(t, env)
	q.Add(item("a.mp3"), item("b.mp3"), item("c.mp3"))
	require.False(t, q.PlayWhenReady())

	require.NoError(t, q.JumpToItemWithIntent(2, true))

	assert.Equal(t, 2, q.CurrentIndex())
	assert.Equal(t, StatePlaying, q.PlayerState())
	assert.True(t, q.PlayWhenReady())
}

func TestJumpToItemWithIntentCanPauseAPlayingQueue(t *testing.T) {
	env := newFakeEnv()
	q := newTestQueued(t, env)
	q.AddWithIntent(true, item("a.mp3"), item("b.mp3"))
	require.Equal(t, StatePlaying, q.PlayerState())

	require.NoError(t, q.JumpToItemWithIntent(1, false))

	assert.Equal(t, 1, q.CurrentIndex())
	assert.Equal(t, StateReady, q.PlayerState())
	assert.False(t, q.PlayWhenReady())
}

func TestJumpToItemWithIntentErrorDiscardsTheIntent(t *testing.T) {
	env := newFakeEnv()
	q := newTestQueued(t, env)
	q.Add(item("a.mp3"), item("b.mp3"))

	require.Error(t, q.JumpToItemWithIntent(5, true))
	q.Next()

	assert.Equal(t, 1, q.CurrentIndex())
	assert.Equal(t, StateReady, q.PlayerState())
	assert.False(t, q.PlayWhenReady())
}
