package player

import (
	"sync"

	"github.com/nvaillant/quaver/queue"
)

// QueuedAudioPlayer plays through an ordered queue of items. It owns a
// plain AudioPlayer and a queue.Manager and glues them together through
// the queue delegate: whenever the queue cursor lands somewhere new the
// item there is loaded with the current play intent.
//
// Adding items never starts playback by itself; the play intent carries
// across navigation, so a playing queue keeps playing and a paused one
// stays paused.
type QueuedAudioPlayer struct {
	*AudioPlayer
	queue *queue.Manager[Item]

	qmu           sync.Mutex
	repeat        RepeatMode
	pendingReason *PlaybackEndReason
	pendingIntent *bool
	lastItem      Item
	lastIndex     int
}

// NewQueued builds a QueuedAudioPlayer with an empty queue.
func NewQueued(opts Options) (*QueuedAudioPlayer, error) {
	base, err := New(opts)
	if err != nil {
		return nil, err
	}
	q := &QueuedAudioPlayer{
		AudioPlayer: base,
		lastIndex:   -1,
	}
	q.queue = queue.NewManager[Item](q)
	base.setTrackEndHook(q.handleTrackEnd)
	base.setQueuePositionHook(func() (int, int) {
		return q.queue.CurrentIndex(), q.queue.Count()
	})

	cmds := base.remoteCommands()
	cmds.Next = q.Next
	cmds.Previous = q.Previous
	base.router.Attach(cmds)
	return q, nil
}

var _ queue.Delegate = (*QueuedAudioPlayer)(nil)

// Add appends items to the end of the queue. The first items added to
// an empty queue become current and load immediately.
func (q *QueuedAudioPlayer) Add(items ...Item) {
	q.queue.Add(items...)
}

// AddWithIntent appends items and sets the play intent to playWhenReady
// for the load triggered when the first item of an empty queue becomes
// current. On a non-empty queue it behaves like Add.
func (q *QueuedAudioPlayer) AddWithIntent(playWhenReady bool, items ...Item) {
	if len(items) == 0 {
		return
	}
	if q.queue.Count() == 0 {
		q.setPendingIntent(&playWhenReady)
	}
	q.queue.Add(items...)
}

// AddAt inserts items before position index; index == Count() appends.
func (q *QueuedAudioPlayer) AddAt(index int, items ...Item) error {
	return q.queue.AddAt(index, items...)
}

// Next moves to the following item, preserving the play intent. At the
// last item it wraps around under RepeatQueue and otherwise does
// nothing.
func (q *QueuedAudioPlayer) Next() {
	wrap := q.RepeatMode() == RepeatQueue
	if !wrap && q.queue.CurrentIndex() >= q.queue.Count()-1 {
		return
	}
	r := ReasonSkippedToNext
	q.setPendingReason(&r)
	q.queue.Next(wrap)
}

// Previous moves to the preceding item, mirroring Next.
func (q *QueuedAudioPlayer) Previous() {
	wrap := q.RepeatMode() == RepeatQueue
	if !wrap && q.queue.CurrentIndex() <= 0 {
		return
	}
	r := ReasonSkippedToPrevious
	q.setPendingReason(&r)
	q.queue.Previous(wrap)
}

// JumpToItem makes the item at index current and loads it with the
// preserved play intent. Jumping to the index already current restarts
// the item from the beginning.
func (q *QueuedAudioPlayer) JumpToItem(index int) error {
	return q.jump(index, nil)
}

// JumpToItemWithIntent is JumpToItem with an explicit play intent for
// the resulting load.
func (q *QueuedAudioPlayer) JumpToItemWithIntent(index int, playWhenReady bool) error {
	return q.jump(index, &playWhenReady)
}

func (q *QueuedAudioPlayer) jump(index int, intent *bool) error {
	r := ReasonJumpedToIndex
	q.setPendingReason(&r)
	q.setPendingIntent(intent)
	if _, err := q.queue.Jump(index); err != nil {
		q.setPendingReason(nil)
		q.setPendingIntent(nil)
		return err
	}
	return nil
}

// RemoveItem deletes the item at index. Removing the current item loads
// whatever takes its slot.
func (q *QueuedAudioPlayer) RemoveItem(index int) (Item, error) {
	return q.queue.Remove(index)
}

// MoveItem relocates a queue entry; playback is unaffected.
func (q *QueuedAudioPlayer) MoveItem(from, to int) error {
	return q.queue.Move(from, to)
}

// ReplaceCurrentItem swaps the current queue entry for item and loads
// it. On an empty queue it behaves like Add.
func (q *QueuedAudioPlayer) ReplaceCurrentItem(item Item) {
	q.queue.ReplaceCurrent(item)
}

// RemoveUpcomingItems drops everything after the current item.
func (q *QueuedAudioPlayer) RemoveUpcomingItems() {
	q.queue.RemoveUpcomingItems()
}

// RemovePreviousItems drops everything before the current item.
func (q *QueuedAudioPlayer) RemovePreviousItems() {
	q.queue.RemovePreviousItems()
}

// ClearQueue stops playback and empties the queue.
func (q *QueuedAudioPlayer) ClearQueue() {
	if q.queue.CurrentIndex() != -1 {
		r := ReasonPlayerStopped
		q.setPendingReason(&r)
	}
	q.queue.Clear()
}

func (q *QueuedAudioPlayer) Items() []Item         { return q.queue.Items() }
func (q *QueuedAudioPlayer) NextItems() []Item     { return q.queue.NextItems() }
func (q *QueuedAudioPlayer) PreviousItems() []Item { return q.queue.PreviousItems() }
func (q *QueuedAudioPlayer) CurrentIndex() int     { return q.queue.CurrentIndex() }
func (q *QueuedAudioPlayer) Count() int            { return q.queue.Count() }

func (q *QueuedAudioPlayer) RepeatMode() RepeatMode {
	q.qmu.Lock()
	defer q.qmu.Unlock()
	return q.repeat
}

func (q *QueuedAudioPlayer) SetRepeatMode(mode RepeatMode) {
	q.qmu.Lock()
	q.repeat = mode
	q.qmu.Unlock()
}

func (q *QueuedAudioPlayer) setPendingReason(r *PlaybackEndReason) {
	q.qmu.Lock()
	q.pendingReason = r
	q.qmu.Unlock()
}

func (q *QueuedAudioPlayer) setPendingIntent(i *bool) {
	q.qmu.Lock()
	q.pendingIntent = i
	q.qmu.Unlock()
}

// loadIntent consumes the pending play intent, falling back to the
// player's current one.
func (q *QueuedAudioPlayer) loadIntent() bool {
	q.qmu.Lock()
	pending := q.pendingIntent
	q.pendingIntent = nil
	q.qmu.Unlock()
	if pending != nil {
		return *pending
	}
	return q.PlayWhenReady()
}

// takeTransition consumes the pending end reason and returns the
// previous current item as observers knew it.
func (q *QueuedAudioPlayer) takeTransition() (reason *PlaybackEndReason, prevItem Item, prevIndex int) {
	q.qmu.Lock()
	defer q.qmu.Unlock()
	reason = q.pendingReason
	q.pendingReason = nil
	return reason, q.lastItem, q.lastIndex
}

func (q *QueuedAudioPlayer) rememberCurrent(item Item, index int) {
	q.qmu.Lock()
	q.lastItem = item
	q.lastIndex = index
	q.qmu.Unlock()
}

// handleTrackEnd runs when the current item plays to its natural end
// and branches on the repeat mode: restart the track, advance with
// wraparound, advance plainly, or end playback at the last item.
func (q *QueuedAudioPlayer) handleTrackEnd() {
	q.Events().PlaybackEnd.Emit(PlaybackEnded{Reason: ReasonPlayedUntilEnd})

	switch q.RepeatMode() {
	case RepeatTrack:
		if item := q.queue.Current(); item != nil {
			_ = q.AudioPlayer.Load(*item, true)
		}
	case RepeatQueue:
		q.queue.Next(true)
	default:
		if q.queue.CurrentIndex() >= q.queue.Count()-1 {
			q.wrapper.markEnded()
			return
		}
		q.queue.Next(false)
	}
}

// --- queue.Delegate ---

func (q *QueuedAudioPlayer) OnReceivedFirstItem() {
	if q.queue.CurrentIndex() == -1 {
		_, _ = q.queue.Jump(0)
	}
}

func (q *QueuedAudioPlayer) OnCurrentItemChanged() {
	reason, prevItem, prevIndex := q.takeTransition()
	prevPos := q.AudioPlayer.Position()

	if reason != nil && prevItem != nil {
		q.Events().PlaybackEnd.Emit(PlaybackEnded{Reason: *reason})
	}

	item := q.queue.Current()
	index := q.queue.CurrentIndex()
	if item == nil {
		q.setPendingIntent(nil)
		q.rememberCurrent(nil, -1)
		q.Events().CurrentItem.Emit(CurrentItemChanged{
			Item:             nil,
			Index:            -1,
			PreviousItem:     prevItem,
			PreviousIndex:    prevIndex,
			PreviousPosition: prevPos,
		})
		q.AudioPlayer.Clear()
		return
	}

	q.rememberCurrent(*item, index)
	q.Events().CurrentItem.Emit(CurrentItemChanged{
		Item:             *item,
		Index:            index,
		PreviousItem:     prevItem,
		PreviousIndex:    prevIndex,
		PreviousPosition: prevPos,
	})
	_ = q.AudioPlayer.Load(*item, q.loadIntent())
}

// OnSkippedToSameItem restarts the current item from the beginning,
// which is what a wraparound on a single-item queue or a jump to the
// already-current index resolves to.
func (q *QueuedAudioPlayer) OnSkippedToSameItem() {
	reason, prevItem, prevIndex := q.takeTransition()
	prevPos := q.AudioPlayer.Position()

	item := q.queue.Current()
	if item == nil {
		return
	}
	if reason != nil && prevItem != nil {
		q.Events().PlaybackEnd.Emit(PlaybackEnded{Reason: *reason})
	}

	index := q.queue.CurrentIndex()
	q.rememberCurrent(*item, index)
	q.Events().CurrentItem.Emit(CurrentItemChanged{
		Item:             *item,
		Index:            index,
		PreviousItem:     prevItem,
		PreviousIndex:    prevIndex,
		PreviousPosition: prevPos,
	})
	_ = q.AudioPlayer.Load(*item, q.loadIntent())
}
