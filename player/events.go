package player

import (
	"time"

	"github.com/nvaillant/quaver/event"
	"github.com/nvaillant/quaver/resource"
)

// StateChanged is emitted once per real state transition, in order and
// never twice in a row for the same state.
type StateChanged struct {
	Previous PlaybackState
	Current  PlaybackState
}

// PlayWhenReadyChanged is emitted when the play intent flips, whether
// the caller or the engine flipped it.
type PlayWhenReadyChanged struct {
	PlayWhenReady bool
}

// PlaybackEndReason says why playback of the current item ended. For
// queue navigation it is emitted before the follow-up load begins, so
// observers see why playback ended before seeing what loads next.
type PlaybackEndReason int

const (
	ReasonPlayedUntilEnd PlaybackEndReason = iota
	ReasonPlayerStopped
	ReasonSkippedToNext
	ReasonSkippedToPrevious
	ReasonJumpedToIndex
)

func (r PlaybackEndReason) String() string {
	switch r {
	case ReasonPlayedUntilEnd:
		return "played until end"
	case ReasonPlayerStopped:
		return "player stopped"
	case ReasonSkippedToNext:
		return "skipped to next"
	case ReasonSkippedToPrevious:
		return "skipped to previous"
	case ReasonJumpedToIndex:
		return "jumped to index"
	default:
		return "unknown"
	}
}

// PlaybackEnded is emitted when playback of the current item ends.
type PlaybackEnded struct {
	Reason PlaybackEndReason
}

// SecondsElapsed is emitted periodically while playback advances.
type SecondsElapsed struct {
	Position time.Duration
}

// Failed is emitted when a load or playback failure occurs; the player
// is in StateFailed when observers receive it.
type Failed struct {
	Err *Error
}

// Seeked is emitted when a seek completes, including seeks that were
// deferred until the item finished loading.
type Seeked struct {
	Position time.Duration
	Finished bool
}

// DurationUpdated is emitted when the duration of the loaded item
// becomes known or changes.
type DurationUpdated struct {
	Duration time.Duration
}

// MetadataReceived carries descriptive values read from the source.
type MetadataReceived struct {
	Metadata resource.Metadata
}

// ResourceRecreated is emitted after the underlying player instance was
// discarded and recreated; instance-specific configuration must be
// reapplied by observers that set any.
type ResourceRecreated struct{}

// CurrentItemChanged is emitted by the queued player when the queue
// cursor lands on a different item (or the queue empties). Previous
// values let observers compute what changed.
type CurrentItemChanged struct {
	Item             Item
	Index            int
	PreviousItem     Item
	PreviousIndex    int
	PreviousPosition time.Duration
}

// Events is the public event surface of a player. One instance per
// player; fields are addressable busses, never reassigned.
type Events struct {
	StateChange         event.Event[StateChanged]
	PlayWhenReadyChange event.Event[PlayWhenReadyChanged]
	PlaybackEnd         event.Event[PlaybackEnded]
	SecondElapse        event.Event[SecondsElapsed]
	Fail                event.Event[Failed]
	Seek                event.Event[Seeked]
	UpdateDuration      event.Event[DurationUpdated]
	ReceiveMetadata     event.Event[MetadataReceived]
	RecreateResource    event.Event[ResourceRecreated]
	CurrentItem         event.Event[CurrentItemChanged]
}

func (e *Events) reset() {
	e.StateChange.Reset()
	e.PlayWhenReadyChange.Reset()
	e.PlaybackEnd.Reset()
	e.SecondElapse.Reset()
	e.Fail.Reset()
	e.Seek.Reset()
	e.UpdateDuration.Reset()
	e.ReceiveMetadata.Reset()
	e.RecreateResource.Reset()
	e.CurrentItem.Reset()
}
