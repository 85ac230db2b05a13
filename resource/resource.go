// Package resource abstracts the underlying audio-rendering engine.
//
// A resource.Player owns exactly one playable item at a time. Loading is
// asynchronous: Load returns immediately and the outcome arrives through
// the Delegate, on the player's own notification goroutine. Callers that
// need serialized state on top of these notifications (the playback
// wrapper) funnel them into their own synchronization.
package resource

import (
	"errors"
	"time"
)

// Status describes the readiness of the currently loaded item.
type Status int

const (
	// StatusIdle means no item is attached.
	StatusIdle Status = iota
	// StatusLoading means an item is being resolved.
	StatusLoading
	// StatusBuffering means the item is resolved but data is still being
	// fetched before playback can start.
	StatusBuffering
	// StatusReady means the item is attached and playable.
	StatusReady
	// StatusFailed means resolution or playback failed.
	StatusFailed
)

func (s Status) String() string {
	switch s {
	case StatusIdle:
		return "idle"
	case StatusLoading:
		return "loading"
	case StatusBuffering:
		return "buffering"
	case StatusReady:
		return "ready"
	case StatusFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// Load failure causes reported through Delegate.OnStatusChange.
var (
	// ErrInvalidSource marks a source URL that could not be parsed or
	// points nowhere.
	ErrInvalidSource = errors.New("invalid source url")
	// ErrUnplayable marks a source that resolved but cannot be decoded.
	ErrUnplayable = errors.New("unplayable source")
	// ErrMetadataLoad marks a failure to load the item's descriptive
	// key/value data.
	ErrMetadataLoad = errors.New("metadata load failed")
)

// Metadata holds descriptive values read from a loaded source.
type Metadata struct {
	Title  string
	Artist string
	Album  string
}

// Delegate receives asynchronous notifications from a Player. Callbacks
// are delivered one at a time but on the player's goroutines, never on
// the caller's.
type Delegate interface {
	// OnStatusChange reports item readiness. err is non-nil only with
	// StatusFailed.
	OnStatusChange(status Status, err error)
	// OnRateChange reports the effective playback rate, including
	// changes the player applied on its own (0 means not advancing).
	OnRateChange(rate float64)
	// OnPlayedToEnd fires when the loaded item finishes naturally.
	OnPlayedToEnd()
	// OnDurationChange reports the item duration once known. Zero means
	// unknown or live.
	OnDurationChange(duration time.Duration)
	// OnMetadata reports descriptive values read from the source.
	OnMetadata(md Metadata)
	// OnSecondElapse reports playback position periodically while the
	// item is advancing.
	OnSecondElapse(position time.Duration)
}

// Player is the contract the playback engine builds on. Implementations
// must tolerate overlapping Load calls: a Load issued while a previous
// resolution is still pending supersedes it, and the stale resolution
// must never surface through the Delegate.
type Player interface {
	// SetDelegate installs the notification target. Must be called
	// before Load.
	SetDelegate(d Delegate)

	// Load resolves url asynchronously, tearing down any previously
	// attached item first. A non-zero initial position is applied
	// before the item is reported ready. Playback starts paused; the
	// caller applies a rate once ready.
	Load(url string, initial time.Duration)

	// Unload detaches and releases the current item eagerly. Pending
	// loads are superseded.
	Unload()

	// SetRate sets the playback rate. 0 pauses, 1 is normal speed.
	SetRate(rate float64)
	Rate() float64

	// SeekTo moves the playhead. done is invoked with false when the
	// seek could not be performed, true otherwise. done may be nil.
	SeekTo(position time.Duration, done func(finished bool))

	Position() time.Duration
	Duration() time.Duration

	SetVolume(level float64)
	Volume() float64
	SetMuted(muted bool)
	Muted() bool

	// SetBufferDuration hints how much audio to keep buffered ahead of
	// the playhead.
	SetBufferDuration(d time.Duration)
	BufferDuration() time.Duration

	// Close releases the player itself. The instance is unusable
	// afterwards.
	Close() error
}

// Factory creates a fresh Player. The engine recreates its player
// wholesale after a failure to clear any corrupted internal state.
type Factory func() (Player, error)
