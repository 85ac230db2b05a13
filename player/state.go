// Package player implements the playback engine: a state machine over an
// underlying audio resource, a single-track player façade and a queued
// player on top of it.
package player

// PlaybackState is the normalized playback state machine.
//
// The machine is terminal-free; every state can be left by reloading:
//
//	Idle -> Loading -> (Failed | Buffering -> Ready/Playing | Ready -> Playing)
//	Playing <-> Paused            (play intent toggling, external rate changes)
//	Playing|Paused|Buffering -> Ended   (natural end with no follow-up action)
//	any -> Stopped                (explicit Stop)
//	Failed|Stopped -> Loading     (reload, triggered by play intent or explicit reload)
//
// Transitions are routed through a single setter that suppresses no-op
// transitions: the same state is never reported twice in a row.
type PlaybackState int

const (
	StateIdle PlaybackState = iota
	StateLoading
	StateBuffering
	StateReady
	StatePlaying
	StatePaused
	StateStopped
	StateEnded
	StateFailed
)

func (s PlaybackState) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateLoading:
		return "loading"
	case StateBuffering:
		return "buffering"
	case StateReady:
		return "ready"
	case StatePlaying:
		return "playing"
	case StatePaused:
		return "paused"
	case StateStopped:
		return "stopped"
	case StateEnded:
		return "ended"
	case StateFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// IsActive returns true while an item is loaded and playback is either
// running or could run without a reload.
func (s PlaybackState) IsActive() bool {
	switch s {
	case StateLoading, StateBuffering, StateReady, StatePlaying, StatePaused:
		return true
	default:
		return false
	}
}

// RepeatMode defines what happens when a track finishes or the queue is
// skipped past its ends.
type RepeatMode int

const (
	// RepeatOff plays the queue once.
	RepeatOff RepeatMode = iota
	// RepeatTrack restarts the finished track indefinitely.
	RepeatTrack
	// RepeatQueue wraps around the queue ends.
	RepeatQueue
)

func (m RepeatMode) String() string {
	switch m {
	case RepeatTrack:
		return "track"
	case RepeatQueue:
		return "queue"
	default:
		return "off"
	}
}

// ParseRepeatMode converts a config string to a RepeatMode, defaulting
// to RepeatOff.
func ParseRepeatMode(s string) RepeatMode {
	switch s {
	case "track":
		return RepeatTrack
	case "queue":
		return RepeatQueue
	default:
		return RepeatOff
	}
}
