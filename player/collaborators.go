package player

import "time"

// NowPlayingInfo is the snapshot pushed to the now-playing sink on every
// state, metadata or position change.
type NowPlayingInfo struct {
	Title      string
	Artist     string
	Album      string
	ArtworkURL string
	Duration   time.Duration
	Position   time.Duration
	Rate       float64
	State      PlaybackState
	QueueIndex int
	QueueCount int
}

// NowPlayingSink receives now-playing metadata for external display
// (lock screens, desktop integrations). The engine only pushes values;
// it contains no display logic.
type NowPlayingSink interface {
	Set(info NowPlayingInfo)
	Clear()
}

// RemoteCommands are the transport actions a remote surface may trigger.
// The engine wires them to its own methods; handlers not applicable to a
// router may be left unused.
type RemoteCommands struct {
	Play     func()
	Pause    func()
	Toggle   func()
	Stop     func()
	Next     func()
	Previous func()
	SeekTo   func(position time.Duration)
}

// RemoteCommandRouter forwards transport commands from an external
// surface (media keys, MPRIS, a remote control) into the engine.
type RemoteCommandRouter interface {
	Attach(cmds RemoteCommands)
	Detach()
}

// Interruption describes an external audio-session interruption.
type Interruption struct {
	Began bool
	// ShouldResume is meaningful when Began is false and indicates the
	// environment allows playback to continue.
	ShouldResume bool
}

// SessionController abstracts platform audio-session handling. The
// engine activates the session before audible playback, deactivates it
// on stop, and reacts to interruptions by adjusting the play intent.
type SessionController interface {
	Activate() error
	Deactivate() error
	OnInterruption(handler func(Interruption))
}

type noopSink struct{}

func (noopSink) Set(NowPlayingInfo) {}
func (noopSink) Clear()             {}

type noopRouter struct{}

func (noopRouter) Attach(RemoteCommands) {}
func (noopRouter) Detach()               {}

type noopSession struct{}

func (noopSession) Activate() error                    { return nil }
func (noopSession) Deactivate() error                  { return nil }
func (noopSession) OnInterruption(func(Interruption)) {}
