package player

import (
	"errors"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/nvaillant/quaver/resource"
)

// ErrNoItem is returned by operations that need a loaded item.
var ErrNoItem = errors.New("no item loaded")

// Options configure an AudioPlayer. The zero value is usable: playback
// goes through the beep engine and the external collaborators default
// to no-ops.
type Options struct {
	// Factory builds the underlying playback resource. Defaults to
	// resource.NewBeepFactory with the engine defaults.
	Factory resource.Factory
	// NowPlaying receives metadata snapshots for external display.
	NowPlaying NowPlayingSink
	// RemoteCommands receives the transport handlers to forward remote
	// commands into the player.
	RemoteCommands RemoteCommandRouter
	// Session is the platform audio-session hook.
	Session SessionController
	// BufferDuration is applied to the resource before the first load.
	BufferDuration time.Duration
	Logger         zerolog.Logger
}

// AudioPlayer plays one item at a time. It owns a playbackWrapper and
// republishes the wrapper's notifications as typed events, pushes
// now-playing snapshots and reacts to session interruptions.
type AudioPlayer struct {
	log     zerolog.Logger
	events  Events
	wrapper *playbackWrapper

	sink    NowPlayingSink
	router  RemoteCommandRouter
	session SessionController

	mu          sync.RWMutex
	item        Item
	metadata    resource.Metadata
	duration    time.Duration
	interrupted bool
	endHook     func()
	queuePos    func() (index, count int)
}

// New builds an AudioPlayer and attaches the remote-command transport.
func New(opts Options) (*AudioPlayer, error) {
	if opts.Factory == nil {
		opts.Factory = resource.NewBeepFactory(resource.BeepOptions{Logger: opts.Logger})
	}
	if opts.NowPlaying == nil {
		opts.NowPlaying = noopSink{}
	}
	if opts.RemoteCommands == nil {
		opts.RemoteCommands = noopRouter{}
	}
	if opts.Session == nil {
		opts.Session = noopSession{}
	}

	a := &AudioPlayer{
		log:     opts.Logger,
		sink:    opts.NowPlaying,
		router:  opts.RemoteCommands,
		session: opts.Session,
	}
	w, err := newPlaybackWrapper(opts.Factory, a, opts.Logger)
	if err != nil {
		return nil, err
	}
	a.wrapper = w
	if opts.BufferDuration > 0 {
		w.SetBufferDuration(opts.BufferDuration)
	}

	a.router.Attach(a.remoteCommands())
	a.session.OnInterruption(a.handleInterruption)
	return a, nil
}

// Events exposes the player's event surface.
func (a *AudioPlayer) Events() *Events { return &a.events }

func (a *AudioPlayer) remoteCommands() RemoteCommands {
	return RemoteCommands{
		Play:   a.Play,
		Pause:  a.Pause,
		Toggle: a.TogglePlaying,
		Stop:   a.Stop,
		SeekTo: a.SeekTo,
	}
}

// Load replaces the current item and starts resolving it. Playback
// begins automatically when playWhenReady is set.
func (a *AudioPlayer) Load(item Item, playWhenReady bool) error {
	if item == nil || item.SourceURL() == "" {
		return ErrNoItem
	}
	a.mu.Lock()
	a.item = item
	a.metadata = resource.Metadata{}
	a.duration = 0
	a.mu.Unlock()

	a.wrapper.Load(item.SourceURL(), playWhenReady, 0)
	return nil
}

// Play sets the play intent. From a failed state this retries the load
// from the start; from stopped it reloads and continues at the stop
// position.
func (a *AudioPlayer) Play() {
	if err := a.session.Activate(); err != nil {
		a.log.Warn().Err(err).Msg("activating audio session")
	}
	a.wrapper.SetPlayWhenReady(true)
}

// Pause clears the play intent without releasing the item.
func (a *AudioPlayer) Pause() {
	a.wrapper.SetPlayWhenReady(false)
}

// TogglePlaying flips between Play and Pause.
func (a *AudioPlayer) TogglePlaying() {
	if a.wrapper.PlayWhenReady() {
		a.Pause()
		return
	}
	a.Play()
}

// Stop ends playback of the current item, releases it eagerly and
// reports the end with ReasonPlayerStopped. The item stays current so a
// later Play continues where it stopped.
func (a *AudioPlayer) Stop() {
	hadItem := a.CurrentItem() != nil && a.wrapper.State() != StateStopped
	a.wrapper.Stop()
	if hadItem {
		a.events.PlaybackEnd.Emit(PlaybackEnded{Reason: ReasonPlayerStopped})
	}
	if err := a.session.Deactivate(); err != nil {
		a.log.Warn().Err(err).Msg("deactivating audio session")
	}
}

// Clear unloads everything and returns the player to idle.
func (a *AudioPlayer) Clear() {
	a.mu.Lock()
	a.item = nil
	a.metadata = resource.Metadata{}
	a.duration = 0
	a.mu.Unlock()
	a.wrapper.Unload()
	a.sink.Clear()
}

// SeekTo moves the playhead to position. Issued during a load, the seek
// is deferred and applied when the item becomes ready.
func (a *AudioPlayer) SeekTo(position time.Duration) {
	if position < 0 {
		position = 0
	}
	a.wrapper.Seek(position)
}

// SeekBy moves the playhead relative to the current position.
func (a *AudioPlayer) SeekBy(offset time.Duration) {
	a.SeekTo(a.wrapper.Position() + offset)
}

func (a *AudioPlayer) PlayerState() PlaybackState { return a.wrapper.State() }
func (a *AudioPlayer) PlayWhenReady() bool        { return a.wrapper.PlayWhenReady() }
func (a *AudioPlayer) LastError() *Error          { return a.wrapper.Err() }
func (a *AudioPlayer) Position() time.Duration    { return a.wrapper.Position() }
func (a *AudioPlayer) Duration() time.Duration    { return a.wrapper.Duration() }

func (a *AudioPlayer) Rate() float64          { return a.wrapper.Rate() }
func (a *AudioPlayer) SetRate(rate float64)   { a.wrapper.SetRate(rate) }
func (a *AudioPlayer) Volume() float64        { return a.wrapper.Volume() }
func (a *AudioPlayer) SetVolume(lvl float64)  { a.wrapper.SetVolume(lvl) }
func (a *AudioPlayer) Muted() bool            { return a.wrapper.Muted() }
func (a *AudioPlayer) SetMuted(muted bool)    { a.wrapper.SetMuted(muted) }

func (a *AudioPlayer) BufferDuration() time.Duration     { return a.wrapper.BufferDuration() }
func (a *AudioPlayer) SetBufferDuration(d time.Duration) { a.wrapper.SetBufferDuration(d) }

// AutomaticallyWaits reports whether mid-playback rebuffering drops the
// state to Buffering. Default true; with false the player keeps
// reporting Playing across short stalls.
func (a *AudioPlayer) AutomaticallyWaits() bool     { return a.wrapper.WaitsForBuffer() }
func (a *AudioPlayer) SetAutomaticallyWaits(v bool) { a.wrapper.SetWaitsForBuffer(v) }

// CurrentItem returns the loaded item, nil when idle.
func (a *AudioPlayer) CurrentItem() Item {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.item
}

// Close detaches the remote transport, drops all event listeners and
// releases the audio resource.
func (a *AudioPlayer) Close() error {
	a.router.Detach()
	a.sink.Clear()
	if err := a.session.Deactivate(); err != nil {
		a.log.Warn().Err(err).Msg("deactivating audio session")
	}
	err := a.wrapper.Close()
	a.events.reset()
	return err
}

// setTrackEndHook lets the queued player take over end-of-track
// handling. Without a hook a natural end transitions to Ended.
func (a *AudioPlayer) setTrackEndHook(hook func()) {
	a.mu.Lock()
	a.endHook = hook
	a.mu.Unlock()
}

func (a *AudioPlayer) handleInterruption(i Interruption) {
	if i.Began {
		a.mu.Lock()
		a.interrupted = a.wrapper.PlayWhenReady()
		a.mu.Unlock()
		a.Pause()
		return
	}
	a.mu.Lock()
	resume := a.interrupted && i.ShouldResume
	a.interrupted = false
	a.mu.Unlock()
	if resume {
		a.Play()
	}
}

// --- wrapperDelegate ---

func (a *AudioPlayer) onStateChange(previous, current PlaybackState) {
	a.events.StateChange.Emit(StateChanged{Previous: previous, Current: current})
	a.pushNowPlaying()
}

func (a *AudioPlayer) onPlayWhenReadyChange(playWhenReady bool) {
	a.events.PlayWhenReadyChange.Emit(PlayWhenReadyChanged{PlayWhenReady: playWhenReady})
}

func (a *AudioPlayer) onSecondElapse(position time.Duration) {
	a.events.SecondElapse.Emit(SecondsElapsed{Position: position})
	a.pushNowPlaying()
}

func (a *AudioPlayer) onSeekDone(position time.Duration, finished bool) {
	a.events.Seek.Emit(Seeked{Position: position, Finished: finished})
	a.pushNowPlaying()
}

func (a *AudioPlayer) onDurationChange(duration time.Duration) {
	a.mu.Lock()
	a.duration = duration
	a.mu.Unlock()
	a.events.UpdateDuration.Emit(DurationUpdated{Duration: duration})
	a.pushNowPlaying()
}

func (a *AudioPlayer) onMetadata(md resource.Metadata) {
	a.mu.Lock()
	a.metadata = md
	a.mu.Unlock()
	a.events.ReceiveMetadata.Emit(MetadataReceived{Metadata: md})
	a.pushNowPlaying()
}

func (a *AudioPlayer) onPlayedToEnd() {
	a.mu.RLock()
	hook := a.endHook
	a.mu.RUnlock()
	if hook != nil {
		hook()
		return
	}
	a.events.PlaybackEnd.Emit(PlaybackEnded{Reason: ReasonPlayedUntilEnd})
	a.wrapper.markEnded()
}

func (a *AudioPlayer) onFail(err *Error) {
	a.log.Error().Err(err).Str("url", err.URL).Msg("playback failed")
	a.events.Fail.Emit(Failed{Err: err})
}

func (a *AudioPlayer) onResourceRecreated() {
	a.events.RecreateResource.Emit(ResourceRecreated{})
}

// setQueuePositionHook lets the queued player stamp now-playing
// snapshots with the queue cursor.
func (a *AudioPlayer) setQueuePositionHook(hook func() (index, count int)) {
	a.mu.Lock()
	a.queuePos = hook
	a.mu.Unlock()
}

func (a *AudioPlayer) pushNowPlaying() {
	a.mu.RLock()
	item := a.item
	md := a.metadata
	duration := a.duration
	queuePos := a.queuePos
	a.mu.RUnlock()
	if item == nil {
		return
	}

	info := NowPlayingInfo{
		Title:    md.Title,
		Artist:   md.Artist,
		Album:    md.Album,
		Duration: duration,
		Position: a.wrapper.Position(),
		Rate:     0,
		State:    a.wrapper.State(),
	}
	if info.Title == "" {
		info.Title = item.ItemTitle()
	}
	if info.Artist == "" {
		info.Artist = item.ItemArtist()
	}
	if info.Album == "" {
		info.Album = item.ItemAlbum()
	}
	if mi, ok := item.(MediaItem); ok {
		info.ArtworkURL = mi.ArtworkURL
	}
	if info.State == StatePlaying {
		info.Rate = a.wrapper.Rate()
	}
	info.QueueIndex = -1
	if queuePos != nil {
		info.QueueIndex, info.QueueCount = queuePos()
	}
	a.sink.Set(info)
}
