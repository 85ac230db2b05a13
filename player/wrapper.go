package player

import (
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/nvaillant/quaver/resource"
)

// wrapperDelegate receives the wrapper's normalized notifications. The
// AudioPlayer implements it and republishes everything as typed events.
type wrapperDelegate interface {
	onStateChange(previous, current PlaybackState)
	onPlayWhenReadyChange(playWhenReady bool)
	onSecondElapse(position time.Duration)
	onSeekDone(position time.Duration, finished bool)
	onDurationChange(duration time.Duration)
	onMetadata(md resource.Metadata)
	onPlayedToEnd()
	onFail(err *Error)
	onResourceRecreated()
}

// playbackWrapper owns the underlying resource and normalizes its
// asynchronous notifications into the PlaybackState machine, reconciling
// them against the caller's play intent.
//
// Locking discipline: state mutations happen under mu; resource calls
// and delegate notifications are collected while locked and performed
// after unlocking, so resource implementations that deliver callbacks
// synchronously cannot deadlock and delegate code may call back in.
type playbackWrapper struct {
	mu       sync.Mutex
	log      zerolog.Logger
	factory  resource.Factory
	res      resource.Player
	delegate wrapperDelegate

	state         PlaybackState
	playWhenReady bool
	rate          float64

	// waitsForBuffer mirrors the "automatically waits to minimize
	// stalling" knob: when false, mid-playback rebuffering does not drop
	// the state out of Playing.
	waitsForBuffer bool

	url      string
	loadID   uint64
	attached bool

	pendingSeek *time.Duration
	duration    time.Duration
	lastPos     time.Duration
	resumePos   time.Duration
	lastErr     *Error

	volume float64
	muted  bool
}

func newPlaybackWrapper(factory resource.Factory, delegate wrapperDelegate, log zerolog.Logger) (*playbackWrapper, error) {
	res, err := factory()
	if err != nil {
		return nil, err
	}
	w := &playbackWrapper{
		log:            log,
		factory:        factory,
		res:            res,
		delegate:       delegate,
		state:          StateIdle,
		rate:           1,
		volume:         1,
		waitsForBuffer: true,
	}
	res.SetDelegate(w)
	return w, nil
}

var _ resource.Delegate = (*playbackWrapper)(nil)

// setStateLocked routes every transition through one place: same-state
// transitions are suppressed so no state is ever reported twice in a row.
func (w *playbackWrapper) setStateLocked(s PlaybackState, after *[]func()) {
	if s == w.state {
		return
	}
	prev := w.state
	w.state = s
	d := w.delegate
	w.log.Debug().Stringer("from", prev).Stringer("to", s).Msg("playback state")
	*after = append(*after, func() { d.onStateChange(prev, s) })
}

func (w *playbackWrapper) setIntentLocked(v bool, after *[]func()) {
	if v == w.playWhenReady {
		return
	}
	w.playWhenReady = v
	d := w.delegate
	*after = append(*after, func() { d.onPlayWhenReadyChange(v) })
}

func run(after []func()) {
	for _, f := range after {
		f()
	}
}

// Load cancels any in-flight resolution, tears down the old item and
// asynchronously resolves url. A non-zero initial position is applied
// before the item reports ready.
func (w *playbackWrapper) Load(url string, playWhenReady bool, initial time.Duration) {
	w.mu.Lock()
	w.loadID++
	w.url = url
	w.lastErr = nil
	w.attached = false
	w.pendingSeek = nil
	w.duration = 0
	w.lastPos = initial
	w.resumePos = 0
	var after []func()
	w.setIntentLocked(playWhenReady, &after)
	w.setStateLocked(StateLoading, &after)
	res := w.res
	w.mu.Unlock()

	run(after)
	res.Load(url, initial)
}

// SetPlayWhenReady records the caller's intent and makes state follow
// it: from Failed it retries from scratch, from Stopped it reloads and
// continues, otherwise it applies or removes the playback rate.
func (w *playbackWrapper) SetPlayWhenReady(v bool) {
	w.mu.Lock()
	var after []func()
	w.setIntentLocked(v, &after)
	st := w.state
	res := w.res
	rate := w.rate
	w.mu.Unlock()
	run(after)

	if v {
		switch st {
		case StateFailed:
			w.Reload(false)
		case StateStopped:
			w.Reload(true)
		case StateReady, StateBuffering, StatePaused, StatePlaying:
			res.SetRate(rate)
		}
		return
	}
	if st == StatePlaying || st == StateBuffering || st == StateReady {
		res.SetRate(0)
	}
}

// Seek moves the playhead. Before the item is attached the time is
// remembered and applied when the load completes; only the most recent
// deferred time survives.
func (w *playbackWrapper) Seek(to time.Duration) {
	w.mu.Lock()
	if !w.attached {
		t := to
		w.pendingSeek = &t
		w.mu.Unlock()
		return
	}
	gen := w.loadID
	res := w.res
	w.mu.Unlock()

	w.performSeek(res, gen, to)
}

func (w *playbackWrapper) performSeek(res resource.Player, gen uint64, to time.Duration) {
	res.SeekTo(to, func(finished bool) {
		w.mu.Lock()
		if gen != w.loadID {
			w.mu.Unlock()
			return
		}
		if finished {
			w.lastPos = to
		}
		d := w.delegate
		w.mu.Unlock()
		d.onSeekDone(to, finished)
	})
}

// Stop forces the stopped state, drops any deferred seek and releases
// the underlying item eagerly. The position is kept so a later play
// intent can reload and continue.
func (w *playbackWrapper) Stop() {
	w.mu.Lock()
	w.loadID++
	w.resumePos = w.lastPos
	w.pendingSeek = nil
	w.attached = false
	var after []func()
	w.setIntentLocked(false, &after)
	w.setStateLocked(StateStopped, &after)
	res := w.res
	w.mu.Unlock()

	run(after)
	res.Unload()
}

// Unload fully resets the wrapper to idle, forgetting the source.
func (w *playbackWrapper) Unload() {
	w.mu.Lock()
	w.loadID++
	w.url = ""
	w.lastErr = nil
	w.attached = false
	w.pendingSeek = nil
	w.duration = 0
	w.lastPos = 0
	w.resumePos = 0
	var after []func()
	w.setIntentLocked(false, &after)
	w.setStateLocked(StateIdle, &after)
	res := w.res
	w.mu.Unlock()

	run(after)
	res.Unload()
}

// Reload re-issues the last load. With startFromCurrentTime and a known
// finite duration the last playback position is used as the initial
// time, so stopped playback continues where it left off.
func (w *playbackWrapper) Reload(startFromCurrentTime bool) {
	w.mu.Lock()
	url := w.url
	intent := w.playWhenReady
	initial := time.Duration(0)
	if startFromCurrentTime && w.duration > 0 {
		initial = w.resumePos
		if initial == 0 {
			initial = w.lastPos
		}
	}
	w.mu.Unlock()

	if url == "" {
		return
	}
	w.Load(url, intent, initial)
}

// markEnded transitions to Ended after a natural end with no follow-up
// queue action, clearing the play intent.
func (w *playbackWrapper) markEnded() {
	w.mu.Lock()
	var after []func()
	w.setIntentLocked(false, &after)
	w.setStateLocked(StateEnded, &after)
	w.mu.Unlock()
	run(after)
}

// recreateResource discards the underlying player instance and builds a
// fresh one from the factory, reapplying instance-level settings.
func (w *playbackWrapper) recreateResource() {
	w.mu.Lock()
	old := w.res
	fresh, err := w.factory()
	if err != nil {
		w.mu.Unlock()
		w.log.Error().Err(err).Msg("recreating playback resource failed")
		return
	}
	w.res = fresh
	w.attached = false
	volume, muted := w.volume, w.muted
	d := w.delegate
	w.mu.Unlock()

	_ = old.Close()
	fresh.SetDelegate(w)
	fresh.SetVolume(volume)
	fresh.SetMuted(muted)
	d.onResourceRecreated()
}

// --- resource.Delegate ---

func (w *playbackWrapper) OnStatusChange(status resource.Status, err error) {
	switch status {
	case resource.StatusBuffering:
		w.mu.Lock()
		var after []func()
		switch w.state {
		case StateLoading, StateReady:
			w.setStateLocked(StateBuffering, &after)
		case StatePlaying:
			if w.waitsForBuffer {
				w.setStateLocked(StateBuffering, &after)
			}
		}
		w.mu.Unlock()
		run(after)

	case resource.StatusReady:
		w.mu.Lock()
		w.attached = true
		seekTo := w.pendingSeek
		w.pendingSeek = nil
		intent := w.playWhenReady
		rate := w.rate
		gen := w.loadID
		res := w.res
		var after []func()
		if intent {
			w.setStateLocked(StatePlaying, &after)
		} else {
			w.setStateLocked(StateReady, &after)
		}
		w.mu.Unlock()

		run(after)
		if seekTo != nil {
			w.performSeek(res, gen, *seekTo)
		}
		if intent {
			res.SetRate(rate)
		}

	case resource.StatusFailed:
		w.mu.Lock()
		w.lastErr = classifyError(err, w.url)
		e := w.lastErr
		d := w.delegate
		var after []func()
		w.setStateLocked(StateFailed, &after)
		w.mu.Unlock()

		run(after)
		d.onFail(e)
		w.recreateResource()
	}
}

func (w *playbackWrapper) OnRateChange(rate float64) {
	w.mu.Lock()
	var after []func()
	if rate > 0 {
		switch w.state {
		case StateLoading, StateBuffering, StateReady, StatePaused:
			w.setStateLocked(StatePlaying, &after)
		}
	} else if w.state == StatePlaying {
		// The stream stopped advancing. If the play intent is still set
		// this was not our own pause: the environment paused us, and the
		// intent must follow so the next Play resumes instead of
		// no-opping. Rate drops at the track boundary are left to the
		// played-to-end signal.
		atBoundary := w.duration > 0 && w.duration-w.lastPos < time.Second
		if !atBoundary {
			w.setIntentLocked(false, &after)
			w.setStateLocked(StatePaused, &after)
		}
	}
	w.mu.Unlock()
	run(after)
}

func (w *playbackWrapper) OnPlayedToEnd() {
	w.mu.Lock()
	d := w.delegate
	active := w.attached
	if w.duration > 0 {
		w.lastPos = w.duration
	}
	w.mu.Unlock()
	if active {
		d.onPlayedToEnd()
	}
}

func (w *playbackWrapper) OnDurationChange(duration time.Duration) {
	w.mu.Lock()
	w.duration = duration
	d := w.delegate
	w.mu.Unlock()
	d.onDurationChange(duration)
}

func (w *playbackWrapper) OnMetadata(md resource.Metadata) {
	w.mu.Lock()
	d := w.delegate
	w.mu.Unlock()
	d.onMetadata(md)
}

func (w *playbackWrapper) OnSecondElapse(position time.Duration) {
	w.mu.Lock()
	w.lastPos = position
	d := w.delegate
	w.mu.Unlock()
	d.onSecondElapse(position)
}

// --- accessors ---

func (w *playbackWrapper) State() PlaybackState {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.state
}

func (w *playbackWrapper) PlayWhenReady() bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.playWhenReady
}

func (w *playbackWrapper) Err() *Error {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.lastErr
}

func (w *playbackWrapper) Duration() time.Duration {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.duration
}

func (w *playbackWrapper) Position() time.Duration {
	w.mu.Lock()
	attached := w.attached
	res := w.res
	last := w.lastPos
	w.mu.Unlock()
	if attached {
		return res.Position()
	}
	return last
}

func (w *playbackWrapper) Rate() float64 {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.rate
}

// SetRate changes the playback speed. Applied immediately while
// playing; otherwise remembered and applied on the next play.
func (w *playbackWrapper) SetRate(rate float64) {
	if rate <= 0 {
		return
	}
	w.mu.Lock()
	w.rate = rate
	playing := w.state == StatePlaying
	res := w.res
	w.mu.Unlock()
	if playing {
		res.SetRate(rate)
	}
}

func (w *playbackWrapper) SetVolume(level float64) {
	w.mu.Lock()
	w.volume = level
	res := w.res
	w.mu.Unlock()
	res.SetVolume(level)
}

func (w *playbackWrapper) Volume() float64 {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.volume
}

func (w *playbackWrapper) SetWaitsForBuffer(v bool) {
	w.mu.Lock()
	w.waitsForBuffer = v
	w.mu.Unlock()
}

func (w *playbackWrapper) WaitsForBuffer() bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.waitsForBuffer
}

func (w *playbackWrapper) SetMuted(muted bool) {
	w.mu.Lock()
	w.muted = muted
	res := w.res
	w.mu.Unlock()
	res.SetMuted(muted)
}

func (w *playbackWrapper) Muted() bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.muted
}

func (w *playbackWrapper) SetBufferDuration(d time.Duration) {
	w.mu.Lock()
	res := w.res
	w.mu.Unlock()
	res.SetBufferDuration(d)
}

func (w *playbackWrapper) BufferDuration() time.Duration {
	w.mu.Lock()
	res := w.res
	w.mu.Unlock()
	return res.BufferDuration()
}

func (w *playbackWrapper) CurrentURL() string {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.url
}

func (w *playbackWrapper) Close() error {
	w.mu.Lock()
	res := w.res
	w.mu.Unlock()
	return res.Close()
}
