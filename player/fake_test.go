package player

import (
	"sync"
	"time"

	"github.com/nvaillant/quaver/resource"
)

type loadRecord struct {
	url     string
	initial time.Duration
}

// fakeEnv scripts and observes every fake resource instance the factory
// hands out, across recreations.
type fakeEnv struct {
	mu        sync.Mutex
	failWith  map[string]error
	duration  time.Duration
	metadata  resource.Metadata
	manual    bool
	loads     []loadRecord
	unloads   int
	closes    int
	instances []*fakeResource
}

func newFakeEnv() *fakeEnv {
	return &fakeEnv{
		failWith: map[string]error{},
		duration: 3 * time.Minute,
	}
}

func (e *fakeEnv) factory() (resource.Player, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	f := &fakeResource{env: e, volume: 1}
	e.instances = append(e.instances, f)
	return f, nil
}

func (e *fakeEnv) current() *fakeResource {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.instances[len(e.instances)-1]
}

func (e *fakeEnv) loadsFor(url string) int {
	e.mu.Lock()
	defer e.mu.Unlock()
	n := 0
	for _, l := range e.loads {
		if l.url == url {
			n++
		}
	}
	return n
}

// fakeResource is a scripted resource.Player. Unless the env is marked
// manual, Load resolves synchronously: duration, metadata, then ready
// (or failure when the url is scripted to fail).
type fakeResource struct {
	env      *fakeEnv
	delegate resource.Delegate

	url     string
	rate    float64
	pos     time.Duration
	dur     time.Duration
	volume  float64
	muted   bool
	buffer  time.Duration
	seeks   []time.Duration
	seekErr bool
	closed  bool
}

var _ resource.Player = (*fakeResource)(nil)

func (f *fakeResource) SetDelegate(d resource.Delegate) { f.delegate = d }

func (f *fakeResource) Load(url string, initial time.Duration) {
	f.env.mu.Lock()
	f.env.loads = append(f.env.loads, loadRecord{url: url, initial: initial})
	failErr := f.env.failWith[url]
	manual := f.env.manual
	dur := f.env.duration
	f.env.mu.Unlock()

	f.url = url
	f.pos = initial
	f.rate = 0
	if manual {
		return
	}
	if failErr != nil {
		f.fail(failErr)
		return
	}
	f.succeed(dur)
}

// succeed resolves the pending load the way the beep player reports a
// successful open.
func (f *fakeResource) succeed(dur time.Duration) {
	f.dur = dur
	f.delegate.OnDurationChange(dur)
	f.env.mu.Lock()
	md := f.env.metadata
	f.env.mu.Unlock()
	if md != (resource.Metadata{}) {
		f.delegate.OnMetadata(md)
	}
	f.delegate.OnStatusChange(resource.StatusReady, nil)
}

func (f *fakeResource) fail(err error) {
	f.delegate.OnStatusChange(resource.StatusFailed, err)
}

// endTrack simulates the item draining to its natural end.
func (f *fakeResource) endTrack() {
	f.pos = f.dur
	f.delegate.OnPlayedToEnd()
}

// rebuffer simulates the engine stalling on data mid-playback.
func (f *fakeResource) rebuffer() {
	f.delegate.OnStatusChange(resource.StatusBuffering, nil)
}

// externalPause simulates the engine pausing on its own.
func (f *fakeResource) externalPause() {
	f.rate = 0
	f.delegate.OnRateChange(0)
}

func (f *fakeResource) tick(pos time.Duration) {
	f.pos = pos
	f.delegate.OnSecondElapse(pos)
}

func (f *fakeResource) Unload() {
	f.env.mu.Lock()
	f.env.unloads++
	f.env.mu.Unlock()
	f.url = ""
	f.rate = 0
	f.pos = 0
	f.dur = 0
}

func (f *fakeResource) SetRate(rate float64) {
	f.rate = rate
	f.delegate.OnRateChange(rate)
}

func (f *fakeResource) Rate() float64 { return f.rate }

func (f *fakeResource) SeekTo(position time.Duration, done func(finished bool)) {
	f.seeks = append(f.seeks, position)
	if f.seekErr {
		if done != nil {
			done(false)
		}
		return
	}
	f.pos = position
	if done != nil {
		done(true)
	}
}

func (f *fakeResource) Position() time.Duration { return f.pos }
func (f *fakeResource) Duration() time.Duration { return f.dur }

func (f *fakeResource) SetVolume(level float64) { f.volume = level }
func (f *fakeResource) Volume() float64         { return f.volume }
func (f *fakeResource) SetMuted(muted bool)     { f.muted = muted }
func (f *fakeResource) Muted() bool             { return f.muted }

func (f *fakeResource) SetBufferDuration(d time.Duration) { f.buffer = d }
func (f *fakeResource) BufferDuration() time.Duration     { return f.buffer }

func (f *fakeResource) Close() error {
	f.closed = true
	f.env.mu.Lock()
	f.env.closes++
	f.env.mu.Unlock()
	return nil
}

// recordingSink captures now-playing pushes.
type recordingSink struct {
	mu     sync.Mutex
	infos  []NowPlayingInfo
	clears int
}

func (s *recordingSink) Set(info NowPlayingInfo) {
	s.mu.Lock()
	s.infos = append(s.infos, info)
	s.mu.Unlock()
}

func (s *recordingSink) Clear() {
	s.mu.Lock()
	s.clears++
	s.mu.Unlock()
}

func (s *recordingSink) last() (NowPlayingInfo, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.infos) == 0 {
		return NowPlayingInfo{}, false
	}
	return s.infos[len(s.infos)-1], true
}

// recordingRouter keeps the last attached command set.
type recordingRouter struct {
	cmds     RemoteCommands
	attached int
	detached int
}

func (r *recordingRouter) Attach(cmds RemoteCommands) {
	r.cmds = cmds
	r.attached++
}

func (r *recordingRouter) Detach() { r.detached++ }

// fakeSession records activations and lets tests fire interruptions.
type fakeSession struct {
	active      int
	deactivated int
	handler     func(Interruption)
}

func (s *fakeSession) Activate() error   { s.active++; return nil }
func (s *fakeSession) Deactivate() error { s.deactivated++; return nil }

func (s *fakeSession) OnInterruption(h func(Interruption)) { s.handler = h }

func (s *fakeSession) interrupt(i Interruption) {
	if s.handler != nil {
		s.handler(i)
	}
}

// stateLog subscribes to a player's event surface and records a flat
// ordered trace, so tests can assert ordering across event types.
type stateLog struct {
	mu      sync.Mutex
	entries []string
}

func (l *stateLog) add(s string) {
	l.mu.Lock()
	l.entries = append(l.entries, s)
	l.mu.Unlock()
}

func (l *stateLog) all() []string {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]string{}, l.entries...)
}

func (l *stateLog) clear() {
	l.mu.Lock()
	l.entries = nil
	l.mu.Unlock()
}
