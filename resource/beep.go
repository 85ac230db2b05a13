package resource

import (
	"fmt"
	"io"
	"math"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/dhowden/tag"
	"github.com/gopxl/beep/v2"
	"github.com/gopxl/beep/v2/effects"
	"github.com/gopxl/beep/v2/flac"
	"github.com/gopxl/beep/v2/mp3"
	"github.com/gopxl/beep/v2/speaker"
	"github.com/gopxl/beep/v2/vorbis"
	"github.com/gopxl/beep/v2/wav"
	"github.com/rs/zerolog"
)

const (
	extMP3  = ".mp3"
	extFLAC = ".flac"
	extWAV  = ".wav"
	extOGG  = ".ogg"
	extOGA  = ".oga"

	defaultBufferDuration = 100 * time.Millisecond
	defaultTickInterval   = time.Second
)

// The speaker is a process-wide singleton; it is initialized once at the
// sample rate of the first loaded track and later tracks are resampled.
var (
	speakerMu          sync.Mutex
	speakerInitialized bool
	speakerSampleRate  beep.SampleRate
)

// BeepOptions configures a BeepPlayer.
type BeepOptions struct {
	// BufferDuration is the speaker buffer size. Default 100ms.
	BufferDuration time.Duration
	// TickInterval is the period of position notifications. Default 1s.
	TickInterval time.Duration
	// HTTPClient performs remote source downloads. Default
	// http.DefaultClient.
	HTTPClient *http.Client
	// CacheDir is where remote sources are buffered before decoding.
	// Default is the system temp directory.
	CacheDir string
	Logger   zerolog.Logger
}

// BeepPlayer renders audio through the beep speaker. It decodes mp3,
// flac, wav and ogg/vorbis sources from local paths, file:// URLs and
// http(s) URLs (remote sources are buffered to a temp file before
// decoding).
type BeepPlayer struct {
	mu       sync.Mutex
	log      zerolog.Logger
	client   *http.Client
	delegate Delegate

	bufferDur time.Duration
	tick      time.Duration
	cacheDir  string

	// Load generation. A Load or Unload bumps it; a resolution that
	// completes under a stale generation is discarded.
	seq uint64

	attached  bool
	streamer  beep.StreamSeekCloser
	format    beep.Format
	resampler *beep.Resampler
	baseRatio float64
	ctrl      *beep.Ctrl
	volume    *effects.Volume

	file     *os.File
	tempPath string

	rate        float64
	volumeLevel float64
	muted       bool
	tickDone    chan struct{}
}

var _ Player = (*BeepPlayer)(nil)

// NewBeepPlayer creates an idle beep-backed player.
func NewBeepPlayer(opts BeepOptions) *BeepPlayer {
	if opts.BufferDuration <= 0 {
		opts.BufferDuration = defaultBufferDuration
	}
	if opts.TickInterval <= 0 {
		opts.TickInterval = defaultTickInterval
	}
	if opts.HTTPClient == nil {
		opts.HTTPClient = http.DefaultClient
	}
	return &BeepPlayer{
		log:         opts.Logger,
		client:      opts.HTTPClient,
		bufferDur:   opts.BufferDuration,
		tick:        opts.TickInterval,
		cacheDir:    opts.CacheDir,
		volumeLevel: 1,
	}
}

// NewBeepFactory returns a Factory producing BeepPlayers with opts.
func NewBeepFactory(opts BeepOptions) Factory {
	return func() (Player, error) {
		return NewBeepPlayer(opts), nil
	}
}

func (b *BeepPlayer) SetDelegate(d Delegate) {
	b.mu.Lock()
	b.delegate = d
	b.mu.Unlock()
}

func (b *BeepPlayer) notify(fn func(Delegate)) {
	b.mu.Lock()
	d := b.delegate
	b.mu.Unlock()
	if d != nil {
		fn(d)
	}
}

// notifyIfCurrent delivers a notification only while gen is still the
// live load generation, so a superseded resolution never surfaces.
func (b *BeepPlayer) notifyIfCurrent(gen uint64, fn func(Delegate)) {
	b.mu.Lock()
	d := b.delegate
	current := gen == b.seq
	b.mu.Unlock()
	if current && d != nil {
		fn(d)
	}
}

// Load tears down the current item and resolves url in the background.
func (b *BeepPlayer) Load(sourceURL string, initial time.Duration) {
	b.mu.Lock()
	b.seq++
	gen := b.seq
	b.teardownLocked()
	b.mu.Unlock()

	go b.resolve(gen, sourceURL, initial)
}

func (b *BeepPlayer) resolve(gen uint64, sourceURL string, initial time.Duration) {
	f, tempPath, err := b.open(gen, sourceURL)
	if err != nil {
		b.notifyIfCurrent(gen, func(d Delegate) { d.OnStatusChange(StatusFailed, err) })
		return
	}

	md, mdOK := readMetadata(f)

	ext := sourceExt(sourceURL)
	streamer, format, err := decode(f, ext)
	if err != nil {
		f.Close()
		removeTemp(tempPath)
		b.notifyIfCurrent(gen, func(d Delegate) { d.OnStatusChange(StatusFailed, fmt.Errorf("%w: %v", ErrUnplayable, err)) })
		return
	}

	if err := initSpeaker(format.SampleRate, b.bufferDur); err != nil {
		streamer.Close()
		f.Close()
		removeTemp(tempPath)
		b.notifyIfCurrent(gen, func(d Delegate) { d.OnStatusChange(StatusFailed, fmt.Errorf("%w: %v", ErrUnplayable, err)) })
		return
	}

	b.mu.Lock()
	if gen != b.seq {
		// Superseded while resolving.
		b.mu.Unlock()
		streamer.Close()
		f.Close()
		removeTemp(tempPath)
		return
	}

	b.attached = true
	b.streamer = streamer
	b.format = format
	b.file = f
	b.tempPath = tempPath
	b.baseRatio = float64(format.SampleRate) / float64(speakerSampleRate)
	b.resampler = beep.ResampleRatio(4, b.baseRatio, streamer)
	b.ctrl = &beep.Ctrl{Streamer: b.resampler, Paused: true}
	b.volume = &effects.Volume{Streamer: b.ctrl, Base: 2, Volume: levelToVolume(b.volumeLevel), Silent: b.muted || b.volumeLevel <= 0}
	b.rate = 0

	if initial > 0 {
		if n := format.SampleRate.N(initial); n < streamer.Len() {
			_ = streamer.Seek(n)
		}
	}

	duration := format.SampleRate.D(streamer.Len())
	done := make(chan struct{})
	b.tickDone = done

	speaker.Play(beep.Seq(b.volume, beep.Callback(func() {
		b.notifyIfCurrent(gen, func(d Delegate) { d.OnPlayedToEnd() })
	})))
	b.mu.Unlock()

	go b.tickLoop(gen, done)

	b.notifyIfCurrent(gen, func(d Delegate) { d.OnDurationChange(duration) })
	if mdOK {
		b.notifyIfCurrent(gen, func(d Delegate) { d.OnMetadata(md) })
	}
	b.notifyIfCurrent(gen, func(d Delegate) { d.OnStatusChange(StatusReady, nil) })
}

// open resolves the source to a local readable file. Remote sources are
// buffered to a temp file; the buffering phase is reported as buffering.
func (b *BeepPlayer) open(gen uint64, sourceURL string) (*os.File, string, error) {
	if strings.TrimSpace(sourceURL) == "" {
		return nil, "", fmt.Errorf("%w: empty url", ErrInvalidSource)
	}

	path := sourceURL
	if strings.Contains(sourceURL, "://") {
		u, err := url.Parse(sourceURL)
		if err != nil {
			return nil, "", fmt.Errorf("%w: %v", ErrInvalidSource, err)
		}
		switch u.Scheme {
		case "file":
			path = u.Path
		case "http", "https":
			return b.download(gen, sourceURL)
		default:
			return nil, "", fmt.Errorf("%w: unsupported scheme %q", ErrInvalidSource, u.Scheme)
		}
	}

	f, err := os.Open(path)
	if err != nil {
		return nil, "", fmt.Errorf("%w: %v", ErrInvalidSource, err)
	}
	return f, "", nil
}

func (b *BeepPlayer) download(gen uint64, sourceURL string) (*os.File, string, error) {
	b.notifyIfCurrent(gen, func(d Delegate) { d.OnStatusChange(StatusBuffering, nil) })

	resp, err := b.client.Get(sourceURL)
	if err != nil {
		return nil, "", err // *url.Error, classified upstream as a network failure
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, "", fmt.Errorf("%w: unexpected status %s", ErrUnplayable, resp.Status)
	}

	if b.cacheDir != "" {
		if err := os.MkdirAll(b.cacheDir, 0o755); err != nil {
			return nil, "", err
		}
	}
	tmp, err := os.CreateTemp(b.cacheDir, "quaver-*"+sourceExt(sourceURL))
	if err != nil {
		return nil, "", err
	}
	if _, err := io.Copy(tmp, resp.Body); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return nil, "", err
	}
	if _, err := tmp.Seek(0, io.SeekStart); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return nil, "", err
	}
	return tmp, tmp.Name(), nil
}

func (b *BeepPlayer) tickLoop(gen uint64, done chan struct{}) {
	ticker := time.NewTicker(b.tick)
	defer ticker.Stop()
	for {
		select {
		case <-done:
			return
		case <-ticker.C:
			b.mu.Lock()
			advancing := gen == b.seq && b.attached && b.ctrl != nil && !b.ctrl.Paused
			b.mu.Unlock()
			if advancing {
				pos := b.Position()
				b.notifyIfCurrent(gen, func(d Delegate) { d.OnSecondElapse(pos) })
			}
		}
	}
}

// Unload releases the current item eagerly and supersedes pending loads.
func (b *BeepPlayer) Unload() {
	b.mu.Lock()
	b.seq++
	b.teardownLocked()
	b.mu.Unlock()
}

// teardownLocked clears the speaker and releases streams. Caller holds mu.
func (b *BeepPlayer) teardownLocked() {
	if b.tickDone != nil {
		close(b.tickDone)
		b.tickDone = nil
	}
	if !b.attached {
		return
	}
	speaker.Clear()
	if b.streamer != nil {
		b.streamer.Close()
		b.streamer = nil
	}
	if b.file != nil {
		b.file.Close()
		b.file = nil
	}
	removeTemp(b.tempPath)
	b.tempPath = ""
	b.resampler = nil
	b.ctrl = nil
	b.volume = nil
	b.attached = false
	b.rate = 0
}

// SetRate applies a playback rate. 0 pauses the stream; any positive
// value resumes at that speed through the resampler.
func (b *BeepPlayer) SetRate(rate float64) {
	b.mu.Lock()
	if !b.attached || b.ctrl == nil || rate == b.rate {
		b.mu.Unlock()
		return
	}
	speaker.Lock()
	if rate <= 0 {
		b.ctrl.Paused = true
	} else {
		b.ctrl.Paused = false
		b.resampler.SetRatio(b.baseRatio * rate)
	}
	speaker.Unlock()
	b.rate = rate
	b.mu.Unlock()

	b.notify(func(d Delegate) { d.OnRateChange(rate) })
}

func (b *BeepPlayer) Rate() float64 {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.rate
}

// SeekTo moves the playhead, clamped to the stream bounds.
func (b *BeepPlayer) SeekTo(position time.Duration, done func(finished bool)) {
	if done == nil {
		done = func(bool) {}
	}
	b.mu.Lock()
	if !b.attached || b.streamer == nil {
		b.mu.Unlock()
		done(false)
		return
	}
	n := b.format.SampleRate.N(position)
	n = max(n, 0)
	if limit := b.streamer.Len() - 1; n > limit {
		n = limit
	}
	speaker.Lock()
	err := b.streamer.Seek(n)
	speaker.Unlock()
	b.mu.Unlock()

	if err != nil {
		b.log.Warn().Err(err).Dur("position", position).Msg("seek failed")
	}
	done(err == nil)
}

func (b *BeepPlayer) Position() time.Duration {
	b.mu.Lock()
	defer b.mu.Unlock()
	if !b.attached || b.streamer == nil {
		return 0
	}
	// Read without the speaker lock; slightly stale is fine.
	return b.format.SampleRate.D(b.streamer.Position())
}

func (b *BeepPlayer) Duration() time.Duration {
	b.mu.Lock()
	defer b.mu.Unlock()
	if !b.attached || b.streamer == nil {
		return 0
	}
	return b.format.SampleRate.D(b.streamer.Len())
}

// SetVolume sets the level in [0, 1].
func (b *BeepPlayer) SetVolume(level float64) {
	level = math.Min(math.Max(level, 0), 1)
	b.mu.Lock()
	b.volumeLevel = level
	if b.volume != nil {
		speaker.Lock()
		b.volume.Volume = levelToVolume(level)
		b.volume.Silent = b.muted || level <= 0
		speaker.Unlock()
	}
	b.mu.Unlock()
}

func (b *BeepPlayer) Volume() float64 {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.volumeLevel
}

func (b *BeepPlayer) SetMuted(muted bool) {
	b.mu.Lock()
	b.muted = muted
	if b.volume != nil {
		speaker.Lock()
		b.volume.Silent = muted || b.volumeLevel <= 0
		speaker.Unlock()
	}
	b.mu.Unlock()
}

func (b *BeepPlayer) Muted() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.muted
}

// SetBufferDuration takes effect at speaker initialization, so only the
// value set before the first load matters process-wide.
func (b *BeepPlayer) SetBufferDuration(d time.Duration) {
	b.mu.Lock()
	if d > 0 {
		b.bufferDur = d
	}
	b.mu.Unlock()
}

func (b *BeepPlayer) BufferDuration() time.Duration {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.bufferDur
}

func (b *BeepPlayer) Close() error {
	b.Unload()
	return nil
}

func initSpeaker(rate beep.SampleRate, buffer time.Duration) error {
	speakerMu.Lock()
	defer speakerMu.Unlock()
	if speakerInitialized {
		return nil
	}
	if err := speaker.Init(rate, rate.N(buffer)); err != nil {
		return err
	}
	speakerSampleRate = rate
	speakerInitialized = true
	return nil
}

func decode(f *os.File, ext string) (beep.StreamSeekCloser, beep.Format, error) {
	switch ext {
	case extMP3:
		return mp3.Decode(f)
	case extFLAC:
		return flac.Decode(f)
	case extWAV:
		return wav.Decode(f)
	case extOGG, extOGA:
		return vorbis.Decode(f)
	default:
		return nil, beep.Format{}, fmt.Errorf("unsupported format %q", ext)
	}
}

func sourceExt(sourceURL string) string {
	if u, err := url.Parse(sourceURL); err == nil && u.Path != "" {
		return strings.ToLower(filepath.Ext(u.Path))
	}
	return strings.ToLower(filepath.Ext(sourceURL))
}

// readMetadata reads tags and rewinds the file for decoding.
func readMetadata(f *os.File) (Metadata, bool) {
	md, err := tag.ReadFrom(f)
	if _, seekErr := f.Seek(0, io.SeekStart); seekErr != nil {
		return Metadata{}, false
	}
	if err != nil {
		return Metadata{}, false
	}
	return Metadata{
		Title:  md.Title(),
		Artist: md.Artist(),
		Album:  md.Album(),
	}, true
}

func removeTemp(path string) {
	if path != "" {
		os.Remove(path)
	}
}

// levelToVolume converts a linear 0..1 level to beep's base-2
// logarithmic volume. 1.0 -> 0, 0.5 -> -1, 0.25 -> -2.
func levelToVolume(level float64) float64 {
	if level <= 0 {
		return -10
	}
	if level >= 1 {
		return 0
	}
	return math.Log2(level)
}
