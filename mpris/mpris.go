//go:build linux

// Package mpris exposes a player over the MPRIS D-Bus interface. The
// adapter plugs into the engine through the now-playing sink and remote
// command router collaborator interfaces; the engine itself never knows
// D-Bus exists.
package mpris

import (
	"fmt"
	"hash/fnv"
	"sync"
	"time"

	"github.com/godbus/dbus/v5"
	"github.com/quarckster/go-mpris-server/pkg/server"
	"github.com/quarckster/go-mpris-server/pkg/types"

	"github.com/nvaillant/quaver/player"
)

// Adapter bridges a player to MPRIS. Create it first, pass it as both
// NowPlaying sink and RemoteCommands router in player.Options, then
// call Start once the player exists.
type Adapter struct {
	identity string
	server   *server.Server

	mu      sync.RWMutex
	info    player.NowPlayingInfo
	hasInfo bool
	cmds    player.RemoteCommands
}

var (
	_ player.NowPlayingSink      = (*Adapter)(nil)
	_ player.RemoteCommandRouter = (*Adapter)(nil)
)

// New creates an MPRIS adapter registering under
// org.mpris.MediaPlayer2.<name>.
func New(name, identity string) *Adapter {
	a := &Adapter{identity: identity}
	a.server = server.NewServer(name, &rootAdapter{identity: identity}, &playerAdapter{a: a})
	return a
}

// Start claims the D-Bus name and serves requests in the background.
func (a *Adapter) Start() {
	go func() {
		_ = a.server.Listen()
	}()
}

// Close releases the D-Bus name.
func (a *Adapter) Close() error {
	return a.server.Stop()
}

// Set stores the latest now-playing snapshot for D-Bus property reads.
func (a *Adapter) Set(info player.NowPlayingInfo) {
	a.mu.Lock()
	a.info = info
	a.hasInfo = true
	a.mu.Unlock()
}

// Clear drops the now-playing snapshot.
func (a *Adapter) Clear() {
	a.mu.Lock()
	a.info = player.NowPlayingInfo{}
	a.hasInfo = false
	a.mu.Unlock()
}

// Attach installs the transport handlers remote commands forward to.
func (a *Adapter) Attach(cmds player.RemoteCommands) {
	a.mu.Lock()
	a.cmds = cmds
	a.mu.Unlock()
}

// Detach drops the transport handlers; further commands are ignored.
func (a *Adapter) Detach() {
	a.mu.Lock()
	a.cmds = player.RemoteCommands{}
	a.mu.Unlock()
}

func (a *Adapter) snapshot() (player.NowPlayingInfo, bool) {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.info, a.hasInfo
}

func (a *Adapter) commands() player.RemoteCommands {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.cmds
}

// rootAdapter implements OrgMprisMediaPlayer2Adapter.
type rootAdapter struct {
	identity string
}

func (r *rootAdapter) Raise() error {
	return nil // Not supported
}

func (r *rootAdapter) Quit() error {
	return nil // Not supported - host manages its own lifecycle
}

func (r *rootAdapter) CanQuit() (bool, error) {
	return false, nil
}

func (r *rootAdapter) CanRaise() (bool, error) {
	return false, nil
}

func (r *rootAdapter) HasTrackList() (bool, error) {
	return false, nil // Track list interface not implemented
}

func (r *rootAdapter) Identity() (string, error) {
	return r.identity, nil
}

//nolint:revive // Method name required by interface.
func (r *rootAdapter) SupportedUriSchemes() ([]string, error) {
	return []string{"file", "http", "https"}, nil
}

func (r *rootAdapter) SupportedMimeTypes() ([]string, error) {
	return []string{"audio/mpeg", "audio/flac", "audio/ogg", "audio/wav"}, nil
}

// playerAdapter implements OrgMprisMediaPlayer2PlayerAdapter.
type playerAdapter struct {
	a *Adapter
}

func (p *playerAdapter) Next() error {
	if next := p.a.commands().Next; next != nil {
		next()
	}
	return nil
}

func (p *playerAdapter) Previous() error {
	if prev := p.a.commands().Previous; prev != nil {
		prev()
	}
	return nil
}

func (p *playerAdapter) Pause() error {
	if pause := p.a.commands().Pause; pause != nil {
		pause()
	}
	return nil
}

func (p *playerAdapter) PlayPause() error {
	if toggle := p.a.commands().Toggle; toggle != nil {
		toggle()
	}
	return nil
}

func (p *playerAdapter) Stop() error {
	if stop := p.a.commands().Stop; stop != nil {
		stop()
	}
	return nil
}

func (p *playerAdapter) Play() error {
	if play := p.a.commands().Play; play != nil {
		play()
	}
	return nil
}

func (p *playerAdapter) Seek(offset types.Microseconds) error {
	info, ok := p.a.snapshot()
	if !ok {
		return nil
	}
	if seekTo := p.a.commands().SeekTo; seekTo != nil {
		seekTo(info.Position + time.Duration(offset)*time.Microsecond)
	}
	return nil
}

func (p *playerAdapter) SetPosition(_ string, position types.Microseconds) error {
	if seekTo := p.a.commands().SeekTo; seekTo != nil {
		seekTo(time.Duration(position) * time.Microsecond)
	}
	return nil
}

//nolint:revive // Method name required by interface.
func (p *playerAdapter) OpenUri(_ string) error {
	return nil // Not supported
}

func (p *playerAdapter) PlaybackStatus() (types.PlaybackStatus, error) {
	info, ok := p.a.snapshot()
	if !ok {
		return types.PlaybackStatusStopped, nil
	}
	switch info.State {
	case player.StatePlaying, player.StateLoading, player.StateBuffering:
		return types.PlaybackStatusPlaying, nil
	case player.StatePaused, player.StateReady:
		return types.PlaybackStatusPaused, nil
	}
	return types.PlaybackStatusStopped, nil
}

func (p *playerAdapter) Rate() (float64, error) {
	info, ok := p.a.snapshot()
	if !ok || info.Rate <= 0 {
		return 1.0, nil
	}
	return info.Rate, nil
}

func (p *playerAdapter) SetRate(_ float64) error {
	return nil // Not supported
}

func (p *playerAdapter) Metadata() (types.Metadata, error) {
	info, ok := p.a.snapshot()
	if !ok {
		return types.Metadata{}, nil
	}

	meta := types.Metadata{
		TrackId: dbus.ObjectPath(formatTrackID(info.Title, info.QueueIndex)),
		Length:  types.Microseconds(info.Duration.Microseconds()),
		Title:   info.Title,
		Artist:  []string{info.Artist},
		Album:   info.Album,
	}
	if info.ArtworkURL != "" {
		meta.ArtUrl = info.ArtworkURL
	}
	return meta, nil
}

func (p *playerAdapter) Volume() (float64, error) {
	return 1.0, nil // Volume control not exposed via the router
}

func (p *playerAdapter) SetVolume(_ float64) error {
	return nil // Not supported
}

func (p *playerAdapter) Position() (int64, error) {
	info, _ := p.a.snapshot()
	return info.Position.Microseconds(), nil
}

func (p *playerAdapter) MinimumRate() (float64, error) {
	return 1.0, nil
}

func (p *playerAdapter) MaximumRate() (float64, error) {
	return 1.0, nil
}

func (p *playerAdapter) CanGoNext() (bool, error) {
	info, ok := p.a.snapshot()
	return ok && info.QueueIndex < info.QueueCount-1, nil
}

func (p *playerAdapter) CanGoPrevious() (bool, error) {
	info, ok := p.a.snapshot()
	return ok && info.QueueIndex > 0, nil
}

func (p *playerAdapter) CanPlay() (bool, error) {
	_, ok := p.a.snapshot()
	return ok, nil
}

func (p *playerAdapter) CanPause() (bool, error) {
	return true, nil
}

func (p *playerAdapter) CanSeek() (bool, error) {
	return true, nil
}

func (p *playerAdapter) CanControl() (bool, error) {
	return true, nil
}

func formatTrackID(title string, index int) string {
	h := fnv.New64a()
	h.Write([]byte(title))
	return fmt.Sprintf("/org/mpris/MediaPlayer2/Track/%d_%x", index, h.Sum64())
}
