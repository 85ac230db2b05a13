//go:build !linux

package mpris

import "github.com/nvaillant/quaver/player"

// Adapter is a no-op on non-Linux platforms.
type Adapter struct{}

var (
	_ player.NowPlayingSink      = (*Adapter)(nil)
	_ player.RemoteCommandRouter = (*Adapter)(nil)
)

// New returns a no-op adapter on non-Linux platforms.
func New(_, _ string) *Adapter {
	return &Adapter{}
}

// Start is a no-op on non-Linux platforms.
func (a *Adapter) Start() {}

// Close is a no-op on non-Linux platforms.
func (a *Adapter) Close() error {
	return nil
}

func (a *Adapter) Set(_ player.NowPlayingInfo)    {}
func (a *Adapter) Clear()                         {}
func (a *Adapter) Attach(_ player.RemoteCommands) {}
func (a *Adapter) Detach()                        {}
