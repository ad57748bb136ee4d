package app

import (
	"github.com/corey/eiji/internal/adapters/socket"
)

var _ socket.Backend = (*App)(nil)

// Status reports every configured dictionary for the daemon health check.
func (a *App) Status() []socket.DictionaryStatus {
	out := make([]socket.DictionaryStatus, len(a.dicts))
	for i, d := range a.dicts {
		out[i] = socket.DictionaryStatus{
			Name:      d.Name(),
			Group:     d.cfg.Group,
			Available: d.Available(),
			Entries:   d.Entries(),
		}
	}
	return out
}

// SocketPath returns the daemon socket for this data directory.
func (a *App) SocketPath() string {
	return socket.SocketPath(a.Config.DataDir)
}
