package cmd

import (
	"context"

	"github.com/spf13/cobra"

	"github.com/corey/eiji/internal/adapters/socket"
	"github.com/corey/eiji/internal/app"
)

// searcher answers queries either in-process or through a running daemon.
type searcher interface {
	Search(ctx context.Context, q string) ([]socket.GroupHits, error)
}

type localSearcher struct{ app *app.App }

func (l localSearcher) Search(ctx context.Context, q string) ([]socket.GroupHits, error) {
	results, err := l.app.Search(ctx, q)
	if err != nil {
		return nil, err
	}
	return socket.Summarize(results), nil
}

type remoteSearcher struct{ client *socket.Client }

func (r remoteSearcher) Search(_ context.Context, q string) ([]socket.GroupHits, error) {
	result, err := r.client.Search(q)
	if err != nil {
		return nil, err
	}
	return result.Groups, nil
}

// session is an open query surface plus the configuration it runs under.
type session struct {
	search searcher
	config *app.Config
	remote bool
	close  func() error
}

// openSession delegates to a running "eiji watch" daemon when one serves
// the data directory. The daemon holds the manifest database, so opening
// the app directly would time out on its lock.
func openSession(cmd *cobra.Command) (*session, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, err
	}
	client := socket.NewClient(socket.SocketPath(cfg.DataDir))
	if client.Ping() {
		if err := cfg.Resolve(); err != nil {
			return nil, err
		}
		return &session{
			search: remoteSearcher{client: client},
			config: cfg,
			remote: true,
			close:  func() error { return nil },
		}, nil
	}

	a, err := openApp(cmd, true)
	if err != nil {
		return nil, err
	}
	return &session{
		search: localSearcher{app: a},
		config: a.Config,
		close:  a.Close,
	}, nil
}
