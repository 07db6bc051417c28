package server

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/TobiSchelling/VoteMatch/internal/session"
)

// pruner removes stale sessions on a cron schedule while the server runs.
type pruner struct {
	cron   *cron.Cron
	store  *session.Store
	maxAge time.Duration
}

func newPruner(store *session.Store, spec string, maxAge time.Duration) (*pruner, error) {
	p := &pruner{
		cron:   cron.New(),
		store:  store,
		maxAge: maxAge,
	}
	if _, err := p.cron.AddFunc(spec, p.run); err != nil {
		return nil, fmt.Errorf("invalid prune schedule %q: %w", spec, err)
	}
	return p, nil
}

func (p *pruner) run() {
	if _, err := p.store.Prune(p.maxAge); err != nil {
		slog.Warn("pruning stale sessions", "error", err)
	}
}

func (p *pruner) Start() {
	p.cron.Start()
}

// Stop waits for a running prune to finish.
func (p *pruner) Stop() {
	<-p.cron.Stop().Done()
}
