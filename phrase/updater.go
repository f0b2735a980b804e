package phrase

import (
	"context"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/wfunc/phrasegame/logger"
)

// Updater periodically refreshes the catalog from a remote source and writes
// accepted sets back to the local file.
type Updater struct {
	catalog      *Catalog
	remote       Source
	local        *FileSource
	clock        clockwork.Clock
	interval     time.Duration
	initialDelay time.Duration
}

func NewUpdater(catalog *Catalog, remote Source, local *FileSource, clock clockwork.Clock, interval, initialDelay time.Duration) *Updater {
	return &Updater{
		catalog:      catalog,
		remote:       remote,
		local:        local,
		clock:        clock,
		interval:     interval,
		initialDelay: initialDelay,
	}
}

// Refresh performs one update. A rejected or failed download keeps the current catalog.
func (u *Updater) Refresh(ctx context.Context) error {
	set, err := u.remote.Load(ctx)
	if err != nil {
		logger.Log.Warnw("phrase refresh failed, keeping current phrases", "error", err)
		return err
	}
	clean, err := Validate(set, u.catalog.DefaultLanguage())
	if err != nil {
		logger.Log.Warnw("phrase refresh rejected, keeping current phrases", "error", err)
		return err
	}
	if err := u.catalog.Replace(clean); err != nil {
		return err
	}
	if u.local != nil {
		if err := u.local.Save(clean); err != nil {
			logger.Log.Errorw("failed to write phrases file", "path", u.local.Path, "error", err)
		}
	}
	logger.Log.Infow("phrases updated", "counts", clean.Counts())
	return nil
}

// Run refreshes after the initial delay and then on every interval until ctx is done.
func (u *Updater) Run(ctx context.Context) {
	select {
	case <-u.clock.After(u.initialDelay):
	case <-ctx.Done():
		return
	}
	u.Refresh(ctx)

	if u.interval <= 0 {
		return
	}
	ticker := u.clock.NewTicker(u.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.Chan():
			u.Refresh(ctx)
		case <-ctx.Done():
			return
		}
	}
}
