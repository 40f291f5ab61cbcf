package cli

import (
	"context"
	"errors"
	"time"

	"github.com/dmitrijs2005/whisperbox/internal/api"
	"github.com/dmitrijs2005/whisperbox/internal/client/client"
)

// startListener replaces any running listener with one for userID.
func (a *App) startListener(ctx context.Context, userID string) {
	a.stopListener()

	lctx, cancel := context.WithCancel(ctx)
	done := make(chan struct{})

	a.mu.Lock()
	a.stopListen = cancel
	a.listenDone = done
	a.mu.Unlock()

	go func() {
		defer close(done)
		a.listen(lctx, userID)
	}()
}

// stopListener cancels the running listener and waits for it to exit.
func (a *App) stopListener() {
	a.mu.Lock()
	cancel, done := a.stopListen, a.listenDone
	a.stopListen, a.listenDone = nil, nil
	a.mu.Unlock()

	if cancel == nil {
		return
	}
	cancel()
	<-done
}

// listen keeps the arrivals stream open, reconnecting after the configured
// interval whenever it breaks. Each delivery is printed and then recorded in
// the local cursor.
func (a *App) listen(ctx context.Context, userID string) {
	log := a.logger.With("user_id", userID)

	for {
		cursor, err := a.repo.LoadCursor(ctx, userID)
		if err != nil {
			log.Error(ctx, "loading listener cursor", "error", err)
		} else {
			err = a.client.Listen(ctx, cursor, func(d api.Delivery) {
				a.printf("\n<< [%s] %s: %s\n", d.Timestamp.Local().Format(timeLayout), a.name(d.SenderID), d.Text)
				cursor = cursor.Advance(d.MessageID, d.Timestamp)
				if err := a.repo.SaveCursor(ctx, userID, cursor); err != nil {
					log.Warn(ctx, "saving listener cursor", "error", err)
				}
			})
		}

		if ctx.Err() != nil {
			return
		}
		if errors.Is(err, client.ErrUnauthorized) {
			a.println("Session expired, please login again")
			return
		}
		if err != nil {
			log.Warn(ctx, "arrivals stream closed", "error", err)
		}

		t := time.NewTimer(a.config.ReconnectInterval)
		select {
		case <-ctx.Done():
			t.Stop()
			return
		case <-t.C:
		}
	}
}
