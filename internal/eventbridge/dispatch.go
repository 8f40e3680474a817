package eventbridge

import (
	"context"
	"sync"

	"github.com/kingrea/agentx/internal/besteffort"
	"github.com/kingrea/agentx/internal/extension"
)

// SessionShutdowner runs session-end housekeeping. *extension.Catalog
// satisfies it.
type SessionShutdowner interface {
	SessionShutdown(ctx context.Context, evt extension.SessionShutdownEvent) besteffort.Outcomes
}

// DispatchShutdowns subscribes to session_shutdown events and hands each to
// target until ctx ends or the returned stop func is called. stop waits for an
// in-flight dispatch to finish.
func DispatchShutdowns(ctx context.Context, router *Router, target SessionShutdowner, logger Logger) (stop func()) {
	if logger == nil {
		logger = nopLogger{}
	}
	ctx, cancel := context.WithCancel(ctx)
	sub := router.Subscribe(TypeSessionShutdown)
	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		for {
			select {
			case <-ctx.Done():
				return
			case evt, ok := <-sub.Events:
				if !ok {
					return
				}
				outcomes := target.SessionShutdown(ctx, extension.SessionShutdownEvent{
					SessionID: evt.SessionID,
					Reason:    evt.ShutdownReason(),
				})
				if failed := outcomes.Failed(); len(failed) > 0 {
					logger.Printf("eventbridge: session %s shutdown: %d of %d tasks failed", evt.SessionID, len(failed), len(outcomes))
				}
			}
		}
	}()
	var once sync.Once
	return func() {
		once.Do(func() {
			cancel()
			sub.Close()
			wg.Wait()
		})
	}
}
