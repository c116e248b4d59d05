package orchestrator

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"time"

	"golang.org/x/sync/errgroup"
)

// Trigger decides when refresh cycles run. Run calls fire for every cycle and
// returns when ctx is done or the trigger has nothing left to fire.
type Trigger interface {
	Run(ctx context.Context, fire func(context.Context)) error
}

// TriggerFunc adapts a function to Trigger.
type TriggerFunc func(ctx context.Context, fire func(context.Context)) error

func (f TriggerFunc) Run(ctx context.Context, fire func(context.Context)) error {
	return f(ctx, fire)
}

// Once fires a single cycle immediately.
func Once() Trigger {
	return TriggerFunc(func(ctx context.Context, fire func(context.Context)) error {
		if err := ctx.Err(); err != nil {
			return err
		}
		fire(ctx)
		return nil
	})
}

// Interval fires immediately and then every d until ctx is done.
// Cycles run inline, so a slow cycle delays the next tick instead of overlapping it.
func Interval(d time.Duration) Trigger {
	return TriggerFunc(func(ctx context.Context, fire func(context.Context)) error {
		if d <= 0 {
			return fmt.Errorf("refresh interval must be positive, got %s", d)
		}
		if err := ctx.Err(); err != nil {
			return err
		}
		fire(ctx)

		ticker := time.NewTicker(d)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-ticker.C:
				fire(ctx)
			}
		}
	})
}

// Signal fires a cycle each time the process receives one of sigs.
func Signal(sigs ...os.Signal) Trigger {
	return TriggerFunc(func(ctx context.Context, fire func(context.Context)) error {
		ch := make(chan os.Signal, 1)
		signal.Notify(ch, sigs...)
		defer signal.Stop(ch)
		return fromChannel(ch).Run(ctx, fire)
	})
}

// fromChannel fires a cycle for every value received on ch until ctx is done or ch closes.
func fromChannel[T any](ch <-chan T) Trigger {
	return TriggerFunc(func(ctx context.Context, fire func(context.Context)) error {
		for {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case _, ok := <-ch:
				if !ok {
					return nil
				}
				fire(ctx)
			}
		}
	})
}

// Multi runs triggers concurrently. The first error cancels the others.
func Multi(triggers ...Trigger) Trigger {
	return TriggerFunc(func(ctx context.Context, fire func(context.Context)) error {
		g, gctx := errgroup.WithContext(ctx)
		for _, t := range triggers {
			t := t
			g.Go(func() error {
				return t.Run(gctx, fire)
			})
		}
		return g.Wait()
	})
}
