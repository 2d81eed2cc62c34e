package service

import (
	"context"
	"log"
	"time"
)

// FireAndForget runs fn on its own goroutine with a fresh background
// context, swallowing any error into a log line. It is the single way
// best-effort side effects (invite emails, token revocation on
// disconnect) are dispatched, so the detachment is visible at the call
// site instead of being an accidental unawaited call.
func FireAndForget(name string, fn func(ctx context.Context) error) {
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancel()
		if err := fn(ctx); err != nil {
			log.Printf("%s: %v", name, err)
		}
	}()
}
