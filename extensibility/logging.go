package extensibility

import (
	"context"
	"log"

	"github.com/comalice/mvix"
)

// Logging is a middleware that logs every event the feature sees, including
// events emitted by other middleware. It emits nothing.
func Logging[E any](logger mvix.Logger) mvix.Middleware[E] {
	if logger == nil {
		logger = log.Default()
	}
	return mvix.MiddlewareFunc[E](func(ctx context.Context, events <-chan E) <-chan E {
		go func() {
			for e := range events {
				logger.Printf("LOG: event %T: %+v", e, e)
			}
		}()
		return nil
	})
}
