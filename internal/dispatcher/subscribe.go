package dispatcher

import (
	"context"

	"github.com/sozu-sh/sozuctl/internal/wire"
)

// subscribe implements SUBSCRIBE_EVENTS (spec §4.4, §4.6): the connection
// stays open, every event published to the bus is relayed as a PROCESSING
// response sharing the subscription's request id, until the caller's
// context is cancelled (client disconnected) or the subscription is
// dropped for lag, which ends the stream with a terminal ERROR response.
func (d *Dispatcher) subscribe(ctx context.Context, req wire.Request, emit Emit) wire.Response {
	sub := d.bus.Subscribe()
	defer sub.Unsubscribe()

	emit = safeEmit(emit)
	d.refreshEntityMetrics()

	for {
		select {
		case <-ctx.Done():
			return wire.OK(req.ID, "subscription closed")

		case err, open := <-sub.Done():
			if !open {
				return wire.OK(req.ID, "subscription closed")
			}
			return wire.Err(req.ID, err)

		case e, open := <-sub.Events():
			if !open {
				// Done fires with ErrSubscriberLag exactly when Events is
				// closed for the same reason; read it to report the cause.
				if err := <-sub.Done(); err != nil {
					return wire.Err(req.ID, err)
				}
				return wire.OK(req.ID, "subscription closed")
			}
			content, err := wire.NewResponseContent(wire.ContentEvent, e)
			if err != nil {
				continue
			}
			emit(wire.Processing(req.ID, "", content))
		}
	}
}
