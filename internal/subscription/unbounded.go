package subscription

import "github.com/sequex/depthgateway/internal/orderbook"

// newUnboundedSnapshotChan returns a sender/receiver pair backed by a
// growable internal queue goroutine instead of a fixed-capacity buffer: a
// slow or stalled consumer never forces the producer to drop the freshest
// book state, it just grows the queue. The feeder goroutine exits (closing
// out) once in is closed and the queue has fully drained.
func newUnboundedSnapshotChan() (in chan<- orderbook.DepthSnapshot, out <-chan orderbook.DepthSnapshot) {
	inCh := make(chan orderbook.DepthSnapshot)
	outCh := make(chan orderbook.DepthSnapshot)

	go func() {
		defer close(outCh)
		var queue []orderbook.DepthSnapshot
		for {
			if len(queue) == 0 {
				v, ok := <-inCh
				if !ok {
					return
				}
				queue = append(queue, v)
				continue
			}
			select {
			case v, ok := <-inCh:
				if !ok {
					for _, q := range queue {
						outCh <- q
					}
					return
				}
				queue = append(queue, v)
			case outCh <- queue[0]:
				queue = queue[1:]
			}
		}
	}()

	return inCh, outCh
}
