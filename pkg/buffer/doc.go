// Package buffer provides a bounded, thread-safe ring buffer that never
// blocks writers.
//
// When the ring is full the overflow policy decides which item is lost:
// DropOldest evicts the head so readers always see the latest items, and
// DropNewest discards the incoming item. Dropped items are passed to an
// optional callback.
//
// Readers wait on Ready, which is signalled after every write, and drain
// with ReadBatch:
//
//	ring := buffer.NewRing[Event](32, buffer.WithOverflowPolicy[Event](buffer.DropOldest))
//	for {
//		select {
//		case <-ring.Ready():
//			for _, ev := range ring.ReadBatch(16) {
//				send(ev)
//			}
//		case <-ctx.Done():
//			return
//		}
//	}
package buffer
