// Package pubsub is an in-process, keyed publish/subscribe multiplexer.
//
// A Bus maps string keys to sets of sinks. Publish hands an event to every
// sink registered under a key at the moment of the call; events published
// while nobody is subscribed are gone. Sinks must not block: the standard
// sink is Queue, a bounded FIFO that rejects events once full.
//
//	bus := pubsub.NewBus[Notification](pubsub.WithLogger(log))
//	q := pubsub.NewQueue[Notification](64)
//	bus.Subscribe(userID, q)
//	defer bus.Unsubscribe(userID, q)
//
//	for n := range q.C() {
//	    // ...
//	}
//
// Every Bus method takes the same mutex, so subscribe, unsubscribe and
// publish on one bus are totally ordered and each sink sees events in
// publish order. A sink that fails or panics is logged and skipped.
package pubsub
