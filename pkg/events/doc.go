/*
Package events implements the Database Access façade's listener
fan-out: entity_created, entity_deleted, and site_deleted notifications
delivered to every subscriber registered at startup (spec §4.D).

# Architecture

	Publisher → eventCh (buffer 256) → broadcast loop → Subscriber chans (buffer 64 each)

Publish waits while the 256-event buffer is full and returns at once
after Stop; a full subscriber buffer causes that one delivery to be
skipped rather than stalling the broadcast loop. Listeners are
expected to register once at startup and are not meant to be added or
removed while the façade is handling traffic.

# Usage

	broker := events.NewBroker()
	broker.Start()
	defer broker.Stop()

	sub := broker.Subscribe()
	defer broker.Unsubscribe(sub)
	go func() {
		for ev := range sub {
			switch ev.Type {
			case events.EventEntityDeleted:
				// ...
			}
		}
	}()

	broker.Publish(events.Event{Type: events.EventEntityCreated, Id: id, EntType: t})
*/
package events
