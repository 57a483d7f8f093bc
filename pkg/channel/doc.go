// Package channel implements the named, typed conduits between a
// session and its consumer described in spec §4.H: a state machine
// (Opening, Open, Blocked, Closing, Closed), a flow-control window
// negotiated at authentication, and a registry keyed by channel name.
//
// The source guards channel state with a recursive mutex so a callback
// invoked from inside send_item can safely call back into the same
// channel (e.g. to close it). Go has no recursive mutex, so this
// package uses a plain sync.Mutex that SendItem releases before it
// invokes the receiver callback; the callback can therefore call back
// into the same channel without deadlocking. The inCallback field is
// set while the callback runs.
package channel
