// Package clientmsg is the client-message codec (spec §4.G/§6.1): a
// closed set of JSON wire variants, each registered in a factory table
// keyed by its messageType string so Decode can restore whichever
// variant is present without the caller switching on type first. Every variant round-trips through Marshal/Unmarshal and
// implements Clone for the deep-copy semantics §4.G requires of
// in-process message passing.
package clientmsg
