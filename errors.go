package chashmap

// spec.md §7 lists three of its four outcomes (KeyAbsent, KeyPresent,
// IteratorExhausted) as ordinary typed returns — a bool, or the End
// Iterator — never a Go error value; this package has no sentinel error at
// all as a result. Only the fourth outcome, ProtocolViolation, gets special
// handling below, and it is explicitly "not user-surfaceable... must be
// caught by debug assertions" rather than something a caller recovers from.

// protocolViolation is the panic value, raised by panicProtocol, carrying a
// message identifying a broken internal invariant (spec.md §7:
// ProtocolViolation "is not user-surfaceable... must be caught by debug
// assertions"). It is never returned to a caller as an error.
type protocolViolation struct {
	msg string
}

func (p protocolViolation) Error() string { return "chashmap: protocol violation: " + p.msg }

func panicProtocol(msg string) {
	panic(protocolViolation{msg})
}
