package measurement

// Before reports whether a was captured strictly before b. It is a
// strict weak ordering on capture time alone: equal capture times are
// unordered (false both ways).
func Before(a, b Measurement) bool {
	return a.Time() < b.Time()
}

// Less is the total order used for dispatch: capture time first, then
// arrival sequence number for equal capture times, so scheduling stays
// deterministic when two sensors fire in the same instant.
func Less(a, b Measurement) bool {
	if a.Time() != b.Time() {
		return a.Time() < b.Time()
	}
	return a.Seq() < b.Seq()
}
