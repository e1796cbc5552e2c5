package engine

// tryAdmit applies the concurrency ceiling. activeCount already includes
// the job asking for the slot, so a count strictly above the ceiling means
// the request must be refused.
func tryAdmit(activeCount, ceiling int) bool {
	return activeCount <= ceiling
}
