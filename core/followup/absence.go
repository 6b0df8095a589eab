package followup

// ConsecutiveAbsences counts the leading absences of a most-recent-first presence sequence.
// It stops at the first presence; an all-absent sequence yields its length.
func ConsecutiveAbsences(presence []bool) int {
	for i, present := range presence {
		if present {
			return i
		}
	}
	return len(presence)
}
