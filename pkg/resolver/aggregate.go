package resolver

// Aggregate folds per-term outcomes into the final term → accession
// mapping.
//
// Policy: every input term appears as a key. Terms that ended
// NotFound or Failed carry the empty-string sentinel, so the caller
// always sees the full set of terms it asked for. When duplicate
// terms collide on the key, a resolved accession is never displaced
// by a sentinel, and among resolved duplicates the later one in input
// order wins.
//
// Output depends only on the outcomes, never on the completion order
// of the concurrent resolutions that produced them.
func Aggregate(outcomes []Outcome) map[string]string {
	result := make(map[string]string, len(outcomes))

	for _, o := range outcomes {
		if o.Status == StatusResolved {
			result[o.Term] = o.Accession
			continue
		}
		if _, exists := result[o.Term]; !exists {
			result[o.Term] = ""
		}
	}

	return result
}
