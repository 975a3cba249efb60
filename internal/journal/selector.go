package journal

// Selection is the outcome of candidate selection for one run.
type Selection struct {
	Picked []CaseRecord
	// UsedRecently holds the case IDs referenced by the recent entries.
	UsedRecently map[string]struct{}
	// ToppedUp counts picked cases that were re-used despite recent use.
	ToppedUp int
	// SameAsLast is true when the picked ID set equals the most recent
	// entry's RelatedCaseIDs.
	SameAsLast bool
}

// PickedIDs returns the picked case IDs in selection order.
func (s Selection) PickedIDs() []string {
	ids := make([]string, len(s.Picked))
	for i, c := range s.Picked {
		ids[i] = c.ID
	}
	return ids
}

// Stubs returns the anonymized stubs of the picked cases.
func (s Selection) Stubs() []CaseStub {
	stubs := make([]CaseStub, len(s.Picked))
	for i, c := range s.Picked {
		stubs[i] = c.Stub()
	}
	return stubs
}

// Select picks up to maxCases cases from pool (newest first), preferring
// cases not referenced by any entry in recent (newest first). When there are
// not enough fresh cases the newest remaining ones are used, so a non-empty
// pool always yields a non-empty selection.
func Select(pool []CaseRecord, recent []RecentEntry, maxCases int) (Selection, error) {
	if len(pool) == 0 {
		return Selection{}, ErrNoEligibleCases
	}
	if maxCases < 1 {
		maxCases = 1
	}

	used := make(map[string]struct{})
	for _, e := range recent {
		for _, id := range e.RelatedCaseIDs {
			used[id] = struct{}{}
		}
	}

	picked := make([]CaseRecord, 0, maxCases)
	seen := make(map[string]struct{}, maxCases)
	for _, c := range pool {
		if len(picked) == maxCases {
			break
		}
		if _, ok := used[c.ID]; ok {
			continue
		}
		if _, dup := seen[c.ID]; dup {
			continue
		}
		picked = append(picked, c)
		seen[c.ID] = struct{}{}
	}

	toppedUp := 0
	for _, c := range pool {
		if len(picked) == maxCases {
			break
		}
		if _, ok := seen[c.ID]; ok {
			continue
		}
		picked = append(picked, c)
		seen[c.ID] = struct{}{}
		toppedUp++
	}

	if len(picked) == 0 {
		return Selection{}, ErrNoNewCandidates
	}

	sel := Selection{
		Picked:       picked,
		UsedRecently: used,
		ToppedUp:     toppedUp,
	}
	if len(recent) > 0 {
		sel.SameAsLast = SameCaseSet(recent[0].RelatedCaseIDs, sel.PickedIDs())
	}
	return sel, nil
}

// SameCaseSet reports whether a and b hold the same IDs, ignoring order.
func SameCaseSet(a, b []string) bool {
	setA := make(map[string]struct{}, len(a))
	for _, id := range a {
		setA[id] = struct{}{}
	}
	setB := make(map[string]struct{}, len(b))
	for _, id := range b {
		setB[id] = struct{}{}
	}
	if len(setA) != len(setB) {
		return false
	}
	for id := range setA {
		if _, ok := setB[id]; !ok {
			return false
		}
	}
	return true
}
