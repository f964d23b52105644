package services

// ProjectCaseTypeCounts recomputes each case type's Count from the live case
// set. Pure and idempotent; the returned slice holds fresh values, inputs
// are not mutated.
func ProjectCaseTypeCounts(cases []*Case, types []*CaseType) []*CaseType {
	byType := make(map[string]int, len(types))
	for _, c := range cases {
		byType[c.CaseTypeID]++
	}
	out := make([]*CaseType, 0, len(types))
	for _, ct := range types {
		copy := *ct
		copy.Count = byType[ct.ID]
		out = append(out, &copy)
	}
	return out
}

// ProjectInvestigatorStats counts cases per investigator, joining on the
// investigator id resolved at write time so renames cannot break the join.
// Active and pending cases count as active; resolved counts separately.
func ProjectInvestigatorStats(cases []*Case, investigators []*Investigator) []*InvestigatorStats {
	type split struct{ active, resolved int }
	byInv := map[string]*split{}
	for _, c := range cases {
		if c.AssignedInvestigatorID == "" {
			continue
		}
		sp := byInv[c.AssignedInvestigatorID]
		if sp == nil {
			sp = &split{}
			byInv[c.AssignedInvestigatorID] = sp
		}
		switch c.Status {
		case StatusActive, StatusPending:
			sp.active++
		case StatusResolved:
			sp.resolved++
		}
	}
	out := make([]*InvestigatorStats, 0, len(investigators))
	for _, inv := range investigators {
		st := &InvestigatorStats{Investigator: *inv}
		if sp := byInv[inv.ID]; sp != nil {
			st.ActiveCases = sp.active
			st.ResolvedCases = sp.resolved
			st.TotalCases = sp.active + sp.resolved
		}
		out = append(out, st)
	}
	return out
}
