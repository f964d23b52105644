package services

import "testing"

func TestProjectCaseTypeCounts(t *testing.T) {
	cases := []*Case{
		{ID: "c1", CaseTypeID: "ct1"},
		{ID: "c2", CaseTypeID: "ct1"},
		{ID: "c3", CaseTypeID: "ct2"},
		{ID: "c4", CaseTypeID: "unknown"},
	}
	types := []*CaseType{
		{ID: "ct1", Title: "Academic Misconduct"},
		{ID: "ct2", Title: "Exam Malpractice"},
	}

	out := ProjectCaseTypeCounts(cases, types)
	if out[0].Count != 2 || out[1].Count != 1 {
		t.Fatalf("counts = %d,%d, want 2,1", out[0].Count, out[1].Count)
	}
	if types[0].Count != 0 {
		t.Fatalf("input slice mutated: %d", types[0].Count)
	}

	// Idempotent: a second projection over the same set matches.
	again := ProjectCaseTypeCounts(cases, types)
	for i := range out {
		if out[i].Count != again[i].Count {
			t.Fatalf("projection not idempotent at %d: %d vs %d", i, out[i].Count, again[i].Count)
		}
	}
	sum := 0
	for _, ct := range out {
		sum += ct.Count
	}
	matched := 0
	for _, c := range cases {
		for _, ct := range types {
			if c.CaseTypeID == ct.ID {
				matched++
			}
		}
	}
	if sum != matched {
		t.Fatalf("sum of counts = %d, want %d", sum, matched)
	}
}

func TestProjectInvestigatorStats(t *testing.T) {
	cases := []*Case{
		{ID: "c1", AssignedInvestigatorID: "i1", Status: StatusActive},
		{ID: "c2", AssignedInvestigatorID: "i1", Status: StatusPending},
		{ID: "c3", AssignedInvestigatorID: "i1", Status: StatusResolved},
		{ID: "c4", AssignedInvestigatorID: "i2", Status: StatusInvestigating},
		{ID: "c5", Status: StatusActive}, // unassigned
	}
	invs := []*Investigator{
		{ID: "i1", Name: "Dr. Smith"},
		{ID: "i2", Name: "Prof. Johnson"},
		{ID: "i3", Name: "Mrs. Lee"},
	}

	out := ProjectInvestigatorStats(cases, invs)
	if out[0].ActiveCases != 2 || out[0].ResolvedCases != 1 || out[0].TotalCases != 3 {
		t.Fatalf("i1 stats = %d/%d/%d, want 2/1/3", out[0].ActiveCases, out[0].ResolvedCases, out[0].TotalCases)
	}
	// investigating counts as neither active nor resolved
	if out[1].TotalCases != 0 {
		t.Fatalf("i2 total = %d, want 0", out[1].TotalCases)
	}
	if out[2].TotalCases != 0 {
		t.Fatalf("i3 total = %d, want 0", out[2].TotalCases)
	}
}

func TestProjectInvestigatorStatsJoinsByID(t *testing.T) {
	// A renamed investigator keeps their counts: the join key is the id.
	cases := []*Case{{ID: "c1", AssignedInvestigatorID: "i1", AssignedInvestigatorName: "Dr. Smith", Status: StatusActive}}
	invs := []*Investigator{{ID: "i1", Name: "Dr. Smith-Jones"}}

	out := ProjectInvestigatorStats(cases, invs)
	if out[0].ActiveCases != 1 {
		t.Fatalf("active = %d, want 1 despite rename", out[0].ActiveCases)
	}
}
