package council

import "testing"

func critique(id string, ranking ...string) Stage2Critique {
	return Stage2Critique{Participant: id, RawText: "critique", ParsedRanking: ranking}
}

func TestUnanimousFirstPlaceAveragesToOne(t *testing.T) {
	stage1 := stage1Fixture("p1", "p2", "p3")
	labels := AssignLabels(stage1)
	declared := []string{"p1", "p2", "p3"}
	critiques := []Stage2Critique{
		critique("p2", "Response A", "Response C"),
		critique("p3", "Response A", "Response B"),
	}
	got := AggregateRankings(critiques, labels, declared)
	if got[0].Participant != "p1" {
		t.Fatalf("expected p1 first, got %s", got[0].Participant)
	}
	if got[0].AverageRank == nil || *got[0].AverageRank != 1.0 {
		t.Fatalf("expected average exactly 1.0, got %v", got[0].AverageRank)
	}
	if got[0].RankingsCount != 2 {
		t.Fatalf("expected 2 votes, got %d", got[0].RankingsCount)
	}
}

func TestThreeWaySelfExcludedScenario(t *testing.T) {
	// Three participants, each ranking the other two: every candidate
	// is averaged over exactly two data points.
	stage1 := stage1Fixture("p1", "p2", "p3")
	labels := AssignLabels(stage1)
	declared := []string{"p1", "p2", "p3"}
	critiques := []Stage2Critique{
		critique("p1", "Response B", "Response C"), // p2=1, p3=2
		critique("p2", "Response A", "Response C"), // p1=1, p3=2
		critique("p3", "Response B", "Response A"), // p2=1, p1=2
	}
	got := AggregateRankings(critiques, labels, declared)
	for _, agg := range got {
		if agg.RankingsCount != 2 {
			t.Fatalf("%s: expected 2 votes, got %d", agg.Participant, agg.RankingsCount)
		}
	}
	// p2 averages 1.0, p1 averages 1.5, p3 averages 2.0.
	if got[0].Participant != "p2" || got[1].Participant != "p1" || got[2].Participant != "p3" {
		t.Fatalf("unexpected order: %s, %s, %s", got[0].Participant, got[1].Participant, got[2].Participant)
	}
}

func TestTiesBreakByDeclaredOrder(t *testing.T) {
	stage1 := stage1Fixture("p1", "p2")
	labels := AssignLabels(stage1)
	declared := []string{"p1", "p2"}
	critiques := []Stage2Critique{
		critique("v1", "Response A"),
		critique("v2", "Response B"),
	}
	got := AggregateRankings(critiques, labels, declared)
	if got[0].Participant != "p1" || got[1].Participant != "p2" {
		t.Fatalf("tie should break by declared order, got %s then %s", got[0].Participant, got[1].Participant)
	}
}

func TestUnrankedCandidateIsNotInterleaved(t *testing.T) {
	stage1 := stage1Fixture("p1", "p2", "p3")
	labels := AssignLabels(stage1)
	declared := []string{"p1", "p2", "p3"}
	critiques := []Stage2Critique{
		// Nobody mentions p1 (Response A), and p1's average would have
		// beaten p3's if it were scored as zero.
		critique("p2", "Response C"),
		critique("p3", "Response C"),
	}
	got := AggregateRankings(critiques, labels, declared)
	if got[0].Participant != "p3" {
		t.Fatalf("expected scored candidate first, got %s", got[0].Participant)
	}
	last := got[len(got)-2:]
	for _, agg := range last {
		if agg.AverageRank != nil || agg.RankingsCount != 0 {
			t.Fatalf("unranked candidate %s should carry no average, got %+v", agg.Participant, agg)
		}
	}
}

func TestEmptyCritiquesYieldOnlyUnscoredEntries(t *testing.T) {
	stage1 := stage1Fixture("p1", "p2")
	labels := AssignLabels(stage1)
	got := AggregateRankings(nil, labels, []string{"p1", "p2"})
	if len(got) != 2 {
		t.Fatalf("expected every candidate reported, got %d", len(got))
	}
	for _, agg := range got {
		if agg.AverageRank != nil {
			t.Fatalf("expected no averages, got %+v", agg)
		}
	}
}

func TestDanglingLabelsAreSkipped(t *testing.T) {
	stage1 := stage1Fixture("p1")
	labels := AssignLabels(stage1)
	critiques := []Stage2Critique{critique("v1", "Response Q", "Response A")}
	got := AggregateRankings(critiques, labels, []string{"p1"})
	if len(got) != 1 {
		t.Fatalf("expected 1 entry, got %d", len(got))
	}
	// "Response Q" does not resolve; p1 keeps only the valid vote at
	// position 2.
	if got[0].AverageRank == nil || *got[0].AverageRank != 2.0 {
		t.Fatalf("expected average 2.0, got %v", got[0].AverageRank)
	}
}
