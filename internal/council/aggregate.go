package council

import "sort"

// AggregateRankings reduces every parsed critique into one summary per
// stage-one candidate. For each candidate it averages the 1-based
// position assigned by every voter that mentioned it; lower is better.
// Scored candidates sort ascending by average with declared order as
// the deterministic tie-break. Candidates no voter mentioned carry no
// average and follow the scored ones, still in declared order. Labels
// that do not resolve through the map are skipped, so no dangling
// reference survives into the result.
func AggregateRankings(critiques []Stage2Critique, labels LabelMap, declared []string) []AggregateRanking {
	sums := make(map[string]float64, len(declared))
	counts := make(map[string]int, len(declared))
	for _, critique := range critiques {
		for pos, label := range critique.ParsedRanking {
			participant, ok := labels.Participant(label)
			if !ok {
				continue
			}
			sums[participant] += float64(pos + 1)
			counts[participant]++
		}
	}

	index := make(map[string]int, len(declared))
	for i, id := range declared {
		index[id] = i
	}

	scored := make([]AggregateRanking, 0, len(declared))
	unscored := make([]AggregateRanking, 0)
	for _, id := range declared {
		n := counts[id]
		if n == 0 {
			unscored = append(unscored, AggregateRanking{Participant: id})
			continue
		}
		avg := sums[id] / float64(n)
		scored = append(scored, AggregateRanking{Participant: id, AverageRank: &avg, RankingsCount: n})
	}
	sort.SliceStable(scored, func(i, j int) bool {
		a, b := *scored[i].AverageRank, *scored[j].AverageRank
		if a != b {
			return a < b
		}
		return index[scored[i].Participant] < index[scored[j].Participant]
	})
	return append(scored, unscored...)
}
