package usecase

import (
	"cmp"
	"slices"

	"GrowthAgent/internal/domain"
)

// RankAndSelect filters candidates below minScore, orders the rest by score
// descending, earlier publication, then input position, keeps the first topK
// and assigns dense 1-based ranks. The input slice is not modified.
func RankAndSelect(candidates []domain.CuratedRecord, minScore, topK int) []domain.CuratedRecord {
	type indexed struct {
		rec   domain.CuratedRecord
		index int
	}

	kept := make([]indexed, 0, len(candidates))
	for i, c := range candidates {
		if c.Score >= minScore {
			kept = append(kept, indexed{rec: c, index: i})
		}
	}

	slices.SortFunc(kept, func(a, b indexed) int {
		if c := cmp.Compare(b.rec.Score, a.rec.Score); c != 0 {
			return c
		}
		if c := a.rec.PublishedAt.Compare(b.rec.PublishedAt); c != 0 {
			return c
		}
		return cmp.Compare(a.index, b.index)
	})

	if topK >= 0 && len(kept) > topK {
		kept = kept[:topK]
	}

	out := make([]domain.CuratedRecord, len(kept))
	for i, k := range kept {
		out[i] = k.rec
		out[i].Rank = i + 1
	}
	return out
}

// ScoreStatistics summarizes a batch of judged scores.
type ScoreStatistics struct {
	Total   int
	Average float64
	Max     int
	Min     int
	Buckets map[string]int
}

var scoreBuckets = []struct {
	name string
	low  int
}{
	{"90-100", 90},
	{"75-89", 75},
	{"60-74", 60},
	{"0-59", 0},
}

// Statistics computes totals, extremes, and score buckets.
func Statistics(records []domain.CuratedRecord) ScoreStatistics {
	stats := ScoreStatistics{Buckets: make(map[string]int, len(scoreBuckets))}
	for _, b := range scoreBuckets {
		stats.Buckets[b.name] = 0
	}
	if len(records) == 0 {
		return stats
	}

	sum := 0
	stats.Max, stats.Min = records[0].Score, records[0].Score
	for _, r := range records {
		sum += r.Score
		stats.Max = max(stats.Max, r.Score)
		stats.Min = min(stats.Min, r.Score)
		for _, b := range scoreBuckets {
			if r.Score >= b.low {
				stats.Buckets[b.name]++
				break
			}
		}
	}
	stats.Total = len(records)
	stats.Average = float64(sum) / float64(len(records))
	return stats
}
