package rag

import (
	"sort"

	"github.com/nktrudik/finly-backend/internal/vectorstore"
)

// rrfK dampens the weight gap between top and tail ranks.
const rrfK = 60

// Fuse merges the dense and sparse result lists with reciprocal rank
// fusion. A point ranked r (1-based) contributes 1/(r+rrfK); scores of a
// point found in both lists are averaged. The top k fused points come back
// resolved to transactions, best first, ties broken by id so the order is
// stable.
func Fuse(dense, sparse []vectorstore.Hit, k int) []RetrievedTransaction {
	contributions := make(map[string][]float64)
	byID := make(map[string]vectorstore.Hit)

	for _, list := range [][]vectorstore.Hit{dense, sparse} {
		for rank, hit := range list {
			contributions[hit.ID] = append(contributions[hit.ID], 1.0/float64(rank+1+rrfK))
			if _, ok := byID[hit.ID]; !ok {
				byID[hit.ID] = hit
			}
		}
	}

	type scored struct {
		id    string
		score float64
	}
	fused := make([]scored, 0, len(contributions))
	for id, parts := range contributions {
		var sum float64
		for _, p := range parts {
			sum += p
		}
		fused = append(fused, scored{id: id, score: sum / float64(len(parts))})
	}

	sort.Slice(fused, func(i, j int) bool {
		if fused[i].score != fused[j].score {
			return fused[i].score > fused[j].score
		}
		return fused[i].id < fused[j].id
	})
	if len(fused) > k {
		fused = fused[:k]
	}

	out := make([]RetrievedTransaction, 0, len(fused))
	for _, s := range fused {
		hit := byID[s.id]
		out = append(out, RetrievedTransaction{
			ID:          s.id,
			Date:        payloadString(hit.Payload, "date"),
			Amount:      payloadFloat(hit.Payload, "amount"),
			Category:    payloadString(hit.Payload, "category"),
			Description: payloadString(hit.Payload, "description"),
			Score:       s.score,
		})
	}
	return out
}

func payloadString(payload map[string]any, key string) string {
	if v, ok := payload[key].(string); ok {
		return v
	}
	return ""
}

func payloadFloat(payload map[string]any, key string) float64 {
	switch v := payload[key].(type) {
	case float64:
		return v
	case int64:
		return float64(v)
	}
	return 0
}
