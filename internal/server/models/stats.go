package models

// AccountStats is derived from an account's captures and never stored.
// For an empty set CaptureCount is 0 and AvgIV is 0; callers use
// CaptureCount to tell "no data" from a real zero average.
type AccountStats struct {
	CaptureCount int     `json:"capture_count"`
	AvgIV        float64 `json:"avg_iv"`
	ShinyCount   int     `json:"num_shiny"`
	HundoCount   int     `json:"num_hundos"`
	ShundoCount  int     `json:"num_shundos"`
}

// ComputeStats aggregates captures in a single pass.
func ComputeStats(captures []Capture) AccountStats {
	var st AccountStats
	var total int
	for i := range captures {
		c := &captures[i]
		st.CaptureCount++
		total += c.IV
		if c.IsShiny {
			st.ShinyCount++
		}
		if c.IsHundo() {
			st.HundoCount++
		}
		if c.IsShundo() {
			st.ShundoCount++
		}
	}
	if st.CaptureCount > 0 {
		st.AvgIV = float64(total) / float64(st.CaptureCount)
	}
	return st
}

// GroupStatsByAccount computes stats for every account id seen in captures.
// Captures without an account are skipped.
func GroupStatsByAccount(captures []Capture) map[int64]AccountStats {
	grouped := make(map[int64][]Capture)
	for _, c := range captures {
		if c.AccountID == nil {
			continue
		}
		grouped[*c.AccountID] = append(grouped[*c.AccountID], c)
	}

	out := make(map[int64]AccountStats, len(grouped))
	for id, cs := range grouped {
		out[id] = ComputeStats(cs)
	}
	return out
}
