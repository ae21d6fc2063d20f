package sheet

// Summary aggregates the outcome of a processing run.
type Summary struct {
	Total          int            `json:"total"`
	ByStatus       map[string]int `json:"by_status"`
	MeanConfidence float64        `json:"mean_confidence"`

	// Confidence histogram: >=0.9 / [0.7,0.9) / <0.7.
	HighConfidence int `json:"high_confidence"`
	MidConfidence  int `json:"mid_confidence"`
	LowConfidence  int `json:"low_confidence"`
}

// Summarize computes run statistics over the assembled result rows.
func Summarize(rows []ResultRow) Summary {
	s := Summary{
		Total:    len(rows),
		ByStatus: make(map[string]int),
	}

	var sum float64
	for _, row := range rows {
		s.ByStatus[row.Status]++
		sum += row.Confidence

		switch {
		case row.Confidence >= 0.9:
			s.HighConfidence++
		case row.Confidence >= 0.7:
			s.MidConfidence++
		default:
			s.LowConfidence++
		}
	}

	if s.Total > 0 {
		s.MeanConfidence = sum / float64(s.Total)
	}
	return s
}
