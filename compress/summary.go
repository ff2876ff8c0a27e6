package compress

// Summary aggregates a finished batch.
type Summary struct {
	Items           int     `json:"items"`
	Failed          int     `json:"failed"`
	OriginalBytes   int     `json:"originalBytes"`
	CompressedBytes int     `json:"compressedBytes"`
	SavedBytes      int     `json:"savedBytes"`
	Ratio           float64 `json:"ratio"`
}

func Summarize(results []Result) Summary {
	var s Summary
	for _, r := range results {
		s.Items++
		if r.Failed() {
			s.Failed++
		}
		s.OriginalBytes += r.OriginalSize
		s.CompressedBytes += r.CompressedSize
	}
	s.SavedBytes = s.OriginalBytes - s.CompressedBytes
	s.Ratio = Ratio(s.OriginalBytes, s.CompressedBytes)
	return s
}
