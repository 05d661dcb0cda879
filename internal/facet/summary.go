package facet

import (
	"github.com/montanaflynn/stats"

	"github.com/inodb/genefacet/internal/dataset"
)

// Summary describes the distribution of program counts over a record set.
type Summary struct {
	Genes  int
	Mean   float64
	Median float64
	Min    float64
	Max    float64
	Q25    float64
	Q75    float64
}

// Summarize computes program-count statistics. An empty record set yields a
// zero Summary.
func Summarize(records []*dataset.GeneRecord) (Summary, error) {
	s := Summary{Genes: len(records)}
	if len(records) == 0 {
		return s, nil
	}

	data := make(stats.Float64Data, len(records))
	for i, r := range records {
		data[i] = float64(r.ProgramCount)
	}

	var err error
	if s.Mean, err = data.Mean(); err != nil {
		return s, err
	}
	if s.Median, err = data.Median(); err != nil {
		return s, err
	}
	if s.Min, err = data.Min(); err != nil {
		return s, err
	}
	if s.Max, err = data.Max(); err != nil {
		return s, err
	}
	if s.Q25, err = data.Percentile(25); err != nil {
		return s, err
	}
	if s.Q75, err = data.Percentile(75); err != nil {
		return s, err
	}
	return s, nil
}
