package analytics

import (
	"sort"

	"mindtrack/internal/domain"
)

// RecoveryDays is how many days after a hard session the soreness curve covers.
const RecoveryDays = 3

// TrendWindow is the number of most recent records used for trend slopes.
const TrendWindow = 7

// MetricStats summarises one rating over a window.
type MetricStats struct {
	Metric  domain.Metric `json:"metric"`
	Average float64       `json:"average"`
	Delta   float64       `json:"delta"`
	CV      float64       `json:"cv"`
}

// LoadImpact is the average next-day energy and motivation after days of one
// training load.
type LoadImpact struct {
	Load              domain.TrainingLoad `json:"load"`
	Samples           int                 `json:"samples"`
	NextDayEnergy     float64             `json:"nextDayEnergy"`
	NextDayMotivation float64             `json:"nextDayMotivation"`
}

// RecoveryPoint is the average soreness Offset days after a hard session.
type RecoveryPoint struct {
	Offset   int     `json:"offset"`
	Samples  int     `json:"samples"`
	Soreness float64 `json:"soreness"`
}

// CompetitionComparison contrasts pre-competition days with normal days.
type CompetitionComparison struct {
	PreCompetitionDays   int     `json:"preCompetitionDays"`
	NormalDays           int     `json:"normalDays"`
	PreCompetitionFocus  float64 `json:"preCompetitionFocus"`
	NormalFocus          float64 `json:"normalFocus"`
	PreCompetitionStress float64 `json:"preCompetitionStressManagement"`
	NormalStress         float64 `json:"normalStressManagement"`
}

// MetricCorrelation is the Pearson coefficient between two metrics.
type MetricCorrelation struct {
	A domain.Metric `json:"a"`
	B domain.Metric `json:"b"`
	R float64       `json:"r"`
}

// Summary is the aggregate view of one window of check-ins.
type Summary struct {
	Records          int                   `json:"records"`
	Metrics          []MetricStats         `json:"metrics"`
	LoadImpact       []LoadImpact          `json:"loadImpact"`
	RecoveryCurve    []RecoveryPoint       `json:"recoveryCurve"`
	Competition      CompetitionComparison `json:"competition"`
	Correlations     []MetricCorrelation   `json:"correlations"`
	StressTrend      float64               `json:"stressManagementTrend"`
	MotivationTrend  float64               `json:"motivationTrend"`
	ConsistencyScore float64               `json:"consistencyScore"`
}

var correlationPairs = [][2]domain.Metric{
	{domain.MetricMood, domain.MetricStressManagement},
	{domain.MetricSleepQuality, domain.MetricEnergy},
	{domain.MetricRecovery, domain.MetricMotivation},
	{domain.MetricConfidence, domain.MetricFocus},
}

// Empty returns the all-zero summary with every table row present.
func Empty() Summary {
	s := Summary{
		Metrics:       make([]MetricStats, len(domain.Metrics)),
		LoadImpact:    make([]LoadImpact, len(domain.TrainingLoads)),
		RecoveryCurve: make([]RecoveryPoint, RecoveryDays+1),
		Correlations:  make([]MetricCorrelation, len(correlationPairs)),
	}
	for i, m := range domain.Metrics {
		s.Metrics[i].Metric = m
	}
	for i, l := range domain.TrainingLoads {
		s.LoadImpact[i].Load = l
	}
	for i := range s.RecoveryCurve {
		s.RecoveryCurve[i].Offset = i
	}
	for i, p := range correlationPairs {
		s.Correlations[i].A, s.Correlations[i].B = p[0], p[1]
	}
	return s
}

// BuildSummary aggregates current and compares it against previous, the
// window of equal length immediately before it. Input order is irrelevant.
func BuildSummary(current, previous []domain.CheckIn) Summary {
	s := Empty()
	cur := byDate(current)
	if len(cur) == 0 {
		return s
	}
	prev := byDate(previous)
	s.Records = len(cur)

	var cvSum float64
	for i, m := range domain.Metrics {
		values := series(cur, m)
		st := MetricStats{Metric: m, Average: Average(values), CV: CV(values)}
		if len(prev) > 0 {
			st.Delta = st.Average - Average(series(prev, m))
		}
		s.Metrics[i] = st
		cvSum += st.CV
	}
	s.ConsistencyScore = clamp(100-100*cvSum/float64(len(domain.Metrics)), 1, 100)

	index := make(map[string]domain.CheckIn, len(cur))
	for _, c := range cur {
		index[c.Date] = c
	}

	s.LoadImpact = loadImpact(cur, index)
	s.RecoveryCurve = recoveryCurve(cur, index)
	s.Competition = competition(cur)

	for i, p := range correlationPairs {
		s.Correlations[i].R = Correlation(series(cur, p[0]), series(cur, p[1]))
	}

	recent := cur
	if len(recent) > TrendWindow {
		recent = recent[len(recent)-TrendWindow:]
	}
	s.StressTrend = Slope(series(recent, domain.MetricStressManagement))
	s.MotivationTrend = Slope(series(recent, domain.MetricMotivation))
	return s
}

func loadImpact(cur []domain.CheckIn, index map[string]domain.CheckIn) []LoadImpact {
	energy := make(map[domain.TrainingLoad][]float64)
	motivation := make(map[domain.TrainingLoad][]float64)
	for _, c := range cur {
		next, ok := index[domain.AddDays(c.Date, 1)]
		if !ok {
			continue
		}
		load := c.TrainingLoad
		if !load.Valid() {
			load = domain.TrainingNone
		}
		energy[load] = append(energy[load], float64(next.Energy))
		motivation[load] = append(motivation[load], float64(next.Motivation))
	}

	out := make([]LoadImpact, len(domain.TrainingLoads))
	for i, l := range domain.TrainingLoads {
		out[i] = LoadImpact{
			Load:              l,
			Samples:           len(energy[l]),
			NextDayEnergy:     Average(energy[l]),
			NextDayMotivation: Average(motivation[l]),
		}
	}
	return out
}

func recoveryCurve(cur []domain.CheckIn, index map[string]domain.CheckIn) []RecoveryPoint {
	buckets := make([][]float64, RecoveryDays+1)
	for _, c := range cur {
		if c.TrainingLoad != domain.TrainingHard {
			continue
		}
		for off := 0; off <= RecoveryDays; off++ {
			if d, ok := index[domain.AddDays(c.Date, off)]; ok {
				buckets[off] = append(buckets[off], float64(d.Soreness()))
			}
		}
	}

	out := make([]RecoveryPoint, RecoveryDays+1)
	for off, b := range buckets {
		out[off] = RecoveryPoint{Offset: off, Samples: len(b), Soreness: Average(b)}
	}
	return out
}

func competition(cur []domain.CheckIn) CompetitionComparison {
	var preFocus, preStress, focus, stress []float64
	for _, c := range cur {
		if c.PreCompetition {
			preFocus = append(preFocus, float64(c.Focus))
			preStress = append(preStress, float64(c.StressManagement))
			continue
		}
		focus = append(focus, float64(c.Focus))
		stress = append(stress, float64(c.StressManagement))
	}
	return CompetitionComparison{
		PreCompetitionDays:   len(preFocus),
		NormalDays:           len(focus),
		PreCompetitionFocus:  Average(preFocus),
		NormalFocus:          Average(focus),
		PreCompetitionStress: Average(preStress),
		NormalStress:         Average(stress),
	}
}

// byDate returns a copy sorted by date with one record per date; the last
// occurrence of a date wins.
func byDate(in []domain.CheckIn) []domain.CheckIn {
	seen := make(map[string]int, len(in))
	out := make([]domain.CheckIn, 0, len(in))
	for _, c := range in {
		if i, ok := seen[c.Date]; ok {
			out[i] = c
			continue
		}
		seen[c.Date] = len(out)
		out = append(out, c)
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Date < out[j].Date })
	return out
}

func series(records []domain.CheckIn, m domain.Metric) []float64 {
	out := make([]float64, len(records))
	for i, c := range records {
		out[i] = float64(c.Value(m))
	}
	return out
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
