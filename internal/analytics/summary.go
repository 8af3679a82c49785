package analytics

import (
	"reflect"
	"sort"
	"strconv"

	"formpulse/internal/model"
)

// Bucket is one bar of a distribution chart.
type Bucket struct {
	Label string `json:"label"`
	Count int    `json:"count"`
}

// QuestionSummary aggregates the answers given to one question.
type QuestionSummary struct {
	QuestionID   string             `json:"questionId"`
	Label        string             `json:"label"`
	Kind         model.QuestionKind `json:"kind"`
	Answered     int                `json:"answered"`
	Distribution []Bucket           `json:"distribution,omitempty"`
	Average      *float64           `json:"average,omitempty"`
}

// Summary is the chart data for a survey's responses.
type Summary struct {
	Total     int               `json:"total"`
	PerDay    []Bucket          `json:"perDay"`
	Questions []QuestionSummary `json:"questions"`
}

// Summarize counts answers per question. Choice kinds get one bucket per
// option, in option order, followed by any answer values not among the
// options. Rating and scale kinds get one bucket per value and an average.
func Summarize(questions []model.Question, responses []model.ResponseRecord) Summary {
	s := Summary{
		Total:     len(responses),
		PerDay:    perDay(responses),
		Questions: make([]QuestionSummary, 0, len(questions)),
	}
	for _, q := range questions {
		s.Questions = append(s.Questions, summarizeQuestion(q, responses))
	}
	return s
}

func summarizeQuestion(q model.Question, responses []model.ResponseRecord) QuestionSummary {
	qs := QuestionSummary{QuestionID: q.ID, Label: q.Label(), Kind: q.Kind}
	counts := map[string]int{}
	var order []string
	bump := func(label string) {
		if _, seen := counts[label]; !seen {
			order = append(order, label)
		}
		counts[label]++
	}

	if model.OptionsRequired(q.Kind) {
		for _, opt := range q.Options {
			counts[opt] = 0
			order = append(order, opt)
		}
	}

	var sum float64
	var numeric int
	for i := range responses {
		a, ok := responses[i].AnswerFor(q.ID)
		if !ok || model.IsAnswerableEmpty(q.Kind, a.Value) {
			continue
		}
		qs.Answered++

		switch q.Kind {
		case model.KindSingleChoice, model.KindDropdown, model.KindMultiChoice:
			for _, v := range values(a.Value) {
				bump(Cell(v))
			}
		case model.KindRating, model.KindLinearScale:
			label := Cell(a.Value)
			bump(label)
			if f, err := strconv.ParseFloat(label, 64); err == nil {
				sum += f
				numeric++
			}
		}
	}

	for _, label := range order {
		qs.Distribution = append(qs.Distribution, Bucket{Label: label, Count: counts[label]})
	}
	if q.Kind == model.KindRating || q.Kind == model.KindLinearScale {
		sortNumeric(qs.Distribution)
		if numeric > 0 {
			avg := sum / float64(numeric)
			qs.Average = &avg
		}
	}
	return qs
}

// values flattens a multi-value answer into its elements.
func values(v any) []any {
	rv := reflect.ValueOf(v)
	if rv.Kind() != reflect.Slice && rv.Kind() != reflect.Array {
		return []any{v}
	}
	out := make([]any, rv.Len())
	for i := range out {
		out[i] = rv.Index(i).Interface()
	}
	return out
}

func sortNumeric(buckets []Bucket) {
	sort.SliceStable(buckets, func(i, j int) bool {
		a, errA := strconv.ParseFloat(buckets[i].Label, 64)
		b, errB := strconv.ParseFloat(buckets[j].Label, 64)
		if errA != nil || errB != nil {
			return errA == nil && errB != nil
		}
		return a < b
	})
}

func perDay(responses []model.ResponseRecord) []Bucket {
	counts := map[string]int{}
	for i := range responses {
		counts[responses[i].SubmittedAt.UTC().Format("2006-01-02")]++
	}
	days := make([]string, 0, len(counts))
	for d := range counts {
		days = append(days, d)
	}
	sort.Strings(days)
	out := make([]Bucket, 0, len(days))
	for _, d := range days {
		out = append(out, Bucket{Label: d, Count: counts[d]})
	}
	return out
}
