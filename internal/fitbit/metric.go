package fitbit

import (
	"encoding/json"
	"math"
	"sort"
	"strconv"
	"strings"
)

// MetricSpec maps a canonical metric name to the provider response field
// holding its series and the endpoint path serving it. The provider exposes
// one endpoint per metric family, so there is no batching across metrics.
type MetricSpec struct {
	ResponseField string
	PathTemplate  string // expects start date and end date (YYYY-MM-DD)
}

// metricSpecs is the full set of metric names accepted by the public
// interface. Names not present here resolve to an empty series, not an
// error, so clients can request a superset of metrics across API versions.
var metricSpecs = map[string]MetricSpec{
	"steps":            {"activities-steps", "/1/user/-/activities/steps/date/%s/%s.json"},
	"distance":         {"activities-distance", "/1/user/-/activities/distance/date/%s/%s.json"},
	"calories":         {"activities-calories", "/1/user/-/activities/calories/date/%s/%s.json"},
	"minutesAsleep":    {"sleep-minutesAsleep", "/1.2/user/-/sleep/minutesAsleep/date/%s/%s.json"},
	"sleepScore":       {"sleep-score", "/1.2/user/-/sleep/score/date/%s/%s.json"},
	"restingHeartRate": {"activities-heart", "/1/user/-/activities/heart/date/%s/%s.json"},
}

// KnownMetrics returns the canonical metric names, sorted.
func KnownMetrics() []string {
	names := make([]string, 0, len(metricSpecs))
	for name := range metricSpecs {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// SeriesPoint is the provider's raw shape for one metric value on one date.
// Value is kept raw since the provider mixes strings, numbers and objects
// across metric families.
type SeriesPoint struct {
	DateTime string          `json:"dateTime"`
	Value    json.RawMessage `json:"value"`
}

// MergedRecord is one date's values across all requested metrics. It
// serializes flat: {"date": "...", "steps": 5000, "calories": null}.
type MergedRecord struct {
	Date   string
	Values map[string]any
}

func (r MergedRecord) MarshalJSON() ([]byte, error) {
	obj := make(map[string]any, len(r.Values)+1)
	obj["date"] = r.Date
	for metric, value := range r.Values {
		obj[metric] = value
	}
	return json.Marshal(obj)
}

func (r *MergedRecord) UnmarshalJSON(raw []byte) error {
	obj := make(map[string]any)
	if err := json.Unmarshal(raw, &obj); err != nil {
		return err
	}
	if date, ok := obj["date"].(string); ok {
		r.Date = date
	}
	delete(obj, "date")
	r.Values = obj
	return nil
}

// normalizeValue turns a raw provider value into int64 for whole numbers,
// float64 otherwise, or nil when the value cannot be read as a number.
func normalizeValue(raw json.RawMessage) any {
	trimmed := strings.TrimSpace(string(raw))
	if trimmed == "" || trimmed == "null" {
		return nil
	}

	var asString string
	if err := json.Unmarshal(raw, &asString); err == nil {
		parsed, err := strconv.ParseFloat(strings.TrimSpace(asString), 64)
		if err != nil {
			return nil
		}
		return intIfWhole(parsed)
	}

	var asNumber float64
	if err := json.Unmarshal(raw, &asNumber); err == nil {
		return intIfWhole(asNumber)
	}

	// objects, arrays, booleans - nothing numeric to take
	return nil
}

func intIfWhole(f float64) any {
	if f == math.Trunc(f) && !math.IsInf(f, 0) {
		return int64(f)
	}
	return f
}
