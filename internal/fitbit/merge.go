package fitbit

import "sort"

// mergeSeries unions the dates seen across all per-metric series and builds
// one MergedRecord per date, ascending. Every requested metric is a key in
// every record, nil when that metric has no value for the date. When one
// series holds several entries for the same date, the first occurrence in
// response order wins.
func mergeSeries(metricNames []string, seriesByMetric map[string][]SeriesPoint) []MergedRecord {
	dateSet := make(map[string]struct{})
	for _, points := range seriesByMetric {
		for _, point := range points {
			dateSet[point.DateTime] = struct{}{}
		}
	}

	dates := make([]string, 0, len(dateSet))
	for date := range dateSet {
		dates = append(dates, date)
	}
	sort.Strings(dates)

	merged := make([]MergedRecord, 0, len(dates))
	for _, date := range dates {
		values := make(map[string]any, len(metricNames))
		for _, metric := range metricNames {
			var value any
			for _, point := range seriesByMetric[metric] {
				if point.DateTime == date {
					value = normalizeValue(point.Value)
					break
				}
			}
			values[metric] = value
		}
		merged = append(merged, MergedRecord{Date: date, Values: values})
	}

	return merged
}
