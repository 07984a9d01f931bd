// Package main is a small terminal chat client for the fitness backend.
// It extracts metric names from the typed prompt with a keyword table,
// fetches the merged records from /activity-range and prints a plain
// language summary per date. No LLM involved, the MCP server (cmd/fitbit_mcp
// or the /mcp mount) is the smarter front-end.
package main

import (
	"bufio"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"net/url"
	"os"
	"sort"
	"strings"

	"github.com/pcilli/fitbit-mcp-server/internal/fitbit"

	"github.com/hashicorp/go-retryablehttp"
)

// keywordToMetric maps lowercase, space-stripped prompt keywords to
// canonical metric names.
var keywordToMetric = map[string]string{
	"steps":            "steps",
	"distance":         "distance",
	"calories":         "calories",
	"restingheartrate": "restingHeartRate",
	"heartrate":        "restingHeartRate",
	"sleep":            "minutesAsleep",
	"minutesslept":     "minutesAsleep",
	"sleepminutes":     "minutesAsleep",
	"sleepscore":       "sleepScore",
}

func main() {
	backendURL := flag.String("backend", "http://localhost:8080", "backend base URL")
	userID := flag.String("user", os.Getenv("FITBIT_USER_ID"), "fitbit user id (or FITBIT_USER_ID env var)")
	startDate := flag.String("start", "2022-01-01", "start date (YYYY-MM-DD)")
	endDate := flag.String("end", "2022-01-01", "end date (YYYY-MM-DD)")
	flag.Parse()

	if *userID == "" {
		fmt.Println("no user id given, use -user or FITBIT_USER_ID")
		os.Exit(1)
	}

	httpClient := retryablehttp.NewClient()
	httpClient.RetryMax = 3
	httpClient.Logger = nil

	fmt.Printf("chatting as fitbit user [%s], range %s .. %s\n", *userID, *startDate, *endDate)
	fmt.Println("e.g. 'show me steps and sleep score' (ctrl-d to quit)")

	scanner := bufio.NewScanner(os.Stdin)
	for {
		fmt.Print("> ")
		if !scanner.Scan() {
			break
		}

		metricNames := extractMetrics(scanner.Text())
		if len(metricNames) == 0 {
			fmt.Println("no known metrics in that, try: steps, distance, calories, sleep, sleep score, heart rate")
			continue
		}

		records, err := fetchActivityRange(httpClient, *backendURL, *userID, metricNames, *startDate, *endDate)
		if err != nil {
			fmt.Printf("fetch failed: %s\n", err)
			continue
		}

		printSummary(records, metricNames)
	}
}

func extractMetrics(prompt string) []string {
	squashed := strings.ReplaceAll(strings.ToLower(prompt), " ", "")
	found := map[string]struct{}{}
	for keyword, metric := range keywordToMetric {
		if strings.Contains(squashed, keyword) {
			found[metric] = struct{}{}
		}
	}

	metricNames := make([]string, 0, len(found))
	for m := range found {
		metricNames = append(metricNames, m)
	}
	sort.Strings(metricNames)
	return metricNames
}

func fetchActivityRange(
	httpClient *retryablehttp.Client,
	backendURL, userID string,
	metricNames []string,
	startDate, endDate string,
) ([]fitbit.MergedRecord, error) {
	params := url.Values{}
	params.Set("user_id", userID)
	params.Set("metrics", strings.Join(metricNames, ","))
	params.Set("start_date", startDate)
	params.Set("end_date", endDate)

	resp, err := httpClient.Get(backendURL + "/activity-range?" + params.Encode())
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}

	if resp.StatusCode != 200 {
		return nil, fmt.Errorf("backend error: %d - %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}

	var records []fitbit.MergedRecord
	if err := json.Unmarshal(body, &records); err != nil {
		return nil, fmt.Errorf("unmarshal records: %w", err)
	}
	return records, nil
}

func printSummary(records []fitbit.MergedRecord, metricNames []string) {
	if len(records) == 0 {
		fmt.Println("no data for that range")
		return
	}
	for _, record := range records {
		parts := make([]string, 0, len(metricNames))
		for _, m := range metricNames {
			value, ok := record.Values[m]
			if !ok || value == nil {
				parts = append(parts, fmt.Sprintf("%s: no data", m))
				continue
			}
			parts = append(parts, fmt.Sprintf("%s: %v", m, value))
		}
		fmt.Printf("%s -> %s\n", record.Date, strings.Join(parts, ", "))
	}
}
