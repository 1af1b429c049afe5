// Command shadow_compare replays report requests against the legacy service and
// the Go service and prints field-level differences between the two envelopes.
// Monthly series are matched by month label so a shifted or missing month is
// reported as such instead of as a whole-array mismatch.
package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"log"
	"net/http"
	"os"
	"path/filepath"
	"reflect"
	"sort"
	"strings"
	"time"

	"github.com/goccy/go-json"
)

// volatileKeys differ between two services generating the same report and are never compared.
var volatileKeys = []string{"report_id", "parent_report_id", "generated_at", "creation_date"}

// seriesKeys hold per-month rows carrying a "month" label.
var seriesKeys = map[string]struct{}{"monthly_stats": {}, "monthly_metrics": {}}

type target struct {
	Path     string   `json:"path"`
	Critical bool     `json:"critical"`
	Ignore   []string `json:"ignore"`
}

type envelope struct {
	Success    bool                   `json:"success"`
	ReportType string                 `json:"report_type"`
	Message    string                 `json:"message"`
	Data       map[string]interface{} `json:"data"`
}

type outcome struct {
	target       target
	legacyStatus int
	goStatus     int
	diffs        []string
	err          error
}

func (o outcome) failed() bool {
	return o.err != nil || o.legacyStatus != o.goStatus || len(o.diffs) > 0
}

func main() {
	goBase := flag.String("go-base", "http://localhost:8080", "Go report API base URL")
	legacyBase := flag.String("legacy-base", "http://localhost:5000", "legacy report API base URL")
	targetsPath := flag.String("targets", filepath.Join("scripts", "shadow_compare", "targets.json"), "JSON targets file")
	timeout := flag.Duration("timeout", 10*time.Second, "per-request timeout")
	flag.Parse()

	targets, err := loadTargets(*targetsPath)
	if err != nil {
		log.Fatalf("load targets: %v", err)
	}

	client := &http.Client{Timeout: *timeout}
	breaking := 0
	for _, t := range targets {
		out := replay(context.Background(), client, *legacyBase, *goBase, t)
		printOutcome(out)
		if out.failed() && t.Critical {
			breaking++
		}
	}

	fmt.Printf("%d target(s), %d breaking\n", len(targets), breaking)
	if breaking > 0 {
		os.Exit(1)
	}
}

func loadTargets(path string) ([]target, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var cfg struct {
		Targets []target `json:"targets"`
	}
	if err := json.Unmarshal(raw, &cfg); err != nil {
		return nil, fmt.Errorf("decode %s: %w", path, err)
	}
	if len(cfg.Targets) == 0 {
		return nil, fmt.Errorf("no targets defined in %s", path)
	}
	return cfg.Targets, nil
}

func replay(ctx context.Context, client *http.Client, legacyBase, goBase string, t target) outcome {
	out := outcome{target: t}
	var legacy, got envelope
	out.legacyStatus, legacy, out.err = fetch(ctx, client, legacyBase, t.Path)
	if out.err != nil {
		out.err = fmt.Errorf("legacy: %w", out.err)
		return out
	}
	out.goStatus, got, out.err = fetch(ctx, client, goBase, t.Path)
	if out.err != nil {
		out.err = fmt.Errorf("go: %w", out.err)
		return out
	}
	out.diffs = compareEnvelopes(legacy, got, skipSet(t.Ignore))
	return out
}

func fetch(ctx context.Context, client *http.Client, base, path string) (int, envelope, error) {
	url := strings.TrimRight(base, "/") + "/" + strings.TrimLeft(path, "/")
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return 0, envelope{}, err
	}
	resp, err := client.Do(req)
	if err != nil {
		return 0, envelope{}, err
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return resp.StatusCode, envelope{}, fmt.Errorf("read body: %w", err)
	}
	var env envelope
	if err := json.Unmarshal(raw, &env); err != nil {
		return resp.StatusCode, envelope{}, fmt.Errorf("decode envelope: %w", err)
	}
	return resp.StatusCode, env, nil
}

func skipSet(extra []string) map[string]struct{} {
	skip := make(map[string]struct{}, len(volatileKeys)+len(extra))
	for _, key := range append(append([]string{}, volatileKeys...), extra...) {
		skip[key] = struct{}{}
	}
	return skip
}

// compareEnvelopes lists every difference between two report envelopes as "path: legacy=.. go=..".
func compareEnvelopes(legacy, got envelope, skip map[string]struct{}) []string {
	var diffs []string
	if legacy.Success != got.Success {
		diffs = append(diffs, fmt.Sprintf("success: legacy=%t go=%t", legacy.Success, got.Success))
	}
	if legacy.ReportType != got.ReportType {
		diffs = append(diffs, fmt.Sprintf("report_type: legacy=%q go=%q", legacy.ReportType, got.ReportType))
	}
	if legacy.Message != got.Message {
		diffs = append(diffs, fmt.Sprintf("message: legacy=%q go=%q", legacy.Message, got.Message))
	}

	for _, key := range unionKeys(legacy.Data, got.Data) {
		if _, ok := skip[key]; ok {
			continue
		}
		if _, ok := seriesKeys[key]; ok {
			diffs = append(diffs, diffSeries("data."+key, legacy.Data[key], got.Data[key], skip)...)
			continue
		}
		diffs = append(diffs, diffValue("data."+key, legacy.Data[key], got.Data[key], skip)...)
	}
	return diffs
}

func diffSeries(path string, legacy, got interface{}, skip map[string]struct{}) []string {
	lm, lorder := byMonth(legacy)
	gm, gorder := byMonth(got)
	if lm == nil || gm == nil {
		return diffValue(path, legacy, got, skip)
	}

	var diffs []string
	if !reflect.DeepEqual(lorder, gorder) {
		diffs = append(diffs, fmt.Sprintf("%s months: legacy=%v go=%v", path, lorder, gorder))
	}
	for _, label := range lorder {
		row, ok := gm[label]
		if !ok {
			continue
		}
		diffs = append(diffs, diffValue(path+"["+label+"]", lm[label], row, skip)...)
	}
	return diffs
}

// byMonth indexes a series by its month label; nil when v is not such a series.
func byMonth(v interface{}) (map[string]interface{}, []string) {
	rows, ok := v.([]interface{})
	if !ok {
		return nil, nil
	}
	index := make(map[string]interface{}, len(rows))
	order := make([]string, 0, len(rows))
	for _, row := range rows {
		fields, ok := row.(map[string]interface{})
		if !ok {
			return nil, nil
		}
		label, ok := fields["month"].(string)
		if !ok {
			return nil, nil
		}
		index[label] = fields
		order = append(order, label)
	}
	return index, order
}

func diffValue(path string, legacy, got interface{}, skip map[string]struct{}) []string {
	lmap, lok := legacy.(map[string]interface{})
	gmap, gok := got.(map[string]interface{})
	if lok && gok {
		var diffs []string
		for _, key := range unionKeys(lmap, gmap) {
			if _, ok := skip[key]; ok {
				continue
			}
			diffs = append(diffs, diffValue(path+"."+key, lmap[key], gmap[key], skip)...)
		}
		return diffs
	}

	legacy, got = normalize(legacy, skip), normalize(got, skip)
	if reflect.DeepEqual(legacy, got) {
		return nil
	}
	return []string{fmt.Sprintf("%s: legacy=%v go=%v", path, legacy, got)}
}

// normalize drops skipped keys at any depth and folds integral floats so 3 and 3.0 compare equal.
func normalize(v interface{}, skip map[string]struct{}) interface{} {
	switch val := v.(type) {
	case map[string]interface{}:
		out := make(map[string]interface{}, len(val))
		for k, inner := range val {
			if _, ok := skip[k]; !ok {
				out[k] = normalize(inner, skip)
			}
		}
		return out
	case []interface{}:
		out := make([]interface{}, len(val))
		for i, inner := range val {
			out[i] = normalize(inner, skip)
		}
		return out
	case float64:
		if val == float64(int64(val)) {
			return int64(val)
		}
	}
	return v
}

func unionKeys(a, b map[string]interface{}) []string {
	keys := make([]string, 0, len(a)+len(b))
	for k := range a {
		keys = append(keys, k)
	}
	for k := range b {
		if _, ok := a[k]; !ok {
			keys = append(keys, k)
		}
	}
	sort.Strings(keys)
	return keys
}

func printOutcome(o outcome) {
	status := "OK"
	if o.failed() {
		status = "DIFF"
	}
	if o.err != nil {
		status = "ERROR"
	}
	fmt.Printf("[%s] GET %s (legacy %d, go %d, critical=%t)\n", status, o.target.Path, o.legacyStatus, o.goStatus, o.target.Critical)
	if o.err != nil {
		fmt.Printf("  %v\n", o.err)
	}
	for _, d := range o.diffs {
		fmt.Printf("  %s\n", d)
	}
}
