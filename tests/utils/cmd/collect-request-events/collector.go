package main

import (
	"encoding/json"
	"math"
	"sort"
	"strconv"
	"strings"

	"github.com/bytedance/sonic"
)

const (
	requestEventName   = "taskboard.api.request"
	requestEventDomain = "app"

	attrRoute         = "http.route"
	attrMethod        = "http.method"
	attrStatusCode    = "http.status_code"
	attrTotalMillis   = "taskboard.request.total_ms"
	attrStoreMillis   = "taskboard.request.store_ms"
	attrTasksReturned = "taskboard.request.tasks_returned"
	attrErrorStage    = "taskboard.request.error_stage"
)

type logRecord struct {
	EventName    string         `json:"event.name"`
	EventDomain  string         `json:"event.domain"`
	SeverityText string         `json:"severity_text"`
	Attributes   map[string]any `json:"attributes"`
}

type collector struct {
	eventName   string
	eventDomain string
	count       int
	severities  map[string]int
	statuses    map[int]int
	routes      map[string]*routeStats
	errorStages map[string]int
	tasks       *numericStats
	skipped     int
}

type routeStats struct {
	total  *numericStats
	store  *numericStats
	errors int
}

type numericStats struct {
	Count int
	Sum   float64
	Min   float64
	Max   float64
}

type numericSummary struct {
	Count int     `json:"count"`
	Min   float64 `json:"min"`
	Max   float64 `json:"max"`
	Avg   float64 `json:"avg"`
}

type routeSummary struct {
	Route    string         `json:"route"`
	Requests int            `json:"requests"`
	Errors   int            `json:"errors"`
	TotalMs  numericSummary `json:"total_ms"`
	StoreMs  numericSummary `json:"store_ms"`
}

type summaryOutput struct {
	EventName      string         `json:"event_name"`
	EventDomain    string         `json:"event_domain"`
	TotalEvents    int            `json:"total_events"`
	SeverityCounts map[string]int `json:"severity_counts"`
	StatusCounts   map[string]int `json:"status_counts"`
	Routes         []routeSummary `json:"routes"`
	TasksReturned  numericSummary `json:"tasks_returned"`
	ErrorStages    map[string]int `json:"error_stages,omitempty"`
	SkippedLines   int            `json:"skipped_lines"`
}

func newCollector(eventName, eventDomain string) *collector {
	return &collector{
		eventName:   eventName,
		eventDomain: eventDomain,
		severities:  make(map[string]int),
		statuses:    make(map[int]int),
		routes:      make(map[string]*routeStats),
		errorStages: make(map[string]int),
	}
}

// ingest consumes one log line. Lines prefixed by a container name and a pipe,
// as docker compose prints them, are accepted too.
func (c *collector) ingest(line string) {
	trimmed := strings.TrimSpace(line)
	if trimmed == "" {
		return
	}
	if pipe := strings.Index(trimmed, "|"); pipe >= 0 && !strings.HasPrefix(trimmed, "{") {
		trimmed = strings.TrimSpace(trimmed[pipe+1:])
	}

	rec, err := decodeRecord(trimmed)
	if err != nil {
		c.skipped++
		return
	}
	if rec.EventName != c.eventName {
		return
	}
	if c.eventDomain != "" && rec.EventDomain != c.eventDomain {
		return
	}
	c.addRecord(rec)
}

func decodeRecord(raw string) (logRecord, error) {
	var rec logRecord
	dec := sonic.ConfigStd.NewDecoder(strings.NewReader(raw))
	dec.UseNumber()
	if err := dec.Decode(&rec); err != nil {
		return logRecord{}, err
	}
	return rec, nil
}

func (c *collector) addRecord(rec logRecord) {
	c.count++

	severity := strings.ToUpper(strings.TrimSpace(rec.SeverityText))
	if severity == "" {
		severity = "UNSPECIFIED"
	}
	c.severities[severity]++

	attrs := rec.Attributes
	if attrs == nil {
		return
	}

	method, _ := asString(attrs[attrMethod])
	route, _ := asString(attrs[attrRoute])
	key := strings.TrimSpace(method + " " + route)
	if key == "" {
		key = "unknown"
	}
	rs, ok := c.routes[key]
	if !ok {
		rs = &routeStats{total: newNumericStats(), store: newNumericStats()}
		c.routes[key] = rs
	}
	if severity == "ERROR" {
		rs.errors++
	}

	if status, ok := asInt(attrs[attrStatusCode]); ok {
		c.statuses[status]++
	}
	if v, ok := asFloat(attrs[attrTotalMillis]); ok {
		rs.total.add(v)
	}
	if v, ok := asFloat(attrs[attrStoreMillis]); ok {
		rs.store.add(v)
	}
	if v, ok := asFloat(attrs[attrTasksReturned]); ok {
		if c.tasks == nil {
			c.tasks = newNumericStats()
		}
		c.tasks.add(v)
	}
	if stage, ok := asString(attrs[attrErrorStage]); ok && stage != "" {
		c.errorStages[stage]++
	}
}

func newNumericStats() *numericStats {
	return &numericStats{Min: math.MaxFloat64}
}

func (n *numericStats) add(value float64) {
	n.Count++
	n.Sum += value
	if value < n.Min {
		n.Min = value
	}
	if value > n.Max {
		n.Max = value
	}
}

func (n *numericStats) summary() numericSummary {
	if n == nil || n.Count == 0 {
		return numericSummary{}
	}
	return numericSummary{
		Count: n.Count,
		Min:   n.Min,
		Max:   n.Max,
		Avg:   n.Sum / float64(n.Count),
	}
}

func (c *collector) summary() summaryOutput {
	statusCounts := make(map[string]int, len(c.statuses))
	for status, count := range c.statuses {
		statusCounts[strconv.Itoa(status)] = count
	}

	routes := make([]routeSummary, 0, len(c.routes))
	for key, rs := range c.routes {
		routes = append(routes, routeSummary{
			Route:    key,
			Requests: rs.total.Count,
			Errors:   rs.errors,
			TotalMs:  rs.total.summary(),
			StoreMs:  rs.store.summary(),
		})
	}
	sort.Slice(routes, func(i, j int) bool { return routes[i].Route < routes[j].Route })

	var stages map[string]int
	if len(c.errorStages) > 0 {
		stages = c.errorStages
	}

	return summaryOutput{
		EventName:      c.eventName,
		EventDomain:    c.eventDomain,
		TotalEvents:    c.count,
		SeverityCounts: c.severities,
		StatusCounts:   statusCounts,
		Routes:         routes,
		TasksReturned:  c.tasks.summary(),
		ErrorStages:    stages,
		SkippedLines:   c.skipped,
	}
}

func (s summaryOutput) ShortString() string {
	var slowest string
	var slowestAvg float64
	for _, r := range s.Routes {
		if r.TotalMs.Avg > slowestAvg {
			slowest, slowestAvg = r.Route, r.TotalMs.Avg
		}
	}
	parts := []string{
		"event=" + s.EventName,
		"total=" + strconv.Itoa(s.TotalEvents),
		"info=" + strconv.Itoa(s.SeverityCounts["INFO"]),
		"warn=" + strconv.Itoa(s.SeverityCounts["WARN"]),
		"error=" + strconv.Itoa(s.SeverityCounts["ERROR"]),
		"routes=" + strconv.Itoa(len(s.Routes)),
	}
	if slowest != "" {
		parts = append(parts, "slowest="+strconv.Quote(slowest), "slowest_avg_ms="+strconv.FormatFloat(slowestAvg, 'f', 2, 64))
	}
	return strings.Join(parts, " ")
}

func asFloat(value any) (float64, bool) {
	switch v := value.(type) {
	case float64:
		return v, true
	case json.Number:
		f, err := v.Float64()
		return f, err == nil
	case int64:
		return float64(v), true
	case int:
		return float64(v), true
	case string:
		f, err := strconv.ParseFloat(v, 64)
		return f, err == nil
	default:
		return 0, false
	}
}

func asInt(value any) (int, bool) {
	switch v := value.(type) {
	case json.Number:
		i, err := v.Int64()
		return int(i), err == nil
	case float64:
		return int(v), true
	case int64:
		return int(v), true
	case int:
		return v, true
	case string:
		i, err := strconv.Atoi(v)
		return i, err == nil
	default:
		return 0, false
	}
}

func asString(value any) (string, bool) {
	switch v := value.(type) {
	case string:
		return v, true
	case json.Number:
		return v.String(), true
	default:
		return "", false
	}
}
