package analytics

import (
	"testing"
	"time"
)

func metric(path string, status int, tenant string, dur time.Duration) *RequestMetric {
	return &RequestMetric{
		Timestamp:  time.Now(),
		Method:     "GET",
		Path:       path,
		StatusCode: status,
		Duration:   dur,
		TenantID:   tenant,
	}
}

func TestTracker_Totals(t *testing.T) {
	ut := NewUsageTracker(100)
	ut.Record(metric("/api/patients", 200, "mercy_west", 10*time.Millisecond))
	ut.Record(metric("/api/patients", 200, "mercy_west", 20*time.Millisecond))
	ut.Record(metric("/api/patients", 500, "seaside", 30*time.Millisecond))

	ov := ut.GetOverview()
	if ov.TotalRequests != 3 || ov.TotalErrors != 1 {
		t.Errorf("totals = %d/%d", ov.TotalRequests, ov.TotalErrors)
	}
	if ov.UniqueTenants != 2 || ov.UniqueEndpoints != 1 {
		t.Errorf("unique = %d tenants, %d endpoints", ov.UniqueTenants, ov.UniqueEndpoints)
	}
	if ov.AvgLatency != 20*time.Millisecond {
		t.Errorf("avg latency = %v", ov.AvgLatency)
	}
}

func TestTracker_EndpointStats(t *testing.T) {
	ut := NewUsageTracker(100)
	ut.Record(metric("/api/visits", 200, "mercy_west", 10*time.Millisecond))
	ut.Record(metric("/api/visits", 404, "mercy_west", 10*time.Millisecond))

	es := ut.GetEndpointStats("/api/visits")
	if es == nil {
		t.Fatal("no stats for recorded endpoint")
	}
	if es.TotalRequests != 2 || es.ErrorRate != 0.5 {
		t.Errorf("requests=%d error_rate=%v", es.TotalRequests, es.ErrorRate)
	}
	if es.StatusBreakdown[404] != 1 {
		t.Errorf("status breakdown = %v", es.StatusBreakdown)
	}

	if ut.GetEndpointStats("/api/nothing") != nil {
		t.Error("stats returned for unrecorded endpoint")
	}
}

func TestTracker_TenantStats(t *testing.T) {
	ut := NewUsageTracker(100)
	m := metric("/api/patients", 200, "mercy_west", time.Millisecond)
	m.RequestSize = 100
	m.ResponseSize = 2000
	ut.Record(m)

	ts := ut.GetTenantStats("mercy_west")
	if ts == nil {
		t.Fatal("no stats for recorded tenant")
	}
	if ts.BytesSent != 100 || ts.BytesReceived != 2000 {
		t.Errorf("bytes = %d/%d", ts.BytesSent, ts.BytesReceived)
	}

	if ut.GetTenantStats("ghost") != nil {
		t.Error("stats returned for unknown tenant")
	}
}

func TestTracker_RingBufferWraps(t *testing.T) {
	ut := NewUsageTracker(4)
	for i := 0; i < 10; i++ {
		ut.Record(metric("/api/tasks", 200, "mercy_west", time.Millisecond))
	}

	if len(ut.metrics) != 4 {
		t.Errorf("buffer holds %d metrics, want 4", len(ut.metrics))
	}
	if got := ut.GetOverview().TotalRequests; got != 10 {
		t.Errorf("total = %d, want 10 despite wrap", got)
	}
}

func TestTracker_TopEndpoints(t *testing.T) {
	ut := NewUsageTracker(100)
	for i := 0; i < 3; i++ {
		ut.Record(metric("/api/patients", 200, "mercy_west", time.Millisecond))
	}
	ut.Record(metric("/api/tasks", 200, "mercy_west", time.Millisecond))

	top := ut.GetTopEndpoints(1)
	if len(top) != 1 || top[0].Path != "/api/patients" {
		t.Errorf("top = %+v", top)
	}
}

func TestTracker_TimeSeries(t *testing.T) {
	ut := NewUsageTracker(100)
	ut.Record(metric("/api/patients", 200, "mercy_west", 10*time.Millisecond))
	ut.Record(metric("/api/patients", 500, "mercy_west", 10*time.Millisecond))

	buckets := ut.GetTimeSeries(time.Minute, 5*time.Minute)
	if len(buckets) == 0 {
		t.Fatal("no buckets")
	}
	var requests, errors int64
	for _, b := range buckets {
		requests += b.RequestCount
		errors += b.ErrorCount
	}
	if requests != 2 || errors != 1 {
		t.Errorf("bucketed requests=%d errors=%d", requests, errors)
	}
}

func TestParseDurationParam(t *testing.T) {
	cases := []struct {
		in   string
		want time.Duration
	}{
		{"", time.Hour},
		{"5m", 5 * time.Minute},
		{"2h", 2 * time.Hour},
		{"7d", 7 * 24 * time.Hour},
		{"bogus", time.Hour},
	}
	for _, tc := range cases {
		if got := parseDurationParam(tc.in, time.Hour); got != tc.want {
			t.Errorf("parseDurationParam(%q) = %v, want %v", tc.in, got, tc.want)
		}
	}
}
