package metrics

import (
	"strings"
	"testing"
	"time"
)

func TestObserveRequestAggregatesByLabel(t *testing.T) {
	recorder := New()
	recorder.ObserveRequest("get", "/api/streams/live", 200, 5*time.Millisecond)
	recorder.ObserveRequest("GET", "/api/streams/live", 200, 7*time.Millisecond)
	recorder.ObserveRequest("GET", "/api/streams/live", 500, time.Millisecond)

	var out strings.Builder
	recorder.Write(&out)
	body := out.String()

	if !strings.Contains(body, `gbstream_http_requests_total{method="GET",path="/api/streams/live",status="200"} 2`) {
		t.Fatalf("expected aggregated 200 count, got:\n%s", body)
	}
	if !strings.Contains(body, `gbstream_http_requests_total{method="GET",path="/api/streams/live",status="500"} 1`) {
		t.Fatalf("expected 500 count, got:\n%s", body)
	}
}

func TestNormalizePathMasksIdentifiers(t *testing.T) {
	cases := []struct {
		name string
		in   string
		want string
	}{
		{name: "root", in: "/", want: "/"},
		{name: "static", in: "/api/recordings", want: "/api/recordings"},
		{name: "hex id", in: "/api/recordings/9f3a6c0d1b2e4a5f9f3a6c0d1b2e4a5f", want: "/api/recordings/:id"},
		{name: "numeric id", in: "/api/recordings/1234", want: "/api/recordings/:id"},
		{name: "trailing slash", in: "/api/recordings/", want: "/api/recordings"},
	}
	for _, tc := range cases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			if got := normalizePath(tc.in); got != tc.want {
				t.Fatalf("normalizePath(%q) = %q, want %q", tc.in, got, tc.want)
			}
		})
	}
}

func TestLiveStreamGaugeNeverNegative(t *testing.T) {
	recorder := New()
	recorder.StreamOffline()
	if got := recorder.LiveStreams(); got != 0 {
		t.Fatalf("expected gauge to stay at 0, got %d", got)
	}

	recorder.StreamLive()
	recorder.StreamLive()
	recorder.StreamOffline()
	if got := recorder.LiveStreams(); got != 1 {
		t.Fatalf("expected gauge 1, got %d", got)
	}
}

func TestPollTickAndControlCounters(t *testing.T) {
	recorder := New()
	recorder.ObservePollTick("ok")
	recorder.ObservePollTick("ok")
	recorder.ObservePollTick("skipped")
	recorder.ObserveControlAttempt("streams_status")
	recorder.ObserveControlFailure("streams_status")

	ticks := recorder.PollTickCounts()
	if ticks["ok"] != 2 || ticks["skipped"] != 1 {
		t.Fatalf("unexpected tick counts: %v", ticks)
	}

	attempts, failures := recorder.ControlCounts()
	if attempts["streams_status"] != 1 || failures["streams_status"] != 1 {
		t.Fatalf("unexpected control counts: attempts=%v failures=%v", attempts, failures)
	}

	var out strings.Builder
	recorder.Write(&out)
	if !strings.Contains(out.String(), `gbstream_poll_ticks_total{result="skipped"} 1`) {
		t.Fatalf("expected skipped tick in exposition, got:\n%s", out.String())
	}
}

func TestSetMediaServerHealth(t *testing.T) {
	recorder := New()
	recorder.SetMediaServerHealth("ok")

	var out strings.Builder
	recorder.Write(&out)
	if !strings.Contains(out.String(), `gbstream_media_server_health{status="ok"} 1.0`) {
		t.Fatalf("expected healthy gauge, got:\n%s", out.String())
	}

	recorder.SetMediaServerHealth("unreachable")
	out.Reset()
	recorder.Write(&out)
	if !strings.Contains(out.String(), `gbstream_media_server_health{status="unreachable"} -1.0`) {
		t.Fatalf("expected degraded gauge, got:\n%s", out.String())
	}
}

func TestWebhookCounters(t *testing.T) {
	recorder := New()
	recorder.ObserveWebhook("publish", "ok")
	recorder.ObserveWebhook("publish", "not_found")
	recorder.ObserveWebhook("recording", "ok")

	var out strings.Builder
	recorder.Write(&out)
	body := out.String()
	if !strings.Contains(body, `gbstream_webhook_events_total{action="publish",outcome="ok"} 1`) {
		t.Fatalf("missing publish/ok counter:\n%s", body)
	}
	if !strings.Contains(body, `gbstream_webhook_events_total{action="recording",outcome="ok"} 1`) {
		t.Fatalf("missing recording/ok counter:\n%s", body)
	}
}
