package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"activityboard/internal/adapters/http/perf"
)

func TestTiming_RecordsBoardRequests(t *testing.T) {
	tests := []struct {
		name      string
		method    string
		path      string
		handler   http.HandlerFunc
		wantCode  int
		wantCount int64
	}{
		{"page", "GET", "/", func(w http.ResponseWriter, r *http.Request) {}, http.StatusOK, 1},
		{"implicit 200", "GET", "/board/status", func(w http.ResponseWriter, r *http.Request) { w.Write([]byte("{}")) }, http.StatusOK, 1},
		{"redirect", "POST", "/board/signup", func(w http.ResponseWriter, r *http.Request) {
			http.Redirect(w, r, "/", http.StatusSeeOther)
		}, http.StatusSeeOther, 1},
		{"not found", "GET", "/missing", http.NotFound, http.StatusNotFound, 1},
		{"static excluded", "GET", "/static/board.js", func(w http.ResponseWriter, r *http.Request) {}, http.StatusOK, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			collector := perf.NewCollector(10)
			rr := httptest.NewRecorder()

			Timing(collector, 0)(tt.handler).ServeHTTP(rr, httptest.NewRequest(tt.method, tt.path, nil))

			if rr.Code != tt.wantCode {
				t.Errorf("status = %d, want %d", rr.Code, tt.wantCode)
			}
			if got := collector.TotalRecorded(); got != tt.wantCount {
				t.Errorf("TotalRecorded = %d, want %d", got, tt.wantCount)
			}
		})
	}
}

func TestTiming_EntryKeyedByMethodAndPath(t *testing.T) {
	collector := perf.NewCollector(1)
	handler := Timing(collector, 0)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusSeeOther)
	}))

	handler.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest("POST", "/board/unregister", nil))

	snap := collector.Snapshot(time.Now().Add(-time.Minute), 10)
	if len(snap.SlowestPaths) != 1 || snap.SlowestPaths[0].Path != "POST /board/unregister" {
		t.Fatalf("SlowestPaths = %+v", snap.SlowestPaths)
	}
	if snap.SlowestPaths[0].AvgMs < 0 {
		t.Errorf("AvgMs = %v, want >= 0", snap.SlowestPaths[0].AvgMs)
	}
}

// A pooled writer must not carry the previous request's status.
func TestTiming_PooledWriterResetsStatus(t *testing.T) {
	collector := perf.NewCollector(10)
	failing := Timing(collector, 0)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	ok := Timing(collector, 0)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("ok"))
	}))

	failing.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest("GET", "/board/status", nil))
	rr := httptest.NewRecorder()
	ok.ServeHTTP(rr, httptest.NewRequest("GET", "/", nil))

	if rr.Code != http.StatusOK {
		t.Errorf("status = %d, want 200", rr.Code)
	}
}

func TestTiming_PanicStillRecorded(t *testing.T) {
	collector := perf.NewCollector(10)
	handler := Timing(collector, 0)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		panic("boom")
	}))

	defer func() {
		if recover() == nil {
			t.Fatal("expected panic to propagate")
		}
		if collector.TotalRecorded() != 1 {
			t.Errorf("TotalRecorded = %d, want 1", collector.TotalRecorded())
		}
	}()
	handler.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest("POST", "/board/reload", nil))
}

func TestTiming_NilCollectorAndSlowThreshold(t *testing.T) {
	handler := Timing(nil, time.Nanosecond)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(time.Millisecond)
	}))
	rr := httptest.NewRecorder()

	handler.ServeHTTP(rr, httptest.NewRequest("GET", "/", nil))

	if rr.Code != http.StatusOK {
		t.Errorf("status = %d, want 200", rr.Code)
	}
}

func BenchmarkTiming(b *testing.B) {
	collector := perf.NewCollector(perf.DefaultRingSize)
	handler := Timing(collector, 0)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))

	b.ReportAllocs()
	b.RunParallel(func(pb *testing.PB) {
		for pb.Next() {
			handler.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest("GET", "/board/status", nil))
		}
	})
}
