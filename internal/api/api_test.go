package api

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"InvestDash/internal/collector"
	"InvestDash/internal/dashboard"
	"InvestDash/internal/metrics"
	"InvestDash/internal/model"
	"InvestDash/internal/store"
	"InvestDash/internal/strategy"

	"github.com/gorilla/websocket"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog"
)

type testAPI struct {
	srv   *Server
	store *store.Store
	hub   *Hub
	mock  *collector.MockFetcher
}

func newTestAPI(t *testing.T) *testAPI {
	t.Helper()
	hub := NewHub(zerolog.Nop())
	reg := prometheus.NewRegistry()
	rec := metrics.New(reg)

	st, err := store.New(t.TempDir(), store.WithObserver(hub), store.WithObserver(rec))
	if err != nil {
		t.Fatalf("store: %v", err)
	}
	mock := &collector.MockFetcher{Bars: map[string][]model.OHLCV{}}
	col := collector.New(mock, collector.Options{HistoryDays: 30})
	svc := dashboard.NewService(st, col, strategy.NewEntryRule(nil), strategy.DefaultBreadthPolicy)

	h := NewHandler(st, svc, nil, hub, zerolog.Nop())
	srv := NewServer(h, WithMetrics(rec, reg))
	t.Cleanup(hub.Close)
	return &testAPI{srv: srv, store: st, hub: hub, mock: mock}
}

func (a *testAPI) do(t *testing.T, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, path, nil)
	} else {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	}
	rec := httptest.NewRecorder()
	a.srv.Echo().ServeHTTP(rec, req)
	return rec
}

func decode(t *testing.T, rec *httptest.ResponseRecorder, v any) {
	t.Helper()
	if err := json.Unmarshal(rec.Body.Bytes(), v); err != nil {
		t.Fatalf("decode %q: %v", rec.Body.String(), err)
	}
}

func errorCode(t *testing.T, rec *httptest.ResponseRecorder) string {
	t.Helper()
	var env errorEnvelope
	decode(t, rec, &env)
	return env.Error.Code
}

func TestBucketEndpoints(t *testing.T) {
	a := newTestAPI(t)

	tests := []struct {
		name       string
		method     string
		path       string
		body       string
		wantStatus int
		wantCode   string
	}{
		{"create", http.MethodPost, "/buckets", `{"name":"core"}`, http.StatusCreated, ""},
		{"create other", http.MethodPost, "/buckets", `{"name":"satellite"}`, http.StatusCreated, ""},
		{"duplicate", http.MethodPost, "/buckets", `{"name":"core"}`, http.StatusConflict, "DUPLICATE_BUCKET"},
		{"blank", http.MethodPost, "/buckets", `{"name":""}`, http.StatusBadRequest, "INVALID_INPUT"},
		{"whitespace", http.MethodPost, "/buckets", `{"name":"   "}`, http.StatusBadRequest, "INVALID_INPUT"},
		{"malformed json", http.MethodPost, "/buckets", `{"name":`, http.StatusBadRequest, "INVALID_INPUT"},
		{"rename missing", http.MethodPatch, "/buckets/rename", `{"old":"nope","new":"x"}`, http.StatusNotFound, "NOT_FOUND"},
		{"rename onto existing", http.MethodPatch, "/buckets/rename", `{"old":"core","new":"satellite"}`, http.StatusConflict, "DUPLICATE_BUCKET"},
		{"rename to itself", http.MethodPatch, "/buckets/rename", `{"old":"core","new":"core"}`, http.StatusOK, ""},
		{"rename", http.MethodPatch, "/buckets/rename", `{"old":"satellite","new":"growth"}`, http.StatusOK, ""},
		{"delete missing", http.MethodDelete, "/buckets/satellite", "", http.StatusNotFound, "NOT_FOUND"},
		{"delete", http.MethodDelete, "/buckets/growth", "", http.StatusOK, ""},
	}
	for _, tt := range tests {
		rec := a.do(t, tt.method, tt.path, tt.body)
		if rec.Code != tt.wantStatus {
			t.Errorf("%s: status = %d, want %d (%s)", tt.name, rec.Code, tt.wantStatus, rec.Body.String())
			continue
		}
		if tt.wantCode != "" {
			if got := errorCode(t, rec); got != tt.wantCode {
				t.Errorf("%s: code = %s, want %s", tt.name, got, tt.wantCode)
			}
		}
	}

	rec := a.do(t, http.MethodGet, "/buckets", "")
	var got struct {
		Buckets map[string][]string `json:"buckets"`
	}
	decode(t, rec, &got)
	if len(got.Buckets) != 1 || got.Buckets["core"] == nil {
		t.Errorf("buckets = %v, want only core", got.Buckets)
	}
}

func TestValidationErrorFields(t *testing.T) {
	a := newTestAPI(t)
	rec := a.do(t, http.MethodPost, "/tickers", `{"symbol":"","type":"bond"}`)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d", rec.Code)
	}
	var env errorEnvelope
	decode(t, rec, &env)
	fields := map[string]string{}
	for _, f := range env.Error.Fields {
		fields[f.Field] = f.Code
	}
	if fields["symbol"] != "ERR_REQUIRED" || fields["type"] != "ERR_ONEOF" {
		t.Errorf("fields = %+v", env.Error.Fields)
	}
}

func TestTickerEndpoints(t *testing.T) {
	a := newTestAPI(t)
	if rec := a.do(t, http.MethodPost, "/buckets", `{"name":"core"}`); rec.Code != http.StatusCreated {
		t.Fatalf("create bucket: %d", rec.Code)
	}

	rec := a.do(t, http.MethodPost, "/tickers", `{"symbol":" aapl ","bucket":"core"}`)
	if rec.Code != http.StatusCreated {
		t.Fatalf("add: %d %s", rec.Code, rec.Body.String())
	}
	var added struct {
		OK     bool   `json:"ok"`
		Symbol string `json:"symbol"`
	}
	decode(t, rec, &added)
	if !added.OK || added.Symbol != "AAPL" {
		t.Errorf("add response = %+v", added)
	}

	checks := []struct {
		name       string
		method     string
		path       string
		body       string
		wantStatus int
		wantCode   string
	}{
		{"duplicate", http.MethodPost, "/tickers", `{"symbol":"AAPL"}`, http.StatusConflict, "DUPLICATE_TICKER"},
		{"unknown bucket", http.MethodPost, "/tickers", `{"symbol":"MSFT","bucket":"nope"}`, http.StatusNotFound, "NOT_FOUND"},
		{"bad symbol", http.MethodPost, "/tickers", `{"symbol":"AA PL"}`, http.StatusBadRequest, "INVALID_INPUT"},
		{"index", http.MethodPost, "/tickers", `{"symbol":"^GSPC"}`, http.StatusCreated, ""},
		{"move unknown ticker", http.MethodPost, "/tickers/move", `{"symbol":"ZZZ","bucket":"core"}`, http.StatusNotFound, "NOT_FOUND"},
		{"move unknown bucket", http.MethodPost, "/tickers/move", `{"symbol":"AAPL","bucket":"nope"}`, http.StatusNotFound, "NOT_FOUND"},
		{"move", http.MethodPost, "/tickers/move", `{"symbol":"^GSPC","bucket":"core"}`, http.StatusOK, ""},
		{"unassign", http.MethodPost, "/tickers/move", `{"symbol":"aapl"}`, http.StatusOK, ""},
		{"remove escaped", http.MethodDelete, "/tickers/%5EGSPC", "", http.StatusOK, ""},
		{"remove missing", http.MethodDelete, "/tickers/%5EGSPC", "", http.StatusNotFound, "NOT_FOUND"},
	}
	for _, tt := range checks {
		rec := a.do(t, tt.method, tt.path, tt.body)
		if rec.Code != tt.wantStatus {
			t.Errorf("%s: status = %d, want %d (%s)", tt.name, rec.Code, tt.wantStatus, rec.Body.String())
			continue
		}
		if tt.wantCode != "" {
			if got := errorCode(t, rec); got != tt.wantCode {
				t.Errorf("%s: code = %s, want %s", tt.name, got, tt.wantCode)
			}
		}
	}

	rec = a.do(t, http.MethodGet, "/tickers", "")
	var list struct {
		Tickers []struct {
			Symbol string  `json:"symbol"`
			Bucket *string `json:"bucket"`
		} `json:"tickers"`
	}
	decode(t, rec, &list)
	if len(list.Tickers) != 1 || list.Tickers[0].Symbol != "AAPL" || list.Tickers[0].Bucket != nil {
		t.Errorf("tickers = %+v, want AAPL unassigned", list.Tickers)
	}
	if !strings.Contains(rec.Body.String(), `"bucket":null`) {
		t.Errorf("unassigned bucket should serialize as null: %s", rec.Body.String())
	}
}

func TestSignalsEndpoint(t *testing.T) {
	a := newTestAPI(t)
	a.mock.Errors = map[string]error{"BAD": errTest("upstream down")}
	for _, s := range []string{"GOOD", "BAD"} {
		if _, err := a.store.AddTicker(s, "", ""); err != nil {
			t.Fatal(err)
		}
	}

	rec := a.do(t, http.MethodGet, "/signals?include_analyst=false", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	var got struct {
		Signals []model.SignalRow `json:"signals"`
		AsOf    time.Time         `json:"as_of"`
	}
	decode(t, rec, &got)
	if len(got.Signals) != 2 || got.AsOf.IsZero() {
		t.Fatalf("signals = %+v", got)
	}
	for _, row := range got.Signals {
		switch row.Symbol {
		case "BAD":
			if row.DataError == nil || row.Close != nil {
				t.Errorf("BAD row = %+v", row)
			}
		case "GOOD":
			if row.Close == nil || row.SMA200 != nil {
				t.Errorf("GOOD row = %+v", row)
			}
		}
	}

	if rec := a.do(t, http.MethodGet, "/signals?include_analyst=maybe", ""); rec.Code != http.StatusBadRequest {
		t.Errorf("bad flag: status = %d", rec.Code)
	}
}

type errTest string

func (e errTest) Error() string { return string(e) }

func TestBreadthEndpoints(t *testing.T) {
	a := newTestAPI(t)

	rec := a.do(t, http.MethodGet, "/breadth", "")
	if rec.Code != http.StatusOK || !strings.Contains(rec.Body.String(), `"risk_on":null`) {
		t.Errorf("empty breadth = %d %s", rec.Code, rec.Body.String())
	}

	rec = a.do(t, http.MethodGet, "/breadth/history", "")
	if rec.Code != http.StatusOK || strings.TrimSpace(rec.Body.String()) != `{"history":[]}` {
		t.Errorf("history = %d %s", rec.Code, rec.Body.String())
	}
	if rec := a.do(t, http.MethodGet, "/breadth/history?limit=501", ""); rec.Code != http.StatusBadRequest {
		t.Errorf("limit above range: status = %d", rec.Code)
	}
	if rec := a.do(t, http.MethodGet, "/breadth/history?limit=abc", ""); rec.Code != http.StatusBadRequest {
		t.Errorf("non-numeric limit: status = %d", rec.Code)
	}
}

func TestAnalystUnavailable(t *testing.T) {
	a := newTestAPI(t)
	rec := a.do(t, http.MethodGet, "/analyst/AAPL", "")
	if rec.Code != http.StatusOK || !strings.Contains(rec.Body.String(), "Analyst data unavailable") {
		t.Errorf("analyst = %d %s", rec.Code, rec.Body.String())
	}
}

func TestSaveHealthAndMetrics(t *testing.T) {
	a := newTestAPI(t)
	if rec := a.do(t, http.MethodPost, "/save", ""); rec.Code != http.StatusOK {
		t.Errorf("save: %d", rec.Code)
	}
	a.do(t, http.MethodPost, "/buckets", `{"name":"core"}`)

	rec := a.do(t, http.MethodGet, "/healthz", "")
	if rec.Code != http.StatusOK || !strings.Contains(rec.Body.String(), `"status":"ok"`) {
		t.Errorf("healthz = %d %s", rec.Code, rec.Body.String())
	}

	rec = a.do(t, http.MethodGet, "/metrics", "")
	body := rec.Body.String()
	if rec.Code != http.StatusOK || !strings.Contains(body, "investdash_state_mutations_total") ||
		!strings.Contains(body, `route="/buckets"`) {
		t.Errorf("metrics exposition missing series:\n%s", body)
	}
}

func TestUnknownRoute(t *testing.T) {
	a := newTestAPI(t)
	rec := a.do(t, http.MethodGet, "/nope", "")
	if rec.Code != http.StatusNotFound || errorCode(t, rec) != "NOT_FOUND" {
		t.Errorf("unknown route = %d %s", rec.Code, rec.Body.String())
	}
}

func TestCORSPreflight(t *testing.T) {
	a := newTestAPI(t)
	req := httptest.NewRequest(http.MethodOptions, "/buckets", nil)
	req.Header.Set("Origin", "http://localhost:3000")
	rec := httptest.NewRecorder()
	a.srv.Echo().ServeHTTP(rec, req)
	if rec.Code != http.StatusNoContent || rec.Header().Get("Access-Control-Allow-Origin") != "http://localhost:3000" {
		t.Errorf("preflight = %d %v", rec.Code, rec.Header())
	}
}

func TestWebsocketReceivesStateEvents(t *testing.T) {
	a := newTestAPI(t)
	ts := httptest.NewServer(a.srv.Echo())
	defer ts.Close()

	conn, _, err := websocket.DefaultDialer.Dial("ws"+strings.TrimPrefix(ts.URL, "http")+"/ws", nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer conn.Close()

	deadline := time.Now().Add(2 * time.Second)
	for a.hub.Len() == 0 && time.Now().Before(deadline) {
		time.Sleep(10 * time.Millisecond)
	}
	if a.hub.Len() != 1 {
		t.Fatalf("client not registered")
	}

	if err := a.store.CreateBucket("core"); err != nil {
		t.Fatal(err)
	}

	_ = conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	var ev struct {
		ID      string `json:"id"`
		Type    string `json:"type"`
		Payload struct {
			Op       string `json:"op"`
			Revision int64  `json:"revision"`
		} `json:"payload"`
	}
	if err := conn.ReadJSON(&ev); err != nil {
		t.Fatalf("read: %v", err)
	}
	if ev.Type != EventStateChanged || ev.Payload.Op != "create bucket" || ev.Payload.Revision != 1 || ev.ID == "" {
		t.Errorf("event = %+v", ev)
	}
}
