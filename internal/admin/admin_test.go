package admin

import (
	"context"
	"encoding/json"
	"io"
	"net"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/go-cmp/cmp"
	"go.uber.org/zap/zaptest"

	"todoke/internal/config"
	"todoke/internal/generated"
	"todoke/internal/pool"
	"todoke/internal/server"
)

type stubProvider struct {
	status server.Status
}

func (p stubProvider) Status() server.Status { return p.status }

var startedAt = time.Date(2024, 3, 9, 8, 7, 6, 0, time.UTC)

func newTestAdmin(t *testing.T, st server.Status) *Server {
	t.Helper()
	gin.SetMode(gin.TestMode)

	s, err := New(config.AdminConfig{Enabled: true, Host: "127.0.0.1", Port: 0}, stubProvider{status: st}, zaptest.NewLogger(t))
	if err != nil {
		t.Fatalf("管理APIサーバーの作成に失敗しました: %v", err)
	}
	return s
}

func serve(t *testing.T, s *Server, path string) *httptest.ResponseRecorder {
	t.Helper()
	w := httptest.NewRecorder()
	s.Handler().ServeHTTP(w, httptest.NewRequest(http.MethodGet, path, nil))
	return w
}

func TestHealthCheck(t *testing.T) {
	s := newTestAdmin(t, server.Status{})

	w := serve(t, s, "/health")
	if w.Code != http.StatusOK {
		t.Fatalf("ステータスコード: got %d", w.Code)
	}

	var res generated.HealthResponse
	if err := json.Unmarshal(w.Body.Bytes(), &res); err != nil {
		t.Fatalf("レスポンスのデコードに失敗しました: %v", err)
	}
	if res.Status != generated.Healthy {
		t.Errorf("status: got %q", res.Status)
	}
	if res.Timestamp.IsZero() {
		t.Error("timestamp が設定されていません")
	}
}

func TestGetStatus(t *testing.T) {
	st := server.Status{
		Address:   "127.0.0.1:8085",
		Running:   true,
		Root:      "/srv/webroot",
		StartedAt: startedAt,
		Features:  config.FeatureConfig{ShowDirectoryListing: true, CompressOnFly: true},
		Pool:      pool.Stats{Workers: 4, QueueSize: 8, Busy: 1, Completed: 10},
		Stats:     server.StatsSnapshot{Connections: 12, AcceptErrors: 1, Served: 9, NotFound: 2, Malformed: 1, SidecarsCreated: 3, BytesSent: 4096},
	}
	s := newTestAdmin(t, st)

	w := serve(t, s, "/api/status")
	if w.Code != http.StatusOK {
		t.Fatalf("ステータスコード: got %d", w.Code)
	}

	var got generated.StatusResponse
	if err := json.Unmarshal(w.Body.Bytes(), &got); err != nil {
		t.Fatalf("レスポンスのデコードに失敗しました: %v", err)
	}

	want := convertStatus(st, got.Timestamp)
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("状態が一致しません (-want +got):\n%s", diff)
	}
	if got.Status != generated.Running {
		t.Errorf("status: got %q", got.Status)
	}
}

func TestConvertStatusStopped(t *testing.T) {
	testCases := []struct {
		name   string
		status server.Status
	}{
		{name: "待ち受け前", status: server.Status{Root: "/srv"}},
		{name: "シャットダウン後", status: server.Status{Address: "127.0.0.1:8085", Root: "/srv", Running: false}},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			if got := convertStatus(tc.status, startedAt); got.Status != generated.Stopped {
				t.Errorf("stopped が期待されました: got %q", got.Status)
			}
		})
	}
}

func TestGetOpenAPISpec(t *testing.T) {
	s := newTestAdmin(t, server.Status{})

	w := serve(t, s, "/api/openapi.json")
	if w.Code != http.StatusOK {
		t.Fatalf("ステータスコード: got %d", w.Code)
	}

	var doc map[string]any
	if err := json.Unmarshal(w.Body.Bytes(), &doc); err != nil {
		t.Fatalf("レスポンスのデコードに失敗しました: %v", err)
	}
	if doc["openapi"] != "3.0.3" {
		t.Errorf("openapi: got %v", doc["openapi"])
	}
	if _, ok := doc["servers"]; ok {
		t.Error("servers は取り除かれるべきです")
	}
}

func TestNoRoute(t *testing.T) {
	s := newTestAdmin(t, server.Status{})

	w := serve(t, s, "/missing")
	if w.Code != http.StatusNotFound {
		t.Errorf("ステータスコード: got %d", w.Code)
	}
}

// TestServeAndShutdown は管理APIサーバーの起動と停止をテストする
func TestServeAndShutdown(t *testing.T) {
	s := newTestAdmin(t, server.Status{})

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatal(err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	errCh := make(chan error, 1)
	go func() {
		errCh <- s.Serve(ctx, ln)
	}()

	res, err := http.Get("http://" + ln.Addr().String() + "/health")
	if err != nil {
		t.Fatalf("リクエストに失敗しました: %v", err)
	}
	_, _ = io.Copy(io.Discard, res.Body)
	_ = res.Body.Close()
	if res.StatusCode != http.StatusOK {
		t.Errorf("ステータスコード: got %d", res.StatusCode)
	}

	cancel()

	select {
	case err := <-errCh:
		if err != nil {
			t.Fatalf("停止でエラーが発生しました: %v", err)
		}
	case <-time.After(3 * time.Second):
		t.Fatal("管理APIサーバーの停止がタイムアウトしました")
	}
}
