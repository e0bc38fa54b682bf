package route

import (
	"bytes"
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/goccy/go-json"
	"github.com/gorilla/websocket"
	"github.com/xuri/excelize/v2"

	"rgbmonitor/internal/config"
	"rgbmonitor/internal/dto"
	"rgbmonitor/internal/logger"
	"rgbmonitor/internal/sampler"
	"rgbmonitor/internal/series"
	"rgbmonitor/internal/service"
	hub "rgbmonitor/internal/service/websocket"
)

type closableFrame struct {
	*sampler.RGBFrame
}

func (closableFrame) Close() error { return nil }

func uniformDecoder(data []byte) (service.DecodedFrame, error) {
	if len(data) < 3 {
		return nil, errors.New("short payload")
	}
	return closableFrame{sampler.NewUniformFrame(4, 4, data[0], data[1], data[2])}, nil
}

type testEnv struct {
	server  *httptest.Server
	manager *service.Manager
	buffer  *series.Buffer
	logger  *logger.Logger
	cfg     *config.Config
}

func setupTestEnv(t *testing.T) *testEnv {
	t.Helper()

	cfg := config.Default()
	cfg.LogDirectory = t.TempDir()
	cfg.StaticDirectory = t.TempDir()
	if err := os.WriteFile(filepath.Join(cfg.StaticDirectory, "index.html"), []byte("<h1>RGB Monitor</h1>"), 0644); err != nil {
		t.Fatalf("Failed to write index.html: %v", err)
	}

	log, err := logger.NewLogger(cfg)
	if err != nil {
		t.Fatalf("NewLogger failed: %v", err)
	}

	viewers := hub.NewHubService(log)
	ctx, cancel := context.WithCancel(context.Background())
	go viewers.Serve(ctx)

	manager, err := service.NewManager(service.DecoderFunc(uniformDecoder), viewers, cfg, log)
	if err != nil {
		t.Fatalf("NewManager failed: %v", err)
	}
	buffer := series.NewBuffer(cfg.SeriesCapacity)

	server := httptest.NewServer(SetupRoutes(manager, buffer, viewers, cfg, log))
	t.Cleanup(func() {
		server.Close()
		cancel()
		manager.Stop()
		log.Close()
	})

	return &testEnv{server: server, manager: manager, buffer: buffer, logger: log, cfg: cfg}
}

func (e *testEnv) fill(n int) {
	for i := 0; i < n; i++ {
		e.buffer.Append(sampler.Sample{T: i, R: float64(i), G: 100, B: 200})
	}
}

func (e *testEnv) do(t *testing.T, method, path string) *http.Response {
	t.Helper()
	req, err := http.NewRequest(method, e.server.URL+path, nil)
	if err != nil {
		t.Fatalf("Failed to build request: %v", err)
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("%s %s failed: %v", method, path, err)
	}
	t.Cleanup(func() { resp.Body.Close() })
	return resp
}

func decodeBody(t *testing.T, resp *http.Response, v interface{}) {
	t.Helper()
	if err := json.NewDecoder(resp.Body).Decode(v); err != nil {
		t.Fatalf("Failed to decode response: %v", err)
	}
}

func waitFor(t *testing.T, cond func() bool, what string) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for !cond() {
		if time.Now().After(deadline) {
			t.Fatalf("Timed out waiting for %s", what)
		}
		time.Sleep(10 * time.Millisecond)
	}
}

// ========================================
// Session
// ========================================

func TestSessionLifecycle(t *testing.T) {
	env := setupTestEnv(t)

	var info struct {
		Active bool   `json:"active"`
		ID     string `json:"id"`
	}

	resp := env.do(t, http.MethodGet, "/api/session")
	decodeBody(t, resp, &info)
	if info.Active {
		t.Error("Expected inactive session on startup")
	}

	resp = env.do(t, http.MethodPost, "/api/session/stop")
	if resp.StatusCode != http.StatusConflict {
		t.Errorf("Expected 409 stopping an inactive session, got %d", resp.StatusCode)
	}

	resp = env.do(t, http.MethodPost, "/api/session/start")
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("Expected 200 on start, got %d", resp.StatusCode)
	}
	decodeBody(t, resp, &info)
	if !info.Active || info.ID == "" {
		t.Errorf("Expected active session with id, got %+v", info)
	}

	resp = env.do(t, http.MethodPost, "/api/session/stop")
	if resp.StatusCode != http.StatusOK {
		t.Errorf("Expected 200 on stop, got %d", resp.StatusCode)
	}
	if env.manager.Status().Active {
		t.Error("Session still active after stop")
	}
}

// ========================================
// Series, chart and export
// ========================================

func TestSeriesEndpoint(t *testing.T) {
	env := setupTestEnv(t)
	env.fill(3)

	var msg dto.SeriesMessage
	decodeBody(t, env.do(t, http.MethodGet, "/api/series"), &msg)

	if msg.Window != env.cfg.WindowSeconds {
		t.Errorf("Expected window %d, got %d", env.cfg.WindowSeconds, msg.Window)
	}
	if len(msg.Samples) != 3 || msg.Samples[2].R != 2 || msg.Samples[2].B != 200 {
		t.Errorf("Unexpected samples %+v", msg.Samples)
	}
}

func TestChartEndpoint(t *testing.T) {
	env := setupTestEnv(t)

	resp := env.do(t, http.MethodGet, "/api/chart.png")
	if resp.StatusCode != http.StatusNoContent {
		t.Errorf("Expected 204 without samples, got %d", resp.StatusCode)
	}

	env.fill(10)
	resp = env.do(t, http.MethodGet, "/api/chart.png")
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("Expected 200, got %d", resp.StatusCode)
	}
	if ct := resp.Header.Get("Content-Type"); ct != "image/png" {
		t.Errorf("Expected image/png, got %q", ct)
	}
	body, _ := io.ReadAll(resp.Body)
	if !bytes.HasPrefix(body, []byte("\x89PNG\r\n\x1a\n")) {
		t.Error("Response is not a PNG")
	}
}

func TestExportXLSX(t *testing.T) {
	env := setupTestEnv(t)
	env.fill(5)

	resp := env.do(t, http.MethodGet, "/api/export.xlsx")
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("Expected 200, got %d", resp.StatusCode)
	}
	if cd := resp.Header.Get("Content-Disposition"); cd != "attachment; filename=rgb_values.xlsx" {
		t.Errorf("Unexpected Content-Disposition %q", cd)
	}
	if ct := resp.Header.Get("Content-Type"); !strings.Contains(ct, "spreadsheetml.sheet") {
		t.Errorf("Unexpected Content-Type %q", ct)
	}

	f, err := excelize.OpenReader(resp.Body)
	if err != nil {
		t.Fatalf("Response is not a workbook: %v", err)
	}
	defer f.Close()

	rows, err := f.GetRows("RGB Values")
	if err != nil {
		t.Fatalf("GetRows failed: %v", err)
	}
	if len(rows) != 6 {
		t.Fatalf("Expected header + 5 rows, got %d", len(rows))
	}
	if strings.Join(rows[0], ",") != "Time(s),R,G,B" {
		t.Errorf("Unexpected header %v", rows[0])
	}
	if strings.Join(rows[5], ",") != "4,4,100,200" {
		t.Errorf("Unexpected last row %v", rows[5])
	}
}

func TestExportCSV(t *testing.T) {
	env := setupTestEnv(t)
	env.fill(2)

	resp := env.do(t, http.MethodGet, "/api/export.csv")
	if cd := resp.Header.Get("Content-Disposition"); cd != "attachment; filename=rgb_values.csv" {
		t.Errorf("Unexpected Content-Disposition %q", cd)
	}
	body, _ := io.ReadAll(resp.Body)
	want := "Time(s),R,G,B\n0,0,100,200\n1,1,100,200\n"
	if string(body) != want {
		t.Errorf("Unexpected CSV:\n%s", body)
	}
}

// ========================================
// Logs, metrics and static pages
// ========================================

func TestLogEndpoints(t *testing.T) {
	env := setupTestEnv(t)
	env.logger.Info("marker line")

	resp := env.do(t, http.MethodGet, "/logs/info")
	body, _ := io.ReadAll(resp.Body)
	if resp.StatusCode != http.StatusOK || !strings.Contains(string(body), "marker line") {
		t.Errorf("Expected info log with marker, got %d %q", resp.StatusCode, body)
	}

	if resp := env.do(t, http.MethodGet, "/logs/debug"); resp.StatusCode != http.StatusNotFound {
		t.Errorf("Expected 404 for unknown level, got %d", resp.StatusCode)
	}

	if resp := env.do(t, http.MethodPost, "/logs/info/clear"); resp.StatusCode != http.StatusNoContent {
		t.Errorf("Expected 204 on clear, got %d", resp.StatusCode)
	}
	data, _ := os.ReadFile(filepath.Join(env.cfg.LogDirectory, logger.InfoFile))
	if strings.Contains(string(data), "marker line") {
		t.Error("info.log was not truncated")
	}
}

func TestMetricsAndIndex(t *testing.T) {
	env := setupTestEnv(t)

	resp := env.do(t, http.MethodGet, "/metrics")
	body, _ := io.ReadAll(resp.Body)
	if !strings.Contains(string(body), "rgbmonitor_series_length") {
		t.Error("Expected rgbmonitor metrics in /metrics output")
	}

	resp = env.do(t, http.MethodGet, "/")
	body, _ = io.ReadAll(resp.Body)
	if resp.StatusCode != http.StatusOK || !strings.Contains(string(body), "RGB Monitor") {
		t.Errorf("Expected index page, got %d %q", resp.StatusCode, body)
	}

	if resp := env.do(t, http.MethodGet, "/nope"); resp.StatusCode != http.StatusNotFound {
		t.Errorf("Expected 404 for unknown page, got %d", resp.StatusCode)
	}
}

// ========================================
// WebSockets
// ========================================

func wsURL(server *httptest.Server, path string) string {
	return "ws" + strings.TrimPrefix(server.URL, "http") + path
}

func TestViewWebsocket_InitialSnapshot(t *testing.T) {
	env := setupTestEnv(t)
	env.fill(2)

	conn, _, err := websocket.DefaultDialer.Dial(wsURL(env.server, "/ws/view"), nil)
	if err != nil {
		t.Fatalf("Dial failed: %v", err)
	}
	defer conn.Close()

	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	_, data, err := conn.ReadMessage()
	if err != nil {
		t.Fatalf("ReadMessage failed: %v", err)
	}

	var msg dto.SeriesMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		t.Fatalf("Bad snapshot: %v", err)
	}
	if msg.Type != dto.TypeSeries || len(msg.Samples) != 2 {
		t.Errorf("Unexpected snapshot %+v", msg)
	}
}

func TestCameraWebsocket_SessionFollowsConnection(t *testing.T) {
	env := setupTestEnv(t)

	camera, _, err := websocket.DefaultDialer.Dial(wsURL(env.server, "/ws/camera"), nil)
	if err != nil {
		t.Fatalf("Dial failed: %v", err)
	}
	waitFor(t, func() bool { return env.manager.Status().Active }, "session start")

	_, resp, err := websocket.DefaultDialer.Dial(wsURL(env.server, "/ws/camera"), nil)
	if err == nil {
		t.Fatal("Expected second camera to be rejected")
	}
	if resp == nil || resp.StatusCode != http.StatusConflict {
		t.Errorf("Expected 409 for second camera, got %v", resp)
	}

	if err := camera.WriteMessage(websocket.BinaryMessage, []byte{10, 20, 30}); err != nil {
		t.Fatalf("WriteMessage failed: %v", err)
	}

	camera.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
	camera.Close()
	waitFor(t, func() bool { return !env.manager.Status().Active }, "session end")
}

func TestCameraWebsocket_RejectedWhileUDPCameraStreams(t *testing.T) {
	env := setupTestEnv(t)

	owned, err := env.manager.ClaimSession(service.SourceUDP)
	if err != nil {
		t.Fatalf("ClaimSession failed: %v", err)
	}

	_, resp, err := websocket.DefaultDialer.Dial(wsURL(env.server, "/ws/camera"), nil)
	if err == nil {
		t.Fatal("Expected browser camera to be rejected")
	}
	if resp == nil || resp.StatusCode != http.StatusConflict {
		t.Errorf("Expected 409 while another camera streams, got %v", resp)
	}
	if got := env.manager.Status(); !got.Active || got.ID != owned.ID || got.Source != service.SourceUDP {
		t.Errorf("Rejected camera disturbed the session: %+v", got)
	}

	if err := env.manager.ReleaseSession(service.SourceUDP); err != nil {
		t.Fatalf("ReleaseSession failed: %v", err)
	}
	camera, _, err := websocket.DefaultDialer.Dial(wsURL(env.server, "/ws/camera"), nil)
	if err != nil {
		t.Fatalf("Browser camera should connect once the session is free: %v", err)
	}
	defer camera.Close()
	waitFor(t, func() bool { return env.manager.Status().Source == service.SourceBrowser }, "browser claim")
}
