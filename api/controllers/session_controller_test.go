package controllers

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/moyoez/gesubridge-go/runner"
	"github.com/moyoez/gesubridge-go/session"
	"github.com/moyoez/gesubridge-go/transfer"
	"github.com/moyoez/gesubridge-go/types"
)

type stubHandle struct {
	mu    sync.Mutex
	alive bool
	done  chan struct{}
	lines chan string
}

func newStubHandle() *stubHandle {
	return &stubHandle{alive: true, done: make(chan struct{}), lines: make(chan string)}
}

func (h *stubHandle) Pid() int { return 4242 }

func (h *stubHandle) IsAlive() bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.alive
}

func (h *stubHandle) Terminate() {
	h.mu.Lock()
	defer h.mu.Unlock()
	if !h.alive {
		return
	}
	h.alive = false
	close(h.lines)
	close(h.done)
}

func (h *stubHandle) WaitExit() int {
	<-h.done
	return -1
}

func (h *stubHandle) Lines() <-chan string { return h.lines }
func (h *stubHandle) OutputTail() string   { return "" }

type stubRunner struct{}

func (stubRunner) Spawn(exe string, args []string) (runner.ProcessHandle, error) {
	return newStubHandle(), nil
}

type readyProbe struct{}

func (readyProbe) IsDeviceReady(string) bool { return true }

// setupRouter creates a test router with the orchestration endpoints
func setupRouter(t *testing.T) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)

	registry := session.NewRegistry(stubRunner{}, readyProbe{}, nil, func() string { return "scrcpy" })
	queue := transfer.NewQueue(stubRunner{}, readyProbe{}, nil, nil, transfer.Options{})
	queue.Start()
	t.Cleanup(queue.Shutdown)

	sessionCtrl := NewSessionController(registry)
	transferCtrl := NewTransferController(queue, nil)

	router := gin.New()
	self := router.Group("/api/self/v1")
	{
		self.POST("/session/start", sessionCtrl.HandleStart)
		self.POST("/session/stop", sessionCtrl.HandleStop)
		self.GET("/sessions", sessionCtrl.HandleList)
		self.POST("/transfer/submit", transferCtrl.HandleSubmit)
		self.POST("/transfer/cancel", transferCtrl.HandleCancel)
		self.GET("/transfers/active", transferCtrl.HandleActive)
		self.GET("/transfers/history", transferCtrl.HandleHistory)
	}
	return router
}

func doJSON(t *testing.T, router *gin.Engine, method, url string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatalf("Failed to encode body: %v", err)
		}
	}
	req, _ := http.NewRequest(method, url, &buf)
	req.Header.Set("Content-Type", "application/json")
	req.RemoteAddr = "127.0.0.1:12345"
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func TestSessionStartStopFlow(t *testing.T) {
	router := setupRouter(t)

	w := doJSON(t, router, "POST", "/api/self/v1/session/start", StartSessionRequest{DeviceID: "DEV1", Mode: "mirror"})
	if w.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d: %s", w.Code, w.Body.String())
	}
	var response map[string]any
	if err := json.Unmarshal(w.Body.Bytes(), &response); err != nil {
		t.Fatalf("Failed to parse response: %v", err)
	}
	data, ok := response["data"].(map[string]any)
	if !ok {
		t.Fatal("Response should contain data")
	}
	if data["state"] != string(types.SessionRunning) {
		t.Errorf("Expected running session, got %v", data["state"])
	}

	// duplicate start on the same key
	w = doJSON(t, router, "POST", "/api/self/v1/session/start", StartSessionRequest{DeviceID: "DEV1", Mode: "mirror"})
	if w.Code != http.StatusConflict {
		t.Errorf("Expected 409 for duplicate session, got %d", w.Code)
	}

	// distinct mode key is fine
	w = doJSON(t, router, "POST", "/api/self/v1/session/start", StartSessionRequest{DeviceID: "DEV1", Mode: "camera"})
	if w.Code != http.StatusOK {
		t.Errorf("Expected 200 for camera mode, got %d", w.Code)
	}

	w = doJSON(t, router, "GET", "/api/self/v1/sessions?mode=mirror", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d", w.Code)
	}
	var listResp struct {
		Data []types.Session `json:"data"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &listResp); err != nil {
		t.Fatalf("Failed to parse list response: %v", err)
	}
	if len(listResp.Data) != 1 {
		t.Errorf("Expected 1 mirror session, got %d", len(listResp.Data))
	}

	w = doJSON(t, router, "POST", "/api/self/v1/session/stop", StopSessionRequest{DeviceID: "DEV1", Mode: "mirror"})
	if w.Code != http.StatusOK {
		t.Errorf("Expected 200 for stop, got %d: %s", w.Code, w.Body.String())
	}

	w = doJSON(t, router, "POST", "/api/self/v1/session/stop", StopSessionRequest{DeviceID: "DEV1", Mode: "mirror"})
	if w.Code != http.StatusNotFound {
		t.Errorf("Expected 404 for repeated stop, got %d", w.Code)
	}

	// stop settles asynchronously; the key frees up once it has
	waitForMirrorSessions(t, router, 0)
	w = doJSON(t, router, "POST", "/api/self/v1/session/start", StartSessionRequest{DeviceID: "DEV1", Mode: "mirror"})
	if w.Code != http.StatusOK {
		t.Errorf("Expected 200 for restart, got %d", w.Code)
	}
}

func waitForMirrorSessions(t *testing.T, router *gin.Engine, want int) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		w := doJSON(t, router, "GET", "/api/self/v1/sessions?mode=mirror", nil)
		var resp struct {
			Data []types.Session `json:"data"`
		}
		if err := json.Unmarshal(w.Body.Bytes(), &resp); err == nil && len(resp.Data) == want {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("Timed out waiting for %d mirror sessions", want)
}

func TestSessionStartInvalidMode(t *testing.T) {
	router := setupRouter(t)
	w := doJSON(t, router, "POST", "/api/self/v1/session/start", StartSessionRequest{DeviceID: "DEV1", Mode: "hologram"})
	if w.Code != http.StatusBadRequest {
		t.Errorf("Expected 400 for invalid mode, got %d", w.Code)
	}
}

func TestSessionStartMissingBody(t *testing.T) {
	router := setupRouter(t)
	w := doJSON(t, router, "POST", "/api/self/v1/session/start", map[string]string{"mode": "mirror"})
	if w.Code != http.StatusBadRequest {
		t.Errorf("Expected 400 for missing deviceId, got %d", w.Code)
	}
}
