package controllers

import (
	"encoding/json"
	"net/http"
	"os"
	"path/filepath"
	"testing"

	"github.com/moyoez/gesubridge-go/types"
)

func tempSource(t *testing.T, name string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte("payload"), 0o644); err != nil {
		t.Fatalf("Failed to create temp source: %v", err)
	}
	return path
}

func TestTransferSubmitAndCancel(t *testing.T) {
	router := setupRouter(t)

	w := doJSON(t, router, "POST", "/api/self/v1/transfer/submit", SubmitTransferRequest{
		DeviceID:  "DEV1",
		Direction: "push",
		Pairs: []types.PathPair{
			{Source: tempSource(t, "a.bin")},
			{Source: tempSource(t, "b.bin")},
		},
	})
	if w.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d: %s", w.Code, w.Body.String())
	}
	var submitResp struct {
		Data []types.TransferJob `json:"data"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &submitResp); err != nil {
		t.Fatalf("Failed to parse submit response: %v", err)
	}
	if len(submitResp.Data) != 2 {
		t.Fatalf("Expected 2 jobs, got %d", len(submitResp.Data))
	}
	for _, j := range submitResp.Data {
		if j.ID == "" {
			t.Error("Submitted job should have an id")
		}
	}

	// cancel the second job; whether it is still queued or already
	// transferring, the call succeeds
	w = doJSON(t, router, "POST", "/api/self/v1/transfer/cancel", CancelTransferRequest{JobID: submitResp.Data[1].ID})
	if w.Code != http.StatusOK {
		t.Errorf("Expected 200 for cancel, got %d: %s", w.Code, w.Body.String())
	}

	// cancel twice is an idempotent success
	w = doJSON(t, router, "POST", "/api/self/v1/transfer/cancel", CancelTransferRequest{JobID: submitResp.Data[1].ID})
	if w.Code != http.StatusOK {
		t.Errorf("Expected 200 for repeated cancel, got %d", w.Code)
	}
}

func TestTransferCancelUnknown(t *testing.T) {
	router := setupRouter(t)
	w := doJSON(t, router, "POST", "/api/self/v1/transfer/cancel", CancelTransferRequest{JobID: "ghost"})
	if w.Code != http.StatusNotFound {
		t.Errorf("Expected 404 for unknown job, got %d", w.Code)
	}
}

func TestTransferSubmitInvalidDirection(t *testing.T) {
	router := setupRouter(t)
	w := doJSON(t, router, "POST", "/api/self/v1/transfer/submit", SubmitTransferRequest{
		DeviceID:  "DEV1",
		Direction: "sideways",
		Pairs:     []types.PathPair{{Source: "/tmp/x"}},
	})
	if w.Code != http.StatusBadRequest {
		t.Errorf("Expected 400 for invalid direction, got %d", w.Code)
	}
}

func TestTransferListEndpoints(t *testing.T) {
	router := setupRouter(t)

	w := doJSON(t, router, "GET", "/api/self/v1/transfers/active", nil)
	if w.Code != http.StatusOK {
		t.Errorf("Expected 200 for active list, got %d", w.Code)
	}
	w = doJSON(t, router, "GET", "/api/self/v1/transfers/history", nil)
	if w.Code != http.StatusOK {
		t.Errorf("Expected 200 for history list, got %d", w.Code)
	}
}
