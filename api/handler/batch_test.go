package handler

import (
	"encoding/json"
	"net/http"
	"sync"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/use-agent/pageminer/models"
)

func newBatchRouter() *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.GET("/api/v1/batch/:id", GetBatch())
	return r
}

func TestGetBatch_NotFound(t *testing.T) {
	r := newBatchRouter()
	w := getJSON(t, r, "/api/v1/batch/batch-missing")
	if w.Code != http.StatusNotFound {
		t.Fatalf("status = %d, want 404", w.Code)
	}
}

func TestGetBatch_ReportsProgress(t *testing.T) {
	job := &batchJob{
		id:        "batch-progress",
		total:     3,
		createdAt: time.Now().Unix(),
		status:    "processing",
		completed: 2,
		results:   make([]*models.ScrapeResponse, 3),
	}
	job.results[0] = &models.ScrapeResponse{Success: true}
	job.results[1] = &models.ScrapeResponse{Success: false}
	batchStore.Store(job.id, job)

	r := newBatchRouter()
	w := getJSON(t, r, "/api/v1/batch/batch-progress")
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200: %s", w.Code, w.Body.String())
	}

	var resp models.BatchStatusResponse
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if resp.Status != "processing" || resp.Completed != 2 || resp.Total != 3 {
		t.Errorf("status/completed/total = %s/%d/%d, want processing/2/3",
			resp.Status, resp.Completed, resp.Total)
	}
	if len(resp.Results) != 3 {
		t.Fatalf("results = %d slots, want 3", len(resp.Results))
	}
	if resp.Results[0] == nil || !resp.Results[0].Success {
		t.Error("results[0] should be the finished successful scrape")
	}
	if resp.Results[2] != nil {
		t.Error("results[2] should still be empty")
	}
}

// Polling a batch while its workers are writing must always see a
// consistent snapshot: completed within bounds and never going backwards.
func TestGetBatch_SnapshotUnderConcurrentWrites(t *testing.T) {
	const total = 40
	job := &batchJob{
		id:        "batch-inflight",
		total:     total,
		createdAt: time.Now().Unix(),
		status:    "processing",
		results:   make([]*models.ScrapeResponse, total),
	}
	batchStore.Store(job.id, job)

	r := newBatchRouter()

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		for i := 0; i < total; i++ {
			job.mu.Lock()
			job.results[i] = &models.ScrapeResponse{Success: true}
			job.completed++
			job.mu.Unlock()
		}
		job.mu.Lock()
		job.status = "completed"
		job.mu.Unlock()
	}()

	prev := 0
	for i := 0; i < 25; i++ {
		w := getJSON(t, r, "/api/v1/batch/batch-inflight")
		var resp models.BatchStatusResponse
		if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
			t.Fatalf("unmarshal: %v", err)
		}
		if resp.Completed < 0 || resp.Completed > total {
			t.Fatalf("completed = %d, want within [0,%d]", resp.Completed, total)
		}
		if resp.Completed < prev {
			t.Fatalf("completed went backwards: %d after %d", resp.Completed, prev)
		}
		prev = resp.Completed
	}
	wg.Wait()

	w := getJSON(t, r, "/api/v1/batch/batch-inflight")
	var resp models.BatchStatusResponse
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if resp.Status != "completed" || resp.Completed != total {
		t.Errorf("final status/completed = %s/%d, want completed/%d",
			resp.Status, resp.Completed, total)
	}
}
