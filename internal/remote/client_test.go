package remote

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kartoza/cplus-engine/internal/model"
)

func newTestClient(t *testing.T, handler http.Handler) *Client {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	client := NewClient(server.URL, "test-key", WithPollInterval(5*time.Millisecond))
	t.Cleanup(func() { _ = client.Close() })
	return client
}

func writeJSON(t *testing.T, w http.ResponseWriter, v any) {
	t.Helper()
	w.Header().Set("Content-Type", "application/json")
	require.NoError(t, json.NewEncoder(w).Encode(v))
}

func TestUploadLayer_PutsFileToPresignedURL(t *testing.T) {
	dir := t.TempDir()
	layerPath := filepath.Join(dir, "pathway.asc")
	require.NoError(t, os.WriteFile(layerPath, []byte("ncols 1\n"), 0o644))

	var uploadedBody atomic.Pointer[string]
	mux := http.NewServeMux()
	var serverURL string
	mux.HandleFunc("POST /layers/upload-url", func(w http.ResponseWriter, r *http.Request) {
		var req map[string]string
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "pathway.asc", req["filename"])
		writeJSON(t, w, uploadTarget{LayerUUID: "layer-1", URL: serverURL + "/bucket/pathway.asc"})
	})
	mux.HandleFunc("PUT /bucket/pathway.asc", func(w http.ResponseWriter, r *http.Request) {
		body, err := io.ReadAll(r.Body)
		require.NoError(t, err)
		s := string(body)
		uploadedBody.Store(&s)
		w.WriteHeader(http.StatusOK)
	})

	server := httptest.NewServer(mux)
	t.Cleanup(server.Close)
	serverURL = server.URL

	client := NewClient(server.URL, "")
	t.Cleanup(func() { _ = client.Close() })

	layerUUID, err := client.UploadLayer(context.Background(), layerPath)
	require.NoError(t, err)
	assert.Equal(t, "layer-1", layerUUID)
	require.NotNil(t, uploadedBody.Load())
	assert.Equal(t, "ncols 1\n", *uploadedBody.Load())
}

func TestUploadLayer_FailsOnRejectedPut(t *testing.T) {
	dir := t.TempDir()
	layerPath := filepath.Join(dir, "pathway.asc")
	require.NoError(t, os.WriteFile(layerPath, []byte("x"), 0o644))

	mux := http.NewServeMux()
	var serverURL string
	mux.HandleFunc("POST /layers/upload-url", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(t, w, uploadTarget{LayerUUID: "layer-1", URL: serverURL + "/bucket/denied"})
	})
	mux.HandleFunc("PUT /bucket/denied", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusForbidden)
	})

	server := httptest.NewServer(mux)
	t.Cleanup(server.Close)
	serverURL = server.URL

	client := NewClient(server.URL, "")
	t.Cleanup(func() { _ = client.Close() })

	_, err := client.UploadLayer(context.Background(), layerPath)
	var apiError *APIError
	require.ErrorAs(t, err, &apiError)
	assert.Equal(t, http.StatusForbidden, apiError.Status)
}

func testScenario() *model.Scenario {
	s := model.NewScenario("remote run")
	s.Extent = [4]float64{0, 0, 10, 10}
	s.Activities = []model.Activity{{
		UUID: "22222222-2222-2222-2222-222222222222",
		Name: "agroforestry",
		Pathways: []model.NcsPathway{{
			UUID:        "11111111-1111-1111-1111-111111111111",
			Name:        "pathway",
			Path:        "/layers/pathway.asc",
			LayerType:   model.LayerTypeRaster,
			CarbonPaths: []string{"/layers/carbon.asc"},
		}},
		MaskPaths: []string{"/layers/mask.asc"},
	}}
	return s
}

func TestSubmitScenario_MapsPathsToLayerUUIDs(t *testing.T) {
	var received submitPayload
	mux := http.NewServeMux()
	mux.HandleFunc("POST /scenarios", func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, json.NewDecoder(r.Body).Decode(&received))
		writeJSON(t, w, submitResponse{JobID: "job-7"})
	})
	client := newTestClient(t, mux)

	layerUUIDs := map[string]string{
		"/layers/pathway.asc": "lp",
		"/layers/carbon.asc":  "lc",
		"/layers/mask.asc":    "lm",
	}
	jobID, err := client.SubmitScenario(context.Background(), testScenario(), layerUUIDs)
	require.NoError(t, err)
	assert.Equal(t, "job-7", jobID)

	require.Len(t, received.Activities, 1)
	require.Len(t, received.Activities[0].Pathways, 1)
	assert.Equal(t, "lp", received.Activities[0].Pathways[0].LayerUUID)
	assert.Equal(t, []string{"lc"}, received.Activities[0].Pathways[0].CarbonUUIDs)
	assert.Equal(t, []string{"lm"}, received.Activities[0].Masks)
}

func TestSubmitScenario_FailsOnUnmappedLayer(t *testing.T) {
	client := newTestClient(t, http.NewServeMux())

	_, err := client.SubmitScenario(context.Background(), testScenario(), map[string]string{
		"/layers/pathway.asc": "lp",
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "/layers/carbon.asc")
}

func TestStatus_ReturnsAPIErrorOnNotFound(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /scenarios/missing/status", func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "no such job", http.StatusNotFound)
	})
	client := newTestClient(t, mux)

	_, err := client.Status(context.Background(), "missing")
	var apiError *APIError
	require.ErrorAs(t, err, &apiError)
	assert.Equal(t, http.StatusNotFound, apiError.Status)
}

func TestWait_PollsUntilTerminalState(t *testing.T) {
	var polls atomic.Int64
	mux := http.NewServeMux()
	mux.HandleFunc("GET /scenarios/job-1/status", func(w http.ResponseWriter, r *http.Request) {
		n := polls.Add(1)
		status := JobStatus{JobID: "job-1", State: JobRunning, Progress: float64(n) * 30}
		if n >= 3 {
			status.State = JobCompleted
			status.Progress = 100
		}
		writeJSON(t, w, status)
	})
	client := newTestClient(t, mux)

	var seen []JobState
	status, err := client.Wait(context.Background(), "job-1", func(s JobStatus) {
		seen = append(seen, s.State)
	})
	require.NoError(t, err)
	assert.Equal(t, JobCompleted, status.State)
	assert.Equal(t, float64(100), status.Progress)
	assert.GreaterOrEqual(t, len(seen), 3)
	assert.Equal(t, JobCompleted, seen[len(seen)-1])
}

func TestWait_CancelsServerJobOnContextCancel(t *testing.T) {
	cancelled := make(chan struct{})
	mux := http.NewServeMux()
	mux.HandleFunc("GET /scenarios/job-2/status", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(t, w, JobStatus{JobID: "job-2", State: JobRunning})
	})
	mux.HandleFunc("POST /scenarios/job-2/cancel", func(w http.ResponseWriter, r *http.Request) {
		close(cancelled)
		w.WriteHeader(http.StatusOK)
	})
	client := newTestClient(t, mux)

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(20 * time.Millisecond)
		cancel()
	}()

	_, err := client.Wait(ctx, "job-2", nil)
	require.ErrorIs(t, err, context.Canceled)

	select {
	case <-cancelled:
	case <-time.After(time.Second):
		t.Fatal("server never received the cancel request")
	}
}

func TestFetchResults_DownloadsEveryFile(t *testing.T) {
	mux := http.NewServeMux()
	var serverURL string
	mux.HandleFunc("GET /scenarios/job-3/results", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(t, w, []ResultFile{
			{Name: "scenario_result.asc", URL: serverURL + "/files/scenario_result.asc"},
			{Name: "report.json", URL: serverURL + "/files/report.json"},
		})
	})
	mux.HandleFunc("GET /files/{name}", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprintf(w, "contents of %s", r.PathValue("name"))
	})

	server := httptest.NewServer(mux)
	t.Cleanup(server.Close)
	serverURL = server.URL

	client := NewClient(server.URL, "")
	t.Cleanup(func() { _ = client.Close() })

	outDir := t.TempDir()
	paths, err := client.FetchResults(context.Background(), "job-3", outDir)
	require.NoError(t, err)
	require.Len(t, paths, 2)

	data, err := os.ReadFile(filepath.Join(outDir, "report.json"))
	require.NoError(t, err)
	assert.Equal(t, "contents of report.json", string(data))
}

func TestJobState_MapsToScenarioState(t *testing.T) {
	assert.Equal(t, model.StatePending, JobQueued.ScenarioState())
	assert.Equal(t, model.StateRunning, JobRunning.ScenarioState())
	assert.Equal(t, model.StateCompleted, JobCompleted.ScenarioState())
	assert.Equal(t, model.StateCancelled, JobCancelled.ScenarioState())
	assert.Equal(t, model.StateFailed, JobFailed.ScenarioState())
	assert.False(t, JobRunning.Terminal())
	assert.True(t, JobFailed.Terminal())
}
