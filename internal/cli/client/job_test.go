package client

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeDaemon serves canned jeeinsightd responses.
func fakeDaemon(t *testing.T) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()
	writeData := func(w http.ResponseWriter, status int, v interface{}) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		json.NewEncoder(w).Encode(map[string]interface{}{"data": v})
	}

	var srv *httptest.Server
	mux.HandleFunc("POST /summaries", func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			StudentIDs []string `json:"student_ids"`
			Mode       string   `json:"mode"`
		}
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		writeData(w, http.StatusAccepted, Job{ID: "job-1", StudentIDs: req.StudentIDs, Mode: req.Mode, Status: "pending"})
	})
	mux.HandleFunc("GET /summaries/job-1", func(w http.ResponseWriter, r *http.Request) {
		writeData(w, http.StatusOK, Job{ID: "job-1", StudentIDs: []string{"s1"}, Mode: "direct", Status: "completed", ReportID: "rep-1"})
	})
	mux.HandleFunc("GET /reports/rep-1", func(w http.ResponseWriter, r *http.Request) {
		writeData(w, http.StatusOK, Report{ID: "rep-1", JobID: "job-1", StudentIDs: []string{"s1"}, Mode: "direct", Summary: "Good at optics.", Calls: 1, Chunks: 1})
	})
	mux.HandleFunc("GET /reports", func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "1", r.URL.Query().Get("limit"))
		writeData(w, http.StatusOK, ReportPage{
			Items:   []*Report{{ID: "rep-1", Mode: "direct", StudentIDs: []string{"s1"}, CreatedAt: "2024-11-05T10:00:00Z"}},
			Cursor:  "next",
			HasMore: true,
		})
	})
	mux.HandleFunc("POST /reports/search", func(w http.ResponseWriter, r *http.Request) {
		writeData(w, http.StatusOK, []*Report{{ID: "rep-1", Mode: "cohort"}})
	})
	mux.HandleFunc("GET /reports/rep-1/download", func(w http.ResponseWriter, r *http.Request) {
		writeData(w, http.StatusOK, map[string]string{"url": srv.URL + "/objects/rep-1.md"})
	})
	mux.HandleFunc("GET /objects/rep-1.md", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("# Report rep-1\n"))
	})

	srv = httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

func TestJobSubmitCmd(t *testing.T) {
	useConfigDir(t)
	srv := fakeDaemon(t)

	out, err := execute(t, "--api-url", srv.URL, "--output", "job", "submit", "--mode", "cohort", "s1", "s2")
	require.NoError(t, err)

	var job Job
	require.NoError(t, json.Unmarshal([]byte(out), &job))
	assert.Equal(t, "job-1", job.ID)
	assert.Equal(t, "cohort", job.Mode)
	assert.Equal(t, []string{"s1", "s2"}, job.StudentIDs)
}

func TestJobGetCmd_ShowsReport(t *testing.T) {
	useConfigDir(t)
	srv := fakeDaemon(t)

	out, err := execute(t, "--api-url", srv.URL, "--raw", "job", "get", "job-1")
	require.NoError(t, err)
	assert.Contains(t, out, "status: completed")
	assert.Contains(t, out, "Report rep-1 (direct)")
	assert.Contains(t, out, "Good at optics.")
}

func TestJobGetCmd_NotFound(t *testing.T) {
	useConfigDir(t)
	srv := fakeDaemon(t)

	_, err := execute(t, "--api-url", srv.URL, "job", "get", "nope")
	require.Error(t, err)
	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, http.StatusNotFound, apiErr.StatusCode)
}

func TestReportsListCmd(t *testing.T) {
	useConfigDir(t)
	srv := fakeDaemon(t)

	out, err := execute(t, "--api-url", srv.URL, "reports", "list", "--limit", "1")
	require.NoError(t, err)
	assert.Contains(t, out, "rep-1")
	assert.Contains(t, out, "--cursor next")
}

func TestReportsSearchCmd(t *testing.T) {
	useConfigDir(t)
	srv := fakeDaemon(t)

	out, err := execute(t, "--api-url", srv.URL, "reports", "search", "weak in optics")
	require.NoError(t, err)
	assert.Contains(t, out, "rep-1")
	assert.Contains(t, out, "all students")
}

func TestReportsDownloadCmd_Stdout(t *testing.T) {
	useConfigDir(t)
	srv := fakeDaemon(t)

	out, err := execute(t, "--api-url", srv.URL, "reports", "download", "rep-1")
	require.NoError(t, err)
	assert.Equal(t, "# Report rep-1\n", out)
}

func TestReportsDownloadCmd_File(t *testing.T) {
	useConfigDir(t)
	srv := fakeDaemon(t)
	path := filepath.Join(t.TempDir(), "rep-1.md")

	_, err := execute(t, "--api-url", srv.URL, "reports", "download", "rep-1", "--file", path)
	require.NoError(t, err)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "# Report rep-1\n", string(data))
}

func TestRemoteCmd_SetShowClear(t *testing.T) {
	useConfigDir(t)

	_, err := execute(t, "remote", "set", "http://reports:9000", "--key", "secret")
	require.NoError(t, err)

	out, err := execute(t, "remote", "show")
	require.NoError(t, err)
	assert.Contains(t, out, "api_url: http://reports:9000 (profile)")
	assert.Contains(t, out, "api_key: set (profile)")

	_, err = execute(t, "remote", "clear")
	require.NoError(t, err)

	out, err = execute(t, "remote", "show")
	require.NoError(t, err)
	assert.Contains(t, out, "api_url: http://localhost:8080 (default)")
}
