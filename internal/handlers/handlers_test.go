package handlers

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/mux"
	"github.com/rs/zerolog"
	"github.com/snowmigrate/snowmigrate-api/internal/config"
	"github.com/snowmigrate/snowmigrate-api/internal/connections"
	"github.com/snowmigrate/snowmigrate-api/internal/engine"
	"github.com/snowmigrate/snowmigrate-api/internal/jobstore"
	"github.com/snowmigrate/snowmigrate-api/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

// adminHash is bcrypt("letmein") with the minimum cost to keep tests fast.
func adminHash(t *testing.T) string {
	t.Helper()
	hash, err := bcrypt.GenerateFromPassword([]byte("letmein"), bcrypt.MinCost)
	require.NoError(t, err)
	return string(hash)
}

func testAuthHandler(t *testing.T) *AuthHandler {
	t.Helper()
	return NewAuthHandler(&config.Config{
		JWTSecret:         "test-secret",
		AdminPasswordHash: adminHash(t),
	}, zerolog.Nop())
}

func testEngine() (*engine.Engine, *connections.Manager) {
	conns := connections.NewManager()
	eng := engine.New(jobstore.New(), conns, zerolog.Nop(), engine.Options{
		CLIPath: "/nonexistent/migrate-tool",
	})
	return eng, conns
}

func seedConnections(conns *connections.Manager) (models.SourceConnection, models.SnowflakeConnection) {
	src := conns.AddSource(models.SourceConnection{
		Name: "pg", Type: models.SourcePostgres,
		Host: "db.local", Port: 5432, Database: "app",
		Username: "reader", Password: "secret",
	})
	tgt := conns.AddTarget(models.SnowflakeConnection{
		Name: "snow", Account: "acct", Warehouse: "WH",
		Database: "ANALYTICS", Username: "loader", Password: "secret",
	})
	return src, tgt
}

func TestLoginIssuesToken(t *testing.T) {
	auth := testAuthHandler(t)

	req := httptest.NewRequest(http.MethodPost, "/api/login",
		strings.NewReader(`{"password":"letmein"}`))
	rec := httptest.NewRecorder()
	auth.Login(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	var body map[string]string
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&body))
	assert.NotEmpty(t, body["token"])
}

func TestLoginRejectsWrongPassword(t *testing.T) {
	auth := testAuthHandler(t)

	req := httptest.NewRequest(http.MethodPost, "/api/login",
		strings.NewReader(`{"password":"wrong"}`))
	rec := httptest.NewRecorder()
	auth.Login(rec, req)

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestJWTMiddleware(t *testing.T) {
	auth := testAuthHandler(t)

	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
	guarded := auth.JWTMiddleware(next)

	// No header.
	rec := httptest.NewRecorder()
	guarded.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/jobs", nil))
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	// Garbage token.
	rec = httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/api/jobs", nil)
	req.Header.Set("Authorization", "Bearer not-a-token")
	guarded.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	// A freshly issued token passes.
	loginRec := httptest.NewRecorder()
	auth.Login(loginRec, httptest.NewRequest(http.MethodPost, "/api/login",
		strings.NewReader(`{"password":"letmein"}`)))
	var body map[string]string
	require.NoError(t, json.NewDecoder(loginRec.Body).Decode(&body))

	rec = httptest.NewRecorder()
	req = httptest.NewRequest(http.MethodGet, "/api/jobs", nil)
	req.Header.Set("Authorization", "Bearer "+body["token"])
	guarded.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func createJobPayload(src models.SourceConnection, tgt models.SnowflakeConnection) []byte {
	payload := map[string]interface{}{
		"source_connection_id": src.ID,
		"target_connection_id": tgt.ID,
		"staging_area_id":      "s3-default",
		"tables": []map[string]interface{}{
			{"schema_name": "public", "table_name": "users", "row_count": 100},
		},
	}
	data, _ := json.Marshal(payload)
	return data
}

func TestCreateJob(t *testing.T) {
	eng, conns := testEngine()
	src, tgt := seedConnections(conns)
	h := NewJobHandler(eng, zerolog.Nop())

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/api/jobs",
		bytes.NewReader(createJobPayload(src, tgt)))
	h.CreateJob(rec, req)

	require.Equal(t, http.StatusCreated, rec.Code)
	var job models.Job
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&job))
	assert.NotEmpty(t, job.ID)
	assert.Equal(t, models.StatusQueued, job.Status)
	assert.Equal(t, 1, job.Progress.TotalTables)
}

func TestCreateJobValidation(t *testing.T) {
	eng, _ := testEngine()
	h := NewJobHandler(eng, zerolog.Nop())

	cases := []string{
		`not json`,
		`{"source_connection_id":"","target_connection_id":"tgt","tables":[{"schema_name":"s","table_name":"t"}]}`,
		`{"source_connection_id":"src","target_connection_id":"tgt","tables":[]}`,
		`{"source_connection_id":"src","target_connection_id":"tgt","tables":[{"schema_name":"","table_name":"t"}]}`,
	}
	for _, body := range cases {
		rec := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodPost, "/api/jobs", strings.NewReader(body))
		h.CreateJob(rec, req)
		assert.Equal(t, http.StatusBadRequest, rec.Code, body)
	}
}

func TestGetJobNotFound(t *testing.T) {
	eng, _ := testEngine()
	h := NewJobHandler(eng, zerolog.Nop())

	rec := httptest.NewRecorder()
	req := mux.SetURLVars(httptest.NewRequest(http.MethodGet, "/api/jobs/missing", nil),
		map[string]string{"jobID": "missing"})
	h.GetJob(rec, req)

	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestPauseQueuedJobConflicts(t *testing.T) {
	eng, conns := testEngine()
	src, tgt := seedConnections(conns)
	job := eng.CreateJob(models.JobSpec{
		SourceConnectionID: src.ID,
		TargetConnectionID: tgt.ID,
		Tables:             []models.TableSelection{{SchemaName: "public", TableName: "users"}},
	})
	h := NewJobHandler(eng, zerolog.Nop())

	rec := httptest.NewRecorder()
	req := mux.SetURLVars(httptest.NewRequest(http.MethodPost, "/api/jobs/x/pause", nil),
		map[string]string{"jobID": job.ID})
	h.PauseJob(rec, req)

	assert.Equal(t, http.StatusConflict, rec.Code)
}

func TestCancelQueuedJob(t *testing.T) {
	eng, conns := testEngine()
	src, tgt := seedConnections(conns)
	job := eng.CreateJob(models.JobSpec{
		SourceConnectionID: src.ID,
		TargetConnectionID: tgt.ID,
		Tables:             []models.TableSelection{{SchemaName: "public", TableName: "users"}},
	})
	h := NewJobHandler(eng, zerolog.Nop())

	rec := httptest.NewRecorder()
	req := mux.SetURLVars(httptest.NewRequest(http.MethodPost, "/api/jobs/x/cancel", nil),
		map[string]string{"jobID": job.ID})
	h.CancelJob(rec, req)

	require.Equal(t, http.StatusAccepted, rec.Code)
	var got models.Job
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&got))
	assert.Equal(t, models.StatusCancelled, got.Status)
}

func TestListJobsActiveFilter(t *testing.T) {
	eng, conns := testEngine()
	src, tgt := seedConnections(conns)
	spec := models.JobSpec{
		SourceConnectionID: src.ID,
		TargetConnectionID: tgt.ID,
		Tables:             []models.TableSelection{{SchemaName: "public", TableName: "users"}},
	}
	queued := eng.CreateJob(spec)
	cancelled := eng.CreateJob(spec)
	require.NoError(t, eng.Cancel(cancelled.ID))

	h := NewJobHandler(eng, zerolog.Nop())

	rec := httptest.NewRecorder()
	h.ListJobs(rec, httptest.NewRequest(http.MethodGet, "/api/jobs", nil))
	var all []models.Job
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&all))
	assert.Len(t, all, 2)

	rec = httptest.NewRecorder()
	h.ListJobs(rec, httptest.NewRequest(http.MethodGet, "/api/jobs?active=true", nil))
	var active []models.Job
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&active))
	require.Len(t, active, 1)
	assert.Equal(t, queued.ID, active[0].ID)
}

func TestConnectionResponsesOmitPassword(t *testing.T) {
	_, conns := testEngine()
	h := NewConnectionHandler(conns, zerolog.Nop())

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/api/connections/sources",
		strings.NewReader(`{"name":"pg","type":"postgres","host":"db.local","port":5432,"database":"app","username":"reader","password":"hunter2"}`))
	h.CreateSource(rec, req)

	require.Equal(t, http.StatusCreated, rec.Code)
	assert.NotContains(t, rec.Body.String(), "hunter2")

	// The password still reached the stored connection.
	sources := conns.ListSources()
	require.Len(t, sources, 1)
	stored, err := conns.GetSourceConnection(sources[0].ID)
	require.NoError(t, err)
	assert.Equal(t, "hunter2", stored.Password)
}

func TestCreateSourceValidation(t *testing.T) {
	_, conns := testEngine()
	h := NewConnectionHandler(conns, zerolog.Nop())

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/api/connections/sources",
		strings.NewReader(`{"name":"pg"}`))
	h.CreateSource(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestStagingAreasEndpoint(t *testing.T) {
	eng, _ := testEngine()
	h := NewStagingHandler(eng, zerolog.Nop())

	rec := httptest.NewRecorder()
	h.ListStagingAreas(rec, httptest.NewRequest(http.MethodGet, "/api/staging-areas", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	var areas []models.StagingArea
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&areas))
	require.Len(t, areas, 2)
	assert.Equal(t, "s3-default", areas[0].ID)
}

func TestStreamProgressEndsForSettledJob(t *testing.T) {
	eng, conns := testEngine()
	src, tgt := seedConnections(conns)
	job := eng.CreateJob(models.JobSpec{
		SourceConnectionID: src.ID,
		TargetConnectionID: tgt.ID,
		Tables:             []models.TableSelection{{SchemaName: "public", TableName: "users"}},
	})
	require.NoError(t, eng.Cancel(job.ID))

	h := NewJobHandler(eng, zerolog.Nop())

	done := make(chan *httptest.ResponseRecorder, 1)
	go func() {
		rec := httptest.NewRecorder()
		req := mux.SetURLVars(httptest.NewRequest(http.MethodGet, "/api/jobs/x/progress", nil),
			map[string]string{"jobID": job.ID})
		h.StreamProgress(rec, req)
		done <- rec
	}()

	select {
	case rec := <-done:
		assert.Equal(t, "text/event-stream", rec.Header().Get("Content-Type"))
		assert.Contains(t, rec.Body.String(), "event: done")
	case <-time.After(5 * time.Second):
		t.Fatal("stream did not terminate for a settled job")
	}
}
