package store

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"regexp"
	"sync"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/alicebob/miniredis/v2"
	"github.com/elastic/go-elasticsearch/v8"
	"github.com/go-redis/redismock/v9"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"meeting-intel/internal/common/config"
	"meeting-intel/internal/common/database"
	"meeting-intel/internal/common/logger"
	"meeting-intel/internal/models"
)

func sampleSession() models.AssistantSession {
	snapshot := models.AnalyzeResult{InputEmail: "jane.doe@example.com", OneMinuteBrief: "Brief"}
	snapshot.FillDefaults()
	return models.AssistantSession{
		SessionID:       "s-1",
		CreatedAt:       time.UnixMilli(1700000000123).UTC(),
		Email:           "jane.doe@example.com",
		Agenda:          models.Agenda{Pitch: "Data platform", Goal: "Book a demo"},
		AnalyzeSnapshot: snapshot,
		ChatHistory:     []models.ChatTurn{},
	}
}

func TestSQLiteSessions_RoundTrip(t *testing.T) {
	client, err := database.NewSQLite(config.SQLiteConfig{Path: filepath.Join(t.TempDir(), "sessions.db")})
	require.NoError(t, err)
	t.Cleanup(func() { _ = client.Close() })

	repo := NewSQLiteSessions(client.GetDB(), logger.NewTestLogger(t))
	ctx := context.Background()
	require.NoError(t, repo.EnsureSchema(ctx))
	require.NoError(t, repo.EnsureSchema(ctx))

	_, ok, err := repo.Get(ctx, "missing")
	require.NoError(t, err)
	assert.False(t, ok)

	s := sampleSession()
	require.NoError(t, repo.Create(ctx, s))

	got, ok, err := repo.Get(ctx, s.SessionID)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, s, got)

	history := []models.ChatTurn{{Role: "user", Content: "hi"}, {Role: "assistant", Content: "hello"}}
	require.NoError(t, repo.UpdateChat(ctx, s.SessionID, history))

	refreshed := s.AnalyzeSnapshot
	refreshed.OneMinuteBrief = "Refreshed"
	require.NoError(t, repo.UpdateSnapshot(ctx, s.SessionID, refreshed))

	got, ok, err = repo.Get(ctx, s.SessionID)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, history, got.ChatHistory)
	assert.Equal(t, "Refreshed", got.AnalyzeSnapshot.OneMinuteBrief)

	// create again replaces the row
	s.Email = "other@example.com"
	require.NoError(t, repo.Create(ctx, s))
	got, _, err = repo.Get(ctx, s.SessionID)
	require.NoError(t, err)
	assert.Equal(t, "other@example.com", got.Email)
	assert.Empty(t, got.ChatHistory)
}

func TestPostgresSessions_Create(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	repo := NewPostgresSessions(db, logger.NewTestLogger(t))
	s := sampleSession()

	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO assistant_sessions (session_id, created_at, email, agenda_json, analyze_json, chat_json)")).
		WithArgs(s.SessionID, s.CreatedAt.UnixMilli(), s.Email, sqlmock.AnyArg(), sqlmock.AnyArg(), "[]").
		WillReturnResult(sqlmock.NewResult(0, 1))

	require.NoError(t, repo.Create(context.Background(), s))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresSessions_Get(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	repo := NewPostgresSessions(db, logger.NewTestLogger(t))
	s := sampleSession()
	agenda, _ := json.Marshal(s.Agenda)
	snapshot, _ := json.Marshal(s.AnalyzeSnapshot)

	query := regexp.QuoteMeta("FROM assistant_sessions") + `\s+WHERE session_id = \$1`
	rows := sqlmock.NewRows([]string{"session_id", "created_at", "email", "agenda_json", "analyze_json", "chat_json"}).
		AddRow(s.SessionID, s.CreatedAt.UnixMilli(), s.Email, string(agenda), string(snapshot), `[{"role":"user","content":"hi"}]`)
	mock.ExpectQuery(query).WithArgs(s.SessionID).WillReturnRows(rows)
	mock.ExpectQuery(query).WithArgs("gone").WillReturnRows(sqlmock.NewRows([]string{"session_id"}))

	got, ok, err := repo.Get(context.Background(), s.SessionID)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, s.Agenda, got.Agenda)
	assert.Equal(t, s.CreatedAt, got.CreatedAt)
	assert.Equal(t, []models.ChatTurn{{Role: "user", Content: "hi"}}, got.ChatHistory)

	_, ok, err = repo.Get(context.Background(), "gone")
	require.NoError(t, err)
	assert.False(t, ok)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresSessions_Errors(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	repo := NewPostgresSessions(db, logger.NewTestLogger(t))

	mock.ExpectExec(regexp.QuoteMeta("UPDATE assistant_sessions SET chat_json = $1 WHERE session_id = $2")).
		WithArgs("[]", "s-1").
		WillReturnError(errors.New("connection reset"))
	err = repo.UpdateChat(context.Background(), "s-1", nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "connection reset")

	mock.ExpectQuery("FROM assistant_sessions").
		WillReturnRows(sqlmock.NewRows([]string{"session_id", "created_at", "email", "agenda_json", "analyze_json", "chat_json"}).
			AddRow("s-1", int64(0), "e", "{not json", "{}", "[]"))
	_, _, err = repo.Get(context.Background(), "s-1")
	assert.True(t, errors.Is(err, ErrSessionDecode))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRedisResultCache_Miniredis(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	c := NewRedisResultCache(client, time.Minute)
	ctx := context.Background()

	_, ok, err := c.Get(ctx, "jane.doe@example.com")
	require.NoError(t, err)
	assert.False(t, ok)

	result := &models.AnalyzeResult{InputEmail: "jane.doe@example.com", OneMinuteBrief: "Brief"}
	result.FillDefaults()
	require.NoError(t, c.Set(ctx, "jane.doe@example.com", result))

	assert.True(t, mr.Exists("meeting-intel:analyze:jane.doe@example.com"))
	assert.Equal(t, time.Minute, mr.TTL("meeting-intel:analyze:jane.doe@example.com"))

	got, ok, err := c.Get(ctx, "jane.doe@example.com")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, result, got)

	mr.FastForward(40 * time.Second)
	remaining, err := c.Remaining(ctx, "jane.doe@example.com")
	require.NoError(t, err)
	assert.Equal(t, 20*time.Second, remaining)

	remaining, err = c.Remaining(ctx, "absent")
	require.NoError(t, err)
	assert.Zero(t, remaining)

	mr.FastForward(2 * time.Minute)
	_, ok, err = c.Get(ctx, "jane.doe@example.com")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestRedisResultCache_Errors(t *testing.T) {
	client, mock := redismock.NewClientMock()
	c := NewRedisResultCache(client, time.Minute)
	ctx := context.Background()

	mock.ExpectGet("meeting-intel:analyze:k").SetErr(errors.New("redis down"))
	_, ok, err := c.Get(ctx, "k")
	assert.Error(t, err)
	assert.False(t, ok)

	mock.ExpectGet("meeting-intel:analyze:k").SetVal("{broken")
	_, _, err = c.Get(ctx, "k")
	assert.Error(t, err)

	mock.ExpectPTTL("meeting-intel:analyze:k").SetErr(errors.New("redis down"))
	_, err = c.Remaining(ctx, "k")
	assert.Error(t, err)

	result := &models.AnalyzeResult{}
	data, _ := json.Marshal(result)
	mock.ExpectSet("meeting-intel:analyze:k", data, time.Minute).SetErr(errors.New("readonly"))
	assert.Error(t, c.Set(ctx, "k", result))

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestDossierArchive(t *testing.T) {
	var (
		mu   sync.Mutex
		path string
		body map[string]interface{}
	)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		mu.Lock()
		defer mu.Unlock()
		path = r.URL.Path
		raw, _ := io.ReadAll(r.Body)
		_ = json.Unmarshal(raw, &body)

		w.Header().Set("X-Elastic-Product", "Elasticsearch")
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusCreated)
		_, _ = w.Write([]byte(`{"result":"created"}`))
	}))
	t.Cleanup(srv.Close)

	es, err := elasticsearch.NewClient(elasticsearch.Config{Addresses: []string{srv.URL}})
	require.NoError(t, err)

	archive := NewDossierArchive(es, "meeting-intel-dossiers", logger.NewTestLogger(t))
	archive.now = func() time.Time { return time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC) }

	result := &models.AnalyzeResult{InputEmail: "jane.doe@example.com", OneMinuteBrief: "Brief"}
	result.FillDefaults()
	require.NoError(t, archive.Archive(context.Background(), "jane.doe@example.com", result))

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, "/meeting-intel-dossiers/_doc/jane.doe@example.com", path)
	assert.Equal(t, "Brief", body["one_minute_brief"])
	assert.Equal(t, "jane.doe@example.com", body["identity_key"])
	assert.Equal(t, "2026-01-02T03:04:05Z", body["archived_at"])
}

func TestDossierArchive_ErrorStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-Elastic-Product", "Elasticsearch")
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte(`{"error":"mapper_parsing_exception"}`))
	}))
	t.Cleanup(srv.Close)

	es, err := elasticsearch.NewClient(elasticsearch.Config{Addresses: []string{srv.URL}})
	require.NoError(t, err)

	archive := NewDossierArchive(es, "idx", logger.NewTestLogger(t))
	err = archive.Archive(context.Background(), "k", &models.AnalyzeResult{})
	assert.True(t, errors.Is(err, ErrArchiveFailed))
}
