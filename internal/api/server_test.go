package api

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"os"
	"testing"
	"time"

	"github.com/danielgtaylor/huma/v2/humatest"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/listenupapp/recall-server/internal/fixture"
	"github.com/listenupapp/recall-server/internal/ratelimit"
	"github.com/listenupapp/recall-server/internal/service"
	"github.com/listenupapp/recall-server/internal/store/kv"
	"github.com/listenupapp/recall-server/internal/validation"
)

var testNow = time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

// testFixture gives alice a small tree (math -> algebra, geo) and bob one tag.
const testFixture = `
users:
  - id: alice
    tags:
      - {id: math, name: Math}
      - {id: algebra, name: Algebra}
      - {id: geo, name: Geography}
    edges:
      - {parent: math, child: algebra}
    questions:
      - id: q1
        body: "2x = 4, x = ?"
        created: -3d
        tags: [algebra]
        schedules:
          - {created: -2d, next: -1h}
      - id: q2
        body: "Define a group"
        created: -2d
        tags: [math]
      - id: q3
        body: "Capital of Peru?"
        created: -1d
        tags: [geo]
        schedules:
          - {created: -1d, next: +1d}
  - id: bob
    tags:
      - {id: bio, name: Biology}
`

// testEnvelope mirrors the response envelope for decoding in tests.
type testEnvelope[T any] struct {
	Version int             `json:"v"`
	Success bool            `json:"success"`
	Data    T               `json:"data"`
	Error   string          `json:"error"`
	Code    string          `json:"code"`
	Message string          `json:"message"`
	Details json.RawMessage `json:"details"`
}

type testServer struct {
	*Server
	api humatest.TestAPI
}

func setupTestServer(t *testing.T, opts Options) *testServer {
	t.Helper()

	st, err := kv.Open("", nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = st.Close() })

	f, err := fixture.Parse([]byte(testFixture))
	require.NoError(t, err)
	_, err = f.Apply(context.Background(), st, testNow)
	require.NoError(t, err)

	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))
	tags := service.NewTagService(st, logger)
	services := &Services{
		Tag:      tags,
		Question: service.NewQuestionService(st, tags, logger),
	}

	s := NewServer(st, services, validation.New(), opts, logger)
	s.clock = func() time.Time { return testNow }

	return &testServer{Server: s, api: humatest.Wrap(t, s.API())}
}

func decode[T any](t *testing.T, body []byte) testEnvelope[T] {
	t.Helper()
	var env testEnvelope[T]
	require.NoError(t, json.Unmarshal(body, &env), "body: %s", body)
	assert.Equal(t, EnvelopeVersion, env.Version)
	return env
}

func asAlice() string { return UserIDHeader + ": alice" }

func TestHealthCheck(t *testing.T) {
	ts := setupTestServer(t, Options{})

	resp := ts.api.Get("/health")
	require.Equal(t, http.StatusOK, resp.Code, resp.Body.String())

	env := decode[HealthResponse](t, resp.Body.Bytes())
	assert.True(t, env.Success)
	assert.Equal(t, "healthy", env.Data.Status)
	assert.Equal(t, "healthy", env.Data.Components["database"].Status)
}

func TestHealthCheck_ClosedStore(t *testing.T) {
	ts := setupTestServer(t, Options{})
	require.NoError(t, ts.store.Close())

	resp := ts.api.Get("/health")
	require.Equal(t, http.StatusOK, resp.Code)

	env := decode[HealthResponse](t, resp.Body.Bytes())
	assert.Equal(t, "unhealthy", env.Data.Status)
}

func TestGetTagHierarchy(t *testing.T) {
	ts := setupTestServer(t, Options{})

	resp := ts.api.Get("/api/v1/tags/hierarchy", asAlice())
	require.Equal(t, http.StatusOK, resp.Code, resp.Body.String())

	env := decode[TagHierarchyResponse](t, resp.Body.Bytes())
	require.Len(t, env.Data.Entries, 3)

	ids := []string{env.Data.Entries[0].TagID, env.Data.Entries[1].TagID, env.Data.Entries[2].TagID}
	assert.Equal(t, []string{"algebra", "geo", "math"}, ids)

	math := env.Data.Entries[2]
	assert.Equal(t, "Math", math.TagName)
	assert.Equal(t, []string{"algebra"}, math.Children)
	assert.Equal(t, []string{"algebra", "math"}, math.DescendantsAndSelf)
	assert.Equal(t, 2, math.CountQuestionsAll)
	assert.Equal(t, 1, math.CountQuestionsTag)

	geo := env.Data.Entries[1]
	assert.NotNil(t, geo.Parents, "empty lists serialize as []")
	assert.Empty(t, geo.Parents)
}

func TestGetTagHierarchy_RequiresUser(t *testing.T) {
	ts := setupTestServer(t, Options{})

	resp := ts.api.Get("/api/v1/tags/hierarchy")
	require.Equal(t, http.StatusBadRequest, resp.Code)

	env := decode[any](t, resp.Body.Bytes())
	assert.False(t, env.Success)
	assert.Equal(t, "VALIDATION", env.Code)
	assert.Contains(t, env.Message, UserIDHeader)
}

func TestExpandTags(t *testing.T) {
	ts := setupTestServer(t, Options{})

	resp := ts.api.Post("/api/v1/tags/expand", asAlice(), map[string]any{"tag_ids": []string{"math"}})
	require.Equal(t, http.StatusOK, resp.Code, resp.Body.String())

	env := decode[ExpandTagsResponse](t, resp.Body.Bytes())
	assert.Equal(t, []string{"algebra", "math"}, env.Data.TagIDs)
}

func TestExpandTags_ForeignTagForbidden(t *testing.T) {
	ts := setupTestServer(t, Options{})

	resp := ts.api.Post("/api/v1/tags/expand", asAlice(), map[string]any{"tag_ids": []string{"math", "bio"}})
	require.Equal(t, http.StatusForbidden, resp.Code, resp.Body.String())

	env := decode[any](t, resp.Body.Bytes())
	assert.Equal(t, "FORBIDDEN", env.Code)
}

func TestValidateTags(t *testing.T) {
	ts := setupTestServer(t, Options{})

	tests := []struct {
		name        string
		tagIDs      []string
		wantStatus  int
		wantCode    string
		wantMessage string
		wantDetails map[string][]string
	}{
		{
			name:       "owned",
			tagIDs:     []string{"math", "geo"},
			wantStatus: http.StatusOK,
		},
		{
			name:       "empty list",
			tagIDs:     []string{},
			wantStatus: http.StatusOK,
		},
		{
			name:        "foreign",
			tagIDs:      []string{"math", "bio"},
			wantStatus:  http.StatusForbidden,
			wantCode:    "FORBIDDEN",
			wantMessage: "not owned by user: [bio]",
			wantDetails: map[string][]string{"not_owned": {"bio"}, "not_exist": {}},
		},
		{
			name:        "foreign and missing",
			tagIDs:      []string{"nope", "bio"},
			wantStatus:  http.StatusNotFound,
			wantCode:    "NOT_FOUND",
			wantMessage: "not owned by user: [bio]; do not exist: [nope]",
			wantDetails: map[string][]string{"not_owned": {"bio"}, "not_exist": {"nope"}},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp := ts.api.Post("/api/v1/tags/validate", asAlice(), map[string]any{"tag_ids": tt.tagIDs})
			require.Equal(t, tt.wantStatus, resp.Code, resp.Body.String())

			if tt.wantStatus == http.StatusOK {
				env := decode[ValidateTagsResponse](t, resp.Body.Bytes())
				assert.True(t, env.Data.Valid)
				return
			}

			env := decode[any](t, resp.Body.Bytes())
			assert.Equal(t, tt.wantCode, env.Code)
			assert.Equal(t, tt.wantMessage, env.Message)

			var details map[string][]string
			require.NoError(t, json.Unmarshal(env.Details, &details))
			assert.Equal(t, tt.wantDetails, details)
		})
	}
}

func TestSelectNextQuestion(t *testing.T) {
	ts := setupTestServer(t, Options{})

	tests := []struct {
		name          string
		body          map[string]any
		wantQuestion  string
		wantBucket    string
		wantCount     int
		wantOverdue   int
		wantTagNames  []string
		wantScheduled bool
	}{
		{
			name:          "overdue first",
			body:          map[string]any{"tag_ids": []string{"math"}},
			wantQuestion:  "q1",
			wantBucket:    "overdue",
			wantCount:     2,
			wantOverdue:   1,
			wantTagNames:  []string{"Math"},
			wantScheduled: true,
		},
		{
			name:         "unscheduled mode",
			body:         map[string]any{"tag_ids": []string{"math"}, "mode": "unscheduled"},
			wantQuestion: "q2",
			wantBucket:   "unscheduled",
			wantCount:    2,
			wantOverdue:  1,
			wantTagNames: []string{"Math"},
		},
		{
			name:          "no tags selects every tag",
			body:          map[string]any{"mode": "upcoming"},
			wantQuestion:  "q3",
			wantBucket:    "upcoming",
			wantCount:     3,
			wantOverdue:   1,
			wantTagNames:  []string{"Algebra", "Geography", "Math"},
			wantScheduled: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp := ts.api.Post("/api/v1/questions/next", asAlice(), tt.body)
			require.Equal(t, http.StatusOK, resp.Code, resp.Body.String())

			env := decode[NextQuestionResponse](t, resp.Body.Bytes())
			require.NotNil(t, env.Data.Question)
			assert.Equal(t, tt.wantQuestion, env.Data.Question.ID)
			assert.Equal(t, tt.wantBucket, env.Data.Bucket)
			assert.Equal(t, tt.wantCount, env.Data.CandidateCount)
			assert.Equal(t, tt.wantOverdue, env.Data.OverdueCount)
			assert.Equal(t, tt.wantTagNames, env.Data.MatchedTagNames)
			assert.Equal(t, tt.wantScheduled, env.Data.Schedule != nil)
		})
	}
}

func TestSelectNextQuestion_NothingMatches(t *testing.T) {
	ts := setupTestServer(t, Options{})

	resp := ts.api.Post("/api/v1/questions/next", UserIDHeader+": bob", map[string]any{})
	require.Equal(t, http.StatusOK, resp.Code, resp.Body.String())

	var raw struct {
		Data map[string]json.RawMessage `json:"data"`
	}
	require.NoError(t, json.Unmarshal(resp.Body.Bytes(), &raw))
	assert.JSONEq(t, "null", string(raw.Data["question"]))
	assert.JSONEq(t, `""`, string(raw.Data["bucket"]))
	assert.JSONEq(t, "0", string(raw.Data["candidate_count"]))
	assert.JSONEq(t, `["Biology"]`, string(raw.Data["matched_tag_names"]))
}

func TestSelectNextQuestion_Errors(t *testing.T) {
	ts := setupTestServer(t, Options{})

	tests := []struct {
		name       string
		body       map[string]any
		wantStatus int
		wantCode   string
	}{
		{"unknown mode", map[string]any{"mode": "sideways"}, http.StatusBadRequest, "INVALID_SELECTOR_STATE"},
		{"foreign tag", map[string]any{"tag_ids": []string{"bio"}}, http.StatusForbidden, "FORBIDDEN"},
		{"missing tag", map[string]any{"tag_ids": []string{"nope"}}, http.StatusNotFound, "NOT_FOUND"},
		{"whitespace tag id", map[string]any{"tag_ids": []string{"a b"}}, http.StatusBadRequest, "VALIDATION"},
		{"wrong type", map[string]any{"tag_ids": "math"}, http.StatusBadRequest, "VALIDATION"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp := ts.api.Post("/api/v1/questions/next", asAlice(), tt.body)
			require.Equal(t, tt.wantStatus, resp.Code, resp.Body.String())

			env := decode[any](t, resp.Body.Bytes())
			assert.False(t, env.Success)
			assert.Equal(t, tt.wantCode, env.Code)
		})
	}
}

func TestCreateAndLinkTags(t *testing.T) {
	ts := setupTestServer(t, Options{})

	resp := ts.api.Post("/api/v1/tags", asAlice(), map[string]any{"name": "  Linear   Algebra "})
	require.Equal(t, http.StatusCreated, resp.Code, resp.Body.String())

	created := decode[TagResponse](t, resp.Body.Bytes()).Data
	assert.Equal(t, "Linear Algebra", created.Name)
	assert.Regexp(t, `^tag-`, created.ID)

	resp = ts.api.Post("/api/v1/tags", asAlice(), map[string]any{"name": "Linear Algebra"})
	require.Equal(t, http.StatusConflict, resp.Code, resp.Body.String())
	assert.Equal(t, "ALREADY_EXISTS", decode[any](t, resp.Body.Bytes()).Code)

	resp = ts.api.Post("/api/v1/tags/links", asAlice(), map[string]any{"parent_id": "algebra", "child_id": created.ID})
	require.Equal(t, http.StatusNoContent, resp.Code, resp.Body.String())

	resp = ts.api.Post("/api/v1/tags/expand", asAlice(), map[string]any{"tag_ids": []string{"math"}})
	require.Equal(t, http.StatusOK, resp.Code)
	assert.Contains(t, decode[ExpandTagsResponse](t, resp.Body.Bytes()).Data.TagIDs, created.ID)

	resp = ts.api.Post("/api/v1/tags/links", asAlice(), map[string]any{"parent_id": "math", "child_id": "bio"})
	require.Equal(t, http.StatusForbidden, resp.Code, resp.Body.String())
}

func TestRequestID(t *testing.T) {
	ts := setupTestServer(t, Options{})

	resp := ts.api.Get("/health")
	assert.Len(t, resp.Header().Get(RequestIDHeader), 36, "generated ids are UUIDs")

	resp = ts.api.Get("/health", RequestIDHeader+": client-chosen")
	assert.Equal(t, "client-chosen", resp.Header().Get(RequestIDHeader))
}

func TestCORSPreflight(t *testing.T) {
	ts := setupTestServer(t, Options{CORSAllowedOrigins: []string{"https://quiz.example"}})

	resp := ts.api.Do(http.MethodOptions, "/api/v1/questions/next",
		"Origin: https://quiz.example",
		"Access-Control-Request-Method: POST",
	)
	assert.Equal(t, "https://quiz.example", resp.Header().Get("Access-Control-Allow-Origin"))

	resp = ts.api.Get("/health", "Origin: https://evil.example")
	assert.Empty(t, resp.Header().Get("Access-Control-Allow-Origin"))
}

func TestRateLimit(t *testing.T) {
	limiter := ratelimit.New(0.001, 2)
	t.Cleanup(limiter.Stop)
	ts := setupTestServer(t, Options{Limiter: limiter})

	for range 2 {
		resp := ts.api.Get("/health", "X-Real-IP: 10.0.0.7")
		require.Equal(t, http.StatusOK, resp.Code)
	}

	resp := ts.api.Get("/health", "X-Real-IP: 10.0.0.7")
	require.Equal(t, http.StatusTooManyRequests, resp.Code)
	env := decode[any](t, resp.Body.Bytes())
	assert.Equal(t, "RATE_LIMITED", env.Code)
	assert.Equal(t, "1", resp.Header().Get("Retry-After"))

	resp = ts.api.Get("/health", "X-Real-IP: 10.0.0.8")
	assert.Equal(t, http.StatusOK, resp.Code, "other clients keep their own budget")
}
