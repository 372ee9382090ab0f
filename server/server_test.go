package server_test

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	tweetrivia "github.com/tweetrivia/tweetrivia"
	"github.com/tweetrivia/tweetrivia/server"
)

func init() {
	gin.SetMode(gin.TestMode)
}

type fakeStore struct {
	games        []tweetrivia.Game
	stages       map[int][]tweetrivia.Question
	questions    []tweetrivia.PublicQuestion
	questionsErr error
	fingerprints []string
	lookupErr    error
	submissions  []tweetrivia.Submission
	joins        []string
}

func newFakeStore() *fakeStore {
	return &fakeStore{stages: make(map[int][]tweetrivia.Question)}
}

func (f *fakeStore) SaveGame(_ context.Context, game tweetrivia.Game) error {
	f.games = append(f.games, game)
	return nil
}

func (f *fakeStore) SaveQuestions(_ context.Context, _ string, stage int, questions []tweetrivia.Question) error {
	f.stages[stage] = questions
	return nil
}

func (f *fakeStore) Questions(_ context.Context, _ string, _ int) ([]tweetrivia.PublicQuestion, error) {
	return f.questions, f.questionsErr
}

func (f *fakeStore) QuestionFingerprints(_ context.Context, _ string, _ int) ([]string, error) {
	return f.fingerprints, f.lookupErr
}

func (f *fakeStore) JoinGame(_ context.Context, _, username string) error {
	f.joins = append(f.joins, username)
	return nil
}

func (f *fakeStore) SaveSubmission(_ context.Context, sub tweetrivia.Submission) error {
	f.submissions = append(f.submissions, sub)
	return nil
}

type fakeFetcher struct {
	posts  []tweetrivia.Post
	called bool
}

func (f *fakeFetcher) FetchPosts(_ context.Context, _ string) []tweetrivia.Post {
	f.called = true
	return f.posts
}

type fakeCache struct {
	posts  []tweetrivia.Post
	miss   bool
	stored int
}

func (f *fakeCache) CachedPosts(_ context.Context, _ string) ([]tweetrivia.Post, error) {
	if f.miss {
		return nil, errors.New("cache miss")
	}
	return f.posts, nil
}

func (f *fakeCache) CachePosts(_ context.Context, _ string, posts []tweetrivia.Post, _ time.Duration) error {
	f.stored = len(posts)
	return nil
}

type fakePinner struct {
	cid string
	err error
}

func (f *fakePinner) PinJSON(_ context.Context, _ any) (string, error) {
	return f.cid, f.err
}

type nopLLM struct{}

func (nopLLM) Chat(_ []string) (string, error) {
	return "", errors.New("not used")
}

func sampleQuestions(count int) []tweetrivia.Question {
	questions := make([]tweetrivia.Question, count)
	for i := range questions {
		questions[i] = tweetrivia.Question{
			Text:         "Question",
			Options:      []string{"a", "b", "c", "d"},
			CorrectIndex: 0,
		}
	}
	return questions
}

func stubGenerate(questions []tweetrivia.Question) server.GenerateFunc {
	return func(_ []tweetrivia.Post, _ tweetrivia.GenerateConfig, _ tweetrivia.LLM, _ *slog.Logger) tweetrivia.Result {
		return tweetrivia.Result{Questions: questions, Attempts: 1}
	}
}

func newTestServer(deps server.Deps) *gin.Engine {
	if deps.LLM == nil {
		deps.LLM = nopLLM{}
	}
	deps.Logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	return server.New(deps).Router()
}

func doJSON(t *testing.T, router *gin.Engine, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()

	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(data)
	}

	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	return rec
}

func TestHealthCheck(t *testing.T) {
	router := newTestServer(server.Deps{Store: newFakeStore(), Fetcher: &fakeFetcher{}})

	rec := doJSON(t, router, http.MethodGet, "/healthcheck", nil)

	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestCreateGame(t *testing.T) {
	posts := []tweetrivia.Post{{Text: "hello", CreatedAt: "Unknown"}}

	t.Run("Persists game and staged questions", func(t *testing.T) {
		store := newFakeStore()
		router := newTestServer(server.Deps{
			Store:    store,
			Fetcher:  &fakeFetcher{posts: posts},
			Generate: stubGenerate(sampleQuestions(12)),
		})

		rec := doJSON(t, router, http.MethodPost, "/api/games", gin.H{"username": "alice", "duration": 600})

		require.Equal(t, http.StatusCreated, rec.Code)

		var resp struct {
			GameID        string `json:"game_id"`
			CID           string `json:"cid"`
			QuestionCount int    `json:"question_count"`
			Stages        int    `json:"stages"`
		}
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))

		assert.NotEmpty(t, resp.GameID)
		assert.Equal(t, 12, resp.QuestionCount)
		assert.Equal(t, 3, resp.Stages)

		require.Len(t, store.games, 1)
		assert.Equal(t, "open", store.games[0].Status)
		assert.Equal(t, "alice", store.games[0].Basename)
		assert.Len(t, store.stages, 3)
		assert.Len(t, store.stages[0], 5)
		assert.Len(t, store.stages[2], 2)
	})

	t.Run("Missing username rejected", func(t *testing.T) {
		router := newTestServer(server.Deps{Store: newFakeStore(), Fetcher: &fakeFetcher{posts: posts}})

		rec := doJSON(t, router, http.MethodPost, "/api/games", gin.H{"duration": 600})

		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("No posts for user", func(t *testing.T) {
		router := newTestServer(server.Deps{Store: newFakeStore(), Fetcher: &fakeFetcher{}})

		rec := doJSON(t, router, http.MethodPost, "/api/games", gin.H{"username": "ghost"})

		assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	})

	t.Run("Cache hit skips fetch", func(t *testing.T) {
		fetcher := &fakeFetcher{}
		router := newTestServer(server.Deps{
			Store:    newFakeStore(),
			Fetcher:  fetcher,
			Cache:    &fakeCache{posts: posts},
			Generate: stubGenerate(sampleQuestions(5)),
		})

		rec := doJSON(t, router, http.MethodPost, "/api/games", gin.H{"username": "alice"})

		assert.Equal(t, http.StatusCreated, rec.Code)
		assert.False(t, fetcher.called)
	})

	t.Run("Cache miss refreshes cache", func(t *testing.T) {
		cache := &fakeCache{miss: true}
		router := newTestServer(server.Deps{
			Store:    newFakeStore(),
			Fetcher:  &fakeFetcher{posts: posts},
			Cache:    cache,
			Generate: stubGenerate(sampleQuestions(5)),
		})

		rec := doJSON(t, router, http.MethodPost, "/api/games", gin.H{"username": "alice"})

		assert.Equal(t, http.StatusCreated, rec.Code)
		assert.Equal(t, len(posts), cache.stored)
	})

	t.Run("Pin failure degrades to empty CID", func(t *testing.T) {
		router := newTestServer(server.Deps{
			Store:    newFakeStore(),
			Fetcher:  &fakeFetcher{posts: posts},
			Pinner:   &fakePinner{err: errors.New("gateway down")},
			Generate: stubGenerate(sampleQuestions(5)),
		})

		rec := doJSON(t, router, http.MethodPost, "/api/games", gin.H{"username": "alice"})

		require.Equal(t, http.StatusCreated, rec.Code)

		var resp map[string]any
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
		assert.Equal(t, "", resp["cid"])
	})

	t.Run("Pin success returns CID", func(t *testing.T) {
		router := newTestServer(server.Deps{
			Store:    newFakeStore(),
			Fetcher:  &fakeFetcher{posts: posts},
			Pinner:   &fakePinner{cid: "QmTest"},
			Generate: stubGenerate(sampleQuestions(5)),
		})

		rec := doJSON(t, router, http.MethodPost, "/api/games", gin.H{"username": "alice"})

		require.Equal(t, http.StatusCreated, rec.Code)

		var resp map[string]any
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
		assert.Equal(t, "QmTest", resp["cid"])
	})
}

func TestGetQuestions(t *testing.T) {
	t.Run("Returns stored questions", func(t *testing.T) {
		store := newFakeStore()
		store.questions = []tweetrivia.PublicQuestion{
			{Text: "Q1", Options: []string{"a", "b", "c", "d"}},
		}
		router := newTestServer(server.Deps{Store: store, Fetcher: &fakeFetcher{}})

		rec := doJSON(t, router, http.MethodGet, "/api/games/g1/questions?stage=1", nil)

		require.Equal(t, http.StatusOK, rec.Code)
		assert.Contains(t, rec.Body.String(), "Q1")
		assert.NotContains(t, rec.Body.String(), "correct")
	})

	t.Run("Lookup failure maps to not found", func(t *testing.T) {
		store := newFakeStore()
		store.questionsErr = errors.New("no rows")
		router := newTestServer(server.Deps{Store: store, Fetcher: &fakeFetcher{}})

		rec := doJSON(t, router, http.MethodGet, "/api/games/g1/questions", nil)

		assert.Equal(t, http.StatusNotFound, rec.Code)
	})
}

func TestJoinGame(t *testing.T) {
	store := newFakeStore()
	router := newTestServer(server.Deps{Store: store, Fetcher: &fakeFetcher{}})

	rec := doJSON(t, router, http.MethodPost, "/api/games/g1/join", gin.H{"username": "bob"})

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, []string{"bob"}, store.joins)
}

func TestSubmitAnswers(t *testing.T) {
	hashes := []string{
		tweetrivia.Fingerprint("q1", "a1"),
		tweetrivia.Fingerprint("q2", "a2"),
	}

	t.Run("Scores matching hashes", func(t *testing.T) {
		store := newFakeStore()
		store.fingerprints = hashes
		router := newTestServer(server.Deps{Store: store, Fetcher: &fakeFetcher{}})

		rec := doJSON(t, router, http.MethodPost, "/api/games/g1/submit", gin.H{
			"username":      "bob",
			"stage":         0,
			"answer_hashes": []string{hashes[0], "0xwrong"},
		})

		require.Equal(t, http.StatusOK, rec.Code)

		var resp struct {
			Score int `json:"score"`
		}
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
		assert.Equal(t, 1, resp.Score)

		require.Len(t, store.submissions, 1)
		assert.Equal(t, 1, store.submissions[0].Score)
		assert.Equal(t, "bob", store.submissions[0].Username)
	})

	t.Run("Lookup failure reports zero score", func(t *testing.T) {
		store := newFakeStore()
		store.lookupErr = errors.New("database down")
		router := newTestServer(server.Deps{Store: store, Fetcher: &fakeFetcher{}})

		rec := doJSON(t, router, http.MethodPost, "/api/games/g1/submit", gin.H{
			"username":      "bob",
			"answer_hashes": []string{"0xdeadbeef"},
		})

		require.Equal(t, http.StatusOK, rec.Code)

		var resp struct {
			Score int `json:"score"`
		}
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
		assert.Equal(t, 0, resp.Score)
	})

	t.Run("Missing answer hashes rejected", func(t *testing.T) {
		router := newTestServer(server.Deps{Store: newFakeStore(), Fetcher: &fakeFetcher{}})

		rec := doJSON(t, router, http.MethodPost, "/api/games/g1/submit", gin.H{"username": "bob"})

		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})
}
