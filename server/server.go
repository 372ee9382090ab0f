package server

import (
	"context"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	tweetrivia "github.com/tweetrivia/tweetrivia"
)

// PostFetcher resolves a handle to that author's recent posts. An empty
// result means the author is unknown or has nothing usable.
type PostFetcher interface {
	FetchPosts(ctx context.Context, username string) []tweetrivia.Post
}

// Pinner pins a JSON document to a content-addressed store and returns its
// content identifier.
type Pinner interface {
	PinJSON(ctx context.Context, v any) (string, error)
}

// PostCache caches fetched posts per handle.
type PostCache interface {
	CachedPosts(ctx context.Context, handle string) ([]tweetrivia.Post, error)
	CachePosts(ctx context.Context, handle string, posts []tweetrivia.Post, ttl time.Duration) error
}

// GenerateFunc matches tweetrivia.Generate and is injectable for tests.
type GenerateFunc func(posts []tweetrivia.Post, cfg tweetrivia.GenerateConfig, llm tweetrivia.LLM, logger *slog.Logger) tweetrivia.Result

// Deps carries the collaborators the server glues together. Pinner and Cache
// are optional; the server degrades gracefully without them.
type Deps struct {
	Store   tweetrivia.GameStore
	Fetcher PostFetcher
	LLM     tweetrivia.LLM
	Pinner  Pinner
	Cache   PostCache

	GenerateConfig tweetrivia.GenerateConfig
	StageSize      int
	CacheTTL       time.Duration

	// Generate defaults to tweetrivia.Generate.
	Generate GenerateFunc

	Logger *slog.Logger
}

// Server exposes the trivia-game HTTP surface: game creation, question
// retrieval, joining, and answer submission.
type Server struct {
	deps      Deps
	stageSize int
	logger    *slog.Logger
}

const defaultStageSize = 5

// New creates a Server from its dependencies.
func New(deps Deps) *Server {
	if deps.Generate == nil {
		deps.Generate = tweetrivia.Generate
	}
	stageSize := deps.StageSize
	if stageSize == 0 {
		stageSize = defaultStageSize
	}

	return &Server{
		deps:      deps,
		stageSize: stageSize,
		logger:    deps.Logger.With(slog.String("module", "server")),
	}
}

// Router builds the gin engine with all routes registered.
func (s *Server) Router() *gin.Engine {
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(cors.Default())

	router.GET("/healthcheck", s.healthCheck)

	api := router.Group("/api")
	{
		api.POST("/games", s.createGame)
		api.GET("/games/:id/questions", s.getQuestions)
		api.POST("/games/:id/join", s.joinGame)
		api.POST("/games/:id/submit", s.submitAnswers)
	}

	return router
}

func (s *Server) healthCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

type createGameRequest struct {
	Username    string `json:"username" binding:"required"`
	Basename    string `json:"basename"`
	StakeAmount int    `json:"stake_amount"`
	PlayerLimit int    `json:"player_limit"`
	Duration    int    `json:"duration"`
}

func (s *Server) createGame(c *gin.Context) {
	var req createGameRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	ctx := c.Request.Context()

	posts := s.lookupPosts(ctx, req.Username)
	if len(posts) == 0 {
		c.JSON(http.StatusUnprocessableEntity, gin.H{"error": "no posts found for user"})
		return
	}

	cfg := s.deps.GenerateConfig
	cfg.Subject = req.Username

	result := s.deps.Generate(posts, cfg, s.deps.LLM, s.logger)
	if len(result.Questions) == 0 {
		c.JSON(http.StatusUnprocessableEntity, gin.H{"error": "no questions could be generated"})
		return
	}

	basename := req.Basename
	if basename == "" {
		basename = req.Username
	}

	game := tweetrivia.Game{
		ID:          uuid.NewString(),
		Basename:    basename,
		StakeAmount: req.StakeAmount,
		PlayerLimit: req.PlayerLimit,
		Duration:    req.Duration,
		Status:      "open",
		EndTime:     time.Now().Add(time.Duration(req.Duration) * time.Second),
	}

	if err := s.deps.Store.SaveGame(ctx, game); err != nil {
		s.logger.Error("Failed to save game", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to save game"})
		return
	}

	stages := partitionStages(result.Questions, s.stageSize)
	for stage, questions := range stages {
		if err := s.deps.Store.SaveQuestions(ctx, game.ID, stage, questions); err != nil {
			s.logger.Error("Failed to save questions", "stage", stage, "error", err)
			c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to save questions"})
			return
		}
	}

	cid := s.pinQuestionSet(ctx, game.ID, result.Questions)

	s.logger.Info("Created game",
		"game_id", game.ID,
		"questions", len(result.Questions),
		"stages", len(stages),
		"repairs", len(result.Repairs),
		"cid", cid)

	c.JSON(http.StatusCreated, gin.H{
		"game_id":        game.ID,
		"cid":            cid,
		"question_count": len(result.Questions),
		"stages":         len(stages),
	})
}

// lookupPosts consults the cache before the fetch API and refreshes the
// cache on a miss. Cache errors are advisory.
func (s *Server) lookupPosts(ctx context.Context, username string) []tweetrivia.Post {
	if s.deps.Cache != nil {
		posts, err := s.deps.Cache.CachedPosts(ctx, username)
		if err == nil {
			return posts
		}
	}

	posts := s.deps.Fetcher.FetchPosts(ctx, username)

	if s.deps.Cache != nil && len(posts) > 0 {
		if err := s.deps.Cache.CachePosts(ctx, username, posts, s.deps.CacheTTL); err != nil {
			s.logger.Warn("Failed to cache posts", "username", username, "error", err)
		}
	}

	return posts
}

// pinQuestionSet pins the answer-withheld question set. Pinning is a
// commitment, not a prerequisite; failures log and return an empty CID.
func (s *Server) pinQuestionSet(ctx context.Context, gameID string, questions []tweetrivia.Question) string {
	if s.deps.Pinner == nil {
		return ""
	}

	public := make([]tweetrivia.PublicQuestion, len(questions))
	for i, q := range questions {
		public[i] = q.Public()
	}

	cid, err := s.deps.Pinner.PinJSON(ctx, gin.H{
		"game_id":   gameID,
		"questions": public,
	})
	if err != nil {
		s.logger.Error("Failed to pin question set", "game_id", gameID, "error", err)
		return ""
	}

	return cid
}

func partitionStages(questions []tweetrivia.Question, stageSize int) [][]tweetrivia.Question {
	var stages [][]tweetrivia.Question
	for start := 0; start < len(questions); start += stageSize {
		end := start + stageSize
		if end > len(questions) {
			end = len(questions)
		}
		stages = append(stages, questions[start:end])
	}
	return stages
}

func (s *Server) getQuestions(c *gin.Context) {
	gameID := c.Param("id")
	stage, err := strconv.Atoi(c.DefaultQuery("stage", "0"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid stage"})
		return
	}

	questions, err := s.deps.Store.Questions(c.Request.Context(), gameID, stage)
	if err != nil {
		s.logger.Warn("Failed to load questions", "game_id", gameID, "stage", stage, "error", err)
		c.JSON(http.StatusNotFound, gin.H{"error": "questions not found"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"game_id":   gameID,
		"stage":     stage,
		"questions": questions,
	})
}

type joinGameRequest struct {
	Username string `json:"username" binding:"required"`
}

func (s *Server) joinGame(c *gin.Context) {
	var req joinGameRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	gameID := c.Param("id")
	if err := s.deps.Store.JoinGame(c.Request.Context(), gameID, req.Username); err != nil {
		s.logger.Error("Failed to join game", "game_id", gameID, "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to join game"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"game_id": gameID, "username": req.Username})
}

type submitRequest struct {
	Username     string   `json:"username" binding:"required"`
	Stage        int      `json:"stage"`
	AnswerHashes []string `json:"answer_hashes" binding:"required"`
}

// submitAnswers scores a submission positionally against the stored
// fingerprints. A failed lookup is indistinguishable from an all-wrong
// submission at this boundary: both report score 0.
func (s *Server) submitAnswers(c *gin.Context) {
	var req submitRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	ctx := c.Request.Context()
	gameID := c.Param("id")

	score, err := tweetrivia.ValidateAnswers(ctx, s.deps.Store, gameID, req.Stage, req.AnswerHashes)
	if err != nil {
		s.logger.Error("Answer validation failed, reporting zero score",
			"game_id", gameID, "stage", req.Stage, "error", err)
		score = 0
	}

	if err := s.deps.Store.SaveSubmission(ctx, tweetrivia.Submission{
		GameID:       gameID,
		Username:     req.Username,
		Stage:        req.Stage,
		Score:        score,
		AnswerHashes: req.AnswerHashes,
	}); err != nil {
		s.logger.Error("Failed to save submission", "game_id", gameID, "error", err)
	}

	c.JSON(http.StatusOK, gin.H{
		"game_id": gameID,
		"stage":   req.Stage,
		"score":   score,
	})
}
