package storage

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	tweetrivia "github.com/tweetrivia/tweetrivia"
)

// Postgres provides a PostgreSQL implementation of the GameStore interface
// backed by a pgx connection pool. It owns the relational schema for games,
// questions, participants, and submissions.
type Postgres struct {
	pool   *pgxpool.Pool
	logger *slog.Logger
}

// NewPostgres creates a new PostgreSQL client pool from the provided DSN and
// verifies the connection.
func NewPostgres(ctx context.Context, dsn string, logger *slog.Logger) (Postgres, error) {
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return Postgres{}, fmt.Errorf("failed to create postgres pool: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return Postgres{}, fmt.Errorf("failed to connect to postgres: %w", err)
	}

	return Postgres{
		pool:   pool,
		logger: logger.With(slog.String("module", "postgres")),
	}, nil
}

// Close releases the underlying connection pool.
func (p Postgres) Close() {
	p.pool.Close()
}

var schemaStatements = []string{
	`CREATE TABLE IF NOT EXISTS users (
		username TEXT PRIMARY KEY,
		wallet_address TEXT,
		created_at TIMESTAMPTZ DEFAULT CURRENT_TIMESTAMP,
		updated_at TIMESTAMPTZ DEFAULT CURRENT_TIMESTAMP
	)`,
	`CREATE TABLE IF NOT EXISTS games (
		id TEXT PRIMARY KEY,
		basename TEXT NOT NULL,
		stake_amount INTEGER NOT NULL,
		player_limit INTEGER NOT NULL,
		duration INTEGER NOT NULL,
		status TEXT NOT NULL,
		end_time TIMESTAMPTZ NOT NULL,
		created_at TIMESTAMPTZ DEFAULT CURRENT_TIMESTAMP
	)`,
	`CREATE TABLE IF NOT EXISTS questions (
		id BIGSERIAL PRIMARY KEY,
		game_id TEXT REFERENCES games(id),
		stage INTEGER NOT NULL,
		position INTEGER NOT NULL,
		question_text TEXT NOT NULL,
		options TEXT[] NOT NULL,
		correct_answer TEXT NOT NULL,
		hash TEXT NOT NULL,
		created_at TIMESTAMPTZ DEFAULT CURRENT_TIMESTAMP
	)`,
	`CREATE TABLE IF NOT EXISTS game_participants (
		game_id TEXT REFERENCES games(id),
		username TEXT NOT NULL,
		joined_at TIMESTAMPTZ DEFAULT CURRENT_TIMESTAMP,
		PRIMARY KEY (game_id, username)
	)`,
	`CREATE TABLE IF NOT EXISTS submissions (
		id BIGSERIAL PRIMARY KEY,
		game_id TEXT REFERENCES games(id),
		username TEXT NOT NULL,
		stage INTEGER NOT NULL,
		score INTEGER NOT NULL,
		answer_hashes TEXT[] NOT NULL,
		submitted_at TIMESTAMPTZ DEFAULT CURRENT_TIMESTAMP
	)`,
}

// InitSchema creates the database tables if they do not exist.
func (p Postgres) InitSchema(ctx context.Context) error {
	for _, stmt := range schemaStatements {
		if _, err := p.pool.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("failed to create table: %w", err)
		}
	}

	p.logger.Info("Database schema ready")

	return nil
}

// SaveGame inserts a new game record.
func (p Postgres) SaveGame(ctx context.Context, game tweetrivia.Game) error {
	_, err := p.pool.Exec(ctx,
		`INSERT INTO games (id, basename, stake_amount, player_limit, duration, status, end_time)
		 VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		game.ID, game.Basename, game.StakeAmount, game.PlayerLimit, game.Duration, game.Status, game.EndTime)
	if err != nil {
		return fmt.Errorf("failed to insert game: %w", err)
	}

	return nil
}

// SaveQuestions inserts the ordered question set for a game stage in a single
// transaction. The correct answer is stored as the resolved option text.
func (p Postgres) SaveQuestions(ctx context.Context, gameID string, stage int, questions []tweetrivia.Question) error {
	tx, err := p.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() {
		_ = tx.Rollback(ctx)
	}()

	for i, q := range questions {
		_, err := tx.Exec(ctx,
			`INSERT INTO questions (game_id, stage, position, question_text, options, correct_answer, hash)
			 VALUES ($1, $2, $3, $4, $5, $6, $7)`,
			gameID, stage, i, q.Text, q.Options, q.Answer(), q.Fingerprint)
		if err != nil {
			return fmt.Errorf("failed to insert question: %w", err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("failed to commit questions: %w", err)
	}

	return nil
}

// Questions returns the ordered question set for a game stage with the
// correct answer withheld.
func (p Postgres) Questions(ctx context.Context, gameID string, stage int) ([]tweetrivia.PublicQuestion, error) {
	rows, err := p.pool.Query(ctx,
		`SELECT question_text, options, hash FROM questions
		 WHERE game_id = $1 AND stage = $2 ORDER BY position`,
		gameID, stage)
	if err != nil {
		return nil, fmt.Errorf("failed to query questions: %w", err)
	}
	defer rows.Close()

	var questions []tweetrivia.PublicQuestion
	for rows.Next() {
		var q tweetrivia.PublicQuestion
		if err := rows.Scan(&q.Text, &q.Options, &q.Fingerprint); err != nil {
			return nil, fmt.Errorf("failed to scan question: %w", err)
		}
		questions = append(questions, q)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read questions: %w", err)
	}

	return questions, nil
}

// QuestionFingerprints returns the ordered fingerprints for a game stage.
func (p Postgres) QuestionFingerprints(ctx context.Context, gameID string, stage int) ([]string, error) {
	rows, err := p.pool.Query(ctx,
		`SELECT hash FROM questions WHERE game_id = $1 AND stage = $2 ORDER BY position`,
		gameID, stage)
	if err != nil {
		return nil, fmt.Errorf("failed to query fingerprints: %w", err)
	}
	defer rows.Close()

	fingerprints, err := pgx.CollectRows(rows, pgx.RowTo[string])
	if err != nil {
		return nil, fmt.Errorf("failed to read fingerprints: %w", err)
	}

	return fingerprints, nil
}

// JoinGame records a participant for a game. Joining twice is a no-op.
func (p Postgres) JoinGame(ctx context.Context, gameID, username string) error {
	_, err := p.pool.Exec(ctx,
		`INSERT INTO game_participants (game_id, username) VALUES ($1, $2)
		 ON CONFLICT (game_id, username) DO NOTHING`,
		gameID, username)
	if err != nil {
		return fmt.Errorf("failed to insert participant: %w", err)
	}

	return nil
}

// SaveSubmission records a scored answer submission.
func (p Postgres) SaveSubmission(ctx context.Context, submission tweetrivia.Submission) error {
	_, err := p.pool.Exec(ctx,
		`INSERT INTO submissions (game_id, username, stage, score, answer_hashes)
		 VALUES ($1, $2, $3, $4, $5)`,
		submission.GameID, submission.Username, submission.Stage, submission.Score, submission.AnswerHashes)
	if err != nil {
		return fmt.Errorf("failed to insert submission: %w", err)
	}

	return nil
}
