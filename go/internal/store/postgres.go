package store

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/geodueler/geodueler/go/internal/models"
	"github.com/geodueler/geodueler/go/internal/sqlutil"
)

// codeRetries bounds how many times CreateRoom re-rolls a colliding code.
const codeRetries = 5

// Repository implements the room-store contract against Postgres.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository creates a Postgres-backed room store.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// Connect opens a pgx pool and verifies the connection. A failure here
// means the store is unavailable and the caller should degrade to
// solo-only play.
func Connect(ctx context.Context, dsn string) (*Repository, error) {
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	return &Repository{pool: pool}, nil
}

// Close releases the underlying pool.
func (r *Repository) Close() {
	r.pool.Close()
}

// CreateRoom inserts a room with a fresh unique code and registers the
// host as its first player. Code collisions are retried with a new code.
func (r *Repository) CreateRoom(ctx context.Context, req CreateRoomRequest) (*models.Room, error) {
	var room models.Room
	for attempt := 0; ; attempt++ {
		code := GenerateRoomCode()
		err := r.pool.QueryRow(ctx, `
			INSERT INTO rooms (id, code, host_id, status, current_round, max_rounds, time_limit)
			VALUES ($1, $2, $3, $4, 0, $5, $6)
			RETURNING id, code, host_id, status, current_round, max_rounds, time_limit, created_at`,
			uuid.New(), code, req.HostID, models.RoomStatusWaiting, req.MaxRounds, req.TimeLimitSec,
		).Scan(&room.ID, &room.Code, &room.HostID, &room.Status,
			&room.CurrentRound, &room.MaxRounds, &room.TimeLimitSec, &room.CreatedAt)
		if err == nil {
			break
		}
		if isUniqueViolation(err) && attempt < codeRetries {
			continue
		}
		return nil, fmt.Errorf("failed to create room: %w", err)
	}

	if _, err := r.UpsertPlayer(ctx, UpsertPlayerRequest{
		ID:     req.HostID,
		RoomID: room.ID,
		Name:   req.HostName,
		IsHost: true,
	}); err != nil {
		return nil, fmt.Errorf("failed to add host player: %w", err)
	}
	return &room, nil
}

// GetRoomByCode looks a room up by its shareable code, case-insensitively.
func (r *Repository) GetRoomByCode(ctx context.Context, code string) (*models.Room, error) {
	var room models.Room
	err := r.pool.QueryRow(ctx, `
		SELECT id, code, host_id, status, current_round, max_rounds, time_limit, created_at
		FROM rooms
		WHERE code = upper($1)`,
		code,
	).Scan(&room.ID, &room.Code, &room.HostID, &room.Status,
		&room.CurrentRound, &room.MaxRounds, &room.TimeLimitSec, &room.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("room %q: %w", code, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get room by code: %w", err)
	}
	return &room, nil
}

// UpdateRoomStatus advances the room status and, when currentRound is
// non-nil, the round index. Only the host instance calls this.
func (r *Repository) UpdateRoomStatus(ctx context.Context, roomID uuid.UUID, status models.RoomStatus, currentRound *int) error {
	var err error
	if currentRound != nil {
		_, err = r.pool.Exec(ctx,
			`UPDATE rooms SET status = $2, current_round = $3 WHERE id = $1`,
			roomID, status, *currentRound)
	} else {
		_, err = r.pool.Exec(ctx,
			`UPDATE rooms SET status = $2 WHERE id = $1`,
			roomID, status)
	}
	if err != nil {
		return fmt.Errorf("failed to update room status: %w", err)
	}
	return nil
}

// UpsertPlayer adds a player to a room, or updates the existing row when
// the same client id rejoins.
func (r *Repository) UpsertPlayer(ctx context.Context, req UpsertPlayerRequest) (*models.Player, error) {
	var p models.Player
	err := r.pool.QueryRow(ctx, `
		INSERT INTO players (id, room_id, name, score, is_host)
		VALUES ($1, $2, $3, 0, $4)
		ON CONFLICT (id) DO UPDATE
		SET room_id = EXCLUDED.room_id, name = EXCLUDED.name, is_host = EXCLUDED.is_host
		RETURNING id, room_id, name, score, is_host`,
		req.ID, req.RoomID, req.Name, req.IsHost,
	).Scan(&p.ID, &p.RoomID, &p.Name, &p.Score, &p.IsHost)
	if err != nil {
		return nil, fmt.Errorf("failed to upsert player: %w", err)
	}
	return &p, nil
}

// ListPlayersByRoom returns a room's players ordered by score descending.
func (r *Repository) ListPlayersByRoom(ctx context.Context, roomID uuid.UUID) ([]models.Player, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT id, room_id, name, score, is_host
		FROM players
		WHERE room_id = $1
		ORDER BY score DESC`,
		roomID)
	if err != nil {
		return nil, fmt.Errorf("failed to list players: %w", err)
	}
	defer rows.Close()

	var players []models.Player
	for rows.Next() {
		var p models.Player
		if err := rows.Scan(&p.ID, &p.RoomID, &p.Name, &p.Score, &p.IsHost); err != nil {
			return nil, fmt.Errorf("failed to scan player: %w", err)
		}
		players = append(players, p)
	}
	return players, rows.Err()
}

// AddPlayerScore adds a round score to a player's cumulative total. The
// read and the write run in one transaction; a player plays one session
// from one client, so the id sees no concurrent increments, but a retry
// after a dropped connection must not double-apply a partial write.
func (r *Repository) AddPlayerScore(ctx context.Context, playerID string, delta int) error {
	return sqlutil.Run(ctx, r.pool, func(tx pgx.Tx) error {
		var current int
		err := tx.QueryRow(ctx,
			`SELECT score FROM players WHERE id = $1 FOR UPDATE`, playerID).Scan(&current)
		if errors.Is(err, pgx.ErrNoRows) {
			return fmt.Errorf("player %q: %w", playerID, ErrNotFound)
		}
		if err != nil {
			return fmt.Errorf("failed to read player score: %w", err)
		}

		if _, err := tx.Exec(ctx,
			`UPDATE players SET score = $2 WHERE id = $1`, playerID, current+delta); err != nil {
			return fmt.Errorf("failed to write player score: %w", err)
		}
		return nil
	})
}

// RemovePlayer deletes a player row when the client explicitly leaves.
func (r *Repository) RemovePlayer(ctx context.Context, playerID string) error {
	if _, err := r.pool.Exec(ctx, `DELETE FROM players WHERE id = $1`, playerID); err != nil {
		return fmt.Errorf("failed to remove player: %w", err)
	}
	return nil
}

// CreateRound persists a round target. Exactly one row may exist per
// (room, number); a duplicate insert surfaces ErrDuplicate.
func (r *Repository) CreateRound(ctx context.Context, req CreateRoundRequest) (*models.Round, error) {
	var round models.Round
	err := r.pool.QueryRow(ctx, `
		INSERT INTO rounds (id, room_id, round_number, lat, lng)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id, room_id, round_number, lat, lng`,
		uuid.New(), req.RoomID, req.RoundNumber, req.Lat, req.Lng,
	).Scan(&round.ID, &round.RoomID, &round.RoundNumber, &round.Lat, &round.Lng)
	if isUniqueViolation(err) {
		return nil, fmt.Errorf("round %d in room %s: %w", req.RoundNumber, req.RoomID, ErrDuplicate)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to create round: %w", err)
	}
	return &round, nil
}

// GetRoundByNumber fetches the round row for a (room, number) pair.
// ErrNotFound here is expected while a freshly written round propagates.
func (r *Repository) GetRoundByNumber(ctx context.Context, roomID uuid.UUID, roundNumber int) (*models.Round, error) {
	var round models.Round
	err := r.pool.QueryRow(ctx, `
		SELECT id, room_id, round_number, lat, lng
		FROM rounds
		WHERE room_id = $1 AND round_number = $2`,
		roomID, roundNumber,
	).Scan(&round.ID, &round.RoomID, &round.RoundNumber, &round.Lat, &round.Lng)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("round %d in room %s: %w", roundNumber, roomID, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get round: %w", err)
	}
	return &round, nil
}

// UpsertGuess records a guess, replacing any earlier guess by the same
// player for the same round.
func (r *Repository) UpsertGuess(ctx context.Context, req UpsertGuessRequest) (*models.Guess, error) {
	var g models.Guess
	err := r.pool.QueryRow(ctx, `
		INSERT INTO guesses (round_id, player_id, guess_lat, guess_lng, distance, score)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (round_id, player_id) DO UPDATE
		SET guess_lat = EXCLUDED.guess_lat, guess_lng = EXCLUDED.guess_lng,
		    distance = EXCLUDED.distance, score = EXCLUDED.score
		RETURNING round_id, player_id, guess_lat, guess_lng, distance, score`,
		req.RoundID, req.PlayerID, req.GuessLat, req.GuessLng, req.DistanceKm, req.Score,
	).Scan(&g.RoundID, &g.PlayerID, &g.GuessLat, &g.GuessLng, &g.DistanceKm, &g.Score)
	if err != nil {
		return nil, fmt.Errorf("failed to upsert guess: %w", err)
	}
	return &g, nil
}

// ListGuessesForRound returns every guess for a round joined with the
// submitting player's name, for the host's results aggregation.
func (r *Repository) ListGuessesForRound(ctx context.Context, roundID uuid.UUID) ([]RoundGuess, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT g.round_id, g.player_id, g.guess_lat, g.guess_lng, g.distance, g.score, p.name
		FROM guesses g
		JOIN players p ON p.id = g.player_id
		WHERE g.round_id = $1`,
		roundID)
	if err != nil {
		return nil, fmt.Errorf("failed to list guesses: %w", err)
	}
	defer rows.Close()

	var guesses []RoundGuess
	for rows.Next() {
		var g RoundGuess
		if err := rows.Scan(&g.RoundID, &g.PlayerID, &g.GuessLat, &g.GuessLng,
			&g.DistanceKm, &g.Score, &g.PlayerName); err != nil {
			return nil, fmt.Errorf("failed to scan guess: %w", err)
		}
		guesses = append(guesses, g)
	}
	return guesses, rows.Err()
}

// CountGuessesForRound returns how many players have submitted for a round.
func (r *Repository) CountGuessesForRound(ctx context.Context, roundID uuid.UUID) (int, error) {
	var n int
	err := r.pool.QueryRow(ctx,
		`SELECT count(*) FROM guesses WHERE round_id = $1`, roundID).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("failed to count guesses: %w", err)
	}
	return n, nil
}

// AppendLeaderboardEntry records one finished session. Append-only.
func (r *Repository) AppendLeaderboardEntry(ctx context.Context, req AppendLeaderboardRequest) error {
	if _, err := r.pool.Exec(ctx, `
		INSERT INTO leaderboard (player_name, score, rounds)
		VALUES ($1, $2, $3)`,
		req.PlayerName, req.Score, req.Rounds); err != nil {
		return fmt.Errorf("failed to append leaderboard entry: %w", err)
	}
	return nil
}

// ListTopLeaderboardEntries returns the best sessions, score descending.
func (r *Repository) ListTopLeaderboardEntries(ctx context.Context, limit int) ([]models.LeaderboardEntry, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT player_name, score, rounds, created_at
		FROM leaderboard
		ORDER BY score DESC
		LIMIT $1`,
		limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list leaderboard: %w", err)
	}
	defer rows.Close()

	var entries []models.LeaderboardEntry
	for rows.Next() {
		var e models.LeaderboardEntry
		if err := rows.Scan(&e.PlayerName, &e.Score, &e.Rounds, &e.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan leaderboard entry: %w", err)
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}
