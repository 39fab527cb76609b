package archive

import (
	"context"
	"encoding/json"
	"log"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/redis/go-redis/v9"

	"github.com/cricfever/backend/internal/game"
)

const (
	leaderboardKey = "leaderboard:innings"
	lastMatchTTL   = 24 * time.Hour
)

// Store persists finished matches to Postgres and keeps a best-innings
// leaderboard plus a last-match cache in Redis. Both backends are optional;
// a nil Store or a Store with nil handles records nothing.
type Store struct {
	db  *sqlx.DB
	rdb *redis.Client
}

func NewStore(db *sqlx.DB, rdb *redis.Client) *Store {
	return &Store{db: db, rdb: rdb}
}

// MatchRecord is one persisted match.
type MatchRecord struct {
	ID           int64     `db:"id" json:"id"`
	RoomCode     string    `db:"room_code" json:"roomCode"`
	Headline     string    `db:"headline" json:"headline"`
	WinnerName   string    `db:"winner_name" json:"winnerName"`
	I1BatterName string    `db:"i1_batter_name" json:"i1BatterName"`
	I1Runs       int       `db:"i1_runs" json:"i1Runs"`
	I1Wickets    int       `db:"i1_wickets" json:"i1Wickets"`
	I1Overs      string    `db:"i1_overs" json:"i1Overs"`
	I2BatterName string    `db:"i2_batter_name" json:"i2BatterName"`
	I2Runs       int       `db:"i2_runs" json:"i2Runs"`
	I2Wickets    int       `db:"i2_wickets" json:"i2Wickets"`
	I2Overs      string    `db:"i2_overs" json:"i2Overs"`
	PlayedAt     time.Time `db:"played_at" json:"playedAt"`
}

// winnerName derives the winning batter from the two innings totals. A tie
// has no winner.
func winnerName(result game.MatchResult) string {
	switch {
	case result.Innings2.Runs > result.Innings1.Runs:
		return result.Innings2.BatterName
	case result.Innings1.Runs > result.Innings2.Runs:
		return result.Innings1.BatterName
	default:
		return ""
	}
}

// inningsScore packs runs and wickets into one sortable value: more runs
// rank higher, fewer wickets break ties. Wickets fit in 0..10, so base 16
// keeps the fields separable.
func inningsScore(runs, wickets int) float64 {
	return float64(runs*16 + (10 - wickets))
}

func unpackInningsScore(score float64) (runs, wickets int) {
	s := int(score)
	return s / 16, 10 - s%16
}

// SaveMatch records a finished match. Called from the room layer after the
// result broadcast; failures are logged, never surfaced to the match flow.
func (s *Store) SaveMatch(code string, result game.MatchResult) {
	if s == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	winner := winnerName(result)

	if s.db != nil {
		_, err := s.db.ExecContext(ctx, `
			INSERT INTO match_results (
				room_code, headline, winner_name,
				i1_batter_name, i1_runs, i1_wickets, i1_overs,
				i2_batter_name, i2_runs, i2_wickets, i2_overs,
				played_at
			) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, NOW())`,
			code, result.Headline, winner,
			result.Innings1.BatterName, result.Innings1.Runs, result.Innings1.Wickets, result.Innings1.Overs,
			result.Innings2.BatterName, result.Innings2.Runs, result.Innings2.Wickets, result.Innings2.Overs,
		)
		if err != nil {
			log.Printf("[ARCHIVE] save match %s: %v", code, err)
		}
	}

	if s.rdb != nil {
		// Each batter's best innings, keep-highest semantics.
		for _, inn := range []game.InningsSummary{result.Innings1, result.Innings2} {
			if inn.BatterName == "" {
				continue
			}
			err := s.rdb.ZAddGT(ctx, leaderboardKey, redis.Z{
				Score:  inningsScore(inn.Runs, inn.Wickets),
				Member: inn.BatterName,
			}).Err()
			if err != nil {
				log.Printf("[ARCHIVE] leaderboard update for %s: %v", inn.BatterName, err)
			}
		}

		if data, err := json.Marshal(result); err == nil {
			if err := s.rdb.Set(ctx, "match:last:"+code, data, lastMatchTTL).Err(); err != nil {
				log.Printf("[ARCHIVE] last-match cache for %s: %v", code, err)
			}
		}
	}
}

// LeaderboardEntry is one row of the best-innings leaderboard.
type LeaderboardEntry struct {
	PlayerName string `json:"playerName"`
	Runs       int    `json:"runs"`
	Wickets    int    `json:"wickets"`
}

// Leaderboard returns the top n best innings, highest runs first, fewer
// wickets breaking ties.
func (s *Store) Leaderboard(ctx context.Context, n int) ([]LeaderboardEntry, error) {
	if s == nil || s.rdb == nil {
		return []LeaderboardEntry{}, nil
	}
	zs, err := s.rdb.ZRevRangeWithScores(ctx, leaderboardKey, 0, int64(n-1)).Result()
	if err != nil {
		return nil, err
	}
	entries := make([]LeaderboardEntry, 0, len(zs))
	for _, z := range zs {
		name, _ := z.Member.(string)
		runs, wickets := unpackInningsScore(z.Score)
		entries = append(entries, LeaderboardEntry{PlayerName: name, Runs: runs, Wickets: wickets})
	}
	return entries, nil
}

// LastMatch returns the cached result for a room code, if still retained.
func (s *Store) LastMatch(ctx context.Context, code string) (*game.MatchResult, error) {
	if s == nil || s.rdb == nil {
		return nil, nil
	}
	data, err := s.rdb.Get(ctx, "match:last:"+code).Bytes()
	if err == redis.Nil {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	var result game.MatchResult
	if err := json.Unmarshal(data, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

// RecentMatches returns the n most recently finished matches.
func (s *Store) RecentMatches(ctx context.Context, n int) ([]MatchRecord, error) {
	if s == nil || s.db == nil {
		return []MatchRecord{}, nil
	}
	records := []MatchRecord{}
	err := s.db.SelectContext(ctx, &records, `
		SELECT id, room_code, headline, winner_name,
		       i1_batter_name, i1_runs, i1_wickets, i1_overs,
		       i2_batter_name, i2_runs, i2_wickets, i2_overs,
		       played_at
		FROM match_results
		ORDER BY played_at DESC
		LIMIT $1`, n)
	if err != nil {
		return nil, err
	}
	return records, nil
}
