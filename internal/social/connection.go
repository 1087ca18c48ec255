package social

import (
	"context"
	"errors"
	"fmt"

	"backend-snsapp/internal/db"
	"backend-snsapp/internal/logger"
	"backend-snsapp/internal/metrics"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

// EnsureConnection returns the caller's Connection, creating it on first
// use. connections.user_id is unique: when a concurrent request wins the
// insert, the unique violation is absorbed and the winner's row re-read.
func (s *Service) EnsureConnection(ctx context.Context, userID string) (Connection, error) {
	conn, err := s.findConnection(ctx, userID)
	if err == nil {
		return s.withFollowing(ctx, conn)
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return Connection{}, fmt.Errorf("find connection: %w", err)
	}

	conn = Connection{ID: uuid.NewString(), UserID: userID, Following: []string{}}
	row := s.db.QueryRow(ctx, `
		INSERT INTO connections (id, user_id)
		VALUES ($1,$2)
		RETURNING created_at
	`, conn.ID, conn.UserID)
	if err := row.Scan(&conn.CreatedAt); err != nil {
		if !db.IsUniqueViolation(err) {
			return Connection{}, fmt.Errorf("create connection: %w", err)
		}
		s.log.WithFields(logger.Fields{"user_id": userID}).Debug("connection created concurrently, re-reading")
		existing, err := s.findConnection(ctx, userID)
		if err != nil {
			return Connection{}, fmt.Errorf("re-read connection: %w", err)
		}
		return s.withFollowing(ctx, existing)
	}

	metrics.ConnectionsCreated.Inc()
	return conn, nil
}

func (s *Service) findConnection(ctx context.Context, userID string) (Connection, error) {
	var conn Connection
	err := s.db.QueryRow(ctx, `
		SELECT id, user_id, created_at
		FROM connections WHERE user_id=$1
	`, userID).Scan(&conn.ID, &conn.UserID, &conn.CreatedAt)
	return conn, err
}

func (s *Service) withFollowing(ctx context.Context, conn Connection) (Connection, error) {
	rows, err := s.db.Query(ctx, `
		SELECT following_id
		FROM connection_following WHERE connection_id=$1
		ORDER BY created_at
	`, conn.ID)
	if err != nil {
		return Connection{}, fmt.Errorf("load following: %w", err)
	}
	defer rows.Close()

	conn.Following = []string{}
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return Connection{}, fmt.Errorf("scan following: %w", err)
		}
		conn.Following = append(conn.Following, id)
	}
	return conn, rows.Err()
}
