package social

import (
	"context"
	"fmt"

	"backend-snsapp/internal/logger"
	"backend-snsapp/internal/metrics"
)

// ToggleLike adds caller to the post's likes, or removes them if present.
// Owners may like their own posts.
func (s *Service) ToggleLike(ctx context.Context, caller, postID string) error {
	if _, err := s.postOwner(ctx, postID); err != nil {
		return err
	}
	added, err := s.toggle(ctx,
		`DELETE FROM post_likes WHERE post_id=$1 AND user_id=$2`,
		`INSERT INTO post_likes (post_id, user_id) VALUES ($1,$2) ON CONFLICT DO NOTHING`,
		postID, caller)
	if err != nil {
		return fmt.Errorf("toggle like: %w", err)
	}
	s.record("like", added, logger.Fields{"user_id": caller, "post_id": postID})
	return nil
}

// ToggleFollow follows the author of postID, or unfollows them if already
// followed. Following yourself is not rejected.
func (s *Service) ToggleFollow(ctx context.Context, caller, postID string) error {
	target, err := s.postOwner(ctx, postID)
	if err != nil {
		return err
	}
	conn, err := s.EnsureConnection(ctx, caller)
	if err != nil {
		return err
	}
	added, err := s.toggle(ctx,
		`DELETE FROM connection_following WHERE connection_id=$1 AND following_id=$2`,
		`INSERT INTO connection_following (connection_id, following_id) VALUES ($1,$2) ON CONFLICT DO NOTHING`,
		conn.ID, target)
	if err != nil {
		return fmt.Errorf("toggle follow: %w", err)
	}
	s.record("follow", added, logger.Fields{"user_id": caller, "target_id": target})
	return nil
}

// toggle removes the membership row; when nothing was removed it inserts it.
// It reports whether the row is now present.
func (s *Service) toggle(ctx context.Context, deleteSQL, insertSQL string, args ...any) (bool, error) {
	tag, err := s.db.Exec(ctx, deleteSQL, args...)
	if err != nil {
		return false, err
	}
	if tag.RowsAffected() > 0 {
		return false, nil
	}
	if _, err := s.db.Exec(ctx, insertSQL, args...); err != nil {
		return false, err
	}
	return true, nil
}

func (s *Service) record(relation string, added bool, fields logger.Fields) {
	state := "removed"
	if added {
		state = "added"
	}
	metrics.TogglesTotal.WithLabelValues(relation, state).Inc()
	s.log.WithFields(fields).Debug(relation + " " + state)
}
