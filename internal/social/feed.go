package social

import (
	"context"
	"fmt"
	"sort"
)

// Every feed ensures the caller's Connection exists before reading, so the
// read path may insert one row into connections. The Connection is returned
// alongside the posts for follow/unfollow affordances.

// OthersFeed lists every post not owned by caller, newest first.
func (s *Service) OthersFeed(ctx context.Context, caller string) ([]Post, Connection, error) {
	conn, err := s.EnsureConnection(ctx, caller)
	if err != nil {
		return nil, Connection{}, err
	}
	posts, err := s.listPosts(ctx, `WHERE user_id <> $1`, caller)
	if err != nil {
		return nil, Connection{}, err
	}
	return posts, conn, nil
}

// OwnFeed lists the caller's own posts, newest first.
func (s *Service) OwnFeed(ctx context.Context, caller string) ([]Post, Connection, error) {
	conn, err := s.EnsureConnection(ctx, caller)
	if err != nil {
		return nil, Connection{}, err
	}
	posts, err := s.listPosts(ctx, `WHERE user_id = $1`, caller)
	if err != nil {
		return nil, Connection{}, err
	}
	return posts, conn, nil
}

// FollowedFeed lists posts whose owner the caller follows, newest first.
func (s *Service) FollowedFeed(ctx context.Context, caller string) ([]Post, Connection, error) {
	conn, err := s.EnsureConnection(ctx, caller)
	if err != nil {
		return nil, Connection{}, err
	}
	if len(conn.Following) == 0 {
		return []Post{}, conn, nil
	}
	posts, err := s.listPosts(ctx, `WHERE user_id = ANY($1)`, conn.Following)
	if err != nil {
		return nil, Connection{}, err
	}
	return posts, conn, nil
}

func (s *Service) listPosts(ctx context.Context, where string, arg any) ([]Post, error) {
	rows, err := s.db.Query(ctx, `
		SELECT `+postColumns+`
		FROM posts
		`+where+`
		ORDER BY created_at DESC
	`, arg)
	if err != nil {
		return nil, fmt.Errorf("list posts: %w", err)
	}
	defer rows.Close()

	posts := []Post{}
	var ids []string
	for rows.Next() {
		var p Post
		if err := rows.Scan(&p.ID, &p.UserID, &p.Title, &p.Content, &p.Image, &p.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan post: %w", err)
		}
		ids = append(ids, p.ID)
		posts = append(posts, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list posts: %w", err)
	}
	rows.Close()

	likes, err := s.loadLikes(ctx, ids)
	if err != nil {
		return nil, err
	}
	for i := range posts {
		posts[i].setLikes(likes[posts[i].ID])
	}
	return sortPosts(posts), nil
}

func (s *Service) loadLikes(ctx context.Context, postIDs []string) (map[string][]string, error) {
	if len(postIDs) == 0 {
		return map[string][]string{}, nil
	}
	rows, err := s.db.Query(ctx, `
		SELECT post_id, user_id
		FROM post_likes WHERE post_id = ANY($1)
		ORDER BY created_at
	`, postIDs)
	if err != nil {
		return nil, fmt.Errorf("load likes: %w", err)
	}
	defer rows.Close()

	likes := map[string][]string{}
	for rows.Next() {
		var postID, userID string
		if err := rows.Scan(&postID, &userID); err != nil {
			return nil, fmt.Errorf("scan like: %w", err)
		}
		likes[postID] = append(likes[postID], userID)
	}
	return likes, rows.Err()
}

// sortPosts orders newest first; equal timestamps keep their input order.
func sortPosts(posts []Post) []Post {
	sort.SliceStable(posts, func(i, j int) bool {
		return posts[i].CreatedAt.After(posts[j].CreatedAt)
	})
	return posts
}
