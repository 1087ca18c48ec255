package social

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

const postColumns = `id, user_id, title, content, image, created_at`

func (s *Service) CreatePost(ctx context.Context, caller string, input PostInput) (Post, error) {
	input, err := s.validateInput(input)
	if err != nil {
		return Post{}, err
	}

	post := Post{
		ID:      uuid.NewString(),
		UserID:  caller,
		Title:   input.Title,
		Content: input.Content,
		Image:   input.Image,
		LikedBy: []string{},
	}
	row := s.db.QueryRow(ctx, `
		INSERT INTO posts (id, user_id, title, content, image)
		VALUES ($1,$2,$3,$4,$5)
		RETURNING created_at
	`, post.ID, post.UserID, post.Title, post.Content, post.Image)
	if err := row.Scan(&post.CreatedAt); err != nil {
		return Post{}, fmt.Errorf("create post: %w", err)
	}
	return post, nil
}

func (s *Service) GetPost(ctx context.Context, postID string) (Post, error) {
	post, err := s.findPost(ctx, postID)
	if err != nil {
		return Post{}, err
	}
	likes, err := s.loadLikes(ctx, []string{post.ID})
	if err != nil {
		return Post{}, err
	}
	post.setLikes(likes[post.ID])
	return post, nil
}

// EditablePost returns the post only when caller owns it.
func (s *Service) EditablePost(ctx context.Context, caller, postID string) (Post, error) {
	post, err := s.GetPost(ctx, postID)
	if err != nil {
		return Post{}, err
	}
	if err := authorizeOwner(post, caller); err != nil {
		return Post{}, err
	}
	return post, nil
}

func (s *Service) UpdatePost(ctx context.Context, caller, postID string, input PostInput) (Post, error) {
	post, err := s.findPost(ctx, postID)
	if err != nil {
		return Post{}, err
	}
	if err := authorizeOwner(post, caller); err != nil {
		return Post{}, err
	}
	input, err = s.validateInput(input)
	if err != nil {
		return Post{}, err
	}

	post.Title = input.Title
	post.Content = input.Content
	post.Image = input.Image
	_, err = s.db.Exec(ctx, `
		UPDATE posts
		SET title=$2, content=$3, image=$4
		WHERE id=$1
	`, post.ID, post.Title, post.Content, post.Image)
	if err != nil {
		return Post{}, fmt.Errorf("update post: %w", err)
	}
	return post, nil
}

// DeletePost removes the post and its likes in one transaction.
func (s *Service) DeletePost(ctx context.Context, caller, postID string) error {
	post, err := s.findPost(ctx, postID)
	if err != nil {
		return err
	}
	if err := authorizeOwner(post, caller); err != nil {
		return err
	}

	tx, err := s.db.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin delete: %w", err)
	}
	if _, err := tx.Exec(ctx, `DELETE FROM post_likes WHERE post_id=$1`, post.ID); err != nil {
		_ = tx.Rollback(ctx)
		return fmt.Errorf("delete likes: %w", err)
	}
	if _, err := tx.Exec(ctx, `DELETE FROM posts WHERE id=$1`, post.ID); err != nil {
		_ = tx.Rollback(ctx)
		return fmt.Errorf("delete post: %w", err)
	}
	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit delete: %w", err)
	}
	return nil
}

func (s *Service) findPost(ctx context.Context, postID string) (Post, error) {
	if !validPostID(postID) {
		return Post{}, ErrPostNotFound
	}
	row := s.db.QueryRow(ctx, `SELECT `+postColumns+` FROM posts WHERE id=$1`, postID)
	var p Post
	if err := row.Scan(&p.ID, &p.UserID, &p.Title, &p.Content, &p.Image, &p.CreatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Post{}, ErrPostNotFound
		}
		return Post{}, fmt.Errorf("find post: %w", err)
	}
	return p, nil
}

func (s *Service) postOwner(ctx context.Context, postID string) (string, error) {
	if !validPostID(postID) {
		return "", ErrPostNotFound
	}
	var owner string
	if err := s.db.QueryRow(ctx, `SELECT user_id FROM posts WHERE id=$1`, postID).Scan(&owner); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return "", ErrPostNotFound
		}
		return "", fmt.Errorf("find post owner: %w", err)
	}
	return owner, nil
}

// validPostID rejects ids the uuid column could never hold, so they
// surface as not found instead of a driver error.
func validPostID(id string) bool {
	if len(id) != 36 {
		return false
	}
	_, err := uuid.Parse(id)
	return err == nil
}

func authorizeOwner(post Post, caller string) error {
	if post.UserID != caller {
		return ErrPermissionDenied
	}
	return nil
}

func (s *Service) validateInput(input PostInput) (PostInput, error) {
	input.Title = strings.TrimSpace(input.Title)
	input.Content = strings.TrimSpace(input.Content)
	input.Image = strings.TrimSpace(input.Image)

	err := s.validate.Struct(input)
	if err == nil {
		return input, nil
	}
	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) {
		return PostInput{}, fmt.Errorf("%w: %v", ErrValidation, err)
	}
	msgs := make([]string, 0, len(fieldErrs))
	for _, fe := range fieldErrs {
		msgs = append(msgs, strings.ToLower(fe.Field())+": "+fe.Tag())
	}
	return PostInput{}, fmt.Errorf("%w: %s", ErrValidation, strings.Join(msgs, ", "))
}

func (p *Post) setLikes(likedBy []string) {
	if likedBy == nil {
		likedBy = []string{}
	}
	p.LikedBy = likedBy
	p.LikeCount = len(likedBy)
}
