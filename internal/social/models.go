package social

import "time"

type Post struct {
	ID        string    `json:"id"`
	UserID    string    `json:"user_id"`
	Title     string    `json:"title"`
	Content   string    `json:"content"`
	Image     string    `json:"image"`
	LikedBy   []string  `json:"liked_by"`
	LikeCount int       `json:"like_count"`
	CreatedAt time.Time `json:"created_at"`
}

// PostInput carries the mutable fields of a post. Owner and creation time
// are never taken from input.
type PostInput struct {
	Title   string `json:"title" form:"title" validate:"required,max=100"`
	Content string `json:"content" form:"content" validate:"required"`
	Image   string `json:"image" form:"image" validate:"required,http_url"`
}

// Connection is a user's follow list. There is exactly one per user.
type Connection struct {
	ID        string    `json:"id"`
	UserID    string    `json:"user_id"`
	Following []string  `json:"following"`
	CreatedAt time.Time `json:"created_at"`
}

func (c Connection) IsFollowing(userID string) bool {
	for _, id := range c.Following {
		if id == userID {
			return true
		}
	}
	return false
}

// Destination selects where a toggle endpoint redirects afterwards.
type Destination int

const (
	DestinationHome Destination = iota
	DestinationDetail
)

func (d Destination) path(postID string) string {
	if d == DestinationDetail {
		return detailPath(postID)
	}
	return homePath
}
