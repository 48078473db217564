package events

import (
	"time"

	"github.com/google/uuid"

	"github.com/spec-kit/blog-service/internal/domain"
)

// EventType enumerates supported event identifiers.
type EventType string

const (
	EventPostDeleted EventType = "post_deleted"
	EventUserDeleted EventType = "user_deleted"

	// EventPostImageReplaced fires when an edit swaps or removes a post's image.
	EventPostImageReplaced EventType = "post_image_replaced"
)

// Event represents a domain event emitted by services.
type Event struct {
	ID        string      `json:"id"`
	Type      EventType   `json:"type"`
	SubjectID string      `json:"subject_id"`
	ActorID   string      `json:"actor_id,omitempty"`
	Timestamp time.Time   `json:"timestamp"`
	Payload   interface{} `json:"payload"`
}

// New stamps an event with an id and the current time.
func New(eventType EventType, subjectID, actorID string, payload interface{}) Event {
	return Event{
		ID:        uuid.NewString(),
		Type:      eventType,
		SubjectID: subjectID,
		ActorID:   actorID,
		Timestamp: time.Now().UTC(),
		Payload:   payload,
	}
}

// PostDeletedPayload payload.
type PostDeletedPayload struct {
	AuthorID string        `json:"author_id"`
	Image    *domain.Image `json:"image,omitempty"`
}

// UserDeletedPayload payload. PostImages holds the images of posts removed with the account.
type UserDeletedPayload struct {
	Avatar     *domain.Image  `json:"avatar,omitempty"`
	PostImages []domain.Image `json:"post_images,omitempty"`
}

// PostImageReplacedPayload payload.
type PostImageReplacedPayload struct {
	Previous domain.Image `json:"previous"`
}
