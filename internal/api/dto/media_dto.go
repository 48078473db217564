package dto

import "time"

const timeLayout = time.RFC3339

// DeleteImageRequest names the image to remove from the store.
type DeleteImageRequest struct {
	PublicID string `json:"public_id" validate:"required"`
}
