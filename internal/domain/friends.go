package domain

import "time"

const FriendRequestPending = "pending"

// FriendRequest lives in the recipient's request list until it is accepted
// or declined; both resolutions remove it.
type FriendRequest struct {
	ID           string    `json:"id"`
	FromUID      string    `json:"fromUid"`
	FromUsername string    `json:"fromUsername"`
	Status       string    `json:"status"`
	CreatedAt    time.Time `json:"createdAt"`
}
