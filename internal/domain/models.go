package domain

import "time"

// User is the public profile stored in the users map. JSON tags match the
// field names the original mobile client persisted, so an existing local
// installation keeps working against this engine.
type User struct {
	UID         string    `json:"uid"`
	Username    string    `json:"username"`
	Usercode    string    `json:"usercode"`
	DisplayName string    `json:"displayName"`
	PhotoURL    string    `json:"photoURL,omitempty"`
	Friends     []string  `json:"friends"`
	CreatedAt   time.Time `json:"createdAt"`
}

// UserWithPassword is the stored shape; the credential never leaves the
// service layer.
type UserWithPassword struct {
	User
	PasswordHash string `json:"password,omitempty"`
}

// Session is the signed-in identity persisted under the currentUser key.
type Session struct {
	UID         string `json:"uid"`
	DisplayName string `json:"displayName"`
}

type MessageType string

const (
	MessageText  MessageType = "text"
	MessageImage MessageType = "image"
	MessageAudio MessageType = "audio"
)

// Message is one entry in a chat's message list. Media messages carry a URI
// reference only; the engine never touches media bytes.
type Message struct {
	ID         string      `json:"id"`
	Type       MessageType `json:"type"`
	Text       string      `json:"text,omitempty"`
	ImageURI   string      `json:"imageUri,omitempty"`
	AudioURL   string      `json:"audioURL,omitempty"`
	SenderID   string      `json:"senderId"`
	SenderName string      `json:"senderName"`
	CreatedAt  time.Time   `json:"createdAt"`
}

// LastMessage is the derived per-chat preview index entry. It always equals
// the most recent message of the chat by CreatedAt.
type LastMessage struct {
	Text       string    `json:"text"`
	Timestamp  time.Time `json:"timestamp"`
	SenderID   string    `json:"senderId"`
	SenderName string    `json:"senderName"`
}

type Notification struct {
	ID        string            `json:"id"`
	Type      string            `json:"type"`
	Text      string            `json:"text"`
	Data      map[string]string `json:"data,omitempty"`
	Read      bool              `json:"read"`
	CreatedAt time.Time         `json:"createdAt"`
}
