package amqp

import (
	"encoding/json"
	"time"
)

// UserSignupMessage announces that an account finished registration and
// a matching application user row must be provisioned.
type UserSignupMessage struct {
	UserID    string    `json:"user_id"`
	Name      string    `json:"name"`
	Email     string    `json:"email"`
	Timestamp time.Time `json:"timestamp"`
}

// NewUserSignupMessage creates a signup message for the given account
func NewUserSignupMessage(userID, name, email string) *UserSignupMessage {
	return &UserSignupMessage{
		UserID:    userID,
		Name:      name,
		Email:     email,
		Timestamp: time.Now(),
	}
}

// ToJSON converts the message to JSON bytes
func (m *UserSignupMessage) ToJSON() ([]byte, error) {
	return json.Marshal(m)
}

// UserSignupMessageFromJSON creates a message from JSON bytes
func UserSignupMessageFromJSON(data []byte) (*UserSignupMessage, error) {
	var msg UserSignupMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, err
	}
	if msg.UserID == "" {
		return nil, errEmptyUserID
	}
	return &msg, nil
}
