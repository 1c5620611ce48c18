package domain

import "time"

type User struct {
	Id        UserId    `json:"id"`
	Username  Username  `json:"username"`
	PassHash  string    `json:"-"`
	Avatar    *string   `json:"avatar"`
	CreatedAt time.Time `json:"createdAt"`
}

// Identity is the part of a user that is carried inside tokens.
func (u User) Identity() Identity {
	return Identity{Id: u.Id, Username: u.Username}
}
