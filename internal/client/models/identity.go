package models

import "time"

// Identity is the authoritative user record held by the remote service.
// JSON tags follow the service's account payload.
type Identity struct {
	ID                string    `json:"$id"`
	Name              string    `json:"name"`
	Email             string    `json:"email"`
	EmailVerification bool      `json:"emailVerification"`
	Status            bool      `json:"status"`
	Registration      time.Time `json:"registration"`
}

// RemoteSession is the service's record of a created session.
type RemoteSession struct {
	ID      string    `json:"$id"`
	UserID  string    `json:"userId"`
	Expire  time.Time `json:"expire"`
	Current bool      `json:"current"`
}
