package domain

import "time"

const (
	BaseURLCtxKey   = "rf-baseUrl"
	SessionIDCtxKey = "rf-sessionId"
)

const (
	SessionCookieName = "rf_session"
	// SessionTTL is how long a follower stays remembered.
	SessionTTL = 7 * 24 * time.Hour
)
