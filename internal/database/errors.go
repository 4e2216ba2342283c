package database

import "errors"

var (
	ErrFriendshipExists = errors.New("friendship already exists for this pair")
	ErrNotParticipant   = errors.New("user is not a participant of this conversation")
)
