package models

import "time"

// Vote directions as stored in votes.vote_type.
const (
	VoteUp   = "up"
	VoteDown = "down"
)

// Vote model - one row per vote action on an answer
type Vote struct {
	ID        int       `gorm:"primaryKey" json:"id"`
	UserID    int       `gorm:"not null;index" json:"user_id"`
	AnswerID  int       `gorm:"not null;index" json:"answer_id"`
	VoteType  string    `gorm:"size:10;not null" json:"vote_type"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

type VoteRequest struct {
	Type string `json:"type" binding:"required,oneof=up down"`
}
