package models

import (
	"time"

	"github.com/lib/pq"
)

// Sentiment labels assigned to a question at creation time.
const (
	SentimentPositive = "positive"
	SentimentNeutral  = "neutral"
	SentimentNegative = "negative"
)

type Question struct {
	ID          int            `gorm:"primaryKey" json:"id"`
	Title       string         `gorm:"size:200;not null" json:"title"`
	Description string         `gorm:"type:text;not null" json:"description"`
	Tags        pq.StringArray `gorm:"type:text[]" json:"tags"`
	Sentiment   string         `gorm:"size:10;default:neutral" json:"sentiment"`
	UserID      int            `gorm:"not null;index" json:"user_id"`
	User        User           `gorm:"foreignKey:UserID" json:"user"`
	Answers     []Answer       `gorm:"constraint:OnDelete:CASCADE" json:"-"`
	CreatedAt   time.Time      `gorm:"index" json:"created_at"`
}

type CreateQuestionRequest struct {
	Title       string   `json:"title" binding:"required,max=200"`
	Description string   `json:"description" binding:"required"`
	Tags        []string `json:"tags"`
}
