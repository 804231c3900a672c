package models

import "time"

type Answer struct {
	ID         int       `gorm:"primaryKey" json:"id"`
	Content    string    `gorm:"type:text;not null" json:"content"`
	Accepted   bool      `gorm:"default:false" json:"accepted"`
	QuestionID int       `gorm:"not null;index" json:"question_id"`
	UserID     int       `gorm:"not null;index" json:"user_id"`
	User       User      `gorm:"foreignKey:UserID" json:"user"`
	Votes      []Vote    `gorm:"constraint:OnDelete:CASCADE" json:"-"`
	CreatedAt  time.Time `json:"created_at"`
}

type CreateAnswerRequest struct {
	Content string `json:"content" binding:"required"`
}
