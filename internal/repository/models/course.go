package models

import (
	"database/sql"
	"time"
)

type Course struct {
	ID        string    `db:"ID"`
	UserID    string    `db:"USER_ID"`
	Name      string    `db:"NAME"`
	CreatedAt time.Time `db:"CREATED_AT"`
}

type CourseSlide struct {
	ID              string         `db:"ID"`
	CourseID        string         `db:"COURSE_ID"`
	SlideURL        string         `db:"SLIDE_URL"`
	NumOfQuestions  int            `db:"NUM_OF_QUESTIONS"`
	QuestionType    string         `db:"QUESTION_TYPE"`
	DifficultyLevel string         `db:"DIFFICULTY_LEVEL"`
	AdditionalNotes sql.NullString `db:"ADDITIONAL_NOTES"`
	CreatedAt       time.Time      `db:"CREATED_AT"`
}

// Question options are kept as a JSON array; answer_id groups the questions
// generated together for one slide.
type Question struct {
	ID              string         `db:"ID"`
	SlideID         string         `db:"SLIDE_ID"`
	AnswerID        string         `db:"ANSWER_ID"`
	QuestionText    string         `db:"QUESTION_TEXT"`
	Options         StringSlice    `db:"OPTIONS"`
	CorrectAnswer   string         `db:"CORRECT_ANSWER"`
	Explanation     sql.NullString `db:"EXPLANATION"`
	QuestionType    string         `db:"QUESTION_TYPE"`
	DifficultyLevel string         `db:"DIFFICULTY_LEVEL"`
	CreatedAt       time.Time      `db:"CREATED_AT"`
}
