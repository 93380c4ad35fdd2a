package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"glauk-api/internal/domain"
	"glauk-api/internal/repository/models"
	"glauk-api/internal/util"
)

type sqlxCourseRepository struct {
	db    DBTX
	now   func() time.Time
	newID func() string
}

func NewSQLXCourseRepository(db DBTX) domain.CourseRepository {
	return &sqlxCourseRepository{db: db, now: time.Now, newID: util.NewULID}
}

func (r *sqlxCourseRepository) GetCourseByID(ctx context.Context, courseID string) (*domain.Course, error) {
	var course models.Course
	query := `SELECT id, user_id, name, created_at FROM courses WHERE id = :1`
	if err := r.db.GetContext(ctx, &course, query, courseID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get course %s: %w", courseID, err)
	}
	return &domain.Course{
		ID:        course.ID,
		UserID:    course.UserID,
		Name:      course.Name,
		CreatedAt: course.CreatedAt,
	}, nil
}

// CreateSlide assigns the slide an id and creation time before inserting it.
func (r *sqlxCourseRepository) CreateSlide(ctx context.Context, slide *domain.CourseSlide) error {
	if slide == nil {
		return fmt.Errorf("cannot create nil slide")
	}
	m := models.CourseSlide{
		ID:              r.newID(),
		CourseID:        slide.CourseID,
		SlideURL:        slide.SlideURL,
		NumOfQuestions:  slide.NumOfQuestions,
		QuestionType:    string(slide.QuestionType),
		DifficultyLevel: string(slide.DifficultyLevel),
		AdditionalNotes: util.StringToNullString(slide.AdditionalNotes),
		CreatedAt:       r.now(),
	}

	query := `INSERT INTO course_slides (
		id, course_id, slide_url, num_of_questions, question_type,
		difficulty_level, additional_notes, created_at
	) VALUES (:1, :2, :3, :4, :5, :6, :7, :8)`

	_, err := r.db.ExecContext(ctx, query,
		m.ID, m.CourseID, m.SlideURL, m.NumOfQuestions, m.QuestionType,
		m.DifficultyLevel, m.AdditionalNotes, m.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create slide: %w", err)
	}
	slide.ID = m.ID
	slide.CreatedAt = m.CreatedAt
	return nil
}

func (r *sqlxCourseRepository) AddQuestion(ctx context.Context, question *domain.Question) error {
	if question == nil {
		return fmt.Errorf("cannot add nil question")
	}
	m := models.Question{
		ID:              r.newID(),
		SlideID:         question.SlideID,
		AnswerID:        question.AnswerID,
		QuestionText:    question.Text,
		Options:         models.StringSlice(question.Options),
		CorrectAnswer:   question.CorrectAnswer,
		Explanation:     util.StringToNullString(question.Explanation),
		QuestionType:    string(question.QuestionType),
		DifficultyLevel: string(question.DifficultyLevel),
		CreatedAt:       r.now(),
	}

	query := `INSERT INTO questions (
		id, slide_id, answer_id, question_text, options, correct_answer,
		explanation, question_type, difficulty_level, created_at
	) VALUES (:1, :2, :3, :4, :5, :6, :7, :8, :9, :10)`

	_, err := r.db.ExecContext(ctx, query,
		m.ID, m.SlideID, m.AnswerID, m.QuestionText, m.Options, m.CorrectAnswer,
		m.Explanation, m.QuestionType, m.DifficultyLevel, m.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to add question to slide %s: %w", question.SlideID, err)
	}
	question.ID = m.ID
	question.CreatedAt = m.CreatedAt
	return nil
}
