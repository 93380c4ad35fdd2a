package domain

import (
	"context"
	"time"
)

// QuestionType is the kind of question the generator is asked for.
type QuestionType string

const (
	QuestionTypeMultipleChoice QuestionType = "multiple_choice"
	QuestionTypeTrueFalse      QuestionType = "true_false"
	QuestionTypeShortAnswer    QuestionType = "short_answer"
	QuestionTypeFillInTheBlank QuestionType = "fill_in_the_blank"
)

// QuestionTypes lists accepted question types in display order.
var QuestionTypes = []QuestionType{
	QuestionTypeMultipleChoice,
	QuestionTypeTrueFalse,
	QuestionTypeShortAnswer,
	QuestionTypeFillInTheBlank,
}

func (t QuestionType) Valid() bool {
	for _, v := range QuestionTypes {
		if v == t {
			return true
		}
	}
	return false
}

// Difficulty is the requested difficulty level.
type Difficulty string

const (
	DifficultyEasy   Difficulty = "easy"
	DifficultyMedium Difficulty = "medium"
	DifficultyHard   Difficulty = "hard"
)

var Difficulties = []Difficulty{DifficultyEasy, DifficultyMedium, DifficultyHard}

func (d Difficulty) Valid() bool {
	for _, v := range Difficulties {
		if v == d {
			return true
		}
	}
	return false
}

const (
	MinQuestionsPerQuiz = 1
	MaxQuestionsPerQuiz = 100
)

// QuizParams are the caller's generation options.
type QuizParams struct {
	NumberOfQuestions int          `json:"numberOfQuestions"`
	QuestionType      QuestionType `json:"questionType"`
	DifficultyLevel   Difficulty   `json:"difficultyLevel"`
	AdditionalNotes   string       `json:"additionalNotes,omitempty"`
	CourseID          string       `json:"courseId"`
	CourseArea        string       `json:"courseArea,omitempty"`
}

// Validate checks field ranges and enum membership.
func (p QuizParams) Validate() ValidationErrors {
	var errs ValidationErrors
	if p.NumberOfQuestions < MinQuestionsPerQuiz || p.NumberOfQuestions > MaxQuestionsPerQuiz {
		errs = append(errs, NewOutOfRangeError("numberOfQuestions", p.NumberOfQuestions, MinQuestionsPerQuiz, MaxQuestionsPerQuiz))
	}
	if !p.QuestionType.Valid() {
		allowed := make([]string, len(QuestionTypes))
		for i, t := range QuestionTypes {
			allowed[i] = string(t)
		}
		errs = append(errs, NewInvalidChoiceError("questionType", p.QuestionType, allowed))
	}
	if !p.DifficultyLevel.Valid() {
		allowed := make([]string, len(Difficulties))
		for i, d := range Difficulties {
			allowed[i] = string(d)
		}
		errs = append(errs, NewInvalidChoiceError("difficultyLevel", p.DifficultyLevel, allowed))
	}
	if p.CourseID == "" {
		errs = append(errs, NewMissingFieldError("courseId"))
	}
	return errs
}

// QuizQuestion is one generated question.
type QuizQuestion struct {
	Question        string       `json:"question"`
	Options         []string     `json:"options"`
	CorrectAnswer   string       `json:"correctAnswer"`
	Explanation     string       `json:"explanation"`
	DifficultyLevel Difficulty   `json:"difficultyLevel"`
	QuestionType    QuestionType `json:"questionType"`
}

// GeneratedQuiz holds either the parsed questions or, when the model output
// could not be parsed, the raw output in Raw.
type GeneratedQuiz struct {
	Questions []QuizQuestion `json:"questions,omitempty"`
	Raw       string         `json:"raw,omitempty"`
}

func (q *GeneratedQuiz) Parsed() bool {
	return q != nil && q.Raw == "" && len(q.Questions) > 0
}

// QuizResult is what a finished job reports.
type QuizResult struct {
	Success         bool           `json:"success"`
	Quiz            *GeneratedQuiz `json:"quiz"`
	Summary         string         `json:"summary"`
	SourceURL       string         `json:"sourceUrl"`
	SlideID         string         `json:"slideId,omitempty"`
	AnswerID        string         `json:"answerId,omitempty"`
	SavedQuestions  int            `json:"savedQuestions"`
	FailedQuestions int            `json:"failedQuestions"`
	CreditsCharged  int            `json:"creditsCharged"`
}

// Course is owned by a user and groups uploaded slides.
type Course struct {
	ID        string
	UserID    string
	Name      string
	CreatedAt time.Time
}

// CourseSlide records one processed upload under a course.
type CourseSlide struct {
	ID              string
	CourseID        string
	SlideURL        string
	NumOfQuestions  int
	QuestionType    QuestionType
	DifficultyLevel Difficulty
	AdditionalNotes string
	CreatedAt       time.Time
}

// Question is a persisted quiz question.
type Question struct {
	ID              string
	SlideID         string
	AnswerID        string
	Text            string
	Options         []string
	CorrectAnswer   string
	Explanation     string
	QuestionType    QuestionType
	DifficultyLevel Difficulty
	CreatedAt       time.Time
}

// CourseRepository covers the course data the pipeline reads and writes.
type CourseRepository interface {
	GetCourseByID(ctx context.Context, courseID string) (*Course, error)
	CreateSlide(ctx context.Context, slide *CourseSlide) error
	AddQuestion(ctx context.Context, question *Question) error
}
