package service

import (
	"context"
	"encoding/json"
	"fmt"
	"sync/atomic"

	"glauk-api/internal/domain"
	"glauk-api/internal/util"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

const (
	answerIDLength     = 5
	questionWriteLimit = 8
	progressPersisted  = 95
)

// QuizRunner produces a quiz from chunks; *QuizGenerator implements it.
type QuizRunner interface {
	Run(ctx context.Context, chunks []string, params domain.QuizParams, progress domain.ProgressFunc) (*domain.GeneratedQuiz, string, error)
}

// QuizJobProcessor executes process-quiz jobs taken off the queue.
type QuizJobProcessor struct {
	generator QuizRunner
	courses   domain.CourseRepository
	credits   *CreditGate
	logger    *zap.Logger
	answerID  func(n int) (string, error)
}

func NewQuizJobProcessor(generator QuizRunner, courses domain.CourseRepository, credits *CreditGate, logger *zap.Logger) *QuizJobProcessor {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &QuizJobProcessor{
		generator: generator,
		courses:   courses,
		credits:   credits,
		logger:    logger,
		answerID:  util.RandomHex,
	}
}

// Handle runs one job and returns the value stored as its result. Only a
// parsed quiz is persisted and charged for.
func (p *QuizJobProcessor) Handle(ctx context.Context, job *domain.Job, progress domain.ProgressFunc) (interface{}, error) {
	if job.Name != domain.ProcessQuizJobName {
		return nil, fmt.Errorf("unknown job name %q", job.Name)
	}
	var payload domain.QuizJobPayload
	if err := json.Unmarshal(job.Payload, &payload); err != nil {
		return nil, fmt.Errorf("decode quiz job payload: %w", err)
	}
	if progress == nil {
		progress = func(int) {}
	}

	log := p.logger.With(zap.String("job_id", job.ID), zap.String("email", payload.Email))
	log.Info("Starting quiz generation",
		zap.Int("questions", payload.NumberOfQuestions),
		zap.Int("attempt", job.Attempts))

	params := payload.Params()
	quiz, summary, err := p.generator.Run(ctx, payload.Chunks, params, progress)
	if err != nil {
		log.Error("Quiz generation failed", zap.Error(err))
		return nil, err
	}

	result := &domain.QuizResult{
		Success:   true,
		Quiz:      quiz,
		Summary:   summary,
		SourceURL: payload.URL,
	}
	if !quiz.Parsed() {
		log.Warn("Quiz output was not parseable; skipping persistence and charge")
		return result, nil
	}

	p.persist(ctx, log, payload, quiz, result)
	progress(progressPersisted)

	charged, err := p.credits.Charge(ctx, payload.Email, payload.NumberOfQuestions)
	if err != nil {
		log.Error("Failed to charge credits", zap.Error(err))
	}
	result.CreditsCharged = charged

	log.Info("Quiz generated",
		zap.Int("saved", result.SavedQuestions),
		zap.Int("failed", result.FailedQuestions),
		zap.Int("credits", charged))
	return result, nil
}

// persist creates the slide record and writes each question independently.
// A failed question is counted and does not undo the others.
func (p *QuizJobProcessor) persist(ctx context.Context, log *zap.Logger, payload domain.QuizJobPayload, quiz *domain.GeneratedQuiz, result *domain.QuizResult) {
	slide := &domain.CourseSlide{
		CourseID:        payload.CourseID,
		SlideURL:        payload.URL,
		NumOfQuestions:  payload.NumberOfQuestions,
		QuestionType:    payload.QuestionType,
		DifficultyLevel: payload.DifficultyLevel,
		AdditionalNotes: payload.AdditionalNotes,
	}
	if err := p.courses.CreateSlide(ctx, slide); err != nil {
		log.Error("Failed to create course slide", zap.Error(err))
		result.FailedQuestions = len(quiz.Questions)
		return
	}
	result.SlideID = slide.ID

	answerID, err := p.answerID(answerIDLength)
	if err != nil {
		log.Error("Failed to generate answer id", zap.Error(err))
		result.FailedQuestions = len(quiz.Questions)
		return
	}
	result.AnswerID = answerID

	var saved, failed atomic.Int32
	var eg errgroup.Group
	eg.SetLimit(questionWriteLimit)
	for i, q := range quiz.Questions {
		i, q := i, q
		eg.Go(func() error {
			err := p.courses.AddQuestion(ctx, &domain.Question{
				SlideID:         slide.ID,
				AnswerID:        answerID,
				Text:            q.Question,
				Options:         q.Options,
				CorrectAnswer:   q.CorrectAnswer,
				Explanation:     q.Explanation,
				QuestionType:    q.QuestionType,
				DifficultyLevel: q.DifficultyLevel,
			})
			if err != nil {
				failed.Add(1)
				log.Warn("Failed to save question", zap.Int("index", i), zap.Error(err))
				return nil
			}
			saved.Add(1)
			return nil
		})
	}
	_ = eg.Wait()

	result.SavedQuestions = int(saved.Load())
	result.FailedQuestions = int(failed.Load())
}
