package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"regexp"
	"strings"
	"time"

	"glauk-api/internal/config"
	"glauk-api/internal/domain"
	"glauk-api/internal/retry"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

const (
	summarySeparator    = "\n\n---\n\n"
	summaryTemperature  = 0.2
	quizTemperature     = 0.4
	defaultMergeWords   = 1500
	defaultSummaryBatch = 12

	summaryPrompt = "Summarize this section into clear, examinable bullet points suitable for " +
		"university-level quiz questions. Focus on definitions, facts, processes, and relationships."
)

// Progress checkpoints reported while a quiz is generated.
const (
	ProgressStarted    = 10
	ProgressSummarized = 70
	ProgressMerged     = 80
	ProgressGenerated  = 90
)

// GeneratorOptions tune the summarize step and the request shape.
type GeneratorOptions struct {
	SummaryBatchSize   int
	SummaryConcurrency int
	BatchPause         time.Duration
	MergeMaxWords      int
	Model              string
	MaxTokens          int
	Temperature        float32
}

func GeneratorOptionsFromConfig(p config.PipelineConfig, l config.LLMConfig) GeneratorOptions {
	return GeneratorOptions{
		SummaryBatchSize:   p.SummaryBatchSize,
		SummaryConcurrency: p.SummaryConcurrency,
		BatchPause:         p.BatchPause,
		MergeMaxWords:      p.MergeMaxWords,
		Model:              l.Model,
		MaxTokens:          l.MaxTokens,
		Temperature:        l.Temperature,
	}
}

// QuizGenerator turns document chunks into a quiz: every chunk is summarized,
// the summaries are merged into one master summary and a single call writes
// the questions from it.
type QuizGenerator struct {
	llm    domain.CompletionClient
	opts   GeneratorOptions
	sleep  retry.Sleeper
	logger *zap.Logger
}

func NewQuizGenerator(llm domain.CompletionClient, opts GeneratorOptions, logger *zap.Logger) *QuizGenerator {
	if opts.SummaryBatchSize <= 0 {
		opts.SummaryBatchSize = defaultSummaryBatch
	}
	if opts.SummaryConcurrency <= 0 {
		opts.SummaryConcurrency = 1
	}
	if opts.MergeMaxWords <= 0 {
		opts.MergeMaxWords = defaultMergeWords
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &QuizGenerator{llm: llm, opts: opts, sleep: retry.SleepContext, logger: logger}
}

// Run returns the generated quiz and the master summary. Output that cannot be
// parsed is not an error: the quiz then carries only Raw.
func (g *QuizGenerator) Run(ctx context.Context, chunks []string, params domain.QuizParams, progress domain.ProgressFunc) (*domain.GeneratedQuiz, string, error) {
	if len(chunks) == 0 {
		return nil, "", domain.NewNoContentError()
	}
	if progress == nil {
		progress = func(int) {}
	}

	g.logger.Info("Generating quiz",
		zap.Int("chunks", len(chunks)),
		zap.Int("questions", params.NumberOfQuestions),
		zap.String("question_type", string(params.QuestionType)))
	progress(ProgressStarted)

	summaries, err := g.summarizeChunks(ctx, chunks)
	if err != nil {
		return nil, "", err
	}
	progress(ProgressSummarized)

	master, err := g.mergeSummaries(ctx, summaries)
	if err != nil {
		return nil, "", err
	}
	progress(ProgressMerged)

	resp, err := g.llm.Complete(ctx, g.request(quizTemperature,
		domain.ChatMessage{Role: domain.RoleSystem, Content: BuildQuizPrompt(params)},
		domain.ChatMessage{Role: domain.RoleUser, Content: master},
	))
	if err != nil {
		return nil, "", err
	}
	progress(ProgressGenerated)

	questions, err := ParseQuiz(resp.Content, params)
	if err != nil {
		g.logger.Error("Failed to parse quiz output, returning raw text",
			zap.Error(err),
			zap.Int("output_bytes", len(resp.Content)))
		return &domain.GeneratedQuiz{Raw: resp.Content}, master, nil
	}
	return &domain.GeneratedQuiz{Questions: questions}, master, nil
}

func (g *QuizGenerator) summarizeChunks(ctx context.Context, chunks []string) ([]string, error) {
	summaries := make([]string, len(chunks))
	for start := 0; start < len(chunks); start += g.opts.SummaryBatchSize {
		if start > 0 {
			if err := g.sleep(ctx, g.opts.BatchPause); err != nil {
				return nil, err
			}
		}
		end := start + g.opts.SummaryBatchSize
		if end > len(chunks) {
			end = len(chunks)
		}

		eg, egCtx := errgroup.WithContext(ctx)
		eg.SetLimit(g.opts.SummaryConcurrency)
		for i := start; i < end; i++ {
			i := i
			eg.Go(func() error {
				resp, err := g.llm.Complete(egCtx, g.request(summaryTemperature,
					domain.ChatMessage{Role: domain.RoleSystem, Content: summaryPrompt},
					domain.ChatMessage{Role: domain.RoleUser, Content: chunks[i]},
				))
				if err != nil {
					return err
				}
				summaries[i] = resp.Content
				return nil
			})
		}
		if err := eg.Wait(); err != nil {
			g.logger.Error("Chunk summarization failed", zap.Int("batch_start", start), zap.Error(err))
			return nil, err
		}
		g.logger.Debug("Summarized batch", zap.Int("from", start), zap.Int("to", end))
	}
	return summaries, nil
}

func (g *QuizGenerator) mergeSummaries(ctx context.Context, summaries []string) (string, error) {
	prompt := fmt.Sprintf("Combine these section summaries into one coherent, concise master summary "+
		"(max %d words). Preserve all key concepts.", g.opts.MergeMaxWords)
	resp, err := g.llm.Complete(ctx, g.request(g.opts.Temperature,
		domain.ChatMessage{Role: domain.RoleSystem, Content: prompt},
		domain.ChatMessage{Role: domain.RoleUser, Content: strings.Join(summaries, summarySeparator)},
	))
	if err != nil {
		return "", err
	}
	return resp.Content, nil
}

func (g *QuizGenerator) request(temperature float32, msgs ...domain.ChatMessage) domain.CompletionRequest {
	return domain.CompletionRequest{
		Model:       g.opts.Model,
		Messages:    msgs,
		Temperature: temperature,
		MaxTokens:   g.opts.MaxTokens,
	}
}

// BuildQuizPrompt renders the system prompt for the question-writing call.
func BuildQuizPrompt(p domain.QuizParams) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Generate exactly %d high-quality %s questions with a difficulty of %s.",
		p.NumberOfQuestions, strings.ReplaceAll(string(p.QuestionType), "_", " "), p.DifficultyLevel)
	if p.CourseArea != "" {
		fmt.Fprintf(&b, " The material comes from a %s course.", p.CourseArea)
	}
	if notes := strings.TrimSpace(p.AdditionalNotes); notes != "" {
		fmt.Fprintf(&b, "\nThe user added these notes: %q. Work them into the questions in a refined way. "+
			"If they do not make sense, do not improve the questions, or are unrelated to the uploaded content, ignore them.", notes)
	}
	b.WriteString(`
Format as a JSON array and output nothing else:
[
  {
    "question": "...",
    "options": ["A. ...", "B. ...", "C. ...", "D. ..."],
    "correctAnswer": "B",
    "explanation": "..."
  }
]
Rules:
- Exactly one correct answer
- Distractors must be plausible
- Include a detailed explanation
- Cover different parts of the document`)
	return b.String()
}

var (
	thinkBlock = regexp.MustCompile(`(?s)<think>.*?</think>`)
	codeFence  = regexp.MustCompile("(?m)^\\s*```[a-zA-Z]*\\s*$")
)

type rawQuestion struct {
	Question        string          `json:"question"`
	Options         []string        `json:"options"`
	Answer          json.RawMessage `json:"answer"`
	CorrectAnswer   json.RawMessage `json:"correctAnswer"`
	Explanation     string          `json:"explanation"`
	DifficultyLevel string          `json:"difficultyLevel"`
	QuestionType    string          `json:"questionType"`
}

// ParseQuiz extracts questions from model output. It tolerates reasoning
// blocks, code fences and prose around the outermost JSON array, and accepts
// either "answer" or "correctAnswer". Questions with empty text are dropped.
func ParseQuiz(output string, params domain.QuizParams) ([]domain.QuizQuestion, error) {
	text := thinkBlock.ReplaceAllString(output, "")
	text = codeFence.ReplaceAllString(text, "")

	start := strings.Index(text, "[")
	end := strings.LastIndex(text, "]")
	if start < 0 || end <= start {
		return nil, errors.New("no JSON array in model output")
	}

	var raw []rawQuestion
	if err := json.Unmarshal([]byte(text[start:end+1]), &raw); err != nil {
		return nil, fmt.Errorf("decode quiz array: %w", err)
	}

	questions := make([]domain.QuizQuestion, 0, len(raw))
	for _, r := range raw {
		q := strings.TrimSpace(r.Question)
		if q == "" {
			continue
		}
		answer := answerText(r.CorrectAnswer)
		if answer == "" {
			answer = answerText(r.Answer)
		}
		qq := domain.QuizQuestion{
			Question:        q,
			Options:         r.Options,
			CorrectAnswer:   answer,
			Explanation:     strings.TrimSpace(r.Explanation),
			DifficultyLevel: params.DifficultyLevel,
			QuestionType:    params.QuestionType,
		}
		if d := domain.Difficulty(r.DifficultyLevel); d.Valid() {
			qq.DifficultyLevel = d
		}
		if t := domain.QuestionType(r.QuestionType); t.Valid() {
			qq.QuestionType = t
		}
		if qq.Options == nil {
			qq.Options = []string{}
		}
		questions = append(questions, qq)
	}
	if len(questions) == 0 {
		return nil, errors.New("model output contained no questions")
	}
	return questions, nil
}

// answerText accepts string, boolean and numeric answers.
func answerText(raw json.RawMessage) string {
	if len(raw) == 0 || string(raw) == "null" {
		return ""
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return strings.TrimSpace(s)
	}
	return strings.TrimSpace(string(raw))
}
