package service

import (
	"context"
	"fmt"

	"glauk-api/internal/config"
	"glauk-api/internal/domain"
	"glauk-api/internal/util"

	"go.uber.org/zap"
)

// CreditGate admits quiz requests against a user's balance and charges for
// completed quizzes. Charging is separate from generation, so a crash between
// the two leaves the quiz uncharged.
type CreditGate struct {
	users              domain.UserRepository
	questionsPerCredit int
	chargeDivisor      int
	logger             *zap.Logger
}

func NewCreditGate(users domain.UserRepository, cfg config.CreditsConfig, logger *zap.Logger) *CreditGate {
	if cfg.QuestionsPerCredit <= 0 {
		cfg.QuestionsPerCredit = 10
	}
	if cfg.ChargeDivisor <= 0 {
		cfg.ChargeDivisor = 10
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &CreditGate{
		users:              users,
		questionsPerCredit: cfg.QuestionsPerCredit,
		chargeDivisor:      cfg.ChargeDivisor,
		logger:             logger,
	}
}

// RequiredCredits is the balance needed to request n questions.
func (g *CreditGate) RequiredCredits(n int) int {
	return util.CeilDiv(n, g.questionsPerCredit)
}

// ChargeFor is what a completed quiz of n questions costs.
func (g *CreditGate) ChargeFor(n int) int {
	return util.CeilDiv(n, g.chargeDivisor)
}

// CheckCredit reports whether the user holds at least required credits. An
// unknown user is simply not admitted; errors are infrastructure failures only.
func (g *CreditGate) CheckCredit(ctx context.Context, email string, required int) (bool, error) {
	user, err := g.users.GetUserByEmail(ctx, email)
	if err != nil {
		return false, fmt.Errorf("credit check for %s: %w", email, err)
	}
	if user == nil {
		return false, nil
	}
	return user.TotalCredits >= required, nil
}

func (g *CreditGate) Admit(ctx context.Context, email string, numberOfQuestions int) error {
	required := g.RequiredCredits(numberOfQuestions)
	ok, err := g.CheckCredit(ctx, email, required)
	if err != nil {
		return domain.NewInternalError("failed to check credits", err)
	}
	if !ok {
		g.logger.Info("Insufficient credits", zap.String("email", email), zap.Int("required", required))
		return domain.NewPreconditionFailedError("insufficient credits").
			WithContext("required", required)
	}
	return nil
}

// Charge deducts the cost of n questions and returns the amount charged.
func (g *CreditGate) Charge(ctx context.Context, email string, numberOfQuestions int) (int, error) {
	amount := g.ChargeFor(numberOfQuestions)
	if amount == 0 {
		return 0, nil
	}
	if err := g.users.DecrementCredits(ctx, email, amount); err != nil {
		return 0, err
	}
	g.logger.Info("Credits charged", zap.String("email", email), zap.Int("amount", amount))
	return amount, nil
}
