// Package scoring turns a user's transactions into a savings score and
// publishes it to the leaderboard store.
package scoring

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"time"

	"github.com/shopspring/decimal"

	"trackify/internal/core"
	applog "trackify/internal/log"
	"trackify/internal/mirror"
	"trackify/internal/telemetry"
)

var hundred = decimal.NewFromInt(100)

type monthTotals struct {
	income  decimal.Decimal
	savings decimal.Decimal
}

// MonthlyScore computes round(savings / income * 100) for one month, where
// savings is the sum of negated negative amounts. Zero income scores zero.
func MonthlyScore(income, savings decimal.Decimal) int {
	if !income.IsPositive() {
		return 0
	}
	return int(savings.Div(income).Mul(hundred).Round(0).IntPart())
}

// Compute groups transactions by calendar month and returns the total score
// with the per-month scores, most recent month first. Transactions with
// unparsable dates are skipped.
func Compute(txs []core.Transaction) (int, []core.MonthlyScore) {
	months := map[core.YearMonth]*monthTotals{}
	for _, tx := range txs {
		d, err := tx.ParsedDate()
		if err != nil {
			continue
		}
		ym := core.YearMonthOf(d)
		m, ok := months[ym]
		if !ok {
			m = &monthTotals{}
			months[ym] = m
		}
		amount := tx.AmountValue()
		switch amount.Sign() {
		case 1:
			m.income = m.income.Add(amount)
		case -1:
			m.savings = m.savings.Sub(amount)
		}
	}

	keys := make([]core.YearMonth, 0, len(months))
	for ym := range months {
		keys = append(keys, ym)
	}
	sort.Slice(keys, func(i, j int) bool { return keys[j].Before(keys[i]) })

	total := 0
	scores := make([]core.MonthlyScore, 0, len(keys))
	for _, ym := range keys {
		m := months[ym]
		s := MonthlyScore(m.income, m.savings)
		total += s
		scores = append(scores, core.MonthlyScore{YearMonth: ym.String(), Score: s})
	}
	return total, scores
}

// Service recomputes a user's score and overwrites their leaderboard record.
type Service struct {
	store       mirror.ScoreStore
	leaderboard *Leaderboard
	now         func() time.Time
	logger      *slog.Logger
}

// NewService builds a Service. leaderboard may be nil; when set its cache is
// invalidated after every publish.
func NewService(store mirror.ScoreStore, leaderboard *Leaderboard, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{
		store:       store,
		leaderboard: leaderboard,
		now:         time.Now,
		logger:      logger.With(applog.FieldComponent, applog.ComponentScoring),
	}
}

// WithClock overrides the clock used for LastUpdated.
func (s *Service) WithClock(now func() time.Time) *Service {
	s.now = now
	return s
}

// Score computes the record without publishing it.
func (s *Service) Score(user core.User, txs []core.Transaction) core.UserScore {
	total, months := Compute(txs)
	return core.UserScore{
		UserID:        user.ID,
		DisplayName:   user.DisplayName,
		TotalScore:    total,
		LastUpdated:   core.FormatDate(s.now()),
		MonthlyScores: months,
	}
}

// RecomputeAndPublish overwrites the user's record wholesale.
func (s *Service) RecomputeAndPublish(ctx context.Context, user core.User, txs []core.Transaction) (core.UserScore, error) {
	if err := user.Validate(); err != nil {
		return core.UserScore{}, err
	}
	ctx, span := telemetry.StartSpan(ctx, "scoring.RecomputeAndPublish")
	score := s.Score(user, txs)

	err := s.store.SaveUserScore(ctx, user.ID, score)
	telemetry.EndSpan(span, err)
	if err != nil {
		return score, fmt.Errorf("save user score: %w", err)
	}
	if s.leaderboard != nil {
		s.leaderboard.Invalidate()
	}

	s.logger.InfoContext(ctx, "User score published",
		applog.FieldUserID, user.ID,
		applog.FieldTotalScore, score.TotalScore,
		"months", len(score.MonthlyScores))
	return score, nil
}
