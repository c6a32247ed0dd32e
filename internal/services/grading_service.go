package services

import (
	"encoding/json"
	"log/slog"
	"math"
	"strconv"

	"github.com/prepdesk/exam-service/internal/models"
)

type gradingService struct {
	logger *slog.Logger
}

func NewGradingService(logger *slog.Logger) GradingService {
	return &gradingService{logger: logger}
}

// IsCorrect evaluates one stored answer against the question's answer key.
// Malformed answers and malformed keys evaluate to incorrect rather than
// failing the whole grading pass.
func (s *gradingService) IsCorrect(question *models.Question, raw json.RawMessage) bool {
	key, err := question.Key()
	if err != nil {
		s.logger.Warn("Unreadable answer key, marking incorrect",
			"question_id", question.ID,
			"question_type", question.Type,
			"error", err)
		return false
	}

	switch question.Type {
	case models.MCQ:
		return evaluateChoice(key.Choice, raw)
	case models.TrueFalse:
		return evaluateBool(key.Bool, raw)
	case models.FillBlank:
		return evaluateText(key.Text, raw)
	case models.Subjective:
		return evaluateKeywords(key.Keywords, raw)
	default:
		return false
	}
}

// Grade scores a full attempt. Every question contributes to the points
// denominator whether answered or not; unanswered questions are never
// penalized. The final score may be negative when penalties exceed
// earned points.
func (s *gradingService) Grade(questions []*models.Question, answers models.AnswerSet) GradeSummary {
	summary := GradeSummary{
		Results: make(models.AttemptResults, len(questions)),
	}

	for _, question := range questions {
		summary.TotalPoints += question.Points

		resultKey := strconv.FormatUint(uint64(question.ID), 10)
		raw, answered := answers[resultKey]

		result := models.QuestionResult{
			Answered:       answered,
			PossiblePoints: question.Points,
		}

		if answered {
			if s.IsCorrect(question, raw) {
				result.Correct = true
				result.Points = question.Points
				summary.EarnedPoints += question.Points
			} else {
				result.Points = -question.NegativePoints
				summary.PenaltyPoints += question.NegativePoints
			}
		}

		summary.Results[resultKey] = result
	}

	summary.FinalPoints = summary.EarnedPoints - summary.PenaltyPoints

	if summary.TotalPoints > 0 {
		summary.Score = int(math.Round(summary.FinalPoints / summary.TotalPoints * 100))
	}

	return summary
}
