package services

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"

	"github.com/xuri/excelize/v2"

	"github.com/prepdesk/exam-service/internal/models"
	"github.com/prepdesk/exam-service/internal/repositories"
)

type reportService struct {
	repo   repositories.Repository
	logger *slog.Logger
}

func NewReportService(repo repositories.Repository, logger *slog.Logger) ReportService {
	return &reportService{
		repo:   repo,
		logger: logger,
	}
}

// ExportAttempts builds an XLSX workbook of all completed attempts for a
// test, one row per attempt.
func (s *reportService) ExportAttempts(ctx context.Context, testID uint) (*bytes.Buffer, error) {
	test, err := s.repo.Test().GetByID(ctx, nil, testID)
	if err != nil {
		if repositories.IsNotFoundError(err) {
			return nil, ErrTestNotFound
		}
		return nil, fmt.Errorf("failed to get test: %w", err)
	}

	attempts, err := s.repo.Attempt().GetCompletedByTest(ctx, nil, testID)
	if err != nil {
		return nil, fmt.Errorf("failed to get completed attempts: %w", err)
	}

	f := excelize.NewFile()
	defer func() {
		if err := f.Close(); err != nil {
			s.logger.Warn("Failed to close workbook", "error", err)
		}
	}()

	const sheet = "Attempts"
	f.SetSheetName("Sheet1", sheet)

	headers := []string{
		"Attempt ID", "User ID", "Started At", "Completed At", "End Reason",
		"Earned Points", "Penalty Points", "Final Points", "Total Points",
		"Score (%)", "Passed",
	}
	for i, header := range headers {
		cell, err := excelize.CoordinatesToCellName(i+1, 1)
		if err != nil {
			return nil, fmt.Errorf("failed to build header cell: %w", err)
		}
		if err := f.SetCellValue(sheet, cell, header); err != nil {
			return nil, fmt.Errorf("failed to write header: %w", err)
		}
	}

	for row, attempt := range attempts {
		values := attemptRow(attempt)
		for col, value := range values {
			cell, err := excelize.CoordinatesToCellName(col+1, row+2)
			if err != nil {
				return nil, fmt.Errorf("failed to build cell name: %w", err)
			}
			if err := f.SetCellValue(sheet, cell, value); err != nil {
				return nil, fmt.Errorf("failed to write attempt row: %w", err)
			}
		}
	}

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, fmt.Errorf("failed to render workbook: %w", err)
	}

	s.logger.Info("Exported attempt report",
		"test_id", testID,
		"test_title", test.Title,
		"attempt_count", len(attempts))

	return buf, nil
}

func attemptRow(attempt *models.TestAttempt) []interface{} {
	completedAt := ""
	if attempt.CompletedAt != nil {
		completedAt = attempt.CompletedAt.Format("2006-01-02 15:04:05")
	}
	endReason := ""
	if attempt.EndReason != nil {
		endReason = *attempt.EndReason
	}
	score := 0
	if attempt.Score != nil {
		score = *attempt.Score
	}

	return []interface{}{
		attempt.ID,
		attempt.UserID,
		attempt.StartedAt.Format("2006-01-02 15:04:05"),
		completedAt,
		endReason,
		attempt.EarnedPoints,
		attempt.PenaltyPoints,
		attempt.FinalPoints,
		attempt.TotalPoints,
		score,
		attempt.Passed,
	}
}
