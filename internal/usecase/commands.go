package usecase

import (
	"context"

	"go.uber.org/zap"

	"github.com/naka-gawa/ctrl/internal/domain"
	"github.com/naka-gawa/ctrl/internal/metrics"
)

// CommandService turns raw slash command text into a presentable result.
type CommandService struct {
	executor *Executor
	metrics  *metrics.Recorder
	logger   *zap.Logger
}

// NewCommandService creates a CommandService. rec may be nil.
func NewCommandService(executor *Executor, rec *metrics.Recorder, logger *zap.Logger) *CommandService {
	return &CommandService{executor: executor, metrics: rec, logger: logger}
}

// Handle parses and executes text. It never returns an error: validation
// failures become corrective messages and internal failures are logged and
// reported with a generic message.
func (s *CommandService) Handle(ctx context.Context, inv Invocation, text string) domain.Result {
	cmd, err := domain.ParseCommand(text)
	if err != nil {
		s.metrics.ObserveCommand("invalid", domain.Category(err).String())
		s.logger.Info("Rejected command", zap.String("text", text), zap.Error(err))
		return domain.ErrorResult(err)
	}

	result, err := s.executor.Execute(ctx, inv, cmd)
	if err != nil {
		s.metrics.ObserveCommand(string(cmd.Verb), domain.Category(err).String())
		if domain.IsUserFacing(err) {
			s.logger.Info("Command failed validation", zap.String("verb", string(cmd.Verb)), zap.Error(err))
		} else {
			s.logger.Error("Command failed", zap.String("verb", string(cmd.Verb)), zap.Error(err))
		}
		return domain.ErrorResult(err)
	}
	s.metrics.ObserveCommand(string(cmd.Verb), "ok")
	return result
}
