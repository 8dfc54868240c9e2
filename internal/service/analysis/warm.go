package analysis

import (
	"context"
	"errors"

	"go.uber.org/zap"

	"github.com/Additional-Code/salesboard/internal/dataset"
)

// Warm precomputes the unfiltered reports at the default level so they are
// cached before the first request after a reload.
func (s *Service) Warm(ctx context.Context) error {
	var f dataset.Filter
	steps := []struct {
		page string
		run  func() error
	}{
		{PageOverview, func() error { _, err := s.Overview(ctx, f); return err }},
		{PageExploratory, func() error { _, err := s.Exploratory(ctx, f); return err }},
		{PageMeanInterval, func() error { _, err := s.MeanInterval(ctx, f, 0); return err }},
		{PageProportionInterval, func() error { _, err := s.ProportionInterval(ctx, f, 0); return err }},
		{PageCategoryComparison, func() error { _, err := s.CategoryComparison(ctx, f, "", "", 0); return err }},
		{PageTTest, func() error { _, err := s.TTest(ctx, f, "", ""); return err }},
		{PageChiSquare, func() error { _, err := s.ChiSquare(ctx, f); return err }},
	}
	var errs []error
	for _, step := range steps {
		if err := step.run(); err != nil {
			s.logger.Warn("report warmup failed", zap.String("page", step.page), zap.Error(err))
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
