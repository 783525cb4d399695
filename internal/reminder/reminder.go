// Package reminder derives a task's urgency from how close its due date is.
package reminder

import (
	"fmt"
	"time"

	"task-workflow-api/internal/domain"
)

// PercentThresholds are fractions of the task's lifetime already elapsed.
type PercentThresholds struct {
	Critical float64 `yaml:"critical"`
	High     float64 `yaml:"high"`
	Medium   float64 `yaml:"medium"`
	Low      float64 `yaml:"low"`
}

// DayThresholds are whole days remaining until the due date.
type DayThresholds struct {
	Critical int `yaml:"critical"`
	High     int `yaml:"high"`
	Medium   int `yaml:"medium"`
	Low      int `yaml:"low"`
}

// Options configures the calculator.
type Options struct {
	// UseDayThresholds switches from elapsed-percentage to days-remaining mode.
	UseDayThresholds bool              `yaml:"useDayThresholds"`
	Percent          PercentThresholds `yaml:"percent"`
	Days             DayThresholds     `yaml:"days"`
}

// DefaultOptions returns the stock thresholds.
func DefaultOptions() Options {
	return Options{
		Percent: PercentThresholds{Critical: 0.90, High: 0.75, Medium: 0.50, Low: 0.25},
		Days:    DayThresholds{Critical: 1, High: 3, Medium: 7, Low: 14},
	}
}

// Validate checks that thresholds are ordered from most to least urgent.
func (o Options) Validate() error {
	p := o.Percent
	if !(p.Critical >= p.High && p.High >= p.Medium && p.Medium >= p.Low && p.Low >= 0 && p.Critical <= 1) {
		return fmt.Errorf("percent thresholds must satisfy 1 >= critical >= high >= medium >= low >= 0: %w", domain.ErrValidation)
	}
	d := o.Days
	if !(d.Critical <= d.High && d.High <= d.Medium && d.Medium <= d.Low && d.Critical >= 0) {
		return fmt.Errorf("day thresholds must satisfy 0 <= critical <= high <= medium <= low: %w", domain.ErrValidation)
	}
	return nil
}

// Calculator computes reminder levels. It holds no state besides its options
// and clock, so one value can be shared.
type Calculator struct {
	opts Options
	now  func() time.Time
}

// NewCalculator returns a calculator. A nil clock means time.Now.
func NewCalculator(opts Options, now func() time.Time) *Calculator {
	if now == nil {
		now = time.Now
	}
	return &Calculator{opts: opts, now: now}
}

// Level returns the reminder level for a task with the given dates.
func (c *Calculator) Level(dueDate, createdAt *time.Time) domain.ReminderLevel {
	return Level(dueDate, createdAt, c.now(), c.opts)
}

// ForTask is Level applied to a task's own dates.
func (c *Calculator) ForTask(t *domain.Task) domain.ReminderLevel {
	created := t.CreatedAt
	if created.IsZero() {
		return c.Level(t.DueDate, nil)
	}
	return c.Level(t.DueDate, &created)
}

// Level is the pure form of Calculator.Level.
func Level(dueDate, createdAt *time.Time, now time.Time, opts Options) domain.ReminderLevel {
	if dueDate == nil {
		return domain.ReminderNone
	}
	if dueDate.Before(now) {
		return domain.ReminderCritical
	}
	if opts.UseDayThresholds || createdAt == nil {
		return byDays(*dueDate, now, opts.Days)
	}
	return byPercent(*dueDate, *createdAt, now, opts.Percent)
}

func byDays(due, now time.Time, th DayThresholds) domain.ReminderLevel {
	days := due.Sub(now).Hours() / 24
	switch {
	case days <= float64(th.Critical):
		return domain.ReminderCritical
	case days <= float64(th.High):
		return domain.ReminderHigh
	case days <= float64(th.Medium):
		return domain.ReminderMedium
	case days <= float64(th.Low):
		return domain.ReminderLow
	}
	return domain.ReminderNone
}

func byPercent(due, created, now time.Time, th PercentThresholds) domain.ReminderLevel {
	total := due.Sub(created)
	if total <= 0 {
		return domain.ReminderCritical
	}
	elapsed := float64(now.Sub(created)) / float64(total)
	switch {
	case elapsed >= th.Critical:
		return domain.ReminderCritical
	case elapsed >= th.High:
		return domain.ReminderHigh
	case elapsed >= th.Medium:
		return domain.ReminderMedium
	case elapsed >= th.Low:
		return domain.ReminderLow
	}
	return domain.ReminderNone
}
