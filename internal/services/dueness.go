// Package services provides business logic and orchestration for the
// finance tracker.
//
// This file decides when a recurring bill is due for posting. Each
// frequency has its own checker so the bills worker never hard-codes
// calendar arithmetic.
package services

import (
	"fmt"
	"time"

	"github.com/rhexdiaz/pcshop-finance-tracker/internal/core"
)

// DueChecker decides whether a bill should be posted given when it was
// last posted and the current time.
type DueChecker interface {
	IsDue(lastPosted, now time.Time, startDate core.Date) bool
}

// DailyChecker posts once per calendar day.
type DailyChecker struct{}

func (DailyChecker) IsDue(lastPosted, now time.Time, _ core.Date) bool {
	if lastPosted.IsZero() {
		return true
	}
	return lastPosted.Format("2006-01-02") != now.Format("2006-01-02")
}

// WeeklyChecker posts when 7 or more days have passed since the last
// posting.
type WeeklyChecker struct{}

func (WeeklyChecker) IsDue(lastPosted, now time.Time, _ core.Date) bool {
	if lastPosted.IsZero() {
		return true
	}
	return now.Sub(lastPosted).Hours()/24 >= 7
}

// MonthlyChecker posts once per calendar month, on or after the bill's
// anchor day. The anchor clamps to the last day of short months.
type MonthlyChecker struct{}

func (MonthlyChecker) IsDue(lastPosted, now time.Time, startDate core.Date) bool {
	if lastPosted.IsZero() {
		return true
	}
	if lastPosted.Year() == now.Year() && lastPosted.Month() == now.Month() {
		return false
	}
	target := clampDay(startDate.Day(), now)
	return now.Day() >= target
}

// YearlyChecker posts once per calendar year, on or after the bill's
// anchor month and day.
type YearlyChecker struct{}

func (YearlyChecker) IsDue(lastPosted, now time.Time, startDate core.Date) bool {
	if lastPosted.IsZero() {
		return true
	}
	if lastPosted.Year() == now.Year() {
		return false
	}
	if int(now.Month()) < startDate.Month() {
		return false
	}
	if int(now.Month()) == startDate.Month() {
		return now.Day() >= clampDay(startDate.Day(), now)
	}
	return true
}

// clampDay limits an anchor day to the length of now's month.
func clampDay(day int, now time.Time) int {
	lastDay := time.Date(now.Year(), now.Month()+1, 0, 0, 0, 0, 0, time.UTC).Day()
	if day > lastDay {
		return lastDay
	}
	return day
}

var dueCheckers = map[core.RepetitionTypes]DueChecker{
	core.Daily:   DailyChecker{},
	core.Weekly:  WeeklyChecker{},
	core.Monthly: MonthlyChecker{},
	core.Yearly:  YearlyChecker{},
}

// CheckerFor returns the due checker for a repetition type.
func CheckerFor(frequency core.RepetitionTypes) (DueChecker, error) {
	checker, ok := dueCheckers[frequency]
	if !ok {
		return nil, fmt.Errorf("unknown repetition type: %s", frequency)
	}
	return checker, nil
}
