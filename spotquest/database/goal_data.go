package database

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/hyewave/spotquest/spotquest/database/models"
	"github.com/hyewave/spotquest/spotquest/database/repositories"
)

// defaultGoals is the starter catalog. Codes are stable so seeding is
// idempotent; admin edits land on top of these rows.
//
// No goal may use coin_earned or xp_earned as its criteria while carrying
// its own coin/xp reward: the ledger emits those events on every grant and
// a reward-bearing meta goal would chase its own tail.
var defaultGoals = []models.GoalDefinition{
	{
		Code:           "first_checkin",
		Name:           "First Steps",
		Description:    "Check in to your first place",
		Kind:           models.GoalKindAchievement,
		CriteriaAction: models.ActionCheckin,
		Target:         1,
		ResetSchedule:  models.ResetNone,
		CoinReward:     20,
		XPReward:       30,
		Active:         true,
		DisplayOrder:   1,
	},
	{
		Code:           "checkin_5",
		Name:           "Explorer",
		Description:    "Check in to 5 places",
		Kind:           models.GoalKindAchievement,
		CriteriaAction: models.ActionCheckin,
		Target:         5,
		ResetSchedule:  models.ResetNone,
		CoinReward:     50,
		XPReward:       80,
		Active:         true,
		DisplayOrder:   2,
	},
	{
		Code:           "checkin_50",
		Name:           "Globetrotter",
		Description:    "Check in to 50 places",
		Kind:           models.GoalKindAchievement,
		CriteriaAction: models.ActionCheckin,
		Target:         50,
		ResetSchedule:  models.ResetNone,
		CoinReward:     300,
		XPReward:       500,
		Active:         true,
		DisplayOrder:   3,
	},
	{
		Code:           "review_10",
		Name:           "Critic",
		Description:    "Write 10 reviews",
		Kind:           models.GoalKindAchievement,
		CriteriaAction: models.ActionReview,
		Target:         10,
		ResetSchedule:  models.ResetNone,
		CoinReward:     100,
		XPReward:       150,
		Active:         true,
		DisplayOrder:   4,
	},
	{
		Code:           "follow_10",
		Name:           "Social Butterfly",
		Description:    "Follow 10 other users",
		Kind:           models.GoalKindAchievement,
		CriteriaAction: models.ActionFollow,
		Target:         10,
		ResetSchedule:  models.ResetNone,
		CoinReward:     60,
		XPReward:       100,
		Active:         true,
		DisplayOrder:   5,
	},
	{
		Code:           "daily_checkin",
		Name:           "Daily Wanderer",
		Description:    "Check in somewhere today",
		Kind:           models.GoalKindChallenge,
		CriteriaAction: models.ActionCheckin,
		Target:         1,
		ResetSchedule:  models.ResetDaily,
		CoinReward:     10,
		XPReward:       15,
		Active:         true,
		DisplayOrder:   10,
	},
	{
		Code:           "weekly_checkin_7",
		Name:           "Week on the Road",
		Description:    "Check in 7 times this week",
		Kind:           models.GoalKindChallenge,
		CriteriaAction: models.ActionCheckin,
		Target:         7,
		ResetSchedule:  models.ResetWeekly,
		CoinReward:     80,
		XPReward:       120,
		Active:         true,
		DisplayOrder:   11,
	},
	{
		Code:           "weekly_review_3",
		Name:           "Weekly Critic",
		Description:    "Write 3 reviews this week",
		Kind:           models.GoalKindChallenge,
		CriteriaAction: models.ActionReview,
		Target:         3,
		ResetSchedule:  models.ResetWeekly,
		CoinReward:     60,
		XPReward:       90,
		Active:         true,
		DisplayOrder:   12,
	},
	{
		Code:           "weekly_like_20",
		Name:           "Spread the Love",
		Description:    "Like 20 posts this week",
		Kind:           models.GoalKindChallenge,
		CriteriaAction: models.ActionLike,
		Target:         20,
		ResetSchedule:  models.ResetWeekly,
		CoinReward:     40,
		XPReward:       60,
		Active:         true,
		DisplayOrder:   13,
	},
}

// SeedGoalData upserts the starter goal catalog.
func SeedGoalData(ctx context.Context, repo repositories.GoalRepository) error {
	for i := range defaultGoals {
		goal := defaultGoals[i]
		if err := goal.ValidateConfig(); err != nil {
			return fmt.Errorf("invalid seed goal: %w", err)
		}
		if err := repo.Upsert(ctx, &goal); err != nil {
			return fmt.Errorf("failed to seed goal %s: %w", goal.Code, err)
		}
	}
	slog.Info("Goal catalog seeded",
		slog.String("type", "db"),
		slog.Int("goals", len(defaultGoals)))
	return nil
}
