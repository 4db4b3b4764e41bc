package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
)

type DashboardDay struct {
	Date              string  `json:"date"`
	FeedingTotalML    float64 `json:"feeding_total_ml"`
	FeedingCount      int     `json:"feeding_count"`
	FeedingBreastML   float64 `json:"feeding_breast_ml"`
	FeedingFormulaML  float64 `json:"feeding_formula_ml"`
	DiaperPeeCount    int     `json:"diaper_pee_count"`
	DiaperPooCount    int     `json:"diaper_poo_count"`
	DiaperDryCount    int     `json:"diaper_dry_count"`
	DiaperPeePooCount int     `json:"diaper_pee_poo_count"`
}

type LatestWeight struct {
	Value      float64 `json:"value"`
	OccurredAt string  `json:"occurred_at"`
	Date       string  `json:"date"`
}

// DashboardDays aggregates entries per calendar day over the inclusive
// date range.
func (s *Store) DashboardDays(ctx context.Context, fromDate, toDate string) ([]DashboardDay, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT
			date,
			COALESCE(SUM(CASE WHEN entry_type='feeding' THEN value END), 0) AS feeding_total_ml,
			COUNT(*) FILTER (WHERE entry_type='feeding') AS feeding_count,
			COALESCE(SUM(CASE WHEN entry_type='feeding' AND subtype='breast' THEN value END), 0) AS feeding_breast_ml,
			COALESCE(SUM(CASE WHEN entry_type='feeding' AND subtype='formula' THEN value END), 0) AS feeding_formula_ml,
			COUNT(*) FILTER (WHERE entry_type='diaper' AND subtype='pee') AS diaper_pee_count,
			COUNT(*) FILTER (WHERE entry_type='diaper' AND subtype='poo') AS diaper_poo_count,
			COUNT(*) FILTER (WHERE entry_type='diaper' AND subtype='dry') AS diaper_dry_count,
			COUNT(*) FILTER (WHERE entry_type='diaper' AND subtype='pee+poo') AS diaper_pee_poo_count
		FROM entries
		WHERE date >= $1 AND date <= $2
		GROUP BY date
		ORDER BY date ASC
	`, fromDate, toDate)
	if err != nil {
		return nil, fmt.Errorf("failed to query dashboard days: %w", err)
	}
	defer rows.Close()

	var days []DashboardDay
	for rows.Next() {
		var d DashboardDay
		err := rows.Scan(&d.Date, &d.FeedingTotalML, &d.FeedingCount, &d.FeedingBreastML,
			&d.FeedingFormulaML, &d.DiaperPeeCount, &d.DiaperPooCount, &d.DiaperDryCount,
			&d.DiaperPeePooCount)
		if err != nil {
			return nil, fmt.Errorf("failed to scan dashboard day: %w", err)
		}
		days = append(days, d)
	}

	return days, rows.Err()
}

// LatestWeight returns the most recent weight measurement, or nil when no
// weight has been recorded yet.
func (s *Store) LatestWeight(ctx context.Context) (*LatestWeight, error) {
	var w LatestWeight
	err := s.db.QueryRowContext(ctx, `
		SELECT value, occurred_at, date
		FROM entries
		WHERE entry_type = 'weight' AND value IS NOT NULL
		ORDER BY occurred_at DESC
		LIMIT 1
	`).Scan(&w.Value, &w.OccurredAt, &w.Date)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query latest weight: %w", err)
	}
	return &w, nil
}
