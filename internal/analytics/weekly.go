// Package analytics aggregates logged meals and weights into weekly
// reports using an embedded DuckDB.
package analytics

import (
	"context"
	"database/sql"
	"fmt"
	"math"
	"sync"

	_ "github.com/marcboeker/go-duckdb"

	"niblet/internal/domain"
)

// WeekSummary is one ISO week (Monday start) of activity.
type WeekSummary struct {
	WeekStart        string   `json:"weekStart"`
	Meals            int      `json:"meals"`
	Calories         int      `json:"calories"`
	Protein          int      `json:"protein"`
	Carbs            int      `json:"carbs"`
	Fat              int      `json:"fat"`
	DaysLogged       int      `json:"daysLogged"`
	AvgDailyCalories int      `json:"avgDailyCalories"`
	AvgWeight        *float64 `json:"avgWeight,omitempty"`
	MinWeight        *float64 `json:"minWeight,omitempty"`
	MaxWeight        *float64 `json:"maxWeight,omitempty"`
}

// Reporter owns an in-memory DuckDB. Reports are computed on a single
// connection, one at a time.
type Reporter struct {
	db *sql.DB
	mu sync.Mutex
}

func Open() (*Reporter, error) {
	db, err := sql.Open("duckdb", "")
	if err != nil {
		return nil, fmt.Errorf("failed to open DuckDB: %w", err)
	}
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	return &Reporter{db: db}, nil
}

func (r *Reporter) Close() error {
	return r.db.Close()
}

const weeklyQuery = `
WITH m AS (
	SELECT date_trunc('week', day) AS week,
		count(*) AS meals,
		CAST(sum(calories) AS BIGINT) AS calories,
		CAST(sum(protein) AS BIGINT) AS protein,
		CAST(sum(carbs) AS BIGINT) AS carbs,
		CAST(sum(fat) AS BIGINT) AS fat,
		count(DISTINCT day) AS days
	FROM report_meals GROUP BY 1
), w AS (
	SELECT date_trunc('week', day) AS week,
		avg(weight) AS avg_weight,
		min(weight) AS min_weight,
		max(weight) AS max_weight
	FROM report_weights GROUP BY 1
)
SELECT strftime(coalesce(m.week, w.week), '%Y-%m-%d') AS week_start,
	coalesce(m.meals, 0), coalesce(m.calories, 0),
	coalesce(m.protein, 0), coalesce(m.carbs, 0), coalesce(m.fat, 0),
	coalesce(m.days, 0),
	w.avg_weight, w.min_weight, w.max_weight
FROM m FULL OUTER JOIN w ON m.week = w.week
ORDER BY week_start`

// Weekly loads meals and weights into temporary tables and returns one
// summary per week that has any data, oldest first.
func (r *Reporter) Weekly(ctx context.Context, meals []domain.Meal, weights []domain.WeightEntry) ([]WeekSummary, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	conn, err := r.db.Conn(ctx)
	if err != nil {
		return nil, fmt.Errorf("duckdb conn: %w", err)
	}
	defer conn.Close()

	if err := load(ctx, conn, meals, weights); err != nil {
		return nil, err
	}
	defer func() {
		_, _ = conn.ExecContext(context.Background(), `DROP TABLE IF EXISTS report_meals; DROP TABLE IF EXISTS report_weights`)
	}()

	rows, err := conn.QueryContext(ctx, weeklyQuery)
	if err != nil {
		return nil, fmt.Errorf("weekly query: %w", err)
	}
	defer rows.Close()

	var out []WeekSummary
	for rows.Next() {
		var s WeekSummary
		var avg, lo, hi sql.NullFloat64
		if err := rows.Scan(&s.WeekStart, &s.Meals, &s.Calories, &s.Protein, &s.Carbs, &s.Fat, &s.DaysLogged, &avg, &lo, &hi); err != nil {
			return nil, err
		}
		if s.DaysLogged > 0 {
			s.AvgDailyCalories = int(math.Round(float64(s.Calories) / float64(s.DaysLogged)))
		}
		s.AvgWeight = roundedPtr(avg)
		s.MinWeight = roundedPtr(lo)
		s.MaxWeight = roundedPtr(hi)
		out = append(out, s)
	}
	return out, rows.Err()
}

func load(ctx context.Context, conn *sql.Conn, meals []domain.Meal, weights []domain.WeightEntry) error {
	if _, err := conn.ExecContext(ctx, `
		CREATE OR REPLACE TEMP TABLE report_meals (
			day DATE, calories INTEGER, protein INTEGER, carbs INTEGER, fat INTEGER, meal_type VARCHAR
		)`); err != nil {
		return fmt.Errorf("create report_meals: %w", err)
	}
	if _, err := conn.ExecContext(ctx, `
		CREATE OR REPLACE TEMP TABLE report_weights (day DATE, weight DOUBLE)`); err != nil {
		return fmt.Errorf("create report_weights: %w", err)
	}

	tx, err := conn.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	for _, m := range meals {
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO report_meals VALUES (CAST(? AS DATE), ?, ?, ?, ?, ?)`,
			m.Date, m.Calories, m.Nutrition.Protein, m.Nutrition.Carbs, m.Nutrition.Fat, string(m.MealType),
		); err != nil {
			return fmt.Errorf("load meal %d: %w", m.ID, err)
		}
	}
	for _, w := range weights {
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO report_weights VALUES (CAST(? AS DATE), ?)`, w.Day, w.Weight,
		); err != nil {
			return fmt.Errorf("load weight %d: %w", w.ID, err)
		}
	}
	return tx.Commit()
}

func roundedPtr(v sql.NullFloat64) *float64 {
	if !v.Valid {
		return nil
	}
	r := domain.RoundTo(v.Float64, 1)
	return &r
}
