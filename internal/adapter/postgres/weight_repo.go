package postgres

import (
	"context"
	"database/sql"
	"errors"

	"niblet/internal/domain"
)

const weightColumns = "id, user_id, day, weight, unit, notes, created_at"

func scanWeight(s interface{ Scan(...any) error }) (domain.WeightEntry, error) {
	var e domain.WeightEntry
	err := s.Scan(&e.ID, &e.UserID, &e.Day, &e.Weight, &e.Unit, &e.Notes, &e.CreatedAt)
	return e, err
}

// AddWeightEntry inserts a weigh-in.
func (d *DB) AddWeightEntry(ctx context.Context, e domain.WeightEntry) (int64, error) {
	var id int64
	err := d.sql.QueryRowContext(ctx,
		"INSERT INTO weight_entries(user_id, day, weight, unit, notes, created_at) VALUES($1, $2, $3, $4, $5, $6) RETURNING id;",
		e.UserID, e.Day, e.Weight, e.Unit, e.Notes, e.CreatedAt.UTC(),
	).Scan(&id)
	return id, err
}

// DeleteWeightEntry removes one of the user's weigh-ins.
func (d *DB) DeleteWeightEntry(ctx context.Context, userID, id int64) (bool, error) {
	return affected(d.sql.ExecContext(ctx, "DELETE FROM weight_entries WHERE id=$1 AND user_id=$2;", id, userID))
}

// DeleteLatestWeightEntry removes the user's most recent weigh-in.
func (d *DB) DeleteLatestWeightEntry(ctx context.Context, userID int64) (bool, error) {
	return affected(d.sql.ExecContext(ctx,
		"DELETE FROM weight_entries WHERE id = (SELECT id FROM weight_entries WHERE user_id=$1 ORDER BY created_at DESC, id DESC LIMIT 1);",
		userID))
}

// LatestWeightForLocalDay returns the most recent weight entry for a local calendar day.
func (d *DB) LatestWeightForLocalDay(ctx context.Context, userID int64, localDay string) (*domain.WeightEntry, error) {
	e, err := scanWeight(d.sql.QueryRowContext(ctx,
		"SELECT "+weightColumns+" FROM weight_entries WHERE user_id=$1 AND day=$2 ORDER BY created_at DESC, id DESC LIMIT 1;",
		userID, localDay,
	))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &e, nil
}

// ListWeightEntries returns the user's weigh-ins in range, newest first.
func (d *DB) ListWeightEntries(ctx context.Context, userID int64, r domain.DayRange) ([]domain.WeightEntry, error) {
	rows, err := d.sql.QueryContext(ctx,
		"SELECT "+weightColumns+" FROM weight_entries WHERE user_id=$1 AND ($2 = '' OR day >= $2) AND ($3 = '' OR day <= $3) ORDER BY created_at DESC, id DESC LIMIT $4;",
		userID, r.From, r.To, limitArg(r.Limit))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]domain.WeightEntry, 0)
	for rows.Next() {
		e, err := scanWeight(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	return out, rows.Err()
}
