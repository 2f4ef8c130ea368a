package sqlite

import (
	"context"
	"database/sql"
	"errors"

	"niblet/internal/domain"
)

const weightColumns = "id, user_id, day, weight, unit, notes, created_at"

func scanWeight(row scanner) (domain.WeightEntry, error) {
	var e domain.WeightEntry
	var created string
	if err := row.Scan(&e.ID, &e.UserID, &e.Day, &e.Weight, &e.Unit, &e.Notes, &created); err != nil {
		return e, err
	}
	var err error
	e.CreatedAt, err = parseTime(created)
	return e, err
}

// AddWeightEntry inserts a weigh-in.
func (s *Store) AddWeightEntry(ctx context.Context, e domain.WeightEntry) (int64, error) {
	res, err := s.db.ExecContext(ctx,
		"INSERT INTO weight_entries (user_id, day, weight, unit, notes, created_at) VALUES (?, ?, ?, ?, ?, ?)",
		e.UserID, e.Day, e.Weight, e.Unit, e.Notes, formatTime(e.CreatedAt))
	if err != nil {
		return 0, err
	}
	return res.LastInsertId()
}

// DeleteWeightEntry removes one of the user's weigh-ins.
func (s *Store) DeleteWeightEntry(ctx context.Context, userID, id int64) (bool, error) {
	return affected(s.db.ExecContext(ctx, "DELETE FROM weight_entries WHERE id = ? AND user_id = ?", id, userID))
}

// DeleteLatestWeightEntry removes the user's most recent weigh-in.
func (s *Store) DeleteLatestWeightEntry(ctx context.Context, userID int64) (bool, error) {
	return affected(s.db.ExecContext(ctx,
		"DELETE FROM weight_entries WHERE id = (SELECT id FROM weight_entries WHERE user_id = ? ORDER BY created_at DESC, id DESC LIMIT 1)",
		userID))
}

// LatestWeightForLocalDay returns the newest weigh-in recorded on localDay.
func (s *Store) LatestWeightForLocalDay(ctx context.Context, userID int64, localDay string) (*domain.WeightEntry, error) {
	e, err := scanWeight(s.db.QueryRowContext(ctx,
		"SELECT "+weightColumns+" FROM weight_entries WHERE user_id = ? AND day = ? ORDER BY created_at DESC, id DESC LIMIT 1",
		userID, localDay))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &e, nil
}

// ListWeightEntries returns the user's weigh-ins in range, newest first.
func (s *Store) ListWeightEntries(ctx context.Context, userID int64, r domain.DayRange) ([]domain.WeightEntry, error) {
	rows, err := s.db.QueryContext(ctx,
		"SELECT "+weightColumns+" FROM weight_entries WHERE user_id = ? AND (? = '' OR day >= ?) AND (? = '' OR day <= ?) ORDER BY created_at DESC, id DESC LIMIT ?",
		userID, r.From, r.From, r.To, r.To, limitArg(r.Limit))
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
