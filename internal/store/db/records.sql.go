package db

import (
	"context"
)

const upsertRecord = `
insert into records (user_id, kind, payload, updated_at)
values (?, ?, ?, ?)
on conflict (user_id, kind) do update set
    payload = excluded.payload,
    updated_at = excluded.updated_at
`

type UpsertRecordParams struct {
	UserID    string
	Kind      string
	Payload   string
	UpdatedAt int64
}

func (q *Queries) UpsertRecord(ctx context.Context, arg UpsertRecordParams) error {
	_, err := q.db.ExecContext(ctx, upsertRecord,
		arg.UserID,
		arg.Kind,
		arg.Payload,
		arg.UpdatedAt,
	)
	return err
}

const getRecord = `
select user_id, kind, payload, updated_at from records
where user_id = ? and kind = ?
`

type GetRecordParams struct {
	UserID string
	Kind   string
}

func (q *Queries) GetRecord(ctx context.Context, arg GetRecordParams) (Record, error) {
	row := q.db.QueryRowContext(ctx, getRecord, arg.UserID, arg.Kind)
	var i Record
	err := row.Scan(
		&i.UserID,
		&i.Kind,
		&i.Payload,
		&i.UpdatedAt,
	)
	return i, err
}

const listRecords = `
select user_id, kind, payload, updated_at from records
where user_id = ?
order by kind
`

func (q *Queries) ListRecords(ctx context.Context, userID string) ([]Record, error) {
	rows, err := q.db.QueryContext(ctx, listRecords, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []Record
	for rows.Next() {
		var i Record
		if err := rows.Scan(
			&i.UserID,
			&i.Kind,
			&i.Payload,
			&i.UpdatedAt,
		); err != nil {
			return nil, err
		}
		items = append(items, i)
	}
	if err := rows.Close(); err != nil {
		return nil, err
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return items, nil
}

const deleteRecords = `
delete from records where user_id = ?
`

func (q *Queries) DeleteRecords(ctx context.Context, userID string) (int64, error) {
	result, err := q.db.ExecContext(ctx, deleteRecords, userID)
	if err != nil {
		return 0, err
	}
	return result.RowsAffected()
}

const deleteRecordsBefore = `
delete from records where updated_at < ?
`

func (q *Queries) DeleteRecordsBefore(ctx context.Context, before int64) (int64, error) {
	result, err := q.db.ExecContext(ctx, deleteRecordsBefore, before)
	if err != nil {
		return 0, err
	}
	return result.RowsAffected()
}
