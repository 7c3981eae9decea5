package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/jmoiron/sqlx"

	"github.com/daybook/daybook/internal/entry"
)

const entriesTable = "entries"

// EntriesSchema creates the entries table. Mood and template are constrained
// in the database as well as in the service.
const EntriesSchema = `
CREATE TABLE IF NOT EXISTS entries (
	id TEXT PRIMARY KEY,
	user_id TEXT NOT NULL,
	title TEXT,
	content TEXT NOT NULL,
	template TEXT NOT NULL DEFAULT 'free' CHECK (template IN ('free', 'five-minute')),
	mood INTEGER NOT NULL DEFAULT 3 CHECK (mood BETWEEN 1 AND 5),
	created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
	updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
);
CREATE INDEX IF NOT EXISTS entries_user_created_idx ON entries (user_id, created_at DESC);
`

var entryColumns = []string{"id", "user_id", "title", "content", "template", "mood", "created_at", "updated_at"}

var psql = sq.StatementBuilder.PlaceholderFormat(sq.Dollar)

func ErrorSqlBuild(err error) error {
	return fmt.Errorf("failed to build sql query, %w", err)
}

// PostgresRepo implements Repository on a Postgres table via sqlx.
type PostgresRepo struct {
	db *sqlx.DB
}

func NewPostgresRepo(db *sqlx.DB) *PostgresRepo {
	return &PostgresRepo{db: db}
}

// Migrate creates the table and index when missing.
func (p *PostgresRepo) Migrate(ctx context.Context) error {
	if _, err := p.db.ExecContext(ctx, EntriesSchema); err != nil {
		return fmt.Errorf("migrate entries: %w", err)
	}
	return nil
}

func selectEntries(ownerID string) sq.SelectBuilder {
	return psql.Select(entryColumns...).From(entriesTable).Where(sq.Eq{"user_id": ownerID})
}

func insertQuery(e *entry.Entry) sq.InsertBuilder {
	return psql.Insert(entriesTable).Columns(entryColumns...).
		Values(e.ID, e.OwnerID, e.Title, e.Content, string(e.Template), e.Mood, e.CreatedAt, e.UpdatedAt)
}

func getQuery(ownerID, id string) sq.SelectBuilder {
	return selectEntries(ownerID).Where(sq.Eq{"id": id}).Limit(1)
}

func latestBetweenQuery(ownerID string, from, to time.Time) sq.SelectBuilder {
	return selectEntries(ownerID).
		Where(sq.GtOrEq{"created_at": from}).
		Where(sq.Lt{"created_at": to}).
		OrderBy("created_at DESC", "id ASC").
		Limit(1)
}

func listQuery(ownerID string, limit, offset int) sq.SelectBuilder {
	q := selectEntries(ownerID).OrderBy("created_at DESC", "id ASC").Offset(uint64(offset))
	if limit > 0 {
		q = q.Limit(uint64(limit))
	}
	return q
}

// escapeLike quotes the LIKE metacharacters so user text only ever matches literally.
func escapeLike(s string) string {
	return strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`).Replace(s)
}

func searchQuery(ownerID, text string, limit int) sq.SelectBuilder {
	term := "%" + escapeLike(text) + "%"
	q := selectEntries(ownerID).
		Where(sq.Or{sq.ILike{"content": term}, sq.ILike{"title": term}}).
		OrderBy("created_at DESC", "id ASC")
	if limit > 0 {
		q = q.Limit(uint64(limit))
	}
	return q
}

func sinceQuery(ownerID string, from time.Time) sq.SelectBuilder {
	return selectEntries(ownerID).Where(sq.GtOrEq{"created_at": from}).OrderBy("created_at ASC", "id ASC")
}

func updateQuery(ownerID, id string, c entry.Changes, now time.Time) sq.UpdateBuilder {
	set := map[string]interface{}{
		"title":      c.Title,
		"content":    c.Content,
		"mood":       c.Mood,
		"updated_at": now,
	}
	if c.Template != nil {
		set["template"] = string(*c.Template)
	}
	return psql.Update(entriesTable).SetMap(set).Where(sq.Eq{"id": id, "user_id": ownerID})
}

func deleteQuery(ownerID, id string) sq.DeleteBuilder {
	return psql.Delete(entriesTable).Where(sq.Eq{"id": id, "user_id": ownerID})
}

type sqlizer interface {
	ToSql() (string, []interface{}, error)
}

func (p *PostgresRepo) exec(ctx context.Context, q sqlizer) error {
	query, args, err := q.ToSql()
	if err != nil {
		return ErrorSqlBuild(err)
	}
	_, err = p.db.ExecContext(ctx, query, args...)
	return err
}

func (p *PostgresRepo) one(ctx context.Context, q sqlizer) (*entry.Entry, error) {
	query, args, err := q.ToSql()
	if err != nil {
		return nil, ErrorSqlBuild(err)
	}
	var e entry.Entry
	if err := p.db.GetContext(ctx, &e, query, args...); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, entry.ErrNotFound
		}
		return nil, err
	}
	return &e, nil
}

func (p *PostgresRepo) many(ctx context.Context, q sqlizer) ([]*entry.Entry, error) {
	query, args, err := q.ToSql()
	if err != nil {
		return nil, ErrorSqlBuild(err)
	}
	out := []*entry.Entry{}
	if err := p.db.SelectContext(ctx, &out, query, args...); err != nil {
		return nil, err
	}
	return out, nil
}

func (p *PostgresRepo) Create(ctx context.Context, e *entry.Entry) error {
	prepare(e)
	return p.exec(ctx, insertQuery(e))
}

func (p *PostgresRepo) Get(ctx context.Context, ownerID, id string) (*entry.Entry, error) {
	return p.one(ctx, getQuery(ownerID, id))
}

func (p *PostgresRepo) LatestBetween(ctx context.Context, ownerID string, from, to time.Time) (*entry.Entry, error) {
	return p.one(ctx, latestBetweenQuery(ownerID, from, to))
}

func (p *PostgresRepo) List(ctx context.Context, ownerID string, limit, offset int) ([]*entry.Entry, error) {
	return p.many(ctx, listQuery(ownerID, limit, offset))
}

func (p *PostgresRepo) Search(ctx context.Context, ownerID, text string, limit int) ([]*entry.Entry, error) {
	if blank(text) {
		return []*entry.Entry{}, nil
	}
	return p.many(ctx, searchQuery(ownerID, text, limit))
}

func (p *PostgresRepo) Since(ctx context.Context, ownerID string, from time.Time) ([]*entry.Entry, error) {
	return p.many(ctx, sinceQuery(ownerID, from))
}

func (p *PostgresRepo) Update(ctx context.Context, ownerID, id string, c entry.Changes, now time.Time) error {
	return p.exec(ctx, updateQuery(ownerID, id, c, now))
}

func (p *PostgresRepo) Delete(ctx context.Context, ownerID, id string) error {
	return p.exec(ctx, deleteQuery(ownerID, id))
}
