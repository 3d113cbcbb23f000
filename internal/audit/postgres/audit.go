package postgres

import (
	"context"
	"fmt"
	"strings"
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/frahmantamala/hrm-access/internal/audit"
	"github.com/frahmantamala/hrm-access/internal/core/common/sqlbuilder"
	auditDatamodel "github.com/frahmantamala/hrm-access/internal/core/datamodel/audit"
	"github.com/jmoiron/sqlx"
	"gorm.io/gorm"
)

var logColumns = []string{
	"id", "user_id", "username", "action", "entity_type",
	"entity_id", "old_value", "new_value", "details", "created_at",
}

// AuditRepository writes through gorm and reads through sqlx.
type AuditRepository struct {
	db   *gorm.DB
	read *sqlx.DB
}

func NewAuditRepository(db *gorm.DB, read *sqlx.DB) audit.RepositoryAPI {
	return &AuditRepository{db: db, read: read}
}

func (r *AuditRepository) Record(ctx context.Context, entry *audit.Entry) error {
	log := audit.ToDataModel(entry)
	if err := r.db.WithContext(ctx).Create(log).Error; err != nil {
		return err
	}
	entry.ID = log.ID
	entry.CreatedAt = log.CreatedAt
	return nil
}

func (r *AuditRepository) List(ctx context.Context, filter audit.Filter) (*audit.Result, error) {
	builder := sqlbuilder.For(r.read)

	countQuery, args, err := applyFilter(builder.Select("COUNT(*)").From("audit_logs"), filter).ToSql()
	if err != nil {
		return nil, fmt.Errorf("build audit count query: %w", err)
	}
	var total int64
	if err := r.read.GetContext(ctx, &total, countQuery, args...); err != nil {
		return nil, err
	}

	listQuery, args, err := applyFilter(builder.Select(logColumns...).From("audit_logs"), filter).
		OrderBy("created_at DESC", "id DESC").
		Limit(filter.Limit).
		Offset(filter.Offset).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build audit list query: %w", err)
	}

	var rows []auditDatamodel.Log
	if err := r.read.SelectContext(ctx, &rows, listQuery, args...); err != nil {
		return nil, err
	}

	logs := make([]*audit.Entry, 0, len(rows))
	for i := range rows {
		logs = append(logs, audit.FromDataModel(&rows[i]))
	}
	return &audit.Result{Logs: logs, TotalCount: total}, nil
}

func (r *AuditRepository) Summary(ctx context.Context, now time.Time) (*audit.Summary, error) {
	builder := sqlbuilder.For(r.read)
	today := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())
	weekStart := today.AddDate(0, 0, -7)

	summary := &audit.Summary{}
	counts := []struct {
		dst   *int64
		since *time.Time
	}{
		{&summary.TotalLogs, nil},
		{&summary.TodayLogs, &today},
		{&summary.WeekLogs, &weekStart},
	}
	for _, c := range counts {
		stmt := builder.Select("COUNT(*)").From("audit_logs")
		if c.since != nil {
			stmt = stmt.Where(sq.GtOrEq{"created_at": *c.since})
		}
		query, args, err := stmt.ToSql()
		if err != nil {
			return nil, fmt.Errorf("build audit summary query: %w", err)
		}
		if err := r.read.GetContext(ctx, c.dst, query, args...); err != nil {
			return nil, err
		}
	}

	query, args, err := builder.Select("action", "COUNT(*) AS count").
		From("audit_logs").
		GroupBy("action").
		OrderBy("count DESC", "action").
		Limit(10).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build audit action breakdown query: %w", err)
	}
	summary.ActionBreakdown = []audit.ActionCount{}
	if err := r.read.SelectContext(ctx, &summary.ActionBreakdown, query, args...); err != nil {
		return nil, err
	}

	query, args, err = builder.Select("username", "COUNT(*) AS count").
		From("audit_logs").
		Where(sq.GtOrEq{"created_at": weekStart}).
		GroupBy("username").
		OrderBy("count DESC", "username").
		Limit(5).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build audit active users query: %w", err)
	}
	summary.ActiveUsers = []audit.UserCount{}
	if err := r.read.SelectContext(ctx, &summary.ActiveUsers, query, args...); err != nil {
		return nil, err
	}

	return summary, nil
}

func applyFilter(stmt sq.SelectBuilder, f audit.Filter) sq.SelectBuilder {
	if f.Username != "" {
		stmt = stmt.Where("LOWER(username) LIKE ?", "%"+strings.ToLower(f.Username)+"%")
	}
	if f.Action != "" {
		stmt = stmt.Where(sq.Eq{"action": f.Action})
	}
	if f.EntityType != "" {
		stmt = stmt.Where(sq.Eq{"entity_type": f.EntityType})
	}
	if f.From != nil {
		stmt = stmt.Where(sq.GtOrEq{"created_at": *f.From})
	}
	if f.To != nil {
		stmt = stmt.Where(sq.Lt{"created_at": f.To.AddDate(0, 0, 1)})
	}
	return stmt
}
