package repository

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/cityflow/crm/internal/domain"
)

// RuleRepository stores routing and SLA override rules. Neither table is read by the
// assignment pipeline.
type RuleRepository interface {
	CreateRoutingRule(ctx context.Context, rule *domain.RoutingRule) error
	UpdateRoutingRule(ctx context.Context, rule *domain.RoutingRule) error
	DeleteRoutingRule(ctx context.Context, id string) error
	ListRoutingRules(ctx context.Context) ([]domain.RoutingRule, error)

	CreateSLARule(ctx context.Context, rule *domain.SLARule) error
	UpdateSLARule(ctx context.Context, rule *domain.SLARule) error
	DeleteSLARule(ctx context.Context, id string) error
	ListSLARules(ctx context.Context) ([]domain.SLARule, error)
}

type ruleRepository struct {
	pool *pgxpool.Pool
}

// NewRuleRepository constructs repository.
func NewRuleRepository(pool *pgxpool.Pool) RuleRepository {
	return &ruleRepository{pool: pool}
}

func (r *ruleRepository) CreateRoutingRule(ctx context.Context, rule *domain.RoutingRule) error {
	const query = `
        INSERT INTO routing_rules (issue_type_id, region_id, team_id, assignee_id, is_active)
        VALUES ($1,$2,$3,$4,$5)
        RETURNING id, created_at, updated_at`
	return r.pool.QueryRow(ctx, query,
		rule.IssueTypeID,
		rule.RegionID,
		rule.TeamID,
		rule.AssigneeID,
		rule.IsActive,
	).Scan(&rule.ID, &rule.CreatedAt, &rule.UpdatedAt)
}

func (r *ruleRepository) UpdateRoutingRule(ctx context.Context, rule *domain.RoutingRule) error {
	const query = `
        UPDATE routing_rules SET team_id=$1, assignee_id=$2, is_active=$3, updated_at=NOW()
        WHERE id=$4`
	return execOne(ctx, r.pool, query, rule.TeamID, rule.AssigneeID, rule.IsActive, rule.ID)
}

func (r *ruleRepository) DeleteRoutingRule(ctx context.Context, id string) error {
	return execOne(ctx, r.pool, `DELETE FROM routing_rules WHERE id=$1`, id)
}

func (r *ruleRepository) ListRoutingRules(ctx context.Context) ([]domain.RoutingRule, error) {
	const query = `
        SELECT id, issue_type_id, region_id, team_id, assignee_id, is_active, created_at, updated_at
        FROM routing_rules ORDER BY created_at ASC`
	rows, err := r.pool.Query(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []domain.RoutingRule
	for rows.Next() {
		var rule domain.RoutingRule
		if err := rows.Scan(
			&rule.ID,
			&rule.IssueTypeID,
			&rule.RegionID,
			&rule.TeamID,
			&rule.AssigneeID,
			&rule.IsActive,
			&rule.CreatedAt,
			&rule.UpdatedAt,
		); err != nil {
			return nil, err
		}
		result = append(result, rule)
	}
	return result, rows.Err()
}

func (r *ruleRepository) CreateSLARule(ctx context.Context, rule *domain.SLARule) error {
	const query = `
        INSERT INTO sla_rules (issue_type_id, priority, sla_hours, escalation_threshold_percent, is_active)
        VALUES ($1,$2,$3,$4,$5)
        RETURNING id, created_at, updated_at`
	return r.pool.QueryRow(ctx, query,
		rule.IssueTypeID,
		rule.Priority,
		rule.SLAHours,
		rule.EscalationThresholdPercent,
		rule.IsActive,
	).Scan(&rule.ID, &rule.CreatedAt, &rule.UpdatedAt)
}

func (r *ruleRepository) UpdateSLARule(ctx context.Context, rule *domain.SLARule) error {
	const query = `
        UPDATE sla_rules SET sla_hours=$1, escalation_threshold_percent=$2, is_active=$3, updated_at=NOW()
        WHERE id=$4`
	return execOne(ctx, r.pool, query, rule.SLAHours, rule.EscalationThresholdPercent, rule.IsActive, rule.ID)
}

func (r *ruleRepository) DeleteSLARule(ctx context.Context, id string) error {
	return execOne(ctx, r.pool, `DELETE FROM sla_rules WHERE id=$1`, id)
}

func (r *ruleRepository) ListSLARules(ctx context.Context) ([]domain.SLARule, error) {
	const query = `
        SELECT id, issue_type_id, priority, sla_hours, escalation_threshold_percent, is_active, created_at, updated_at
        FROM sla_rules ORDER BY created_at ASC`
	rows, err := r.pool.Query(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []domain.SLARule
	for rows.Next() {
		var rule domain.SLARule
		if err := rows.Scan(
			&rule.ID,
			&rule.IssueTypeID,
			&rule.Priority,
			&rule.SLAHours,
			&rule.EscalationThresholdPercent,
			&rule.IsActive,
			&rule.CreatedAt,
			&rule.UpdatedAt,
		); err != nil {
			return nil, err
		}
		result = append(result, rule)
	}
	return result, rows.Err()
}

func execOne(ctx context.Context, pool *pgxpool.Pool, query string, args ...any) error {
	cmd, err := pool.Exec(ctx, query, args...)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}
