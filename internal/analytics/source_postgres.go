package analytics

import (
	"context"
	_ "embed"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	expmodels "idscore/internal/experiment/models"
	"idscore/internal/labeling"
)

//go:embed schema.sql
var schemaSQL string

// PostgresSource queries the analytics table through a pgx pool.
type PostgresSource struct {
	pool  *pgxpool.Pool
	table string
}

type Option func(*PostgresSource)

// WithTable overrides DefaultTable. The name is quoted as an identifier.
func WithTable(table string) Option {
	return func(s *PostgresSource) {
		if table != "" {
			s.table = table
		}
	}
}

func NewPostgres(pool *pgxpool.Pool, opts ...Option) (*PostgresSource, error) {
	if pool == nil {
		return nil, errors.New("postgres pool is required")
	}
	s := &PostgresSource{pool: pool, table: DefaultTable}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// EnsureSchema creates the analytics table when it does not exist. Only used
// for local and test databases; production owns its schema.
func (s *PostgresSource) EnsureSchema(ctx context.Context) error {
	if s.table != DefaultTable {
		return fmt.Errorf("ensure schema: only %s is managed here", DefaultTable)
	}
	if _, err := s.pool.Exec(ctx, schemaSQL); err != nil {
		return fmt.Errorf("ensure analytics schema: %w", err)
	}
	return nil
}

func (s *PostgresSource) ident() string {
	return pgx.Identifier{s.table}.Sanitize()
}

// FetchObservations runs one bounded query. Rows come back in whatever
// order the database chooses.
func (s *PostgresSource) FetchObservations(ctx context.Context, since time.Time, limit int) ([]labeling.Observation, error) {
	if limit <= 0 {
		return nil, fmt.Errorf("fetch observations: limit must be positive, got %d", limit)
	}
	query := `SELECT local_part, decision, risk_score, COALESCE(pattern_family, ''), bot_score, created_at
		FROM ` + s.ident() + `
		WHERE created_at >= $1
		LIMIT $2`

	rows, err := s.pool.Query(ctx, query, since, limit)
	if err != nil {
		return nil, fmt.Errorf("query observations: %w", err)
	}
	out, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (labeling.Observation, error) {
		var o labeling.Observation
		var decision string
		err := row.Scan(&o.LocalPart, &decision, &o.RiskScore, &o.PatternFamily, &o.BotScore, &o.ObservedAt)
		o.Decision = labeling.Decision(decision)
		return o, err
	})
	if err != nil {
		return nil, fmt.Errorf("scan observations: %w", err)
	}
	return out, nil
}

// ExperimentResults aggregates per-arm request and success counts recorded
// for the experiment since the given time.
func (s *PostgresSource) ExperimentResults(ctx context.Context, experimentID string, since time.Time) (expmodels.Results, error) {
	query := `SELECT variant,
			count(*),
			count(*) FILTER (WHERE (model_prediction = 'fraud') = (decision = 'block'))
		FROM ` + s.ident() + `
		WHERE experiment_id = $1 AND created_at >= $2 AND variant IS NOT NULL
		GROUP BY variant`

	rows, err := s.pool.Query(ctx, query, experimentID, since)
	if err != nil {
		return expmodels.Results{}, fmt.Errorf("query experiment results: %w", err)
	}
	defer rows.Close()

	var res expmodels.Results
	for rows.Next() {
		var variant string
		var arm expmodels.ArmResult
		if err := rows.Scan(&variant, &arm.Samples, &arm.Successes); err != nil {
			return expmodels.Results{}, fmt.Errorf("scan experiment results: %w", err)
		}
		switch expmodels.Variant(variant) {
		case expmodels.VariantControl:
			res.Control = arm
		case expmodels.VariantTreatment:
			res.Treatment = arm
		}
	}
	if err := rows.Err(); err != nil {
		return expmodels.Results{}, fmt.Errorf("read experiment results: %w", err)
	}
	return res, nil
}

// Ping checks the pool can reach the database.
func (s *PostgresSource) Ping(ctx context.Context) error {
	return s.pool.Ping(ctx)
}
