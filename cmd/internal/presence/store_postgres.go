package presence

import (
	"context"
	"errors"
	"regexp"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// PostgresProvider reads presence from rally.room_presence, for deployments
// where a separate process mirrors voice-room membership into the database.
type PostgresProvider struct {
	pool   *pgxpool.Pool
	schema string
}

// PostgresOption configures PostgresProvider behavior.
type PostgresOption func(*PostgresProvider) error

// WithSchema sets the DB schema used by the provider (default: "rally").
func WithSchema(schema string) PostgresOption {
	return func(p *PostgresProvider) error {
		schema = strings.TrimSpace(schema)
		if schema == "" {
			return errors.New("presence: empty schema")
		}
		if !isValidPGIdent(schema) {
			return errors.New("presence: invalid schema identifier")
		}
		p.schema = schema
		return nil
	}
}

// NewPostgresProvider constructs a presence provider backed by PostgreSQL.
func NewPostgresProvider(pool *pgxpool.Pool, opts ...PostgresOption) (*PostgresProvider, error) {
	p := &PostgresProvider{
		pool:   pool,
		schema: "rally",
	}
	for _, opt := range opts {
		if opt == nil {
			continue
		}
		if err := opt(p); err != nil {
			return nil, err
		}
	}
	if p.pool == nil {
		return nil, errors.New("presence: nil pool")
	}
	return p, nil
}

// MembersIn returns the members recorded as present in roomID.
func (p *PostgresProvider) MembersIn(ctx context.Context, roomID string) ([]string, error) {
	if p == nil || p.pool == nil {
		return nil, errors.New("presence: nil provider")
	}
	roomID = strings.TrimSpace(roomID)
	if roomID == "" {
		return nil, nil
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	table := pgIdent(p.schema, "room_presence")

	rows, err := p.pool.Query(ctx,
		`SELECT member_id FROM `+table+` WHERE room_id = $1 ORDER BY member_id`,
		roomID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		out = append(out, id)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return out, nil
}

var pgIdentRE = regexp.MustCompile(`^[a-zA-Z_][a-zA-Z0-9_]*$`)

func isValidPGIdent(s string) bool {
	return pgIdentRE.MatchString(s)
}

func pgIdent(schema, table string) string {
	// pgx.Identifier safely quotes identifiers, preventing SQL injection.
	return pgx.Identifier{schema, table}.Sanitize()
}
