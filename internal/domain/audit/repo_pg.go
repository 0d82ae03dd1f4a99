package audit

import (
	"context"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5/pgxpool"
)

type repoPG struct {
	pool *pgxpool.Pool
}

// NewRepo returns a Postgres-backed Repository. The validation_log table
// comes from the migrations directory.
func NewRepo(pool *pgxpool.Pool) Repository {
	return &repoPG{pool: pool}
}

const entryCols = `id, prescription_id, status, pharmacy_id, prescriber_id,
	medication_count, interaction_count, contraindication_count,
	is_valid, validation_time_ms, created_at`

func (r *repoPG) Insert(ctx context.Context, e *Entry) error {
	_, err := r.pool.Exec(ctx, `
		INSERT INTO validation_log (
			id, prescription_id, status, pharmacy_id, prescriber_id,
			medication_count, interaction_count, contraindication_count,
			is_valid, validation_time_ms, created_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)`,
		e.ID, e.PrescriptionID, e.Status, e.PharmacyID, e.PrescriberID,
		e.MedicationCount, e.InteractionCount, e.ContraindicationCount,
		e.IsValid, e.ValidationTimeMs, e.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert validation log entry: %w", err)
	}
	return nil
}

func (r *repoPG) List(ctx context.Context, q Query, limit, offset int) ([]*Entry, int, error) {
	where, args := buildWhere(q)

	var total int
	countSQL := `SELECT COUNT(*) FROM validation_log` + where
	if err := r.pool.QueryRow(ctx, countSQL, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count validation log: %w", err)
	}

	listSQL := fmt.Sprintf(`SELECT %s FROM validation_log%s ORDER BY created_at DESC LIMIT $%d OFFSET $%d`,
		entryCols, where, len(args)+1, len(args)+2)
	rows, err := r.pool.Query(ctx, listSQL, append(args, limit, offset)...)
	if err != nil {
		return nil, 0, fmt.Errorf("query validation log: %w", err)
	}
	defer rows.Close()

	var entries []*Entry
	for rows.Next() {
		var e Entry
		if err := rows.Scan(
			&e.ID, &e.PrescriptionID, &e.Status, &e.PharmacyID, &e.PrescriberID,
			&e.MedicationCount, &e.InteractionCount, &e.ContraindicationCount,
			&e.IsValid, &e.ValidationTimeMs, &e.CreatedAt,
		); err != nil {
			return nil, 0, fmt.Errorf("scan validation log entry: %w", err)
		}
		entries = append(entries, &e)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("iterate validation log: %w", err)
	}
	return entries, total, nil
}

func buildWhere(q Query) (string, []interface{}) {
	var clauses []string
	var args []interface{}
	add := func(clause string, arg interface{}) {
		args = append(args, arg)
		clauses = append(clauses, fmt.Sprintf(clause, len(args)))
	}

	if q.PharmacyID != "" {
		add("pharmacy_id = $%d", q.PharmacyID)
	}
	if q.PrescriberID != "" {
		add("prescriber_id = $%d", q.PrescriberID)
	}
	if q.Status != "" {
		add("status = $%d", q.Status)
	}
	if q.From != nil {
		add("created_at >= $%d", *q.From)
	}
	if q.To != nil {
		add("created_at <= $%d", *q.To)
	}

	if len(clauses) == 0 {
		return "", nil
	}
	return " WHERE " + strings.Join(clauses, " AND "), args
}
