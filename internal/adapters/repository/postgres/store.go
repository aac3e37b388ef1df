package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/lib/pq"

	"github.com/vncsmyrnk/planner/internal/core/domain"
	"github.com/vncsmyrnk/planner/internal/core/ports"
)

// queryer is satisfied by both *sql.DB and *sql.Tx.
type queryer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

type Store struct {
	db *sql.DB
	q  queryer
	tx *sql.Tx
}

func NewStore(db *sql.DB) *Store {
	return &Store{
		db: db,
		q:  db,
	}
}

func (s *Store) Atomic(ctx context.Context, fn func(ports.Store) error) error {
	if s.tx != nil {
		return fn(s)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if err := fn(&Store{db: s.db, q: tx, tx: tx}); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

func (s *Store) SavePlanning(ctx context.Context, ownerID int64, title string, status domain.Status) (int64, error) {
	query := `
		INSERT INTO plannings (user_id, title, status)
		VALUES ($1, $2, $3)
		RETURNING pl_id
	`
	var id int64
	err := s.q.QueryRowContext(ctx, query, ownerID, title, status.Code()).Scan(&id)
	if err != nil {
		if isUniqueViolation(err) {
			return 0, domain.ErrPlanningInProgress
		}
		return 0, fmt.Errorf("failed to save planning: %w", err)
	}
	return id, nil
}

func (s *Store) UpdatePlanningStatus(ctx context.Context, id int64, from, to domain.Status) error {
	query := `UPDATE plannings SET status = $1 WHERE pl_id = $2 AND status = $3`
	result, err := s.q.ExecContext(ctx, query, to.Code(), id, from.Code())
	if err != nil {
		if isUniqueViolation(err) {
			return domain.ErrPlanningInProgress
		}
		return fmt.Errorf("failed to update planning status: %w", err)
	}

	n, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to read affected rows: %w", err)
	}
	if n > 1 {
		return fmt.Errorf("%w: status update of planning %d affected %d rows", domain.ErrConsistency, id, n)
	}
	if n == 1 {
		return nil
	}

	var stored string
	err = s.q.QueryRowContext(ctx, `SELECT status FROM plannings WHERE pl_id = $1`, id).Scan(&stored)
	if errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("%w: status update of planning %d affected 0 rows", domain.ErrConsistency, id)
	}
	if err != nil {
		return fmt.Errorf("failed to read planning status: %w", err)
	}
	return fmt.Errorf("%w: planning %d is %s, not %s: cannot move to %s",
		domain.ErrInvalidTransition, id, stored, from.Code(), to.Code())
}

func (s *Store) RemovePlanning(ctx context.Context, id int64) error {
	return s.Atomic(ctx, func(tx ports.Store) error {
		q := tx.(*Store).q

		_, err := q.ExecContext(ctx,
			`DELETE FROM votes WHERE opt_id IN (SELECT opt_id FROM options WHERE pl_id = $1)`, id)
		if err != nil {
			return fmt.Errorf("failed to remove votes: %w", err)
		}

		if _, err := q.ExecContext(ctx, `DELETE FROM options WHERE pl_id = $1`, id); err != nil {
			return fmt.Errorf("failed to remove options: %w", err)
		}

		result, err := q.ExecContext(ctx, `DELETE FROM plannings WHERE pl_id = $1`, id)
		if err != nil {
			return fmt.Errorf("failed to remove planning: %w", err)
		}
		return expectOneRow(result, "removal of planning %d", id)
	})
}

func (s *Store) PlanningExists(ctx context.Context, id int64) (bool, error) {
	return s.exists(ctx, `SELECT EXISTS (SELECT 1 FROM plannings WHERE pl_id = $1)`, id)
}

func (s *Store) LoadPlanning(ctx context.Context, id int64) (*domain.Planning, error) {
	return s.loadPlanning(ctx, `SELECT pl_id, user_id, title, status FROM plannings WHERE pl_id = $1`, id)
}

func (s *Store) LoadPlanningsByOwner(ctx context.Context, ownerID int64) ([]*domain.Planning, error) {
	return s.loadPlannings(ctx,
		`SELECT pl_id, user_id, title, status FROM plannings WHERE user_id = $1 ORDER BY pl_id`, ownerID)
}

func (s *Store) LoadUnderConstructionPlanning(ctx context.Context, ownerID int64) (*domain.Planning, error) {
	return s.loadPlanning(ctx,
		`SELECT pl_id, user_id, title, status FROM plannings WHERE user_id = $1 AND status = $2`,
		ownerID, domain.StatusUnderConstruction.Code())
}

// LoadOpenedPlanning share-locks the row when called inside Atomic, so a
// concurrent status change waits until the transaction ends.
func (s *Store) LoadOpenedPlanning(ctx context.Context, id int64) (*domain.Planning, error) {
	query := `SELECT pl_id, user_id, title, status FROM plannings WHERE pl_id = $1 AND status = $2`
	if s.tx != nil {
		query += ` FOR SHARE`
	}
	return s.loadPlanning(ctx, query, id, domain.StatusOpened.Code())
}

func (s *Store) loadPlanning(ctx context.Context, query string, args ...any) (*domain.Planning, error) {
	plannings, err := s.loadPlannings(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	switch len(plannings) {
	case 0:
		return nil, nil
	case 1:
		return plannings[0], nil
	}
	return nil, fmt.Errorf("%w: %d plannings match where at most one may", domain.ErrConsistency, len(plannings))
}

func (s *Store) loadPlannings(ctx context.Context, query string, args ...any) ([]*domain.Planning, error) {
	rows, err := s.q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to load plannings: %w", err)
	}
	defer rows.Close()

	plannings := []*domain.Planning{}
	for rows.Next() {
		var (
			id, ownerID int64
			title, code string
		)
		if err := rows.Scan(&id, &ownerID, &title, &code); err != nil {
			return nil, fmt.Errorf("failed to scan planning: %w", err)
		}

		status, err := domain.ParseStatus(code)
		if err != nil {
			return nil, fmt.Errorf("%w: planning %d: %v", domain.ErrConsistency, id, err)
		}
		p, err := domain.RestorePlanning(id, ownerID, title, status)
		if err != nil {
			return nil, fmt.Errorf("%w: planning %d: %v", domain.ErrConsistency, id, err)
		}
		plannings = append(plannings, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate plannings: %w", err)
	}

	return plannings, nil
}

func (s *Store) SaveOption(ctx context.Context, planningID int64, text string, ordinal int) (int64, error) {
	query := `
		INSERT INTO options (pl_id, txt, num)
		VALUES ($1, $2, $3)
		RETURNING opt_id
	`
	var id int64
	err := s.q.QueryRowContext(ctx, query, planningID, text, ordinal).Scan(&id)
	if err != nil {
		if isConstraintViolation(err) {
			return 0, fmt.Errorf("%w: option %d of planning %d: %v", domain.ErrConsistency, ordinal, planningID, err)
		}
		return 0, fmt.Errorf("failed to save option: %w", err)
	}
	return id, nil
}

func (s *Store) OptionExists(ctx context.Context, id int64) (bool, error) {
	return s.exists(ctx, `SELECT EXISTS (SELECT 1 FROM options WHERE opt_id = $1)`, id)
}

func (s *Store) LoadOptionsByPlanning(ctx context.Context, planningID int64) ([]*domain.Option, error) {
	return s.loadOptions(ctx,
		`SELECT opt_id, pl_id, txt, num FROM options WHERE pl_id = $1 ORDER BY num`, planningID)
}

func (s *Store) LoadOptionByPlanningAndOrdinal(ctx context.Context, planningID int64, ordinal int) (*domain.Option, error) {
	options, err := s.loadOptions(ctx,
		`SELECT opt_id, pl_id, txt, num FROM options WHERE pl_id = $1 AND num = $2`, planningID, ordinal)
	if err != nil {
		return nil, err
	}
	if len(options) == 0 {
		return nil, nil
	}
	return options[0], nil
}

func (s *Store) loadOptions(ctx context.Context, query string, args ...any) ([]*domain.Option, error) {
	rows, err := s.q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to load options: %w", err)
	}
	defer rows.Close()

	options := []*domain.Option{}
	for rows.Next() {
		var (
			id, planningID int64
			text           string
			ordinal        int
		)
		if err := rows.Scan(&id, &planningID, &text, &ordinal); err != nil {
			return nil, fmt.Errorf("failed to scan option: %w", err)
		}

		o, err := domain.RestoreOption(id, planningID, text, ordinal)
		if err != nil {
			return nil, fmt.Errorf("%w: option %d: %v", domain.ErrConsistency, id, err)
		}
		options = append(options, o)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate options: %w", err)
	}

	return options, nil
}

func (s *Store) UpsertVoter(ctx context.Context, voter *domain.Voter) (*domain.Voter, error) {
	query := `
		INSERT INTO voters (v_id, first_name, last_name)
		VALUES ($1, $2, $3)
		ON CONFLICT (v_id) DO UPDATE
		SET first_name = excluded.first_name, last_name = excluded.last_name
		RETURNING v_id, first_name, last_name
	`
	lastName := sql.NullString{String: voter.LastName(), Valid: voter.LastName() != ""}

	var (
		id        int64
		firstName string
		stored    sql.NullString
	)
	err := s.q.QueryRowContext(ctx, query, voter.ID(), voter.FirstName(), lastName).Scan(&id, &firstName, &stored)
	if err != nil {
		return nil, fmt.Errorf("failed to upsert voter: %w", err)
	}

	v, err := domain.NewVoter(id, firstName, stored.String)
	if err != nil {
		return nil, fmt.Errorf("%w: voter %d: %v", domain.ErrConsistency, id, err)
	}
	return v, nil
}

func (s *Store) VoterExists(ctx context.Context, id int64) (bool, error) {
	return s.exists(ctx, `SELECT EXISTS (SELECT 1 FROM voters WHERE v_id = $1)`, id)
}

func (s *Store) LoadAllVoters(ctx context.Context) ([]*domain.Voter, error) {
	return s.loadVoters(ctx, `SELECT v_id, first_name, last_name FROM voters ORDER BY first_name, v_id`)
}

func (s *Store) LoadVotersByPlanning(ctx context.Context, planningID int64) ([]*domain.Voter, error) {
	query := `
		SELECT DISTINCT v.v_id, v.first_name, v.last_name
		FROM voters v
		JOIN votes vt ON vt.v_id = v.v_id
		JOIN options o ON o.opt_id = vt.opt_id
		WHERE o.pl_id = $1
		ORDER BY v.first_name, v.v_id
	`
	return s.loadVoters(ctx, query, planningID)
}

func (s *Store) LoadVotersByOption(ctx context.Context, optionID int64) ([]*domain.Voter, error) {
	query := `
		SELECT DISTINCT v.v_id, v.first_name, v.last_name
		FROM voters v
		JOIN votes vt ON vt.v_id = v.v_id
		WHERE vt.opt_id = $1
		ORDER BY v.first_name, v.v_id
	`
	return s.loadVoters(ctx, query, optionID)
}

func (s *Store) loadVoters(ctx context.Context, query string, args ...any) ([]*domain.Voter, error) {
	rows, err := s.q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to load voters: %w", err)
	}
	defer rows.Close()

	voters := []*domain.Voter{}
	for rows.Next() {
		var (
			id        int64
			firstName string
			lastName  sql.NullString
		)
		if err := rows.Scan(&id, &firstName, &lastName); err != nil {
			return nil, fmt.Errorf("failed to scan voter: %w", err)
		}

		v, err := domain.NewVoter(id, firstName, lastName.String)
		if err != nil {
			return nil, fmt.Errorf("%w: voter %d: %v", domain.ErrConsistency, id, err)
		}
		voters = append(voters, v)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate voters: %w", err)
	}

	return voters, nil
}

func (s *Store) SaveVote(ctx context.Context, optionID, voterID int64) error {
	_, err := s.q.ExecContext(ctx, `INSERT INTO votes (opt_id, v_id) VALUES ($1, $2)`, optionID, voterID)
	if err == nil {
		return nil
	}
	if isUniqueViolation(err) {
		return fmt.Errorf("%w: voter %d on option %d", domain.ErrMultipleVote, voterID, optionID)
	}
	if isConstraintViolation(err) {
		return fmt.Errorf("%w: vote of %d on option %d: %v", domain.ErrConsistency, voterID, optionID, err)
	}
	return fmt.Errorf("failed to save vote: %w", err)
}

func (s *Store) RemoveVote(ctx context.Context, optionID, voterID int64) error {
	_, err := s.q.ExecContext(ctx, `DELETE FROM votes WHERE opt_id = $1 AND v_id = $2`, optionID, voterID)
	if err != nil {
		return fmt.Errorf("failed to remove vote: %w", err)
	}
	return nil
}

func (s *Store) IsVoteRecorded(ctx context.Context, optionID, voterID int64) (bool, error) {
	return s.exists(ctx,
		`SELECT EXISTS (SELECT 1 FROM votes WHERE opt_id = $1 AND v_id = $2)`, optionID, voterID)
}

func (s *Store) exists(ctx context.Context, query string, args ...any) (bool, error) {
	var found bool
	if err := s.q.QueryRowContext(ctx, query, args...).Scan(&found); err != nil {
		return false, fmt.Errorf("failed to check existence: %w", err)
	}
	return found, nil
}

func expectOneRow(result sql.Result, format string, args ...any) error {
	n, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to read affected rows: %w", err)
	}
	if n != 1 {
		return fmt.Errorf("%w: %s affected %d rows", domain.ErrConsistency, fmt.Sprintf(format, args...), n)
	}
	return nil
}

func isUniqueViolation(err error) bool {
	var pqErr *pq.Error
	return errors.As(err, &pqErr) && pqErr.Code.Name() == "unique_violation"
}

// isConstraintViolation matches every integrity constraint class error,
// foreign keys and checks included.
func isConstraintViolation(err error) bool {
	var pqErr *pq.Error
	return errors.As(err, &pqErr) && pqErr.Code.Class() == "23"
}
