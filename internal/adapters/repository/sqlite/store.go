package sqlite

import (
	"context"
	_ "embed"
	"fmt"

	"zombiezen.com/go/sqlite"
	"zombiezen.com/go/sqlite/sqlitex"

	"github.com/vncsmyrnk/planner/internal/core/domain"
	"github.com/vncsmyrnk/planner/internal/core/ports"
)

//go:embed schema.sql
var schema string

// Store implements ports.Store on a SQLite pool. A Store handed to an
// Atomic callback is pinned to the connection that holds the transaction.
type Store struct {
	pool *Pool
	conn *sqlite.Conn
}

// NewStore applies the schema and returns a store backed by pool.
func NewStore(ctx context.Context, pool *Pool) (*Store, error) {
	conn, err := pool.Take(ctx)
	if err != nil {
		return nil, err
	}
	defer pool.Put(conn)

	if err := sqlitex.ExecuteScript(conn, schema, nil); err != nil {
		return nil, fmt.Errorf("failed to apply schema: %w", err)
	}

	return &Store{pool: pool}, nil
}

func (s *Store) Atomic(ctx context.Context, fn func(ports.Store) error) error {
	if s.conn != nil {
		return fn(s)
	}
	return s.transact(ctx, func(conn *sqlite.Conn) error {
		return fn(&Store{pool: s.pool, conn: conn})
	})
}

// transact runs fn in an immediate transaction, or in a savepoint when the
// store is already inside one.
func (s *Store) transact(ctx context.Context, fn func(*sqlite.Conn) error) (err error) {
	if s.conn != nil {
		defer sqlitex.Save(s.conn)(&err)
		return fn(s.conn)
	}

	conn, err := s.pool.Take(ctx)
	if err != nil {
		return err
	}
	defer s.pool.Put(conn)

	endFn, err := sqlitex.ImmediateTransaction(conn)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer endFn(&err)

	return fn(conn)
}

func (s *Store) withConn(ctx context.Context, fn func(*sqlite.Conn) error) error {
	if s.conn != nil {
		return fn(s.conn)
	}

	conn, err := s.pool.Take(ctx)
	if err != nil {
		return err
	}
	defer s.pool.Put(conn)

	return fn(conn)
}

func (s *Store) exists(ctx context.Context, query string, args ...any) (bool, error) {
	found := false
	err := s.withConn(ctx, func(conn *sqlite.Conn) error {
		return sqlitex.Execute(conn, query, &sqlitex.ExecOptions{
			Args: args,
			ResultFunc: func(*sqlite.Stmt) error {
				found = true
				return nil
			},
		})
	})
	return found, err
}

func (s *Store) SavePlanning(ctx context.Context, ownerID int64, title string, status domain.Status) (int64, error) {
	var id int64
	err := s.withConn(ctx, func(conn *sqlite.Conn) error {
		return sqlitex.Execute(conn,
			`INSERT INTO plannings (user_id, title, status) VALUES (?, ?, ?) RETURNING pl_id`,
			&sqlitex.ExecOptions{
				Args: []any{ownerID, title, status.Code()},
				ResultFunc: func(stmt *sqlite.Stmt) error {
					id = stmt.ColumnInt64(0)
					return nil
				},
			})
	})
	if err != nil {
		if isUniqueViolation(err) {
			return 0, domain.ErrPlanningInProgress
		}
		return 0, fmt.Errorf("failed to save planning: %w", err)
	}
	return id, nil
}

func (s *Store) UpdatePlanningStatus(ctx context.Context, id int64, from, to domain.Status) error {
	return s.withConn(ctx, func(conn *sqlite.Conn) error {
		err := sqlitex.Execute(conn, `UPDATE plannings SET status = ? WHERE pl_id = ? AND status = ?`,
			&sqlitex.ExecOptions{Args: []any{to.Code(), id, from.Code()}})
		if err != nil {
			if isUniqueViolation(err) {
				return domain.ErrPlanningInProgress
			}
			return fmt.Errorf("failed to update planning status: %w", err)
		}

		switch n := conn.Changes(); n {
		case 1:
			return nil
		case 0:
		default:
			return fmt.Errorf("%w: status update of planning %d affected %d rows", domain.ErrConsistency, id, n)
		}

		var stored string
		err = sqlitex.Execute(conn, `SELECT status FROM plannings WHERE pl_id = ?`, &sqlitex.ExecOptions{
			Args: []any{id},
			ResultFunc: func(stmt *sqlite.Stmt) error {
				stored = stmt.ColumnText(0)
				return nil
			},
		})
		if err != nil {
			return fmt.Errorf("failed to read planning status: %w", err)
		}
		return staleStatusError(id, from, to, stored)
	})
}

func (s *Store) RemovePlanning(ctx context.Context, id int64) error {
	return s.transact(ctx, func(conn *sqlite.Conn) error {
		err := sqlitex.Execute(conn,
			`DELETE FROM votes WHERE opt_id IN (SELECT opt_id FROM options WHERE pl_id = ?)`,
			&sqlitex.ExecOptions{Args: []any{id}})
		if err != nil {
			return fmt.Errorf("failed to remove votes: %w", err)
		}

		err = sqlitex.Execute(conn, `DELETE FROM options WHERE pl_id = ?`,
			&sqlitex.ExecOptions{Args: []any{id}})
		if err != nil {
			return fmt.Errorf("failed to remove options: %w", err)
		}

		err = sqlitex.Execute(conn, `DELETE FROM plannings WHERE pl_id = ?`,
			&sqlitex.ExecOptions{Args: []any{id}})
		if err != nil {
			return fmt.Errorf("failed to remove planning: %w", err)
		}
		if n := conn.Changes(); n != 1 {
			return fmt.Errorf("%w: removal of planning %d affected %d rows", domain.ErrConsistency, id, n)
		}
		return nil
	})
}

func (s *Store) PlanningExists(ctx context.Context, id int64) (bool, error) {
	return s.exists(ctx, `SELECT 1 FROM plannings WHERE pl_id = ?`, id)
}

func (s *Store) LoadPlanning(ctx context.Context, id int64) (*domain.Planning, error) {
	return s.loadPlanning(ctx, `SELECT pl_id, user_id, title, status FROM plannings WHERE pl_id = ?`, id)
}

func (s *Store) LoadPlanningsByOwner(ctx context.Context, ownerID int64) ([]*domain.Planning, error) {
	return s.loadPlannings(ctx,
		`SELECT pl_id, user_id, title, status FROM plannings WHERE user_id = ? ORDER BY pl_id`, ownerID)
}

func (s *Store) LoadUnderConstructionPlanning(ctx context.Context, ownerID int64) (*domain.Planning, error) {
	return s.loadPlanning(ctx,
		`SELECT pl_id, user_id, title, status FROM plannings WHERE user_id = ? AND status = ?`,
		ownerID, domain.StatusUnderConstruction.Code())
}

func (s *Store) LoadOpenedPlanning(ctx context.Context, id int64) (*domain.Planning, error) {
	return s.loadPlanning(ctx,
		`SELECT pl_id, user_id, title, status FROM plannings WHERE pl_id = ? AND status = ?`,
		id, domain.StatusOpened.Code())
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
	plannings := []*domain.Planning{}
	err := s.withConn(ctx, func(conn *sqlite.Conn) error {
		return sqlitex.Execute(conn, query, &sqlitex.ExecOptions{
			Args: args,
			ResultFunc: func(stmt *sqlite.Stmt) error {
				id := stmt.ColumnInt64(0)
				status, err := domain.ParseStatus(stmt.ColumnText(3))
				if err != nil {
					return fmt.Errorf("%w: planning %d: %v", domain.ErrConsistency, id, err)
				}
				p, err := domain.RestorePlanning(id, stmt.ColumnInt64(1), stmt.ColumnText(2), status)
				if err != nil {
					return fmt.Errorf("%w: planning %d: %v", domain.ErrConsistency, id, err)
				}
				plannings = append(plannings, p)
				return nil
			},
		})
	})
	if err != nil {
		return nil, fmt.Errorf("failed to load plannings: %w", err)
	}
	return plannings, nil
}

func (s *Store) SaveOption(ctx context.Context, planningID int64, text string, ordinal int) (int64, error) {
	var id int64
	err := s.withConn(ctx, func(conn *sqlite.Conn) error {
		return sqlitex.Execute(conn,
			`INSERT INTO options (pl_id, txt, num) VALUES (?, ?, ?) RETURNING opt_id`,
			&sqlitex.ExecOptions{
				Args: []any{planningID, text, ordinal},
				ResultFunc: func(stmt *sqlite.Stmt) error {
					id = stmt.ColumnInt64(0)
					return nil
				},
			})
	})
	if err != nil {
		if isConstraintViolation(err) {
			return 0, fmt.Errorf("%w: option %d of planning %d: %v", domain.ErrConsistency, ordinal, planningID, err)
		}
		return 0, fmt.Errorf("failed to save option: %w", err)
	}
	return id, nil
}

func (s *Store) OptionExists(ctx context.Context, id int64) (bool, error) {
	return s.exists(ctx, `SELECT 1 FROM options WHERE opt_id = ?`, id)
}

func (s *Store) LoadOptionsByPlanning(ctx context.Context, planningID int64) ([]*domain.Option, error) {
	return s.loadOptions(ctx,
		`SELECT opt_id, pl_id, txt, num FROM options WHERE pl_id = ? ORDER BY num`, planningID)
}

func (s *Store) LoadOptionByPlanningAndOrdinal(ctx context.Context, planningID int64, ordinal int) (*domain.Option, error) {
	options, err := s.loadOptions(ctx,
		`SELECT opt_id, pl_id, txt, num FROM options WHERE pl_id = ? AND num = ?`, planningID, ordinal)
	if err != nil {
		return nil, err
	}
	if len(options) == 0 {
		return nil, nil
	}
	return options[0], nil
}

func (s *Store) loadOptions(ctx context.Context, query string, args ...any) ([]*domain.Option, error) {
	options := []*domain.Option{}
	err := s.withConn(ctx, func(conn *sqlite.Conn) error {
		return sqlitex.Execute(conn, query, &sqlitex.ExecOptions{
			Args: args,
			ResultFunc: func(stmt *sqlite.Stmt) error {
				id := stmt.ColumnInt64(0)
				o, err := domain.RestoreOption(id, stmt.ColumnInt64(1), stmt.ColumnText(2), stmt.ColumnInt(3))
				if err != nil {
					return fmt.Errorf("%w: option %d: %v", domain.ErrConsistency, id, err)
				}
				options = append(options, o)
				return nil
			},
		})
	})
	if err != nil {
		return nil, fmt.Errorf("failed to load options: %w", err)
	}
	return options, nil
}

func (s *Store) UpsertVoter(ctx context.Context, voter *domain.Voter) (*domain.Voter, error) {
	var stored []*domain.Voter
	err := s.withConn(ctx, func(conn *sqlite.Conn) error {
		var err error
		stored, err = s.scanVoters(conn,
			`INSERT INTO voters (v_id, first_name, last_name) VALUES (?, ?, ?)
			ON CONFLICT (v_id) DO UPDATE SET first_name = excluded.first_name, last_name = excluded.last_name
			RETURNING v_id, first_name, last_name`,
			voter.ID(), voter.FirstName(), nullableText(voter.LastName()))
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("failed to upsert voter: %w", err)
	}
	if len(stored) != 1 {
		return nil, fmt.Errorf("%w: upsert of voter %d returned %d rows", domain.ErrConsistency, voter.ID(), len(stored))
	}
	return stored[0], nil
}

func (s *Store) VoterExists(ctx context.Context, id int64) (bool, error) {
	return s.exists(ctx, `SELECT 1 FROM voters WHERE v_id = ?`, id)
}

func (s *Store) LoadAllVoters(ctx context.Context) ([]*domain.Voter, error) {
	return s.loadVoters(ctx, `SELECT v_id, first_name, last_name FROM voters ORDER BY first_name, v_id`)
}

func (s *Store) LoadVotersByPlanning(ctx context.Context, planningID int64) ([]*domain.Voter, error) {
	return s.loadVoters(ctx,
		`SELECT DISTINCT v.v_id, v.first_name, v.last_name
		FROM voters v
		JOIN votes vt ON vt.v_id = v.v_id
		JOIN options o ON o.opt_id = vt.opt_id
		WHERE o.pl_id = ?
		ORDER BY v.first_name, v.v_id`, planningID)
}

func (s *Store) LoadVotersByOption(ctx context.Context, optionID int64) ([]*domain.Voter, error) {
	return s.loadVoters(ctx,
		`SELECT DISTINCT v.v_id, v.first_name, v.last_name
		FROM voters v
		JOIN votes vt ON vt.v_id = v.v_id
		WHERE vt.opt_id = ?
		ORDER BY v.first_name, v.v_id`, optionID)
}

func (s *Store) loadVoters(ctx context.Context, query string, args ...any) ([]*domain.Voter, error) {
	var voters []*domain.Voter
	err := s.withConn(ctx, func(conn *sqlite.Conn) error {
		var err error
		voters, err = s.scanVoters(conn, query, args...)
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("failed to load voters: %w", err)
	}
	return voters, nil
}

func (s *Store) scanVoters(conn *sqlite.Conn, query string, args ...any) ([]*domain.Voter, error) {
	voters := []*domain.Voter{}
	err := sqlitex.Execute(conn, query, &sqlitex.ExecOptions{
		Args: args,
		ResultFunc: func(stmt *sqlite.Stmt) error {
			id := stmt.ColumnInt64(0)
			v, err := domain.NewVoter(id, stmt.ColumnText(1), stmt.ColumnText(2))
			if err != nil {
				return fmt.Errorf("%w: voter %d: %v", domain.ErrConsistency, id, err)
			}
			voters = append(voters, v)
			return nil
		},
	})
	return voters, err
}

func (s *Store) SaveVote(ctx context.Context, optionID, voterID int64) error {
	return s.withConn(ctx, func(conn *sqlite.Conn) error {
		err := sqlitex.Execute(conn, `INSERT INTO votes (opt_id, v_id) VALUES (?, ?)`,
			&sqlitex.ExecOptions{Args: []any{optionID, voterID}})
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
	})
}

func (s *Store) RemoveVote(ctx context.Context, optionID, voterID int64) error {
	err := s.withConn(ctx, func(conn *sqlite.Conn) error {
		return sqlitex.Execute(conn, `DELETE FROM votes WHERE opt_id = ? AND v_id = ?`,
			&sqlitex.ExecOptions{Args: []any{optionID, voterID}})
	})
	if err != nil {
		return fmt.Errorf("failed to remove vote: %w", err)
	}
	return nil
}

func (s *Store) IsVoteRecorded(ctx context.Context, optionID, voterID int64) (bool, error) {
	return s.exists(ctx, `SELECT 1 FROM votes WHERE opt_id = ? AND v_id = ?`, optionID, voterID)
}

func isUniqueViolation(err error) bool {
	switch sqlite.ErrCode(err) {
	case sqlite.ResultConstraintUnique, sqlite.ResultConstraintPrimaryKey:
		return true
	}
	return false
}

func isConstraintViolation(err error) bool {
	return sqlite.ErrCode(err).ToPrimary() == sqlite.ResultConstraint
}

// staleStatusError explains why a status update matched no row. stored is
// empty when the planning does not exist.
func staleStatusError(id int64, from, to domain.Status, stored string) error {
	if stored == "" {
		return fmt.Errorf("%w: status update of planning %d affected 0 rows", domain.ErrConsistency, id)
	}
	return fmt.Errorf("%w: planning %d is %s, not %s: cannot move to %s",
		domain.ErrInvalidTransition, id, stored, from.Code(), to.Code())
}

// nullableText stores an empty string as NULL.
func nullableText(s string) any {
	if s == "" {
		return nil
	}
	return s
}
