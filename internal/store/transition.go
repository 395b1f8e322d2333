package store

import (
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/ayusman/gesturepi/internal/gesture"
	"github.com/google/uuid"
)

// ErrNotFound is returned when a requested resource does not exist.
var ErrNotFound = errors.New("not found")

// Source identifies who produced a transition.
type Source string

const (
	// SourceCamera marks transitions published by the detection loop.
	SourceCamera Source = "camera"
	// SourceManual marks transitions injected by an operator.
	SourceManual Source = "manual"
)

// DefaultListLimit caps List when no positive limit is given.
const DefaultListLimit = 50

// noPrevious is stored in from_state for the first transition of a run.
const noPrevious = -1

// Transition is one published gesture state change.
type Transition struct {
	ID string `json:"id"`
	// From is meaningless when Initial is set.
	From        gesture.State `json:"from"`
	To          gesture.State `json:"to"`
	Initial     bool          `json:"initial"`
	ContourArea float64       `json:"contour_area"`
	FingerGaps  int           `json:"finger_gaps"`
	Source      Source        `json:"source"`
	CreatedAt   time.Time     `json:"created_at"`
}

// TransitionRepository provides access to the transition history.
type TransitionRepository struct {
	db *sql.DB
}

// Transitions returns the transition repository for this store.
func (s *Store) Transitions() *TransitionRepository {
	return &TransitionRepository{db: s.db}
}

// Create inserts a transition. A missing ID is generated and a zero CreatedAt
// is set to the current time.
func (r *TransitionRepository) Create(t *Transition) error {
	if !t.To.Valid() {
		return fmt.Errorf("create transition: %w: %d", gesture.ErrUnknownState, int(t.To))
	}
	if !t.Initial && !t.From.Valid() {
		return fmt.Errorf("create transition: %w: %d", gesture.ErrUnknownState, int(t.From))
	}
	if t.Source == "" {
		t.Source = SourceCamera
	}
	if t.ID == "" {
		t.ID = uuid.New().String()
	}
	if t.CreatedAt.IsZero() {
		t.CreatedAt = time.Now()
	}
	t.CreatedAt = t.CreatedAt.UTC()

	from := int(t.From)
	if t.Initial {
		from = noPrevious
	}

	_, err := r.db.Exec(
		`INSERT INTO transitions (id, from_state, to_state, contour_area, finger_gaps, source, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		t.ID, from, int(t.To), t.ContourArea, t.FingerGaps, string(t.Source), t.CreatedAt,
	)
	return err
}

// GetByID retrieves a transition by its ID.
func (r *TransitionRepository) GetByID(id string) (*Transition, error) {
	t, err := scanTransition(r.db.QueryRow(
		`SELECT id, from_state, to_state, contour_area, finger_gaps, source, created_at
		 FROM transitions WHERE id = ?`,
		id,
	))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return t, nil
}

// Latest retrieves the most recent transition.
func (r *TransitionRepository) Latest() (*Transition, error) {
	list, err := r.List(1)
	if err != nil {
		return nil, err
	}
	if len(list) == 0 {
		return nil, ErrNotFound
	}
	return list[0], nil
}

// List retrieves up to limit transitions, newest first. A non-positive limit
// selects DefaultListLimit.
func (r *TransitionRepository) List(limit int) ([]*Transition, error) {
	if limit <= 0 {
		limit = DefaultListLimit
	}

	rows, err := r.db.Query(
		`SELECT id, from_state, to_state, contour_area, finger_gaps, source, created_at
		 FROM transitions ORDER BY created_at DESC, rowid DESC LIMIT ?`,
		limit,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var transitions []*Transition
	for rows.Next() {
		t, err := scanTransition(rows)
		if err != nil {
			return nil, err
		}
		transitions = append(transitions, t)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return transitions, nil
}

// Count returns the number of stored transitions.
func (r *TransitionRepository) Count() (int, error) {
	var n int
	err := r.db.QueryRow(`SELECT COUNT(*) FROM transitions`).Scan(&n)
	return n, err
}

// DeleteBefore removes transitions older than cutoff and returns how many
// rows were deleted.
func (r *TransitionRepository) DeleteBefore(cutoff time.Time) (int64, error) {
	result, err := r.db.Exec(`DELETE FROM transitions WHERE created_at < ?`, cutoff.UTC())
	if err != nil {
		return 0, err
	}
	return result.RowsAffected()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanTransition(row rowScanner) (*Transition, error) {
	t := &Transition{}
	var from, to int
	var source string

	if err := row.Scan(&t.ID, &from, &to, &t.ContourArea, &t.FingerGaps, &source, &t.CreatedAt); err != nil {
		return nil, err
	}

	if from == noPrevious {
		t.Initial = true
	} else {
		t.From = gesture.State(from)
	}
	t.To = gesture.State(to)
	t.Source = Source(source)
	return t, nil
}
