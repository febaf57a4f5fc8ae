package repository

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/iliyamo/library-reservation/internal/model"
)

// ReservationRepo provides CRUD operations for reservations and their book
// rows.  A reservation groups one or more borrowed books; the association
// lives in the reservation_books table.  User and book IDs are stored as
// plain integers without foreign keys because the referenced tables belong
// to other services.  All timestamp fields are stored in UTC.
type ReservationRepo struct {
	db *sql.DB
}

// NewReservationRepo returns a new ReservationRepo bound to the given database.
func NewReservationRepo(db *sql.DB) *ReservationRepo { return &ReservationRepo{db: db} }

// DB exposes the underlying pool for callers that need to coordinate their
// own transactions with the Tx-suffixed methods below.
func (r *ReservationRepo) DB() *sql.DB { return r.db }

// ReservationWithBook is one row of the denormalized all-reservations read:
// a reservation joined to its book row.  BookID is zero when the
// reservation has no book rows.  Names are filled in by the handler from
// gateway lookups; the join itself only touches locally owned tables.
type ReservationWithBook struct {
	ReservationID uint64
	UserID        uint64
	BookID        uint64
	CreatedAt     time.Time
	ReturnedAt    *time.Time
}

// CreateTx inserts a new reservation within the scope of an existing
// transaction and populates the generated ID on the provided model before
// the transaction commits, so dependent reservation_books inserts can
// reference it.  The caller must commit or rollback the transaction.
func (r *ReservationRepo) CreateTx(ctx context.Context, tx *sql.Tx, res *model.Reservation) error {
	const q = `INSERT INTO reservations (user_id, created_at) VALUES (?, ?)`
	now := time.Now().UTC()
	result, err := tx.ExecContext(ctx, q, res.UserID, now)
	if err != nil {
		return err
	}
	id, err := result.LastInsertId()
	if err != nil {
		return err
	}
	res.ID = uint64(id)
	res.CreatedAt = now
	return nil
}

// CreateBookTx inserts a reservation_books row referencing an existing
// reservation, within the provided transaction.
func (r *ReservationRepo) CreateBookTx(ctx context.Context, tx *sql.Tx, rb *model.ReservationBook) error {
	const q = `INSERT INTO reservation_books (reservation_id, book_id) VALUES (?, ?)`
	_, err := tx.ExecContext(ctx, q, rb.ReservationID, rb.BookID)
	return err
}

// Reserve creates a reservation together with its single book row in one
// transaction.  The transaction is scoped to this call: it commits on
// success and rolls back on every error path.  Validation against the user
// and book services must have completed before this is called; no
// transaction is ever held open across a network call.
func (r *ReservationRepo) Reserve(ctx context.Context, userID, bookID uint64) (*model.Reservation, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, err
	}
	committed := false
	defer func() {
		if !committed {
			_ = tx.Rollback()
		}
	}()

	res := &model.Reservation{UserID: userID}
	if err := r.CreateTx(ctx, tx, res); err != nil {
		return nil, err
	}
	if err := r.CreateBookTx(ctx, tx, &model.ReservationBook{ReservationID: res.ID, BookID: bookID}); err != nil {
		return nil, err
	}
	if err := tx.Commit(); err != nil {
		return nil, err
	}
	committed = true
	return res, nil
}

// GetByID returns a reservation joined to its book row.  The join is an
// outer join so a reservation with no book rows is still returned, with
// BookID zero.  ErrReservationNotFound is returned when no reservation with
// the given ID exists.
func (r *ReservationRepo) GetByID(ctx context.Context, id uint64) (*ReservationWithBook, error) {
	const q = `SELECT r.id, r.user_id, r.created_at, r.returned_at, rb.book_id
	           FROM reservations r
	           LEFT JOIN reservation_books rb ON rb.reservation_id = r.id
	           WHERE r.id = ?`
	var (
		row        ReservationWithBook
		returnedAt sql.NullTime
		bookID     sql.NullInt64
	)
	err := r.db.QueryRowContext(ctx, q, id).Scan(
		&row.ReservationID, &row.UserID, &row.CreatedAt, &returnedAt, &bookID,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrReservationNotFound
		}
		return nil, err
	}
	if returnedAt.Valid {
		t := returnedAt.Time
		row.ReturnedAt = &t
	}
	if bookID.Valid {
		row.BookID = uint64(bookID.Int64)
	}
	return &row, nil
}

// MarkReturned sets returned_at to the current time if the reservation
// exists.  Returning an already-returned reservation re-sets the timestamp;
// the field never reverts to NULL.  ErrReservationNotFound is returned when
// the reservation does not exist and nothing is written.
func (r *ReservationRepo) MarkReturned(ctx context.Context, id uint64) (*model.Reservation, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, err
	}
	committed := false
	defer func() {
		if !committed {
			_ = tx.Rollback()
		}
	}()

	res, err := getForUpdateTx(ctx, tx, id)
	if err != nil {
		return nil, err
	}
	now := time.Now().UTC()
	const q = `UPDATE reservations SET returned_at = ? WHERE id = ?`
	if _, err := tx.ExecContext(ctx, q, now, id); err != nil {
		return nil, err
	}
	if err := tx.Commit(); err != nil {
		return nil, err
	}
	committed = true
	res.ReturnedAt = &now
	return res, nil
}

// Delete removes a reservation and all of its book rows atomically and
// returns the pre-deletion snapshot.  ErrReservationNotFound is returned
// when the reservation does not exist; in that case no writes occur.
func (r *ReservationRepo) Delete(ctx context.Context, id uint64) (*model.Reservation, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, err
	}
	committed := false
	defer func() {
		if !committed {
			_ = tx.Rollback()
		}
	}()

	res, err := getForUpdateTx(ctx, tx, id)
	if err != nil {
		return nil, err
	}
	// Book rows first, then the parent; both in the same transaction so a
	// reservation is never partially deleted.
	if _, err := tx.ExecContext(ctx, `DELETE FROM reservation_books WHERE reservation_id = ?`, id); err != nil {
		return nil, err
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM reservations WHERE id = ?`, id); err != nil {
		return nil, err
	}
	if err := tx.Commit(); err != nil {
		return nil, err
	}
	committed = true
	return res, nil
}

// ListAll returns every reservation outer-joined to its book rows, ordered
// by reservation ID ascending.  A reservation with no book rows appears
// exactly once with BookID zero.
func (r *ReservationRepo) ListAll(ctx context.Context) ([]ReservationWithBook, error) {
	const q = `SELECT r.id, r.user_id, r.created_at, r.returned_at, rb.book_id
	           FROM reservations r
	           LEFT JOIN reservation_books rb ON rb.reservation_id = r.id
	           ORDER BY r.id ASC`
	rows, err := r.db.QueryContext(ctx, q)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]ReservationWithBook, 0)
	for rows.Next() {
		var (
			row        ReservationWithBook
			returnedAt sql.NullTime
			bookID     sql.NullInt64
		)
		if err := rows.Scan(&row.ReservationID, &row.UserID, &row.CreatedAt, &returnedAt, &bookID); err != nil {
			return nil, err
		}
		if returnedAt.Valid {
			t := returnedAt.Time
			row.ReturnedAt = &t
		}
		if bookID.Valid {
			row.BookID = uint64(bookID.Int64)
		}
		out = append(out, row)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return out, nil
}

// getForUpdateTx loads a reservation inside a transaction, locking the row
// so a concurrent return/delete of the same reservation serializes.
// ErrReservationNotFound is returned when the row does not exist.
func getForUpdateTx(ctx context.Context, tx *sql.Tx, id uint64) (*model.Reservation, error) {
	const q = `SELECT id, user_id, created_at, returned_at FROM reservations WHERE id = ? FOR UPDATE`
	var (
		res        model.Reservation
		returnedAt sql.NullTime
	)
	err := tx.QueryRowContext(ctx, q, id).Scan(&res.ID, &res.UserID, &res.CreatedAt, &returnedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrReservationNotFound
		}
		return nil, err
	}
	if returnedAt.Valid {
		t := returnedAt.Time
		res.ReturnedAt = &t
	}
	return &res, nil
}
