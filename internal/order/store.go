package order

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

var (
	// ErrStoreUnavailable indicates the database pool is missing.
	ErrStoreUnavailable = errors.New("order: store unavailable")
	// ErrDuplicateNumber is returned when the order number is already taken.
	ErrDuplicateNumber = errors.New("order: duplicate order number")
)

// Store persists orders.
type Store interface {
	Insert(ctx context.Context, o Order) (Order, error)
	Get(ctx context.Context, id uuid.UUID) (Order, error)
	UpdateStatus(ctx context.Context, id uuid.UUID, status Status, posGuid *string) (Order, error)
}

// PGStore is the Postgres implementation of Store.
type PGStore struct {
	Pool *pgxpool.Pool
}

const orderColumns = `id, order_number, customer_name, customer_email, customer_phone, items,
subtotal, tax, total, status, COALESCE(pickup_time, '') AS pickup_time,
COALESCE(special_instructions, '') AS special_instructions, pos_order_guid, created_at`

type orderRow struct {
	ID                  uuid.UUID `db:"id"`
	Number              string    `db:"order_number"`
	CustomerName        string    `db:"customer_name"`
	CustomerEmail       string    `db:"customer_email"`
	CustomerPhone       string    `db:"customer_phone"`
	Items               []byte    `db:"items"`
	Subtotal            int64     `db:"subtotal"`
	Tax                 int64     `db:"tax"`
	Total               int64     `db:"total"`
	Status              string    `db:"status"`
	PickupTime          string    `db:"pickup_time"`
	SpecialInstructions string    `db:"special_instructions"`
	POSGuid             *string   `db:"pos_order_guid"`
	CreatedAt           time.Time `db:"created_at"`
}

func (r orderRow) order() (Order, error) {
	o := Order{
		ID:                  r.ID,
		Number:              r.Number,
		Customer:            Customer{Name: r.CustomerName, Email: r.CustomerEmail, Phone: r.CustomerPhone},
		Subtotal:            r.Subtotal,
		Tax:                 r.Tax,
		Total:               r.Total,
		Status:              Status(r.Status),
		PickupTime:          r.PickupTime,
		SpecialInstructions: r.SpecialInstructions,
		POSGuid:             r.POSGuid,
		CreatedAt:           r.CreatedAt,
	}
	if err := json.Unmarshal(r.Items, &o.Items); err != nil {
		return Order{}, fmt.Errorf("decode order items: %w", err)
	}
	return o, nil
}

func nullable(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

// Insert stores o and returns it with the generated id and timestamp.
func (s *PGStore) Insert(ctx context.Context, o Order) (Order, error) {
	if s == nil || s.Pool == nil {
		return Order{}, ErrStoreUnavailable
	}
	items, err := json.Marshal(o.Items)
	if err != nil {
		return Order{}, fmt.Errorf("encode order items: %w", err)
	}
	rows, err := s.Pool.Query(ctx, `INSERT INTO orders (order_number, customer_name, customer_email, customer_phone,
items, subtotal, tax, total, status, pickup_time, special_instructions)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
RETURNING `+orderColumns,
		o.Number, o.Customer.Name, o.Customer.Email, o.Customer.Phone,
		items, o.Subtotal, o.Tax, o.Total, string(o.Status),
		nullable(o.PickupTime), nullable(o.SpecialInstructions))
	if err != nil {
		return Order{}, err
	}
	row, err := pgx.CollectExactlyOneRow(rows, pgx.RowToStructByName[orderRow])
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return Order{}, ErrDuplicateNumber
		}
		return Order{}, err
	}
	return row.order()
}

// Get loads an order by id.
func (s *PGStore) Get(ctx context.Context, id uuid.UUID) (Order, error) {
	if s == nil || s.Pool == nil {
		return Order{}, ErrStoreUnavailable
	}
	rows, err := s.Pool.Query(ctx, `SELECT `+orderColumns+` FROM orders WHERE id = $1`, id)
	if err != nil {
		return Order{}, err
	}
	return collectOne(rows)
}

// UpdateStatus sets the status and, when given, the POS guid.
func (s *PGStore) UpdateStatus(ctx context.Context, id uuid.UUID, status Status, posGuid *string) (Order, error) {
	if s == nil || s.Pool == nil {
		return Order{}, ErrStoreUnavailable
	}
	rows, err := s.Pool.Query(ctx, `UPDATE orders SET status = $2, pos_order_guid = COALESCE($3, pos_order_guid)
WHERE id = $1 RETURNING `+orderColumns, id, string(status), posGuid)
	if err != nil {
		return Order{}, err
	}
	return collectOne(rows)
}

func collectOne(rows pgx.Rows) (Order, error) {
	row, err := pgx.CollectExactlyOneRow(rows, pgx.RowToStructByName[orderRow])
	if errors.Is(err, pgx.ErrNoRows) {
		return Order{}, ErrNotFound
	}
	if err != nil {
		return Order{}, err
	}
	return row.order()
}
