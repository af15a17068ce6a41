package repository

import (
	"context"
	"errors"
	"time"

	"github.com/eckinger/uchomp/internal/domain"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

// GroupTx is the view of the group store inside one transaction. The
// lifecycle engine runs its check-then-act sequences against it; GetForUpdate
// locks the group row so concurrent operations on the same group serialize
// while other groups proceed independently.
type GroupTx interface {
	UserExists(ctx context.Context, userID int64) (bool, error)
	// InsertGroupWithOwner inserts the group and the owner's membership in
	// one shot; both are visible together or neither is.
	InsertGroupWithOwner(ctx context.Context, ownerID int64, restaurant string, expiration time.Time, loc string) (*domain.OrderGroup, error)
	GetForUpdate(ctx context.Context, orderID int64) (*domain.OrderGroup, error)
	// ListMembers returns memberships ordered by joined_at, then row id.
	// That is the ownership succession order.
	ListMembers(ctx context.Context, orderID int64) ([]domain.Membership, error)
	InsertMember(ctx context.Context, orderID, userID int64) (*domain.Membership, error)
	DeleteMember(ctx context.Context, orderID, userID int64) (bool, error)
	SetOwner(ctx context.Context, orderID, ownerID int64) error
	SetOpen(ctx context.Context, orderID int64, open bool) error
	DeleteGroup(ctx context.Context, orderID int64) error
}

type GroupRepository interface {
	// InTx runs fn inside a single transaction; any error rolls back fully.
	InTx(ctx context.Context, fn func(tx GroupTx) error) error
	ListActive(ctx context.Context, now time.Time) ([]domain.GroupSummary, error)
	GetDetail(ctx context.Context, orderID int64) (*domain.GroupDetail, error)
	// ListExpiring returns open groups whose expiration falls inside
	// (from, until], with member emails for notification.
	ListExpiring(ctx context.Context, from, until time.Time) ([]domain.ExpiringGroup, error)
}

type groupRepository struct {
	pool *pgxpool.Pool
}

func NewGroupRepository(pool *pgxpool.Pool) GroupRepository {
	return &groupRepository{pool: pool}
}

const groupCols = `id, owner_id, restaurant, expiration, loc, is_open, created_at`

func (r *groupRepository) InTx(ctx context.Context, fn func(tx GroupTx) error) error {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	return pgx.BeginTxFunc(ctx, r.pool, pgx.TxOptions{}, func(tx pgx.Tx) error {
		return fn(&groupTx{tx: tx})
	})
}

type groupTx struct {
	tx pgx.Tx
}

func (t *groupTx) UserExists(ctx context.Context, userID int64) (bool, error) {
	const q = `SELECT EXISTS (SELECT 1 FROM users WHERE id = $1)`

	var exists bool
	err := t.tx.QueryRow(ctx, q, userID).Scan(&exists)
	return exists, err
}

func (t *groupTx) InsertGroupWithOwner(ctx context.Context, ownerID int64, restaurant string, expiration time.Time, loc string) (*domain.OrderGroup, error) {
	const q = `
		WITH new_order AS (
			INSERT INTO food_orders (owner_id, restaurant, expiration, loc)
			VALUES ($1, $2, $3, $4)
			RETURNING ` + groupCols + `
		), owner_member AS (
			INSERT INTO order_members (order_id, user_id)
			SELECT id, owner_id FROM new_order
		)
		SELECT ` + groupCols + ` FROM new_order`

	var g domain.OrderGroup
	err := t.tx.QueryRow(ctx, q, ownerID, restaurant, expiration, loc).Scan(
		&g.ID, &g.OwnerID, &g.Restaurant, &g.Expiration, &g.Loc, &g.IsOpen, &g.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &g, nil
}

func (t *groupTx) GetForUpdate(ctx context.Context, orderID int64) (*domain.OrderGroup, error) {
	const q = `SELECT ` + groupCols + ` FROM food_orders WHERE id = $1 FOR UPDATE`

	var g domain.OrderGroup
	err := t.tx.QueryRow(ctx, q, orderID).Scan(
		&g.ID, &g.OwnerID, &g.Restaurant, &g.Expiration, &g.Loc, &g.IsOpen, &g.CreatedAt,
	)
	if err == pgx.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &g, nil
}

func (t *groupTx) ListMembers(ctx context.Context, orderID int64) ([]domain.Membership, error) {
	const q = `
		SELECT id, order_id, user_id, joined_at
		FROM order_members
		WHERE order_id = $1
		ORDER BY joined_at, id`

	rows, err := t.tx.Query(ctx, q, orderID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var members []domain.Membership
	for rows.Next() {
		var m domain.Membership
		if err := rows.Scan(&m.ID, &m.OrderID, &m.UserID, &m.JoinedAt); err != nil {
			return nil, err
		}
		members = append(members, m)
	}
	return members, rows.Err()
}

func (t *groupTx) InsertMember(ctx context.Context, orderID, userID int64) (*domain.Membership, error) {
	const q = `
		INSERT INTO order_members (order_id, user_id)
		VALUES ($1, $2)
		RETURNING id, order_id, user_id, joined_at`

	var m domain.Membership
	err := t.tx.QueryRow(ctx, q, orderID, userID).Scan(&m.ID, &m.OrderID, &m.UserID, &m.JoinedAt)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return nil, domain.ErrAlreadyMember
		}
		return nil, err
	}
	return &m, nil
}

func (t *groupTx) DeleteMember(ctx context.Context, orderID, userID int64) (bool, error) {
	const q = `DELETE FROM order_members WHERE order_id = $1 AND user_id = $2`

	result, err := t.tx.Exec(ctx, q, orderID, userID)
	if err != nil {
		return false, err
	}
	return result.RowsAffected() > 0, nil
}

func (t *groupTx) SetOwner(ctx context.Context, orderID, ownerID int64) error {
	const q = `UPDATE food_orders SET owner_id = $2 WHERE id = $1`

	_, err := t.tx.Exec(ctx, q, orderID, ownerID)
	return err
}

func (t *groupTx) SetOpen(ctx context.Context, orderID int64, open bool) error {
	const q = `UPDATE food_orders SET is_open = $2 WHERE id = $1`

	_, err := t.tx.Exec(ctx, q, orderID, open)
	return err
}

func (t *groupTx) DeleteGroup(ctx context.Context, orderID int64) error {
	const q = `DELETE FROM food_orders WHERE id = $1`

	_, err := t.tx.Exec(ctx, q, orderID)
	return err
}

func (r *groupRepository) ListActive(ctx context.Context, now time.Time) ([]domain.GroupSummary, error) {
	const q = `
		SELECT fo.id, fo.owner_id, fo.restaurant, fo.expiration, fo.loc,
			(SELECT COUNT(*) FROM order_members om WHERE om.order_id = fo.id) AS participant_count,
			(SELECT COALESCE(ARRAY_AGG(om.user_id ORDER BY om.joined_at, om.id), '{}')
			 FROM order_members om WHERE om.order_id = fo.id) AS participants
		FROM food_orders fo
		WHERE fo.is_open AND fo.expiration > $1
		ORDER BY fo.expiration ASC`

	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()

	rows, err := r.pool.Query(ctx, q, now)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var groups []domain.GroupSummary
	for rows.Next() {
		var g domain.GroupSummary
		if err := rows.Scan(&g.ID, &g.OwnerID, &g.Restaurant, &g.Expiration, &g.Loc, &g.ParticipantCount, &g.Participants); err != nil {
			return nil, err
		}
		groups = append(groups, g)
	}
	return groups, rows.Err()
}

func (r *groupRepository) GetDetail(ctx context.Context, orderID int64) (*domain.GroupDetail, error) {
	const groupQ = `SELECT ` + groupCols + ` FROM food_orders WHERE id = $1`
	const membersQ = `
		SELECT om.user_id, u.name, u.cell, om.joined_at
		FROM order_members om
		JOIN users u ON u.id = om.user_id
		WHERE om.order_id = $1
		ORDER BY om.joined_at, om.id`

	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()

	var g domain.OrderGroup
	err := r.pool.QueryRow(ctx, groupQ, orderID).Scan(
		&g.ID, &g.OwnerID, &g.Restaurant, &g.Expiration, &g.Loc, &g.IsOpen, &g.CreatedAt,
	)
	if err == pgx.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	rows, err := r.pool.Query(ctx, membersQ, orderID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	detail := &domain.GroupDetail{
		ID:         g.ID,
		OwnerID:    g.OwnerID,
		Restaurant: g.Restaurant,
		Expiration: g.Expiration,
		Loc:        g.Loc,
		IsOpen:     g.IsOpen,
	}
	for rows.Next() {
		var m domain.MemberDetail
		if err := rows.Scan(&m.UserID, &m.Name, &m.Cell, &m.JoinedAt); err != nil {
			return nil, err
		}
		m.IsOwner = m.UserID == g.OwnerID
		detail.Members = append(detail.Members, m)
	}
	return detail, rows.Err()
}

func (r *groupRepository) ListExpiring(ctx context.Context, from, until time.Time) ([]domain.ExpiringGroup, error) {
	const q = `
		SELECT fo.id, fo.restaurant, fo.expiration,
			(SELECT COALESCE(ARRAY_AGG(u.email ORDER BY om.joined_at, om.id), '{}')
			 FROM order_members om JOIN users u ON u.id = om.user_id
			 WHERE om.order_id = fo.id) AS member_emails
		FROM food_orders fo
		WHERE fo.is_open AND fo.expiration > $1 AND fo.expiration <= $2
		ORDER BY fo.expiration ASC`

	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()

	rows, err := r.pool.Query(ctx, q, from, until)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var groups []domain.ExpiringGroup
	for rows.Next() {
		var g domain.ExpiringGroup
		if err := rows.Scan(&g.ID, &g.Restaurant, &g.Expiration, &g.MemberEmails); err != nil {
			return nil, err
		}
		groups = append(groups, g)
	}
	return groups, rows.Err()
}
