package repository

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/gemforge/backend/internal/models"
)

type PaymentRepo struct {
	pool *pgxpool.Pool
}

func NewPaymentRepo(pool *pgxpool.Pool) *PaymentRepo {
	return &PaymentRepo{pool: pool}
}

func (r *PaymentRepo) Create(ctx context.Context, o *models.PaymentOrder) error {
	return r.pool.QueryRow(ctx, `
		INSERT INTO payment_orders (order_code, user_id, package_id, diamonds, amount_vnd, status, payment_link_id, checkout_url)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING created_at
	`, o.OrderCode, o.UserID, o.PackageID, o.Diamonds, o.AmountVND, o.Status, o.PaymentLinkID, o.CheckoutURL).Scan(&o.CreatedAt)
}

func (r *PaymentRepo) GetByOrderCode(ctx context.Context, orderCode int64) (*models.PaymentOrder, error) {
	var o models.PaymentOrder
	err := r.pool.QueryRow(ctx, `
		SELECT order_code, user_id, package_id, diamonds, amount_vnd, status, payment_link_id, checkout_url, created_at, paid_at
		FROM payment_orders WHERE order_code = $1
	`, orderCode).Scan(&o.OrderCode, &o.UserID, &o.PackageID, &o.Diamonds, &o.AmountVND, &o.Status, &o.PaymentLinkID, &o.CheckoutURL, &o.CreatedAt, &o.PaidAt)
	if err != nil {
		return nil, err
	}
	return &o, nil
}

// MarkPaidTx moves a pending order to paid and returns it. ok is false when the
// order was not pending, so a replayed webhook credits nothing.
func (r *PaymentRepo) MarkPaidTx(ctx context.Context, tx pgx.Tx, orderCode int64) (o *models.PaymentOrder, ok bool, err error) {
	var out models.PaymentOrder
	err = tx.QueryRow(ctx, `
		UPDATE payment_orders SET status = $2, paid_at = now()
		WHERE order_code = $1 AND status = $3
		RETURNING order_code, user_id, package_id, diamonds, amount_vnd, status, payment_link_id, checkout_url, created_at, paid_at
	`, orderCode, models.PaymentStatusPaid, models.PaymentStatusPending).Scan(&out.OrderCode, &out.UserID, &out.PackageID, &out.Diamonds, &out.AmountVND, &out.Status, &out.PaymentLinkID, &out.CheckoutURL, &out.CreatedAt, &out.PaidAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	return &out, true, nil
}

// MarkCancelled is used when the provider reports a cancelled link. Only pending orders move.
func (r *PaymentRepo) MarkCancelled(ctx context.Context, orderCode int64) error {
	_, err := r.pool.Exec(ctx, `
		UPDATE payment_orders SET status = $2 WHERE order_code = $1 AND status = $3
	`, orderCode, models.PaymentStatusCancelled, models.PaymentStatusPending)
	return err
}
