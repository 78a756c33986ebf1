// Package dbtest opens isolated sqlite databases carrying the marketplace schema
// for repository and transaction tests.
package dbtest

import (
	"testing"

	"github.com/google/uuid"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

var schema = []string{
	`CREATE TABLE listings (
		id TEXT PRIMARY KEY,
		seller_id TEXT NOT NULL,
		title TEXT NOT NULL,
		kind TEXT NOT NULL,
		unit_price_cents INTEGER NOT NULL,
		is_active BOOLEAN NOT NULL DEFAULT true,
		created_at DATETIME,
		updated_at DATETIME
	)`,
	`CREATE TABLE cart_items (
		id TEXT PRIMARY KEY,
		buyer_id TEXT NOT NULL,
		product_id TEXT NOT NULL,
		seller_id TEXT NOT NULL,
		product_kind TEXT NOT NULL,
		title TEXT NOT NULL,
		unit_price_cents INTEGER NOT NULL,
		quantity INTEGER NOT NULL,
		created_at DATETIME,
		updated_at DATETIME
	)`,
	`CREATE UNIQUE INDEX uq_cart_items_buyer_product ON cart_items (buyer_id, product_id)`,
	`CREATE TABLE delivery_providers (
		user_id TEXT PRIMARY KEY,
		display_name TEXT NOT NULL,
		rating NUMERIC NOT NULL DEFAULT 0,
		rating_count INTEGER NOT NULL DEFAULT 0,
		created_at DATETIME,
		updated_at DATETIME
	)`,
	`CREATE TABLE quote_requests (
		id TEXT PRIMARY KEY,
		buyer_id TEXT NOT NULL,
		seller_id TEXT NOT NULL,
		line_items TEXT NOT NULL,
		subtotal_cents INTEGER NOT NULL,
		payment_method TEXT NOT NULL,
		delivery_notes TEXT,
		expire_after_minutes INTEGER NOT NULL,
		state TEXT NOT NULL DEFAULT 'open',
		close_reason TEXT,
		closed_at DATETIME,
		expires_at DATETIME NOT NULL,
		created_at DATETIME,
		updated_at DATETIME
	)`,
	`CREATE UNIQUE INDEX uq_quote_requests_open_group ON quote_requests (buyer_id, seller_id) WHERE state = 'open'`,
	`CREATE TABLE quotes (
		id TEXT PRIMARY KEY,
		request_id TEXT NOT NULL REFERENCES quote_requests(id),
		provider_id TEXT NOT NULL,
		delivery_fee_cents INTEGER NOT NULL,
		estimated_delivery_date DATETIME NOT NULL,
		notes TEXT,
		state TEXT NOT NULL DEFAULT 'pending',
		valid_until DATETIME NOT NULL,
		decided_at DATETIME,
		created_at DATETIME,
		updated_at DATETIME
	)`,
	`CREATE UNIQUE INDEX uq_quotes_pending_provider ON quotes (request_id, provider_id) WHERE state = 'pending'`,
	`CREATE UNIQUE INDEX uq_quotes_accepted_request ON quotes (request_id) WHERE state = 'accepted'`,
	`CREATE TABLE orders (
		id TEXT PRIMARY KEY,
		request_id TEXT NOT NULL UNIQUE,
		accepted_quote_id TEXT NOT NULL UNIQUE,
		buyer_id TEXT NOT NULL,
		seller_id TEXT NOT NULL,
		provider_id TEXT NOT NULL,
		subtotal_cents INTEGER NOT NULL,
		delivery_fee_cents INTEGER NOT NULL,
		total_cents INTEGER NOT NULL,
		payment_method TEXT NOT NULL,
		status TEXT NOT NULL DEFAULT 'confirmed',
		notes TEXT,
		cancel_reason TEXT,
		delivery_code TEXT,
		delivery_notes TEXT,
		delivered_at DATETIME,
		cancelled_at DATETIME,
		created_at DATETIME,
		updated_at DATETIME
	)`,
	`CREATE TABLE order_line_items (
		id TEXT PRIMARY KEY,
		order_id TEXT NOT NULL REFERENCES orders(id) ON DELETE CASCADE,
		product_id TEXT NOT NULL,
		product_kind TEXT NOT NULL,
		title TEXT NOT NULL,
		unit_price_cents INTEGER NOT NULL,
		qty INTEGER NOT NULL,
		total_cents INTEGER NOT NULL,
		created_at DATETIME
	)`,
	`CREATE TABLE order_status_events (
		id TEXT PRIMARY KEY,
		order_id TEXT NOT NULL REFERENCES orders(id) ON DELETE CASCADE,
		from_status TEXT NOT NULL,
		to_status TEXT NOT NULL,
		actor_id TEXT NOT NULL,
		actor_role TEXT NOT NULL,
		reason TEXT,
		created_at DATETIME
	)`,
	`CREATE TABLE notifications (
		id TEXT PRIMARY KEY,
		user_id TEXT NOT NULL,
		event_id TEXT,
		type TEXT NOT NULL,
		title TEXT NOT NULL,
		message TEXT NOT NULL,
		link TEXT,
		read_at DATETIME,
		created_at DATETIME
	)`,
	`CREATE UNIQUE INDEX uq_notifications_user_event ON notifications (user_id, event_id, type)`,
	`CREATE TABLE outbox_events (
		id TEXT PRIMARY KEY,
		event_type TEXT NOT NULL,
		aggregate_type TEXT NOT NULL,
		aggregate_id TEXT NOT NULL,
		payload TEXT NOT NULL,
		created_at DATETIME,
		published_at DATETIME,
		attempt_count INTEGER NOT NULL DEFAULT 0,
		last_error TEXT
	)`,
	`CREATE TABLE outbox_dlq (
		id TEXT PRIMARY KEY,
		event_id TEXT NOT NULL,
		event_type TEXT NOT NULL,
		aggregate_type TEXT NOT NULL,
		aggregate_id TEXT NOT NULL,
		payload_json TEXT NOT NULL,
		error_reason TEXT NOT NULL,
		error_message TEXT,
		attempt_count INTEGER NOT NULL DEFAULT 0,
		failed_at DATETIME,
		created_at DATETIME
	)`,
}

// Open returns a private in-memory database with every marketplace table.
// The pool is capped at one connection so concurrent transactions queue
// instead of failing with sqlite table locks.
func Open(t *testing.T) *gorm.DB {
	t.Helper()

	dsn := "file:quotemarket_" + uuid.NewString() + "?mode=memory&cache=shared&_foreign_keys=1"
	conn, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		SkipDefaultTransaction: true,
		Logger:                 gormlogger.Default.LogMode(gormlogger.Silent),
	})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}

	sqlDB, err := conn.DB()
	if err != nil {
		t.Fatalf("sql handle: %v", err)
	}
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })

	for _, stmt := range schema {
		if err := conn.Exec(stmt).Error; err != nil {
			t.Fatalf("apply schema: %v", err)
		}
	}
	return conn
}
