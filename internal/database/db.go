package database

import (
	"context"
	"database/sql"
	"fmt"
	"net"
	"time"

	"github.com/go-sql-driver/mysql"
)

// Schema creates the booking ledger table.  It is safe to run on every start.
const Schema = `CREATE TABLE IF NOT EXISTS room_bookings (
	id           BIGINT UNSIGNED AUTO_INCREMENT PRIMARY KEY,
	booking_id   CHAR(36)     NOT NULL UNIQUE,
	room_numbers VARCHAR(64)  NOT NULL,
	room_count   TINYINT UNSIGNED NOT NULL,
	travel_time  INT UNSIGNED NOT NULL,
	phase        VARCHAR(16)  NOT NULL,
	booked_at    DATETIME(3)  NOT NULL,
	INDEX idx_room_bookings_booked_at (booked_at)
) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4`

// DSN builds the driver connection string.  Times are parsed into
// time.Time in UTC.
func DSN(user, pass, host, port, name string) string {
	cfg := mysql.NewConfig()
	cfg.User = user
	cfg.Passwd = pass
	cfg.Net = "tcp"
	cfg.Addr = net.JoinHostPort(host, port)
	cfg.DBName = name
	cfg.ParseTime = true
	cfg.Loc = time.UTC
	cfg.Params = map[string]string{"charset": "utf8mb4"}
	return cfg.FormatDSN()
}

// Open connects to the ledger database and pings it.
func Open(ctx context.Context, user, pass, host, port, name string) (*sql.DB, error) {
	db, err := sql.Open("mysql", DSN(user, pass, host, port, name))
	if err != nil {
		return nil, err
	}
	// One insert per booking; a small pool is plenty.
	db.SetMaxOpenConns(10)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(30 * time.Minute)

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping %s: %w", host, err)
	}
	return db, nil
}

// Migrate applies Schema.
func Migrate(ctx context.Context, db *sql.DB) error {
	if _, err := db.ExecContext(ctx, Schema); err != nil {
		return fmt.Errorf("create room_bookings: %w", err)
	}
	return nil
}
