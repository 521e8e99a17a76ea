package database

import (
	"context"
	"database/sql"
	"fmt"
)

// schema is applied in order by Migrate.  Every statement is idempotent.
var schema = []string{
	`CREATE TABLE IF NOT EXISTS rooms (
		id         BIGINT UNSIGNED NOT NULL AUTO_INCREMENT,
		name       VARCHAR(100)    NOT NULL,
		capacity   INT             NOT NULL,
		location   VARCHAR(255)    NOT NULL,
		status     ENUM('available','occupied','maintenance') NOT NULL DEFAULT 'available',
		created_at DATETIME        NOT NULL DEFAULT CURRENT_TIMESTAMP,
		updated_at DATETIME        NOT NULL DEFAULT CURRENT_TIMESTAMP ON UPDATE CURRENT_TIMESTAMP,
		PRIMARY KEY (id),
		UNIQUE KEY uq_rooms_name (name),
		CONSTRAINT chk_rooms_capacity CHECK (capacity > 0)
	) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4`,

	`CREATE TABLE IF NOT EXISTS reservations (
		id             BIGINT UNSIGNED NOT NULL AUTO_INCREMENT,
		room_id        BIGINT UNSIGNED NOT NULL,
		date           DATE            NOT NULL,
		start_time     CHAR(5)         NOT NULL,
		end_time       CHAR(5)         NOT NULL,
		purpose        VARCHAR(500)    NOT NULL,
		requester      VARCHAR(100)    NOT NULL,
		wallet_address CHAR(42)        NULL,
		kjb_burned     DECIMAL(36,18)  NULL,
		burn_tx_hash   CHAR(66)        NULL,
		created_at     DATETIME        NOT NULL DEFAULT CURRENT_TIMESTAMP,
		PRIMARY KEY (id),
		KEY idx_reservations_room_date (room_id, date),
		KEY idx_reservations_date (date, start_time),
		CONSTRAINT fk_reservations_room FOREIGN KEY (room_id) REFERENCES rooms (id),
		CONSTRAINT chk_reservations_slot CHECK (start_time < end_time)
	) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4`,
}

// Migrate creates the tables when they do not exist yet.
func Migrate(ctx context.Context, db *sql.DB) error {
	for i, stmt := range schema {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("migration %d: %w", i+1, err)
		}
	}
	return nil
}
