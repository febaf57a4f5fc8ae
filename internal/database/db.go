// Package database builds the MySQL connection pool shared by the
// reservation repository.  The reservation tables never reference the user
// or book tables, which live in other services' databases; this pool only
// ever touches locally owned data.
package database

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "github.com/go-sql-driver/mysql"
)

// Params describes how to reach and size the pool.  Zero-valued sizing
// fields fall back to conservative defaults, so callers only need to fill
// in the connection coordinates.
type Params struct {
	User            string
	Pass            string // empty means no password in the DSN
	Host            string
	Port            string
	Name            string
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
}

// Open connects to MySQL, applies the pool limits and verifies the
// connection with a bounded ping before handing the pool to callers.
// parseTime=true maps DATETIME columns onto time.Time and loc=UTC keeps
// every timestamp consistent with the UTC values the repository writes.
func Open(p Params) (*sql.DB, error) {
	auth := p.User
	if p.Pass != "" {
		auth = fmt.Sprintf("%s:%s", p.User, p.Pass)
	}
	dsn := fmt.Sprintf("%s@tcp(%s:%s)/%s?charset=utf8mb4&parseTime=true&loc=UTC",
		auth, p.Host, p.Port, p.Name)

	db, err := sql.Open("mysql", dsn)
	if err != nil {
		return nil, err
	}

	maxOpen := p.MaxOpenConns
	if maxOpen <= 0 {
		maxOpen = 25
	}
	maxIdle := p.MaxIdleConns
	if maxIdle <= 0 {
		maxIdle = maxOpen
	}
	lifetime := p.ConnMaxLifetime
	if lifetime <= 0 {
		lifetime = 30 * time.Minute
	}
	db.SetMaxOpenConns(maxOpen)
	db.SetMaxIdleConns(maxIdle)
	db.SetConnMaxLifetime(lifetime)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, err
	}
	return db, nil
}
