// Package postgres implements the backend store for PostgreSQL.
package postgres

import "github.com/guardteam/authgate/store"

const name = "github.com/guardteam/authgate/store/postgres"

var _ store.Store = &Driver{}

// Driver is the PostgreSQL store.Store implementation.
type Driver struct {
	conn Queryer
}

// New creates a new Driver over conn.
func New(conn Queryer) *Driver {
	return &Driver{
		conn: conn,
	}
}
