package ports

import "database/sql"

// Pools exposes named database connection pools. Pool returns a
// domain.ErrPersistence-wrapped error when the name is unknown.
type Pools interface {
	Pool(name string) (*sql.DB, error)
}
