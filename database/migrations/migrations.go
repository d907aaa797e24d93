// Package migrations contains the schema migrations for the SQL backends.
// Each file registers itself from init(); importing the package is enough
// to make them known to pkg/migration.
package migrations
