package sqlstore

import (
	"embed"
	"io/fs"

	"github.com/jmoiron/sqlx"
)

//go:embed migrations
var migrationFiles embed.FS

// Dialect captures the SQL differences between the supported engines.
type Dialect struct {
	Name string
	// BindType is the sqlx placeholder style.
	BindType int
	// RowLocks enables SELECT ... FOR UPDATE OF <alias> on lock lookups.
	RowLocks bool
	// ReadOnlyTx marks read transactions with sql.TxOptions.ReadOnly.
	ReadOnlyTx bool
	// dayFormat renders a timestamp column as YYYY-MM-DD.
	dayFormat func(column string) string
}

// SQLite returns the dialect for modernc.org/sqlite. Write serialisation comes
// from BEGIN IMMEDIATE, so no row locks are emitted.
func SQLite() Dialect {
	return Dialect{
		Name:     "sqlite",
		BindType: sqlx.QUESTION,
		dayFormat: func(column string) string {
			return "substr(" + column + ", 1, 10)"
		},
	}
}

// Postgres returns the dialect for lib/pq.
func Postgres() Dialect {
	return Dialect{
		Name:       "postgres",
		BindType:   sqlx.DOLLAR,
		RowLocks:   true,
		ReadOnlyTx: true,
		dayFormat: func(column string) string {
			return "to_char(" + column + ", 'YYYY-MM-DD')"
		},
	}
}

// DialectFor returns the dialect registered under name.
func DialectFor(name string) (Dialect, bool) {
	switch name {
	case "sqlite":
		return SQLite(), true
	case "postgres":
		return Postgres(), true
	}
	return Dialect{}, false
}

// Migrations returns the embedded migration directory for the dialect.
func (d Dialect) Migrations() (fs.FS, string) {
	return migrationFiles, "migrations/" + d.Name
}

func (d Dialect) lockOf(alias string) string {
	if !d.RowLocks {
		return ""
	}
	return " FOR UPDATE OF " + alias
}

func (d Dialect) day(column string) string {
	return d.dayFormat(column)
}
