package source

import (
	"database/sql"
	"sort"

	_ "github.com/go-sql-driver/mysql"
	_ "github.com/jackc/pgx/v5/stdlib"
	_ "github.com/lib/pq"
	_ "github.com/mattn/go-sqlite3"
	_ "github.com/microsoft/go-mssqldb"
	_ "github.com/sijms/go-ora/v2"
	_ "modernc.org/sqlite"
)

// Driver names accepted in a source spec. They match the database/sql
// registrations of the imported drivers.
const (
	DriverOracle    = "oracle"
	DriverMySQL     = "mysql"
	DriverPostgres  = "postgres"
	DriverPgx       = "pgx"
	DriverSQLServer = "sqlserver"
	DriverSQLite3   = "sqlite3"
	DriverSQLite    = "sqlite"
)

var supported = map[string]bool{
	DriverOracle:    true,
	DriverMySQL:     true,
	DriverPostgres:  true,
	DriverPgx:       true,
	DriverSQLServer: true,
	DriverSQLite3:   true,
	DriverSQLite:    true,
}

// Supported reports whether driver names a registered source driver.
func Supported(driver string) bool {
	return supported[driver]
}

// Drivers returns the supported driver names in sorted order.
func Drivers() []string {
	registered := make(map[string]bool)
	for _, d := range sql.Drivers() {
		registered[d] = true
	}
	var out []string
	for d := range supported {
		if registered[d] {
			out = append(out, d)
		}
	}
	sort.Strings(out)
	return out
}
