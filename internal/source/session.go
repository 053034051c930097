package source

// sessionDirectives fix the textual rendering of dates and timestamps, and
// the character set, before the export query runs.
var sessionDirectives = map[string][]string{
	DriverOracle: {
		"ALTER SESSION SET NLS_DATE_FORMAT = 'YYYY-MM-DD HH24:MI:SS'",
		"ALTER SESSION SET NLS_TIMESTAMP_FORMAT = 'YYYY-MM-DD HH24:MI:SS.FF6'",
		"ALTER SESSION SET NLS_TIMESTAMP_TZ_FORMAT = 'YYYY-MM-DD HH24:MI:SS.FF6TZH:TZM'",
	},
	DriverMySQL:     {"SET NAMES utf8mb4"},
	DriverPostgres:  {"SET DateStyle = 'ISO, YMD'"},
	DriverPgx:       {"SET DateStyle = 'ISO, YMD'"},
	DriverSQLServer: {"SET DATEFORMAT ymd"},
}

// SessionStatements returns every statement ApplySession runs for driver,
// the built in directives first.
func SessionStatements(driver string, extra []string) []string {
	stmts := make([]string, 0, len(sessionDirectives[driver])+len(extra))
	stmts = append(stmts, sessionDirectives[driver]...)
	for _, s := range extra {
		if s != "" {
			stmts = append(stmts, s)
		}
	}
	return stmts
}
