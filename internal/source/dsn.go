package source

import (
	"net"
	"net/url"
	"strconv"
	"strings"

	"github.com/go-sql-driver/mysql"
	"github.com/pkg/errors"
	go_ora "github.com/sijms/go-ora/v2"

	"go-pgcopy-export/internal/model"
)

var defaultPorts = map[string]int{
	DriverOracle:    1521,
	DriverMySQL:     3306,
	DriverPostgres:  5432,
	DriverPgx:       5432,
	DriverSQLServer: 1433,
}

// DataSourceName builds the driver DSN for spec. An explicit DSN is used
// as is; otherwise it is assembled from Database ("host[:port]/name", or a
// file path for SQLite), Username and Password.
func DataSourceName(spec model.SourceSpec) (string, error) {
	if spec.DSN != "" {
		return spec.DSN, nil
	}
	if spec.Database == "" {
		return "", errors.Errorf("source %s: neither dsn nor database is set", spec.Driver)
	}
	switch spec.Driver {
	case DriverSQLite3, DriverSQLite:
		return spec.Database, nil
	}

	host, port, name, err := splitDatabase(spec.Database, defaultPorts[spec.Driver])
	if err != nil {
		return "", err
	}

	switch spec.Driver {
	case DriverOracle:
		opts := make(map[string]string)
		if spec.FetchSize > 0 {
			opts["PREFETCH_ROWS"] = strconv.Itoa(spec.FetchSize)
		}
		if spec.LOBPrefetch > 0 {
			opts["LOB FETCH"] = "PRE"
		}
		return go_ora.BuildUrl(host, port, name, spec.Username, spec.Password, opts), nil

	case DriverMySQL:
		cfg := mysql.NewConfig()
		cfg.User = spec.Username
		cfg.Passwd = spec.Password
		cfg.Net = "tcp"
		cfg.Addr = net.JoinHostPort(host, strconv.Itoa(port))
		cfg.DBName = name
		cfg.ParseTime = true
		return cfg.FormatDSN(), nil

	case DriverPostgres, DriverPgx:
		u := url.URL{
			Scheme: "postgres",
			User:   userInfo(spec),
			Host:   net.JoinHostPort(host, strconv.Itoa(port)),
			Path:   "/" + name,
		}
		return u.String(), nil

	case DriverSQLServer:
		u := url.URL{
			Scheme:   "sqlserver",
			User:     userInfo(spec),
			Host:     net.JoinHostPort(host, strconv.Itoa(port)),
			RawQuery: url.Values{"database": {name}}.Encode(),
		}
		return u.String(), nil
	}
	return "", errors.Errorf("unsupported source driver %q", spec.Driver)
}

func userInfo(spec model.SourceSpec) *url.Userinfo {
	switch {
	case spec.Username == "":
		return nil
	case spec.Password == "":
		return url.User(spec.Username)
	}
	return url.UserPassword(spec.Username, spec.Password)
}

// splitDatabase parses "host[:port]/name".
func splitDatabase(database string, defaultPort int) (host string, port int, name string, err error) {
	hostPort, name, ok := strings.Cut(strings.TrimPrefix(database, "//"), "/")
	if !ok || hostPort == "" || name == "" {
		return "", 0, "", errors.Errorf("database %q: want host[:port]/name", database)
	}
	if !strings.Contains(hostPort, ":") {
		return hostPort, defaultPort, name, nil
	}
	h, p, err := net.SplitHostPort(hostPort)
	if err != nil {
		return "", 0, "", errors.Wrapf(err, "database %q", database)
	}
	port, err = strconv.Atoi(p)
	if err != nil {
		return "", 0, "", errors.Wrapf(err, "database %q: port", database)
	}
	return h, port, name, nil
}
