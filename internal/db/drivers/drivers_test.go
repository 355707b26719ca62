package drivers

import (
	"context"
	"strings"
	"testing"

	"github.com/bgunnarsson/sqlkit/internal/config"
)

func TestDSN(t *testing.T) {
	tests := []struct {
		cfg    config.DB
		prefix string
	}{
		{config.DB{Driver: config.DriverSqlite, DSN: "app.db"}, "app.db"},
		{config.DB{Driver: config.DriverSqlite, Database: "other.db"}, "other.db"},
		{config.DB{Driver: config.DriverMysql, Host: "h", Port: 3306, User: "u", Password: "p", Database: "d"}, "u:p@tcp(h:3306)/d"},
		{config.DB{Driver: config.DriverPostgres, Host: "h", Port: 5432, User: "u", Password: "p", Database: "d"}, "postgres://u:p@h:5432/d"},
		{config.DB{Driver: config.DriverMssql, Host: "h", Port: 1433, User: "u", Password: "p", Database: "d"}, "sqlserver://u:p@h:1433?database=d"},
	}

	for _, tt := range tests {
		if got := DSN(tt.cfg); !strings.HasPrefix(got, tt.prefix) {
			t.Errorf("DSN(%+v) = %s, want prefix %s", tt.cfg, got, tt.prefix)
		}
	}
}

func TestOpenSqlite(t *testing.T) {
	sdb, err := Open(context.Background(), config.DB{Driver: config.DriverSqlite, DSN: ":memory:"})
	if err != nil {
		t.Fatal(err)
	}
	defer sdb.Close()

	if sdb.Dialect().Name != "sqlite" {
		t.Errorf("dialect = %s", sdb.Dialect().Name)
	}
}

func TestOpenUnsupported(t *testing.T) {
	if _, err := Open(context.Background(), config.DB{Driver: "oracle"}); err == nil {
		t.Error("expected error")
	}
}
