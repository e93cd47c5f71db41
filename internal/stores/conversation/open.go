package conversation

import (
	"fmt"
	"strings"

	"github.com/ethanbaker/mentor/pkg/conversation"
	"github.com/ethanbaker/mentor/pkg/utils"
	"github.com/go-sql-driver/mysql"
)

// Open creates the store selected by STORE_DRIVER. The returned close function is never nil.
func Open(cfg *utils.Config) (conversation.Store, func() error, error) {
	noop := func() error { return nil }

	switch driver := strings.ToLower(cfg.GetWithDefault("STORE_DRIVER", "mysql")); driver {
	case "memory":
		return NewInMemoryStore(), noop, nil

	case "sqlite":
		store, err := NewSqliteStore(cfg.GetWithDefault("SQLITE_PATH", "mentor.db"))
		if err != nil {
			return nil, noop, err
		}
		return store, store.Close, nil

	case "mysql":
		dbConfig := mysql.Config{
			User:                 cfg.Get("MYSQL_USER"),
			Passwd:               cfg.Get("MYSQL_ROOT_PASSWORD"),
			Net:                  "tcp",
			Addr:                 fmt.Sprintf("%s:%s", cfg.GetWithDefault("MYSQL_HOST", "localhost"), cfg.GetWithDefault("MYSQL_PORT", "3306")),
			DBName:               cfg.Get("MYSQL_DATABASE"),
			ParseTime:            true,
			AllowNativePasswords: true,
		}

		store, err := NewMySqlStore(dbConfig.FormatDSN())
		if err != nil {
			return nil, noop, err
		}
		return store, store.Close, nil

	default:
		return nil, noop, fmt.Errorf("unknown STORE_DRIVER %q", driver)
	}
}
