package store

import (
	"context"
	"fmt"
	"net/url"
	"strconv"

	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
	goOra "github.com/sijms/go-ora/v2"
	"go.mongodb.org/mongo-driver/mongo"
	mongoOptions "go.mongodb.org/mongo-driver/mongo/options"
	_ "modernc.org/sqlite"
)

type PGConfig struct {
	Host     string
	Port     string
	Database string
	User     string
	Password string
}

func ConnectPostgresql(config PGConfig) (*sqlx.DB, error) {
	connStr := fmt.Sprintf("postgres://%s:%s@%s:%s/%s?sslmode=disable", config.User, config.Password, config.Host, config.Port, config.Database)
	return sqlx.Open("pgx", connStr)
}

// ConnectSqlite opens a SQLite database. An in-memory database is private to
// its connection, so the pool is limited to one.
func ConnectSqlite(dsn string) (*sqlx.DB, error) {
	db, err := sqlx.Open("sqlite", dsn)
	if err != nil {
		return nil, err
	}

	if dsn == ":memory:" || dsn == "" {
		db.SetMaxOpenConns(1)
	}

	return db, nil
}

// ConnectOracle opens an Oracle database. service is the service name, a SID
// goes in options.
func ConnectOracle(server string, port int, service, user, password string, options map[string]string) (*sqlx.DB, error) {
	return sqlx.Open("oracle", goOra.BuildUrl(server, port, service, user, password, options))
}

// ConnectMongo connects to MongoDB and returns cfg.Database.
func ConnectMongo(ctx context.Context, cfg *Config) (*mongo.Database, error) {
	uri := cfg.DSN
	if uri == "" {
		u := url.URL{Scheme: "mongodb", Host: cfg.Host}
		if cfg.Port != 0 {
			u.Host += ":" + strconv.Itoa(cfg.Port)
		}
		if cfg.User != "" {
			u.User = url.UserPassword(cfg.User, cfg.Password)
		}
		uri = u.String()
	}

	client, err := mongo.Connect(ctx, mongoOptions.Client().ApplyURI(uri))
	if err != nil {
		return nil, fmt.Errorf("failed to connect mongo: %w", err)
	}

	if err := client.Ping(ctx, nil); err != nil {
		_ = client.Disconnect(ctx)
		return nil, fmt.Errorf("failed to ping mongo: %w", err)
	}

	return client.Database(cfg.Database), nil
}

// Open opens the SQL database cfg describes along with its dialect.
func Open(cfg *Config) (*sqlx.DB, Dialect, error) {
	driver, err := SQLDriver(cfg.Driver)
	if err != nil {
		return nil, nil, err
	}

	dialect, err := DialectFor(driver)
	if err != nil {
		return nil, nil, err
	}

	var db *sqlx.DB
	switch driver {
	case "pgx", "postgres":
		dsn := cfg.DSN
		if dsn == "" {
			dsn = postgresURL(cfg)
		}
		db, err = sqlx.Open(driver, dsn)
	case "sqlite":
		db, err = ConnectSqlite(cfg.DSN)
	case "oracle":
		if cfg.DSN != "" {
			db, err = sqlx.Open("oracle", cfg.DSN)
		} else {
			db, err = ConnectOracle(cfg.Host, cfg.Port, cfg.Database, cfg.User, cfg.Password, cfg.Options)
		}
	default:
		return nil, nil, fmt.Errorf("%w: driver %q", ErrNotSupported, cfg.Driver)
	}
	if err != nil {
		return nil, nil, err
	}

	if cfg.MaxOpenConns > 0 {
		db.SetMaxOpenConns(cfg.MaxOpenConns)
	}

	return db, dialect, nil
}

func postgresURL(cfg *Config) string {
	port := cfg.Port
	if port == 0 {
		port = 5432
	}

	q := url.Values{}
	q.Set("sslmode", "disable")
	for k, v := range cfg.Options {
		q.Set(k, v)
	}

	u := url.URL{
		Scheme:   "postgres",
		User:     url.UserPassword(cfg.User, cfg.Password),
		Host:     cfg.Host + ":" + strconv.Itoa(port),
		Path:     "/" + cfg.Database,
		RawQuery: q.Encode(),
	}

	return u.String()
}
