package migrations

import (
	"context"
	"embed"
	"fmt"

	"github.com/jmoiron/sqlx"
	"github.com/pressly/goose/v3"
	"go.uber.org/zap"
)

//go:embed sql/*.sql
var files embed.FS

const dir = "sql"

// Apply runs every pending migration against db.
func Apply(ctx context.Context, db *sqlx.DB, log *zap.Logger) error {
	goose.SetBaseFS(files)
	goose.SetLogger(gooseLogger{log: log.Sugar()})
	if err := goose.SetDialect("postgres"); err != nil {
		return fmt.Errorf("set goose dialect: %w", err)
	}
	if err := goose.UpContext(ctx, db.DB, dir); err != nil {
		return fmt.Errorf("run migrations: %w", err)
	}
	return nil
}

// Names lists the embedded migration files in order.
func Names() ([]string, error) {
	entries, err := files.ReadDir(dir)
	if err != nil {
		return nil, err
	}
	names := make([]string, 0, len(entries))
	for _, entry := range entries {
		names = append(names, entry.Name())
	}
	return names, nil
}

type gooseLogger struct {
	log *zap.SugaredLogger
}

func (g gooseLogger) Fatalf(format string, v ...interface{}) {
	g.log.Fatalf(format, v...)
}

func (g gooseLogger) Printf(format string, v ...interface{}) {
	g.log.Infof(format, v...)
}
