// Command migrate manages the schema embedded in the server binary, for
// deployments that run with DB_AUTO_MIGRATE=false.
package main

import (
	"errors"
	"fmt"
	"log"
	"os"
	"strconv"

	"github.com/golang-migrate/migrate/v4"
	"go.uber.org/zap"

	"github.com/earnhub/backend/internal/config"
	"github.com/earnhub/backend/internal/logger"
	"github.com/earnhub/backend/internal/repository"
)

const usage = "usage: migrate up [n] | down [n] | goto <version> | version | force <version>"

func main() {
	zlog, err := logger.New("info", "development")
	if err != nil {
		log.Fatalf("Failed to create logger: %v", err)
	}
	defer zlog.Sync()

	db, err := config.LoadDatabase()
	if err != nil {
		zlog.Fatal("failed to load database config", zap.Error(err))
	}
	if db.Driver != config.DriverPostgres {
		zlog.Fatal("nothing to migrate", zap.String("driver", db.Driver))
	}

	m, err := repository.NewMigrator(db.DSN())
	if err != nil {
		zlog.Fatal("failed to open migrator", zap.Error(err))
	}
	defer m.Close()

	if err := run(m, os.Args[1:]); err != nil {
		zlog.Fatal("migration failed", zap.Strings("args", os.Args[1:]), zap.Error(err))
	}

	version, dirty, err := m.Version()
	switch {
	case errors.Is(err, migrate.ErrNilVersion):
		zlog.Info("schema is empty")
	case err != nil:
		zlog.Fatal("failed to read schema version", zap.Error(err))
	default:
		zlog.Info("schema version", zap.Uint("version", version), zap.Bool("dirty", dirty))
	}
}

func run(m *migrate.Migrate, args []string) error {
	if len(args) == 0 {
		return errors.New(usage)
	}

	var err error
	switch args[0] {
	case "up":
		if len(args) > 1 {
			n, perr := count(args[1])
			if perr != nil {
				return perr
			}
			err = m.Steps(n)
		} else {
			err = m.Up()
		}
	case "down":
		n := 1
		if len(args) > 1 {
			if n, err = count(args[1]); err != nil {
				return err
			}
		}
		err = m.Steps(-n)
	case "goto":
		if len(args) < 2 {
			return errors.New(usage)
		}
		v, perr := strconv.ParseUint(args[1], 10, 32)
		if perr != nil {
			return fmt.Errorf("invalid version %q: %w", args[1], perr)
		}
		err = m.Migrate(uint(v))
	case "version":
		return nil
	case "force":
		if len(args) < 2 {
			return errors.New(usage)
		}
		v, perr := strconv.Atoi(args[1])
		if perr != nil {
			return fmt.Errorf("invalid version %q: %w", args[1], perr)
		}
		err = m.Force(v)
	default:
		return fmt.Errorf("unknown command %q; %s", args[0], usage)
	}

	if errors.Is(err, migrate.ErrNoChange) {
		return nil
	}
	return err
}

func count(raw string) (int, error) {
	n, err := strconv.Atoi(raw)
	if err != nil || n <= 0 {
		return 0, fmt.Errorf("step count must be a positive integer, got %q", raw)
	}
	return n, nil
}
