package migrations

import (
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"io/fs"
	"regexp"
	"strconv"

	"github.com/golang-migrate/migrate/v4"
	pg "github.com/golang-migrate/migrate/v4/database/postgres"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	_ "github.com/lib/pq"
	"github.com/rs/zerolog/log"
)

//go:embed sql/*.sql
var files embed.FS

const migrationsTable = "schema_migrations_golf"

// Source is the embedded migration set.
func Source() (fs.FS, error) {
	return fs.Sub(files, "sql")
}

// RunMigrations applies the embedded migrations using the postgres driver.
// A database that already has golf_strokes but no migrate metadata is
// baselined to the latest version first.
func RunMigrations(databaseURL string) error {
	if databaseURL == "" {
		return fmt.Errorf("database URL is empty")
	}

	src, err := Source()
	if err != nil {
		return err
	}
	source, err := iofs.New(src, ".")
	if err != nil {
		return fmt.Errorf("failed to open migration source: %w", err)
	}

	sqlDB, err := sql.Open("postgres", databaseURL)
	if err != nil {
		return fmt.Errorf("failed to open DB: %w", err)
	}
	defer sqlDB.Close()

	driver, err := pg.WithInstance(sqlDB, &pg.Config{MigrationsTable: migrationsTable})
	if err != nil {
		return fmt.Errorf("failed to create migrate driver: %w", err)
	}

	m, err := migrate.NewWithInstance("iofs", source, "postgres", driver)
	if err != nil {
		return fmt.Errorf("failed to create migrate instance: %w", err)
	}

	var strokesExist bool
	row := sqlDB.QueryRow("SELECT EXISTS (SELECT 1 FROM information_schema.tables WHERE table_name='golf_strokes')")
	if err := row.Scan(&strokesExist); err == nil && strokesExist {
		var metaExist bool
		row2 := sqlDB.QueryRow("SELECT EXISTS (SELECT 1 FROM information_schema.tables WHERE table_name=$1)", migrationsTable)
		if err := row2.Scan(&metaExist); err == nil && !metaExist {
			latest := LatestVersion(src)
			if latest > 0 {
				log.Info().Int64("version", latest).Msg("[MIGRATE] baselining existing schema")
				if ferr := m.Force(int(latest)); ferr != nil {
					log.Warn().Err(ferr).Int64("version", latest).Msg("[MIGRATE] force failed")
				}
			}
		}
	}

	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("migration up failed: %w", err)
	}

	log.Info().Msg("[MIGRATE] migrations applied")
	return nil
}

var versionPrefix = regexp.MustCompile(`^0*([0-9]+)_`)

// LatestVersion returns the highest numeric version prefix (e.g. 000001_)
// among the files in dir.
func LatestVersion(dir fs.FS) int64 {
	entries, err := fs.ReadDir(dir, ".")
	if err != nil {
		return 0
	}

	var max int64
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		m := versionPrefix.FindStringSubmatch(e.Name())
		if len(m) < 2 {
			continue
		}
		v, _ := strconv.ParseInt(m[1], 10, 64)
		if v > max {
			max = v
		}
	}

	return max
}
