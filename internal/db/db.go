package db

import (
	"fmt"

	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/revisify/backend/internal/logger"
	"github.com/revisify/backend/internal/types"
	"github.com/revisify/backend/internal/utils"
)

type Service struct {
	db  *gorm.DB
	log *logger.Logger
}

// New connects using DB_DRIVER: "postgres" (default) or "sqlite". The sqlite
// path exists for local runs and tests; production uses postgres.
func New(log *logger.Logger) (*Service, error) {
	serviceLog := log.With("service", "DBService")

	driver := utils.GetEnv("DB_DRIVER", "postgres", log)
	switch driver {
	case "sqlite":
		path := utils.GetEnv("SQLITE_PATH", "revisify.db", log)
		return NewSQLite(path, log)
	case "postgres":
	default:
		return nil, fmt.Errorf("db: unsupported DB_DRIVER %q", driver)
	}

	host := utils.GetEnv("POSTGRES_HOST", "localhost", log)
	port := utils.GetEnv("POSTGRES_PORT", "5432", log)
	user := utils.GetEnv("POSTGRES_USER", "postgres", log)
	password := utils.GetEnv("POSTGRES_PASSWORD", "", log)
	name := utils.GetEnv("POSTGRES_NAME", "revisify", log)

	dsn := fmt.Sprintf("postgres://%s:%s@%s:%s/%s?sslmode=disable", user, password, host, port, name)

	serviceLog.Info("Connecting to Postgres...")
	gdb, err := gorm.Open(postgres.Open(dsn), &gorm.Config{
		DisableForeignKeyConstraintWhenMigrating: true,
		TranslateError:                           true,
	})
	if err != nil {
		serviceLog.Error("Failed to connect to Postgres", "error", err)
		return nil, fmt.Errorf("db: connect postgres: %w", err)
	}
	return &Service{db: gdb, log: serviceLog}, nil
}

// NewSQLite opens a sqlite database at path. Use ":memory:" in tests.
func NewSQLite(path string, log *logger.Logger) (*Service, error) {
	serviceLog := log.With("service", "DBService")
	gdb, err := gorm.Open(sqlite.Open(path), &gorm.Config{
		Logger:         gormlogger.Default.LogMode(gormlogger.Silent),
		TranslateError: true,
	})
	if err != nil {
		return nil, fmt.Errorf("db: connect sqlite: %w", err)
	}
	return &Service{db: gdb, log: serviceLog}, nil
}

func (s *Service) AutoMigrateAll() error {
	s.log.Info("Auto migrating tables...")
	err := s.db.AutoMigrate(
		&types.Document{},
		&types.Chunk{},
		&types.Concept{},
		&types.PrereqEdge{},
		&types.RoadmapStep{},
		&types.QuestionSet{},
		&types.Question{},
		&types.Attempt{},
		&types.StepProgress{},
		&types.Hint{},
		&types.Note{},
		&types.Flashcard{},
		&types.PipelineRun{},
	)
	if err != nil {
		s.log.Error("Auto migration failed", "error", err)
		return err
	}
	return nil
}

func (s *Service) DB() *gorm.DB {
	return s.db
}
