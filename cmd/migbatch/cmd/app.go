package cmd

import (
	"context"
	"database/sql"

	_ "github.com/go-sql-driver/mysql"

	"github.com/chararch/migbatch"
	"github.com/chararch/migbatch/adapters/repository"
	"github.com/chararch/migbatch/adapters/txn"
	"github.com/chararch/migbatch/extensions/catalog"
	"github.com/chararch/migbatch/internal/config"
)

// job names registered in the engine
const (
	MigrationJobName     = "execute_migration"
	MigrationStepJobName = "execute_migration_step"
)

type app struct {
	db       *sql.DB
	repo     migbatch.Repository
	engine   migbatch.Engine
	history  *migbatch.History
	launcher *migbatch.Launcher
	helper   *migbatch.JobHelper
}

func openDB(ctx context.Context, cfg *config.Config) (*sql.DB, error) {
	db, err := sql.Open("mysql", cfg.DB.DSN())
	if err != nil {
		return nil, err
	}
	if err = db.PingContext(ctx); err != nil {
		db.Close()
		return nil, err
	}
	return db, nil
}

func newCatalog(cfg *config.Config) migbatch.Catalog {
	var store catalog.FileStore = &catalog.LocalFileSystem{}
	if cfg.Catalog.Source == config.CatalogFTP {
		store = &catalog.FTPFileSystem{
			Host:        cfg.Catalog.FTP.Host,
			Port:        cfg.Catalog.FTP.Port,
			User:        cfg.Catalog.FTP.User,
			Password:    cfg.Catalog.FTP.Password,
			ConnTimeout: cfg.Catalog.FTP.ConnTimeout,
		}
	}
	return catalog.NewDirCatalog(store, cfg.Catalog.Dir)
}

func newApp(ctx context.Context, cfg *config.Config) (*app, error) {
	db, err := openDB(ctx, cfg)
	if err != nil {
		return nil, err
	}
	txMgr := txn.NewTransactionManagerWithOptions(db, &sql.TxOptions{Isolation: sql.LevelReadCommitted})
	repo := repository.New(db, migbatch.DefaultLogger, txMgr)
	runner := migbatch.NewExecRunner()
	migrationCmd := cfg.Migration.Template()

	engine := migbatch.NewEngine(repo)
	if err = engine.Register(migbatch.NewMigrationJob(MigrationJobName, repo, runner, migrationCmd)); err != nil {
		db.Close()
		return nil, err
	}
	stepFactory := migbatch.NewStepBuilderFactory(runner, migrationCmd)
	stepJob := migbatch.NewJobBuilderFactory(repo).Get(MigrationStepJobName).
		Start(stepFactory.Get("execute").Migration().Build()).
		Build()
	if err = engine.Register(stepJob); err != nil {
		db.Close()
		return nil, err
	}

	return &app{
		db:       db,
		repo:     repo,
		engine:   engine,
		history:  migbatch.NewHistory(repo, newCatalog(cfg), cfg.History.Limit),
		launcher: migbatch.NewLauncher(runner, cfg.Launcher.Template()),
		helper:   migbatch.NewJobHelper(repo),
	}, nil
}

func (a *app) Close() error {
	return a.db.Close()
}

func withApp(ctx context.Context, fn func(a *app) error) error {
	a, err := newApp(ctx, cfg)
	if err != nil {
		return err
	}
	defer a.Close()
	return fn(a)
}
