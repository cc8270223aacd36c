package main

import (
	"context"
	"database/sql"
	"flag"
	"fmt"
	"io/fs"
	"os"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"

	"academihub.org/internal/config"
	"academihub.org/internal/migrate"
	"academihub.org/internal/obs"
	"academihub.org/ops"
)

func main() {
	log := obs.Logger()
	var (
		dsn     = flag.String("dsn", "", "PostgreSQL DSN (default: db.dsn from config)")
		dir     = flag.String("dir", "", "read migrations and seeds from this directory instead of the embedded copy")
		timeout = flag.Duration("timeout", time.Minute, "overall deadline")
		table   = flag.String("table", "", "migrations history table (default schema_migrations)")
		seeds   = flag.String("seeds-table", "", "applied seeds table (default schema_seeds)")
	)
	flag.Usage = func() {
		fmt.Fprintln(flag.CommandLine.Output(), "usage: migrate [flags] up|down|status|seed")
		flag.PrintDefaults()
	}
	flag.Parse()

	if flag.NArg() != 1 {
		flag.Usage()
		os.Exit(2)
	}
	if *dsn == "" {
		cfg, err := config.Load()
		if err != nil {
			log.Error("load config", "err", err)
			os.Exit(1)
		}
		*dsn = cfg.DB.DSN
	}
	if *dsn == "" {
		log.Error("missing DSN: provide -dsn or ACADEMIHUB_DB_DSN")
		os.Exit(1)
	}

	var files fs.FS = ops.FS
	if *dir != "" {
		files = os.DirFS(*dir)
	}

	ctx, cancel := context.WithTimeout(context.Background(), *timeout)
	defer cancel()

	db, err := sql.Open("pgx", *dsn)
	if err != nil {
		log.Error("open db", "err", err)
		os.Exit(1)
	}
	defer db.Close()

	mgr := migrate.NewManager(db, files, ops.MigrationsDir, ops.SeedsDir,
		migrate.WithMigrationsTable(*table),
		migrate.WithSeedsTable(*seeds),
	)

	cmd := flag.Arg(0)
	switch cmd {
	case "up":
		var applied []string
		applied, err = mgr.Up(ctx)
		for _, name := range applied {
			log.Info("applied", "migration", name)
		}
		if err == nil && len(applied) == 0 {
			log.Info("schema up to date")
		}
	case "down":
		var name string
		name, err = mgr.Down(ctx)
		if err == nil {
			log.Info("rolled back", "migration", name)
		}
	case "seed":
		var applied []string
		applied, err = mgr.Seed(ctx)
		for _, name := range applied {
			log.Info("seeded", "file", name)
		}
	case "status":
		var recs []migrate.Record
		recs, err = mgr.Status(ctx)
		for _, r := range recs {
			state := "pending"
			if r.Applied() {
				state = r.AppliedAt.Format(time.RFC3339)
			}
			fmt.Printf("%-40s %s\n", r.Name, state)
		}
	default:
		flag.Usage()
		os.Exit(2)
	}
	if err != nil {
		log.Error("migrate failed", "cmd", cmd, "err", err)
		os.Exit(1)
	}
}
