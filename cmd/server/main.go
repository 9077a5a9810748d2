package main

import (
	"context"
	"flag"
	"log"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/tboucheau/taskhive/internal/api"
	"github.com/tboucheau/taskhive/internal/config"
	"github.com/tboucheau/taskhive/internal/database"
	"github.com/tboucheau/taskhive/internal/policy"
	"github.com/tboucheau/taskhive/internal/server"
	"github.com/tboucheau/taskhive/internal/stats"
)

const defaultSigningKey = "5gq2eEIL0PUHhXuxvUOHRkQ8BE8XmPmvGR3iVkNmYhk="

type stringSliceFlag []string

func (s *stringSliceFlag) String() string {
	return strings.Join(*s, ",")
}

func (s *stringSliceFlag) Set(value string) error {
	*s = append(*s, strings.Split(value, ",")...)
	return nil
}

var (
	addr           string
	dsn            string
	migrationsURL  string
	signingKey     string
	allowedOrigins stringSliceFlag
)

func main() {
	flag.StringVar(&addr, "addr", "localhost:8000", "server address")
	flag.StringVar(&dsn, "dsn", "host=localhost user=postgres password=postgres dbname=taskhive sslmode=disable", "database connection string")
	flag.StringVar(&migrationsURL, "migrations", "file://db/migrations", "migrations source URL")
	flag.StringVar(&signingKey, "signing-key", defaultSigningKey, "base64 encoded signing key")
	flag.Var(&allowedOrigins, "allowed-origins", "comma-separated list of allowed origins for CORS")
	flag.Parse()

	logger := log.New(os.Stderr, "[taskhive] ", log.LstdFlags)

	cfg, err := config.NewConfig(addr, dsn, migrationsURL, signingKey, allowedOrigins)
	if err != nil {
		logger.Fatal("config:", err)
	}

	dbConn, err := database.NewPgTaskhiveRepository(cfg.DatabaseDSN)
	if err != nil {
		logger.Fatal("db open:", err)
	}
	defer func() {
		if err := dbConn.Close(); err != nil {
			logger.Fatal("db close:", err)
		}
	}()

	if err := dbConn.Migrate(cfg.MigrationsURL); err != nil {
		logger.Fatal("migrate:", err)
	}

	mux := http.NewServeMux()

	statsUpdater := stats.NewStatsUpdater(mux)

	policyEngine := policy.NewEngine(dbConn)

	taskServer, err := server.NewTaskServer(logger, dbConn, policyEngine, statsUpdater)
	if err != nil {
		logger.Fatal("new task server:", err)
	}

	dispatcher := server.NewEventDispatcher(taskServer, logger, statsUpdater)

	srv := api.NewTaskhiveApp(logger, taskServer, dispatcher, dbConn, policyEngine, statsUpdater, mux, cfg)

	statsUpdater.Run()
	defer statsUpdater.Stop()

	go taskServer.Run()

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.Start()
	}()

	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-sigs:
		logger.Printf("received signal: %s\n", sig)
	case err := <-errCh:
		logger.Println("server:", err)
	}

	shutDownCtx, cancel := context.WithTimeout(
		context.Background(),
		10*time.Second,
	)
	defer cancel()

	if err := srv.Shutdown(shutDownCtx); err != nil {
		logger.Fatalln("HTTP server shutdown:", err)
	}

	logger.Println("shutting down task server...")
	if err := taskServer.Shutdown(shutDownCtx); err != nil {
		logger.Fatalln("task server shutdown:", err)
	}

	logger.Println("shutdown complete")
}
