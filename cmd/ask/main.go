package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	mid "github.com/triplehop/triplehop/internal/server/middleware"
	"github.com/triplehop/triplehop/internal/util"

	"github.com/triplehop/triplehop/pkg/graphstore"
	"github.com/triplehop/triplehop/pkg/graphstore/memory"
	gstore "github.com/triplehop/triplehop/pkg/graphstore/pgx"
	"github.com/triplehop/triplehop/pkg/logger"
	"github.com/triplehop/triplehop/pkg/logger/console"
	"github.com/triplehop/triplehop/pkg/reason"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	pgxvec "github.com/pgvector/pgvector-go/pgx"
)

// ask answers a single question from the command line. With GRAPH_FIXTURE
// set it runs against a JSON fixture instead of Postgres, which is handy for
// trying out a small graph without any infrastructure.
func main() {
	util.LoadEnv()

	debug := util.GetEnvBool("DEBUG", false)
	consoleLogger := console.NewConsoleLogger(console.ConsoleLoggerParams{
		Debug: debug,
	})
	logger.Init(consoleLogger)

	if len(os.Args) < 2 {
		fmt.Fprintln(os.Stderr, "usage: ask <question>")
		os.Exit(1)
	}
	question := strings.Join(os.Args[1:], " ")

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var store graphstore.GraphStore
	if fixture := util.GetEnv("GRAPH_FIXTURE"); fixture != "" {
		memStore := memory.New()
		if err := memStore.LoadFile(fixture); err != nil {
			logger.Fatal("Failed to load graph fixture", "path", fixture, "err", err)
		}
		store = memStore
	} else {
		poolCfg, err := pgxpool.ParseConfig(util.GetEnv("DATABASE_URL"))
		if err != nil {
			logger.Fatal("Invalid database URL", "err", err)
		}
		poolCfg.AfterConnect = func(ctx context.Context, conn *pgx.Conn) error {
			return pgxvec.RegisterTypes(ctx, conn)
		}
		pgConn, err := pgxpool.NewWithConfig(ctx, poolCfg)
		if err != nil {
			logger.Fatal("Unable to connect to database", "err", err)
		}
		defer pgConn.Close()
		store = gstore.NewGraphDBStore(pgConn)
	}

	engine, err := reason.NewEngine(reason.NewEngineParams{
		Store:    store,
		AIClient: mid.NewAIClient(),
		Config:   mid.ReasonConfigFromEnv(),
	})
	if err != nil {
		logger.Fatal("Failed to create reasoning engine", "err", err)
	}

	result, err := engine.Answer(ctx, question)
	if err != nil {
		var synthErr *reason.SynthesisError
		if errors.As(err, &synthErr) {
			logger.Error("Answer generation failed", "err", err)
			partial := synthErr.Partial
			fmt.Printf("Answer generation failed.\n\nEntities: %s\nEvidence triples: %d\n",
				strings.Join(partial.Entities, ", "), partial.TripleCount)
			os.Exit(1)
		}
		logger.Fatal("Failed to answer question", "err", err)
	}

	fmt.Println(result.Answer)
	fmt.Println()
	fmt.Printf("Confidence: %.2f\n", result.Confidence)
	if len(result.Entities) > 0 {
		fmt.Printf("Entities: %s\n", strings.Join(result.Entities, ", "))
	}
	for i, p := range result.Paths {
		fmt.Printf("Path %d: %s\n", i+1, p)
	}
	if result.RankingDegraded {
		fmt.Println("Note: semantic ranking was unavailable, paths are ordered by length.")
	}
}
