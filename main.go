package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/sudoom/webtlo/api"
	"github.com/sudoom/webtlo/config"
	"github.com/sudoom/webtlo/database"
	"github.com/sudoom/webtlo/engine"
	"github.com/sudoom/webtlo/forum"
	"github.com/sudoom/webtlo/logging"
	"github.com/sudoom/webtlo/scheduler"

	"github.com/spf13/viper"
	"golang.org/x/time/rate"
)

// forumCallInterval is the courtesy pacing between consecutive forum
// writes. Not configurable, not a correctness mechanism.
const forumCallInterval = 500 * time.Millisecond

func main() {
	once := flag.Bool("once", false, "run a single report synchronization and exit")
	flag.Parse()

	config.LoadConfig()
	logging.Init(logging.Config{
		Level:  viper.GetString("log.level"),
		Format: viper.GetString("log.format"),
	})

	cfg, err := config.Get()
	if err != nil {
		logging.Error().Err(err).Msg("invalid configuration")
		os.Exit(1)
	}

	store, err := database.InitDB(cfg.DBPath)
	if err != nil {
		logging.Error().Err(err).Msg("failed to open the local database")
		os.Exit(1)
	}
	defer store.Close()

	limiter := rate.NewLimiter(rate.Every(forumCallInterval), 1)
	eng := engine.New(cfg,
		store,
		forum.NewClient(cfg.Forum, cfg.User, limiter),
		api.NewClient(cfg.API, cfg.User),
	)

	if *once {
		scheduler.RunOnce(context.Background(), eng)
		return
	}

	sched, err := scheduler.Start(cfg, eng)
	if err != nil {
		logging.Error().Err(err).Msg("failed to start the report schedule")
		os.Exit(1)
	}

	logging.Info().Msg("webtlo report engine is running, press CTRL-C to exit")
	sc := make(chan os.Signal, 1)
	signal.Notify(sc, syscall.SIGINT, syscall.SIGTERM, os.Interrupt)
	<-sc

	sched.Stop()
}
