package cli

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"trivia-service/internal/config"
	"trivia-service/internal/domain"
	"trivia-service/internal/game"
	"trivia-service/internal/infra/memory"
	pgloader "trivia-service/internal/infra/postgres"
	redisinfra "trivia-service/internal/infra/redis"
	transport "trivia-service/internal/transport/http"
	"github.com/jackc/pgx/v4/pgxpool"
	"github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"
)

// NewStartCmd builds the CLI subcommand to start the server.
func NewStartCmd(configPath, port *string) *cobra.Command {
	return &cobra.Command{
		Use:   "start",
		Short: "Start the trivia game server",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServer(cmd.Context(), *configPath, *port)
		},
	}
}

func runServer(ctx context.Context, configPath, portFlag string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}

	if cfg.Postgres.URL != "" {
		if err := runMigrationsWithConfig(ctx, cfg); err != nil {
			return err
		}
	}

	finalPort := portFlag
	if finalPort == "" {
		finalPort = cfg.Server.Port
	}
	if finalPort == "" {
		finalPort = "4000"
	}

	var redisClient *redis.Client
	if cfg.Redis.Addr != "" {
		redisClient = redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
	}

	var pool *pgxpool.Pool
	if cfg.Postgres.URL != "" {
		pool, err = pgxpool.Connect(ctx, cfg.Postgres.URL)
		if err != nil {
			return err
		}
	}

	var loader memory.BankLoader = memory.NewStaticBankLoader(sampleBanks())
	if pool != nil {
		loader = pgloader.NewBankLoader(pool)
	}

	bankTTL := config.TTLDuration(cfg.Bank.TTL, 10*time.Minute)
	var banks transport.BankRepository
	if redisClient != nil {
		banks = redisinfra.NewBankRepository(redisClient, loader, bankTTL)
	} else {
		banks = memory.NewBankRepository(loader, bankTTL)
	}

	tokenTTL := config.TTLDuration(cfg.Game.TokenTTL, game.TokenMaxAge*time.Second)
	var tokens game.TokenStore
	if cfg.Game.Reconnect {
		if redisClient != nil {
			tokens = redisinfra.NewTokenStore(redisClient, tokenTTL)
		} else {
			tokens = memory.NewTokenStore(tokenTTL)
		}
	}

	scoresInterval := config.TTLDuration(cfg.Game.ScoresInterval, 0)
	session := game.NewSession(game.Options{
		Reconnect:         cfg.Game.Reconnect,
		Tokens:            tokens,
		ScoresEveryVerify: scoresInterval <= 0,
	})

	heartbeat := config.TTLDuration(cfg.Game.Heartbeat, 30*time.Second)
	wsHandler := transport.NewWSHandler(session, heartbeat)
	bankHandler := transport.NewBankHandler(banks)

	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("ok"))
	})
	mux.HandleFunc("/ws/host", wsHandler.ServeHost)
	mux.HandleFunc("/ws/verify", wsHandler.ServeVerifier)
	mux.HandleFunc("/ws/player", wsHandler.ServePlayer)
	mux.HandleFunc("GET /banks/{id}", bankHandler.ServeBank)

	runCtx, cancelRun := context.WithCancel(ctx)
	defer cancelRun()
	go wsHandler.RunHeartbeat(runCtx)
	if scoresInterval > 0 {
		go func() {
			ticker := time.NewTicker(scoresInterval)
			defer ticker.Stop()
			for {
				select {
				case <-runCtx.Done():
					return
				case <-ticker.C:
					session.BroadcastScores()
				}
			}
		}()
	}

	// No Read/WriteTimeout: they would cut long-lived websocket
	// connections out from under the players.
	server := &http.Server{
		Addr:              ":" + finalPort,
		Handler:           mux,
		ReadHeaderTimeout: 15 * time.Second,
	}

	go func() {
		log.Printf("starting trivia service on :%s", finalPort)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Printf("failed to start server: %v", err)
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)

	select {
	case <-stop:
		log.Println("shutting down server...")
	case <-ctx.Done():
		log.Println("context canceled, shutting down server...")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return server.Shutdown(shutdownCtx)
}

// sampleBanks provides a minimal demo board; production deployments
// load banks from Postgres instead.
func sampleBanks() map[string]domain.QuestionBank {
	return map[string]domain.QuestionBank{
		"demo": {
			ID:         "demo",
			Categories: []string{"Science", "History"},
			Questions: [][]domain.BankQuestion{
				{
					{ID: "sci100", Text: "This metal is the most abundant in the Earth's crust.", Points: 100},
					{ID: "sci200", Text: "This planet has the shortest day in the solar system.", Points: 200},
				},
				{
					{ID: "his100", Text: "This wall fell in 1989.", Points: 100},
					{ID: "his200", Text: "This empire was ruled from Constantinople.", Points: 200},
				},
			},
		},
	}
}
