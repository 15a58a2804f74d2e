package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/joho/godotenv"

	"clan-economy-bot/handlers"
	"clan-economy-bot/platform"
	"clan-economy-bot/services"
	"clan-economy-bot/storage"
	"clan-economy-bot/utils"
	"clan-economy-bot/workers"
)

func main() {
	if err := godotenv.Load(); err != nil {
		log.Println("⚠️  No .env file found, reading environment variables directly")
	}

	token := os.Getenv("DISCORD_TOKEN")
	if token == "" {
		log.Fatal("DISCORD_TOKEN environment variable not set")
	}

	prefix := os.Getenv("COMMAND_PREFIX")
	if prefix == "" {
		prefix = "$"
	}

	cfg := services.DefaultConfig()
	if v := os.Getenv("COINFLIP_WIN_PROB"); v != "" {
		p, err := strconv.ParseFloat(v, 64)
		if err != nil || p < 0 || p > 1 {
			log.Fatalf("invalid COINFLIP_WIN_PROB %q", v)
		}
		cfg.CoinflipWinProb = p
	}
	if v := os.Getenv("CLAN_BASE_GOAL"); v != "" {
		g, err := strconv.ParseInt(v, 10, 64)
		if err != nil || g < 1 {
			log.Fatalf("invalid CLAN_BASE_GOAL %q", v)
		}
		cfg.ClanBaseGoal = g
	}
	if v := os.Getenv("MAX_BET_SLOTS"); v != "" {
		n, err := strconv.ParseInt(v, 10, 64)
		if err != nil || n < 1 {
			log.Fatalf("invalid MAX_BET_SLOTS %q", v)
		}
		cfg.MaxBetSlots = n
	}
	if v := os.Getenv("MAX_BET_COINFLIP"); v != "" {
		n, err := strconv.ParseInt(v, 10, 64)
		if err != nil || n < 1 {
			log.Fatalf("invalid MAX_BET_COINFLIP %q", v)
		}
		cfg.MaxBetCoinflip = n
	}
	if v := os.Getenv("SLOT_SYMBOLS"); v != "" {
		symbols := strings.Split(v, ",")
		if len(symbols) < 2 {
			log.Fatalf("SLOT_SYMBOLS needs at least 2 symbols, got %q", v)
		}
		cfg.SlotSymbols = symbols
	}
	if v := os.Getenv("INVITE_RETENTION_HOURS"); v != "" {
		h, err := strconv.Atoi(v)
		if err != nil || h < 1 {
			log.Fatalf("invalid INVITE_RETENTION_HOURS %q", v)
		}
		cfg.InviteRetention = time.Duration(h) * time.Hour
	}

	sweepInterval := time.Hour
	if v := os.Getenv("SWEEP_INTERVAL"); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil || d < time.Minute {
			log.Fatalf("invalid SWEEP_INTERVAL %q", v)
		}
		sweepInterval = d
	}

	adminUsers := map[string]bool{}
	for _, id := range strings.Split(os.Getenv("ADMIN_USERS"), ",") {
		if id = strings.TrimSpace(id); id != "" {
			adminUsers[id] = true
		}
	}

	store, err := openStore()
	if err != nil {
		log.Fatal("failed to open state store: ", err)
	}

	discord, err := platform.NewDiscord(token)
	if err != nil {
		log.Fatal("failed to create discord client: ", err)
	}

	econ, err := services.NewEconomyService(cfg, store)
	if err != nil {
		log.Fatal("failed to load economy state: ", err)
	}
	gamble := services.NewGambleService(cfg, econ)
	clans, err := services.NewClanService(cfg, store, econ, discord)
	if err != nil {
		log.Fatal("failed to load clan state: ", err)
	}
	invites, err := services.NewInviteService(cfg, store, econ, discord)
	if err != nil {
		log.Fatal("failed to load invite state: ", err)
	}

	dispatcher := handlers.NewDispatcher(prefix, econ, gamble, clans, discord, adminUsers)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := discord.Start(ctx, platform.Events{
		OnMessage: dispatcher.Dispatch,
		OnMemberJoin: func(ctx context.Context, guildID, userID string) {
			if err := invites.HandleJoin(ctx, guildID, userID); err != nil {
				log.Printf("⚠️  Invite attribution failed for %s in %s: %v", userID, guildID, err)
			}
		},
		OnGuildReady: func(ctx context.Context, guildID string) {
			if err := invites.PrimeSnapshot(ctx, guildID); err != nil {
				log.Printf("⚠️  Failed to prime invite snapshot for %s: %v", guildID, err)
			}
		},
	}); err != nil {
		log.Fatal("failed to connect to discord: ", err)
	}
	defer discord.Close()

	stopSweeper, err := invites.StartRetentionScheduler(ctx, sweepInterval)
	if err != nil {
		log.Fatal("failed to start invite sweep scheduler: ", err)
	}
	defer stopSweeper()

	backupInterval := 6 * time.Hour
	if v := os.Getenv("BACKUP_INTERVAL"); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil || d < time.Minute {
			log.Fatalf("invalid BACKUP_INTERVAL %q", v)
		}
		backupInterval = d
	}
	if enabled, err := utils.InitR2(); err != nil {
		log.Fatal("failed to initialize R2 client: ", err)
	} else if enabled {
		go workers.PollBackups(ctx, store, backupInterval)
	} else {
		log.Println("⚠️  R2 credentials not set — state backups disabled")
	}

	adminAddr := os.Getenv("ADMIN_ADDR")
	if adminAddr == "" {
		adminAddr = ":5200"
	}
	serviceToken := os.Getenv("GAME_SERVICE_TOKEN")
	if serviceToken == "" {
		log.Fatal("GAME_SERVICE_TOKEN environment variable not set")
	}

	app := fiber.New(fiber.Config{DisableStartupMessage: true})
	handlers.SetupAdminRoutes(app, &handlers.AdminAPI{Econ: econ, Clans: clans}, serviceToken)
	go func() {
		if err := app.Listen(adminAddr); err != nil {
			log.Printf("Admin server error: %v", err)
		}
	}()

	log.Printf("✅ Command prefix: %s", prefix)
	log.Printf("✅ Admin API running on %s", adminAddr)
	log.Printf("✅ Invite sweep running (every %s, retention %s)", sweepInterval, cfg.InviteRetention)

	<-ctx.Done()
	log.Println("Shutting down...")
	if err := app.Shutdown(); err != nil {
		log.Printf("Admin server shutdown error: %v", err)
	}
}

// openStore picks the persistence backend. DATA_BACKEND=postgres keeps state
// documents in a jsonb table; the default writes one JSON file per document
// under DATA_DIR.
func openStore() (storage.DocumentStore, error) {
	switch backend := os.Getenv("DATA_BACKEND"); backend {
	case "postgres":
		dsn := os.Getenv("DATABASE_URL")
		if dsn == "" {
			log.Fatal("DATABASE_URL environment variable not set")
		}
		log.Println("✅ Using postgres state store")
		return storage.NewGormStore(dsn)
	case "", "file":
		dir := os.Getenv("DATA_DIR")
		if dir == "" {
			dir = "./data"
		}
		log.Printf("✅ Using file state store at %s", dir)
		return storage.NewFileStore(dir)
	default:
		log.Fatalf("unknown DATA_BACKEND %q (want file or postgres)", backend)
		return nil, nil
	}
}
