package main

import (
	"context"
	"log"
	"os/signal"
	"syscall"

	"github.com/mymmrac/telego"

	"earnquick-bot/internal/bot"
	"earnquick-bot/internal/config"
	"earnquick-bot/internal/database"
	"earnquick-bot/internal/ledger"
	"earnquick-bot/internal/membership"
	"earnquick-bot/internal/repository"
	"earnquick-bot/internal/session"
	"earnquick-bot/internal/worker"
)

func main() {
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("Could not load config: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	db, err := database.ConnectPostgres(cfg)
	if err != nil {
		log.Fatalf("Could not connect to database: %v", err)
	}

	rdb, err := database.ConnectRedis(ctx, cfg)
	if err != nil {
		log.Fatalf("Could not connect to redis: %v", err)
	}
	defer rdb.Close()

	tgBot, err := telego.NewBot(cfg.BotToken)
	if err != nil {
		log.Fatalf("Could not create bot: %v", err)
	}
	me, err := tgBot.GetMe(ctx)
	if err != nil {
		log.Fatalf("Could not fetch bot identity: %v", err)
	}
	log.Printf("Authorized on account %s", me.Username)

	users := repository.NewUsers(db)
	sender := bot.NewSender(tgBot)

	router := bot.NewRouter(bot.RouterDeps{
		Ledger:      ledger.New(users, cfg.Points, cfg.ClaimLocation),
		Users:       users,
		Membership:  membership.NewChannelChecker(tgBot, cfg.ChannelUsername),
		Sessions:    session.NewRedisStore(rdb, cfg.WithdrawPromptTTL),
		Operator:    sender,
		Broadcaster: worker.NewBroadcaster(users, sender),
		AdminID:     cfg.AdminID,
		BotUsername: me.Username,
		InviteLink:  cfg.ChannelInviteLink,
	})

	b := bot.NewBot(tgBot, router, bot.Links{
		Promo:  cfg.PromoLink,
		Task:   cfg.TaskLink,
		Invite: cfg.ChannelInviteLink,
	})

	log.Println("Service started successfully")
	if err := b.Start(ctx); err != nil {
		log.Fatalf("Bot stopped: %v", err)
	}
	log.Println("Shutdown")
}
