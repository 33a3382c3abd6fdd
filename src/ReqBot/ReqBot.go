package main

import (
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/sendcrew/reqbot/src/ReqBot/bot"
	"github.com/sendcrew/reqbot/src/ReqBot/config"
	"github.com/sendcrew/reqbot/src/shared/data"
	"github.com/sendcrew/reqbot/src/webserver"
)

func main() {
	mysqlDSN := os.Getenv("MYSQL_DSN")
	if mysqlDSN == "" {
		mysqlDSN = "reqbot:reqbot@tcp(127.0.0.1:3306)/reqbot?parseTime=true"
	}

	db := data.MustMySQL(mysqlDSN)
	if err := data.Migrate(db); err != nil {
		log.Fatalf("migrate: %v", err)
	}

	cfg := config.Load(db)
	if cfg.Token == "" {
		log.Fatal("discord_token not set in database or environment")
	}
	if cfg.GuildID == "" {
		log.Fatal("guild_id not set in database or environment")
	}

	rdb := data.MustRedis(cfg.RedisURL)
	provider := data.NewProvider(db)

	reqBot, err := bot.New(bot.Config{
		Token:    cfg.Token,
		GuildID:  cfg.GuildID,
		Provider: provider,
		Redis:    rdb,
	})
	if err != nil {
		log.Fatalf("Failed to create bot: %v", err)
	}

	if err := reqBot.Start(); err != nil {
		log.Fatalf("Failed to start bot: %v", err)
	}

	web := webserver.New(webserver.Config{
		JWTSecret:         cfg.JWTSecret,
		AdminPasswordHash: cfg.AdminPasswordHash,
	}, webserver.Deps{
		Requests:  reqBot.Requests(),
		Cooldowns: reqBot.Cooldowns(),
		Admission: reqBot.Admission(),
		Events:    reqBot.Events(),
	})
	go func() {
		if err := web.Run(":" + cfg.HTTPPort); err != nil {
			log.Printf("webserver: %v", err)
		}
	}()

	log.Println("Request bot is running. Press CTRL-C to exit.")

	sc := make(chan os.Signal, 1)
	signal.Notify(sc, syscall.SIGINT, syscall.SIGTERM, os.Interrupt)
	<-sc

	reqBot.Stop()
	log.Println("Request bot stopped gracefully")
}
