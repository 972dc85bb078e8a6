package main

import (
	"context"
	"os"

	"github.com/gofiber/fiber/v2/log"

	"github.com/wichananm65/blog-app/internal/config"
	"github.com/wichananm65/blog-app/internal/database"
	"github.com/wichananm65/blog-app/internal/mail"
	"github.com/wichananm65/blog-app/internal/server"
)

func main() {
	cfg := config.Load()
	if cfg.IsProd() && cfg.JWTSecret == "" {
		log.Fatal("JWT_SECRET is not set")
	}
	if err := os.MkdirAll(cfg.MediaDir+"/users", 0o755); err != nil {
		log.Fatalf("create media dir: %v", err)
	}

	repos := server.InMemoryRepositories()
	if cfg.DatabaseURL != "" {
		ctx := context.Background()
		db, err := database.Open(ctx, cfg.DatabaseURL)
		if err != nil {
			log.Fatal(err)
		}
		defer db.Close()

		if err := database.Migrate(ctx, db); err != nil {
			log.Fatal(err)
		}
		repos = server.PostgresRepositories(db)
	} else {
		log.Warn("DATABASE_URL is not set, using in-memory storage")
	}

	app, err := server.New(cfg, server.Deps{Repositories: repos, Mailer: mail.NewLogMailer()})
	if err != nil {
		log.Fatal(err)
	}

	log.Infow("starting blog", "addr", cfg.Addr, "env", cfg.Env)
	if err := app.Listen(cfg.Addr); err != nil {
		log.Fatal(err)
	}
}
