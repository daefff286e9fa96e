// Command seed fills a store with demo users, follows, posts, likes and
// comments through the service layer, so every domain rule applies.
//
// Usage:
//
//	go run ./cmd/seed                       # store from DB_DRIVER / DB_PATH / DATABASE_URL
//	go run ./cmd/seed -users 20 -posts 5
//	go run ./cmd/seed -ephemeral            # throwaway Postgres container, kept until Ctrl+C
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"math/rand/v2"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/sakif/snapgram/internal/apperror"
	"github.com/sakif/snapgram/internal/auth"
	"github.com/sakif/snapgram/internal/config"
	"github.com/sakif/snapgram/internal/dockerdb"
	"github.com/sakif/snapgram/internal/model"
	"github.com/sakif/snapgram/internal/repository"
	"github.com/sakif/snapgram/internal/server"
	"github.com/sakif/snapgram/internal/service"
)

var captions = []string{
	"golden hour", "weekend hike", "coffee first", "new desk setup", "city lights",
	"beach day", "rainy window", "street food", "sunday market", "late night code",
}

type options struct {
	users     int
	posts     int
	password  string
	ephemeral bool
	seed      uint64
}

func main() {
	var opts options
	flag.IntVar(&opts.users, "users", 8, "number of demo users")
	flag.IntVar(&opts.posts, "posts", 3, "posts per user")
	flag.StringVar(&opts.password, "password", "password123", "password for every demo user")
	flag.BoolVar(&opts.ephemeral, "ephemeral", false, "seed a disposable Postgres container and keep it running until interrupted")
	flag.Uint64Var(&opts.seed, "seed", 1, "random seed for follows, likes and comments")
	flag.Parse()

	logger := slog.New(slog.NewTextHandler(os.Stderr, nil))

	if err := run(opts, logger); err != nil {
		logger.Error("seed failed", slog.String("error", err.Error()))
		os.Exit(1)
	}
}

func run(opts options, logger *slog.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Load()
	if err != nil {
		return err
	}

	if opts.ephemeral {
		pg, err := dockerdb.Start(ctx, dockerdb.DefaultConfig(), logger)
		if err != nil {
			return err
		}
		defer pg.Stop()

		cfg.DBDriver = config.DriverPostgres
		cfg.DatabaseURL = pg.DSN()
	} else if cfg.DBDriver == config.DriverSQLite {
		if err := os.MkdirAll(filepath.Dir(cfg.DBPath), 0o755); err != nil {
			return fmt.Errorf("creating database directory: %w", err)
		}
	}

	store, err := server.OpenStore(ctx, cfg)
	if err != nil {
		return err
	}
	defer store.Close()

	if err := seed(ctx, store, opts, logger); err != nil {
		return err
	}

	if opts.ephemeral {
		fmt.Printf("DATABASE_URL=%s\n", cfg.DatabaseURL)
		logger.Info("seeded ephemeral database, press Ctrl+C to remove it")
		<-ctx.Done()
	}
	return nil
}

func seed(ctx context.Context, store repository.Store, opts options, logger *slog.Logger) error {
	// The seed never issues tokens to anyone, but AuthService needs a
	// token service to finish signup.
	tokens, err := auth.NewTokenService("seed-only-secret-not-for-serving", 0)
	if err != nil {
		return err
	}

	authSvc := service.NewAuthService(store, tokens, auth.NewPasswordService(), logger)
	posts := service.NewPostService(store, logger)
	engagement := service.NewEngagementService(store, logger)
	users := service.NewUserService(store, store, logger)

	rng := rand.New(rand.NewPCG(opts.seed, opts.seed))

	var accounts []*model.User
	for i := 1; i <= opts.users; i++ {
		username := fmt.Sprintf("demo%02d", i)
		res, err := authSvc.Signup(ctx, service.SignupInput{
			Username: username,
			Email:    username + "@snapgram.local",
			Password: opts.password,
			FullName: fmt.Sprintf("Demo User %d", i),
		})
		if errors.Is(err, apperror.ErrConflict) {
			return fmt.Errorf("user %s already exists; seed an empty database", username)
		}
		if err != nil {
			return err
		}
		accounts = append(accounts, res.User)
	}

	// Each user follows roughly half of the others.
	follows := 0
	for _, follower := range accounts {
		for _, subject := range accounts {
			if follower.ID == subject.ID || rng.IntN(2) == 0 {
				continue
			}
			if err := users.Follow(ctx, subject.ID, follower.ID); err != nil {
				return err
			}
			follows++
		}
	}

	var created []*model.Post
	for _, author := range accounts {
		for j := 0; j < opts.posts; j++ {
			caption := captions[rng.IntN(len(captions))]
			imageURL := fmt.Sprintf("https://picsum.photos/seed/%s-%d/1080/1080", author.Username, j)
			p, err := posts.Create(ctx, author.ID, imageURL, caption)
			if err != nil {
				return err
			}
			created = append(created, p)
		}
	}

	likes, comments := 0, 0
	for _, p := range created {
		for _, u := range accounts {
			switch rng.IntN(4) {
			case 0:
				if _, err := engagement.Like(ctx, p.ID, u.ID); err != nil {
					return err
				}
				likes++
			case 1:
				text := fmt.Sprintf("nice one @%s", u.Username)
				if _, err := engagement.AddComment(ctx, p.ID, u.ID, text); err != nil {
					return err
				}
				comments++
			}
		}
	}

	logger.Info("seed complete",
		slog.Int("users", len(accounts)),
		slog.Int("follows", follows),
		slog.Int("posts", len(created)),
		slog.Int("likes", likes),
		slog.Int("comments", comments),
	)
	return nil
}
