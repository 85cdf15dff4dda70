package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog/log"

	"github.com/CalmingAgent/movieNight/internal/config"
	"github.com/CalmingAgent/movieNight/internal/fairness"
	"github.com/CalmingAgent/movieNight/internal/jobs"
	"github.com/CalmingAgent/movieNight/internal/migrate"
	"github.com/CalmingAgent/movieNight/internal/repos"
	"github.com/CalmingAgent/movieNight/internal/resolver"
	"github.com/CalmingAgent/movieNight/internal/routes"
	"github.com/CalmingAgent/movieNight/internal/selector"
	"github.com/CalmingAgent/movieNight/internal/server"
	"github.com/CalmingAgent/movieNight/internal/trends"
	"github.com/CalmingAgent/movieNight/pkg/cache"
	pkgdb "github.com/CalmingAgent/movieNight/pkg/db"
	"github.com/CalmingAgent/movieNight/pkg/gtrends"
	"github.com/CalmingAgent/movieNight/pkg/provider"
	"github.com/CalmingAgent/movieNight/pkg/sheets"
	"github.com/CalmingAgent/movieNight/pkg/signer"
	"github.com/CalmingAgent/movieNight/pkg/tmdb"
	"github.com/CalmingAgent/movieNight/pkg/youtube"
)

func main() {
	_ = godotenv.Load() // best-effort
	cfg := config.FromEnv()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	pool, err := pkgdb.Connect(ctx, cfg.DatabaseURL)
	if err != nil {
		log.Fatal().Err(err).Msg("db connect failed")
	}
	defer pool.Close()

	if err := migrate.Up(cfg.DatabaseURL); err != nil {
		log.Fatal().Err(err).Msg("migrations failed")
	}

	var c cache.Cache
	if addr := cfg.ValkeyAddr; addr != "" {
		vc, err := cache.NewValkey(addr, cfg.ValkeyPassword)
		if err != nil {
			log.Error().Err(err).Msg("valkey connect failed, using in-memory cache")
			c = cache.NewInMemory()
		} else {
			c = vc
		}
	} else {
		c = cache.NewInMemory()
	}

	repository := repos.New(pool)

	var chain []provider.Searcher
	if cfg.YouTubeAPIKey != "" {
		yt := youtube.New(cfg.YouTubeAPIKey)
		yt.Client.Timeout = cfg.ProviderTimeout
		chain = append(chain, yt)
	}
	if cfg.TMDBAPIKey != "" {
		tm := tmdb.New(cfg.TMDBAPIKey)
		tm.Client.Timeout = cfg.ProviderTimeout
		chain = append(chain, tm)
	}
	if len(chain) == 0 {
		log.Warn().Msg("no trailer providers configured; resolution disabled")
	}

	res := resolver.New(repository.Movies, repository.Reviews, chain, cfg.ResolveConcurrency, repos.ErrNotFound)
	if err := repository.KV.Set(ctx, "provider_chain_version", res.ChainVersion()); err != nil {
		log.Error().Err(err).Msg("record chain version failed")
	}
	trendSvc := trends.New(repository.Trends, gtrends.New())
	tracker := fairness.New(repository.Nights, repository.Users, cfg.CooldownNights, cfg.RampNights, cfg.BiasThreshold)
	sel := selector.New(repository.Movies, repository.Nights, trendSvc, tracker)

	var sheetSrc provider.SpreadsheetSource
	if cfg.SheetsAPIKey != "" && cfg.SpreadsheetID != "" {
		sheetSrc = sheets.New(cfg.SheetsAPIKey, cfg.SpreadsheetID)
	}

	api := server.New(routes.Deps{
		Name:      "movienight",
		StartedAt: time.Now().UTC(),
		Repo:      repository,
		Cache:     c,
		Signer:    signer.NewHMAC(cfg.CursorSecret),
		Selector:  sel,
		Resolver:  res,
		Fairness:  tracker,
		Trends:    trendSvc,
		Sheets:    sheetSrc,
	})

	if len(chain) > 0 {
		jobs.StartTrailerSweep(ctx, res, 6*time.Hour)
	}
	jobs.StartTrendWarm(ctx, trendSvc, repository)
	jobs.StartFairnessAudit(ctx, tracker, repository)
	jobs.StartSheetSync(ctx, sheetSrc, repository)

	go func() {
		log.Info().Str("addr", cfg.Addr).Msg("listening")
		if err := server.StartHTTP(ctx, cfg.Addr, api.Router()); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("server error")
		}
	}()

	<-ctx.Done()
	_, _ = fmt.Fprintln(os.Stderr, "shutting down...")
	time.Sleep(200 * time.Millisecond)
}
