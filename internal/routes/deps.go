package routes

import (
	"time"

	"github.com/CalmingAgent/movieNight/internal/fairness"
	"github.com/CalmingAgent/movieNight/internal/repos"
	"github.com/CalmingAgent/movieNight/internal/resolver"
	"github.com/CalmingAgent/movieNight/internal/selector"
	"github.com/CalmingAgent/movieNight/internal/trends"
	"github.com/CalmingAgent/movieNight/pkg/cache"
	"github.com/CalmingAgent/movieNight/pkg/provider"
	"github.com/CalmingAgent/movieNight/pkg/signer"
)

// Deps holds the dependencies required by the route handlers.
type Deps struct {
	Name      string
	StartedAt time.Time

	Repo     *repos.Repository
	Cache    cache.Cache
	Signer   signer.Codec
	Selector *selector.Selector
	Resolver *resolver.Resolver
	Fairness *fairness.Tracker
	Trends   *trends.Service
	Sheets   provider.SpreadsheetSource
}
