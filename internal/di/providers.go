// Package di wires the application graph. Providers are plain constructors;
// wire generates InitializeApp from them.
package di

import (
	"context"
	"fmt"
	nethttp "net/http"
	"time"

	"FundPulse/internal/domain/models"
	"FundPulse/internal/handler/api"
	"FundPulse/internal/joblock"
	"FundPulse/internal/marketday"
	"FundPulse/internal/predictor"
	"FundPulse/internal/repository"
	"FundPulse/internal/scheduler"
	"FundPulse/internal/service/ratelimit"
	"FundPulse/internal/source"
	"FundPulse/internal/store"
	"FundPulse/internal/universe"
	"FundPulse/internal/usecase"
	pkgch "FundPulse/pkg/clickhouse"
	"FundPulse/pkg/config"
	xhttp "FundPulse/pkg/http"
	applogger "FundPulse/pkg/logger"
	"FundPulse/pkg/metrics"
	"FundPulse/pkg/server"
)

// ProvideLogger creates the structured logger.
func ProvideLogger(cfg *config.Config) (*applogger.Logger, error) {
	return applogger.New(&applogger.Config{
		Level:  cfg.Logging.Level,
		Format: cfg.Logging.Format,
		Output: cfg.Logging.Output,
	})
}

// ProvideMetrics creates the Prometheus recorder.
func ProvideMetrics() *metrics.Recorder {
	return metrics.New()
}

// ProvideLocation loads the market timezone.
func ProvideLocation(cfg *config.Config) (*time.Location, error) {
	loc, err := time.LoadLocation(cfg.Market.Location)
	if err != nil {
		return nil, fmt.Errorf("market location: %w", err)
	}
	return loc, nil
}

// ProvideResolver builds the effective-day resolver from the NAV cutoff.
func ProvideResolver(cfg *config.Config, loc *time.Location) (*marketday.Resolver, error) {
	h, m, err := config.ParseClock(cfg.Market.NavCutoff)
	if err != nil {
		return nil, err
	}
	return marketday.New(loc, h, m), nil
}

// ProvideSession builds the trading session window.
func ProvideSession(cfg *config.Config, loc *time.Location) (*marketday.Session, error) {
	oh, om, err := config.ParseClock(cfg.Market.SessionOpen)
	if err != nil {
		return nil, err
	}
	ch, cm, err := config.ParseClock(cfg.Market.SessionClose)
	if err != nil {
		return nil, err
	}
	return marketday.NewSession(loc, oh, om, ch, cm), nil
}

// ProvideRedisMirror connects to Redis when enabled; nil otherwise.
func ProvideRedisMirror(cfg *config.Config) (*store.RedisMirror, error) {
	if !cfg.Store.Redis.Enabled {
		return nil, nil
	}
	mirror, err := store.NewRedisMirror(
		cfg.Store.Redis.Addr,
		cfg.Store.Redis.Password,
		cfg.Store.Redis.DB,
		cfg.Store.Redis.Prefix,
	)
	if err != nil {
		return nil, fmt.Errorf("redis mirror: %w", err)
	}
	return mirror, nil
}

// ProvideStore builds the two-tier quote store.
func ProvideStore(cfg *config.Config, mirror *store.RedisMirror, l *applogger.Logger, rec *metrics.Recorder) *store.Store {
	var m store.Mirror
	if mirror != nil {
		m = mirror
	}
	return store.New(store.NewFileStore(cfg.Store.SnapshotPath), m, l, rec)
}

// ProvideHTTPClient is the shared client for all upstream fetchers. Per
// attempt deadlines come from the chain, so no client-level timeout.
func ProvideHTTPClient() *nethttp.Client {
	return &nethttp.Client{}
}

// ProvideYahoo creates the Yahoo chart fetcher shared by the equity chain
// and the benchmark refresher.
func ProvideYahoo(client *nethttp.Client, cfg *config.Config) *source.YahooFetcher {
	return source.NewYahooFetcher(client, cfg.Sources.YahooChart)
}

// Chains bundles the per-kind source chains.
type Chains struct {
	Fund   *source.Chain
	Equity *source.Chain
}

// ProvideChains builds the fund and equity chains in configured priority
// order.
func ProvideChains(cfg *config.Config, client *nethttp.Client, yahoo *source.YahooFetcher, l *applogger.Logger, rec *metrics.Recorder) (*Chains, error) {
	build := func(order []string) (*source.Chain, error) {
		fetchers := make([]source.Fetcher, 0, len(order))
		for _, name := range order {
			switch models.Source(name) {
			case models.SourceTefasHTML:
				fetchers = append(fetchers, source.NewTefasPageFetcher(client, cfg.Sources.TefasPage))
			case models.SourceTefasAPI:
				fetchers = append(fetchers, source.NewTefasAPIFetcher(client, cfg.Sources.TefasAPI))
			case models.SourceYahoo:
				fetchers = append(fetchers, yahoo)
			default:
				return nil, fmt.Errorf("unknown source %q", name)
			}
		}
		return source.NewChain(cfg.Sources.Timeout, l, rec, fetchers...), nil
	}

	fund, err := build(cfg.Sources.FundOrder)
	if err != nil {
		return nil, fmt.Errorf("fund chain: %w", err)
	}
	equity, err := build(cfg.Sources.EquityOrder)
	if err != nil {
		return nil, fmt.Errorf("equity chain: %w", err)
	}
	return &Chains{Fund: fund, Equity: equity}, nil
}

// ProvideUniverse creates the master list loader.
func ProvideUniverse(cfg *config.Config, l *applogger.Logger) *universe.Loader {
	return universe.New(cfg.DailyJob.UniversePath, cfg.DailyJob.UniverseTTL, l)
}

// ProvideClickHouse connects ClickHouse when history is enabled; nil
// otherwise.
func ProvideClickHouse(cfg *config.Config) (*pkgch.Client, error) {
	if !cfg.History.Enabled {
		return nil, nil
	}
	client, err := pkgch.NewClient(
		pkgch.WithHost(cfg.History.ClickHouse.Host),
		pkgch.WithPort(cfg.History.ClickHouse.Port),
		pkgch.WithDatabase(cfg.History.ClickHouse.Database),
		pkgch.WithCredentials(cfg.History.ClickHouse.User, cfg.History.ClickHouse.Password),
		pkgch.WithTimeouts(cfg.History.ClickHouse.DialTimeout, cfg.History.ClickHouse.ReadTimeout, cfg.History.ClickHouse.WriteTimeout),
	)
	if err != nil {
		return nil, fmt.Errorf("clickhouse client: %w", err)
	}
	return client, nil
}

// ProvideHistory creates the quote history sink; nil when disabled.
func ProvideHistory(ch *pkgch.Client, cfg *config.Config, l *applogger.Logger) (*repository.CHQuoteHistory, error) {
	if ch == nil {
		return nil, nil
	}
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return repository.NewCHQuoteHistory(ctx, ch, cfg.History.Table, l)
}

// ProvideQuoteService builds the staleness-aware read path.
func ProvideQuoteService(
	st *store.Store,
	chains *Chains,
	resolver *marketday.Resolver,
	uni *universe.Loader,
	history *repository.CHQuoteHistory,
	l *applogger.Logger,
) *usecase.QuoteService {
	var sink repository.HistorySink
	if history != nil {
		sink = history
	}
	return usecase.NewQuoteService(st, chains.Fund, chains.Equity, resolver, uni, sink, l)
}

// ProvideMarketData creates the benchmark snapshot holder.
func ProvideMarketData(yahoo *source.YahooFetcher, cfg *config.Config, l *applogger.Logger) *usecase.MarketData {
	return usecase.NewMarketData(yahoo, cfg.Market.Benchmarks, cfg.Market.SnapshotPath, l)
}

// ProvideBlender creates the prediction blender.
func ProvideBlender(cfg *config.Config, session *marketday.Session, l *applogger.Logger) *predictor.Blender {
	return predictor.New(predictor.Options{
		HysteresisThreshold: cfg.Prediction.HysteresisThreshold,
		JitterAmplitude:     cfg.Prediction.JitterAmplitude,
		OpenTTL:             cfg.Prediction.OpenTTL,
		Classes:             cfg.Prediction.Classes,
	}, session, l)
}

// ProvidePredictionService builds the prediction read path.
func ProvidePredictionService(
	quotes *usecase.QuoteService,
	market *usecase.MarketData,
	blender *predictor.Blender,
	uni *universe.Loader,
	cfg *config.Config,
	l *applogger.Logger,
) *usecase.PredictionService {
	return usecase.NewPredictionService(quotes, market, blender, uni,
		cfg.Market.IndexCode, cfg.Market.FXCode, l)
}

// ProvideLimiter creates the fetch throttle.
func ProvideLimiter() *ratelimit.Limiter {
	return ratelimit.New()
}

// JobCoordinator bundles the daily job lock with its state reader.
type JobCoordinator struct {
	Lock  usecase.JobLock
	State api.JobStateFn
}

// ProvideJobCoordinator picks the Redis lock when a mirror is connected so
// sibling hosts coordinate, falling back to the file lock.
func ProvideJobCoordinator(cfg *config.Config, mirror *store.RedisMirror, l *applogger.Logger) *JobCoordinator {
	if mirror != nil {
		rl := joblock.NewRedisLock(mirror.Client(), cfg.Store.Redis.Prefix, cfg.DailyJob.StaleAfter, l)
		return &JobCoordinator{Lock: rl, State: rl.State}
	}
	fl := joblock.NewFileLock(cfg.DailyJob.StatePath, cfg.DailyJob.LockPath, cfg.DailyJob.StaleAfter, l)
	return &JobCoordinator{
		Lock: fl,
		State: func(context.Context) (models.DailyJobState, error) {
			return fl.State()
		},
	}
}

// ProvideDailyJob builds the once-per-day refresh job.
func ProvideDailyJob(
	quotes *usecase.QuoteService,
	market *usecase.MarketData,
	coord *JobCoordinator,
	resolver *marketday.Resolver,
	limiter *ratelimit.Limiter,
	cfg *config.Config,
	l *applogger.Logger,
	rec *metrics.Recorder,
) *usecase.DailyJob {
	return usecase.NewDailyJob(quotes, market, coord.Lock, resolver, limiter,
		cfg.Sources.RateLimit.Burst, cfg.Sources.RateLimit.RefillPerSec, l, rec)
}

// ProvideScheduler builds the cron scheduler.
func ProvideScheduler(
	loc *time.Location,
	job *usecase.DailyJob,
	market *usecase.MarketData,
	cfg *config.Config,
	l *applogger.Logger,
) *scheduler.Scheduler {
	return scheduler.New(loc, job, market, cfg.Market.RefreshInterval, cfg.DailyJob.CatchupDelay, l)
}

// ProvideHandler builds the API handler.
func ProvideHandler(
	l *applogger.Logger,
	quotes *usecase.QuoteService,
	preds *usecase.PredictionService,
	market *usecase.MarketData,
	job *usecase.DailyJob,
	coord *JobCoordinator,
	history *repository.CHQuoteHistory,
	session *marketday.Session,
) xhttp.Handler {
	return api.NewHandler(l, quotes, preds, market, job, coord.State, history, session)
}

// ProvideHTTPServer builds the Echo server.
func ProvideHTTPServer(handler xhttp.Handler, cfg *config.Config, l *applogger.Logger) *xhttp.Server {
	return xhttp.NewServer(handler,
		xhttp.WithPort(cfg.Server.Port),
		xhttp.WithTimeouts(cfg.Server.ReadTimeout, cfg.Server.WriteTimeout, cfg.Server.ShutdownTimeout),
		xhttp.WithMetrics(cfg.Metrics.Enabled, cfg.Metrics.Path),
		xhttp.WithLogger(l),
	)
}

// ProvideApp assembles the application.
func ProvideApp(
	cfg *config.Config,
	l *applogger.Logger,
	st *store.Store,
	market *usecase.MarketData,
	sched *scheduler.Scheduler,
	httpServer *xhttp.Server,
	mirror *store.RedisMirror,
	ch *pkgch.Client,
) *server.App {
	return server.New(cfg, l, st, market, sched, httpServer, mirror, ch)
}
