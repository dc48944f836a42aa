// visitplan 上门访视排程服务
// 主程序入口

package main

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gorilla/mux"

	"github.com/paiban/visitplan/internal/cache"
	"github.com/paiban/visitplan/internal/config"
	"github.com/paiban/visitplan/internal/csvdata"
	"github.com/paiban/visitplan/internal/database"
	"github.com/paiban/visitplan/internal/handler"
	"github.com/paiban/visitplan/internal/metrics"
	"github.com/paiban/visitplan/internal/middleware"
	"github.com/paiban/visitplan/internal/repository"
	"github.com/paiban/visitplan/pkg/demand"
	"github.com/paiban/visitplan/pkg/distance"
	"github.com/paiban/visitplan/pkg/logger"
	"github.com/paiban/visitplan/pkg/planner"
)

// 构建信息（通过 ldflags 注入）
var (
	Version   = "dev"
	BuildTime = "unknown"
	GitCommit = "unknown"
)

// healthCheck 依赖健康检查，nil 表示无外部依赖
type healthCheck func(ctx context.Context) error

// sources 普查与距离数据来源
type sources struct {
	census   planner.CensusSource
	distance distance.Source
	health   healthCheck
	closers  []func() error
}

func (s *sources) close() {
	for _, c := range s.closers {
		if err := c(); err != nil {
			logger.Warn().Err(err).Msg("关闭数据源失败")
		}
	}
}

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "加载配置失败: %v\n", err)
		os.Exit(1)
	}

	logger.Init(logger.Config{
		Level:  cfg.App.LogLevel,
		Format: cfg.App.LogFormat,
	})
	logger.Info().
		Str("version", Version).
		Str("build_time", BuildTime).
		Str("git_commit", GitCommit).
		Str("env", cfg.App.Env).
		Msg("visitplan 排程服务")

	src, err := openSources(cfg)
	if err != nil {
		logger.Fatal().Err(err).Msg("初始化数据源失败")
	}
	defer src.close()

	cacheOpts := []distance.CacheOption{}
	if cfg.Metrics.Enabled {
		metrics.Register()
		cacheOpts = append(cacheOpts, distance.WithObserver(metrics.RecordCacheLookup))
	}
	if cfg.Redis.Enabled {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		client, err := cache.NewRedisClient(ctx, &cfg.Redis)
		cancel()
		if err != nil {
			// 快照层不可用时仍可从数据源加载
			logger.Warn().Err(err).Msg("Redis 不可用，禁用距离矩阵快照")
		} else {
			src.closers = append(src.closers, client.Close)
			cacheOpts = append(cacheOpts, distance.WithSnapshotStore(cache.NewSnapshotStore(cache.NewRedisKV(client), cfg.Redis.TTL)))
		}
	}
	distances := distance.NewCache(src.distance, cacheOpts...)

	opts, err := plannerOptions(cfg)
	if err != nil {
		logger.Fatal().Err(err).Msg("排程参数无效")
	}
	var plannerOpts []planner.Option
	if cfg.Metrics.Enabled {
		plannerOpts = append(plannerOpts, planner.WithObserver(metrics.PlannerObserver{}))
	}
	engine := planner.New(src.census, distances, opts, plannerOpts...)

	router := newRouter(cfg, handler.NewScheduleHandler(engine, cfg.BusinessLines), src.health)
	h := middleware.Chain(router,
		middleware.RequestID,
		middleware.RateLimit(cfg.API.RateLimit, cfg.API.Burst),
		middleware.CORS(cfg.API.CORS),
		middleware.Logging,
		middleware.Recovery,
	)

	addr := fmt.Sprintf(":%d", cfg.App.Port)
	server := &http.Server{
		Addr:         addr,
		Handler:      h,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: cfg.Scheduler.MaxTimeout + 30*time.Second,
		IdleTimeout:  120 * time.Second,
	}

	// 启动服务器（非阻塞）
	go func() {
		logger.Info().
			Str("addr", addr).
			Str("data_source", cfg.Data.Source).
			Bool("redis", cfg.Redis.Enabled).
			Msg("服务器启动")
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error().Err(err).Msg("服务器启动失败")
			os.Exit(1)
		}
	}()

	// 优雅关闭
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info().Msg("正在关闭服务器...")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		logger.Error().Err(err).Msg("服务器关闭失败")
		return
	}

	logger.Info().Msg("服务器已关闭")
}

// openSources 按配置选择 CSV 目录或 PostgreSQL
func openSources(cfg *config.Config) (*sources, error) {
	switch cfg.Data.Source {
	case "", "csv":
		store := csvdata.NewStore(cfg.Data.Dir, cfg.Data.CensusFile)
		return &sources{census: store, distance: store}, nil
	case "postgres":
		db, err := database.New(&cfg.Database)
		if err != nil {
			return nil, err
		}
		return &sources{
			census:   repository.NewCensusRepository(db),
			distance: repository.NewDistanceRepository(db),
			health:   db.Health,
			closers:  []func() error{db.Close},
		}, nil
	default:
		return nil, fmt.Errorf("不支持的数据来源 %q", cfg.Data.Source)
	}
}

// plannerOptions 配置转换为引擎运行参数
func plannerOptions(cfg *config.Config) (planner.Options, error) {
	proration, err := demand.ParseProration(cfg.Data.Proration)
	if err != nil {
		return planner.Options{}, err
	}
	if cfg.Batch.Strategy != "" && cfg.Batch.Strategy != config.BatchStrategySequentialIndependent {
		return planner.Options{}, fmt.Errorf("不支持的批量策略 %q", cfg.Batch.Strategy)
	}
	return planner.Options{
		DefaultTimeout:       cfg.Scheduler.DefaultTimeout,
		MaxTimeout:           cfg.Scheduler.MaxTimeout,
		MaxIterations:        cfg.Scheduler.MaxIterations,
		OptimizationLevel:    cfg.Scheduler.OptimizationLevel,
		PlateauThreshold:     cfg.Scheduler.PlateauThreshold,
		Seed:                 cfg.Scheduler.Seed,
		StrictRequiredVisits: cfg.Scheduler.StrictRequiredVisits,
		RejectOverCapacity:   cfg.Scheduler.RejectOverCapacity,
		BatchWorkers:         cfg.Batch.Workers,
		Proration:            proration,
	}, nil
}

// newRouter 注册路由
func newRouter(cfg *config.Config, sh *handler.ScheduleHandler, health healthCheck) *mux.Router {
	r := mux.NewRouter()

	// 系统端点
	r.HandleFunc("/health", func(w http.ResponseWriter, req *http.Request) {
		status, code := "ok", http.StatusOK
		body := map[string]interface{}{"service": cfg.App.Name}
		if health != nil {
			ctx, cancel := context.WithTimeout(req.Context(), 2*time.Second)
			defer cancel()
			if err := health(ctx); err != nil {
				status, code = "degraded", http.StatusServiceUnavailable
				body["database"] = err.Error()
			} else {
				body["database"] = "ok"
			}
		}
		body["status"] = status
		writeJSON(w, code, body)
	}).Methods(http.MethodGet)

	r.HandleFunc("/version", func(w http.ResponseWriter, req *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{
			"version":    Version,
			"build_time": BuildTime,
			"git_commit": GitCommit,
		})
	}).Methods(http.MethodGet)

	if cfg.Metrics.Enabled {
		r.Handle(cfg.Metrics.Path, metrics.Handler()).Methods(http.MethodGet)
	}

	// API v1
	api := r.PathPrefix("/api/v1").Subrouter()
	api.HandleFunc("/optimize", sh.Optimize).Methods(http.MethodPost)
	api.HandleFunc("/optimize/precheck", sh.Precheck).Methods(http.MethodPost)
	api.HandleFunc("/business_lines", sh.BusinessLines).Methods(http.MethodGet)
	api.HandleFunc("/constraints/library", sh.ConstraintLibrary).Methods(http.MethodGet)

	return r
}

func writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}
