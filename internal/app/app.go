package app

import (
	"context"
	"errors"
	"fmt"
	"time"

	"todoweb/internal/config"
	"todoweb/internal/migrations"
	"todoweb/internal/repo"
	"todoweb/internal/web"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.uber.org/zap"
)

type App struct {
	cfg    config.Config
	log    *zap.Logger
	db     *pgxpool.Pool
	mongo  *mongo.Client
	redis  *redis.Client
	router *gin.Engine
}

func New(ctx context.Context, cfg config.Config, log *zap.Logger) (*App, error) {
	a := &App{cfg: cfg, log: log}

	stores, err := a.openStores(ctx)
	if err != nil {
		_ = a.Close(ctx)
		return nil, err
	}

	rdb, err := newRedis(ctx, cfg.Redis)
	if err != nil {
		_ = a.Close(ctx)
		return nil, err
	}
	a.redis = rdb

	a.router, err = newRouter(cfg, stores, rdb, log)
	if err != nil {
		_ = a.Close(ctx)
		return nil, err
	}
	return a, nil
}

func (a *App) Router() *gin.Engine {
	return a.router
}

func (a *App) Close(ctx context.Context) error {
	var errs []error
	if a.redis != nil {
		errs = append(errs, a.redis.Close())
	}
	if a.db != nil {
		a.db.Close()
	}
	if a.mongo != nil {
		errs = append(errs, a.mongo.Disconnect(ctx))
	}
	return errors.Join(errs...)
}

func (a *App) openStores(ctx context.Context) (Stores, error) {
	switch a.cfg.Store.Driver {
	case config.DriverMongo:
		client, err := newMongo(ctx, a.cfg.Mongo.URI)
		if err != nil {
			return Stores{}, err
		}
		a.mongo = client
		db := client.Database(a.cfg.Mongo.Database)
		if err := repo.EnsureMongoIndexes(ctx, db); err != nil {
			return Stores{}, err
		}
		return Stores{Users: repo.NewMongoUserRepo(db), Todos: repo.NewMongoTodoRepo(db)}, nil

	case config.DriverMemory:
		a.log.Warn("STORE_DRIVER=memory: data is lost on restart")
		return Stores{Users: repo.NewMemoryUserRepo(), Todos: repo.NewMemoryTodoRepo()}, nil

	default:
		db, err := newPostgres(ctx, a.cfg.PG.DSN)
		if err != nil {
			return Stores{}, err
		}
		a.db = db
		if err := migrations.Up(ctx, a.cfg.PG.DSN); err != nil {
			return Stores{}, err
		}
		return Stores{Users: repo.NewPGUserRepo(db), Todos: repo.NewPGTodoRepo(db)}, nil
	}
}

func newPostgres(ctx context.Context, dsn string) (*pgxpool.Pool, error) {
	cfg, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, fmt.Errorf("pg parse config: %w", err)
	}
	cfg.MaxConns = 10
	cfg.MinConns = 2
	cfg.MaxConnIdleTime = 5 * time.Minute
	cfg.MaxConnLifetime = 30 * time.Minute

	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("pg connect: %w", err)
	}
	pingCtx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()
	if err := pool.Ping(pingCtx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("pg ping: %w", err)
	}

	return pool, nil
}

func newMongo(ctx context.Context, uri string) (*mongo.Client, error) {
	client, err := mongo.Connect(ctx, options.Client().ApplyURI(uri))
	if err != nil {
		return nil, fmt.Errorf("mongo connect: %w", err)
	}
	pingCtx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx, nil); err != nil {
		_ = client.Disconnect(ctx)
		return nil, fmt.Errorf("mongo ping: %w", err)
	}
	return client, nil
}

func newRedis(ctx context.Context, cfg config.RedisConfig) (*redis.Client, error) {
	rdb := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	pingCtx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()

	if err := rdb.Ping(pingCtx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("redis ping: %w", err)
	}

	return rdb, nil
}

func newRouter(cfg config.Config, stores Stores, rdb redis.Cmdable, log *zap.Logger) (*gin.Engine, error) {
	r := gin.New()
	r.Use(requestLogger(log), recovery())

	r.Use(cors.New(cors.Config{
		AllowOrigins:  []string{"*"},
		AllowMethods:  []string{"GET", "POST", "DELETE", "OPTIONS", "HEAD"},
		AllowHeaders:  []string{"Origin", "Content-Type", "Accept", "Cookie"},
		ExposeHeaders: []string{"Content-Length", "Content-Type", requestIDHeader},
		MaxAge:        12 * time.Hour,
	}))

	tmpl, err := web.Templates()
	if err != nil {
		return nil, fmt.Errorf("parse templates: %w", err)
	}
	r.SetHTMLTemplate(tmpl)

	Setup(r, cfg, stores, rdb)
	return r, nil
}
