package app

import (
	"net/http"

	_ "todoweb/docs"
	"todoweb/internal/auth"
	"todoweb/internal/cache"
	"todoweb/internal/config"
	"todoweb/internal/handlers"
	"todoweb/internal/repo"
	"todoweb/internal/service"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"github.com/swaggo/swag"
)

// Stores are the persistence backends selected by STORE_DRIVER.
type Stores struct {
	Users repo.UserRepo
	Todos repo.TodoRepo
}

// Setup registers all routes on the given engine.
func Setup(r *gin.Engine, cfg config.Config, stores Stores, rdb redis.Cmdable) {
	r.GET("/health", healthHandler(cfg))
	r.GET("/version", versionHandler(cfg))
	r.GET("/swagger-doc.json", swaggerDocHandler())
	r.GET("/swagger", func(c *gin.Context) { c.Redirect(http.StatusFound, "/swagger/index.html") })
	r.GET("/swagger/*any", ginSwagger.WrapHandler(
		swaggerFiles.Handler,
		ginSwagger.URL("/swagger-doc.json"),
		ginSwagger.DefaultModelsExpandDepth(-1),
	))

	ttl := cfg.Session.TTL.Duration()
	sessions := auth.NewManager(
		auth.NewStore(rdb, ttl),
		auth.NewSigner(cfg.Session.Secret, ttl),
		cfg.Session.CookieSecure,
	)
	site := r.Group("", auth.LoadSession(sessions))

	userSvc := service.NewUserService(stores.Users)
	todoCache := cache.NewTodoCache(rdb, cfg.Redis.DefaultTTL.Duration())
	todoSvc := service.NewTodoService(stores.Todos, todoCache)

	registerPageRoutes(site, handlers.NewPageHandler(todoSvc))
	registerAuthRoutes(site, handlers.NewAuthHandler(sessions, userSvc))

	protected := site.Group("", auth.RequireSession())
	registerTodoRoutes(protected, handlers.NewTodoHandler(todoSvc))
}

func healthHandler(cfg config.Config) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"ok": true, "env": cfg.App.Env})
	}
}

func versionHandler(cfg config.Config) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"version": cfg.App.Version})
	}
}

func swaggerDocHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		doc, err := swag.ReadDoc("swagger")
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
			return
		}
		c.Data(http.StatusOK, "application/json; charset=utf-8", []byte(doc))
	}
}

func registerPageRoutes(g *gin.RouterGroup, h *handlers.PageHandler) {
	g.GET("/", h.Home)
	g.GET("/login", h.LoginPage)
	g.GET("/register", h.RegisterPage)
}

func registerAuthRoutes(g *gin.RouterGroup, h *handlers.AuthHandler) {
	g.POST("/register", h.Register)
	g.POST("/login", h.Login)
	g.GET("/logout", h.Logout)
}

func registerTodoRoutes(g *gin.RouterGroup, h *handlers.TodoHandler) {
	g.GET("/todos", h.List)
	g.POST("/todos", h.Create)
	g.POST("/todos/toggle/:id", h.Toggle)
	g.DELETE("/todos/:id", h.Delete)
}
