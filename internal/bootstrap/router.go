package bootstrap

import (
	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"

	fbauth "firebase.google.com/go/v4/auth"

	httpapi "github.com/atelierhq/portal-backend/internal/api/http"
	"github.com/atelierhq/portal-backend/internal/api/http/middleware"
	"github.com/atelierhq/portal-backend/internal/auth"
	"github.com/atelierhq/portal-backend/internal/clients"
	"github.com/atelierhq/portal-backend/internal/events"
	"github.com/atelierhq/portal-backend/internal/files"
	"github.com/atelierhq/portal-backend/internal/gateway"
	"github.com/atelierhq/portal-backend/internal/orders"
	"github.com/atelierhq/portal-backend/internal/projects"
	"github.com/atelierhq/portal-backend/internal/sprints"
	"github.com/atelierhq/portal-backend/internal/store"
	"github.com/atelierhq/portal-backend/internal/tasks"
	"github.com/atelierhq/portal-backend/internal/users"
)

type RouterDeps struct {
	ServiceName string
	Version     string
	DB          *pgxpool.Pool
	Redis       *redis.Client
	AuthClient  *fbauth.Client
	Presigner   *files.Presigner
	Shopify     *orders.ShopifyClient
}

func BuildRouter(dep RouterDeps) *gin.Engine {
	r := gin.Default()
	r.Use(cors.Default())
	r.Use(middleware.RequestIDMiddleware())

	healthHandler := httpapi.NewHealthHandler(dep.ServiceName, dep.Version, dep.DB)
	healthHandler.RegisterRoutes(r)

	opts := []gateway.Option{}
	if dep.Redis != nil {
		opts = append(opts, gateway.WithPublisher(events.NewPublisher(dep.Redis)))
	}
	gw := gateway.New(store.NewPostgres(dep.DB), opts...)

	userRepo := users.NewRepo(dep.DB)

	api := r.Group("/api/v1")
	api.Use(auth.WithPrincipal(dep.AuthClient, userRepo))

	clients.Register(api.Group("/clients"), gw)
	projects.Register(api.Group("/projects"), gw)
	sprints.Register(api.Group("/sprints"), gw)
	tasks.Register(api.Group("/tasks"), gw)
	files.Register(api.Group("/files"), gw, dep.Presigner)
	orders.Register(api.Group("/orders"), gw, dep.Shopify)

	return r
}
