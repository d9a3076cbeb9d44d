package server

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"go.uber.org/fx"
	"go.uber.org/zap"

	"github.com/santrihub/sppbilling/docs"
	"github.com/santrihub/sppbilling/internal/app/api/handlers"
	mw "github.com/santrihub/sppbilling/internal/app/api/middleware"
	billsvc "github.com/santrihub/sppbilling/internal/app/service/billing"
	notifsvc "github.com/santrihub/sppbilling/internal/app/service/notification"
	"github.com/santrihub/sppbilling/internal/app/service/statistics"
	subsvc "github.com/santrihub/sppbilling/internal/app/service/subscription"
	tmplsvc "github.com/santrihub/sppbilling/internal/app/service/template"
	triggersvc "github.com/santrihub/sppbilling/internal/app/service/trigger"
	"github.com/santrihub/sppbilling/internal/app/service/webhooklog"
	cfgpkg "github.com/santrihub/sppbilling/pkg/config"
	metrics "github.com/santrihub/sppbilling/pkg/metrics"
)

func newEngine() *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	// Add request tracing middleware only; request logger & access log are attached per group in registerRoutes
	r.Use(mw.TraceMiddleware())
	return r
}

type routeDeps struct {
	fx.In

	Log      *zap.SugaredLogger
	Cfg      *cfgpkg.Config
	Subs     *subsvc.Service
	Billing  *billsvc.Service
	Tmpl     *tmplsvc.Service
	Notif    *notifsvc.Service
	Trigger  *triggersvc.Service
	Stats    *statistics.Service
	Webhooks *webhooklog.Service
}

func registerRoutes(r *gin.Engine, d routeDeps) {
	// Prometheus metrics
	if d.Cfg != nil && d.Cfg.MetricsAddr != "" {
		p := metrics.NewPrometheus(metrics.NewPrometheusOptions{
			ReqCntURLLabelMappingFn: func(c *gin.Context) string {
				if fp := c.FullPath(); fp != "" {
					return fp
				}
				return c.Request.URL.Path
			},
			Logger: d.Log,
		})
		p.SetListenAddress(d.Cfg.MetricsAddr)
		p.Use(r)

		d.Log.Infow("metrics started", "addr", d.Cfg.MetricsAddr)
	}

	// Public group: request logger + access log
	pub := r.Group("/")
	pub.Use(mw.RequestLoggerMiddleware(d.Log), mw.AccessLogMiddleware())
	handlers.RegisterHealthRoutes(pub)
	// Swagger UI
	docs.SwaggerInfo.BasePath = "/"
	pub.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))

	// Gateway and provider callbacks authenticate by payload signature, not bearer token
	webhooks := r.Group("/webhooks")
	webhooks.Use(mw.RequestLoggerMiddleware(d.Log), mw.AccessLogMiddleware())
	handlers.RegisterWebhookRoutes(webhooks, d.Billing, d.Webhooks, d.Notif, d.Cfg, d.Log)

	// Admin APIs behind JWT
	admin := r.Group("/api/v1/admin")
	admin.Use(mw.RequestLoggerMiddleware(d.Log), mw.AccessLogMiddleware(),
		mw.AdminJWTMiddleware(d.Cfg.Auth.AdminJWTSecret))
	handlers.RegisterSubscriptionRoutes(admin, d.Subs)
	handlers.RegisterBillingRoutes(admin, d.Billing, d.Stats)
	handlers.RegisterTemplateRoutes(admin, d.Tmpl)
	handlers.RegisterNotificationRoutes(admin, d.Notif)

	// Scheduler and upstream-system endpoints behind the shared cron token
	triggers := r.Group("/api/v1/triggers")
	triggers.Use(mw.RequestLoggerMiddleware(d.Log), mw.AccessLogMiddleware(),
		mw.CronAuthMiddleware(d.Cfg.Auth.CronToken))
	handlers.RegisterTriggerRoutes(triggers, d.Trigger)

	events := r.Group("/api/v1/events")
	events.Use(mw.RequestLoggerMiddleware(d.Log), mw.AccessLogMiddleware(),
		mw.CronAuthMiddleware(d.Cfg.Auth.CronToken))
	handlers.RegisterEventRoutes(events, d.Trigger)
}

func runServer(lc fx.Lifecycle, log *zap.SugaredLogger, cfg *cfgpkg.Config, r *gin.Engine) {
	addr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	srv := &http.Server{Addr: addr, Handler: r, ReadHeaderTimeout: 5 * time.Second}

	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			log.Infow("starting HTTP server", "addr", addr)
			go func() {
				if err := srv.ListenAndServe(); err != nil {
					log.Errorf("server error: %v", err)
					panic(err)
				}
			}()
			return nil
		},
		OnStop: func(ctx context.Context) error {
			log.Infow("stopping HTTP server")
			shutdownCtx, cancel := context.WithTimeout(ctx, 120*time.Second)
			defer cancel()
			return srv.Shutdown(shutdownCtx)
		},
	})
}

var Module = fx.Options(
	fx.Provide(newEngine),
	fx.Invoke(registerRoutes),
	fx.Invoke(runServer),
)
