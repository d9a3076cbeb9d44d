package app

import (
	"time"

	"go.uber.org/fx"

	"github.com/santrihub/sppbilling/internal/app/api/server"
	"github.com/santrihub/sppbilling/internal/app/service/billing"
	"github.com/santrihub/sppbilling/internal/app/service/notification"
	"github.com/santrihub/sppbilling/internal/app/service/statistics"
	"github.com/santrihub/sppbilling/internal/app/service/subscription"
	"github.com/santrihub/sppbilling/internal/app/service/template"
	"github.com/santrihub/sppbilling/internal/app/service/trigger"
	"github.com/santrihub/sppbilling/internal/app/service/webhooklog"
	"github.com/santrihub/sppbilling/internal/platform/channels"
	"github.com/santrihub/sppbilling/internal/platform/db"
	"github.com/santrihub/sppbilling/internal/platform/gateway"
	"github.com/santrihub/sppbilling/pkg/config"
	"github.com/santrihub/sppbilling/pkg/logger"
)

const (
	DefaultStartTimeout = 15 * time.Second
	DefaultStopTimeout  = 10 * time.Second
)

var Module = fx.Options(
	logger.Module,
	config.Module,
	db.Module,
	gateway.Module,
	channels.Module,
	server.Module,
	subscription.Module,
	billing.Module,
	template.Module,
	notification.Module,
	trigger.Module,
	fx.Provide(statistics.New),
	fx.Provide(webhooklog.New),
)
