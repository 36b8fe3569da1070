package main

import (
	"log"
	"strconv"

	"github.com/beego/beego/v2/server/web"
	"github.com/notebase/backend-go/app/bootstrap"
	"github.com/notebase/backend-go/app/router"
	"github.com/notebase/backend-go/internal/config"
	"github.com/notebase/backend-go/internal/logger"
	"go.uber.org/zap"
)

func main() {
	app, err := bootstrap.Init()
	if err != nil {
		log.Fatalf("failed to bootstrap application: %v", err)
	}
	defer app.Shutdown()

	bootstrap.SetGlobalApp(app)
	router.Init(app)

	web.BConfig.AppName = "Notebase"
	web.BConfig.CopyRequestBody = true
	if port, err := strconv.Atoi(config.AppConfig.Server.Port); err == nil {
		web.BConfig.Listen.HTTPPort = port
	}

	logger.Info("starting notebase server", zap.Int("port", web.BConfig.Listen.HTTPPort))
	web.Run()
}
