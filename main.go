package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"planbot/app/client/caldav"
	"planbot/app/client/todoist"
	"planbot/app/client/whatsapp"
	"planbot/app/config"
	"planbot/app/service/assistant"
	"planbot/app/service/digest"
	"planbot/app/service/engine"
	"planbot/app/service/intent"
	"planbot/app/service/queue"
	"planbot/app/service/status"
	"planbot/app/util/mylog"
	"planbot/app/util/ratelimit"
	"planbot/app/web"

	"github.com/gofiber/fiber/v2/log"
	"github.com/samber/do"
)

func main() {
	di := do.New()
	defer di.Shutdown()
	defer log.Info("Waiting for services to finish...")

	mylog.Preinit()

	appCtx, cancel := context.WithCancel(context.Background())
	defer cancel()
	do.ProvideValue(di, appCtx)

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config load failed: %v", err)
	}
	do.ProvideValue(di, cfg)

	if err = mylog.Init(cfg); err != nil {
		log.Fatalf("logging init failed: %v", err)
	}

	do.ProvideValue(di, newLimiter(cfg))

	do.Provide(di, whatsapp.NewClient)
	do.Provide(di, caldav.NewClient)
	do.Provide(di, todoist.NewClient)
	do.Provide(di, intent.New)
	do.Provide(di, assistant.New)
	do.Provide(di, queue.New)
	do.Provide(di, engine.New)
	do.Provide(di, status.New)
	do.Provide(di, digest.New)
	do.Provide(di, web.New)

	slog.Info("Service started")

	go func() {
		sigint := make(chan os.Signal, 1)
		signal.Notify(sigint, os.Interrupt)
		<-sigint

		log.Info("Shutting down...")

		cancel()
	}()

	do.MustInvoke[*digest.Service](di)

	go do.MustInvoke[*engine.Service](di).Run(appCtx)
	go do.MustInvoke[*web.Server](di).Run(appCtx)

	<-appCtx.Done()
}

func newLimiter(cfg *config.Config) *ratelimit.Limiter {
	limiter := ratelimit.New()

	limiter.SetBudget(intent.ProviderKey, ratelimit.Budget{
		Requests: cfg.Limits.OpenAIRPM,
		Tokens:   cfg.Limits.OpenAITPM,
	})
	limiter.SetBudget("caldav", ratelimit.Budget{Requests: cfg.Limits.ConnectorRPM})
	limiter.SetBudget("todoist", ratelimit.Budget{Requests: cfg.Limits.ConnectorRPM})

	return limiter
}
