package cmd

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"conference-central/announcement"
	"conference-central/database"
	"conference-central/handlers"
	"conference-central/mail"
	"conference-central/router"
	"conference-central/service"
	"conference-central/tasks"
)

const shutdownTimeout = 10 * time.Second

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP API",
	RunE:  runServe,
}

func init() {
	serveCmd.Flags().String("addr", "", "listen address (default :3000)")
	_ = v.BindPFlag("http.addr", serveCmd.Flags().Lookup("addr"))
}

func runServe(cmd *cobra.Command, _ []string) error {
	cfg, logger, err := loadConfig()
	if err != nil {
		return err
	}
	if cfg.Auth.Sign == "" {
		return errors.New("no token signing secret: set auth.sign or SIGN")
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	store, err := database.OpenStore(ctx, cfg)
	if err != nil {
		return err
	}
	defer func() {
		if err := store.Close(context.Background()); err != nil {
			logger.Warn(context.Background(), "closing store", "err", err)
		}
	}()

	sender, err := mail.NewSender(cfg.Mail, logger)
	if err != nil {
		return err
	}
	dispatcher := tasks.NewDispatcher(logger, cfg.Tasks.Workers, cfg.Tasks.QueueSize)
	dispatcher.Handle(tasks.SendConfirmationEmail, mail.ConfirmationHandler(sender))

	announcements := announcement.New(store, logger)
	svc := service.New(store, dispatcher, logger)
	app := router.New(handlers.New(svc, announcements, store, cfg.Auth.Sign, cfg.Auth.TokenTTL, logger), cfg.Auth.Sign, cfg.Auth.CronSecret)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return dispatcher.Run(gctx)
	})
	if cfg.Announcement.Interval > 0 {
		g.Go(func() error {
			return announcements.Run(gctx, cfg.Announcement.Interval)
		})
	}
	g.Go(func() error {
		logger.Info(gctx, "listening", "addr", cfg.HTTP.Addr, "store", cfg.Store.Driver)
		return app.Listen(cfg.HTTP.Addr)
	})
	g.Go(func() error {
		<-gctx.Done()
		logger.Info(context.Background(), "shutting down")
		return app.ShutdownWithTimeout(shutdownTimeout)
	})
	return g.Wait()
}
