// Package main prints the admin dashboard view from the API, or from the
// local fallback store when the API is unreachable.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"text/tabwriter"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/moodquiz/backend/config"
	"github.com/moodquiz/backend/internal/analytics"
	"github.com/moodquiz/backend/internal/kiosk"
)

func main() {
	os.Exit(run())
}

// run returns the exit code. Deferred cleanup always runs before main exits.
func run() int {
	password := flag.String("password", "", "admin password; logs in before reading responses")
	syncFirst := flag.Bool("sync", false, "upload pending local records before reading")
	flag.Parse()

	logger := newLogger()
	defer logger.Sync()

	cfg, err := config.Load()
	if err != nil {
		logger.Error("load config", zap.Error(err))
		return 1
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	k, err := kiosk.Open(ctx, cfg, logger)
	if err != nil {
		logger.Error("open kiosk", zap.Error(err))
		return 1
	}
	defer func() {
		if err := k.Close(); err != nil {
			logger.Error("close kiosk", zap.Error(err))
		}
	}()

	online := k.Gateway.CheckHealth(ctx)
	status := "offline"
	if online {
		status = "online"
	}
	fmt.Printf("API %s: %s\n", cfg.Client.APIBaseURL, status)

	if online && *password != "" {
		token, err := k.Remote.Login(ctx, *password)
		if err != nil {
			logger.Error("admin login", zap.Error(err))
			return 1
		}
		k.Remote.SetToken(token)
	}

	if online && *syncFirst {
		res, err := k.Reconciler.Run(ctx)
		if err != nil {
			logger.Error("sync failed", zap.Error(err))
		} else {
			fmt.Printf("synced %d users, %d responses, set aside %d users, %d responses\n",
				res.SyncedUsers, res.SyncedResponses, res.RejectedUsers, res.RejectedResponses)
		}
	}

	rows, err := k.Gateway.FetchAllResponses(ctx)
	if err != nil {
		logger.Error("fetch responses", zap.Error(err))
		return 1
	}
	view := analytics.Build(rows.Rows, k.Questions.All(), cfg.Quiz.ScoreMin, cfg.Quiz.ScoreMax)

	fmt.Printf("%d students, %d questions (source: %s)\n\n", len(view.Students), view.QuestionCount, rows.Source)
	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tSTUDENT\tGRADE\tTOTAL\tPROGRESS\tLAST ACTIVE")
	for _, s := range view.Students {
		fmt.Fprintf(w, "%s\t%s %s\t%s\t%d\t%s\t%s\n",
			s.UserID, s.Avatar, s.Name, s.Grade, s.TotalScore, s.Progress,
			s.LastActive.Local().Format("2006-01-02 15:04"))
	}
	w.Flush()

	fmt.Println()
	for _, q := range view.Questions {
		fmt.Printf("Q%d %-40.40s mean %.2f over %d %v\n", q.QuestionID, q.Text, q.Mean, q.Total, q.Histogram)
	}
	return 0
}

func newLogger() *zap.Logger {
	config := zap.NewProductionConfig()
	config.Level = zap.NewAtomicLevelAt(zapcore.WarnLevel)
	config.EncoderConfig.TimeKey = "timestamp"
	config.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	logger, _ := config.Build()
	return logger
}
