// Command fakechat serves a scripted live chat API for local runs.
//
// Point the service at it with FANSCORE_API_BASE_URL and any api key:
//
//	fakechat -addr :8099 -day 12 -names ALICE,BRUNO,CARLA
//	FANSCORE_API_BASE_URL=http://localhost:8099 FANSCORE_API_KEYS=dev FANSCORE_VIDEO_ID=dev fanscore
package main

import (
	"context"
	"flag"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/okian/fanscore/internal/fakechat"
	"github.com/okian/fanscore/pkg/logger"
)

const (
	defaultAddr            = ":8099"
	defaultDay             = 1
	defaultEventsPerPage   = 5
	defaultPollingInterval = 2 * time.Second
	readHeaderTimeout      = 5 * time.Second
	shutdownTimeout        = 5 * time.Second
)

func main() {
	var (
		addr     = flag.String("addr", defaultAddr, "Listen address")
		day      = flag.Int("day", defaultDay, "Show day advertised in the broadcast title")
		names    = flag.String("names", "", "Comma-separated cast names mentioned in generated messages")
		perPage  = flag.Int("events", defaultEventsPerPage, "Events per chat page")
		interval = flag.Duration("interval", defaultPollingInterval, "Polling interval suggested to clients")
	)
	flag.Parse()

	if err := logger.Init(); err != nil {
		os.Stderr.WriteString("failed to initialize logging: " + err.Error() + "\n")
		return
	}
	log := logger.Get().Named("fakechat")

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	opts := []fakechat.Option{
		fakechat.WithDay(*day),
		fakechat.WithEventsPerPage(*perPage),
		fakechat.WithPollingInterval(*interval),
		fakechat.WithLogger(log),
	}
	if *names != "" {
		opts = append(opts, fakechat.WithNames(splitNames(*names)))
	}

	srv := &http.Server{
		Addr:              *addr,
		Handler:           fakechat.New(opts...).Handler(),
		ReadHeaderTimeout: readHeaderTimeout,
	}

	go func() {
		log.Info(ctx, "serving fake live chat", logger.String("addr", *addr))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			os.Stderr.WriteString("server failed: " + err.Error() + "\n")
		}
	}()

	<-ctx.Done()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	_ = srv.Shutdown(shutdownCtx)
}

func splitNames(s string) []string {
	parts := strings.Split(s, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if trimmed := strings.TrimSpace(p); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}
