package system

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/julianstephens/habitquest/internal/cli"
	"github.com/julianstephens/habitquest/internal/constants"
	"github.com/julianstephens/habitquest/internal/remote"
)

type ServeCmd struct {
	Addr      string  `help:"Listen address." default:"${remote_addr}"`
	RateLimit float64 `help:"Requests per second allowed per client (0 disables limiting)." default:"${rate_limit}"`
	Burst     int     `help:"Burst size for the per-client rate limiter." default:"${rate_burst}"`
}

// Run serves the remote store API over this instance's database until interrupted.
func (c *ServeCmd) Run(ctx *cli.Context) error {
	backend := remote.NewSimulated(ctx.Store, remote.WithLatency(0), remote.WithClock(ctx.SessionClock()))
	srv := remote.NewServer(backend, remote.WithRateLimit(c.RateLimit, c.Burst))

	sigCtx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	fmt.Printf("Serving habitquest remote store on http://%s (Ctrl+C to stop)\n", c.Addr)
	fmt.Printf("  Point clients at it with --remote=%s\n", c.Addr)
	return srv.ListenAndServe(sigCtx, c.Addr)
}

// Vars are the kong interpolation variables for ServeCmd defaults.
func Vars() map[string]string {
	return map[string]string{
		"remote_addr": constants.DefaultRemoteAddr,
		"rate_limit":  fmt.Sprint(constants.RateLimitPerSecond),
		"rate_burst":  fmt.Sprint(constants.RateLimitBurst),
	}
}
