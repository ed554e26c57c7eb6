package mainboilerplate

import (
	"context"
	_ "expvar" // Import for /debug/vars
	"fmt"
	"net"
	"net/http"
	_ "net/http/pprof" // Import for /debug/pprof
	"os"
	"time"

	"github.com/pkg/errors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	log "github.com/sirupsen/logrus"
	"go.gazette.dev/protofake/task"
)

// DiagnosticsConfig configures pull-based metrics and debugging services.
type DiagnosticsConfig struct {
	Address string `long:"address" env:"ADDRESS" description:"Address at which to serve /debug/metrics, /debug/vars and /debug/pprof (eg, localhost:9090). Disabled if empty"`
}

// InitDiagnosticsAndRecover registers metrics and debugging handlers on the
// default HTTPMux. It returns a closure which should be deferred, which
// recovers a panic and attempts to log a termination message.
func InitDiagnosticsAndRecover(cfg DiagnosticsConfig) func() {
	// Package "net/http/pprof" serves /debug/pprof/.
	// Package "expvar" serves /debug/vars

	// Serve a liveness check at /debug/ready.
	http.HandleFunc("/debug/ready", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
	// Serve Prometheus metrics at /debug/metrics.
	http.Handle("/debug/metrics", promhttp.Handler())

	return func() {
		if r := recover(); r != nil {
			// Make a best effort attempt to write a termination message.
			if f, err := os.OpenFile(terminationLog, os.O_WRONLY, 0777); err == nil {
				fmt.Fprintf(f, "%+v", r)
				f.Close()
			}
			panic(r)
		}
	}
}

// QueueDiagnostics queues a task to |tasks| which serves the default HTTPMux
// at the configured Address until the Group is cancelled. It does nothing
// if no Address is configured.
func QueueDiagnostics(cfg DiagnosticsConfig, tasks *task.Group) error {
	if cfg.Address == "" {
		return nil
	}
	var ln, err = net.Listen("tcp", cfg.Address)
	if err != nil {
		return errors.Wrap(err, "listening for diagnostics")
	}
	var srv = &http.Server{Handler: http.DefaultServeMux, ReadHeaderTimeout: 10 * time.Second}

	log.WithField("addr", ln.Addr().String()).Info("serving diagnostics")

	tasks.Queue("diagnostics.Serve", func() error {
		if err := srv.Serve(ln); err != http.ErrServerClosed {
			return err
		}
		return nil
	})
	tasks.Queue("diagnostics.Shutdown", func() error {
		<-tasks.Context().Done()

		var ctx, cancel = context.WithTimeout(context.Background(), time.Second)
		defer cancel()
		return srv.Shutdown(ctx)
	})
	return nil
}

// Must panics if |err| is non-nil, supplying |msg| and |extra| as
// formatter and fields of the generated panic.
func Must(err error, msg string, extra ...interface{}) {
	if err == nil {
		return
	}
	var f = log.Fields{"err": err}
	for i := 0; i+1 < len(extra); i += 2 {
		f[extra[i].(string)] = extra[i+1]
	}
	log.WithFields(f).Panic(msg)
}

// terminationLog is the location to write a termination message for
// Kubernetes to retrieve.
const terminationLog = "/dev/termination-log"
