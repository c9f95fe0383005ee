// Command mdns-announce publishes CNAME and A records over multicast DNS.
//
//	mdns-announce -register myprinter -register name=svc,ip=192.0.2.5,unique=1
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/apex/log"
	"github.com/apex/log/handlers/cli"
	"github.com/apex/log/handlers/json"
	"github.com/apex/log/handlers/text"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/fx"

	"github.com/bino7/announce"
	"github.com/bino7/announce/avahi"
	"github.com/bino7/announce/responder"
)

const registerUsage = "register a record in the mDNS responder (default: register a CNAME for the local hostname)"

// registerFlags all append to the same record list.
var registerFlags = []string{
	"register",
	"avahi-register",
	"bonjour-register",
	"bonjour-register-record",
	"bonjour-rr",
}

type stringList []string

func (l *stringList) String() string {
	return strings.Join(*l, " ")
}

func (l *stringList) Set(v string) error {
	*l = append(*l, v)
	return nil
}

type settings struct {
	records       []string
	hostname      string
	backend       string
	retryInterval time.Duration
	logLevel      string
	logFormat     string
	metricsListen string
}

func main() {
	if err := run(os.Args[1:]); err != nil {
		fmt.Fprintf(os.Stderr, "mdns-announce: %v\n", err)
		os.Exit(1)
	}
}

func run(args []string) error {
	st, err := parseSettings(args)
	if errors.Is(err, flag.ErrHelp) {
		return nil
	}
	if err != nil {
		return err
	}

	app := fx.New(
		fx.NopLogger,
		fx.Supply(st),
		fx.Provide(
			newLogger,
			newRegistry,
			newMetrics,
			newDialer,
		),
		fx.Invoke(registerMetricsServer, registerPublisher),
	)
	if err := app.Err(); err != nil {
		return err
	}

	startCtx, cancel := context.WithTimeout(context.Background(), fx.DefaultTimeout)
	defer cancel()
	if err := app.Start(startCtx); err != nil {
		return err
	}

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
	<-sig

	stopCtx, cancelStop := context.WithTimeout(context.Background(), fx.DefaultTimeout)
	defer cancelStop()
	return app.Stop(stopCtx)
}

func parseSettings(args []string) (*settings, error) {
	fs := flag.NewFlagSet("mdns-announce", flag.ContinueOnError)

	var records stringList
	for _, name := range registerFlags {
		fs.Var(&records, name, registerUsage)
	}
	var (
		configFile    = fs.String("config", "", "YAML configuration file")
		hostname      = fs.String("hostname", "", "local hostname used as the default CNAME target (default: os hostname)")
		backend       = fs.String("backend", "avahi", "mDNS responder: avahi or builtin")
		retryInterval = fs.Duration("retry-interval", time.Second, "pause after a failed responder poll")
		logLevel      = fs.String("log-level", "info", "log level (debug, info, warn, error)")
		logFormat     = fs.String("log-format", "cli", "log format (cli, text, json)")
		metricsListen = fs.String("metrics-listen", "", "address to serve prometheus metrics on, disabled when empty")
	)
	if err := fs.Parse(args); err != nil {
		return nil, err
	}

	st := &settings{
		hostname:      *hostname,
		backend:       *backend,
		retryInterval: *retryInterval,
		logLevel:      *logLevel,
		logFormat:     *logFormat,
		metricsListen: *metricsListen,
	}
	if *configFile == "" {
		st.records = records
		return st, nil
	}

	fc, err := announce.LoadFileConfig(*configFile)
	if err != nil {
		return nil, err
	}
	set := map[string]bool{}
	fs.Visit(func(f *flag.Flag) { set[f.Name] = true })

	if fc.Hostname != "" && !set["hostname"] {
		st.hostname = fc.Hostname
	}
	if fc.Backend != "" && !set["backend"] {
		st.backend = fc.Backend
	}
	if fc.RetryInterval > 0 && !set["retry-interval"] {
		st.retryInterval = fc.RetryInterval
	}
	if fc.LogLevel != "" && !set["log-level"] {
		st.logLevel = fc.LogLevel
	}
	if fc.LogFormat != "" && !set["log-format"] {
		st.logFormat = fc.LogFormat
	}
	if fc.MetricsListen != "" && !set["metrics-listen"] {
		st.metricsListen = fc.MetricsListen
	}
	st.records = append(append([]string{}, fc.Register...), records...)
	return st, nil
}

func newLogger(st *settings) (log.Interface, error) {
	level, err := log.ParseLevel(st.logLevel)
	if err != nil {
		return nil, err
	}

	var handler log.Handler
	switch st.logFormat {
	case "cli":
		handler = cli.New(os.Stderr)
	case "text":
		handler = text.New(os.Stderr)
	case "json":
		handler = json.New(os.Stderr)
	default:
		return nil, fmt.Errorf("unknown log format %q", st.logFormat)
	}
	return &log.Logger{Handler: handler, Level: level}, nil
}

func newRegistry() *prometheus.Registry {
	return prometheus.NewRegistry()
}

func newMetrics(reg *prometheus.Registry) (*announce.Metrics, error) {
	return announce.NewMetrics(reg)
}

func newDialer(st *settings, logger log.Interface) (announce.Dialer, error) {
	switch st.backend {
	case "avahi":
		return avahi.Dialer(&avahi.Config{Logger: logger}), nil
	case "builtin":
		return responder.Dialer(&responder.Config{Logger: logger}), nil
	default:
		return nil, fmt.Errorf("unknown backend %q", st.backend)
	}
}

func registerMetricsServer(lc fx.Lifecycle, st *settings, reg *prometheus.Registry, logger log.Interface) {
	if st.metricsListen == "" {
		return
	}
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))
	srv := &http.Server{Handler: mux, ReadHeaderTimeout: 5 * time.Second}

	lc.Append(fx.Hook{
		OnStart: func(context.Context) error {
			ln, err := net.Listen("tcp", st.metricsListen)
			if err != nil {
				return err
			}
			logger.WithField("addr", ln.Addr().String()).Info("serving metrics")
			go func() {
				if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
					logger.WithError(err).Warn("metrics server stopped")
				}
			}()
			return nil
		},
		OnStop: srv.Shutdown,
	})
}

// registerPublisher announces the records on start. The keepalive loop runs
// until the application stops; records are left for the responder to expire.
func registerPublisher(lc fx.Lifecycle, st *settings, logger log.Interface, metrics *announce.Metrics, dial announce.Dialer) {
	ctx, cancel := context.WithCancel(context.Background())
	lc.Append(fx.Hook{
		OnStart: func(context.Context) error {
			_, err := announce.Publish(ctx, &announce.Config{
				Records:       st.records,
				Hostname:      st.hostname,
				Dial:          dial,
				RetryInterval: st.retryInterval,
				Logger:        logger,
				Metrics:       metrics,
			})
			return err
		},
		OnStop: func(context.Context) error {
			cancel()
			return nil
		},
	})
}
