// adapterd runs the synchronous data-access adapter as a standalone daemon.
package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/dogmatiq/dodeca/logging"
	adapter "github.com/eclipse-tractusx/tractusx-edc-sub007"
	"github.com/eclipse-tractusx/tractusx-edc-sub007/connector"
	"github.com/eclipse-tractusx/tractusx-edc-sub007/persistence"
	"github.com/eclipse-tractusx/tractusx-edc-sub007/persistence/boltpersistence"
	"github.com/eclipse-tractusx/tractusx-edc-sub007/persistence/memorypersistence"
	"github.com/eclipse-tractusx/tractusx-edc-sub007/persistence/sqlpersistence"
	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	// These SQL drivers are selectable via the --store flag.
	_ "github.com/jackc/pgx/v4/stdlib"
	_ "github.com/mattn/go-sqlite3"
)

func main() {
	ctx, cancel := signal.NotifyContext(
		context.Background(),
		os.Interrupt,
		syscall.SIGTERM,
	)
	defer cancel()

	if err := newCommand().ExecuteContext(ctx); err != nil {
		if !errors.Is(err, context.Canceled) {
			fmt.Fprintln(os.Stderr, err)
		}
		os.Exit(1)
	}
}

func newCommand() *cobra.Command {
	var (
		listen            string
		connectorURL      string
		connectorAPIKey   string
		store             string
		dsn               string
		retryLimit        uint
		reconcileInterval time.Duration
		resultTimeout     time.Duration
		concurrency       int
		debug             bool
	)

	cmd := &cobra.Command{
		Use:          "adapterd",
		Short:        "Serve synchronous access to assets in a dataspace",
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			logger := logging.DefaultLogger
			if debug {
				logger = logging.DebugLogger
			}

			if connectorURL == "" {
				return errors.New("the --connector-url flag (or ADAPTER_CONNECTOR_URL) is required")
			}

			provider, err := newProvider(store, dsn)
			if err != nil {
				return err
			}

			engine := adapter.New(
				adapter.WithConnector(&connector.HTTPClient{
					BaseURL: connectorURL,
					APIKey:  connectorAPIKey,
					HTTP:    &http.Client{Timeout: 30 * time.Second},
				}),
				adapter.WithPersistence(provider),
				adapter.WithListenAddress(listen),
				adapter.WithRetryLimit(retryLimit),
				adapter.WithReconcileInterval(reconcileInterval),
				adapter.WithResultTimeout(resultTimeout),
				adapter.WithConcurrencyLimit(concurrency),
				adapter.WithLogger(logger),
			)

			logging.Log(
				logger,
				"listening on %s, using the connector at %s",
				listen,
				connectorURL,
			)

			return engine.Run(cmd.Context())
		},
	}

	// Flag defaults may also be supplied via the environment, including a
	// .env file if one is present in the working directory.
	godotenv.Load()

	cmd.Flags().StringVar(
		&listen,
		"listen",
		env("ADAPTER_LISTEN", adapter.DefaultListenAddress),
		"TCP address for the HTTP listener",
	)
	cmd.Flags().StringVar(
		&connectorURL,
		"connector-url",
		os.Getenv("ADAPTER_CONNECTOR_URL"),
		"base URL of the connector's management API",
	)
	cmd.Flags().StringVar(
		&connectorAPIKey,
		"connector-api-key",
		os.Getenv("ADAPTER_CONNECTOR_API_KEY"),
		"API key for the connector's management API",
	)
	cmd.Flags().StringVar(
		&store,
		"store",
		env("ADAPTER_STORE", "memory"),
		"persistence driver, one of memory, bolt, postgres or sqlite",
	)
	cmd.Flags().StringVar(
		&dsn,
		"dsn",
		os.Getenv("ADAPTER_DSN"),
		"data-source name for the persistence driver, a file path for bolt",
	)
	cmd.Flags().UintVar(
		&retryLimit,
		"retry-limit",
		5,
		"number of failures after which a request is abandoned",
	)
	cmd.Flags().DurationVar(
		&reconcileInterval,
		"reconcile-interval",
		30*time.Second,
		"interval at which waiting requests are checked against the connector",
	)
	cmd.Flags().DurationVar(
		&resultTimeout,
		"result-timeout",
		adapter.DefaultResultTimeout,
		"duration a synchronous request waits for its result",
	)
	cmd.Flags().IntVar(
		&concurrency,
		"concurrency",
		adapter.DefaultConcurrencyLimit,
		"number of queued requests that are retried concurrently",
	)
	cmd.Flags().BoolVar(
		&debug,
		"debug",
		os.Getenv("ADAPTER_DEBUG") != "",
		"log debug messages",
	)

	return cmd
}

// newProvider returns the persistence provider selected by the --store flag.
func newProvider(store, dsn string) (persistence.Provider, error) {
	switch store {
	case "memory":
		return &memorypersistence.Provider{}, nil

	case "bolt":
		if dsn == "" {
			return nil, errors.New("the bolt store requires --dsn to name a database file")
		}

		return &boltpersistence.FileProvider{
			Path: dsn,
		}, nil

	case "postgres":
		return &sqlpersistence.DSNProvider{
			DriverName: "pgx",
			DSN:        dsn,
		}, nil

	case "sqlite":
		return &sqlpersistence.DSNProvider{
			DriverName: "sqlite3",
			DSN:        dsn,
		}, nil

	default:
		return nil, fmt.Errorf("unrecognized persistence driver: %s", store)
	}
}

// env returns the value of the named environment variable, or def if it is
// empty.
func env(name, def string) string {
	if v := os.Getenv(name); v != "" {
		return v
	}

	return def
}
