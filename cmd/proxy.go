package cmd

import (
	"log"

	"github.com/modeltap/modeltap/internal/config"
	"github.com/modeltap/modeltap/internal/proxy"
	"github.com/modeltap/modeltap/internal/storage"
	"github.com/modeltap/modeltap/internal/telemetry"
	"github.com/modeltap/modeltap/pkg/capture"
	"github.com/spf13/cobra"
)

var proxyCmd = &cobra.Command{
	Use:   "proxy",
	Short: "Start the capture proxy",
	Run: func(cmd *cobra.Command, args []string) {
		conf := config.ReadConfig()

		shutdownTelemetry := telemetry.NewProvider(conf.OTEL_EXPORTER_OTLP_ENDPOINT)
		defer shutdownTelemetry()

		appenders := []capture.Appender{storage.NewJSONLAppender()}
		if conf.CLICKHOUSE_HOST != "" {
			ch, err := storage.NewClickHouseAppender(&storage.ClickHouseConfig{
				Host:     conf.CLICKHOUSE_HOST,
				Port:     conf.CLICKHOUSE_PORT,
				Database: conf.CLICKHOUSE_DATABASE,
				Username: conf.CLICKHOUSE_USERNAME,
				Password: conf.CLICKHOUSE_PASSWORD,
				UseTLS:   conf.CLICKHOUSE_USE_TLS,
			})
			if err != nil {
				log.Fatalln("unable to connect to clickhouse:", err.Error())
			}
			appenders = append(appenders, ch)
		}

		logger := capture.NewLogger(&capture.Options{
			Router:   storage.NewRouter(conf.DATA_DIR, conf.BATCH_HEADER),
			Appender: storage.NewMultiAppender(appenders...),
		})

		s, err := proxy.New(conf, logger)
		if err != nil {
			log.Fatalln(err.Error())
		}
		s.Start()
	},
}

// Register the "proxy" command
func init() {
	rootCmd.AddCommand(proxyCmd)
}
