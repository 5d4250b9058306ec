package main

import (
	"context"
	"fmt"
	"log"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"ecoscale/adapters/kafkabus"
	"ecoscale/adapters/oracle/ols"
	"ecoscale/adapters/postgres"
	"ecoscale/adapters/tabular"
	"ecoscale/api"
	"ecoscale/app"
	"ecoscale/domain/energy"
	"ecoscale/internal/config"
	"ecoscale/internal/testkit"
	"ecoscale/ports"
)

func main() {
	// .env is optional; real deployments configure through the environment.
	_ = godotenv.Load()

	rootCmd := &cobra.Command{
		Use:   "ecoscale",
		Short: "EcoScale detects and prices abnormal building energy usage",
	}

	rootCmd.AddCommand(
		newEtlCmd(),
		newDetectCmd(),
		newServeCmd(),
		newDemoCmd(),
	)

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newEtlCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "etl",
		Short: "Validate and merge the raw meter, metadata and weather tables",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load()
			if err != nil {
				return err
			}
			source := tabular.NewMergedSource(
				cfg.Paths.MeterFile, cfg.Paths.MetadataFile, cfg.Paths.WeatherFile)
			frame, err := source.Load(cmd.Context())
			if err != nil {
				return err
			}
			spans := energy.EntitySpans(frame)
			log.Printf("[ETL] merged table ready: %d readings, %d buildings, %d columns",
				frame.Rows(), len(spans), len(frame.Columns))
			return nil
		},
	}
}

func newDetectCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "detect",
		Short: "Run the full detection pipeline and publish the anomaly report",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load()
			if err != nil {
				return err
			}
			source := tabular.NewMergedSource(
				cfg.Paths.MeterFile, cfg.Paths.MetadataFile, cfg.Paths.WeatherFile)

			sinks, cleanup, err := buildSinks(cmd.Context(), cfg)
			if err != nil {
				return err
			}
			defer cleanup()

			service := app.NewDetectionService(
				source, ols.New(), app.ParamsFromConfig(cfg.Pipeline), sinks...)
			result, err := service.Run(cmd.Context())
			if err != nil {
				return err
			}
			printTopRecords(result.Report, 10)
			return nil
		},
	}
}

func newServeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Serve the latest persisted anomaly report over HTTP",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load()
			if err != nil {
				return err
			}
			if cfg.Database.URL == "" {
				return fmt.Errorf("serve requires DATABASE_URL (the report is read from postgres)")
			}
			db, err := postgres.Connect(cfg.Database.URL)
			if err != nil {
				return err
			}
			defer db.Close()

			repo := postgres.NewReportRepository(db)
			return api.NewServer(repo).Start(cfg.Server.Port)
		},
	}
}

func newDemoCmd() *cobra.Command {
	var serve bool

	cmd := &cobra.Command{
		Use:   "demo",
		Short: "Run the pipeline on a synthetic portfolio with planted waste",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load()
			if err != nil {
				return err
			}

			generator := testkit.NewPortfolioGenerator(testkit.DefaultPortfolioConfig())
			frame, planted := generator.Generate()
			log.Printf("[Demo] synthetic portfolio: %d readings, %d planted waste events",
				frame.Rows(), len(planted))

			store := app.NewMemoryReportStore()
			service := app.NewDetectionService(
				frameSource{frame}, ols.New(), app.ParamsFromConfig(cfg.Pipeline), store)
			result, err := service.Run(cmd.Context())
			if err != nil {
				return err
			}
			printTopRecords(result.Report, 10)

			if serve {
				return api.NewServer(store).Start(cfg.Server.Port)
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&serve, "serve", false, "serve the demo report over HTTP afterwards")
	return cmd
}

// frameSource adapts an in-memory frame to the reading-source port
type frameSource struct {
	frame *energy.Frame
}

func (s frameSource) Load(ctx context.Context) (*energy.Frame, error) {
	return s.frame, nil
}

// buildSinks wires every configured report destination: the CSV file is
// always written; postgres and kafka join when configured.
func buildSinks(ctx context.Context, cfg *config.Config) ([]ports.ReportSinkPort, func(), error) {
	sinks := []ports.ReportSinkPort{tabular.NewCSVReportWriter(cfg.Paths.ReportFile)}
	cleanup := func() {}

	if cfg.Database.URL != "" {
		db, err := postgres.Connect(cfg.Database.URL)
		if err != nil {
			return nil, cleanup, err
		}
		repo := postgres.NewReportRepository(db)
		if err := repo.EnsureSchema(ctx); err != nil {
			db.Close()
			return nil, cleanup, err
		}
		sinks = append(sinks, repo)
		cleanup = func() { db.Close() }
	}

	if len(cfg.Kafka.Brokers) > 0 {
		sink := kafkabus.NewSink(cfg.Kafka.Brokers, cfg.Kafka.Topic)
		sinks = append(sinks, sink)
		prev := cleanup
		cleanup = func() {
			sink.Close()
			prev()
		}
	}

	return sinks, cleanup, nil
}

func printTopRecords(report *energy.AnomalyReport, n int) {
	if len(report.Records) == 0 {
		log.Printf("[Report] no anomalies detected")
		return
	}
	if n > len(report.Records) {
		n = len(report.Records)
	}
	log.Printf("[Report] top %d of %d reported anomalies:", n, len(report.Records))
	for i := 0; i < n; i++ {
		r := report.Records[i]
		log.Printf("  %2d. %s %s actual %.1f expected %.1f wasted %.1f kWh ($%.2f)",
			i+1, r.BuildingID, r.Timestamp, r.MeterReading, r.ExpectedReading,
			r.WastedKWh, r.WastedCost)
	}
}
