package config

import (
	"testing"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	p := cfg.Pipeline
	if len(p.LagHorizons) != 2 || p.LagHorizons[0] != 1 || p.LagHorizons[1] != 24 {
		t.Fatalf("unexpected default lag horizons: %v", p.LagHorizons)
	}
	if p.RollingWindow != 6 || p.ThresholdK != 2.0 || p.UnitCostRate != 0.14 {
		t.Fatalf("unexpected pipeline defaults: %+v", p)
	}
	if p.ReportCap != 5000 || p.SplitFraction != 0.8 {
		t.Fatalf("unexpected pipeline defaults: %+v", p)
	}
	if cfg.Server.Port != "8080" {
		t.Fatalf("unexpected default port: %s", cfg.Server.Port)
	}
	if cfg.Database.URL != "" || len(cfg.Kafka.Brokers) != 0 {
		t.Fatal("database and kafka must be disabled by default")
	}
}

func TestLoadEnvOverrides(t *testing.T) {
	t.Setenv("LAG_HORIZONS", "1, 2, 48")
	t.Setenv("THRESHOLD_K", "3.5")
	t.Setenv("REPORT_CAP", "100")
	t.Setenv("KAFKA_BROKERS", "k1:9092, k2:9092")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	p := cfg.Pipeline
	if len(p.LagHorizons) != 3 || p.LagHorizons[2] != 48 {
		t.Fatalf("lag horizons not parsed: %v", p.LagHorizons)
	}
	if p.ThresholdK != 3.5 || p.ReportCap != 100 {
		t.Fatalf("overrides not applied: %+v", p)
	}
	if len(cfg.Kafka.Brokers) != 2 || cfg.Kafka.Brokers[1] != "k2:9092" {
		t.Fatalf("kafka brokers not parsed: %v", cfg.Kafka.Brokers)
	}
}

func TestLoadRejectsInvalidValues(t *testing.T) {
	cases := map[string]string{
		"THRESHOLD_K":    "-1",
		"SPLIT_FRACTION": "1.5",
		"REPORT_CAP":     "0",
		"ROLLING_WINDOW": "0",
	}
	for key, value := range cases {
		t.Run(key, func(t *testing.T) {
			t.Setenv(key, value)
			if _, err := Load(); err == nil {
				t.Fatalf("%s=%s: expected validation error", key, value)
			}
		})
	}
}
