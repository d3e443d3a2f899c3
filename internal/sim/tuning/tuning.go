package tuning

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

type Tuning struct {
	PlanetID     string `yaml:"planet_id"`
	CellCapacity int    `yaml:"cell_capacity"`

	// "fair_share" or "none".
	LimitMode string    `yaml:"limit_mode"`
	FairShare FairShare `yaml:"fair_share"`

	JournalDir string `yaml:"journal_dir"`
	IndexDB    string `yaml:"index_db"`
	ListenAddr string `yaml:"listen_addr"`
}

type FairShare struct {
	ContentionWindowMs int     `yaml:"contention_window_ms"`
	DecayPerSecond     float64 `yaml:"decay_per_second"`
	AllowedBurst       float64 `yaml:"allowed_burst"`
	RequestCost        float64 `yaml:"request_cost"`
}

func Defaults() Tuning {
	return Tuning{
		PlanetID:     "P1",
		CellCapacity: 5,
		LimitMode:    "fair_share",
		FairShare: FairShare{
			ContentionWindowMs: 3000,
			DecayPerSecond:     0.5,
			AllowedBurst:       3.0,
			RequestCost:        1.0,
		},
		ListenAddr: ":8080",
	}
}

func Load(path string) (Tuning, error) {
	var t Tuning
	raw, err := os.ReadFile(path)
	if err != nil {
		return t, err
	}
	if err := yaml.Unmarshal(raw, &t); err != nil {
		return t, fmt.Errorf("tuning.yaml: %w", err)
	}
	return t, nil
}
