// Package trainconfig loads the YAML configuration of a training run.
package trainconfig

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Config is the root of the training configuration file.
type Config struct {
	Checkpoint CheckpointConfig `yaml:"checkpoint"`
	Training   TrainingConfig   `yaml:"training"`
	Scheduler  SchedulerConfig  `yaml:"scheduler"`
	Dataset    DatasetConfig    `yaml:"dataset"`
}

// CheckpointConfig configures checkpoint retention and early stopping.
type CheckpointConfig struct {
	Monitor  string `yaml:"monitor"`
	Mode     string `yaml:"mode"`
	SaveTopK int    `yaml:"save_top_k"`
	Patience int    `yaml:"patience"`
	Suffix   string `yaml:"suffix"`
}

// TrainingConfig configures the epoch loop.
type TrainingConfig struct {
	MaxEpochs int     `yaml:"max_epochs"`
	BaseLR    float64 `yaml:"base_lr"`
	Seed      int64   `yaml:"seed"`
}

// SchedulerConfig selects and parameterizes the learning-rate schedule.
type SchedulerConfig struct {
	Name          string  `yaml:"name"`
	MinLR         float64 `yaml:"min_lr"`
	TotalEpochs   int     `yaml:"total_epochs"`
	RestartPeriod int     `yaml:"restart_period"`
	RestartMult   int     `yaml:"restart_mult"`
	StartFactor   float64 `yaml:"start_factor"`
	EndFactor     float64 `yaml:"end_factor"`
	StepSize      int     `yaml:"step_size"`
	Gamma         float64 `yaml:"gamma"`
}

// DatasetConfig configures the image-folder scan.
type DatasetConfig struct {
	ClassMap           map[int][]string `yaml:"class_map"`
	MaxSamplesPerClass int              `yaml:"max_samples_per_class"`
	RandomSamples      bool             `yaml:"random_samples"`
}

// Default returns the configuration defaults applied before file values.
func Default() Config {
	return Config{
		Checkpoint: CheckpointConfig{
			Monitor:  "acc/val",
			Mode:     "max",
			SaveTopK: 5,
			Patience: 10,
		},
		Training: TrainingConfig{
			MaxEpochs: 100,
			BaseLR:    1e-3,
			Seed:      42,
		},
		Scheduler: SchedulerConfig{
			Name: "cosine",
		},
	}
}

// Load reads a YAML file, applies defaults for absent fields and validates
// the result.
func Load(path string) (Config, error) {
	cfg := Default()

	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, fmt.Errorf("trainconfig: read %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("trainconfig: parse %s: %w", path, err)
	}
	if err := cfg.Validate(); err != nil {
		return cfg, err
	}
	return cfg, nil
}

// Validate checks the configuration for structural errors.
func (c Config) Validate() error {
	if c.Checkpoint.Monitor == "" {
		return fmt.Errorf("trainconfig: checkpoint.monitor must not be empty")
	}
	if c.Checkpoint.Mode != "max" && c.Checkpoint.Mode != "min" {
		return fmt.Errorf("trainconfig: checkpoint.mode %q not supported, choose max or min", c.Checkpoint.Mode)
	}
	if c.Checkpoint.SaveTopK < 1 {
		return fmt.Errorf("trainconfig: checkpoint.save_top_k must be >= 1")
	}
	if c.Checkpoint.Patience < 0 {
		return fmt.Errorf("trainconfig: checkpoint.patience must be >= 0")
	}
	if c.Training.MaxEpochs < 1 {
		return fmt.Errorf("trainconfig: training.max_epochs must be >= 1")
	}
	if c.Training.BaseLR <= 0 {
		return fmt.Errorf("trainconfig: training.base_lr must be positive")
	}
	return nil
}
