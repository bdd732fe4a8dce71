package wgan

import (
	"fmt"
	"os"

	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"
)

// Config Hyperparameters of a training run. Loaded once at startup from config.yml;
// on resumed runs the snapshot inside the run directory wins over any fresh file.
type Config struct {
	Dataset              string `yaml:"dataset"`
	NNoiseFeatures       int    `yaml:"n_noise_features"`
	Epochs               int    `yaml:"epochs"`
	DiscSteps            int    `yaml:"disc_steps"`
	GenSteps             int    `yaml:"gen_steps"` // recognized, not consulted by the step scheduler
	BatchSize            int    `yaml:"batch_size"`
	PrintEvery           int    `yaml:"print_every"`
	Checkpoints          int    `yaml:"checkpoints"`
	RollingWindow        int    `yaml:"rolling_window"`
	DiscriminatorFilters int    `yaml:"discriminator_filters"`
	GeneratorFilters     int    `yaml:"generator_filters"`
	// Reserved knobs: read and validated for compatibility, not applied to the
	// training math until their intent is settled.
	DiscriminatorLabelNoise float64 `yaml:"discriminator_label_noise"`
	DiscriminatorInputNoise float64 `yaml:"discriminator_input_noise"`
	ResumeTraining          bool    `yaml:"resume_training"`
	LambdaPen               float64 `yaml:"lambda_pen"`
	ImageSize               int     `yaml:"image_size"`
	DataFolder              string  `yaml:"data_folder"`
	Seed                    int64   `yaml:"seed"`
}

// LoadConfig Reads and validates config from provided YAML file.
// Unknown keys are rejected.
func LoadConfig(path string) (*Config, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, errors.Wrap(err, fmt.Sprintf("Can't open config file '%s'", path))
	}
	defer f.Close()
	cfg := Config{
		ImageSize:  32,
		DataFolder: "./data",
		Seed:       1337,
	}
	dec := yaml.NewDecoder(f)
	dec.KnownFields(true)
	if err := dec.Decode(&cfg); err != nil {
		return nil, errors.Wrap(err, fmt.Sprintf("Can't decode config file '%s'", path))
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate Range-checks every recognized option
func (cfg *Config) Validate() error {
	if cfg.Dataset == "" {
		return fmt.Errorf("Option 'dataset' must be set")
	}
	if cfg.NNoiseFeatures <= 0 {
		return fmt.Errorf("Option 'n_noise_features' must be > 0, got %d", cfg.NNoiseFeatures)
	}
	if cfg.Epochs <= 0 {
		return fmt.Errorf("Option 'epochs' must be > 0, got %d", cfg.Epochs)
	}
	if cfg.DiscSteps <= 0 {
		return fmt.Errorf("Option 'disc_steps' must be > 0, got %d", cfg.DiscSteps)
	}
	if cfg.BatchSize <= 0 {
		return fmt.Errorf("Option 'batch_size' must be > 0, got %d", cfg.BatchSize)
	}
	if cfg.PrintEvery <= 0 {
		return fmt.Errorf("Option 'print_every' must be > 0, got %d", cfg.PrintEvery)
	}
	if cfg.Checkpoints <= 0 {
		return fmt.Errorf("Option 'checkpoints' must be > 0, got %d", cfg.Checkpoints)
	}
	if cfg.RollingWindow <= 0 {
		return fmt.Errorf("Option 'rolling_window' must be > 0, got %d", cfg.RollingWindow)
	}
	if cfg.DiscriminatorFilters <= 0 {
		return fmt.Errorf("Option 'discriminator_filters' must be > 0, got %d", cfg.DiscriminatorFilters)
	}
	if cfg.GeneratorFilters <= 0 {
		return fmt.Errorf("Option 'generator_filters' must be > 0, got %d", cfg.GeneratorFilters)
	}
	if cfg.LambdaPen < 0 {
		return fmt.Errorf("Option 'lambda_pen' must be >= 0, got %f", cfg.LambdaPen)
	}
	if cfg.ImageSize < 8 || cfg.ImageSize&(cfg.ImageSize-1) != 0 {
		return fmt.Errorf("Option 'image_size' must be a power of two not less than 8, got %d", cfg.ImageSize)
	}
	return nil
}

// Save Writes config snapshot to provided path
func (cfg *Config) Save(path string) error {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return errors.Wrap(err, "Can't marshal config")
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return errors.Wrap(err, fmt.Sprintf("Can't write config snapshot to '%s'", path))
	}
	return nil
}
