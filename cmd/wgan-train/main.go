package main

import (
	"time"

	wgan "github.com/gan-lab/wgan-go"
	"github.com/spf13/pflag"
	"go.uber.org/zap"
)

func main() {
	resumeFrom := pflag.String("resume-from", "", "Path to an existing run directory to resume training from")
	configPath := pflag.String("config", "config.yml", "Path to the training configuration")
	pflag.Parse()

	logger, err := zap.NewDevelopment()
	if err != nil {
		panic(err)
	}
	defer logger.Sync()
	log := logger.Sugar()

	var run *wgan.RunDir
	var cfg *wgan.Config
	if *resumeFrom != "" {
		run, err = wgan.OpenRunDir(*resumeFrom)
		if err != nil {
			log.Fatalw("Can't open run directory for resume", "error", err)
		}
		// The snapshot inside the run directory wins over any fresh config file
		cfg, err = wgan.LoadConfig(run.ConfigPath())
		if err != nil {
			log.Fatalw("Can't load config snapshot", "error", err)
		}
		log.Infow("Resuming run", "dir", run.Root)
	} else {
		cfg, err = wgan.LoadConfig(*configPath)
		if err != nil {
			log.Fatalw("Can't load config", "error", err)
		}
		run, err = wgan.CreateRunDir(cfg, time.Now())
		if err != nil {
			log.Fatalw("Can't create run directory", "error", err)
		}
		if err := cfg.Save(run.ConfigPath()); err != nil {
			log.Fatalw("Can't snapshot config into run directory", "error", err)
		}
		log.Infow("Created run", "dir", run.Root)
	}

	ds, err := wgan.OpenDataset(cfg.Dataset, cfg.DataFolder, cfg.ImageSize)
	if err != nil {
		log.Fatalw("Can't open dataset", "dataset", cfg.Dataset, "error", err)
	}
	log.Infow("Dataset ready",
		"dataset", cfg.Dataset,
		"samples", ds.Len(),
		"channels", ds.Channels(),
		"side", ds.Side(),
	)

	trainer, err := wgan.NewTrainer(cfg, run, ds, log)
	if err != nil {
		log.Fatalw("Can't build trainer", "error", err)
	}
	defer trainer.Close()

	if err := trainer.Run(); err != nil {
		log.Fatalw("Training failed", "error", err)
	}
}
