package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/digitpad/digitpad/config"
	"github.com/digitpad/digitpad/inference"
	"github.com/digitpad/digitpad/inference/remote"
	"github.com/digitpad/digitpad/log"
	"github.com/digitpad/digitpad/pad"
	"github.com/digitpad/digitpad/shell"
	"github.com/digitpad/digitpad/version"
)

func parseOfflineCommands(cmd []string) bool {
	if len(cmd) == 0 {
		return false
	}

	switch cmd[0] {
	case "version":
		fmt.Println("digitpad version:", version.Version)
		return true
	}
	return false
}

// newClassifier returns nil when no model url is configured.
func newClassifier(ctx context.Context, cfg config.Model) (*inference.Classifier, *remote.Client) {
	if cfg.URL == "" {
		log.Warning.Println("no model configured, predictions are disabled")
		return nil, nil
	}
	classifier, client := remote.NewClassifier(cfg)
	classifier.Start(ctx)
	return classifier, client
}

func main() {
	serverMode := flag.Bool("server", false, "run as HTTP API server")
	port := flag.String("port", "", "HTTP server port")
	configPath := flag.String("config", "", "config file")
	modelURL := flag.String("model", "", "model endpoint url")
	initConfig := flag.Bool("init-config", false, "write the configuration in use and exit")
	flag.Parse()

	otherFlags := flag.Args()
	if parseOfflineCommands(otherFlags) {
		os.Exit(0)
	}

	if *configPath == "" {
		p, err := config.Path()
		if err != nil {
			log.Error.Fatal(err)
		}
		*configPath = p
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Error.Fatal(err)
	}
	if *modelURL != "" {
		cfg.Model.URL = *modelURL
	}
	if *port != "" {
		cfg.Server.Port = *port
	}

	if *initConfig {
		if err := cfg.Save(*configPath); err != nil {
			log.Error.Fatal(err)
		}
		log.Info.Println("config written to", *configPath)
		os.Exit(0)
	}

	options, err := pad.OptionsFrom(cfg.Canvas)
	if err != nil {
		log.Error.Fatal(err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	classifier, client := newClassifier(ctx, cfg.Model)

	if *serverMode {
		server := NewApiServer(options, classifier, client)
		if err := runServerMode(ctx, cfg.Server.Port, server); err != nil {
			log.Error.Fatalf("Server failed: %v", err)
		}
		return
	}

	var predictor pad.Predictor
	if classifier != nil {
		predictor = classifier
		if len(otherFlags) > 0 {
			// single commands need the model right away
			classifier.Load(ctx)
		}
	}
	p, err := pad.New(options, predictor)
	if err != nil {
		log.Error.Fatal(err)
	}
	defer p.Close()

	ctxt := &shell.ShellCtxt{
		Pad:        p,
		Classifier: classifier,
		Options:    options,
		Context:    ctx,
	}
	if err := shell.RunShell(ctxt, otherFlags); err != nil {
		log.Error.Println("Error: ", err)
		os.Exit(1)
	}
}
