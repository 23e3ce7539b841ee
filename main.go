package main

import (
	"embed"
	"flag"
	"fmt"
	"os"

	"github.com/wailsapp/wails/v2"
	"github.com/wailsapp/wails/v2/pkg/options"
	"github.com/wailsapp/wails/v2/pkg/options/assetserver"

	"github.com/chazu/cityview/pkg/config"
	"github.com/chazu/cityview/pkg/session"
)

//go:embed all:frontend/dist
var assets embed.FS

func main() {
	cfgPath := flag.String("config", "cityview.toml", "configuration file")
	flag.Parse()

	if err := run(*cfgPath); err != nil {
		fmt.Fprintln(os.Stderr, "cityview:", err)
		os.Exit(1)
	}
}

func run(cfgPath string) error {
	cfg, err := config.Load(cfgPath)
	if err != nil {
		return err
	}
	s, err := session.New(cfg)
	if err != nil {
		return err
	}
	app := NewApp(s)

	if cfg.Input.Path != "" {
		if res := app.LoadModel(cfg.Input.Path); res.Error != "" {
			s.Logger().Warn("initial model not loaded", "path", cfg.Input.Path, "err", res.Error)
		}
	}

	return wails.Run(&options.App{
		Title:  "cityview",
		Width:  cfg.Viewport.Width,
		Height: cfg.Viewport.Height,
		AssetServer: &assetserver.Options{
			Assets: assets,
		},
		OnStartup:  app.startup,
		OnShutdown: app.shutdown,
		Bind:       []interface{}{app},
	})
}
