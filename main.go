package main

import (
	"os"

	"github.com/nutrilog/nutrilog/cmd"
	"github.com/nutrilog/nutrilog/internal/buildinfo"
	"github.com/nutrilog/nutrilog/internal/conf"
)

// Set with -ldflags "-X main.version=... -X main.buildDate=..."
var (
	version   string
	buildDate string
)

func main() {
	settings := &conf.Settings{}
	build := buildinfo.NewContext(version, buildDate)

	rootCmd := cmd.RootCommand(settings, build)
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
