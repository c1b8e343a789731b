// Copyright (c) 2026 Si6gma
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package main

import (
	"flag"
	"log"

	"github.com/si6gma/laserturret/internal/app"
	"github.com/si6gma/laserturret/internal/config"
)

func main() {
	configPath := flag.String("config", "./gimbal_config.txt", "path to configuration file")
	flag.Parse()

	log.Println("starting laserturret console (MQTT subscriber)")

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	if err := app.RunConsole(cfg); err != nil {
		log.Fatalf("fatal: %v", err)
	}
}
