package main

import (
	"flag"
	"fmt"
	"os"

	"github.com/arnavshah/roster-solver/pkg/auth"
	"github.com/arnavshah/roster-solver/pkg/config"
)

func main() {
	configPath := flag.String("config", "", "config file")
	flag.Parse()

	if flag.NArg() < 1 {
		fmt.Println("Usage: keygen [-config file] <userID>")
		os.Exit(1)
	}

	config.LoadEnvFiles()
	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Printf("Error: %v\n", err)
		os.Exit(1)
	}
	if cfg.Auth.APIMasterSecret == "" {
		fmt.Println("Error: API_MASTER_SECRET is not set")
		os.Exit(1)
	}

	userID := flag.Arg(0)
	key := auth.New(cfg.Auth).GenerateHMACKey(userID)
	fmt.Printf("Generated Key for %s:\n%s\n", userID, key)
}
