// Command token prints a bearer token for the resume API.
package main

import (
	"flag"
	"fmt"
	"log"

	"github.com/joho/godotenv"

	"resume-ragger/internal/config"
	"resume-ragger/internal/pkg/jwtutil"
)

func main() {
	configPath := flag.String("config", "", "config file (default $CONFIG_FILE or configs/config.toml)")
	subject := flag.String("subject", "operator", "token subject")
	flag.Parse()

	_ = godotenv.Load()
	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("load config failed: %v", err)
	}

	token, err := jwtutil.GenerateToken(cfg.Auth.JWTSecret, *subject, cfg.JWTExpiration())
	if err != nil {
		log.Fatalf("generate token failed: %v", err)
	}
	fmt.Println(token)
}
