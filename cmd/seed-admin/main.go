package main

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"github.com/playmatatu/minigolf/internal/admin"
	"github.com/playmatatu/minigolf/internal/logging"
	"github.com/rs/zerolog/log"
)

// seed-admin hashes ADMIN_KEY into the ADMIN_KEY_HASH line for .env.
func main() {
	godotenv.Load()
	logging.Setup("info", true)

	key := os.Getenv("ADMIN_KEY")
	if len(os.Args) > 1 {
		key = os.Args[1]
	}
	if key == "" {
		log.Fatal().Msg("set ADMIN_KEY or pass the key as the first argument")
	}
	if len(key) < 12 {
		log.Warn().Int("length", len(key)).Msg("admin key is short; use at least 12 characters in production")
	}

	hashed, err := admin.HashKey(key)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to hash key")
	}

	fmt.Printf("ADMIN_KEY_HASH='%s'\n", hashed)
	log.Info().Str("header", admin.KeyHeader).Msg("send the plain key in this header to reach /api/v1/admin")
}
