package main

import (
	"github.com/mathpal-app/mathpal_api/services"

	"github.com/alphabatem/common/context"
	"github.com/joho/godotenv"
	"github.com/rs/zerolog/log"
)

func main() {
	err := godotenv.Load()
	if err != nil {
		log.Warn().Err(err).Msg("No .env file loaded")
	}

	ctx, err := context.NewCtx(
		&services.MonitoringService{},
		&services.RedisService{},
		&services.SqliteService{},
		&services.MinIOService{},

		&services.SlidingWindowService{},
		&services.QuotaLedgerService{},
		&services.AdmissionService{},

		&services.SessionStoreService{},
		&services.TutorService{},
		&services.ChatService{},
		&services.MediaService{},

		&services.HttpService{},
	)
	if err != nil {
		log.Fatal().Err(err)
		return
	}

	err = ctx.Run()
	if err != nil {
		log.Fatal().Err(err)
		return
	}
}
