package services

import (
	"errors"
	"fmt"
	"os"
	"strconv"

	"github.com/alphabatem/common/context"
	"github.com/bytedance/sonic"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/gofiber/swagger"

	_ "github.com/mathpal-app/mathpal_api/docs"
	"github.com/mathpal-app/mathpal_api/services/handlers"
	"github.com/mathpal-app/mathpal_api/shared"
)

type HttpService struct {
	context.DefaultService

	admissionSvc  *AdmissionService
	chatSvc       *ChatService
	storeSvc      *SessionStoreService
	mediaSvc      *MediaService
	monitoringSvc *MonitoringService

	port int
	app  *fiber.App
}

const HTTP_SVC = "http_svc"

func (svc HttpService) Id() string {
	return HTTP_SVC
}

func (svc *HttpService) Configure(ctx *context.Context) error {
	if port := os.Getenv("HTTP_PORT"); port != "" {
		var err error
		if svc.port, err = strconv.Atoi(port); err != nil {
			return err
		}
	} else {
		svc.port = 8000
	}

	return svc.DefaultService.Configure(ctx)
}

func (svc *HttpService) Start() error {
	svc.admissionSvc = svc.Service(ADMISSION_SVC).(*AdmissionService)
	svc.chatSvc = svc.Service(CHAT_SVC).(*ChatService)
	svc.storeSvc = svc.Service(SESSION_STORE_SVC).(*SessionStoreService)
	svc.mediaSvc = svc.Service(MEDIA_SVC).(*MediaService)
	svc.monitoringSvc = svc.Service(MONITORING_SVC).(*MonitoringService)

	svc.app = fiber.New(fiber.Config{
		AppName:      "mathpal_api",
		JSONEncoder:  sonic.Marshal,
		JSONDecoder:  sonic.Unmarshal,
		ErrorHandler: svc.handleError,
	})

	svc.app.Use(recover.New())
	svc.app.Use(cors.New(cors.Config{
		AllowOrigins: "*",
		AllowHeaders: "Origin, Content-Type, Accept",
	}))
	svc.app.Use(svc.monitoringSvc.HTTPMetrics())

	svc.app.Get("/ping", svc.ping)
	svc.app.Get("/swagger/*", swagger.HandlerDefault)

	chatHandler := handlers.NewChatHandler(svc.chatSvc, svc.admissionSvc)
	sessionHandler := handlers.NewSessionHandler(svc.storeSvc)
	mediaHandler := handlers.NewMediaHandler(svc.mediaSvc)

	v1 := svc.app.Group("/api/v1")

	v1.Get("/ping", svc.ping)

	v1.Post("/chat", svc.admissionSvc.ChatAdmission(), chatHandler.SendMessage)
	v1.Get("/quota", chatHandler.GetQuotaStatus)

	v1.Get("/sessions", sessionHandler.ListSessions)
	v1.Post("/sessions", sessionHandler.SaveSession)
	v1.Get("/sessions/current", sessionHandler.GetCurrentSession)
	v1.Get("/sessions/:sessionId", sessionHandler.GetSession)
	v1.Delete("/sessions/:sessionId", sessionHandler.DeleteSession)

	v1.Get("/settings", sessionHandler.GetSettings)
	v1.Patch("/settings", sessionHandler.UpdateSettings)

	v1.Post("/media/image", mediaHandler.UploadProblemImage)

	return svc.app.Listen(fmt.Sprintf(":%v", svc.port))
}

func (svc *HttpService) Shutdown() {
	if svc.app != nil {
		_ = svc.app.Shutdown()
	}
}

// @Summary Ping
// @Description This endpoint checks the health of the service
// @Tags health
// @Accept  json
// @Produce json
// @Success 200 {object} shared.Response{data=string}
// @Router /ping [get]
func (svc *HttpService) ping(c *fiber.Ctx) error {
	c.Set("Cache-Control", "max-age=10")

	return shared.ResponseOK(c, "pong")
}

func (svc *HttpService) handleError(c *fiber.Ctx, err error) error {
	if appErr, ok := shared.GetAppError(err); ok {
		return shared.ResponseJSON(c, appErr.StatusCode, appErr.Message, appErr.Data)
	}

	if errors.Is(err, shared.ErrStorageCapacityExceeded) {
		return shared.ResponseJSON(c, fiber.StatusInsufficientStorage,
			"Storage full; conversation could not be saved even after pruning", nil)
	}

	var fiberErr *fiber.Error
	if errors.As(err, &fiberErr) {
		return shared.ResponseJSON(c, fiberErr.Code, fiberErr.Message, nil)
	}

	return shared.ResponseInternalError(c, err)
}
