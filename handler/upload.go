package handler

import (
	"context"
	"errors"
	"net/http"

	"github.com/TIANLI0/PersonWatch/config"
	"github.com/TIANLI0/PersonWatch/middleware"
	"github.com/TIANLI0/PersonWatch/model"
	"github.com/TIANLI0/PersonWatch/service"
	"github.com/TIANLI0/PersonWatch/utils"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

const (
	msgMultipartRelayed = "Imagen enviada a Telegram correctamente."
	msgBase64Relayed    = "Imagen en Base64 enviada a Telegram correctamente."
	msgNoImage          = "No se recibió ninguna imagen."
	msgNoBase64Image    = "No se recibió la imagen en Base64."
	msgInvalidBase64    = "La imagen en Base64 no es válida."
	msgTooLarge         = "La imagen supera el tamaño máximo permitido."
	msgRelayFailed      = "Error al enviar la imagen a Telegram."
	msgProcessingFailed = "Hubo un problema procesando la imagen."
)

// Processor 处理一张图片；由 service.PipelineService 实现
type Processor interface {
	Process(ctx context.Context, image []byte, filename string) (*service.Outcome, error)
}

// DetectionStore 按 MD5 查询缓存的检测结果
type DetectionStore interface {
	GetDetections(ctx context.Context, md5 string) (*model.CachedDetections, error)
}

type UploadHandler struct {
	pipeline  Processor
	store     DetectionStore
	multipart Source
	base64    Source
}

// NewUploadHandler store 为 nil 时查询接口返回 503
func NewUploadHandler(cfg *config.Config, pipeline Processor, store DetectionStore) *UploadHandler {
	return &UploadHandler{
		pipeline: pipeline,
		store:    store,
		multipart: &MultipartSource{
			Field:     "image",
			UploadDir: cfg.Upload.UploadDir,
			MaxSize:   cfg.Upload.MaxSize,
		},
		base64: &Base64Source{MaxBodySize: cfg.Upload.MaxBase64Size},
	}
}

// Upload 处理 multipart 图片上传
func (h *UploadHandler) Upload(c *gin.Context) {
	h.serve(c, h.multipart, msgNoImage, msgMultipartRelayed)
}

// UploadBase64 处理 JSON 中的 base64 图片
func (h *UploadHandler) UploadBase64(c *gin.Context) {
	h.serve(c, h.base64, msgNoBase64Image, msgBase64Relayed)
}

func (h *UploadHandler) serve(c *gin.Context, src Source, missingMsg, okMsg string) {
	log := utils.Logger.With(zap.String("request_id", c.GetString(middleware.RequestIDKey)))

	payload, err := src.Extract(c)
	if err != nil {
		status, msg := http.StatusInternalServerError, msgProcessingFailed
		switch {
		case errors.Is(err, service.ErrMissingImage):
			status, msg = http.StatusBadRequest, missingMsg
		case errors.Is(err, service.ErrInvalidImageEncoding):
			status, msg = http.StatusBadRequest, msgInvalidBase64
		case errors.Is(err, service.ErrImageTooLarge):
			status, msg = http.StatusRequestEntityTooLarge, msgTooLarge
		}
		log.Warn("failed to read uploaded image", zap.Int("status", status), zap.Error(err))
		c.JSON(status, model.ErrorResponse{Error: msg})
		return
	}
	// 无论成功失败，临时文件都在请求结束前删除
	defer payload.Close()

	log.Info("image received",
		zap.String("filename", payload.Filename),
		zap.Int("size", len(payload.Data)))

	ctx := context.WithoutCancel(c.Request.Context())
	outcome, err := h.pipeline.Process(ctx, payload.Data, payload.Filename)
	if err != nil {
		log.Error("failed to process image", zap.Error(err))
		c.JSON(http.StatusInternalServerError, model.ErrorResponse{Error: msgProcessingFailed})
		return
	}

	regions := outcome.Regions
	if regions == nil {
		regions = []model.Region{}
	}

	if !outcome.Relayed {
		c.JSON(http.StatusInternalServerError, model.RelayFailureResponse{
			Error:   msgRelayFailed,
			Results: regions,
		})
		return
	}

	c.JSON(http.StatusOK, model.UploadResponse{
		Message: okMsg,
		Results: regions,
	})
}

// GetByMD5 根据图片MD5查询缓存的检测结果
func (h *UploadHandler) GetByMD5(c *gin.Context) {
	md5 := c.Param("md5")
	if md5 == "" {
		c.JSON(http.StatusBadRequest, model.ErrorResponse{Error: "MD5 requerido."})
		return
	}

	if h.store == nil {
		c.JSON(http.StatusServiceUnavailable, model.ErrorResponse{Error: "Caché no disponible."})
		return
	}

	cached, err := h.store.GetDetections(c.Request.Context(), md5)
	if err != nil {
		utils.Logger.Error("failed to get detections", zap.String("md5", md5), zap.Error(err))
		c.JSON(http.StatusInternalServerError, model.ErrorResponse{Error: "Error al consultar la caché."})
		return
	}

	if cached == nil {
		c.JSON(http.StatusNotFound, model.ErrorResponse{Error: "No se encontraron detecciones para esta imagen."})
		return
	}

	c.JSON(http.StatusOK, model.DetectionsResponse{
		MD5:       cached.MD5,
		Results:   cached.Regions,
		Timestamp: cached.Timestamp,
	})
}

// Register 注册上传和查询路由
func (h *UploadHandler) Register(r gin.IRouter) {
	r.POST("/upload", h.Upload)
	r.POST("/upload-base64", h.UploadBase64)

	api := r.Group("/api/v1")
	{
		api.GET("/detections/:md5", h.GetByMD5)
	}
}
