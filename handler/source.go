package handler

import (
	"encoding/base64"
	"errors"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/TIANLI0/PersonWatch/service"
	"github.com/TIANLI0/PersonWatch/utils"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// Payload 从请求中取出的图片。Close 释放请求期间占用的资源。
type Payload struct {
	Data     []byte
	Filename string

	release func()
	once    sync.Once
}

func (p *Payload) Close() {
	p.once.Do(func() {
		if p.release != nil {
			p.release()
		}
	})
}

// Source 一种上传方式
type Source interface {
	Extract(c *gin.Context) (*Payload, error)
}

// MultipartSource 读取 multipart 字段，先落盘为临时文件
type MultipartSource struct {
	Field     string
	UploadDir string
	MaxSize   int64
}

func (s *MultipartSource) Extract(c *gin.Context) (*Payload, error) {
	file, err := c.FormFile(s.Field)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", service.ErrMissingImage, err)
	}

	if s.MaxSize > 0 && file.Size > s.MaxSize {
		return nil, fmt.Errorf("%w: %d bytes", service.ErrImageTooLarge, file.Size)
	}

	savePath := filepath.Join(s.UploadDir, utils.TempFileName(s.Field, file.Filename))
	if err := c.SaveUploadedFile(file, savePath); err != nil {
		_ = os.Remove(savePath)
		return nil, fmt.Errorf("save upload: %w", err)
	}

	payload := &Payload{
		Filename: file.Filename,
		release: func() {
			if err := os.Remove(savePath); err != nil {
				utils.Logger.Warn("failed to delete temp file",
					zap.String("file", savePath),
					zap.Error(err))
			} else {
				utils.Logger.Debug("temp file deleted",
					zap.String("file", savePath))
			}
		},
	}

	data, err := os.ReadFile(savePath)
	if err != nil {
		payload.Close()
		return nil, fmt.Errorf("read upload: %w", err)
	}
	payload.Data = data

	return payload, nil
}

type base64Request struct {
	Image string `json:"image"`
}

// Base64Source 读取 JSON 中的 base64 图片，可以带 data URL 前缀
type Base64Source struct {
	MaxBodySize int64
}

func (s *Base64Source) Extract(c *gin.Context) (*Payload, error) {
	if s.MaxBodySize > 0 {
		c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, s.MaxBodySize)
	}

	var req base64Request
	if err := c.ShouldBindJSON(&req); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			return nil, fmt.Errorf("%w: body over %d bytes", service.ErrImageTooLarge, tooLarge.Limit)
		}
		return nil, fmt.Errorf("%w: %v", service.ErrMissingImage, err)
	}

	encoded := stripDataURL(req.Image)
	if encoded == "" {
		return nil, service.ErrMissingImage
	}

	data, err := base64.StdEncoding.DecodeString(encoded)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", service.ErrInvalidImageEncoding, err)
	}
	if len(data) == 0 {
		return nil, service.ErrMissingImage
	}

	return &Payload{Data: data, Filename: "image.jpg"}, nil
}

// stripDataURL 去掉 "data:image/jpeg;base64," 之类的前缀
func stripDataURL(s string) string {
	s = strings.TrimSpace(s)
	if i := strings.Index(s, ","); i != -1 && strings.HasPrefix(strings.ToLower(s[:i]), "data:") {
		return s[i+1:]
	}
	return s
}
