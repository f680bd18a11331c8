package utils

import (
	"path/filepath"
	"strings"

	"github.com/google/uuid"
)

// GenerateID 生成请求ID
func GenerateID() string {
	return uuid.NewString()
}

// TempFileName 为上传字段生成唯一的临时文件名，保留原始扩展名
func TempFileName(field, original string) string {
	ext := strings.ToLower(filepath.Ext(original))
	return field + "-" + GenerateID() + ext
}
