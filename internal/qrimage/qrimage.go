package qrimage

import (
	"fmt"
	"image/color"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/devqr/internal/constants"

	qrcode "github.com/skip2/go-qrcode"
)

// Renderer 二维码 PNG 渲染器
type Renderer struct {
	sizePx int
}

// NewRenderer 创建渲染器，尺寸超出范围时回退默认值
func NewRenderer(sizePx int) *Renderer {
	if sizePx < constants.QRMinSizePx || sizePx > constants.QRMaxSizePx {
		sizePx = constants.QRDefaultSizePx
	}
	return &Renderer{sizePx: sizePx}
}

// SizePx 输出图片边长
func (r *Renderer) SizePx() int {
	return r.sizePx
}

// Encode 生成 PNG 字节（中等纠错级别，白底黑码）
func (r *Renderer) Encode(content string) ([]byte, error) {
	if content == "" {
		return nil, fmt.Errorf("qr content is empty")
	}
	code, err := qrcode.New(content, qrcode.Medium)
	if err != nil {
		return nil, fmt.Errorf("build qr code failed: %w", err)
	}
	code.ForegroundColor = color.Black
	code.BackgroundColor = color.White
	png, err := code.PNG(r.sizePx)
	if err != nil {
		return nil, fmt.Errorf("encode qr png failed: %w", err)
	}
	return png, nil
}

// Render 将二维码写入 path，目录不存在时自动创建
func (r *Renderer) Render(content, path string) error {
	png, err := r.Encode(content)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create qr dir failed: %w", err)
	}
	if err := os.WriteFile(path, png, 0o644); err != nil {
		return fmt.Errorf("write qr file failed: %w", err)
	}
	return nil
}

// FileName 由序列号与创建时间生成图片文件名
// 形如 qr_code_<serial>_<YYYYMMDD_HHMMSS>.png
func FileName(serial string, at time.Time) string {
	return constants.QRFilePrefix + sanitize(serial) + "_" + at.Format(constants.QRFileTimeLayout) + constants.QRFileExt
}

// WithSuffix 为重名文件追加序号：n<=1 时原样返回
func WithSuffix(name string, n int) string {
	if n <= 1 {
		return name
	}
	ext := filepath.Ext(name)
	return fmt.Sprintf("%s_%d%s", strings.TrimSuffix(name, ext), n, ext)
}

func sanitize(serial string) string {
	var b strings.Builder
	for _, r := range strings.TrimSpace(serial) {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '-', r == '_', r == '.':
			b.WriteRune(r)
		default:
			b.WriteRune('_')
		}
	}
	if b.Len() == 0 {
		return "unknown"
	}
	return b.String()
}
