package qrformat

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
)

// ErrInvalidFormat 未知的编码格式
var ErrInvalidFormat = errors.New("invalid qr format")

// Format 二维码内容格式
type Format string

const (
	FormatOlarm   Format = "olarm"
	FormatJSON    Format = "json"
	FormatCSV     Format = "csv"
	FormatPipe    Format = "pipe"
	FormatCompact Format = "compact"
	FormatLabeled Format = "labeled"
	FormatURL     Format = "url"
)

// DefaultFormat 默认格式
const DefaultFormat = FormatOlarm

// Descriptor 格式说明
type Descriptor struct {
	Format      Format `json:"format"`
	Description string `json:"description"`
	Example     string `json:"example"`
}

var descriptors = []Descriptor{
	{FormatOlarm, "Olarm validation URL", "https://olarm.com/o/flxr?a=serial,devuid,vcode"},
	{FormatJSON, "Compact JSON", `{"sn":"...","vc":"...","uid":"..."}`},
	{FormatCSV, "Comma separated", "serial,vcode,devuid"},
	{FormatPipe, "Pipe separated", "serial|vcode|devuid"},
	{FormatCompact, "Colon separated", "serial:vcode:devuid"},
	{FormatLabeled, "Human-readable labels", "Serial Number: ...\\nVerification Code: ...\\nDevUID: ..."},
	{FormatURL, "Generic validation URL", "https://validate.example.com?sn=...&vc=...&uid=..."},
}

// Formats 返回支持的格式（固定顺序）
func Formats() []Descriptor {
	out := make([]Descriptor, len(descriptors))
	copy(out, descriptors)
	return out
}

// Parse 解析格式选择器，空值视为默认格式
func Parse(raw string) (Format, error) {
	value := strings.ToLower(strings.TrimSpace(raw))
	if value == "" {
		return DefaultFormat, nil
	}
	for _, d := range descriptors {
		if string(d.Format) == value {
			return d.Format, nil
		}
	}
	return "", fmt.Errorf("%w: %q", ErrInvalidFormat, raw)
}

// Valid 判断格式是否受支持
func (f Format) Valid() bool {
	for _, d := range descriptors {
		if d.Format == f {
			return true
		}
	}
	return false
}

type jsonPayload struct {
	SerialNumber     string `json:"sn"`
	VerificationCode string `json:"vc"`
	DevUID           string `json:"uid"`
}

// Encode 按格式生成二维码内容
func Encode(serial, vcode, devUID string, format Format) (string, error) {
	switch format {
	case FormatOlarm:
		return fmt.Sprintf("https://olarm.com/o/flxr?a=%s,%s,%s", serial, devUID, vcode), nil
	case FormatJSON:
		var buf bytes.Buffer
		encoder := json.NewEncoder(&buf)
		encoder.SetEscapeHTML(false)
		if err := encoder.Encode(jsonPayload{
			SerialNumber:     serial,
			VerificationCode: vcode,
			DevUID:           devUID,
		}); err != nil {
			return "", err
		}
		return strings.TrimRight(buf.String(), "\n"), nil
	case FormatCSV:
		return serial + "," + vcode + "," + devUID, nil
	case FormatPipe:
		return serial + "|" + vcode + "|" + devUID, nil
	case FormatCompact:
		return serial + ":" + vcode + ":" + devUID, nil
	case FormatLabeled:
		return fmt.Sprintf("Serial Number: %s\nVerification Code: %s\nDevUID: %s", serial, vcode, devUID), nil
	case FormatURL:
		return fmt.Sprintf("https://validate.example.com?sn=%s&vc=%s&uid=%s", serial, vcode, devUID), nil
	default:
		return "", fmt.Errorf("%w: %q", ErrInvalidFormat, string(format))
	}
}

// EncodeString 解析选择器后编码
func EncodeString(serial, vcode, devUID, selector string) (string, error) {
	format, err := Parse(selector)
	if err != nil {
		return "", err
	}
	return Encode(serial, vcode, devUID, format)
}
