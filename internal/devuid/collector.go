package devuid

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os/exec"
	"strings"
	"time"

	"github.com/devqr/internal/constants"
	"github.com/devqr/internal/logger"
)

var (
	// ErrProbeNotFound OpenOCD 可执行文件不存在
	ErrProbeNotFound = errors.New("openocd not found")
	// ErrProbeTimeout 探针调用超时，通常是 ST-Link 未连接
	ErrProbeTimeout = errors.New("openocd timed out")
	// ErrProbeFailed OpenOCD 非零退出
	ErrProbeFailed = errors.New("openocd failed")
	// ErrUIDNotFound 输出中没有目标地址的数据行
	ErrUIDNotFound = errors.New("devuid not found in openocd output")
	// ErrInvalidUID 解析出的 UID 长度不足
	ErrInvalidUID = errors.New("invalid devuid")
)

// Collector 设备 UID 来源
type Collector interface {
	FetchUID(ctx context.Context) (string, error)
}

// Options OpenOCD 调用参数
type Options struct {
	Binary       string
	InterfaceCfg string
	TargetCfg    string
	UIDAddress   string
	Timeout      time.Duration
	WorkDir      string
}

// OpenOCDCollector 通过 OpenOCD 读取 STM32WL 设备 UID
type OpenOCDCollector struct {
	opts Options
}

// NewOpenOCDCollector 创建采集器，空字段使用默认值
func NewOpenOCDCollector(opts Options) *OpenOCDCollector {
	if strings.TrimSpace(opts.Binary) == "" {
		opts.Binary = constants.ProbeDefaultBinary
	}
	if strings.TrimSpace(opts.InterfaceCfg) == "" {
		opts.InterfaceCfg = constants.ProbeDefaultInterfaceCfg
	}
	if strings.TrimSpace(opts.TargetCfg) == "" {
		opts.TargetCfg = constants.ProbeDefaultTargetCfg
	}
	if strings.TrimSpace(opts.UIDAddress) == "" {
		opts.UIDAddress = constants.ProbeDefaultUIDAddress
	}
	if opts.Timeout <= 0 {
		opts.Timeout = time.Duration(constants.ProbeDefaultTimeoutSec) * time.Second
	}
	return &OpenOCDCollector{opts: opts}
}

// Args 构造 OpenOCD 命令行参数
func (c *OpenOCDCollector) Args() []string {
	return []string{
		"-f", c.opts.InterfaceCfg,
		"-f", c.opts.TargetCfg,
		"-c", "init",
		"-c", "reset halt",
		"-c", fmt.Sprintf("mdw %s 3", c.opts.UIDAddress),
		"-c", "exit",
	}
}

// FetchUID 执行 OpenOCD 并解析 UID
func (c *OpenOCDCollector) FetchUID(ctx context.Context) (string, error) {
	if ctx == nil {
		ctx = context.Background()
	}
	runCtx, cancel := context.WithTimeout(ctx, c.opts.Timeout)
	defer cancel()

	cmd := exec.CommandContext(runCtx, c.opts.Binary, c.Args()...)
	if c.opts.WorkDir != "" {
		cmd.Dir = c.opts.WorkDir
	}
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	started := time.Now()
	err := cmd.Run()
	if err != nil {
		switch {
		case errors.Is(runCtx.Err(), context.DeadlineExceeded):
			return "", fmt.Errorf("%w after %s", ErrProbeTimeout, c.opts.Timeout)
		case errors.Is(err, exec.ErrNotFound), errors.Is(err, fs.ErrNotExist):
			return "", fmt.Errorf("%w: %s", ErrProbeNotFound, c.opts.Binary)
		default:
			return "", fmt.Errorf("%w: %v: %s", ErrProbeFailed, err, strings.TrimSpace(stderr.String()))
		}
	}

	// OpenOCD 将 mdw 结果写入 stderr，两路输出都需要扫描
	uid, err := ParseUID(stdout.String()+"\n"+stderr.String(), c.opts.UIDAddress)
	if err != nil {
		return "", err
	}
	logger.Infow("devuid_fetched", "uid", uid, "elapsed_ms", time.Since(started).Milliseconds())
	return uid, nil
}

// ParseUID 从 mdw 输出提取 UID：取地址后第二、第一个字拼接
func ParseUID(output, address string) (string, error) {
	needle := strings.ToLower(strings.TrimSpace(address))
	if needle == "" {
		return "", fmt.Errorf("%w: empty address", ErrUIDNotFound)
	}
	for _, line := range strings.Split(output, "\n") {
		if !strings.Contains(strings.ToLower(line), needle) {
			continue
		}
		parts := strings.Fields(line)
		if len(parts) < 4 {
			continue
		}
		words := parts[1:4]
		raw := strings.ReplaceAll(strings.ToUpper(words[1]+words[0]), "0X", "")
		uid := keepHex(raw)
		if len(uid) < constants.ProbeMinUIDHexLength {
			return "", fmt.Errorf("%w: %q", ErrInvalidUID, uid)
		}
		return uid, nil
	}
	return "", ErrUIDNotFound
}

func keepHex(s string) string {
	var b strings.Builder
	for _, r := range s {
		if (r >= '0' && r <= '9') || (r >= 'A' && r <= 'F') {
			b.WriteRune(r)
		}
	}
	return b.String()
}
