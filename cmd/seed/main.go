package main

import (
	"errors"
	"flag"
	"fmt"
	"math/rand/v2"
	"strings"

	"github.com/devqr/internal/config"
	"github.com/devqr/internal/logger"
	"github.com/devqr/internal/provider"
	"github.com/devqr/internal/service"
)

func main() {
	configFile := flag.String("config", "", "config file")
	count := flag.Int("n", 10, "number of test records")
	format := flag.String("format", "", "content format (default from config)")
	flag.Parse()

	cfg, err := config.Load(*configFile)
	if err != nil {
		logger.StdLogger().Fatalf("Failed to load config: %v", err)
	}
	logger.Init(cfg.App.Mode, cfg.Log.ToLoggerOptions())
	defer logger.Sync()
	stdLog := logger.StdLogger()

	container, err := provider.Open(cfg)
	if err != nil {
		stdLog.Fatalf("Failed to open store: %v", err)
	}
	defer func() {
		_ = container.Close()
	}()

	rng := rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64()))
	created := 0
	for i := 0; i < *count; i++ {
		input := randomInput(rng)
		input.Format = *format
		record, err := container.RecordService.Generate(input)
		if err != nil && !errors.Is(err, service.ErrExport) {
			stdLog.Printf("Failed to create record %s: %v", input.SerialNumber, err)
			continue
		}
		if err != nil {
			stdLog.Printf("Created record %d but export failed: %v", record.ID, err)
		}
		created++
		fmt.Printf("Created record %d: %s\n", record.ID, record.SerialNumber)
	}
	stdLog.Printf("Seed finished: %d/%d records", created, *count)
}

// randomInput 生成 TEST 前缀的测试数据
func randomInput(rng *rand.Rand) service.GenerateInput {
	return service.GenerateInput{
		SerialNumber:     "TEST" + randomDigits(rng, 12),
		VerificationCode: randomDigits(rng, 6),
		DevUID:           randomHex(rng, 16),
		DeviceName:       "seed",
	}
}

func randomDigits(rng *rand.Rand, n int) string {
	var b strings.Builder
	for i := 0; i < n; i++ {
		b.WriteByte(byte('0' + rng.IntN(10)))
	}
	return b.String()
}

func randomHex(rng *rand.Rand, n int) string {
	const alphabet = "0123456789ABCDEF"
	var b strings.Builder
	for i := 0; i < n; i++ {
		b.WriteByte(alphabet[rng.IntN(len(alphabet))])
	}
	return b.String()
}
