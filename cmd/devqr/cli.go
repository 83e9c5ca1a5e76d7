package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"syscall"
	"text/tabwriter"
	"time"

	"github.com/devqr/internal/app"
	"github.com/devqr/internal/config"
	"github.com/devqr/internal/constants"
	"github.com/devqr/internal/logger"
	"github.com/devqr/internal/models"
	"github.com/devqr/internal/provider"
	"github.com/devqr/internal/qrformat"
	"github.com/devqr/internal/repository"
	"github.com/devqr/internal/service"

	"github.com/gin-gonic/gin"
)

const (
	exitOK    = 0
	exitError = 1
	exitUsage = 2
)

const (
	ansiReset = "\033[0m"
	ansiBold  = "\033[1m"
	ansiCyan  = "\033[36m"
	ansiDim   = "\033[2m"
)

// errUsage 参数错误，退出码 2
var errUsage = errors.New("usage error")

type command struct {
	name    string
	summary string
	run     func(env *cliEnv, args []string) error
}

var commands = []command{
	{"generate", "generate a QR code record", cmdGenerate},
	{"list", "list records", cmdList},
	{"get", "show one record", cmdGet},
	{"remove", "remove a record and its QR image", cmdRemove},
	{"export", "rewrite the spreadsheet mirror", cmdExport},
	{"uid", "read the device UID through OpenOCD", cmdUID},
	{"formats", "list QR content formats", cmdFormats},
	{"serve", "start the local HTTP API", cmdServe},
}

type cliEnv struct {
	cfg       *config.Config
	container *provider.Container
	stdout    io.Writer
	stderr    io.Writer
}

func run(args []string, stdout, stderr io.Writer) int {
	global := flag.NewFlagSet("devqr", flag.ContinueOnError)
	global.SetOutput(stderr)
	configFile := global.String("config", "", "config file (default: config.yml in ., ./etc, $HOME/.devqr)")
	global.Usage = func() { printUsage(stderr) }
	if err := global.Parse(args); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return exitOK
		}
		return exitUsage
	}
	rest := global.Args()
	if len(rest) == 0 {
		printUsage(stderr)
		return exitUsage
	}

	cmd, ok := findCommand(rest[0])
	if !ok {
		fmt.Fprintf(stderr, "unknown command %q\n\n", rest[0])
		printUsage(stderr)
		return exitUsage
	}

	// formats 不需要配置与数据库
	if cmd.name == "formats" {
		return exitCode(stderr, cmd.run(&cliEnv{stdout: stdout, stderr: stderr}, rest[1:]))
	}

	cfg, err := config.Load(*configFile)
	if err != nil {
		fmt.Fprintf(stderr, "error: %v\n", err)
		return exitError
	}
	logger.Init(cfg.App.Mode, cfg.Log.ToLoggerOptions())
	defer logger.Sync()

	container, err := provider.Open(cfg)
	if err != nil {
		fmt.Fprintf(stderr, "error: %v\n", err)
		return exitError
	}
	defer func() {
		if err := container.Close(); err != nil {
			logger.Warnw("cli_close_container_failed", "error", err)
		}
	}()

	env := &cliEnv{cfg: cfg, container: container, stdout: stdout, stderr: stderr}
	return exitCode(stderr, cmd.run(env, rest[1:]))
}

func exitCode(stderr io.Writer, err error) int {
	switch {
	case err == nil:
		return exitOK
	case errors.Is(err, flag.ErrHelp):
		return exitOK
	case errors.Is(err, errUsage):
		fmt.Fprintf(stderr, "%v\n", err)
		return exitUsage
	default:
		fmt.Fprintf(stderr, "error: %v\n", err)
		return exitError
	}
}

func findCommand(name string) (command, bool) {
	for _, c := range commands {
		if c.name == name {
			return c, true
		}
	}
	return command{}, false
}

func printUsage(w io.Writer) {
	fmt.Fprintln(w, "usage: devqr [-config file] <command> [flags]")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "commands:")
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	for _, c := range commands {
		fmt.Fprintf(tw, "  %s\t%s\n", c.name, c.summary)
	}
	_ = tw.Flush()
}

func newFlagSet(env *cliEnv, name string) *flag.FlagSet {
	fs := flag.NewFlagSet("devqr "+name, flag.ContinueOnError)
	fs.SetOutput(env.stderr)
	return fs
}

func parseFlags(fs *flag.FlagSet, args []string) error {
	if err := fs.Parse(args); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return err
		}
		return fmt.Errorf("%w: %v", errUsage, err)
	}
	return nil
}

// parseID 读取位置参数中的记录 ID
func parseID(fs *flag.FlagSet) (uint, error) {
	if fs.NArg() != 1 {
		return 0, fmt.Errorf("%w: expected exactly one record id", errUsage)
	}
	value, err := strconv.ParseUint(strings.TrimSpace(fs.Arg(0)), 10, 64)
	if err != nil || value == 0 {
		return 0, fmt.Errorf("%w: invalid record id %q", errUsage, fs.Arg(0))
	}
	return uint(value), nil
}

func cmdGenerate(env *cliEnv, args []string) error {
	fs := newFlagSet(env, "generate")
	var in service.GenerateInput
	fs.StringVar(&in.SerialNumber, "serial", "", "device serial number (required)")
	fs.StringVar(&in.VerificationCode, "vcode", "", "verification code (required)")
	fs.StringVar(&in.DevUID, "devuid", "", "device UID; read from the probe when empty and -from-device is set")
	fs.StringVar(&in.DeviceName, "name", "", "optional device name")
	fs.StringVar(&in.Format, "format", "", "content format, see the formats command")
	fromDevice := fs.Bool("from-device", false, "read the device UID through OpenOCD when -devuid is empty")
	if err := parseFlags(fs, args); err != nil {
		return err
	}
	if fs.NArg() > 0 {
		return fmt.Errorf("%w: unexpected arguments %v", errUsage, fs.Args())
	}

	svc := env.container.RecordService
	var (
		record *models.Record
		err    error
	)
	if *fromDevice {
		record, err = svc.GenerateFromDevice(context.Background(), in, env.container.UIDCollector)
	} else {
		record, err = svc.Generate(in)
	}
	if record != nil {
		printRecord(env, record)
	}
	if err != nil {
		if errors.Is(err, service.ErrExport) {
			return fmt.Errorf("record saved but spreadsheet sync failed: %w", err)
		}
		return err
	}
	return nil
}

func cmdList(env *cliEnv, args []string) error {
	fs := newFlagSet(env, "list")
	search := fs.String("search", "", "filter by serial, UID or device name")
	page := fs.Int("page", 0, "page number (0 lists everything)")
	pageSize := fs.Int("page-size", 20, "records per page")
	if err := parseFlags(fs, args); err != nil {
		return err
	}

	svc := env.container.RecordService
	var (
		records []models.Record
		total   int64
		err     error
	)
	if *page <= 0 && strings.TrimSpace(*search) == "" {
		records, err = svc.ListAll()
		total = int64(len(records))
	} else {
		filter := repository.RecordListFilter{
			Page:     *page,
			PageSize: *pageSize,
			Search:   *search,
		}
		if *page <= 0 {
			filter.PageSize = 0
		}
		records, total, err = svc.List(filter)
	}
	if err != nil {
		return err
	}

	location := env.cfg.App.Location()
	tw := tabwriter.NewWriter(env.stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tSERIAL\tVCODE\tDEVUID\tNAME\tFORMAT\tCREATED")
	for _, r := range records {
		fmt.Fprintf(tw, "%d\t%s\t%s\t%s\t%s\t%s\t%s\n",
			r.ID, r.SerialNumber, r.VerificationCode, r.DevUID, r.DeviceName, r.Format,
			r.CreatedAt.In(location).Format(constants.ExportTimeLayout))
	}
	if err := tw.Flush(); err != nil {
		return err
	}
	next, err := svc.NextID()
	if err != nil {
		return err
	}
	fmt.Fprintf(env.stdout, "%d record(s), next id %d\n", total, next)
	return nil
}

func cmdGet(env *cliEnv, args []string) error {
	fs := newFlagSet(env, "get")
	if err := parseFlags(fs, args); err != nil {
		return err
	}
	id, err := parseID(fs)
	if err != nil {
		return err
	}
	record, err := env.container.RecordService.Get(id)
	if err != nil {
		return err
	}
	printRecord(env, record)
	return nil
}

func cmdRemove(env *cliEnv, args []string) error {
	fs := newFlagSet(env, "remove")
	if err := parseFlags(fs, args); err != nil {
		return err
	}
	id, err := parseID(fs)
	if err != nil {
		return err
	}
	if err := env.container.RecordService.Remove(id); err != nil {
		if errors.Is(err, service.ErrExport) {
			fmt.Fprintf(env.stdout, "removed record %d\n", id)
			return fmt.Errorf("record removed but spreadsheet sync failed: %w", err)
		}
		return err
	}
	fmt.Fprintf(env.stdout, "removed record %d\n", id)
	return nil
}

func cmdExport(env *cliEnv, args []string) error {
	fs := newFlagSet(env, "export")
	if err := parseFlags(fs, args); err != nil {
		return err
	}
	path, err := env.container.RecordService.Export()
	if err != nil {
		return err
	}
	fmt.Fprintf(env.stdout, "exported to %s\n", path)
	return nil
}

func cmdUID(env *cliEnv, args []string) error {
	fs := newFlagSet(env, "uid")
	if err := parseFlags(fs, args); err != nil {
		return err
	}
	uid, err := env.container.UIDCollector.FetchUID(context.Background())
	if err != nil {
		return err
	}
	fmt.Fprintln(env.stdout, uid)
	return nil
}

func cmdFormats(env *cliEnv, args []string) error {
	fs := newFlagSet(env, "formats")
	if err := parseFlags(fs, args); err != nil {
		return err
	}
	tw := tabwriter.NewWriter(env.stdout, 0, 4, 2, ' ', 0)
	for _, d := range qrformat.Formats() {
		marker := ""
		if d.Format == qrformat.DefaultFormat {
			marker = " (default)"
		}
		fmt.Fprintf(tw, "%s%s\t%s\t%s\n", d.Format, marker, d.Description, d.Example)
	}
	return tw.Flush()
}

func cmdServe(env *cliEnv, args []string) error {
	fs := newFlagSet(env, "serve")
	addr := fs.String("addr", "", "listen address (default from server.host/server.port)")
	if err := parseFlags(fs, args); err != nil {
		return err
	}
	if env.cfg.App.Mode != constants.ModeDebug {
		gin.SetMode(gin.ReleaseMode)
	}
	printServeBanner(env.stdout)
	return app.Run(app.Options{
		Config:    env.cfg,
		Container: env.container,
		Logger:    logger.S(),
		Signals:   []os.Signal{syscall.SIGINT, syscall.SIGTERM},
		Addr:      *addr,
	})
}

func printRecord(env *cliEnv, record *models.Record) {
	location := time.Local
	if env.cfg != nil {
		location = env.cfg.App.Location()
	}
	tw := tabwriter.NewWriter(env.stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintf(tw, "id\t%d\n", record.ID)
	fmt.Fprintf(tw, "serial_number\t%s\n", record.SerialNumber)
	fmt.Fprintf(tw, "verification_code\t%s\n", record.VerificationCode)
	fmt.Fprintf(tw, "dev_uid\t%s\n", record.DevUID)
	if record.DeviceName != "" {
		fmt.Fprintf(tw, "device_name\t%s\n", record.DeviceName)
	}
	fmt.Fprintf(tw, "format\t%s\n", record.Format)
	fmt.Fprintf(tw, "content\t%s\n", strings.ReplaceAll(record.Content, "\n", `\n`))
	fmt.Fprintf(tw, "qr_file\t%s\n", env.container.RecordService.QRPath(record))
	fmt.Fprintf(tw, "created_at\t%s\n", record.CreatedAt.In(location).Format(constants.ExportTimeLayout))
	_ = tw.Flush()
}

func printServeBanner(w io.Writer) {
	fmt.Fprintln(w, ansiCyan+ansiBold+"devqr local API"+ansiReset)
	fmt.Fprintln(w, ansiDim+"--------------------------------------------------------------"+ansiReset)
}
