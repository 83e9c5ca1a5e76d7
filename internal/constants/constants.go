package constants

// 运行模式常量
const (
	ModeDebug   = "debug"
	ModeRelease = "release"
)

// 默认存储路径常量
const (
	DefaultDatabaseDSN = "./qr_codes.db"
	DefaultQRDir       = "./qr_codes"
	DefaultExportPath  = "./qr_records.xlsx"
	DefaultTimezone    = "Africa/Johannesburg"
)

// 记录表常量
const (
	RecordTableName = "qr_records"
)

// 二维码图片常量
const (
	QRFilePrefix      = "qr_code_"
	QRFileExt         = ".png"
	QRFileTimeLayout  = "20060102_150405"
	QRDefaultSizePx   = 290
	QRMinSizePx       = 64
	QRMaxSizePx       = 2048
	QRMissingFileText = "[QR file not found]"
)

// 导出表格常量
const (
	ExportSheetName    = "QR Records"
	ExportCreator      = "devqr"
	ExportTimeLayout   = "2006-01-02 15:04:05"
	ExportImageSizePx  = 100
	ExportImageRowPt   = 80
	ExportHeaderFill   = "CCCCCC"
	ExportTempFileGlob = ".qr_records-*.xlsx"
)

// OpenOCD 探针常量
const (
	ProbeDefaultBinary       = "./openocd/bin/openocd"
	ProbeDefaultInterfaceCfg = "interface/stlink.cfg"
	ProbeDefaultTargetCfg    = "target/stm32wlx.cfg"
	ProbeDefaultUIDAddress   = "0x1FFF7580"
	ProbeDefaultTimeoutSec   = 15
	ProbeMinUIDHexLength     = 16
)
