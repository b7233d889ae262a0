package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/Aashish23092/runlog-ocr/dto"
	"github.com/spf13/viper"
)

type Config struct {
	Server     ServerConfig     `mapstructure:"server"`
	OCR        OCRConfig        `mapstructure:"ocr"`
	Google     GoogleConfig     `mapstructure:"google"`
	Sheet      SheetConfig      `mapstructure:"sheet"`
	Extraction ExtractionConfig `mapstructure:"extraction"`
	Session    SessionConfig    `mapstructure:"session"`
	Log        LogConfig        `mapstructure:"log"`
	Timezone   string           `mapstructure:"timezone"`
}

type ServerConfig struct {
	Port        string `mapstructure:"port"`
	MaxFileSize int64  `mapstructure:"maxfilesize"`
}

type OCRConfig struct {
	Engine            string   `mapstructure:"engine"` // tesseract or vision
	TesseractDataPath string   `mapstructure:"tessdata"`
	Language          string   `mapstructure:"language"`
	Preprocess        bool     `mapstructure:"preprocess"`
	LanguageHints     []string `mapstructure:"languagehints"`
	PDF               bool     `mapstructure:"pdf"`
}

type GoogleConfig struct {
	CredentialsFile string `mapstructure:"credentialsfile"`
	// Spreadsheet is a sheet URL or a bare spreadsheet id.
	Spreadsheet string `mapstructure:"spreadsheet"`
}

type SheetConfig struct {
	LabelLayout      string `mapstructure:"labellayout"`
	RosterColumn     int    `mapstructure:"rostercolumn"`
	RosterHeaderRows int    `mapstructure:"rosterheaderrows"`
	FixedOffset      int    `mapstructure:"fixedoffset"`
}

type ExtractionConfig struct {
	Mode            string `mapstructure:"mode"`
	Policy          string `mapstructure:"policy"`
	SkipClockTokens bool   `mapstructure:"skipclocktokens"`
	// TieBreak lets AUTO_SINGLE pick the most confident candidate.
	TieBreak bool `mapstructure:"tiebreak"`
}

type SessionConfig struct {
	TTL time.Duration `mapstructure:"ttl"`
}

type LogConfig struct {
	Level      string `mapstructure:"level"`
	Format     string `mapstructure:"format"`
	File       string `mapstructure:"file"`
	MaxSizeMB  int    `mapstructure:"maxsizemb"`
	MaxBackups int    `mapstructure:"maxbackups"`
}

// legacyEnv keeps the environment names of earlier deployments working.
var legacyEnv = map[string]string{
	"server.port":  "SERVER_PORT",
	"ocr.tessdata": "TESSDATA_PREFIX",
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.port", "8080")
	v.SetDefault("server.maxfilesize", 10*1024*1024) // 10 MB
	v.SetDefault("ocr.engine", "tesseract")
	v.SetDefault("ocr.tessdata", "/usr/share/tesseract-ocr/5/tessdata/")
	v.SetDefault("ocr.language", "eng")
	v.SetDefault("ocr.preprocess", true)
	v.SetDefault("ocr.languagehints", []string{"en"})
	v.SetDefault("ocr.pdf", true)
	v.SetDefault("google.credentialsfile", "")
	v.SetDefault("google.spreadsheet", "")
	v.SetDefault("sheet.labellayout", "2006-01")
	v.SetDefault("sheet.rostercolumn", 2)
	v.SetDefault("sheet.rosterheaderrows", 1)
	v.SetDefault("sheet.fixedoffset", 3)
	v.SetDefault("extraction.mode", string(dto.ModeUnitSuffixed))
	v.SetDefault("extraction.policy", string(dto.PolicyPromptUser))
	v.SetDefault("extraction.skipclocktokens", true)
	v.SetDefault("extraction.tiebreak", false)
	v.SetDefault("session.ttl", "30m")
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")
	v.SetDefault("log.file", "")
	v.SetDefault("log.maxsizemb", 100)
	v.SetDefault("log.maxbackups", 3)
	v.SetDefault("timezone", "Local")
}

// LoadConfig reads defaults, an optional config.yaml and RUNLOG_*
// environment variables. configFile may be empty to search the working
// directory.
func LoadConfig(configFile string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	if configFile != "" {
		v.SetConfigFile(configFile)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
	}
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if configFile != "" || !errors.As(err, &notFound) {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
	}

	v.SetEnvPrefix("RUNLOG")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	for key, env := range legacyEnv {
		if err := v.BindEnv(key, "RUNLOG_"+strings.ToUpper(strings.ReplaceAll(key, ".", "_")), env); err != nil {
			return nil, fmt.Errorf("error binding %s: %w", env, err)
		}
	}

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("error unmarshaling config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}

// Validate rejects settings the service cannot run with.
func (c *Config) Validate() error {
	var errs []error
	if c.Sheet.FixedOffset < 0 {
		errs = append(errs, fmt.Errorf("sheet.fixedoffset must be >= 0, got %d", c.Sheet.FixedOffset))
	}
	if c.Sheet.RosterColumn < 1 {
		errs = append(errs, fmt.Errorf("sheet.rostercolumn must be >= 1, got %d", c.Sheet.RosterColumn))
	}
	if c.Sheet.RosterHeaderRows < 0 {
		errs = append(errs, fmt.Errorf("sheet.rosterheaderrows must be >= 0, got %d", c.Sheet.RosterHeaderRows))
	}
	if c.Sheet.LabelLayout == "" {
		errs = append(errs, errors.New("sheet.labellayout is empty"))
	}
	switch c.OCR.Engine {
	case "tesseract", "vision":
	default:
		errs = append(errs, fmt.Errorf("unknown ocr.engine %q", c.OCR.Engine))
	}
	if _, err := dto.ParseExtractionMode(c.Extraction.Mode); err != nil {
		errs = append(errs, err)
	}
	if _, err := dto.ParseSelectionPolicy(c.Extraction.Policy); err != nil {
		errs = append(errs, err)
	}
	if c.Server.MaxFileSize <= 0 {
		errs = append(errs, errors.New("server.maxfilesize must be positive"))
	}
	if c.Session.TTL <= 0 {
		errs = append(errs, errors.New("session.ttl must be positive"))
	}
	if _, err := c.Location(); err != nil {
		errs = append(errs, err)
	}
	return errors.Join(errs...)
}

// Location resolves Timezone; "Local" and "" mean the host zone.
func (c *Config) Location() (*time.Location, error) {
	if c.Timezone == "" || c.Timezone == "Local" {
		return time.Local, nil
	}
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		return nil, fmt.Errorf("invalid timezone %q: %w", c.Timezone, err)
	}
	return loc, nil
}
