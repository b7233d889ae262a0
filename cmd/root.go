package cmd

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/Aashish23092/runlog-ocr/client"
	"github.com/Aashish23092/runlog-ocr/config"
	"github.com/Aashish23092/runlog-ocr/dto"
	"github.com/Aashish23092/runlog-ocr/logging"
	"github.com/Aashish23092/runlog-ocr/observe"
	"github.com/Aashish23092/runlog-ocr/service"
	"github.com/spf13/cobra"
)

// app holds what every subcommand needs after flags are parsed.
type app struct {
	configFile string
	cfg        *config.Config
	logger     *slog.Logger
	closeLog   func() error
}

// RootCommand creates and returns the root command
func RootCommand() *cobra.Command {
	a := &app{}

	rootCmd := &cobra.Command{
		Use:           "runlog",
		Short:         "Running log OCR service",
		SilenceUsage:  true,
		SilenceErrors: false,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return a.initialize()
		},
		PersistentPostRunE: func(cmd *cobra.Command, args []string) error {
			if a.closeLog != nil {
				return a.closeLog()
			}
			return nil
		},
	}
	rootCmd.PersistentFlags().StringVar(&a.configFile, "config", "", "path to config file (default ./config.yaml)")

	rootCmd.AddCommand(
		serveCommand(a),
		extractCommand(a),
		submitCommand(a),
	)
	return rootCmd
}

func (a *app) initialize() error {
	cfg, err := config.LoadConfig(a.configFile)
	if err != nil {
		return err
	}
	logger, closer, err := logging.Init(logging.Options{
		Level:      cfg.Log.Level,
		Format:     cfg.Log.Format,
		File:       cfg.Log.File,
		MaxSizeMB:  cfg.Log.MaxSizeMB,
		MaxBackups: cfg.Log.MaxBackups,
	})
	if err != nil {
		return fmt.Errorf("failed to initialize logging: %w", err)
	}
	a.cfg = cfg
	a.logger = logging.ForService(logger, "runlog")
	a.closeLog = closer
	return nil
}

func (a *app) recognizer(ctx context.Context) (service.TextRecognizer, error) {
	if a.cfg.OCR.Engine == "vision" {
		opts, err := client.GoogleClientOptions(ctx, a.cfg.Google.CredentialsFile, client.VisionScope)
		if err != nil {
			return nil, err
		}
		vc, err := client.NewVisionClient(ctx, a.cfg.OCR.LanguageHints, opts...)
		if err != nil {
			return nil, err
		}
		return vc, nil
	}
	return client.NewTesseractClient(a.cfg.OCR.TesseractDataPath, a.cfg.OCR.Language, a.cfg.OCR.Preprocess, a.logger), nil
}

func (a *app) store(ctx context.Context) (service.LogStore, error) {
	id, err := client.ParseSpreadsheetID(a.cfg.Google.Spreadsheet)
	if err != nil {
		return nil, fmt.Errorf("google.spreadsheet: %w", err)
	}
	opts, err := client.GoogleClientOptions(ctx, a.cfg.Google.CredentialsFile, client.SheetsScope)
	if err != nil {
		return nil, err
	}
	sc, err := client.NewSheetsClient(ctx, id, opts...)
	if err != nil {
		return nil, err
	}
	return sc, nil
}

func (a *app) options() (service.Options, error) {
	opts := service.DefaultOptions()
	opts.SheetLabelLayout = a.cfg.Sheet.LabelLayout
	opts.RosterColumn = a.cfg.Sheet.RosterColumn
	opts.RosterHeaderRows = a.cfg.Sheet.RosterHeaderRows
	opts.FixedOffset = a.cfg.Sheet.FixedOffset
	opts.SkipClockTokens = a.cfg.Extraction.SkipClockTokens

	var err error
	if opts.DefaultMode, err = dto.ParseExtractionMode(a.cfg.Extraction.Mode); err != nil {
		return opts, err
	}
	if opts.DefaultPolicy, err = dto.ParseSelectionPolicy(a.cfg.Extraction.Policy); err != nil {
		return opts, err
	}
	if opts.Location, err = a.cfg.Location(); err != nil {
		return opts, err
	}
	return opts, nil
}

// runLogService assembles the service. store may be nil for commands
// that never touch the spreadsheet.
func (a *app) runLogService(ctx context.Context, store service.LogStore, observers ...observe.Observer) (*service.RunLogService, error) {
	ocr, err := a.recognizer(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to set up OCR: %w", err)
	}
	var pdf service.PDFProcessor
	if a.cfg.OCR.PDF {
		pdf = service.NewPDFProcessor()
	}
	opts, err := a.options()
	if err != nil {
		return nil, err
	}
	var tieBreaker service.TieBreaker
	if a.cfg.Extraction.TieBreak {
		tieBreaker = service.HighestConfidenceThenFirst
	}

	observer := observe.Multi(append([]observe.Observer{observe.NewSlogObserver(a.logger)}, observers...)...)
	return service.NewRunLogService(
		service.NewDocumentRecognizer(ocr, pdf, a.logger),
		store,
		service.NewSessionStore(a.cfg.Session.TTL, a.cfg.Session.TTL),
		service.NewDisambiguator(tieBreaker),
		observer,
		opts,
		a.logger,
	), nil
}
