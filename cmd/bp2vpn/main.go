package main

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/bp2vpn/bp2vpn/internal/config"
	"github.com/bp2vpn/bp2vpn/internal/domain/lookup"
	"github.com/bp2vpn/bp2vpn/internal/domain/patient"
	"github.com/bp2vpn/bp2vpn/internal/domain/vitals"
	"github.com/bp2vpn/bp2vpn/internal/domain/worksheet"
	"github.com/bp2vpn/bp2vpn/internal/platform/big5file"
	"github.com/bp2vpn/bp2vpn/internal/platform/dbf"
	"github.com/bp2vpn/bp2vpn/internal/platform/nhixml"
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "bp2vpn",
		Short: "Blood-pressure upload file generator for the insurance VPN",
	}

	rootCmd.AddCommand(exportCmd())
	rootCmd.AddCommand(inspectCmd())

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

// flagOverrides are the command-line knobs layered on top of the
// environment configuration.
type flagOverrides struct {
	dataDir      string
	facilityCode string
	rangePreset  string
	startDate    string
	endDate      string
	output       string
	zip          bool
	patientsFile string
}

func (f *flagOverrides) register(cmd *cobra.Command) {
	cmd.Flags().StringVar(&f.dataDir, "data-dir", "", "directory holding the HIS DBF tables")
	cmd.Flags().StringVar(&f.facilityCode, "facility-code", "", "10-digit medical facility code")
	cmd.Flags().StringVar(&f.rangePreset, "range", "", "date range preset: this-year, 3-months, 6-months, 1-year")
	cmd.Flags().StringVar(&f.startDate, "start", "", "custom range start (YYYY-MM-DD)")
	cmd.Flags().StringVar(&f.endDate, "end", "", "custom range end (YYYY-MM-DD)")
	cmd.Flags().StringVar(&f.output, "output", "", "output file path")
	cmd.Flags().BoolVar(&f.zip, "zip", false, "wrap the output in a zip archive")
	cmd.Flags().StringVar(&f.patientsFile, "patients-file", "", "file listing chart numbers to export, one per line")
}

func (f *flagOverrides) apply(cmd *cobra.Command, cfg *config.Config) {
	if cmd.Flags().Changed("data-dir") {
		cfg.DataDir = f.dataDir
	}
	if cmd.Flags().Changed("facility-code") {
		cfg.FacilityCode = f.facilityCode
	}
	if cmd.Flags().Changed("range") {
		cfg.Range = f.rangePreset
	}
	if cmd.Flags().Changed("start") {
		cfg.StartDate = f.startDate
	}
	if cmd.Flags().Changed("end") {
		cfg.EndDate = f.endDate
	}
	if cmd.Flags().Changed("output") {
		cfg.Output = f.output
	}
	if cmd.Flags().Changed("zip") {
		cfg.Zip = f.zip
	}
	if cmd.Flags().Changed("patients-file") {
		cfg.PatientsFile = f.patientsFile
	}
}

func exportCmd() *cobra.Command {
	flags := &flagOverrides{}
	cmd := &cobra.Command{
		Use:   "export",
		Short: "Scan the HIS tables and write the upload document",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(cmd, flags)
			if err != nil {
				return err
			}
			return runExport(cfg)
		},
	}
	flags.register(cmd)
	return cmd
}

func inspectCmd() *cobra.Command {
	flags := &flagOverrides{}
	cmd := &cobra.Command{
		Use:   "inspect",
		Short: "Scan the HIS tables and report what an export would contain",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(cmd, flags)
			if err != nil {
				return err
			}
			return runInspect(cfg)
		},
	}
	flags.register(cmd)
	return cmd
}

func loadConfig(cmd *cobra.Command, flags *flagOverrides) (*config.Config, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}
	flags.apply(cmd, cfg)
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func newLogger() zerolog.Logger {
	logger := zerolog.New(os.Stdout).With().Timestamp().Logger()
	if os.Getenv("ENV") == "development" {
		logger = zerolog.New(zerolog.ConsoleWriter{Out: os.Stdout}).With().Timestamp().Logger()
	}
	return logger
}

// scanResult is what the background measurement scan hands back.
type scanResult struct {
	readings map[string]*vitals.Reading
	stats    vitals.Stats
	err      error
}

// startScan launches the measurement scan in the background and returns
// the channel it reports on. A missing measurement table is not fatal;
// the run degrades to an empty reading set so manual entry still works.
func startScan(cfg *config.Config, ids []string, w vitals.Window, logger zerolog.Logger) <-chan scanResult {
	ch := make(chan scanResult, 1)
	go func() {
		progress := vitals.WithProgress(func(done, total int) {
			logger.Debug().Int("done", done).Int("total", total).Msg("scanning measurements")
		})
		readings, stats, err := vitals.ScanFile(cfg.MeasurementPath(), ids, w, progress)
		ch <- scanResult{readings: readings, stats: stats, err: err}
	}()
	return ch
}

func runExport(cfg *config.Config) error {
	logger := newLogger().With().Str("run_id", uuid.New().String()).Logger()
	now := time.Now()

	window, err := cfg.Window(now)
	if err != nil {
		return err
	}
	logger.Info().
		Str("start", window.Start).
		Str("end", window.End).
		Str("data_dir", cfg.DataDir).
		Msg("starting export")

	roster, err := patient.LoadFile(cfg.RegistryPath())
	if err != nil {
		logger.Error().Err(err).Str("path", cfg.RegistryPath()).Msg("cannot read patient registry")
		return err
	}
	roster, err = restrictRoster(cfg, roster)
	if err != nil {
		return err
	}
	logger.Info().
		Int("patients", len(roster.Records)).
		Int("duplicates", roster.Duplicates).
		Msg("registry loaded")

	scanCh := startScan(cfg, roster.IDs(), window, logger)
	lookups := lookup.LoadDir(cfg.LookupDir(), logger)

	scan := <-scanCh
	if scan.err != nil {
		if errors.Is(scan.err, dbf.ErrNotFound) {
			logger.Warn().Err(scan.err).Msg("measurement table missing; continuing without readings")
			scan.readings = map[string]*vitals.Reading{}
		} else {
			logger.Error().Err(scan.err).Msg("measurement scan failed")
			return scan.err
		}
	}
	logger.Info().
		Int("rows", scan.stats.Processed).
		Int("matched", scan.stats.PatientMatched).
		Int("patients_with_data", scan.stats.PatientsFound).
		Msg("measurement scan finished")

	sheet := worksheet.New(roster, scan.readings)
	rows, skipped := sheet.CollectExportRows(now)
	for _, s := range skipped {
		logger.Warn().
			Str("patient", s.PatientID).
			Int("systolic", s.Systolic).
			Int("diastolic", s.Diastolic).
			Msg(s.Reason)
	}
	if len(rows) == 0 {
		logger.Error().Msg("no data to export")
		return nhixml.ErrNoData
	}

	gen, err := nhixml.NewGenerator(cfg.FacilityCode, now.Second(), lookups)
	if err != nil {
		return err
	}
	gen.Now = now
	doc, err := gen.Generate(rows)
	if err != nil {
		return err
	}

	if err := writeOutput(cfg, doc); err != nil {
		var unenc *big5file.UnencodableError
		if errors.As(err, &unenc) {
			logger.Error().
				Str("chars", unenc.List()).
				Msg("document contains characters outside the Big5 repertoire")
		}
		return err
	}

	logger.Info().
		Str("output", cfg.Output).
		Int("cases", len(rows)).
		Bool("zip", cfg.Zip).
		Msg("export written")
	return nil
}

// restrictRoster applies the optional chart-number list file. A listed
// file that cannot be read is fatal; an unset one is a no-op.
func restrictRoster(cfg *config.Config, roster *patient.Roster) (*patient.Roster, error) {
	if cfg.PatientsFile == "" {
		return roster, nil
	}
	ids, err := patient.ReadIDList(cfg.PatientsFile)
	if err != nil {
		return nil, err
	}
	return roster.Filter(ids), nil
}

func writeOutput(cfg *config.Config, doc []byte) error {
	if cfg.Zip {
		return big5file.WriteZip(cfg.Output, string(doc))
	}
	return big5file.WriteFile(cfg.Output, string(doc))
}

func runInspect(cfg *config.Config) error {
	logger := newLogger()
	now := time.Now()

	window, err := cfg.Window(now)
	if err != nil {
		return err
	}

	roster, err := patient.LoadFile(cfg.RegistryPath())
	if err != nil {
		return err
	}
	if roster, err = restrictRoster(cfg, roster); err != nil {
		return err
	}

	scan := <-startScan(cfg, roster.IDs(), window, logger)
	if scan.err != nil {
		if !errors.Is(scan.err, dbf.ErrNotFound) {
			return scan.err
		}
		logger.Warn().Err(scan.err).Msg("measurement table missing")
		scan.readings = map[string]*vitals.Reading{}
	}

	sheet := worksheet.New(roster, scan.readings)
	fmt.Printf("window      %s .. %s\n", window.Start, orOpen(window.End))
	fmt.Printf("patients    %d (%d duplicate rows dropped)\n", len(roster.Records), roster.Duplicates)
	fmt.Printf("scanned     %d rows, %d in window, %d matched\n",
		scan.stats.Processed, scan.stats.Processed-scan.stats.DateFiltered, scan.stats.PatientMatched)
	fmt.Printf("with data   %d\n", scan.stats.PatientsFound)
	fmt.Printf("selected    %d\n", sheet.SelectedCount())

	for _, row := range sheet.Rows() {
		mark := " "
		if row.Included {
			mark = "*"
		}
		if row.HasData() {
			fmt.Printf("%s %-8s %-12s %3d/%3d  %s %s\n",
				mark, row.Patient.ID, row.Patient.Name,
				row.Systolic, row.Diastolic, row.Reading.Date, row.Reading.Time)
		} else {
			fmt.Printf("%s %-8s %-12s   --\n", mark, row.Patient.ID, row.Patient.Name)
		}
	}
	return nil
}

func orOpen(end string) string {
	if end == "" {
		return "open"
	}
	return end
}
