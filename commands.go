package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"sort"

	"github.com/google/uuid"
	"github.com/jedib0t/go-pretty/v6/table"
	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"pm25-timeseries/config"
	"pm25-timeseries/database"
	"pm25-timeseries/exporter"
	"pm25-timeseries/models"
	"pm25-timeseries/processor"
	"pm25-timeseries/repository"
	"pm25-timeseries/source"
)

type ingestOptions struct {
	download     bool
	threshold    float64
	thresholdSet bool
}

func newIngestCommand() *cobra.Command {
	opts := ingestOptions{}
	cmd := &cobra.Command{
		Use:   "ingest [environment]",
		Short: "Clean the yearly sheets, compute statistics and store the results",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, lg, done := setup(args)
			defer done()

			opts.thresholdSet = cmd.Flags().Changed("threshold")
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt)
			defer stop()

			runID, err := runIngest(ctx, cfg, opts)
			if err != nil {
				lg.Error(err)
				return err
			}
			lg.Info("Finished run id " + runID.String())
			return nil
		},
	}
	cmd.Flags().BoolVar(&opts.download, "download", false, "download archives and metadata before processing")
	cmd.Flags().Float64Var(&opts.threshold, "threshold", 0, "daily limit in μg/m3 (defaults to NORM_THRESHOLD)")
	return cmd
}

// runIngest reads every configured year, cleans and aggregates the data,
// writes both CSV files and, unless SKIP_DB_UPDATE is set, stores the run.
func runIngest(ctx context.Context, cfg config.Configuration, opts ingestOptions) (uuid.UUID, error) {
	run := &models.IngestRun{RunID: uuid.New(), Years: cfg.YEARS, Threshold: thresholdOrDefault(opts.thresholdSet, opts.threshold, cfg)}
	log.WithFields(log.Fields{"run_id": run.RunID, "years": run.Years, "threshold": run.Threshold}).Info("Starting ingest run")

	catalog, err := config.GetArchiveCatalog(cfg.ARCHIVE_CATALOG)
	if err != nil {
		return run.RunID, err
	}
	downloader := source.NewDownloader(cfg)

	if opts.download {
		if err := downloader.FetchMetadata(ctx, cfg.METADATA_FILE); err != nil {
			return run.RunID, err
		}
	}
	meta, err := source.ReadMetadata(cfg.METADATA_FILE)
	if err != nil {
		return run.RunID, err
	}

	raws := make(map[int]models.RawTable, len(cfg.YEARS))
	for _, year := range cfg.YEARS {
		entry, ok := catalog[year]
		if !ok {
			return run.RunID, fmt.Errorf("year %d is missing in archive catalog %s", year, cfg.ARCHIVE_CATALOG)
		}
		path := downloader.LocalPath(year, entry)
		if opts.download {
			if path, err = downloader.FetchArchive(ctx, year, entry); err != nil {
				return run.RunID, err
			}
		}
		raw, err := source.ReadRawTable(path, entry.SheetName, year)
		if err != nil {
			return run.RunID, err
		}
		raws[year] = raw
	}

	perYear, measurements, err := processor.CleanYears(raws, meta)
	if err != nil {
		return run.RunID, err
	}
	common := processor.CommonStations(perYear)
	log.WithField("stations", processor.SortedCodes(common)).Debug("Common stations")

	processor.SortForStorage(measurements)
	if err := exporter.WriteMeasurements(cfg.OUTPUT_FILE, measurements); err != nil {
		return run.RunID, err
	}

	enriched := processor.Enrich(measurements, run.Threshold)
	if err := exporter.WriteEnriched(cfg.ENRICHED_FILE, enriched); err != nil {
		return run.RunID, err
	}

	if cfg.SKIP_DB_UPDATE {
		log.Debug("Skipping DB update")
		return run.RunID, nil
	}
	return run.RunID, storeRun(cfg, run, meta, enriched, len(common))
}

func storeRun(cfg config.Configuration, run *models.IngestRun, meta models.MetadataTable, enriched []models.EnrichedRecord, commonStations int) error {
	db, err := database.InitDB(cfg.DB_DRIVER, cfg.DB_DSN)
	if err != nil {
		return err
	}
	repo := repository.NewRepository(db, cfg.DB_DRIVER)
	defer repo.Close()

	if err := repo.InitSchema(); err != nil {
		return err
	}
	if err := repo.StartRun(run); err != nil {
		return err
	}

	err = func() error {
		stations, err := processor.ParseStations(meta)
		if err != nil {
			return err
		}
		if err := repo.SaveStations(stations); err != nil {
			return err
		}
		return repo.SaveEnriched(run.RunID, enriched)
	}()
	if err != nil {
		if failErr := repo.FailRun(run.RunID, err.Error()); failErr != nil {
			log.Error(failErr)
		}
		return err
	}

	details := fmt.Sprintf("measurements=%d;common_stations=%d", len(enriched), commonStations)
	return repo.FinishRun(run.RunID, details)
}

func newStatsCommand() *cobra.Command {
	var threshold float64
	cmd := &cobra.Command{
		Use:   "stats [environment]",
		Short: "Recompute daily and monthly statistics from the cleaned CSV",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, lg, done := setup(args)
			defer done()

			if err := runStats(cfg, thresholdOrDefault(cmd.Flags().Changed("threshold"), threshold, cfg)); err != nil {
				lg.Error(err)
				return err
			}
			return nil
		},
	}
	cmd.Flags().Float64Var(&threshold, "threshold", 0, "daily limit in μg/m3 (defaults to NORM_THRESHOLD)")
	return cmd
}

func runStats(cfg config.Configuration, threshold float64) error {
	measurements, err := exporter.ReadMeasurements(cfg.OUTPUT_FILE)
	if err != nil {
		return err
	}
	return exporter.WriteEnriched(cfg.ENRICHED_FILE, processor.Enrich(measurements, threshold))
}

func newCommonCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "common [environment]",
		Short: "Print the stations present in every configured year",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, lg, done := setup(args)
			defer done()

			codes, err := commonStations(cfg)
			if err != nil {
				lg.Error(err)
				return err
			}
			for _, code := range codes {
				fmt.Fprintln(cmd.OutOrStdout(), code)
			}
			return nil
		},
	}
}

// commonStations reads the cleaned CSV and intersects the configured years.
func commonStations(cfg config.Configuration) ([]string, error) {
	measurements, err := exporter.ReadMeasurements(cfg.OUTPUT_FILE)
	if err != nil {
		return nil, err
	}
	all := processor.SplitByYear(measurements)
	perYear := make(map[int][]models.Measurement, len(cfg.YEARS))
	for _, year := range cfg.YEARS {
		perYear[year] = all[year]
	}
	return processor.SortedCodes(processor.CommonStations(perYear)), nil
}

type reportOptions struct {
	year      int
	top       int
	locations []string
	years     []int
}

func newReportCommand() *cobra.Command {
	opts := reportOptions{}
	cmd := &cobra.Command{
		Use:   "report [environment]",
		Short: "Print days over the norm per station and per voivodeship",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, lg, done := setup(args)
			defer done()

			if err := runReport(cmd.OutOrStdout(), cfg, opts); err != nil {
				lg.Error(err)
				return err
			}
			return nil
		},
	}
	cmd.Flags().IntVar(&opts.year, "year", 0, "year of the top/bottom ranking (defaults to the last configured year)")
	cmd.Flags().IntVar(&opts.top, "top", 3, "number of stations in the top and bottom ranking")
	cmd.Flags().StringSliceVar(&opts.locations, "trend-locations", nil, "locations of the monthly trend table (e.g. Warszawa,Katowice)")
	cmd.Flags().IntSliceVar(&opts.years, "trend-years", nil, "years of the monthly trend table (defaults to all)")
	return cmd
}

func runReport(w io.Writer, cfg config.Configuration, opts reportOptions) error {
	enriched, err := exporter.ReadEnriched(cfg.ENRICHED_FILE)
	if err != nil {
		return err
	}
	meta, err := source.ReadMetadata(cfg.METADATA_FILE)
	if err != nil {
		return err
	}
	voivodeships, err := processor.VoivodeshipMapping(meta)
	if err != nil {
		return err
	}

	year := opts.year
	if year == 0 && len(cfg.YEARS) > 0 {
		years := append([]int(nil), cfg.YEARS...)
		sort.Ints(years)
		year = years[len(years)-1]
	}

	counts := processor.ExceedanceDaysByStation(enriched)
	top, bottom := processor.TopBottomStations(counts, year, opts.top)
	renderStations(w, fmt.Sprintf("Most days over the norm (%d)", year), top)
	renderStations(w, fmt.Sprintf("Fewest days over the norm (%d)", year), bottom)
	renderVoivodeships(w, processor.ExceedanceDaysByVoivodeship(enriched, voivodeships))
	if len(opts.locations) > 0 {
		renderTrend(w, processor.MonthlyTrend(enriched, opts.locations, opts.years))
	}
	return nil
}

func renderStations(w io.Writer, title string, rows []models.StationExceedance) {
	t := table.NewWriter()
	t.SetOutputMirror(w)
	t.SetStyle(table.StyleLight)
	t.SetTitle(title)
	t.AppendHeader(table.Row{"Station", "Location", "Year", "Days"})
	for _, r := range rows {
		t.AppendRow(table.Row{r.StationCode, r.Location, r.Year, r.Days})
	}
	t.Render()
}

func renderVoivodeships(w io.Writer, rows []models.VoivodeshipExceedance) {
	t := table.NewWriter()
	t.SetOutputMirror(w)
	t.SetStyle(table.StyleLight)
	t.SetTitle("Days over the norm per voivodeship")
	t.AppendHeader(table.Row{"Voivodeship", "Year", "Days"})
	for _, r := range rows {
		t.AppendRow(table.Row{r.Voivodeship, r.Year, r.Days})
	}
	t.Render()
}

func renderTrend(w io.Writer, rows []models.TrendPoint) {
	t := table.NewWriter()
	t.SetOutputMirror(w)
	t.SetStyle(table.StyleLight)
	t.SetTitle("Monthly mean PM2.5 (μg/m3)")
	t.AppendHeader(table.Row{"Location", "Year", "Month", "Mean"})
	for _, r := range rows {
		t.AppendRow(table.Row{r.Location, r.Year, int(r.Month), fmt.Sprintf("%.2f", r.Mean)})
	}
	t.Render()
}

// thresholdOrDefault prefers a threshold given on the command line, 0 included.
func thresholdOrDefault(set bool, threshold float64, cfg config.Configuration) float64 {
	if set {
		return threshold
	}
	return cfg.NormThreshold()
}
