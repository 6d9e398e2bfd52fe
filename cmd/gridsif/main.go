package main

import (
	"context"
	"database/sql"
	"fmt"
	"log"
	"net/http"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/alecthomas/kong"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	kongdotenv "github.com/titusjaka/kong-dotenv-go"
	_ "modernc.org/sqlite"

	"github.com/jacqryan/gridsif/internal/granule"
	"github.com/jacqryan/gridsif/internal/grid"
	"github.com/jacqryan/gridsif/internal/gridder"
	"github.com/jacqryan/gridsif/internal/models"
	"github.com/jacqryan/gridsif/internal/render"
	"github.com/jacqryan/gridsif/internal/store"
)

var cli struct {
	Grid   GridCmd   `cmd:"" help:"Grid a dataset's footprints over a date range into a raster."`
	Render RenderCmd `cmd:"" help:"Render one stored raster slice to a PNG."`
}

type GridCmd struct {
	Dataset string    `required:"" help:"Dataset identifier, matched against built-in schemas (e.g. OCO3_L2_Lite_SIF.11r)."`
	Start   time.Time `required:"" format:"2006-01-02" help:"First day to grid (YYYY-MM-DD)."`
	End     time.Time `required:"" format:"2006-01-02" help:"Last day to grid, inclusive (YYYY-MM-DD)."`
	Var     []string  `required:"" help:"Granule variable(s) to grid; repeatable."`
	Filter  []string  `help:"Per-variable predicate as VAR:OP:THRESHOLD with OP one of =,==,eq,>,gt,<,lt; repeatable."`

	LatMin float64 `default:"-90" help:"Grid minimum latitude."`
	LatMax float64 `default:"90" help:"Grid maximum latitude."`
	LonMin float64 `default:"-180" help:"Grid minimum longitude."`
	LonMax float64 `default:"180" help:"Grid maximum longitude."`
	LatRes float64 `default:"1" help:"Latitude resolution in degrees."`
	LonRes float64 `default:"1" help:"Longitude resolution in degrees."`
	Subdiv int     `default:"10" help:"Sub-grid subdivision factor per footprint edge."`

	LocalDir string `help:"Source granules from a local directory." xor:"source" required:""`
	BaseURL  string `help:"Source granules from an HTTP archive." xor:"source" required:""`
	FTPHost  string `help:"Source granules from an FTP host (host:port)." xor:"source" required:""`
	FTPRoot  string `default:"/" help:"Archive root directory on the FTP host."`

	DB          string `default:"data/gridsif.db" help:"Path to the raster SQLite database."`
	MetricsAddr string `help:"Optional listen address for Prometheus metrics (e.g. :9090)."`

	PNG    string `help:"Optionally render the first time slice to this PNG after gridding."`
	PNGVar string `help:"Variable to render; defaults to the first --var."`
}

func (c *GridCmd) Run() error {
	rules, err := parseFilters(c.Filter)
	if err != nil {
		return err
	}

	var src granule.Source
	switch {
	case c.LocalDir != "":
		src = granule.NewLocalSource(c.LocalDir)
	case c.BaseURL != "":
		src = granule.NewHTTPSource(c.BaseURL)
	case c.FTPHost != "":
		src = granule.NewFTPSource(c.FTPHost, c.FTPRoot)
	}

	st, err := openStore(c.DB)
	if err != nil {
		return err
	}

	if c.MetricsAddr != "" {
		mux := http.NewServeMux()
		mux.Handle("/metrics", promhttp.Handler())
		go func() {
			log.Printf("main: serving metrics on %s", c.MetricsAddr)
			if err := http.ListenAndServe(c.MetricsAddr, mux); err != nil {
				log.Printf("main: metrics server: %v", err)
			}
		}()
	}

	g, err := gridder.New(src, st, gridder.Config{
		Dataset:     c.Dataset,
		Variables:   c.Var,
		Start:       c.Start,
		End:         c.End,
		Bounds:      grid.Bounds{LatMin: c.LatMin, LatMax: c.LatMax, LonMin: c.LonMin, LonMax: c.LonMax},
		LatRes:      c.LatRes,
		LonRes:      c.LonRes,
		Subdivision: c.Subdiv,
		Filters:     rules,
	})
	if err != nil {
		return err
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	rasterID, err := g.Run(ctx)
	if err != nil {
		return err
	}
	log.Printf("main: raster %d complete", rasterID)

	if c.PNG != "" {
		varName := c.PNGVar
		if varName == "" {
			varName = c.Var[0]
		}
		if err := renderSlice(st, rasterID, 0, varName, c.PNG, 0); err != nil {
			return err
		}
		log.Printf("main: wrote %s", c.PNG)
	}
	return nil
}

type RenderCmd struct {
	DB        string `default:"data/gridsif.db" help:"Path to the raster SQLite database."`
	RasterID  int64  `required:"" help:"Raster id to render from."`
	TimeIndex int    `default:"0" help:"Time slice to render."`
	Var       string `required:"" help:"Variable to render."`
	Out       string `required:"" help:"Output PNG path."`
	Scale     int    `default:"4" help:"Pixels per grid cell."`
}

func (c *RenderCmd) Run() error {
	st, err := openStore(c.DB)
	if err != nil {
		return err
	}
	if err := renderSlice(st, c.RasterID, c.TimeIndex, c.Var, c.Out, c.Scale); err != nil {
		return err
	}
	log.Printf("main: wrote %s", c.Out)
	return nil
}

func openStore(path string) (*store.Store, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	db.Exec("PRAGMA journal_mode=WAL")
	db.Exec("PRAGMA busy_timeout=5000")

	st := store.New(db)
	if err := st.Migrate(); err != nil {
		return nil, fmt.Errorf("migrate: %w", err)
	}
	return st, nil
}

func renderSlice(st *store.Store, rasterID int64, timeIndex int, varName, out string, scale int) error {
	sl, err := st.ReadSlice(rasterID, timeIndex)
	if err != nil {
		return err
	}
	varIdx := -1
	for i, name := range sl.Variables {
		if name == varName {
			varIdx = i
		}
	}
	if varIdx < 0 {
		return fmt.Errorf("variable %q not in raster (has %v)", varName, sl.Variables)
	}
	img, err := render.Slice(sl, varIdx, render.Options{Scale: scale})
	if err != nil {
		return err
	}
	return render.WritePNG(out, img)
}

// parseFilters converts VAR:OP:THRESHOLD arguments into filter rules.
func parseFilters(args []string) ([]models.FilterRule, error) {
	var rules []models.FilterRule
	for _, arg := range args {
		parts := strings.SplitN(arg, ":", 3)
		if len(parts) != 3 {
			return nil, fmt.Errorf("invalid filter %q, want VAR:OP:THRESHOLD", arg)
		}
		threshold, err := strconv.ParseFloat(parts[2], 64)
		if err != nil {
			return nil, fmt.Errorf("invalid filter threshold in %q: %w", arg, err)
		}
		rules = append(rules, models.FilterRule{
			Variable:   parts[0],
			Comparator: parts[1],
			Threshold:  threshold,
		})
	}
	return rules, nil
}

func main() {
	ktx := kong.Parse(&cli,
		kong.Name("gridsif"),
		kong.Description("Grid irregular satellite footprint observations onto a regular lat/lon raster."),
		kong.Configuration(kongdotenv.ENVFileReader, ".env"),
		kong.UsageOnError(),
	)
	ktx.FatalIfErrorf(ktx.Run())
}
