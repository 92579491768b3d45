// cmd/terrain/main.go — terrain analysis CLI
//
// Analyze a surface formula from the command line, or serve the analyzer
// over HTTP for visualization frontends.
//
// Usage:
//   terrain analyze -f "100 - x^2 - y^2" -x 1 -y 1
//   terrain analyze --preset dome -x 0 -y 0
//   terrain serve --port 8080
package main

import (
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"os"
	"runtime/debug"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"
	"gonum.org/v1/gonum/mat"

	"github.com/terrainlab/terrain"
)

var (
	styleTitle   = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#20B9B4"))
	styleLabel   = lipgloss.NewStyle().Foreground(lipgloss.Color("#2C4A54"))
	styleValue   = lipgloss.NewStyle().Bold(true)
	styleWarning = lipgloss.NewStyle().Foreground(lipgloss.Color("#F4D03F"))
	styleError   = lipgloss.NewStyle().Foreground(lipgloss.Color("#E74C3C"))
	styleOK      = lipgloss.NewStyle().Foreground(lipgloss.Color("#2CD7C7"))
)

var (
	flagFormula     string
	flagPreset      string
	flagX           float64
	flagY           float64
	flagDomainMin   float64
	flagDomainMax   float64
	flagSamples     int
	flagSteepLimit  float64
	flagCriticalTol float64
	flagJSON        bool

	flagPort int
)

func main() {
	root := &cobra.Command{
		Use:   "terrain",
		Short: "Analyze scalar terrain surfaces z = f(x, y)",
	}

	analyzeCmd := &cobra.Command{
		Use:   "analyze",
		Short: "Evaluate a formula and its slopes at a surveyor position",
		RunE:  runAnalyze,
	}
	analyzeCmd.Flags().StringVarP(&flagFormula, "formula", "f", "", "surface formula in x and y")
	analyzeCmd.Flags().StringVar(&flagPreset, "preset", "", "stock scenario: dome or saddle")
	analyzeCmd.Flags().Float64VarP(&flagX, "x", "x", 1, "surveyor x coordinate")
	analyzeCmd.Flags().Float64VarP(&flagY, "y", "y", 1, "surveyor y coordinate")
	analyzeCmd.Flags().Float64Var(&flagDomainMin, "domain-min", terrain.DefaultDomain.Min, "sampling domain lower bound")
	analyzeCmd.Flags().Float64Var(&flagDomainMax, "domain-max", terrain.DefaultDomain.Max, "sampling domain upper bound")
	analyzeCmd.Flags().IntVar(&flagSamples, "samples", terrain.DefaultDomain.Samples, "samples per axis")
	analyzeCmd.Flags().Float64Var(&flagSteepLimit, "steep-limit", 2.0, "per-axis slope limit for construction")
	analyzeCmd.Flags().Float64Var(&flagCriticalTol, "critical-tol", 0.1, "gradient magnitude below which a point is critical")
	analyzeCmd.Flags().BoolVar(&flagJSON, "json", false, "emit the analysis as JSON")
	root.AddCommand(analyzeCmd)

	serveCmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the analyzer over HTTP",
		RunE:  runServe,
	}
	serveCmd.Flags().IntVar(&flagPort, "port", 8080, "port to listen on")
	root.AddCommand(serveCmd)

	if err := root.Execute(); err != nil {
		os.Exit(1)
	}
}

func resolveFormula() (string, error) {
	if flagFormula != "" {
		return flagFormula, nil
	}
	switch strings.ToLower(flagPreset) {
	case "dome", "hill":
		return terrain.Presets[0].Formula, nil
	case "saddle", "pass":
		return terrain.Presets[1].Formula, nil
	case "":
		return "", fmt.Errorf("either --formula or --preset is required")
	}
	return "", fmt.Errorf("unknown preset %q (want dome or saddle)", flagPreset)
}

func runAnalyze(cmd *cobra.Command, args []string) error {
	formula, err := resolveFormula()
	if err != nil {
		return err
	}

	bundle, err := terrain.Analyze(formula, flagX, flagY,
		terrain.WithDomain(terrain.Domain{Min: flagDomainMin, Max: flagDomainMax, Samples: flagSamples}),
		terrain.WithSteepLimit(flagSteepLimit),
		terrain.WithCriticalTol(flagCriticalTol),
	)
	if err != nil {
		fmt.Fprintln(os.Stderr, styleError.Render(err.Error()))
		os.Exit(1)
	}

	if flagJSON {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(bundleReport(bundle))
	}

	printReport(bundle)
	return nil
}

func printReport(b *terrain.Bundle) {
	row := func(label, value string) {
		fmt.Printf("  %s %s\n", styleLabel.Render(label+":"), styleValue.Render(value))
	}

	fmt.Println(styleTitle.Render("Terrain Analysis"))
	row("f(x,y)", b.FormulaText)
	row("∂f/∂x", b.SlopeXText)
	row("∂f/∂y", b.SlopeYText)
	fmt.Println()
	row("Position", fmt.Sprintf("(%.2f, %.2f)", b.X0, b.Y0))
	row("Elevation", fmt.Sprintf("%.2f m", b.Elevation))
	row("Slope in x", fmt.Sprintf("%.2f", b.SlopeX))
	row("Slope in y", fmt.Sprintf("%.2f", b.SlopeY))
	row("Gradient", fmt.Sprintf("⟨%.2f, %.2f⟩ |∇f| = %.2f", b.SlopeX, b.SlopeY, b.GradientMagnitude()))
	fmt.Println()

	if b.TooSteep() {
		fmt.Println("  " + styleWarning.Render("Steep slope: grade exceeds the construction limit."))
	} else {
		fmt.Println("  " + styleOK.Render("Slope acceptable: gradient is safe for building."))
	}
	if b.Classify() == terrain.Critical {
		fmt.Println("  " + styleError.Render("Critical point: peak, valley, or saddle (gradient ≈ 0)."))
	} else {
		fmt.Println("  " + styleLabel.Render("Water drains opposite the gradient direction."))
	}
}

// ============================================================
// HTTP server
// ============================================================

const maxBodyBytes = 1 << 20 // 1 MiB

type analyzeRequest struct {
	Formula string   `json:"formula"`
	X       float64  `json:"x"`
	Y       float64  `json:"y"`
	Domain  *struct {
		Min     float64 `json:"min"`
		Max     float64 `json:"max"`
		Samples int     `json:"samples"`
	} `json:"domain,omitempty"`
}

type analyzeResponse struct {
	Formula        string      `json:"formula"`
	FormulaLaTeX   string      `json:"formula_latex"`
	SlopeXFormula  string      `json:"slope_x_formula"`
	SlopeYFormula  string      `json:"slope_y_formula"`
	Elevation      float64     `json:"elevation"`
	SlopeX         float64     `json:"slope_x"`
	SlopeY         float64     `json:"slope_y"`
	GradientMag    float64     `json:"gradient_magnitude"`
	Classification string      `json:"classification"`
	TooSteep       bool        `json:"too_steep"`
	GridX          []float64   `json:"grid_x"`
	GridY          []float64   `json:"grid_y"`
	GridZ          [][]float64 `json:"grid_z"`
}

func bundleReport(b *terrain.Bundle) analyzeResponse {
	rows, _ := b.GridZ.Dims()
	z := make([][]float64, rows)
	for i := 0; i < rows; i++ {
		z[i] = mat.Row(nil, i, b.GridZ)
	}
	return analyzeResponse{
		Formula:        b.FormulaText,
		FormulaLaTeX:   b.FormulaLaTeX,
		SlopeXFormula:  b.SlopeXText,
		SlopeYFormula:  b.SlopeYText,
		Elevation:      b.Elevation,
		SlopeX:         b.SlopeX,
		SlopeY:         b.SlopeY,
		GradientMag:    b.GradientMagnitude(),
		Classification: b.Classify().String(),
		TooSteep:       b.TooSteep(),
		GridX:          mat.Row(nil, 0, b.GridX),
		GridY:          mat.Col(nil, 0, b.GridY),
		GridZ:          z,
	}
}

func runServe(cmd *cobra.Command, args []string) error {
	mux := http.NewServeMux()

	// POST /analyze — run one analysis
	mux.HandleFunc("/analyze", func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			if rec := recover(); rec != nil {
				log.Printf("panic in /analyze: %v\n%s", rec, string(debug.Stack()))
				http.Error(w, "internal server error", http.StatusInternalServerError)
			}
		}()

		if r.Method != http.MethodPost {
			http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
			return
		}

		r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
		defer r.Body.Close()

		dec := json.NewDecoder(r.Body)
		dec.DisallowUnknownFields()

		var req analyzeRequest
		if err := dec.Decode(&req); err != nil {
			writeJSONError(w, http.StatusBadRequest, err.Error())
			return
		}

		opts := []terrain.Option{}
		if req.Domain != nil {
			opts = append(opts, terrain.WithDomain(terrain.Domain{
				Min:     req.Domain.Min,
				Max:     req.Domain.Max,
				Samples: req.Domain.Samples,
			}))
		}

		bundle, err := terrain.Analyze(req.Formula, req.X, req.Y, opts...)
		if err != nil {
			writeJSONError(w, http.StatusUnprocessableEntity, err.Error())
			return
		}

		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(bundleReport(bundle))
	})

	// GET /presets — stock terrain scenarios
	mux.HandleFunc("/presets", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(terrain.Presets)
	})

	// GET /health — liveness check
	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]interface{}{
			"status": "ok",
			"time":   time.Now().UTC().Format(time.RFC3339),
		})
	})

	addr := fmt.Sprintf(":%d", flagPort)
	log.Printf("terrain analyzer listening on %s", addr)
	log.Printf("  POST /analyze — analyze a formula at a point")
	log.Printf("  GET  /presets — stock terrain scenarios")
	log.Printf("  GET  /health  — health check")

	srv := &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}

func writeJSONError(w http.ResponseWriter, status int, msg string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]string{"error": msg})
}
