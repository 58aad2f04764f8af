// Package validate runs quality gates over processed patches: the saved
// page, its metadata, entity attribution and internal consistency.
package validate

import (
	"encoding/json"
	"fmt"
	"os"
	"sort"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/coolbeans/sc2patches/pkg/catalog"
	"github.com/coolbeans/sc2patches/pkg/extract"
	"github.com/coolbeans/sc2patches/pkg/store"
)

// Gate is one validation checkpoint. Each gate computes metrics in [0, 1]
// and compares them with thresholds.
type Gate interface {
	// Name returns the gate identifier ("V0" to "V3").
	Name() string

	// Run evaluates the gate against ctx.
	Run(ctx *Context) *GateResult

	// Thresholds returns the default minimum score per metric.
	Thresholds() map[string]float64
}

// Context is everything known about one processed page. Gates whose
// inputs are missing report themselves skipped.
type Context struct {
	// SourcePath and SourceSize describe the saved page, when known.
	SourcePath string
	SourceSize int64

	Patch   *store.Patch
	Catalog *catalog.Catalog

	// Tally is available when the patch was just extracted.
	Tally *extract.Tally

	Config *Config
}

// Config holds thresholds and run behavior. It is read from a YAML profile.
type Config struct {
	// Thresholds overrides gate defaults. Keys are "Gate.metric", e.g.
	// "V2.resolved_entities".
	Thresholds map[string]float64 `yaml:"thresholds"`

	// SkipGates lists gate names not to run.
	SkipGates []string `yaml:"skip_gates"`

	// StrictMode stops at the first failing gate.
	StrictMode bool `yaml:"strict"`

	// FailOnWarn fails the report on any warning.
	FailOnWarn bool `yaml:"fail_on_warn"`
}

// DefaultConfig returns a config with no overrides.
func DefaultConfig() *Config {
	return &Config{
		Thresholds: make(map[string]float64),
		SkipGates:  make([]string, 0),
	}
}

// LoadConfig reads a YAML validation profile.
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading validation profile %s: %w", path, err)
	}
	config := DefaultConfig()
	if err := yaml.Unmarshal(data, config); err != nil {
		return nil, fmt.Errorf("parsing validation profile %s: %w", path, err)
	}
	return config, nil
}

// GateResult is the outcome of one gate.
type GateResult struct {
	Gate       string             `json:"gate"`
	Passed     bool               `json:"passed"`
	Score      float64            `json:"score"`
	Metrics    map[string]float64 `json:"metrics"`
	Warnings   []Issue            `json:"warnings,omitempty"`
	Errors     []Issue            `json:"errors,omitempty"`
	Duration   time.Duration      `json:"duration"`
	Skipped    bool               `json:"skipped,omitempty"`
	SkipReason string             `json:"skip_reason,omitempty"`
}

// Issue is a warning or error raised by a gate.
type Issue struct {
	Metric  string  `json:"metric"`
	Message string  `json:"message"`
	Value   float64 `json:"value,omitempty"`
}

func newResult(gate Gate) *GateResult {
	return &GateResult{
		Gate:     gate.Name(),
		Metrics:  make(map[string]float64),
		Warnings: make([]Issue, 0),
		Errors:   make([]Issue, 0),
	}
}

func skipped(gate Gate, reason string) *GateResult {
	return &GateResult{
		Gate:       gate.Name(),
		Skipped:    true,
		SkipReason: reason,
		Metrics:    make(map[string]float64),
	}
}

// Report aggregates the gate results for one page.
type Report struct {
	Source       string        `json:"source,omitempty"`
	Version      string        `json:"version,omitempty"`
	Results      []*GateResult `json:"results"`
	OverallPass  bool          `json:"overall_pass"`
	TotalScore   float64       `json:"total_score"`
	GatesPassed  int           `json:"gates_passed"`
	GatesFailed  int           `json:"gates_failed"`
	GatesSkipped int           `json:"gates_skipped"`
	Duration     time.Duration `json:"duration"`
	HaltedAt     string        `json:"halted_at,omitempty"`
}

// ToJSON serializes the report as indented JSON.
func (report *Report) ToJSON() ([]byte, error) {
	return json.MarshalIndent(report, "", "  ")
}

// String returns a human-readable report.
func (report *Report) String() string {
	var b strings.Builder

	title := "Validation Report"
	if report.Version != "" {
		title += " for " + report.Version
	}
	b.WriteString(title + "\n")
	b.WriteString(strings.Repeat("=", len(title)) + "\n\n")

	for _, result := range report.Results {
		status := "PASS"
		if result.Skipped {
			status = "SKIP"
		} else if !result.Passed {
			status = "FAIL"
		}

		fmt.Fprintf(&b, "[%s] Gate %s (score: %.1f%%)\n", status, result.Gate, result.Score*100)
		if result.Skipped {
			fmt.Fprintf(&b, "  Reason: %s\n", result.SkipReason)
		}
		for _, name := range metricNames(result.Metrics) {
			fmt.Fprintf(&b, "  %s: %.1f%%\n", name, result.Metrics[name]*100)
		}
		for _, warning := range result.Warnings {
			fmt.Fprintf(&b, "  WARNING [%s]: %s\n", warning.Metric, warning.Message)
		}
		for _, issue := range result.Errors {
			fmt.Fprintf(&b, "  ERROR [%s]: %s\n", issue.Metric, issue.Message)
		}
		b.WriteString("\n")
	}

	fmt.Fprintf(&b, "Summary: %d passed, %d failed, %d skipped\n",
		report.GatesPassed, report.GatesFailed, report.GatesSkipped)
	fmt.Fprintf(&b, "Overall Score: %.1f%%\n", report.TotalScore*100)

	status := "PASS"
	if !report.OverallPass {
		status = "FAIL"
	}
	fmt.Fprintf(&b, "Status: %s\n", status)
	if report.HaltedAt != "" {
		fmt.Fprintf(&b, "Halted at: %s\n", report.HaltedAt)
	}
	return b.String()
}

// Pipeline runs gates in registration order.
type Pipeline struct {
	gates  []Gate
	config *Config
}

// NewPipeline creates an empty gate pipeline. A nil config means defaults.
func NewPipeline(config *Config) *Pipeline {
	if config == nil {
		config = DefaultConfig()
	}
	return &Pipeline{config: config}
}

// NewDefaultPipeline creates a pipeline with gates V0 to V3.
func NewDefaultPipeline(config *Config) *Pipeline {
	p := NewPipeline(config)
	p.Register(NewSourceGate())
	p.Register(NewMetadataGate())
	p.Register(NewAttributionGate())
	p.Register(NewConsistencyGate())
	return p
}

// Register appends a gate.
func (p *Pipeline) Register(gate Gate) {
	p.gates = append(p.gates, gate)
}

// Run evaluates every gate against ctx. With StrictMode the run stops at
// the first failure; with FailOnWarn it stops at the first warning.
func (p *Pipeline) Run(ctx *Context) *Report {
	start := time.Now()
	if ctx.Config == nil {
		ctx.Config = p.config
	}

	report := &Report{
		Source:      ctx.SourcePath,
		Results:     make([]*GateResult, 0, len(p.gates)),
		OverallPass: true,
	}
	if ctx.Patch != nil {
		report.Version = ctx.Patch.Metadata.Version
	}

	for _, gate := range p.gates {
		if p.isSkipped(gate.Name()) {
			report.Results = append(report.Results, skipped(gate, "skipped by configuration"))
			report.GatesSkipped++
			continue
		}

		gateStart := time.Now()
		result := gate.Run(ctx)
		result.Duration = time.Since(gateStart)
		report.Results = append(report.Results, result)

		switch {
		case result.Skipped:
			report.GatesSkipped++
			continue
		case result.Passed:
			report.GatesPassed++
		default:
			report.GatesFailed++
			report.OverallPass = false
			if p.config.StrictMode {
				report.HaltedAt = gate.Name()
			}
		}
		if report.HaltedAt != "" {
			break
		}

		if p.config.FailOnWarn && len(result.Warnings) > 0 {
			report.OverallPass = false
			report.HaltedAt = gate.Name()
			break
		}
	}

	scored, total := 0, 0.0
	for _, result := range report.Results {
		if !result.Skipped {
			total += result.Score
			scored++
		}
	}
	if scored > 0 {
		report.TotalScore = total / float64(scored)
	}

	report.Duration = time.Since(start)
	return report
}

func (p *Pipeline) isSkipped(name string) bool {
	for _, skip := range p.config.SkipGates {
		if strings.EqualFold(skip, name) {
			return true
		}
	}
	return false
}

// threshold prefers a "Gate.metric" override, then the gate default.
func threshold(config *Config, gate Gate, metric string) float64 {
	if config != nil {
		if value, ok := config.Thresholds[gate.Name()+"."+metric]; ok {
			return value
		}
	}
	if value, ok := gate.Thresholds()[metric]; ok {
		return value
	}
	return 0.80
}

// evaluate scores result as the mean of its metrics. A metric below its
// threshold is an error; within 10% above it, a warning.
func evaluate(result *GateResult, config *Config, gate Gate) {
	if len(result.Metrics) == 0 {
		result.Score = 1.0
		result.Passed = true
		return
	}

	total := 0.0
	passed := true
	for _, name := range metricNames(result.Metrics) {
		value := result.Metrics[name]
		limit := threshold(config, gate, name)
		total += value

		if value < limit {
			passed = false
			result.Errors = append(result.Errors, Issue{
				Metric:  name,
				Message: fmt.Sprintf("%s (%.1f%%) below threshold (%.1f%%)", name, value*100, limit*100),
				Value:   value,
			})
		} else if value < limit*1.1 && limit < 1.0 {
			result.Warnings = append(result.Warnings, Issue{
				Metric:  name,
				Message: fmt.Sprintf("%s (%.1f%%) close to threshold (%.1f%%)", name, value*100, limit*100),
				Value:   value,
			})
		}
	}

	result.Score = total / float64(len(result.Metrics))
	result.Passed = passed
}

func metricNames(metrics map[string]float64) []string {
	names := make([]string, 0, len(metrics))
	for name := range metrics {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func boolMetric(ok bool) float64 {
	if ok {
		return 1.0
	}
	return 0.0
}

func ratio(n, total int) float64 {
	if total == 0 {
		return 1.0
	}
	return float64(n) / float64(total)
}
