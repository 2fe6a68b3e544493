package validator

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	verrors "variationutil/api/errors"
	"variationutil/api/services/tools"
	"variationutil/api/services/vcf"
	"variationutil/api/utils"

	"go.uber.org/zap"
)

type Tool string

const (
	// ToolLegacy only reports pass or fail on stdout.
	ToolLegacy Tool = "vcf-validator"
	// ToolModern logs [info] lines, writes a report file and ends with a verdict.
	ToolModern Tool = "vcf_validator"

	MinimumVersion = 4.0
	ModernVersion  = 4.1

	LegacyReportName = "vcf_validator_legacy.log"
)

type (
	ValidationResult struct {
		Valid      bool
		Tool       Tool
		Version    float64
		Log        string
		ReportPath string
	}

	Validator struct {
		runner tools.Runner
		paths  tools.Paths
		logger *zap.Logger
	}
)

func NewValidator(runner tools.Runner, paths tools.Paths, logger *zap.Logger) *Validator {
	return &Validator{runner: runner, paths: paths, logger: utils.OrNop(logger)}
}

// ParseVersion reads the number following "VCFv", i.e. "VCFv4.1" -> 4.1.
func ParseVersion(declared string) (float64, error) {
	i := strings.Index(declared, "VCFv")
	if i < 0 {
		return 0, verrors.New(verrors.KindVersion, "unrecognised VCF version %q", declared)
	}
	v, err := strconv.ParseFloat(strings.TrimSpace(declared[i+4:]), 64)
	if err != nil {
		return 0, verrors.Wrap(verrors.KindVersion, err, "unrecognised VCF version %q", declared)
	}
	return v, nil
}

func SelectTool(version float64) (Tool, error) {
	switch {
	case version < MinimumVersion:
		return "", verrors.New(verrors.KindVersion, "VCF version %.1f is not supported, the minimum is %.1f", version, MinimumVersion)
	case version < ModernVersion:
		return ToolLegacy, nil
	default:
		return ToolModern, nil
	}
}

// Validate runs the structural validator matching the file's declared
// version. Any verdict other than valid is returned as an error.
func (v *Validator) Validate(ctx context.Context, path string, reportDir string) (*ValidationResult, error) {
	declared, err := vcf.DeclaredVersion(path)
	if err != nil {
		return nil, err
	}
	version, err := ParseVersion(declared)
	if err != nil {
		return nil, err
	}
	tool, err := SelectTool(version)
	if err != nil {
		return nil, err
	}
	if err := os.MkdirAll(reportDir, 0755); err != nil {
		return nil, verrors.Wrap(verrors.KindTool, err, "unable to create %s", reportDir)
	}

	v.logger.Info("validating", zap.String("path", path), zap.Float64("version", version), zap.String("tool", string(tool)))

	var result *ValidationResult
	switch tool {
	case ToolModern:
		result, err = v.validateModern(ctx, path, reportDir)
	default:
		result, err = v.validateLegacy(ctx, path, reportDir)
	}
	if err != nil {
		return nil, err
	}
	result.Version = version
	return result, nil
}

func (v *Validator) validateModern(ctx context.Context, path string, reportDir string) (*ValidationResult, error) {
	res, runErr := v.runner.Run(ctx, v.paths.ValidateModern(path, reportDir))
	if res == nil {
		return nil, runErr
	}

	valid, reportPath, err := ParseModernOutput(res.Output)
	if err != nil {
		return nil, verrors.NewValidationError(string(ToolModern), res.Output, "unparseable validator output: %v", err)
	}

	log := res.Output
	if reportPath != "" {
		if report, err := os.ReadFile(reportPath); err == nil {
			log += "\n" + string(report)
		}
	}

	if !valid {
		return nil, verrors.NewValidationError(string(ToolModern), log, "%s is not a valid VCF", filepath.Base(path)).
			WithDetails(map[string]interface{}{"report": reportPath})
	}
	if runErr != nil {
		return nil, verrors.NewValidationError(string(ToolModern), log, "validator reported valid but exited with code %d", res.ExitCode)
	}

	return &ValidationResult{Valid: true, Tool: ToolModern, Log: log, ReportPath: reportPath}, nil
}

func (v *Validator) validateLegacy(ctx context.Context, path string, reportDir string) (*ValidationResult, error) {
	res, runErr := v.runner.Run(ctx, v.paths.ValidateLegacy(path))
	if res == nil {
		return nil, runErr
	}

	reportPath := filepath.Join(reportDir, LegacyReportName)
	if err := os.WriteFile(reportPath, []byte(res.Output), 0644); err != nil {
		return nil, verrors.Wrap(verrors.KindTool, err, "unable to write %s", reportPath)
	}

	if !ParseLegacyOutput(res.ExitCode, res.Output) {
		return nil, verrors.NewValidationError(string(ToolLegacy), res.Output, "%s is not a valid VCF", filepath.Base(path)).
			WithDetails(map[string]interface{}{"report": reportPath, "exitCode": res.ExitCode})
	}

	return &ValidationResult{Valid: true, Tool: ToolLegacy, Log: res.Output, ReportPath: reportPath}, nil
}

// ParseModernOutput reads the validator's [info] log: the report path
// follows "written to", and the last line carries the verdict.
func ParseModernOutput(out string) (bool, string, error) {
	var lines []string
	for _, l := range strings.Split(out, "\n") {
		if l = strings.TrimSpace(l); l != "" {
			lines = append(lines, l)
		}
	}
	if len(lines) == 0 {
		return false, "", errors.New("no output")
	}
	if !strings.HasPrefix(lines[0], "[info]") {
		return false, "", errors.New("output does not start with [info]")
	}

	reportPath := ""
	for _, l := range lines {
		if i := strings.Index(l, "written to"); i >= 0 {
			reportPath = strings.TrimSpace(strings.TrimLeft(l[i+len("written to"):], " :"))
		}
	}

	last := strings.ToLower(lines[len(lines)-1])
	switch {
	case strings.HasSuffix(last, "not valid"), strings.HasSuffix(last, "invalid"):
		return false, reportPath, nil
	case strings.HasSuffix(last, " valid"), last == "valid":
		return true, reportPath, nil
	default:
		return false, reportPath, errors.New("no validity verdict on the last line")
	}
}

// ParseLegacyOutput accepts only a clean exit with no reported error.
func ParseLegacyOutput(exitCode int, out string) bool {
	return exitCode == 0 && !strings.Contains(strings.ToLower(out), "error")
}
