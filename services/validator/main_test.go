package validator

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	verrors "variationutil/api/errors"
	"variationutil/api/services/tools"
	"variationutil/api/services/tools/toolstest"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testPaths = tools.Paths{
	ValidatorModern: "vcf_validator_linux",
	ValidatorLegacy: "vcf-validator",
}

const modernValid = "[info] Reading from input file...\n" +
	"[info] Summary report written to : /tmp/reports/input.vcf.errors_summary.txt\n" +
	"[info] According to the VCF specification, the input file is valid\n"

const modernInvalid = "[info] Reading from input file...\n" +
	"[info] Summary report written to : /tmp/reports/input.vcf.errors_summary.txt\n" +
	"[info] According to the VCF specification, the input file is not valid\n"

func writeVcf(t *testing.T, version string) string {
	p := filepath.Join(t.TempDir(), "input.vcf")
	content := "##fileformat=" + version + "\n#CHROM\tPOS\tID\tREF\tALT\tQUAL\tFILTER\tINFO\nchr1\t1\t.\tA\tT\t1\tPASS\t.\n"
	require.NoError(t, os.WriteFile(p, []byte(content), 0644))
	return p
}

func TestParseVersion(t *testing.T) {
	v, err := ParseVersion("VCFv4.1")
	assert.NoError(t, err)
	assert.Equal(t, 4.1, v)

	v, err = ParseVersion("VCFv4.2")
	assert.NoError(t, err)
	assert.Equal(t, 4.2, v)

	_, err = ParseVersion("VCF4")
	assert.ErrorIs(t, err, verrors.ErrVersion)

	_, err = ParseVersion("VCFvfour")
	assert.ErrorIs(t, err, verrors.ErrVersion)
}

func TestSelectTool(t *testing.T) {
	_, err := SelectTool(3.3)
	assert.ErrorIs(t, err, verrors.ErrVersion)

	tool, err := SelectTool(4.0)
	assert.NoError(t, err)
	assert.Equal(t, ToolLegacy, tool)

	tool, err = SelectTool(4.1)
	assert.NoError(t, err)
	assert.Equal(t, ToolModern, tool)

	tool, err = SelectTool(4.3)
	assert.NoError(t, err)
	assert.Equal(t, ToolModern, tool)
}

func TestParseModernOutput(t *testing.T) {
	valid, report, err := ParseModernOutput(modernValid)
	assert.NoError(t, err)
	assert.True(t, valid)
	assert.Equal(t, "/tmp/reports/input.vcf.errors_summary.txt", report)

	valid, _, err = ParseModernOutput(modernInvalid)
	assert.NoError(t, err)
	assert.False(t, valid)

	_, _, err = ParseModernOutput("Segmentation fault\n")
	assert.Error(t, err)

	_, _, err = ParseModernOutput("[info] Reading from input file...\n")
	assert.Error(t, err)
}

func TestParseLegacyOutput(t *testing.T) {
	assert.True(t, ParseLegacyOutput(0, ""))
	assert.False(t, ParseLegacyOutput(0, "Error: wrong number of columns at chr1:10"))
	assert.False(t, ParseLegacyOutput(1, ""))
}

func TestValidate(t *testing.T) {
	ctx := context.Background()

	t.Run("modern tool for 4.1", func(t *testing.T) {
		runner := toolstest.NewRunner(testPaths)
		runner.On("vcf_validator_linux", toolstest.Output(0, modernValid))
		v := NewValidator(runner, testPaths, nil)

		res, err := v.Validate(ctx, writeVcf(t, "VCFv4.1"), t.TempDir())
		require.NoError(t, err)
		assert.True(t, res.Valid)
		assert.Equal(t, ToolModern, res.Tool)
		assert.Equal(t, 4.1, res.Version)
		assert.Len(t, runner.CallsTo("vcf-validator"), 0)
	})

	t.Run("modern tool invalid keeps the full log", func(t *testing.T) {
		runner := toolstest.NewRunner(testPaths)
		runner.On("vcf_validator_linux", toolstest.Output(1, modernInvalid))
		v := NewValidator(runner, testPaths, nil)

		_, err := v.Validate(ctx, writeVcf(t, "VCFv4.2"), t.TempDir())
		assert.ErrorIs(t, err, verrors.ErrValidation)
		assert.Contains(t, err.Error(), "Reading from input file")
		assert.Contains(t, err.Error(), "is not valid")
	})

	t.Run("unparseable output", func(t *testing.T) {
		runner := toolstest.NewRunner(testPaths)
		runner.On("vcf_validator_linux", toolstest.Output(134, "terminate called after throwing an instance\n"))
		v := NewValidator(runner, testPaths, nil)

		_, err := v.Validate(ctx, writeVcf(t, "VCFv4.1"), t.TempDir())
		assert.ErrorIs(t, err, verrors.ErrValidation)
		assert.Contains(t, err.Error(), "terminate called")
	})

	t.Run("legacy tool for 4.0 persists its output", func(t *testing.T) {
		runner := toolstest.NewRunner(testPaths)
		runner.On("vcf-validator", toolstest.Output(0, ""))
		v := NewValidator(runner, testPaths, nil)
		reports := t.TempDir()

		res, err := v.Validate(ctx, writeVcf(t, "VCFv4.0"), reports)
		require.NoError(t, err)
		assert.Equal(t, ToolLegacy, res.Tool)
		assert.Equal(t, filepath.Join(reports, LegacyReportName), res.ReportPath)
		assert.FileExists(t, res.ReportPath)
	})

	t.Run("legacy tool errors", func(t *testing.T) {
		runner := toolstest.NewRunner(testPaths)
		runner.On("vcf-validator", toolstest.Output(0, "Error: column count mismatch at chr1:1"))
		v := NewValidator(runner, testPaths, nil)

		_, err := v.Validate(ctx, writeVcf(t, "VCFv4.0"), t.TempDir())
		assert.ErrorIs(t, err, verrors.ErrValidation)
		assert.Contains(t, err.Error(), "column count mismatch")
	})

	t.Run("old versions are rejected before any tool runs", func(t *testing.T) {
		runner := toolstest.NewRunner(testPaths)
		v := NewValidator(runner, testPaths, nil)

		_, err := v.Validate(ctx, writeVcf(t, "VCFv3.3"), t.TempDir())
		assert.ErrorIs(t, err, verrors.ErrVersion)
		assert.Empty(t, runner.Calls)
	})
}
