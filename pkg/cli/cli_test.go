package cli_test

import (
	"strings"
	"testing"

	"github.com/m-mizutani/gt"
	"github.com/m-mizutani/scholar/pkg/cli"
)

func TestReportFileName(t *testing.T) {
	gt.Equal(t, cli.ReportFileName("Quantum Computing"), "quantum_computing.md")
	gt.Equal(t, cli.ReportFileName(" Large Language Models "), "large_language_models.md")
}

func TestPreview(t *testing.T) {
	gt.Equal(t, cli.Preview("short"), "short...")

	long := strings.Repeat("a", 100)
	gt.Equal(t, cli.Preview(long), strings.Repeat("a", 80)+"...")
}
