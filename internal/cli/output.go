package cli

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/roach88/tickerguard/internal/audit"
)

// OutputFormatter renders command results as text or as a JSON envelope.
type OutputFormatter struct {
	Format  string
	Writer  io.Writer
	Verbose bool

	// ErrWriter receives verbose diagnostics; Writer is used when nil.
	ErrWriter io.Writer
}

// CLIResponse is the JSON envelope every command writes with --format json.
type CLIResponse struct {
	Status string    `json:"status"` // ok or error
	Data   any       `json:"data,omitempty"`
	Error  *CLIError `json:"error,omitempty"`
	RunID  string    `json:"run_id,omitempty"`
}

// CLIError carries one of the ErrCode values and a message.
type CLIError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Details any    `json:"details,omitempty"`
}

// IsJSON reports whether JSON output was requested.
func (f *OutputFormatter) IsJSON() bool {
	return f.Format == "json"
}

// Success writes data in an ok envelope, or prints it with %v in text mode.
func (f *OutputFormatter) Success(data any) error {
	if f.IsJSON() {
		return f.encode(CLIResponse{Status: "ok", Data: data})
	}
	fmt.Fprintln(f.Writer, data)
	return nil
}

// SuccessText prints text in text mode and data in JSON mode.
func (f *OutputFormatter) SuccessText(data any, format string, args ...any) error {
	if f.IsJSON() {
		return f.encode(CLIResponse{Status: "ok", Data: data})
	}
	fmt.Fprintf(f.Writer, format+"\n", args...)
	return nil
}

// Error reports a failure with one of the ErrCode values. Text mode shows
// details only under --verbose.
func (f *OutputFormatter) Error(code, message string, details any) error {
	if f.IsJSON() {
		return f.encode(CLIResponse{Status: "error", Error: &CLIError{Code: code, Message: message, Details: details}})
	}
	fmt.Fprintf(f.Writer, "Error [%s]: %s\n", code, message)
	if details != nil && f.Verbose {
		fmt.Fprintf(f.Writer, "Details: %v\n", details)
	}
	return nil
}

// Findings prints a page of findings followed by a summary. When headers
// is non-nil, findings are grouped by plugin in order of first appearance,
// each group under its header. JSON output wraps the page in a response
// with the run id.
func (f *OutputFormatter) Findings(runID string, page audit.Page, headers map[string]string) error {
	if f.IsJSON() {
		return f.encode(CLIResponse{Status: "ok", Data: page, RunID: runID})
	}
	if headers == nil {
		for _, finding := range page.Items {
			fmt.Fprintln(f.Writer, finding)
		}
	} else {
		var order []string
		groups := make(map[string][]audit.Finding)
		for _, finding := range page.Items {
			if _, seen := groups[finding.PluginID]; !seen {
				order = append(order, finding.PluginID)
			}
			groups[finding.PluginID] = append(groups[finding.PluginID], finding)
		}
		for _, id := range order {
			header, ok := headers[id]
			if !ok {
				header = id
			}
			fmt.Fprintf(f.Writer, "== %s\n", header)
			for _, finding := range groups[id] {
				fmt.Fprintf(f.Writer, "  %s\n", finding)
			}
		}
	}
	failures := len(audit.Failures(page.Items))
	fmt.Fprintf(f.Writer, "\n%d finding(s), %d failure(s) on page %d/%d (%d total)\n",
		len(page.Items), failures, page.Page, max(page.Pages, 1), page.Total)
	return nil
}

// VerboseLog prints a diagnostic line when --verbose is set. Diagnostics go
// to ErrWriter so they never mix with a JSON response.
func (f *OutputFormatter) VerboseLog(format string, args ...any) {
	if f.Verbose {
		fmt.Fprintf(f.diagnostics(), format+"\n", args...)
	}
}

func (f *OutputFormatter) diagnostics() io.Writer {
	if f.ErrWriter == nil {
		return f.Writer
	}
	return f.ErrWriter
}

func (f *OutputFormatter) encode(resp CLIResponse) error {
	enc := json.NewEncoder(f.Writer)
	enc.SetIndent("", "  ")
	return enc.Encode(resp)
}
