// Package cli holds small command-line helpers shared by the docsync binaries.
package cli

import (
	"encoding/json"
	"fmt"
	"os"
	"runtime"
	"time"
)

// Version information for the docsync tool family.
const (
	Version   = "0.1.0"
	BuildDate = "2026-08-01"
	CommitSHA = "unknown" // Set during build via -ldflags.
)

// VersionInfo contains version and build information.
type VersionInfo struct {
	Version   string `json:"version"`
	BuildDate string `json:"build_date"`
	CommitSHA string `json:"commit_sha"`
	GoVersion string `json:"go_version"`
	Platform  string `json:"platform"`
	Arch      string `json:"arch"`
}

// GetVersionInfo returns structured version information.
func GetVersionInfo() *VersionInfo {
	return &VersionInfo{
		Version:   Version,
		BuildDate: BuildDate,
		CommitSHA: CommitSHA,
		GoVersion: runtime.Version(),
		Platform:  runtime.GOOS,
		Arch:      runtime.GOARCH,
	}
}

// PrintVersion prints version information in a consistent format.
func PrintVersion(toolName string, jsonOutput bool) {
	info := GetVersionInfo()

	if jsonOutput {
		data, err := json.MarshalIndent(map[string]interface{}{
			"tool":         toolName,
			"version_info": info,
		}, "", "  ")
		if err == nil {
			fmt.Println(string(data))
			return
		}
		fmt.Fprintf(os.Stderr, "failed to marshal version info: %v\n", err)
	}

	fmt.Printf("%s v%s\n", toolName, info.Version)
	fmt.Printf("Build Date: %s\n", info.BuildDate)
	if info.CommitSHA != "unknown" && info.CommitSHA != "" {
		fmt.Printf("Commit: %s\n", info.CommitSHA)
	}
	fmt.Printf("Go Version: %s\n", info.GoVersion)
	fmt.Printf("Platform: %s/%s\n", info.Platform, info.Arch)
}

// Logger writes free-form diagnostics to stderr, matching the LSP convention
// that stdout is reserved for framed protocol traffic.
type Logger struct {
	Verbose   bool
	DebugMode bool
}

// NewLogger creates a new stderr-backed logger.
func NewLogger(verbose, debug bool) *Logger {
	return &Logger{Verbose: verbose, DebugMode: debug}
}

func (l *Logger) stamp() string {
	return time.Now().Format("15:04:05.000")
}

// Info logs an info-level message when verbose logging is enabled.
func (l *Logger) Info(format string, args ...interface{}) {
	if l.Verbose {
		fmt.Fprintf(os.Stderr, "[INFO] %s: %s\n", l.stamp(), fmt.Sprintf(format, args...))
	}
}

// Debug logs a debug-level message when debug logging is enabled.
func (l *Logger) Debug(format string, args ...interface{}) {
	if l.DebugMode {
		fmt.Fprintf(os.Stderr, "[DEBUG] %s: %s\n", l.stamp(), fmt.Sprintf(format, args...))
	}
}

// Warn always logs a warning to stderr.
func (l *Logger) Warn(format string, args ...interface{}) {
	fmt.Fprintf(os.Stderr, "[WARN] %s: %s\n", l.stamp(), fmt.Sprintf(format, args...))
}

// Error always logs an error to stderr.
func (l *Logger) Error(format string, args ...interface{}) {
	fmt.Fprintf(os.Stderr, "[ERROR] %s: %s\n", l.stamp(), fmt.Sprintf(format, args...))
}
