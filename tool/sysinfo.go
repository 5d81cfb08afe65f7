package tool

import (
	"context"
	"encoding/json"
	"os"
	"runtime"
)

// NewSystemInfoSpec creates the get_system_info tool. It reports
// static host facts; only hostname and working directory lookup can fail.
func NewSystemInfoSpec() *Spec {
	return &Spec{
		Name:        "get_system_info",
		Description: "Return information about the host platform and runtime.",
		Parameters: map[string]any{
			"type":       "object",
			"properties": map[string]any{},
		},
		Handler: func(ctx context.Context, args map[string]any) Result {
			hostname, err := os.Hostname()
			if err != nil {
				return Errf(CodeUnavailable, "failed to read hostname: %v", err)
			}
			wd, err := os.Getwd()
			if err != nil {
				return Errf(CodeUnavailable, "failed to read working directory: %v", err)
			}

			payload, err := json.MarshalIndent(map[string]any{
				"platform":          runtime.GOOS,
				"architecture":      runtime.GOARCH,
				"runtime_version":   runtime.Version(),
				"cpu_count":         runtime.NumCPU(),
				"hostname":          hostname,
				"working_directory": wd,
			}, "", "  ")
			if err != nil {
				return Errf(CodeUnavailable, "failed to encode system info: %v", err)
			}
			return Ok(string(payload))
		},
	}
}
