package tool

import "github.com/hupe1980/agentloop/core"

// Builtins returns the standard tool set configured from a validated turn
// configuration: read_file, write_file, list_directory, calculate, web_search
// and get_system_info.
func Builtins(cfg core.TurnConfig) []*Spec {
	sandbox := NewSandbox(cfg)
	return []*Spec{
		NewReadFileSpec(sandbox),
		NewWriteFileSpec(sandbox),
		NewListDirectorySpec(sandbox),
		NewCalculateSpec(),
		NewWebSearchSpec(),
		NewSystemInfoSpec(),
	}
}
