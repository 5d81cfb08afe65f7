package tool

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"
	"unicode/utf8"

	"golang.org/x/text/encoding/ianaindex"
)

// decode converts raw file bytes into a string using the named IANA charset.
// UTF-8 is checked strictly since the registry decoder would silently replace
// invalid sequences.
func decode(data []byte, charset string) (string, Result) {
	name := strings.ToLower(strings.TrimSpace(charset))
	if name == "" || name == "utf-8" || name == "utf8" {
		if !utf8.Valid(data) {
			return "", Errf(CodeEncodingError, "file content is not valid UTF-8")
		}
		return string(data), Result{OK: true}
	}

	enc, err := ianaindex.IANA.Encoding(charset)
	if err != nil || enc == nil {
		return "", Errf(CodeEncodingError, "unknown encoding '%s'", charset)
	}
	decoded, err := enc.NewDecoder().Bytes(data)
	if err != nil {
		return "", Errf(CodeEncodingError, "failed to decode file as '%s': %v", charset, err)
	}
	return string(decoded), Result{OK: true}
}

// encode converts a string into raw bytes using the named IANA charset.
func encode(content, charset string) ([]byte, Result) {
	name := strings.ToLower(strings.TrimSpace(charset))
	if name == "" || name == "utf-8" || name == "utf8" {
		return []byte(content), Result{OK: true}
	}

	enc, err := ianaindex.IANA.Encoding(charset)
	if err != nil || enc == nil {
		return nil, Errf(CodeEncodingError, "unknown encoding '%s'", charset)
	}
	encoded, err := enc.NewEncoder().Bytes([]byte(content))
	if err != nil {
		return nil, Errf(CodeEncodingError, "failed to encode content as '%s': %v", charset, err)
	}
	return encoded, Result{OK: true}
}

// NewReadFileSpec creates the read_file tool. It reads a text file inside the
// sandbox, enforcing the extension allow list and the size cap before any
// content is loaded.
func NewReadFileSpec(sandbox *Sandbox) *Spec {
	return &Spec{
		Name:        "read_file",
		Description: "Read the contents of a text file inside the working directory.",
		Parameters: map[string]any{
			"type": "object",
			"properties": map[string]any{
				"path": map[string]any{
					"type":        "string",
					"description": "File path, relative to the working directory.",
					"minLength":   1,
				},
				"encoding": map[string]any{
					"type":        "string",
					"description": "Text encoding of the file. Defaults to utf-8.",
				},
			},
			"required": []string{"path"},
		},
		Handler: func(ctx context.Context, args map[string]any) Result {
			path, _ := args["path"].(string)
			charset, _ := args["encoding"].(string)

			abs, res := sandbox.Resolve(path)
			if !res.OK {
				return res
			}
			if res := sandbox.CheckExtension(abs); !res.OK {
				return res
			}

			info, err := os.Stat(abs)
			if err != nil {
				if os.IsNotExist(err) {
					return Errf(CodeFileNotFound, "file '%s' does not exist", path)
				}
				return Errf(CodeExecutionError, "failed to stat '%s': %v", path, err)
			}
			if info.IsDir() {
				return Errf(CodeNotAFile, "'%s' is a directory, not a file", path)
			}
			if !info.Mode().IsRegular() {
				return Errf(CodeNotAFile, "'%s' is not a regular file", path)
			}
			if info.Size() > sandbox.MaxFileSize() {
				return Errf(CodeFileTooLarge, "file '%s' is %d bytes, limit is %d", path, info.Size(), sandbox.MaxFileSize())
			}

			data, err := os.ReadFile(abs)
			if err != nil {
				return Errf(CodeExecutionError, "failed to read '%s': %v", path, err)
			}
			content, res := decode(data, charset)
			if !res.OK {
				return res
			}
			return Ok(content)
		},
	}
}

// NewWriteFileSpec creates the write_file tool. Writes are atomic from the
// caller's point of view: content is staged in a temp file and renamed.
func NewWriteFileSpec(sandbox *Sandbox) *Spec {
	return &Spec{
		Name:        "write_file",
		Description: "Write text content to a file inside the working directory, creating parent directories as needed.",
		Parameters: map[string]any{
			"type": "object",
			"properties": map[string]any{
				"path": map[string]any{
					"type":        "string",
					"description": "File path, relative to the working directory.",
					"minLength":   1,
				},
				"content": map[string]any{
					"type":        "string",
					"description": "Content to write.",
				},
				"encoding": map[string]any{
					"type":        "string",
					"description": "Text encoding to write with. Defaults to utf-8.",
				},
			},
			"required": []string{"path", "content"},
		},
		Handler: func(ctx context.Context, args map[string]any) Result {
			path, _ := args["path"].(string)
			content, _ := args["content"].(string)
			charset, _ := args["encoding"].(string)

			abs, res := sandbox.Resolve(path)
			if !res.OK {
				return res
			}
			if res := sandbox.CheckExtension(abs); !res.OK {
				return res
			}

			data, res := encode(content, charset)
			if !res.OK {
				return res
			}
			if int64(len(data)) > sandbox.MaxFileSize() {
				return Errf(CodeFileTooLarge, "content is %d bytes, limit is %d", len(data), sandbox.MaxFileSize())
			}

			if err := os.MkdirAll(filepath.Dir(abs), 0o755); err != nil {
				return Errf(CodeExecutionError, "failed to create parent directories for '%s': %v", path, err)
			}

			tmp, err := os.CreateTemp(filepath.Dir(abs), ".write-*")
			if err != nil {
				return Errf(CodeExecutionError, "failed to stage write for '%s': %v", path, err)
			}
			tmpName := tmp.Name()
			if _, err := tmp.Write(data); err != nil {
				tmp.Close()
				os.Remove(tmpName)
				return Errf(CodeExecutionError, "failed to write '%s': %v", path, err)
			}
			if err := tmp.Close(); err != nil {
				os.Remove(tmpName)
				return Errf(CodeExecutionError, "failed to write '%s': %v", path, err)
			}
			if err := os.Rename(tmpName, abs); err != nil {
				os.Remove(tmpName)
				return Errf(CodeExecutionError, "failed to write '%s': %v", path, err)
			}

			return Ok(fmt.Sprintf("Wrote %d bytes to %s", len(data), path))
		},
	}
}

// DirEntry describes one file or directory in a listing.
type DirEntry struct {
	Name     string `json:"name"`
	Size     int64  `json:"size"`
	Modified string `json:"modified"`
}

// NewListDirectorySpec creates the list_directory tool. Files and
// directories are listed separately, each sorted case-insensitively by name,
// with size and modification time per entry.
func NewListDirectorySpec(sandbox *Sandbox) *Spec {
	return &Spec{
		Name:        "list_directory",
		Description: "List the files and subdirectories of a directory inside the working directory, with size and modification time.",
		Parameters: map[string]any{
			"type": "object",
			"properties": map[string]any{
				"path": map[string]any{
					"type":        "string",
					"description": "Directory path, relative to the working directory. Defaults to the working directory itself.",
				},
			},
		},
		Handler: func(ctx context.Context, args map[string]any) Result {
			path, _ := args["path"].(string)
			if path == "" {
				path = "."
			}

			abs, res := sandbox.Resolve(path)
			if !res.OK {
				return res
			}

			info, err := os.Stat(abs)
			if err != nil {
				if os.IsNotExist(err) {
					return Errf(CodeFileNotFound, "directory '%s' does not exist", path)
				}
				return Errf(CodeExecutionError, "failed to stat '%s': %v", path, err)
			}
			if !info.IsDir() {
				return Errf(CodeNotADirectory, "'%s' is not a directory", path)
			}

			entries, err := os.ReadDir(abs)
			if err != nil {
				return Errf(CodeExecutionError, "failed to list '%s': %v", path, err)
			}

			files := make([]DirEntry, 0, len(entries))
			dirs := make([]DirEntry, 0)
			for _, entry := range entries {
				entryInfo, err := entry.Info()
				if err != nil {
					continue // entry vanished or is unreadable, skip it
				}
				item := DirEntry{
					Name:     entry.Name(),
					Size:     entryInfo.Size(),
					Modified: entryInfo.ModTime().Format(time.RFC3339),
				}
				if entry.IsDir() {
					dirs = append(dirs, item)
				} else {
					files = append(files, item)
				}
			}

			byLowerName := func(items []DirEntry) func(i, j int) bool {
				return func(i, j int) bool {
					return strings.ToLower(items[i].Name) < strings.ToLower(items[j].Name)
				}
			}
			sort.Slice(files, byLowerName(files))
			sort.Slice(dirs, byLowerName(dirs))

			payload, err := json.MarshalIndent(map[string]any{
				"directory":   abs,
				"files":       files,
				"directories": dirs,
				"total_items": len(files) + len(dirs),
			}, "", "  ")
			if err != nil {
				return Errf(CodeExecutionError, "failed to encode listing: %v", err)
			}
			return Ok(string(payload))
		},
	}
}
