package tool

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWriteThenRead_RoundTrip(t *testing.T) {
	sb := NewSandbox(testConfig(t))
	write := NewWriteFileSpec(sb)
	read := NewReadFileSpec(sb)
	ctx := context.Background()

	content := "hello\nworld\n"
	res := write.Handler(ctx, map[string]any{"path": "notes.txt", "content": content})
	require.True(t, res.OK, res.Message)

	res = read.Handler(ctx, map[string]any{"path": "notes.txt"})
	require.True(t, res.OK, res.Message)
	assert.Equal(t, content, res.Payload)
}

func TestWriteFile_CreatesParentDirectories(t *testing.T) {
	sb := NewSandbox(testConfig(t))
	write := NewWriteFileSpec(sb)

	res := write.Handler(context.Background(), map[string]any{"path": "a/b/c.txt", "content": "x"})
	require.True(t, res.OK, res.Message)

	_, err := os.Stat(filepath.Join(sb.Root(), "a", "b", "c.txt"))
	assert.NoError(t, err)
}

func TestReadFile_NotFound(t *testing.T) {
	sb := NewSandbox(testConfig(t))
	read := NewReadFileSpec(sb)

	res := read.Handler(context.Background(), map[string]any{"path": "missing.txt"})
	assert.False(t, res.OK)
	assert.Equal(t, CodeFileNotFound, res.Code)
}

func TestReadFile_Directory(t *testing.T) {
	cfg := testConfig(t)
	require.NoError(t, os.Mkdir(filepath.Join(cfg.WorkingDir, "sub.txt"), 0o755))

	sb := NewSandbox(cfg)
	read := NewReadFileSpec(sb)

	res := read.Handler(context.Background(), map[string]any{"path": "sub.txt"})
	assert.False(t, res.OK)
	assert.Equal(t, CodeNotAFile, res.Code)
}

func TestReadFile_OutsideSandboxNoIO(t *testing.T) {
	sb := NewSandbox(testConfig(t))
	read := NewReadFileSpec(sb)

	res := read.Handler(context.Background(), map[string]any{"path": "../../etc/passwd"})
	assert.False(t, res.OK)
	assert.Equal(t, CodePathOutsideSandbox, res.Code)
}

func TestWriteFile_OutsideSandboxNoIO(t *testing.T) {
	sb := NewSandbox(testConfig(t))
	write := NewWriteFileSpec(sb)

	res := write.Handler(context.Background(), map[string]any{"path": "../escape.txt", "content": "x"})
	assert.False(t, res.OK)
	assert.Equal(t, CodePathOutsideSandbox, res.Code)

	_, err := os.Stat(filepath.Join(filepath.Dir(sb.Root()), "escape.txt"))
	assert.True(t, os.IsNotExist(err))
}

func TestReadFile_SymlinkEscapeRejected(t *testing.T) {
	sb := NewSandbox(testConfig(t))

	outside := t.TempDir()
	secret := filepath.Join(outside, "secret.txt")
	require.NoError(t, os.WriteFile(secret, []byte("top secret"), 0o644))
	require.NoError(t, os.Symlink(secret, filepath.Join(sb.Root(), "link.txt")))

	res := NewReadFileSpec(sb).Handler(context.Background(), map[string]any{"path": "link.txt"})
	assert.False(t, res.OK)
	assert.Equal(t, CodePathOutsideSandbox, res.Code)
	assert.NotContains(t, res.Payload, "top secret")
}

func TestWriteFile_SymlinkedDirEscapeRejected(t *testing.T) {
	sb := NewSandbox(testConfig(t))

	outside := t.TempDir()
	require.NoError(t, os.Symlink(outside, filepath.Join(sb.Root(), "sub")))

	res := NewWriteFileSpec(sb).Handler(context.Background(), map[string]any{"path": "sub/out.txt", "content": "x"})
	assert.False(t, res.OK)
	assert.Equal(t, CodePathOutsideSandbox, res.Code)

	_, err := os.Stat(filepath.Join(outside, "out.txt"))
	assert.True(t, os.IsNotExist(err))
}

func TestReadWriteFile_DisallowedExtension(t *testing.T) {
	sb := NewSandbox(testConfig(t))

	res := NewWriteFileSpec(sb).Handler(context.Background(), map[string]any{"path": "x.exe", "content": "x"})
	assert.Equal(t, CodeFileTypeNotAllowed, res.Code)

	res = NewReadFileSpec(sb).Handler(context.Background(), map[string]any{"path": "x.exe"})
	assert.Equal(t, CodeFileTypeNotAllowed, res.Code)
}

func TestWriteFile_TooLarge(t *testing.T) {
	cfg := testConfig(t)
	cfg.MaxFileSize = 8
	sb := NewSandbox(cfg)

	res := NewWriteFileSpec(sb).Handler(context.Background(), map[string]any{
		"path":    "big.txt",
		"content": strings.Repeat("a", 9),
	})
	assert.False(t, res.OK)
	assert.Equal(t, CodeFileTooLarge, res.Code)
}

func TestReadFile_TooLarge(t *testing.T) {
	cfg := testConfig(t)
	require.NoError(t, os.WriteFile(filepath.Join(cfg.WorkingDir, "big.txt"), []byte(strings.Repeat("a", 16)), 0o644))
	cfg.MaxFileSize = 8
	sb := NewSandbox(cfg)

	res := NewReadFileSpec(sb).Handler(context.Background(), map[string]any{"path": "big.txt"})
	assert.False(t, res.OK)
	assert.Equal(t, CodeFileTooLarge, res.Code)
}

func TestReadFile_InvalidUTF8(t *testing.T) {
	cfg := testConfig(t)
	require.NoError(t, os.WriteFile(filepath.Join(cfg.WorkingDir, "bin.txt"), []byte{0xff, 0xfe, 0x00}, 0o644))
	sb := NewSandbox(cfg)

	res := NewReadFileSpec(sb).Handler(context.Background(), map[string]any{"path": "bin.txt"})
	assert.False(t, res.OK)
	assert.Equal(t, CodeEncodingError, res.Code)
}

func TestReadWrite_AlternateEncoding(t *testing.T) {
	sb := NewSandbox(testConfig(t))
	ctx := context.Background()

	res := NewWriteFileSpec(sb).Handler(ctx, map[string]any{
		"path": "latin.txt", "content": "café", "encoding": "latin1",
	})
	require.True(t, res.OK, res.Message)

	res = NewReadFileSpec(sb).Handler(ctx, map[string]any{"path": "latin.txt", "encoding": "latin1"})
	require.True(t, res.OK, res.Message)
	assert.Equal(t, "café", res.Payload)
}

func TestReadFile_UnknownEncoding(t *testing.T) {
	cfg := testConfig(t)
	require.NoError(t, os.WriteFile(filepath.Join(cfg.WorkingDir, "a.txt"), []byte("x"), 0o644))
	sb := NewSandbox(cfg)

	res := NewReadFileSpec(sb).Handler(context.Background(), map[string]any{"path": "a.txt", "encoding": "no-such-charset"})
	assert.False(t, res.OK)
	assert.Equal(t, CodeEncodingError, res.Code)
}

type listingPayload struct {
	Directory   string     `json:"directory"`
	Files       []DirEntry `json:"files"`
	Directories []DirEntry `json:"directories"`
	TotalItems  int        `json:"total_items"`
}

func TestListDirectory(t *testing.T) {
	cfg := testConfig(t)
	require.NoError(t, os.WriteFile(filepath.Join(cfg.WorkingDir, "banana.txt"), []byte("xx"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(cfg.WorkingDir, "Apple.txt"), []byte("x"), 0o644))
	require.NoError(t, os.Mkdir(filepath.Join(cfg.WorkingDir, "zdir"), 0o755))
	require.NoError(t, os.Mkdir(filepath.Join(cfg.WorkingDir, "Adir"), 0o755))
	sb := NewSandbox(cfg)

	res := NewListDirectorySpec(sb).Handler(context.Background(), map[string]any{})
	require.True(t, res.OK, res.Message)

	var listing listingPayload
	require.NoError(t, json.Unmarshal([]byte(res.Payload), &listing))

	// Files and directories are separate, each sorted case-insensitively.
	require.Len(t, listing.Files, 2)
	assert.Equal(t, "Apple.txt", listing.Files[0].Name)
	assert.Equal(t, "banana.txt", listing.Files[1].Name)
	require.Len(t, listing.Directories, 2)
	assert.Equal(t, "Adir", listing.Directories[0].Name)
	assert.Equal(t, "zdir", listing.Directories[1].Name)
	assert.Equal(t, 4, listing.TotalItems)

	// Per-entry metadata is populated.
	assert.Equal(t, int64(1), listing.Files[0].Size)
	assert.Equal(t, int64(2), listing.Files[1].Size)
	for _, entry := range append(listing.Files, listing.Directories...) {
		assert.NotEmpty(t, entry.Modified)
	}
}

func TestListDirectory_Empty(t *testing.T) {
	sb := NewSandbox(testConfig(t))

	res := NewListDirectorySpec(sb).Handler(context.Background(), map[string]any{})
	require.True(t, res.OK, res.Message)

	var listing listingPayload
	require.NoError(t, json.Unmarshal([]byte(res.Payload), &listing))
	assert.Empty(t, listing.Files)
	assert.Empty(t, listing.Directories)
	assert.Equal(t, 0, listing.TotalItems)
}

func TestListDirectory_NotADirectory(t *testing.T) {
	cfg := testConfig(t)
	require.NoError(t, os.WriteFile(filepath.Join(cfg.WorkingDir, "a.txt"), []byte("x"), 0o644))
	sb := NewSandbox(cfg)

	res := NewListDirectorySpec(sb).Handler(context.Background(), map[string]any{"path": "a.txt"})
	assert.False(t, res.OK)
	assert.Equal(t, CodeNotADirectory, res.Code)
}

func TestListDirectory_Missing(t *testing.T) {
	sb := NewSandbox(testConfig(t))

	res := NewListDirectorySpec(sb).Handler(context.Background(), map[string]any{"path": "nope"})
	assert.False(t, res.OK)
	assert.Equal(t, CodeFileNotFound, res.Code)
}
