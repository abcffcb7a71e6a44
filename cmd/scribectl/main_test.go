package main

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetErr(&out)
	rootCmd.SetArgs(args)
	err := rootCmd.Execute()
	return out.String(), err
}

func TestSeedPromptsCommand(t *testing.T) {
	dir := t.TempDir()
	t.Setenv("SCRIBE_LOG_DIR", filepath.Join(dir, "logs"))
	seed := filepath.Join(dir, "seed.yaml")
	require.NoError(t, os.WriteFile(seed, []byte(`prompts:
  - id: opening-hook
    title: 开篇钩子
    type: ai_writing
    content: 写一个吸引人的开头
  - title: 润色对白
    type: ai_polishing
    content: 让对白更自然
`), 0o644))

	out, err := execute(t, "--data-dir", filepath.Join(dir, "data"), "seed", "prompts", seed)
	require.NoError(t, err)
	assert.Contains(t, out, "已导入 2 条推荐提示词")
}

func TestMemberGrantRejectsBadDate(t *testing.T) {
	dir := t.TempDir()
	t.Setenv("SCRIBE_LOG_DIR", filepath.Join(dir, "logs"))

	_, err := execute(t, "--data-dir", filepath.Join(dir, "data"), "member", "grant", "u1", "--level", "gold", "--until", "2030/01/01")
	assert.Error(t, err)
}

func TestQuotaSetCommand(t *testing.T) {
	dir := t.TempDir()
	t.Setenv("SCRIBE_LOG_DIR", filepath.Join(dir, "logs"))

	out, err := execute(t, "--data-dir", filepath.Join(dir, "data"), "quota", "set", "u1", "--remaining", "5000", "--daily", "100")
	require.NoError(t, err)
	assert.Contains(t, out, "剩余字数 5000")
}
