package config

import (
	"os"
	"path/filepath"
	"strings"
)

// HomeEnv overrides the base directory runtime paths are resolved against.
const HomeEnv = "STUDIO_HOME"

// BaseDir is $STUDIO_HOME when set, else the directory of the running
// executable, else the working directory.
func BaseDir() string {
	if home := strings.TrimSpace(os.Getenv(HomeEnv)); home != "" {
		return filepath.Clean(home)
	}
	if exe, err := os.Executable(); err == nil && exe != "" {
		if resolved, err := filepath.EvalSymlinks(exe); err == nil {
			exe = resolved
		}
		return filepath.Dir(exe)
	}
	if wd, err := os.Getwd(); err == nil {
		return wd
	}
	return "."
}

// ResolveRuntimePath resolves raw (or fallback when raw is empty) against
// BaseDir. Absolute paths are returned cleaned.
func ResolveRuntimePath(raw, fallback string) string {
	target := strings.TrimSpace(raw)
	if target == "" {
		target = strings.TrimSpace(fallback)
	}
	if target == "" {
		return BaseDir()
	}
	if filepath.IsAbs(target) {
		return filepath.Clean(target)
	}
	return filepath.Join(BaseDir(), target)
}
