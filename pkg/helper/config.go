package helper

import (
	"os"
	"path/filepath"
)

// ConfDirEnv names a directory searched before the working directory.
const ConfDirEnv = "CLEANBILL_CONF_DIR"

// GetCfgPath returns the path to the configuration file.
//
// Priority:
// 1. If filename is an absolute path, return it directly.
// 2. Check $CLEANBILL_CONF_DIR/{filename}
// 3. Check ./{filename} and ./configs/{filename}
// 4. Otherwise, fallback to /etc/cleanbill/{filename}
func GetCfgPath(filename string) string {
	if filename == "" {
		panic("filename cannot be empty")
	}

	if filepath.IsAbs(filename) {
		return filename
	}

	for _, dir := range candidateDirs() {
		if p := existing(filepath.Join(dir, filename)); p != "" {
			return p
		}
	}

	return filepath.Join("/etc/cleanbill", filename)
}

func candidateDirs() []string {
	var dirs []string
	if d := os.Getenv(ConfDirEnv); d != "" {
		dirs = append(dirs, d)
	}
	if wd, err := os.Getwd(); err == nil && wd != "" {
		dirs = append(dirs, wd, filepath.Join(wd, "configs"))
	}
	return dirs
}

func existing(candidate string) string {
	if _, err := os.Stat(candidate); err != nil {
		return ""
	}
	abs, err := filepath.Abs(candidate)
	if err != nil {
		return ""
	}
	return abs
}
