package provision

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/tekuonline/uptivalab/internal/config"
)

// maxOutputTail bounds the command output kept in error messages
const maxOutputTail = 2048

// DefaultLibDirs are searched for shared-library dependencies
var DefaultLibDirs = []string{
	"/lib",
	"/lib64",
	"/usr/lib",
	"/usr/lib64",
	"/lib/x86_64-linux-gnu",
	"/usr/lib/x86_64-linux-gnu",
	"/lib/aarch64-linux-gnu",
	"/usr/lib/aarch64-linux-gnu",
}

// CommandInstaller provisions the runtime by running shell commands
type CommandInstaller struct {
	LibDirs []string
	logger  *zap.Logger
}

// NewCommandInstaller creates an installer searching DefaultLibDirs
func NewCommandInstaller(logger *zap.Logger) *CommandInstaller {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &CommandInstaller{LibDirs: DefaultLibDirs, logger: logger}
}

// FindArtifact returns the newest executable matching the configured glob
func (c *CommandInstaller) FindArtifact(cfg config.ProvisionConfig) (string, bool) {
	if cfg.InstallPath == "" || cfg.ExecutableGlob == "" {
		return "", false
	}

	matches, err := filepath.Glob(filepath.Join(cfg.InstallPath, cfg.ExecutableGlob))
	if err != nil || len(matches) == 0 {
		return "", false
	}

	sort.Sort(sort.Reverse(sort.StringSlice(matches)))
	for _, m := range matches {
		info, err := os.Stat(m)
		if err == nil && info.Mode().IsRegular() && info.Mode().Perm()&0o111 != 0 {
			return m, true
		}
	}
	return "", false
}

// MissingDependencies reports shared libraries (names containing ".so")
// absent from LibDirs and binaries absent from PATH.
func (c *CommandInstaller) MissingDependencies(cfg config.ProvisionConfig) []string {
	var missing []string
	for _, dep := range cfg.Dependencies {
		if strings.Contains(dep, ".so") {
			if !c.hasLibrary(dep) {
				missing = append(missing, dep)
			}
			continue
		}
		if _, err := exec.LookPath(dep); err != nil {
			missing = append(missing, dep)
		}
	}
	return missing
}

func (c *CommandInstaller) hasLibrary(name string) bool {
	for _, dir := range c.LibDirs {
		matches, _ := filepath.Glob(filepath.Join(dir, name+"*"))
		if len(matches) > 0 {
			return true
		}
	}
	return false
}

// InstallDependencies runs the configured dependency install command
func (c *CommandInstaller) InstallDependencies(ctx context.Context, cfg config.ProvisionConfig) error {
	if cfg.DepsInstallCommand == "" {
		return errors.New("no dependency install command configured")
	}
	return c.run(ctx, cfg, cfg.DepsInstallCommand)
}

// InstallArtifact runs the configured browser install command
func (c *CommandInstaller) InstallArtifact(ctx context.Context, cfg config.ProvisionConfig) error {
	if cfg.InstallCommand == "" {
		return errors.New("no install command configured")
	}
	if err := os.MkdirAll(cfg.InstallPath, 0o755); err != nil {
		return fmt.Errorf("create install path: %w", err)
	}
	return c.run(ctx, cfg, cfg.InstallCommand)
}

func (c *CommandInstaller) run(ctx context.Context, cfg config.ProvisionConfig, command string) error {
	cmd := exec.CommandContext(ctx, "sh", "-c", command)
	cmd.Env = append(os.Environ(), "BROWSER_INSTALL_PATH="+cfg.InstallPath)
	killProcessGroup(cmd)
	cmd.WaitDelay = 500 * time.Millisecond

	start := time.Now()
	out, err := cmd.CombinedOutput()
	c.logger.Debug("provisioning command finished",
		zap.String("command", command),
		zap.Duration("elapsed", time.Since(start)),
		zap.Error(err))
	if err != nil {
		return fmt.Errorf("%s: %w: %s", firstWord(command), err, tail(out))
	}
	return nil
}

func firstWord(s string) string {
	if fields := strings.Fields(s); len(fields) > 0 {
		return fields[0]
	}
	return s
}

func tail(out []byte) string {
	s := strings.TrimSpace(string(out))
	if len(s) > maxOutputTail {
		s = "..." + s[len(s)-maxOutputTail:]
	}
	return s
}
