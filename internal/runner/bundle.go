package runner

import (
	"context"
	"fmt"
	"os"
	"os/exec"

	"github.com/xcflow/xcflow/internal/xcresult"
)

// LoadBundle reads the test-node tree from a result bundle via xcresulttool.
// Matches the xcresult.BundleLoader signature.
func LoadBundle(ctx context.Context, bundlePath string) ([]xcresult.Node, error) {
	if _, err := os.Stat(bundlePath); err != nil {
		return nil, fmt.Errorf("result bundle unavailable: %w", err)
	}

	cmd := exec.CommandContext(ctx, "xcrun", "xcresulttool",
		"get", "test-results", "tests",
		"--path", bundlePath,
		"--compact",
	)
	out, err := cmd.Output()
	if err != nil {
		return nil, fmt.Errorf("xcresulttool failed: %w", err)
	}
	return xcresult.ParseTestNodes(out)
}
