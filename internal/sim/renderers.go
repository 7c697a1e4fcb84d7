// Package sim provides software stand-ins for the installation's hardware:
// role renderers that log a one-line summary instead of driving pixels, and
// a scripted input driver that replays a visitor session onto the bus. Used
// by the run --simulate path.
package sim

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"strings"

	"github.com/GoCodeAlone/artifact/animation"
	"github.com/GoCodeAlone/artifact/compositor"
)

// LogRenderer prints each frame's resolved values for one role as a single
// log line. Frames with no values are skipped to keep the output readable.
type LogRenderer struct {
	role   animation.ChannelRole
	logger *slog.Logger

	// Every counts down so only one frame in Every is logged; a 60 Hz
	// clock would otherwise flood the terminal.
	Every   uint64
	printed uint64
}

// NewLogRenderer creates a renderer logging frames for the given role.
func NewLogRenderer(role animation.ChannelRole, logger *slog.Logger) *LogRenderer {
	if logger == nil {
		logger = slog.Default()
	}
	return &LogRenderer{role: role, logger: logger, Every: 30}
}

// Render implements compositor.RoleRenderer.
func (r *LogRenderer) Render(_ context.Context, frame compositor.Frame) error {
	if len(frame.Values) == 0 {
		return nil
	}
	r.printed++
	if r.Every > 1 && frame.Number%r.Every != 0 {
		return nil
	}

	keys := make([]string, 0, len(frame.Values))
	for k := range frame.Values {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, fmt.Sprintf("%s=%.3f", k, frame.Values[k]))
	}

	r.logger.Info("frame",
		"role", string(r.role),
		"n", frame.Number,
		"values", strings.Join(parts, " "))
	return nil
}

// RegisterAll attaches a log renderer for each of the three channel roles.
func RegisterAll(c *compositor.Compositor, logger *slog.Logger) error {
	for _, role := range []animation.ChannelRole{
		animation.RolePrimary,
		animation.RoleAmbient,
		animation.RoleStatus,
	} {
		if err := c.RegisterRenderer(role, NewLogRenderer(role, logger)); err != nil {
			return err
		}
	}
	return nil
}
