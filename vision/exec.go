package vision

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os/exec"
)

// ExecCamera captures and classifies a picture by running an external
// command that prints a JSON array of labels on stdout.
type ExecCamera struct {
	Command []string
}

func (e ExecCamera) CaptureAndClassify(ctx context.Context) ([]Label, error) {
	if len(e.Command) == 0 {
		return nil, errors.New("camera command is not configured")
	}

	out, err := exec.CommandContext(ctx, e.Command[0], e.Command[1:]...).Output()
	if err != nil {
		return nil, fmt.Errorf("failed to run camera command: %w", err)
	}

	var labels []Label
	if err := json.Unmarshal(out, &labels); err != nil {
		return nil, fmt.Errorf("failed to parse camera output: %w", err)
	}
	return labels, nil
}
