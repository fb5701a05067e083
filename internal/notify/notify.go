package notify

import (
	"context"
	"fmt"
	"io"
	"os/exec"

	"github.com/PolarWolf314/buildseal/internal/logging"
	"github.com/PolarWolf314/buildseal/internal/ui"
)

// Messages announced at each stage of a build.
const (
	MsgPrompt      = "Enter password to continue."
	MsgDenied      = "Access denied."
	MsgDownloading = "Downloading repository."
	MsgBuilding    = "Building executable."
	MsgBuildFailed = "Build failed."
	MsgSecured     = "Build completed and secured."
	MsgTampered    = "Tamper detected."
)

// Announcer delivers short status messages to the operator. Delivery is
// best-effort: an announcer never fails the operation that called it.
type Announcer interface {
	Announce(ctx context.Context, message string)
}

// Nop discards every message.
type Nop struct{}

func (Nop) Announce(context.Context, string) {}

// Console writes each message as one line to Out.
type Console struct {
	Out io.Writer
}

func (c Console) Announce(_ context.Context, message string) {
	if c.Out == nil {
		return
	}
	fmt.Fprintf(c.Out, "%s %s\n", ui.Info.Sprint("→"), message)
}

// Speech passes each message as the final argument to an external
// text-to-speech command such as espeak or say.
type Speech struct {
	Command []string
	Log     *logger.Logger
}

func (s Speech) Announce(ctx context.Context, message string) {
	if len(s.Command) == 0 {
		return
	}

	args := append(append([]string{}, s.Command[1:]...), message)
	// #nosec G204 -- the command comes from the operator's own config file.
	cmd := exec.CommandContext(ctx, s.Command[0], args...)
	if out, err := cmd.CombinedOutput(); err != nil && s.Log != nil {
		s.Log.Debugf("Speech command %q failed: %v: %s", s.Command[0], err, out)
	}
}

// Multi fans a message out to every announcer in order.
type Multi []Announcer

func (m Multi) Announce(ctx context.Context, message string) {
	for _, a := range m {
		if a != nil {
			a.Announce(ctx, message)
		}
	}
}

// Recorder keeps every message in memory.
type Recorder struct {
	Messages []string
}

func (r *Recorder) Announce(_ context.Context, message string) {
	r.Messages = append(r.Messages, message)
}
