// Package identity rotates the network identity (the VPN exit) that the
// scrapers are seen from.
package identity

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os/exec"
	"strings"
	"vicharvest/lib/telemetry"
)

const (
	report_rotator_rotate     = "rotator.rotate"
	report_rotator_disconnect = "rotator.disconnect"
)

// ErrRotationFailed is returned once the bounded retry policy of Rotate is
// exhausted, it is fatal for whatever session requested the rotation.
var ErrRotationFailed = errors.New("identity rotation failed")

// Rotator is the external operation that changes the network identity.
type Rotator interface {
	// Rotate connects to a new identity, replacing the current one.
	Rotate(ctx context.Context) error
	// Disconnect drops the current identity.
	Disconnect(ctx context.Context) error
}

// Rotate runs the rotation policy: rotate, and on failure disconnect then
// rotate once more. A failure of the retry (or of the disconnect) wraps
// ErrRotationFailed.
func Rotate(ctx context.Context, r Rotator, tel telemetry.API) error {
	err := r.Rotate(ctx)
	if err == nil {
		return nil
	}
	tel.ReportWarning(report_rotator_rotate, fmt.Errorf("first attempt: %w", err))

	err = r.Disconnect(ctx)
	if err != nil {
		tel.ReportBroken(report_rotator_disconnect, err)
		return fmt.Errorf("%w: disconnect: %w", ErrRotationFailed, err)
	}
	err = r.Rotate(ctx)
	if err != nil {
		tel.ReportBroken(report_rotator_rotate, fmt.Errorf("second attempt: %w", err))
		return fmt.Errorf("%w: %w", ErrRotationFailed, err)
	}
	return nil
}

// CommandRotator rotates by invoking a VPN CLI.
type CommandRotator struct {
	RotateCommand     []string
	DisconnectCommand []string

	tel telemetry.API
}

// NewProtonRotator returns a CommandRotator for protonvpn-cli.
func NewProtonRotator(tel telemetry.API) CommandRotator {
	return NewCommandRotator(
		[]string{"protonvpn-cli", "c", "-r"},
		[]string{"protonvpn-cli", "d"},
		tel,
	)
}

func NewCommandRotator(rotate, disconnect []string, tel telemetry.API) CommandRotator {
	return CommandRotator{
		RotateCommand:     rotate,
		DisconnectCommand: disconnect,
		tel:               telemetry.NewScopedAPI("identity", tel),
	}
}

func (c CommandRotator) run(ctx context.Context, command []string) error {
	if len(command) == 0 {
		return fmt.Errorf("empty command")
	}

	var output bytes.Buffer
	cmd := exec.CommandContext(ctx, command[0], command[1:]...)
	cmd.Stdout = &output
	cmd.Stderr = &output

	err := cmd.Run()
	c.tel.ReportDebug(
		"command finished",
		telemetry.KV{Key: "command", Value: strings.Join(command, " ")},
		telemetry.KV{Key: "output", Value: strings.TrimSpace(output.String())},
	)
	if err != nil {
		return fmt.Errorf("%s: %w", strings.Join(command, " "), err)
	}
	return nil
}

func (c CommandRotator) Rotate(ctx context.Context) error {
	return c.run(ctx, c.RotateCommand)
}

func (c CommandRotator) Disconnect(ctx context.Context) error {
	return c.run(ctx, c.DisconnectCommand)
}

// Noop is a Rotator for running without a VPN.
type Noop struct{}

func (Noop) Rotate(context.Context) error     { return nil }
func (Noop) Disconnect(context.Context) error { return nil }
