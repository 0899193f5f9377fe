package console

import (
	"context"
	"errors"
	"time"

	"github.com/nerrad567/doorman/internal/access"
	"github.com/nerrad567/doorman/internal/device"
)

// Detector reads device addresses, one per line, and returns the first
// registered one. Unknown and malformed addresses are ignored.
type Detector struct {
	console *Console
	lookup  access.Lookup[device.Address, device.Device]
}

// NewDetector creates a console detector.
func NewDetector(c *Console, lookup access.Lookup[device.Address, device.Device]) *Detector {
	return &Detector{console: c, lookup: lookup}
}

// WaitForDevice implements access.Detector.
func (d *Detector) WaitForDevice(ctx context.Context) (device.Device, error) {
	for {
		line, err := d.console.ReadLine(ctx)
		if err != nil {
			return device.Device{}, err
		}

		addr, err := device.NormalizeAddress(line)
		if err != nil {
			continue
		}
		if dev, ok := d.lookup.Check(addr); ok {
			return dev, nil
		}
		d.console.Printf("device %s is not registered", addr)
	}
}

// Authenticator asks on the console whether to open for a device.
type Authenticator struct {
	console *Console
}

// NewAuthenticator creates a console authenticator.
func NewAuthenticator(c *Console) *Authenticator {
	return &Authenticator{console: c}
}

// Authenticate implements access.Authenticator. An empty answer denies.
// When timeout passes without an answer the result is Deny.
func (a *Authenticator) Authenticate(ctx context.Context, dev device.Device, timeout time.Duration) (access.Result, error) {
	waitCtx := ctx
	if timeout > 0 {
		var cancel context.CancelFunc
		waitCtx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	a.console.Printf("Device %s detected.\nopen (y)es, (N)o", dev)
	for {
		line, err := a.console.ReadLine(waitCtx)
		if err != nil {
			if errors.Is(err, context.DeadlineExceeded) && ctx.Err() == nil {
				a.console.Printf("no answer, denied")
				return access.Deny, nil
			}
			return access.Deny, err
		}

		result, err := access.ParseResult(line)
		if err != nil {
			a.console.Printf("please answer y or n")
			continue
		}
		return result, nil
	}
}

// Actuator prints instead of moving hardware.
type Actuator struct {
	console *Console
}

// NewActuator creates a console actuator.
func NewActuator(c *Console) *Actuator {
	return &Actuator{console: c}
}

// Open implements access.Actuator.
func (a *Actuator) Open() error {
	a.console.Printf("Open sesame")
	return nil
}

// Locker waits for Enter.
type Locker struct {
	console *Console
}

// NewLocker creates a console locker.
func NewLocker(c *Console) *Locker {
	return &Locker{console: c}
}

// WaitForLock implements access.Locker.
func (l *Locker) WaitForLock(ctx context.Context) error {
	l.console.Printf("Press [Enter] to lock...")
	_, err := l.console.ReadLine(ctx)
	return err
}

// ConfirmLock implements access.Locker.
func (l *Locker) ConfirmLock(context.Context) error {
	l.console.Printf("locked!")
	return nil
}

var (
	_ access.Detector[device.Device]      = (*Detector)(nil)
	_ access.Authenticator[device.Device] = (*Authenticator)(nil)
	_ access.Actuator                     = (*Actuator)(nil)
	_ access.Locker                       = (*Locker)(nil)
)
