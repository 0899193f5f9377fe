// Package process supervises a long-running child process.
//
// Doorman uses it for the Bluetooth scan helper: the child writes one
// sighting per line on stdout, the manager hands every line to OnLine and
// restarts the child when it dies.
//
//	mgr := process.NewManager(process.Config{
//	    Name:               "ble-scan",
//	    Binary:             "/usr/local/bin/ble-scan",
//	    RestartOnFailure:   true,
//	    RestartDelay:       5 * time.Second,
//	    MaxRestartAttempts: 10,
//	    OnLine:             handleLine,
//	    OnGiveUp:           tracker.Fail,
//	})
//	if err := mgr.Start(ctx); err != nil {
//	    return err
//	}
//	defer mgr.Stop()
package process
