package main

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"maps"
	"slices"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/nerrad567/doorman/internal/device"
	"github.com/nerrad567/doorman/internal/infrastructure/config"
	"github.com/nerrad567/doorman/internal/infrastructure/database"
	"github.com/nerrad567/doorman/migrations"
)

// deviceStore is the device list behind devices.source.
type deviceStore interface {
	List(ctx context.Context) ([]device.Device, error)
	Upsert(ctx context.Context, d device.Device) error
	Delete(ctx context.Context, addr device.Address) error
	Close() error
}

func newDevicesCmd(c *cli) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "devices",
		Short: "Manage registered devices",
		Long: `Manage the devices allowed to request access. Changes go to the store
named by devices.source and take effect the next time the daemon starts.`,
	}
	cmd.AddCommand(
		newDevicesListCmd(c),
		newDevicesAddCmd(c),
		newDevicesRemoveCmd(c),
		newDevicesExportCmd(c),
	)
	return cmd
}

func newDevicesListCmd(c *cli) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List registered devices",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withDeviceStore(cmd.Context(), c, func(ctx context.Context, store deviceStore) error {
				devices, err := store.List(ctx)
				if err != nil {
					return err
				}
				if len(devices) == 0 {
					fmt.Fprintln(c.out, "no devices registered")
					return nil
				}
				w := tabwriter.NewWriter(c.out, 0, 0, 2, ' ', 0)
				fmt.Fprintln(w, "ADDRESS\tNAME\tRSSI")
				for _, d := range devices {
					rssi := "-"
					if d.RSSIReference != 0 {
						rssi = fmt.Sprint(d.RSSIReference)
					}
					fmt.Fprintf(w, "%s\t%s\t%s\n", d.Address, d.Name, rssi)
				}
				return w.Flush()
			})
		},
	}
}

func newDevicesAddCmd(c *cli) *cobra.Command {
	var (
		name string
		rssi int
	)
	cmd := &cobra.Command{
		Use:   "add ADDRESS",
		Short: "Register a device, replacing any entry with the same address",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			d, err := device.Normalize(device.Device{
				Address:       args[0],
				Name:          name,
				RSSIReference: rssi,
			})
			if err != nil {
				return err
			}
			return withDeviceStore(cmd.Context(), c, func(ctx context.Context, store deviceStore) error {
				if err := store.Upsert(ctx, d); err != nil {
					return err
				}
				fmt.Fprintf(c.out, "registered %s\n", d.Address)
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&name, "name", "", "human readable device name")
	cmd.Flags().IntVar(&rssi, "rssi", 0, "reference signal strength in dBm (0 for none)")
	return cmd
}

func newDevicesRemoveCmd(c *cli) *cobra.Command {
	return &cobra.Command{
		Use:     "remove ADDRESS",
		Aliases: []string{"rm"},
		Short:   "Unregister a device",
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			addr, err := device.NormalizeAddress(args[0])
			if err != nil {
				return err
			}
			return withDeviceStore(cmd.Context(), c, func(ctx context.Context, store deviceStore) error {
				if err := store.Delete(ctx, addr); err != nil {
					return err
				}
				fmt.Fprintf(c.out, "removed %s\n", addr)
				return nil
			})
		},
	}
}

func newDevicesExportCmd(c *cli) *cobra.Command {
	return &cobra.Command{
		Use:   "export [FILE]",
		Short: "Write the registered devices as a YAML device file",
		Long: `Write the registered devices in the devices.file format. Without FILE
the list goes to standard output. Useful for moving from a file source
to the database or back.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withDeviceStore(cmd.Context(), c, func(ctx context.Context, store deviceStore) error {
				devices, err := store.List(ctx)
				if err != nil {
					return err
				}
				if len(args) == 1 {
					return device.WriteFile(args[0], devices)
				}
				data, err := yaml.Marshal(device.File{Devices: devices})
				if err != nil {
					return fmt.Errorf("encoding devices: %w", err)
				}
				_, err = c.out.Write(data)
				return err
			})
		},
	}
}

func withDeviceStore(ctx context.Context, c *cli, fn func(context.Context, deviceStore) error) error {
	cfg, err := c.loadConfig()
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}
	store, err := openDeviceStore(ctx, cfg)
	if err != nil {
		return err
	}
	defer store.Close() //nolint:errcheck // nothing useful to do on close failure

	return fn(ctx, store)
}

func openDeviceStore(ctx context.Context, cfg *config.Config) (deviceStore, error) {
	if cfg.Devices.Source != config.DeviceSourceDatabase {
		return fileStore{path: cfg.Devices.File}, nil
	}

	db, err := database.Open(ctx, database.Config{
		Path:        cfg.Database.Path,
		WALMode:     cfg.Database.WALMode,
		BusyTimeout: cfg.Database.BusyTimeout,
	})
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}
	if err := db.Migrate(ctx, migrations.FS); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("running migrations: %w", err)
	}
	return dbStore{SQLiteRepository: device.NewSQLiteRepository(db.DB), db: db}, nil
}

type dbStore struct {
	*device.SQLiteRepository
	db *database.DB
}

func (s dbStore) Close() error { return s.db.Close() }

// fileStore edits the YAML device file in place. A missing file reads as
// an empty list. Repeated addresses collapse to their last entry, the one
// the registry keeps when it loads the file.
type fileStore struct {
	path string
}

func (s fileStore) List(context.Context) ([]device.Device, error) {
	byAddr := make(map[device.Address]device.Device)
	for entry, err := range device.FileSource(s.path) {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, nil
		}
		if err != nil {
			return nil, err
		}
		byAddr[entry.Key] = entry.Device
	}

	devices := slices.Collect(maps.Values(byAddr))
	slices.SortFunc(devices, func(a, b device.Device) int {
		return strings.Compare(a.Address, b.Address)
	})
	return devices, nil
}

func (s fileStore) Upsert(ctx context.Context, d device.Device) error {
	devices, err := s.List(ctx)
	if err != nil {
		return err
	}
	i := slices.IndexFunc(devices, func(e device.Device) bool { return e.Address == d.Address })
	if i >= 0 {
		devices[i] = d
	} else {
		devices = append(devices, d)
	}
	return device.WriteFile(s.path, devices)
}

func (s fileStore) Delete(ctx context.Context, addr device.Address) error {
	devices, err := s.List(ctx)
	if err != nil {
		return err
	}
	i := slices.IndexFunc(devices, func(e device.Device) bool { return e.Address == addr })
	if i < 0 {
		return fmt.Errorf("%w: %s", device.ErrDeviceNotFound, addr)
	}
	return device.WriteFile(s.path, slices.Delete(devices, i, i+1))
}

func (fileStore) Close() error { return nil }
