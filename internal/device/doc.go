// Package device defines the devices Doorman grants access to.
//
// A Device is a personal Bluetooth device (usually a phone) identified by its
// hardware address. The address is the registry identity; name and RSSI
// reference are carried along for prompts, logs and the presence policy.
//
// # Sources
//
// Devices reach the in-memory registry at startup from one of two sources:
//
//	┌────────────────────┐      ┌────────────────────┐
//	│  devices.yaml      │      │  SQLite devices    │
//	│  (FileSource)      │      │  (SQLiteRepository)│
//	└─────────┬──────────┘      └─────────┬──────────┘
//	          │  iter.Seq2[Entry, error]  │
//	          └─────────────┬─────────────┘
//	                        ▼
//	              registry.Registry.Load
//
// Both sources yield entries lazily and stop at the first invalid device.
//
// # Usage
//
//	reg := registry.New[string, device.Device]()
//	if _, err := reg.Load(device.FileSource("configs/devices.yaml")); err != nil {
//	    return err
//	}
package device
