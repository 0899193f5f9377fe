// Package influxdb exports access metrics to InfluxDB v2.
//
// Every protocol event becomes a point in the access_events measurement,
// tagged with site, kind and (for failures) stage:
//
//	access_events,site=door-001,kind=denied count=1i,device="phone/AA:.. (-70)"
//
// The client implements access.Recorder, so it plugs straight into the
// manager's recorder chain. Writes are batched and never block the door.
//
//	client, err := influxdb.Connect(cfg.InfluxDB, cfg.Site.ID)
//	if err != nil {
//	    return err
//	}
//	defer client.Close()
//	client.SetOnError(func(err error) { log.Warn("influx write", "error", err) })
package influxdb
