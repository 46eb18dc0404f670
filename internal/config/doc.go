// Package config provides configuration parsing for ripple.
//
// The configuration lives in ripple.json, ripple.yaml (or .yml) or
// ripple.toml in the working directory. All three formats share one schema:
//
//	{
//	  "scheduler": { "maxUpdateCount": 100 },
//	  "server": { "addr": ":7070", "wsPath": "/ws", "shutdownTimeout": "5s" },
//	  "metrics": { "enabled": true, "namespace": "ripple", "path": "/metrics" },
//	  "tracing": { "enabled": false, "tracerName": "ripple" },
//	  "log": { "level": "info", "format": "text" },
//	  "snapshot": { "backend": "bolt", "path": "ripple.db", "key": "state" }
//	}
//
// # Usage
//
//	cfg, err := config.Load(".")
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	fmt.Println("Listening on", cfg.Server.Addr)
package config
