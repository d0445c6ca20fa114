// Package config loads reactive.json, the configuration file shared by the
// reactive CLI and applications that embed the engine.
//
// The file may also be written as reactive.yaml or reactive.yml. Missing
// fields take defaults, so an empty object is a valid configuration.
//
// # Configuration File Structure
//
//	{
//	  "engine": {
//	    "devMode": true,
//	    "maxEffectRunsPerFlush": 100000,
//	    "strictEffects": "warn",
//	    "logEffectRuns": false
//	  },
//	  "log": {
//	    "level": "info",
//	    "format": "text"
//	  },
//	  "devtools": {
//	    "host": "localhost",
//	    "port": 7331,
//	    "record": "s3://traces/run.jsonl"
//	  },
//	  "metrics": { "namespace": "reactive" },
//	  "tracing": { "enabled": true },
//	  "recording": { "bucket": "traces", "region": "eu-west-1" }
//	}
//
// # Usage
//
//	cfg, err := config.LoadFromWorkingDir()
//	if err != nil {
//	    log.Fatal(err)
//	}
//	if err := cfg.Validate(); err != nil {
//	    log.Fatal(err)
//	}
//	cfg.Apply()
//
// Watch and NewSignal reload the file when it changes. NewSignal exposes the
// configuration as a *reactive.Signal so effects can react to edits.
package config
