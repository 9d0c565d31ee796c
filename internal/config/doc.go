// Package config provides configuration parsing for the reconcile tool.
//
// The configuration is stored in reconcile.yaml (or reconcile.json) in the
// working directory or one of its parents. Every field is optional; a
// missing file means defaults.
//
// # Configuration File Structure
//
//	log:
//	  level: info        # debug, info, warn, error
//	  format: text       # text, json
//	metrics:
//	  enabled: false
//	  namespace: reconcile
//	tracing:
//	  tracerName: github.com/vango-dev/reconciler
//	render:
//	  pretty: true
//	  indent: "  "
//	watch:
//	  debounce: 100ms
//	live:
//	  recover: true      # rebuild the live tree when a patch cannot apply
//
// # Usage
//
//	cfg, err := config.Load(".")
//	if err != nil {
//	    log.Fatal(err)
//	}
//	logger := cfg.Logger(os.Stderr)
package config
