/*
Package config loads engine configuration from YAML or JSON.

# Overview

A Config carries every tunable of the filter engine: the condition ceiling,
cache sizes, the persistent AST cache, regex limits, variable registry
adjustments and observability switches. Missing keys keep their defaults.

# Basic Usage

	cfg, err := config.FromFile("abusefilter.yaml")
	if err != nil {
	    log.Fatal(err)
	}
	engine, err := abusefilter.NewEngineFromConfig(cfg)

A minimal YAML file:

	condition_limit: 1000
	ast_cache:
	  size: 2048
	  sqlite_path: /var/cache/abusefilter.db
	  max_blob_size: 1MiB
	regex:
	  match_timeout: 250ms
	variables:
	  disabled: [user_age]

# Sizes and Durations

max_blob_size accepts a number of bytes or a human-readable size such as
"512KiB" or "2MB". match_timeout accepts a Go duration string or a number
of seconds.

# Thread Safety

A Config is a plain value. It is safe to share once loaded.
*/
package config
