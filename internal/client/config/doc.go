// Package config loads runtime configuration for the keybox CLI.
//
// Sources, later ones winning:
//
//  1. Built-in defaults (see (*Config).LoadDefaults).
//  2. A JSON file: the --config flag, or $XDG_CONFIG_HOME/keybox/config.json
//     when that exists.
//  3. KEYBOX_DIR and KEYBOX_TOKEN environment variables.
//  4. Command-line flags registered with RegisterFlags.
//
// # JSON schema
//
// Intervals use timex.Duration, so "15s" and integer nanoseconds both work:
//
//	{
//	  "data_dir": "/home/me/.local/share/keybox",
//	  "transport": "grpc",
//	  "server_addr": "vault.example.com:50051",
//	  "access_token": "eyJ...",
//	  "key_source": "keyring",
//	  "auth_mode": "pin",
//	  "trash_limit": 200,
//	  "poll_interval": "15s",
//	  "log_level": "info",
//	  "s3": {"region": "us-east-1", "bucket": "keybox", "endpoint": "http://127.0.0.1:9000"}
//	}
package config
