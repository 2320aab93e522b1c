// Package config loads and validates the gateway configuration.
//
// Configuration comes from three layers, later layers winning:
//
//  1. Built-in defaults (127.0.0.1:7788, databases under ~/.ccg-gateway/).
//  2. An optional YAML file.
//  3. Environment variables: GATEWAY_HOST, GATEWAY_PORT, CCG_DATA_DIR,
//     CCG_LOG_LEVEL.
//
// A Watcher can observe the YAML file with fsnotify and retune the log
// level live; everything else requires a restart.
package config
