// Package logx configures postbot's structured logging.
//
// It is a small wrapper (logx.Logger) on top of zerolog that keeps:
//   - Console output readable (short timestamp + short caller)
//   - File output JSON-structured, rotated via lumberjack
//   - Log level swappable at runtime (config hot reload)
package logx
