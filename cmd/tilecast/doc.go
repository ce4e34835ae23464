// Command tilecast streams a synthetic screen through the tiled encoding
// pipeline.
//
// Each captured frame is tiled, encoded and batched into one wire.Frame
// message, optionally zstd-compressed, and broadcast to every WebSocket
// viewer connected to the configured path. When an RTP destination is
// configured the tiles are also sent over UDP.
//
// Usage:
//
//	tilecast -config tilecast.yaml
//	tilecast -listen :9000 -log-level debug
package main
