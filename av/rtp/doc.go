// Package rtp carries encoded tiles over RTP.
//
// A TilePacketizer splits each tilecast.EncodedTile into MTU-sized RTP
// packets built with pion/rtp. Every packet carries a one-byte header
// extension (RFC 8285) describing its tile:
//
//	 0                   1                   2                   3
//	 0 1 2 3 4 5 6 7 8 9 0 1 2 3 4 5 6 7 8 9 0 1 2 3 4 5 6 7 8 9 0 1
//	+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+
//	|                     tile sequence id                          |
//	+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+
//	|               x               |               y               |
//	+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+
//	|             width             |            height             |
//	+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+
//	|     flags     |
//	+-+-+-+-+-+-+-+-+
//
// Flags bit 0 marks motion, bit 1 the first packet of a tile. The RTP
// marker bit is set on the last packet of a tile and the payload type
// names the codec. Tile geometry must fit the 16-bit fields; Packetize
// rejects larger values with ErrTileOutOfRange.
//
// The RTP timestamp is the capture time on a 90 kHz clock and wraps every
// 2^32 ticks, about 13.25 hours. A second one-byte extension,
// TimestampExtensionID, carries the capture time as a big-endian int64 of
// microseconds; the depacketizer uses it when present and falls back to the
// RTP timestamp otherwise.
//
// A TileDepacketizer reassembles tiles and discards any tile that lost a
// packet; the decoder sees the loss as a gap in tile sequence ids.
//
// Sender and Receive move packets over UDP.
package rtp
