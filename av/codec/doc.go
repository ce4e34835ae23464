// Package codec selects, drives and decodes the two per-tile codecs of the
// tiled screen-sharing pipeline.
//
// Static tiles are encoded with a high-compression codec (VP9, tuned for
// continuous inter prediction with error resilience); changing tiles with a
// low-latency codec (H.264 baseline with intra refresh and Annex-B byte
// stream output).
//
// # Selection
//
// Select maps a motion classification to a codec. A HysteresisSelector can
// be used instead to require several consecutive classifications before a
// tile position switches codec:
//
//	sel := codec.NewHysteresisSelector(3)
//	c := sel.Select(region, hasMotion)
//
// # Encoder Pool
//
// A Pool owns exactly one Session per codec, both fixed to the configured
// tile size for their entire lifetime:
//
//	pool := codec.NewPool(128, 128,
//	    codec.DefaultHighCompressionConfig(),
//	    codec.DefaultLowLatencyConfig(),
//	    codec.NewFFmpegSession)
//	defer pool.Close()
//
//	payload := pool.Encode(codec.LowLatency, img)
//
// A session that fails to initialize disables only its own path; Encode on
// a disabled path returns an empty payload. An empty payload is never an
// error: it means the codec produced no data for that call.
//
// # Decoding
//
// Decoder is the symmetric receive side. It keeps one persistent decoder
// per codec and must be fed payloads in tile sequence order, because each
// encoder session predicts across every tile routed to it.
package codec
