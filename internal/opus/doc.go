// Package opus is the playback codec path. Canonical effect files are
// transcoded on the fly to Opus via FFmpeg, the packets are pulled out
// of the ogg container, and the frames are streamed to the voice
// connection's send channel.
//
// Between the encoder goroutine and the sender, frames travel as
// concatenated length-prefixed packets ([uint16 LE length][opus bytes]).
package opus
