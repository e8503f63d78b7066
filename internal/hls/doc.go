// Package hls plans packet-aligned byte-range segmentations of transport
// stream files and renders them as HLS playlists.
//
// This is a byte-range approximation of HLS, not a compliant segmenter:
// segment boundaries follow the fixed 188-byte TS packet framing rather
// than keyframes, and every segment carries the same nominal duration
// label. Players such as hls.js fetch each range from a single source URL
// via ordinary HTTP range requests, which gives fast startup and seeking
// without any transcoding or remuxing.
//
// Planning is a pure function of file size, packet size and nominal
// segment size so it can be tested exhaustively without touching disk.
package hls
