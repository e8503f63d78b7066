package hls

import (
	"fmt"
	"strings"
)

const (
	// DefaultTargetDuration is the playlist's nominal target duration
	// hint in seconds.
	DefaultTargetDuration = 5

	// DefaultSegmentDuration is the nominal duration label per segment,
	// used whenever the caller has no exact timing to supply.
	DefaultSegmentDuration = 4.0
)

// PlaylistOptions configures playlist rendering.
type PlaylistOptions struct {
	// SegmentURL is the absolute URL at which every byte range of the
	// file can be fetched. Range delivery itself is the HTTP layer's job.
	SegmentURL string

	// TargetDuration overrides DefaultTargetDuration when positive.
	TargetDuration int

	// SegmentDuration overrides DefaultSegmentDuration when positive.
	SegmentDuration float64
}

// RenderPlaylist serializes a segment plan as an HLS byte-range playlist
// (#EXT-X-BYTERANGE entries against a single source URL), closed with an
// explicit end-of-list marker.
func RenderPlaylist(plan Plan, opts PlaylistOptions) string {
	target := opts.TargetDuration
	if target <= 0 {
		target = DefaultTargetDuration
	}
	segDur := opts.SegmentDuration
	if segDur <= 0 {
		segDur = DefaultSegmentDuration
	}

	var b strings.Builder
	b.WriteString("#EXTM3U\n")
	b.WriteString("#EXT-X-VERSION:4\n")
	fmt.Fprintf(&b, "#EXT-X-TARGETDURATION:%d\n", target)

	for _, seg := range plan.Segments {
		fmt.Fprintf(&b, "#EXTINF:%.1f,\n", segDur)
		fmt.Fprintf(&b, "#EXT-X-BYTERANGE:%d@%d\n", seg.Length, seg.Offset)
		b.WriteString(opts.SegmentURL)
		b.WriteByte('\n')
	}

	b.WriteString("#EXT-X-ENDLIST\n")
	return b.String()
}
