package hls

import (
	"strings"
	"testing"
)

// checkPlanInvariants asserts the properties every valid plan must hold:
// gap-free, overlap-free, packet-aligned coverage of fileSize minus the
// sub-packet remainder, with strictly increasing offsets inside bounds.
func checkPlanInvariants(t *testing.T, plan Plan, fileSize, packetSize int64) {
	t.Helper()

	var covered int64
	var next int64
	for i, seg := range plan.Segments {
		if seg.Length <= 0 {
			t.Errorf("segment %d has non-positive length %d", i, seg.Length)
		}
		if seg.Length%packetSize != 0 {
			t.Errorf("segment %d length %d not a multiple of packet size %d", i, seg.Length, packetSize)
		}
		if seg.Offset != next {
			t.Errorf("segment %d offset %d, want contiguous %d", i, seg.Offset, next)
		}
		if seg.Offset+seg.Length > fileSize {
			t.Errorf("segment %d range %d@%d exceeds file size %d", i, seg.Length, seg.Offset, fileSize)
		}
		next = seg.Offset + seg.Length
		covered += seg.Length
	}

	want := fileSize - (fileSize % packetSize)
	if covered != want {
		t.Errorf("segments cover %d bytes, want %d (file %d, packet %d)", covered, want, fileSize, packetSize)
	}
	if plan.Remainder != fileSize-covered {
		t.Errorf("Remainder = %d, want %d", plan.Remainder, fileSize-covered)
	}
	if plan.Remainder >= packetSize {
		t.Errorf("Remainder %d is at least one packet; it should have been segmented", plan.Remainder)
	}
}

func TestPlanSegmentsInvariants(t *testing.T) {
	tests := []struct {
		name         string
		fileSize     int64
		packetSize   int64
		segmentBytes int64
	}{
		{"empty file", 0, 188, 2 << 20},
		{"smaller than one packet", 187, 188, 2 << 20},
		{"exactly one packet", 188, 188, 2 << 20},
		{"spec example 500 bytes", 500, 188, 400},
		{"single segment", 10 * 188, 188, 2 << 20},
		{"nominal below one packet clamps up", 10 * 188, 188, 1},
		{"nominal not packet aligned", 100 * 188, 188, 1000},
		{"large file two MiB segments", 700*(2<<20) + 101, 188, 2 << 20},
		{"packet size one", 999, 1, 100},
		{"segment equals packet", 17 * 188, 188, 188},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			plan, err := PlanSegments(tt.fileSize, tt.packetSize, tt.segmentBytes)
			if err != nil {
				t.Fatalf("PlanSegments: %v", err)
			}
			checkPlanInvariants(t, plan, tt.fileSize, tt.packetSize)
		})
	}
}

func TestPlanSegmentsSpecExample(t *testing.T) {
	// 500 bytes with 188-byte packets and a 400-byte nominal segment: the
	// nominal rounds down to 376 and is emitted whole; the remaining 124
	// bytes are less than one packet, so they stay unaddressed rather
	// than break packet alignment.
	plan, err := PlanSegments(500, 188, 400)
	if err != nil {
		t.Fatal(err)
	}

	checkPlanInvariants(t, plan, 500, 188)

	if len(plan.Segments) != 1 || plan.Segments[0] != (Segment{Length: 376, Offset: 0}) {
		t.Fatalf("Segments = %v, want single 376@0", plan.Segments)
	}
	if plan.Remainder != 124 {
		t.Errorf("Remainder = %d, want 124", plan.Remainder)
	}
}

func TestPlanSegmentsTrailingPartialPacket(t *testing.T) {
	plan, err := PlanSegments(188+50, 188, 2<<20)
	if err != nil {
		t.Fatal(err)
	}
	if len(plan.Segments) != 1 || plan.Segments[0] != (Segment{Length: 188, Offset: 0}) {
		t.Errorf("Segments = %v", plan.Segments)
	}
	if plan.Remainder != 50 {
		t.Errorf("Remainder = %d, want 50", plan.Remainder)
	}
}

func TestPlanSegmentsInvalidInput(t *testing.T) {
	if _, err := PlanSegments(100, 0, 400); err == nil {
		t.Error("expected error for zero packet size")
	}
	if _, err := PlanSegments(100, -188, 400); err == nil {
		t.Error("expected error for negative packet size")
	}
	if _, err := PlanSegments(-1, 188, 400); err == nil {
		t.Error("expected error for negative file size")
	}
}

func TestRenderPlaylist(t *testing.T) {
	plan, err := PlanSegments(4*188, 188, 2*188)
	if err != nil {
		t.Fatal(err)
	}

	out := RenderPlaylist(plan, PlaylistOptions{
		SegmentURL: "http://localhost/api/stream/ABC-1?token=x",
	})

	want := strings.Join([]string{
		"#EXTM3U",
		"#EXT-X-VERSION:4",
		"#EXT-X-TARGETDURATION:5",
		"#EXTINF:4.0,",
		"#EXT-X-BYTERANGE:376@0",
		"http://localhost/api/stream/ABC-1?token=x",
		"#EXTINF:4.0,",
		"#EXT-X-BYTERANGE:376@376",
		"http://localhost/api/stream/ABC-1?token=x",
		"#EXT-X-ENDLIST",
	}, "\n") + "\n"

	if out != want {
		t.Errorf("playlist mismatch:\ngot:\n%s\nwant:\n%s", out, want)
	}
}

func TestRenderPlaylistEmptyPlanStillTerminated(t *testing.T) {
	out := RenderPlaylist(Plan{}, PlaylistOptions{SegmentURL: "http://x/y"})
	if !strings.HasPrefix(out, "#EXTM3U\n") {
		t.Errorf("missing format marker: %q", out)
	}
	if !strings.HasSuffix(out, "#EXT-X-ENDLIST\n") {
		t.Errorf("missing end-of-list marker: %q", out)
	}
	if strings.Contains(out, "BYTERANGE") {
		t.Errorf("empty plan produced segments: %q", out)
	}
}

func TestRenderPlaylistOverrides(t *testing.T) {
	plan, _ := PlanSegments(188, 188, 188)
	out := RenderPlaylist(plan, PlaylistOptions{
		SegmentURL:      "http://x/y",
		TargetDuration:  10,
		SegmentDuration: 6,
	})
	if !strings.Contains(out, "#EXT-X-TARGETDURATION:10\n") {
		t.Errorf("target duration override missing: %q", out)
	}
	if !strings.Contains(out, "#EXTINF:6.0,\n") {
		t.Errorf("segment duration override missing: %q", out)
	}
}
