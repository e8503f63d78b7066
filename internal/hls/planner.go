package hls

import "fmt"

// TSPacketSize is the fixed MPEG transport-stream packet framing. Byte
// ranges must start and end on packet boundaries or players fail with
// "packets do not start with 0x47" sync errors.
const TSPacketSize = 188

// Segment is one byte range of the source file: Length bytes starting at
// Offset.
type Segment struct {
	Length int64
	Offset int64
}

// Plan is a packet-aligned byte-range segmentation of a file.
type Plan struct {
	Segments []Segment

	// Remainder counts trailing bytes smaller than one packet that no
	// segment addresses. A partial packet cannot be served without
	// breaking packet alignment, so up to packetSize-1 bytes are dropped
	// from the plan.
	Remainder int64
}

// PlanSegments splits a file of fileSize bytes into contiguous byte-range
// segments of at most segmentBytes each, every segment length rounded down
// to a multiple of packetSize. A nominal segment size below one packet is
// clamped up to exactly one packet. The function is pure: it never touches
// the filesystem, so callers stat the file themselves.
func PlanSegments(fileSize, packetSize, segmentBytes int64) (Plan, error) {
	if packetSize <= 0 {
		return Plan{}, fmt.Errorf("packet size must be positive, got %d", packetSize)
	}
	if fileSize < 0 {
		return Plan{}, fmt.Errorf("file size must be non-negative, got %d", fileSize)
	}

	segmentBytes = (segmentBytes / packetSize) * packetSize
	if segmentBytes < packetSize {
		segmentBytes = packetSize
	}

	var plan Plan
	var offset int64
	for offset < fileSize {
		chunk := segmentBytes
		if remaining := fileSize - offset; remaining < chunk {
			chunk = remaining
		}
		chunk = (chunk / packetSize) * packetSize
		if chunk == 0 {
			break
		}
		plan.Segments = append(plan.Segments, Segment{Length: chunk, Offset: offset})
		offset += chunk
	}

	plan.Remainder = fileSize - offset
	return plan, nil
}
