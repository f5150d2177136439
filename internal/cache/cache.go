// Package cache implements the on-disk animation cache file format of
// spec.md §6, used by internal/daemon, when its --no-cache flag is not set,
// to skip re-decoding an image that was already played once. Restore does
// not read it; it replays the surface's in-memory content.
//
// Grounded on original_source/common/src/cache.rs's load-last-content
// intent, reimplemented as a flat length-prefixed binary format matching
// spec.md §6 exactly (magic + version + geometry header, uncompressed
// anchor, then duration+length-prefixed compressed records).
package cache

import (
	"bufio"
	"encoding/binary"
	"fmt"
	"io"
	"time"

	"github.com/swwwgo/swwwgo/internal/anim"
	"github.com/swwwgo/swwwgo/internal/pixel"
)

const (
	magic          = "SWWW"
	formatVersion1 = 1
)

// Save writes a to w in the spec.md §6 cache file format.
func Save(w io.Writer, a anim.Animation) error {
	bw := bufio.NewWriter(w)

	if _, err := bw.WriteString(magic); err != nil {
		return err
	}
	if err := bw.WriteByte(formatVersion1); err != nil {
		return err
	}
	if err := writeU32(bw, uint32(len(a.Frames))); err != nil {
		return err
	}
	if err := writeU32(bw, uint32(a.Anchor.Width)); err != nil {
		return err
	}
	if err := writeU32(bw, uint32(a.Anchor.Height)); err != nil {
		return err
	}
	if err := bw.WriteByte(byte(a.Anchor.Format)); err != nil {
		return err
	}

	if _, err := bw.Write(a.Anchor.Pix); err != nil {
		return fmt.Errorf("cache: writing anchor frame: %w", err)
	}

	for i, f := range a.Frames {
		if err := writeU32(bw, uint32(f.Duration/time.Millisecond)); err != nil {
			return err
		}
		if err := writeU32(bw, uint32(len(f.Delta))); err != nil {
			return err
		}
		if _, err := bw.Write(f.Delta); err != nil {
			return fmt.Errorf("cache: writing frame %d: %w", i, err)
		}
	}

	return bw.Flush()
}

// Load reads an Animation from r in the spec.md §6 cache file format.
func Load(r io.Reader) (anim.Animation, error) {
	br := bufio.NewReader(r)

	var hdr [4]byte
	if _, err := io.ReadFull(br, hdr[:]); err != nil {
		return anim.Animation{}, fmt.Errorf("cache: reading magic: %w", err)
	}
	if string(hdr[:]) != magic {
		return anim.Animation{}, fmt.Errorf("cache: bad magic %q", hdr)
	}

	version, err := br.ReadByte()
	if err != nil {
		return anim.Animation{}, fmt.Errorf("cache: reading version: %w", err)
	}
	if version != formatVersion1 {
		return anim.Animation{}, fmt.Errorf("cache: unsupported cache version %d", version)
	}

	frameCount, err := readU32(br)
	if err != nil {
		return anim.Animation{}, err
	}
	width, err := readU32(br)
	if err != nil {
		return anim.Animation{}, err
	}
	height, err := readU32(br)
	if err != nil {
		return anim.Animation{}, err
	}
	formatByte, err := br.ReadByte()
	if err != nil {
		return anim.Animation{}, fmt.Errorf("cache: reading format: %w", err)
	}
	format := pixel.Format(formatByte)

	anchor := pixel.NewFrame(int(width), int(height), format)
	if _, err := io.ReadFull(br, anchor.Pix); err != nil {
		return anim.Animation{}, fmt.Errorf("cache: reading anchor frame: %w", err)
	}

	frames := make([]anim.DeltaFrame, 0, frameCount)
	for i := uint32(0); i < frameCount; i++ {
		durMS, err := readU32(br)
		if err != nil {
			return anim.Animation{}, fmt.Errorf("cache: reading frame %d duration: %w", i, err)
		}
		length, err := readU32(br)
		if err != nil {
			return anim.Animation{}, fmt.Errorf("cache: reading frame %d length: %w", i, err)
		}
		delta := make([]byte, length)
		if _, err := io.ReadFull(br, delta); err != nil {
			return anim.Animation{}, fmt.Errorf("cache: reading frame %d payload: %w", i, err)
		}
		frames = append(frames, anim.DeltaFrame{
			Delta:    delta,
			Duration: time.Duration(durMS) * time.Millisecond,
		})
	}

	return anim.Animation{Anchor: anchor, Frames: frames}, nil
}

func writeU32(w io.ByteWriter, v uint32) error {
	var buf [4]byte
	binary.LittleEndian.PutUint32(buf[:], v)
	for _, b := range buf {
		if err := w.WriteByte(b); err != nil {
			return err
		}
	}
	return nil
}

func readU32(r io.Reader) (uint32, error) {
	var buf [4]byte
	if _, err := io.ReadFull(r, buf[:]); err != nil {
		return 0, err
	}
	return binary.LittleEndian.Uint32(buf[:]), nil
}
