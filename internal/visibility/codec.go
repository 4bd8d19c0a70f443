package visibility

import (
	"bufio"
	"encoding/binary"
	"errors"
	"fmt"
	"io"

	"github.com/klauspost/compress/zstd"
)

// Snapshot is a point-in-time copy of the grid.
type Snapshot struct {
	Width  int
	Height int
	Cells  []State
}

// At returns the state of (x, z), Visible when out of range.
func (s Snapshot) At(x, z int) State {
	if x < 0 || z < 0 || x >= s.Width || z >= s.Height {
		return Visible
	}
	return s.Cells[z*s.Width+x]
}

var snapshotMagic = [4]byte{'F', 'O', 'G', '1'}

// ErrBadSnapshot is returned for frames that are not fog snapshots.
var ErrBadSnapshot = errors.New("visibility: not a fog snapshot")

// WriteSnapshot writes a zstd frame holding the magic, the dimensions as
// little-endian uint32s and one byte per cell.
func WriteSnapshot(w io.Writer, snap Snapshot) error {
	if len(snap.Cells) != snap.Width*snap.Height {
		return fmt.Errorf("write snapshot: %d cells for %dx%d grid", len(snap.Cells), snap.Width, snap.Height)
	}
	enc, err := zstd.NewWriter(w, zstd.WithEncoderLevel(zstd.SpeedDefault))
	if err != nil {
		return fmt.Errorf("write snapshot: %w", err)
	}
	bw := bufio.NewWriter(enc)

	var hdr [12]byte
	copy(hdr[:4], snapshotMagic[:])
	binary.LittleEndian.PutUint32(hdr[4:8], uint32(snap.Width))
	binary.LittleEndian.PutUint32(hdr[8:12], uint32(snap.Height))
	if _, err := bw.Write(hdr[:]); err != nil {
		enc.Close()
		return fmt.Errorf("write snapshot header: %w", err)
	}
	for _, c := range snap.Cells {
		if err := bw.WriteByte(byte(c)); err != nil {
			enc.Close()
			return fmt.Errorf("write snapshot cells: %w", err)
		}
	}
	if err := bw.Flush(); err != nil {
		enc.Close()
		return fmt.Errorf("write snapshot: %w", err)
	}
	if err := enc.Close(); err != nil {
		return fmt.Errorf("write snapshot: %w", err)
	}
	return nil
}

// ReadSnapshot decodes a frame written by WriteSnapshot.
func ReadSnapshot(r io.Reader) (Snapshot, error) {
	var snap Snapshot
	dec, err := zstd.NewReader(r)
	if err != nil {
		return snap, fmt.Errorf("read snapshot: %w", err)
	}
	defer dec.Close()
	br := bufio.NewReader(dec)

	var hdr [12]byte
	if _, err := io.ReadFull(br, hdr[:]); err != nil {
		return snap, fmt.Errorf("read snapshot header: %w", err)
	}
	if [4]byte(hdr[:4]) != snapshotMagic {
		return snap, ErrBadSnapshot
	}
	w := int(binary.LittleEndian.Uint32(hdr[4:8]))
	h := int(binary.LittleEndian.Uint32(hdr[8:12]))
	if w <= 0 || h <= 0 || w*h > 1<<26 {
		return snap, fmt.Errorf("read snapshot: implausible size %dx%d: %w", w, h, ErrBadSnapshot)
	}

	raw := make([]byte, w*h)
	if _, err := io.ReadFull(br, raw); err != nil {
		return snap, fmt.Errorf("read snapshot cells: %w", err)
	}
	snap.Width, snap.Height = w, h
	snap.Cells = make([]State, len(raw))
	for i, b := range raw {
		if State(b) > Visible {
			return Snapshot{}, fmt.Errorf("read snapshot: cell %d has state %d: %w", i, b, ErrBadSnapshot)
		}
		snap.Cells[i] = State(b)
	}
	return snap, nil
}
