package network

import (
	"bufio"
	"encoding/binary"
	"errors"
	"fmt"
	"io"

	"github.com/klauspost/compress/zstd"

	"climateworld/internal/world"
)

// GridContentType is the media type of an encoded grid export.
const GridContentType = "application/zstd"

var gridMagic = [4]byte{'C', 'W', 'G', '1'}

// maxGridSide bounds decoded dimensions so a corrupt header cannot trigger a
// huge allocation.
const maxGridSide = 1 << 14

// EncodeGrid writes g as a zstd stream: a magic tag, width and height as
// little-endian uint32, then every cell row-major.
func EncodeGrid(w io.Writer, g *world.Grid) error {
	enc, err := zstd.NewWriter(w, zstd.WithEncoderLevel(zstd.SpeedDefault))
	if err != nil {
		return fmt.Errorf("open grid encoder: %w", err)
	}

	bw := bufio.NewWriterSize(enc, 256*1024)
	header := make([]byte, 0, 12)
	header = append(header, gridMagic[:]...)
	header = binary.LittleEndian.AppendUint32(header, uint32(g.Width))
	header = binary.LittleEndian.AppendUint32(header, uint32(g.Height))
	if _, err := bw.Write(header); err != nil {
		enc.Close()
		return fmt.Errorf("write grid header: %w", err)
	}

	cell := make([]byte, 0, world.CellBytes)
	for _, c := range g.Cells {
		cell = c.AppendBinary(cell[:0])
		if _, err := bw.Write(cell); err != nil {
			enc.Close()
			return fmt.Errorf("write grid cells: %w", err)
		}
	}
	if err := bw.Flush(); err != nil {
		enc.Close()
		return fmt.Errorf("flush grid: %w", err)
	}
	if err := enc.Close(); err != nil {
		return fmt.Errorf("close grid encoder: %w", err)
	}
	return nil
}

// DecodeGrid reads a grid written by EncodeGrid.
func DecodeGrid(r io.Reader) (*world.Grid, error) {
	dec, err := zstd.NewReader(r)
	if err != nil {
		return nil, fmt.Errorf("open grid decoder: %w", err)
	}
	defer dec.Close()

	br := bufio.NewReaderSize(dec, 256*1024)
	header := make([]byte, 12)
	if _, err := io.ReadFull(br, header); err != nil {
		return nil, fmt.Errorf("read grid header: %w", err)
	}
	if [4]byte(header[:4]) != gridMagic {
		return nil, errors.New("not a grid export")
	}
	width := int(binary.LittleEndian.Uint32(header[4:8]))
	height := int(binary.LittleEndian.Uint32(header[8:12]))
	if width <= 0 || height <= 0 || width > maxGridSide || height > maxGridSide {
		return nil, fmt.Errorf("invalid grid dimensions %dx%d", width, height)
	}

	g := world.NewGrid(width, height)
	cell := make([]byte, world.CellBytes)
	for i := range g.Cells {
		if _, err := io.ReadFull(br, cell); err != nil {
			return nil, fmt.Errorf("read cell %d: %w", i, err)
		}
		c, err := world.DecodeCell(cell)
		if err != nil {
			return nil, fmt.Errorf("cell %d: %w", i, err)
		}
		g.Cells[i] = c
	}
	return g, nil
}
