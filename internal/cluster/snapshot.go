package cluster

import (
	"bufio"
	"encoding/binary"
	"fmt"
	"io"
	"os"

	"github.com/klauspost/compress/zstd"
)

// Snapshot persistence lets a restarted server answer cluster queries before
// the store listing or the first consumed batch arrives: the indexed point
// set is written zstd-compressed on shutdown and reloaded into a fresh index
// on boot. The format is internal and versioned only by this package.

const snapshotVersion uint32 = 1

// Save writes the index's point set and options to w.
func (sc *Supercluster) Save(w io.Writer) error {
	enc, err := zstd.NewWriter(w, zstd.WithEncoderLevel(zstd.SpeedBestCompression))
	if err != nil {
		return fmt.Errorf("create zstd writer: %w", err)
	}

	sc.mu.RLock()
	points := sc.points
	opts := sc.opts
	sc.mu.RUnlock()

	if err := binary.Write(enc, binary.LittleEndian, snapshotVersion); err != nil {
		enc.Close()
		return fmt.Errorf("write snapshot header: %w", err)
	}
	header := []int32{
		int32(len(points)),
		int32(opts.Extent),
		int32(opts.MinZoom),
		int32(opts.MaxZoom),
		int32(opts.MinPoints),
	}
	for _, v := range header {
		if err := binary.Write(enc, binary.LittleEndian, v); err != nil {
			enc.Close()
			return fmt.Errorf("write snapshot header: %w", err)
		}
	}
	if err := binary.Write(enc, binary.LittleEndian, opts.Radius); err != nil {
		enc.Close()
		return fmt.Errorf("write snapshot header: %w", err)
	}

	for _, p := range points {
		id := []byte(p.FireID)
		if err := binary.Write(enc, binary.LittleEndian, uint32(len(id))); err != nil {
			enc.Close()
			return fmt.Errorf("write point: %w", err)
		}
		if _, err := enc.Write(id); err != nil {
			enc.Close()
			return fmt.Errorf("write point: %w", err)
		}
		if err := binary.Write(enc, binary.LittleEndian, p.Lat); err != nil {
			enc.Close()
			return fmt.Errorf("write point: %w", err)
		}
		if err := binary.Write(enc, binary.LittleEndian, p.Lng); err != nil {
			enc.Close()
			return fmt.Errorf("write point: %w", err)
		}
	}
	return enc.Close()
}

// Load reads a snapshot and returns a rebuilt index.
func Load(r io.Reader) (*Supercluster, error) {
	dec, err := zstd.NewReader(r)
	if err != nil {
		return nil, fmt.Errorf("create zstd reader: %w", err)
	}
	defer dec.Close()

	var version uint32
	if err := binary.Read(dec, binary.LittleEndian, &version); err != nil {
		return nil, fmt.Errorf("read snapshot header: %w", err)
	}
	if version != snapshotVersion {
		return nil, fmt.Errorf("unsupported snapshot version %d", version)
	}

	var numPoints, extent, minZoom, maxZoom, minPoints int32
	for _, v := range []*int32{&numPoints, &extent, &minZoom, &maxZoom, &minPoints} {
		if err := binary.Read(dec, binary.LittleEndian, v); err != nil {
			return nil, fmt.Errorf("read snapshot header: %w", err)
		}
	}
	var radius float64
	if err := binary.Read(dec, binary.LittleEndian, &radius); err != nil {
		return nil, fmt.Errorf("read snapshot header: %w", err)
	}

	points := make([]Point, numPoints)
	for i := range points {
		var idLen uint32
		if err := binary.Read(dec, binary.LittleEndian, &idLen); err != nil {
			return nil, fmt.Errorf("read point %d: %w", i, err)
		}
		id := make([]byte, idLen)
		if _, err := io.ReadFull(dec, id); err != nil {
			return nil, fmt.Errorf("read point %d: %w", i, err)
		}
		points[i].FireID = string(id)
		if err := binary.Read(dec, binary.LittleEndian, &points[i].Lat); err != nil {
			return nil, fmt.Errorf("read point %d: %w", i, err)
		}
		if err := binary.Read(dec, binary.LittleEndian, &points[i].Lng); err != nil {
			return nil, fmt.Errorf("read point %d: %w", i, err)
		}
	}

	sc := New(Options{
		Radius:    radius,
		Extent:    int(extent),
		MinZoom:   int(minZoom),
		MaxZoom:   int(maxZoom),
		MinPoints: int(minPoints),
	})
	sc.Rebuild(points)
	return sc, nil
}

// SaveFile and LoadFile wrap Save/Load with buffered file IO.
func (sc *Supercluster) SaveFile(path string) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create snapshot file: %w", err)
	}
	defer f.Close()

	bw := bufio.NewWriterSize(f, 1<<20)
	if err := sc.Save(bw); err != nil {
		return err
	}
	return bw.Flush()
}

func LoadFile(path string) (*Supercluster, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open snapshot file: %w", err)
	}
	defer f.Close()
	return Load(bufio.NewReaderSize(f, 1<<20))
}
