// Package checkpoint saves and restores the progressive statistics of a
// photon mapping run so a long render can be resumed.
//
// A checkpoint only stores the per-HitPoint statistics, in population order.
// The HitPoints themselves are recreated by tracing the same scene with the
// same seed, which yields the same population.
package checkpoint

import (
	"bufio"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"math"
	"os"

	"github.com/klauspost/compress/zstd"

	"github.com/df07/go-progressive-photonmapper/pkg/core"
)

const (
	magic   = "SPPMCKPT"
	version = uint32(1)

	// maxRecords bounds the record count read from a header
	maxRecords = math.MaxInt32
	// preallocation cap; larger states grow while their records are read
	allocChunk = 1 << 16
)

var (
	// ErrPopulationMismatch is returned when a checkpoint does not belong to the
	// HitPoint population it is restored into
	ErrPopulationMismatch = errors.New("checkpoint does not match hitpoint population")

	// ErrBadFormat is returned for files that are not checkpoints
	ErrBadFormat = errors.New("not a checkpoint file")
)

// State is the restorable part of a render
type State struct {
	Round  int   // completed photon rounds
	Seed   int64 // seed the population was traced with
	R2     []float64
	Phi    []core.Vec3
	NAccum []float64
}

// Len returns the number of HitPoints in the state
func (s State) Len() int { return len(s.R2) }

// Validate checks that every per-HitPoint slice has the same length
func (s State) Validate() error {
	if len(s.Phi) != len(s.R2) || len(s.NAccum) != len(s.R2) {
		return fmt.Errorf("%w: inconsistent lengths r2=%d phi=%d nAccum=%d",
			ErrBadFormat, len(s.R2), len(s.Phi), len(s.NAccum))
	}
	if s.Round < 0 {
		return fmt.Errorf("%w: negative round %d", ErrBadFormat, s.Round)
	}
	return nil
}

type header struct {
	Magic   [8]byte
	Version uint32
	Round   uint32
	Seed    int64
	Count   uint64
}

type record struct {
	R2     float64
	Phi    [3]float64
	NAccum float64
}

// Encode writes state to w as a zstd stream
func Encode(w io.Writer, state State) error {
	if err := state.Validate(); err != nil {
		return err
	}

	zw, err := zstd.NewWriter(w)
	if err != nil {
		return fmt.Errorf("creating zstd writer: %w", err)
	}
	bw := bufio.NewWriter(zw)

	h := header{Version: version, Round: uint32(state.Round), Seed: state.Seed, Count: uint64(state.Len())}
	copy(h.Magic[:], magic)
	if err := binary.Write(bw, binary.LittleEndian, h); err != nil {
		zw.Close()
		return fmt.Errorf("writing checkpoint header: %w", err)
	}

	for i := range state.R2 {
		rec := record{
			R2:     state.R2[i],
			Phi:    [3]float64{state.Phi[i].X, state.Phi[i].Y, state.Phi[i].Z},
			NAccum: state.NAccum[i],
		}
		if err := binary.Write(bw, binary.LittleEndian, rec); err != nil {
			zw.Close()
			return fmt.Errorf("writing checkpoint record %d: %w", i, err)
		}
	}

	if err := bw.Flush(); err != nil {
		zw.Close()
		return fmt.Errorf("flushing checkpoint: %w", err)
	}
	return zw.Close()
}

// Decode reads a state written by Encode
func Decode(r io.Reader) (State, error) {
	zr, err := zstd.NewReader(r)
	if err != nil {
		return State{}, fmt.Errorf("creating zstd reader: %w", err)
	}
	defer zr.Close()
	br := bufio.NewReader(zr)

	var h header
	if err := binary.Read(br, binary.LittleEndian, &h); err != nil {
		return State{}, fmt.Errorf("%w: reading header: %v", ErrBadFormat, err)
	}
	if string(h.Magic[:]) != magic {
		return State{}, ErrBadFormat
	}
	if h.Version != version {
		return State{}, fmt.Errorf("%w: unsupported version %d", ErrBadFormat, h.Version)
	}

	if h.Count > maxRecords {
		return State{}, fmt.Errorf("%w: record count %d out of range", ErrBadFormat, h.Count)
	}

	count := int(h.Count)
	capacity := min(count, allocChunk)
	state := State{
		Round:  int(h.Round),
		Seed:   h.Seed,
		R2:     make([]float64, 0, capacity),
		Phi:    make([]core.Vec3, 0, capacity),
		NAccum: make([]float64, 0, capacity),
	}
	for i := 0; i < count; i++ {
		var rec record
		if err := binary.Read(br, binary.LittleEndian, &rec); err != nil {
			return State{}, fmt.Errorf("%w: reading record %d: %v", ErrBadFormat, i, err)
		}
		state.R2 = append(state.R2, rec.R2)
		state.Phi = append(state.Phi, core.NewVec3(rec.Phi[0], rec.Phi[1], rec.Phi[2]))
		state.NAccum = append(state.NAccum, rec.NAccum)
	}
	return state, nil
}

// Save writes state to path, replacing any previous checkpoint atomically
func Save(path string, state State) error {
	tmp := path + ".tmp"
	f, err := os.Create(tmp)
	if err != nil {
		return fmt.Errorf("creating checkpoint file: %w", err)
	}

	if err := Encode(f, state); err != nil {
		f.Close()
		os.Remove(tmp)
		return err
	}
	if err := f.Close(); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("closing checkpoint file: %w", err)
	}
	if err := os.Rename(tmp, path); err != nil {
		return fmt.Errorf("replacing checkpoint file: %w", err)
	}
	return nil
}

// Load reads the checkpoint stored at path
func Load(path string) (State, error) {
	f, err := os.Open(path)
	if err != nil {
		return State{}, fmt.Errorf("opening checkpoint file: %w", err)
	}
	defer f.Close()

	state, err := Decode(f)
	if err != nil {
		return State{}, fmt.Errorf("loading checkpoint %s: %w", path, err)
	}
	return state, nil
}
