//go:build ignore
// +build ignore

// Writes the sample files read by examples/01-basic:
//
//	go run testdata/generators/generate_test_files.go
package main

import (
	"encoding/binary"
	"log"
	"os"

	mocktesting "github.com/scigolib/npzheader/internal/testing"
)

func main() {
	scenario, err := mocktesting.Zip(
		mocktesting.Member{Name: "val1.npy", Data: mocktesting.NPY("<i8", nil, mocktesting.LE(int64(-5)))},
		mocktesting.Member{Name: "val2.npy", Data: mocktesting.NPY("<f8", nil, mocktesting.LE(-3.0))},
		mocktesting.Member{Name: "val3.npy", Data: mocktesting.NPY("<c16", nil, mocktesting.Complex128(1+1i))},
		mocktesting.Member{Name: "val4.npy", Data: mocktesting.NPY("<U7", nil, mocktesting.UCS4("dhrwodn", 7))},
		mocktesting.Member{Name: "array1.npy", Data: mocktesting.NPY("<f8", []int{50}, make([]byte, 400)), Deflate: true},
	)
	if err != nil {
		log.Fatalf("building archive: %v", err)
	}
	write("testdata/scenario.npz", scenario)

	write("testdata/array1.npy", mocktesting.NPY("<f8", []int{50}, make([]byte, 400)))

	order := binary.LittleEndian
	write("testdata/scenario.mat", mocktesting.MAT5(order,
		mocktesting.Matrix{
			Name: "gain", Class: mocktesting.MxDOUBLE, Dims: []int32{1, 1},
			RealType: mocktesting.MiDOUBLE, Real: mocktesting.LE(0.5),
		}.Element(order),
		mocktesting.Compressed(order, mocktesting.Matrix{
			Name: "label", Class: mocktesting.MxCHAR, Dims: []int32{1, 6},
			RealType: mocktesting.MiUTF8, Real: []byte("sensor"),
		}.Element(order)),
		mocktesting.Compressed(order, mocktesting.Matrix{
			Name: "samples", Class: mocktesting.MxINT32, Dims: []int32{4, 25},
			RealType: mocktesting.MiINT32, Real: make([]byte, 400),
		}.Element(order)),
	))
}

func write(path string, data []byte) {
	if err := os.WriteFile(path, data, 0o644); err != nil {
		log.Fatalf("writing %s: %v", path, err)
	}
	log.Printf("wrote %s (%d bytes)", path, len(data))
}
