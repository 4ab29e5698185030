// Package matfile lists the variables of MATLAB .mat files and reads the
// values of scalar variables without loading array payloads.
//
// Level 4 and Level 5 files are supported. Level 7.3 files are HDF5
// containers behind a 512-byte user block; they are recognised and
// rejected with ErrUnsupportedVersion.
//
// Reading happens in two passes. Variables walks the file and decodes
// only each variable's header (class, dimensions, name), remembering where
// the variable starts. LoadScalars then revisits just the requested
// variables and decodes their single value.
package matfile

import (
	"encoding/binary"
	"errors"
	"fmt"
	"io"

	"github.com/scigolib/npzheader/internal/utils"
)

// Suffix is the file name suffix of MATLAB files.
const Suffix = ".mat"

// Sentinel errors returned (wrapped) by the reader.
var (
	ErrBadHeader          = errors.New("malformed file header")
	ErrUnsupportedVersion = errors.New("unsupported MAT-file version")
	ErrBadElement         = errors.New("malformed data element")
)

// hdf5Signature marks Level 7.3 files at the end of their user block.
const (
	hdf5Signature = "\x89HDF\r\n\x1a\n"
	userBlockSize = 512
	level5Header  = 128
)

// WorkspaceName is reported for the unnamed subsystem data element.
const WorkspaceName = "__function_workspace__"

// Level is the MAT-file format generation.
type Level int

// Format levels.
const (
	Level4  Level = 4
	Level5  Level = 5
	Level73 Level = 73
)

func (l Level) String() string {
	switch l {
	case Level4:
		return "4"
	case Level5:
		return "5"
	case Level73:
		return "7.3"
	default:
		return fmt.Sprintf("Level(%d)", int(l))
	}
}

// Variable is one directory entry.
type Variable struct {
	Name  string
	Shape []int
	Class string

	class      Class
	dims       []int
	complex    bool
	logical    bool
	offset     int64
	length     int64
	compressed bool
	v4         *v4Header
}

// File is an open MAT-file.
type File struct {
	r     io.ReaderAt
	size  int64
	level Level
	order binary.ByteOrder
}

// Open inspects the file header and returns a File ready for listing.
func Open(r io.ReaderAt, size int64) (*File, error) {
	if size < 4 {
		return nil, fmt.Errorf("%w: file of %d bytes is too short", ErrBadHeader, size)
	}

	head := make([]byte, 4)
	if _, err := r.ReadAt(head, 0); err != nil {
		return nil, utils.WrapError("reading file header", err)
	}

	// Level 4 files start with a small integer type code, so one of the
	// first four bytes is always zero. Level 5 starts with header text.
	for _, b := range head {
		if b == 0 {
			return &File{r: r, size: size, level: Level4, order: guessLevel4Order(head)}, nil
		}
	}

	if size < level5Header {
		return nil, fmt.Errorf("%w: file of %d bytes is too short", ErrBadHeader, size)
	}
	tail := make([]byte, 4)
	if _, err := r.ReadAt(tail, 124); err != nil {
		return nil, utils.WrapError("reading version field", err)
	}

	majorIndex := 0
	if tail[2] == 'I' {
		majorIndex = 1
	}
	major, minor := tail[majorIndex], tail[1-majorIndex]

	switch major {
	case 1:
		order, err := level5Order(tail[2:])
		if err != nil {
			return nil, err
		}
		return &File{r: r, size: size, level: Level5, order: order}, nil
	case 2:
		if isHDF5(r, size) {
			return nil, fmt.Errorf("%w: %s (HDF5 based)", ErrUnsupportedVersion, Level73)
		}
		return nil, fmt.Errorf("%w: version 2.%d without HDF5 signature", ErrBadHeader, minor)
	default:
		return nil, fmt.Errorf("%w: %d.%d", ErrUnsupportedVersion, major, minor)
	}
}

func level5Order(indicator []byte) (binary.ByteOrder, error) {
	switch string(indicator) {
	case "IM":
		return binary.LittleEndian, nil
	case "MI":
		return binary.BigEndian, nil
	default:
		return nil, fmt.Errorf("%w: endian indicator %q", ErrBadHeader, indicator)
	}
}

// isHDF5 verifies the HDF5 signature right after the user block.
func isHDF5(r io.ReaderAt, size int64) bool {
	if size < userBlockSize+int64(len(hdf5Signature)) {
		return false
	}
	buf := utils.GetBuffer(len(hdf5Signature))
	defer utils.ReleaseBuffer(buf)

	if _, err := r.ReadAt(buf, userBlockSize); err != nil {
		return false
	}
	return string(buf) == hdf5Signature
}

// Level returns the format generation of the file.
func (f *File) Level() Level {
	return f.level
}

// ByteOrder returns the byte order the file was written in.
func (f *File) ByteOrder() binary.ByteOrder {
	return f.order
}

// Variables lists every stored variable in file order, reading headers only.
func (f *File) Variables() ([]Variable, error) {
	if f.level == Level4 {
		return f.variables4()
	}
	return f.variables5()
}

// LoadScalars decodes the values of the named variables. Variables whose
// class has no literal value (cell, struct, sparse, ...) are left out of
// the result. When names repeat in the file the last variable wins.
func (f *File) LoadScalars(vars []Variable, names []string) (map[string]any, error) {
	wanted := make(map[string]bool, len(names))
	for _, n := range names {
		wanted[n] = true
	}

	out := make(map[string]any, len(names))
	for i := range vars {
		v := &vars[i]
		if !wanted[v.Name] {
			continue
		}

		var (
			val any
			ok  bool
			err error
		)
		if f.level == Level4 {
			val, ok, err = f.scalar4(v)
		} else {
			val, ok, err = f.scalar5(v)
		}
		if err != nil {
			return nil, utils.WrapError(fmt.Sprintf("loading variable %q", v.Name), err)
		}
		if ok {
			out[v.Name] = val
		} else {
			delete(out, v.Name)
		}
	}
	return out, nil
}
