package npzheader

import (
	"strings"

	"github.com/go-kit/log/level"
	"github.com/klauspost/compress/zip"

	"github.com/scigolib/npzheader/internal/npyformat"
	"github.com/scigolib/npzheader/internal/scalar"
	"github.com/scigolib/npzheader/internal/utils"
)

// readArchive reports every .npy member of a .npz archive in archive
// order. Other members are skipped. The first failing member aborts the
// whole read.
func readArchive(path string, o *options) (*HeaderMap, error) {
	zr, err := zip.OpenReader(path)
	if err != nil {
		return nil, classify(path, "", err)
	}
	defer func() { _ = zr.Close() }()

	m := NewHeaderMap()
	for _, zf := range zr.File {
		if !strings.HasSuffix(zf.Name, npyformat.Suffix) {
			_ = level.Debug(o.logger).Log("msg", "skipping member", "path", path, "member", zf.Name)
			continue
		}

		info, err := readMember(zf, o)
		if err != nil {
			return nil, classify(path, zf.Name, err)
		}
		m.Set(strings.TrimSuffix(zf.Name, npyformat.Suffix), info)
	}
	return m, nil
}

func readMember(zf *zip.File, o *options) (ItemInfo, error) {
	rc, err := zf.Open()
	if err != nil {
		return ItemInfo{}, utils.WrapError("opening member", err)
	}
	defer func() { _ = rc.Close() }()

	h, err := npyformat.ReadHeader(rc)
	if err != nil {
		return ItemInfo{}, err
	}

	info := ItemInfo{Shape: h.Shape, DType: h.DType.String()}
	if !scalar.Eligible(info.Shape, info.DType) {
		return info, nil
	}

	info.Value, err = readMemberValue(zf)
	if err != nil {
		return ItemInfo{}, utils.WrapError("reading scalar value", err)
	}
	_ = level.Debug(o.logger).Log("msg", "extracted scalar", "member", zf.Name, "dtype", info.DType)
	return info, nil
}

// readMemberValue reopens the member from its first byte and decodes the
// single element following the header.
func readMemberValue(zf *zip.File) (any, error) {
	rc, err := zf.Open()
	if err != nil {
		return nil, err
	}
	defer func() { _ = rc.Close() }()

	return npyformat.ReadItem(rc)
}
