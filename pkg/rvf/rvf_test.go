package rvf

import (
	"errors"
	"os"
	"path/filepath"
	"reflect"
	"testing"
)

func TestHeaderBlockSetGet(t *testing.T) {
	t.Parallel()

	h := NewHeaderBlock()
	h.Set("object", "HD10700", "target name")
	h.Set("NAXIS", 2, "number of array dimensions")
	h.Set("BERV", 12.5, "barycentric correction")
	h.Set("SCIENCE", true, "")

	if got := h.Len(); got != 4 {
		t.Fatalf("Len = %d, want 4", got)
	}

	// Keywords are case-normalised.
	v, ok := h.Get("OBJECT")
	if !ok || v != "HD10700" {
		t.Fatalf("Get(OBJECT) = %v, %v", v, ok)
	}

	// Updating in place must not change the card position.
	h.Set("OBJECT", "HD128621", "target name")
	cards := h.Cards()
	if cards[0].Keyword != "OBJECT" || cards[0].Value != "HD128621" {
		t.Fatalf("card 0 = %+v", cards[0])
	}

	if v, _ := h.Get("NAXIS"); v != int64(2) {
		t.Fatalf("NAXIS = %v (%T), want int64(2)", v, v)
	}

	if !h.Del("BERV") {
		t.Fatal("Del(BERV) = false")
	}
	if h.Del("BERV") {
		t.Fatal("Del(BERV) succeeded twice")
	}
	if _, ok := h.Get("SCIENCE"); !ok {
		t.Fatal("SCIENCE lost after unrelated delete")
	}
	if h.Len() != 3 {
		t.Fatalf("Len = %d after delete, want 3", h.Len())
	}
}

func TestHeaderBlockRoundTrip(t *testing.T) {
	t.Parallel()

	h := NewHeaderBlock()
	h.Set("OBJECT", "Proxima", "target")
	h.Set("NORDERS", int64(72), "")
	h.Set("BERV", -3.25, "km/s")
	h.Set("DRIFTCOR", false, "drift corrected")
	h.Set("COMMENT", nil, "converted from raw product")

	got, err := DecodeHeaderBlock(EncodeHeaderBlock(h))
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if !reflect.DeepEqual(got.Cards(), h.Cards()) {
		t.Fatalf("cards mismatch\n got %+v\nwant %+v", got.Cards(), h.Cards())
	}
}

func TestImageRoundTrip(t *testing.T) {
	t.Parallel()

	im := Float64Image([]int{2, 3}, []float64{1, 2, 3, 4, 5, 6})
	data, err := EncodeImage(im)
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	got, err := DecodeImage(data)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if !reflect.DeepEqual(got, im) {
		t.Fatalf("image mismatch\n got %+v\nwant %+v", got, im)
	}
}

func TestImageEncodeRejectsBool(t *testing.T) {
	t.Parallel()

	im := BoolImage([]int{2}, []bool{true, false})
	if _, err := EncodeImage(im); !errors.Is(err, ErrBoolArray) {
		t.Fatalf("err = %v, want ErrBoolArray", err)
	}
}

func TestImageWidenBool(t *testing.T) {
	t.Parallel()

	im := BoolImage([]int{2, 2}, []bool{true, false, false, true})
	wide := im.WidenBool()
	if wide.DType != DTypeFloat64 {
		t.Fatalf("dtype = %s, want f64", wide.DType)
	}
	want := []float64{1, 0, 0, 1}
	if !reflect.DeepEqual(wide.Data, want) {
		t.Fatalf("data = %v, want %v", wide.Data, want)
	}
	if !reflect.DeepEqual(wide.Dims, im.Dims) {
		t.Fatalf("dims = %v, want %v", wide.Dims, im.Dims)
	}
	// The source image stays boolean.
	if im.DType != DTypeBool {
		t.Fatal("WidenBool mutated its receiver")
	}
}

func TestImageEmptyEncodesZeroDim(t *testing.T) {
	t.Parallel()

	data, err := EncodeImage(nil)
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	got, err := DecodeImage(data)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if got.NDim() != 0 || got.ElemCount() != 0 {
		t.Fatalf("got ndim=%d count=%d, want 0/0", got.NDim(), got.ElemCount())
	}
}

func TestImageValidateMismatch(t *testing.T) {
	t.Parallel()

	im := &Image{DType: DTypeFloat64, Dims: []int{3}, Data: []float64{1, 2}}
	if err := im.Validate(); err == nil {
		t.Fatal("expected element count mismatch error")
	}
	im = &Image{DType: DTypeInt64, Dims: []int{1}, Data: []float64{1}}
	if err := im.Validate(); err == nil {
		t.Fatal("expected dtype mismatch error")
	}
}

func TestTableRoundTrip(t *testing.T) {
	t.Parallel()

	tbl := NewTable(
		StringCol("NAME", []string{"a", "b"}),
		Float64Col("SNR", []float64{101.5, 88.25}),
		Int64Col("ORDER", []int64{1, 2}),
		BoolCol("VALID", []bool{true, false}),
	)
	data, err := EncodeTable(tbl)
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	got, err := DecodeTable(data)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if !reflect.DeepEqual(got, tbl) {
		t.Fatalf("table mismatch\n got %+v\nwant %+v", got, tbl)
	}
}

func TestTableAppendRow(t *testing.T) {
	t.Parallel()

	tbl := NewTable(StringCol("ID", nil), Float64Col("RV", nil))
	if err := tbl.AppendRow("r1", 0.5); err != nil {
		t.Fatalf("append: %v", err)
	}
	if err := tbl.AppendRow("r2", 1.5); err != nil {
		t.Fatalf("append: %v", err)
	}
	if tbl.Rows() != 2 {
		t.Fatalf("rows = %d, want 2", tbl.Rows())
	}
	if err := tbl.AppendRow("only-one"); err == nil {
		t.Fatal("expected arity error")
	}
	if err := tbl.Validate(); err != nil {
		t.Fatalf("validate: %v", err)
	}
}

func TestTableValidateRaggedColumns(t *testing.T) {
	t.Parallel()

	tbl := NewTable(
		Float64Col("A", []float64{1, 2, 3}),
		Float64Col("B", []float64{1}),
	)
	if err := tbl.Validate(); err == nil {
		t.Fatal("expected ragged column error")
	}
}

func TestWriterReaderRoundTrip(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "product.rvf")
	f, err := os.Create(path)
	if err != nil {
		t.Fatalf("create file: %v", err)
	}

	w, err := NewWriter(f)
	if err != nil {
		t.Fatalf("new writer: %v", err)
	}

	primary := NewHeaderBlock()
	primary.Set("OBJECT", "HD10700", "target")
	if err := w.WriteSegment("PRIMARY", KindMetadata, primary, nil); err != nil {
		t.Fatalf("write primary: %v", err)
	}

	im := Float64Image([]int{2, 2}, []float64{1, 2, 3, 4})
	imBytes, err := EncodeImage(im)
	if err != nil {
		t.Fatalf("encode image: %v", err)
	}
	if err := w.WriteSegment("TRACE1_FLUX", KindImage, NewHeaderBlock(), imBytes); err != nil {
		t.Fatalf("write image: %v", err)
	}

	tbl := NewTable(StringCol("ID", []string{"x"}))
	tblBytes, err := EncodeTable(tbl)
	if err != nil {
		t.Fatalf("encode table: %v", err)
	}
	if err := w.WriteSegment("RECEIPT", KindTable, nil, tblBytes); err != nil {
		t.Fatalf("write table: %v", err)
	}

	if err := w.Finalise(); err != nil {
		t.Fatalf("finalise: %v", err)
	}
	if err := w.WriteSegment("LATE", KindMetadata, nil, nil); err == nil {
		t.Fatal("write after Finalise succeeded")
	}
	if err := f.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}

	rf, err := Open(path)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	defer func() { _ = rf.Close() }()

	if got := len(rf.Segments); got != 3 {
		t.Fatalf("segment count = %d, want 3", got)
	}
	// Emission order is preserved exactly.
	wantNames := []string{"PRIMARY", "TRACE1_FLUX", "RECEIPT"}
	for i, want := range wantNames {
		if rf.Segments[i].Name != want {
			t.Fatalf("segment %d = %q, want %q", i, rf.Segments[i].Name, want)
		}
	}

	hdr, err := rf.SegmentHeader(&rf.Segments[0])
	if err != nil {
		t.Fatalf("segment header: %v", err)
	}
	if v, _ := hdr.Get("OBJECT"); v != "HD10700" {
		t.Fatalf("OBJECT = %v", v)
	}

	seg := rf.Segment("TRACE1_FLUX")
	if seg == nil || seg.Kind != KindImage {
		t.Fatalf("TRACE1_FLUX segment = %+v", seg)
	}
	gotIm, err := DecodeImage(rf.SegmentData(seg))
	if err != nil {
		t.Fatalf("decode image: %v", err)
	}
	if !reflect.DeepEqual(gotIm, im) {
		t.Fatalf("image mismatch\n got %+v\nwant %+v", gotIm, im)
	}

	seg = rf.Segment("RECEIPT")
	gotTbl, err := DecodeTable(rf.SegmentData(seg))
	if err != nil {
		t.Fatalf("decode table: %v", err)
	}
	if !reflect.DeepEqual(gotTbl, tbl) {
		t.Fatalf("table mismatch\n got %+v\nwant %+v", gotTbl, tbl)
	}
}

func TestOpenRejectsGarbage(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "junk.rvf")
	if err := os.WriteFile(path, make([]byte, 128), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	if _, err := Open(path); !errors.Is(err, ErrInvalidMagic) {
		t.Fatalf("err = %v, want ErrInvalidMagic", err)
	}

	if err := os.WriteFile(path, []byte("RV"), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	if _, err := Open(path); !errors.Is(err, ErrCorruptFile) {
		t.Fatalf("err = %v, want ErrCorruptFile", err)
	}
}

func TestOpenReaderAtNoMmap(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "product.rvf")
	f, err := os.Create(path)
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	w, err := NewWriter(f)
	if err != nil {
		t.Fatalf("new writer: %v", err)
	}
	if err := w.WriteSegment("PRIMARY", KindMetadata, nil, nil); err != nil {
		t.Fatalf("write: %v", err)
	}
	if err := w.Finalise(); err != nil {
		t.Fatalf("finalise: %v", err)
	}
	if err := f.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}

	rf2, err := os.Open(path)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	defer func() { _ = rf2.Close() }()
	st, err := rf2.Stat()
	if err != nil {
		t.Fatalf("stat: %v", err)
	}
	mf, err := OpenReaderAt(rf2, st.Size())
	if err != nil {
		t.Fatalf("open readerat: %v", err)
	}
	defer func() { _ = mf.Close() }()
	if mf.mmapped {
		t.Fatal("OpenReaderAt should not mmap")
	}
	if mf.Header.SegmentCount != 1 {
		t.Fatalf("segment count = %d, want 1", mf.Header.SegmentCount)
	}
}

func TestDecodeImageRejectsOversizedDims(t *testing.T) {
	t.Parallel()

	// A single dim too large to index.
	var e encbuf
	e.putU32(uint32(DTypeFloat64))
	e.putU32(1)
	e.putU64(1 << 63)
	if _, err := DecodeImage(e.bytes()); !errors.Is(err, ErrCorruptFile) {
		t.Fatalf("huge dim: err = %v, want ErrCorruptFile", err)
	}

	// A dim product far beyond what the payload holds.
	e = encbuf{}
	e.putU32(uint32(DTypeFloat64))
	e.putU32(2)
	e.putU64(1 << 31)
	e.putU64(1 << 31)
	if _, err := DecodeImage(e.bytes()); !errors.Is(err, ErrCorruptFile) {
		t.Fatalf("dim product: err = %v, want ErrCorruptFile", err)
	}

	// A dim count the block cannot possibly hold.
	e = encbuf{}
	e.putU32(uint32(DTypeFloat64))
	e.putU32(0xFFFFFFFF)
	if _, err := DecodeImage(e.bytes()); !errors.Is(err, ErrCorruptFile) {
		t.Fatalf("dim count: err = %v, want ErrCorruptFile", err)
	}
}

func TestDecodeTableRejectsOversizedCounts(t *testing.T) {
	t.Parallel()

	// A row count the column block cannot hold.
	var e encbuf
	e.putU32(1)
	e.putU64(1 << 62)
	e.putString("V")
	e.putU32(uint32(ColFloat64))
	if _, err := DecodeTable(e.bytes()); !errors.Is(err, ErrCorruptFile) {
		t.Fatalf("row count: err = %v, want ErrCorruptFile", err)
	}

	// A column count the block cannot hold.
	e = encbuf{}
	e.putU32(0xFFFFFFFF)
	e.putU64(0)
	if _, err := DecodeTable(e.bytes()); !errors.Is(err, ErrCorruptFile) {
		t.Fatalf("column count: err = %v, want ErrCorruptFile", err)
	}
}

func TestParseRejectsOversizedSegmentCount(t *testing.T) {
	t.Parallel()

	hdr := FileHeader{
		Major:            CurrentMajor,
		Minor:            CurrentMinor,
		HeaderSize:       rvfHeaderSize,
		SegmentCount:     0xFFFFFFFF,
		SegmentDirOffset: rvfHeaderSize,
		FileSize:         rvfHeaderSize,
	}
	copy(hdr.Magic[:], MagicRVF)

	if _, err := parseFileData(encodeFileHeader(hdr), false); !errors.Is(err, ErrCorruptFile) {
		t.Fatalf("segment count: err = %v, want ErrCorruptFile", err)
	}
}
