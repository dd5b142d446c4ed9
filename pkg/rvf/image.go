package rvf

import (
	"fmt"
	"math"
)

// DType identifies the element type of an image payload.
type DType uint32

const (
	DTypeBool DType = iota
	DTypeInt32
	DTypeInt64
	DTypeFloat32
	DTypeFloat64
)

func (t DType) String() string {
	switch t {
	case DTypeBool:
		return "bool"
	case DTypeInt32:
		return "i32"
	case DTypeInt64:
		return "i64"
	case DTypeFloat32:
		return "f32"
	case DTypeFloat64:
		return "f64"
	default:
		return fmt.Sprintf("dtype(%d)", uint32(t))
	}
}

// Image is an n-dimensional array in row-major order. The concrete type of
// Data follows DType: []bool, []int32, []int64, []float32 or []float64.
// A zero-dimensional image (no dims, no elements) is the empty placeholder.
type Image struct {
	DType DType
	Dims  []int
	Data  any
}

// Float64Image builds a float64-typed image over the given dims.
func Float64Image(dims []int, data []float64) *Image {
	return &Image{DType: DTypeFloat64, Dims: dims, Data: data}
}

// BoolImage builds a bool-typed image over the given dims.
func BoolImage(dims []int, data []bool) *Image {
	return &Image{DType: DTypeBool, Dims: dims, Data: data}
}

// Int64Image builds an int64-typed image over the given dims.
func Int64Image(dims []int, data []int64) *Image {
	return &Image{DType: DTypeInt64, Dims: dims, Data: data}
}

// NDim returns the number of dimensions. A nil image is zero-dimensional.
func (im *Image) NDim() int {
	if im == nil {
		return 0
	}
	return len(im.Dims)
}

// Shape returns the per-dimension sizes.
func (im *Image) Shape() []int {
	if im == nil {
		return nil
	}
	return im.Dims
}

// ElemCount returns the number of elements implied by the dims.
func (im *Image) ElemCount() int {
	if im == nil {
		return 0
	}
	n := 1
	for _, d := range im.Dims {
		n *= d
	}
	if len(im.Dims) == 0 {
		return 0
	}
	return n
}

func (im *Image) dataLen() (int, error) {
	switch v := im.Data.(type) {
	case nil:
		return 0, nil
	case []bool:
		return len(v), nil
	case []int32:
		return len(v), nil
	case []int64:
		return len(v), nil
	case []float32:
		return len(v), nil
	case []float64:
		return len(v), nil
	default:
		return 0, fmt.Errorf("rvf: unsupported image data type %T", im.Data)
	}
}

// Validate checks that Data's concrete type matches DType and the element
// count matches the dims.
func (im *Image) Validate() error {
	if im == nil {
		return nil
	}
	for i, d := range im.Dims {
		if d < 0 {
			return fmt.Errorf("rvf: negative dim %d at axis %d", d, i)
		}
	}
	ok := false
	switch im.DType {
	case DTypeBool:
		_, ok = im.Data.([]bool)
	case DTypeInt32:
		_, ok = im.Data.([]int32)
	case DTypeInt64:
		_, ok = im.Data.([]int64)
	case DTypeFloat32:
		_, ok = im.Data.([]float32)
	case DTypeFloat64:
		_, ok = im.Data.([]float64)
	default:
		return fmt.Errorf("rvf: unknown image dtype %s", im.DType)
	}
	if !ok && im.Data != nil {
		return fmt.Errorf("rvf: image data %T does not match dtype %s", im.Data, im.DType)
	}
	n, err := im.dataLen()
	if err != nil {
		return err
	}
	if n != im.ElemCount() {
		return fmt.Errorf("rvf: image has %d elements, dims imply %d", n, im.ElemCount())
	}
	return nil
}

// WidenBool returns a float64 copy of a bool-typed image, with true mapped to
// 1.0 and false to 0.0. Images of any other dtype are returned unchanged.
// The receiver is never mutated.
func (im *Image) WidenBool() *Image {
	if im == nil || im.DType != DTypeBool {
		return im
	}
	src, _ := im.Data.([]bool)
	out := make([]float64, len(src))
	for i, v := range src {
		if v {
			out[i] = 1.0
		}
	}
	dims := make([]int, len(im.Dims))
	copy(dims, im.Dims)
	return &Image{DType: DTypeFloat64, Dims: dims, Data: out}
}

// EncodeImage serialises an image payload. Boolean-typed images are rejected
// with ErrBoolArray. A nil image encodes as an empty zero-dimensional float64
// array.
func EncodeImage(im *Image) ([]byte, error) {
	if im == nil {
		im = &Image{DType: DTypeFloat64}
	}
	if im.DType == DTypeBool {
		return nil, ErrBoolArray
	}
	if err := im.Validate(); err != nil {
		return nil, err
	}
	var e encbuf
	e.putU32(uint32(im.DType))
	e.putU32(uint32(len(im.Dims)))
	for _, d := range im.Dims {
		e.putU64(uint64(d))
	}
	switch v := im.Data.(type) {
	case []int32:
		for _, x := range v {
			e.putU32(uint32(x))
		}
	case []int64:
		for _, x := range v {
			e.putI64(x)
		}
	case []float32:
		for _, x := range v {
			e.putF32(x)
		}
	case []float64:
		for _, x := range v {
			e.putF64(x)
		}
	}
	return e.bytes(), nil
}

// DecodeImage parses an image payload.
func DecodeImage(data []byte) (*Image, error) {
	d := decbuf{b: data}
	dtype, err := d.u32()
	if err != nil {
		return nil, err
	}
	if DType(dtype) == DTypeBool {
		return nil, ErrBoolArray
	}
	var elemSize int
	switch DType(dtype) {
	case DTypeInt32, DTypeFloat32:
		elemSize = 4
	case DTypeInt64, DTypeFloat64:
		elemSize = 8
	default:
		return nil, fmt.Errorf("%w: image dtype %d", ErrCorruptFile, dtype)
	}
	rawNDim, err := d.u32()
	if err != nil {
		return nil, err
	}
	ndim, err := d.count(uint64(rawNDim), 8)
	if err != nil {
		return nil, err
	}
	im := &Image{DType: DType(dtype)}
	count := 0
	if ndim > 0 {
		im.Dims = make([]int, ndim)
		elems := uint64(1)
		for i := range im.Dims {
			v, err := d.u64()
			if err != nil {
				return nil, err
			}
			if v > uint64(math.MaxInt) {
				return nil, fmt.Errorf("%w: image dim %d out of range", ErrCorruptFile, v)
			}
			if v > 0 && elems > math.MaxUint64/v {
				return nil, fmt.Errorf("%w: image dims overflow", ErrCorruptFile)
			}
			im.Dims[i] = int(v)
			elems *= v
		}
		if count, err = d.count(elems, elemSize); err != nil {
			return nil, err
		}
	}
	switch im.DType {
	case DTypeInt32:
		out := make([]int32, count)
		for i := range out {
			v, err := d.u32()
			if err != nil {
				return nil, err
			}
			out[i] = int32(v)
		}
		im.Data = out
	case DTypeInt64:
		out := make([]int64, count)
		for i := range out {
			v, err := d.i64()
			if err != nil {
				return nil, err
			}
			out[i] = v
		}
		im.Data = out
	case DTypeFloat32:
		out := make([]float32, count)
		for i := range out {
			v, err := d.f32()
			if err != nil {
				return nil, err
			}
			out[i] = v
		}
		im.Data = out
	case DTypeFloat64:
		out := make([]float64, count)
		for i := range out {
			v, err := d.f64()
			if err != nil {
				return nil, err
			}
			out[i] = v
		}
		im.Data = out
	default:
		return nil, fmt.Errorf("%w: image dtype %d", ErrCorruptFile, dtype)
	}
	return im, nil
}
