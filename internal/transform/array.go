package transform

import (
	"bytes"
	"encoding/json"
	"fmt"
	"slices"
)

// Array is a flat float64 buffer with a shape. A nil or empty Shape marks a
// scalar, which always holds exactly one value.
type Array struct {
	Data  []float64
	Shape []int
}

// Scalar returns a zero-dimensional array holding v.
func Scalar(v float64) Array {
	return Array{Data: []float64{v}}
}

// Vector returns a one-dimensional array holding vs.
func Vector(vs ...float64) Array {
	return Array{Data: vs, Shape: []int{len(vs)}}
}

// NewArray wraps data with the given shape. The product of shape must equal
// len(data); an empty shape requires exactly one value.
func NewArray(data []float64, shape ...int) (Array, error) {
	n := 1
	for _, d := range shape {
		if d < 0 {
			return Array{}, fmt.Errorf("%w: negative dimension %d", ErrShapeMismatch, d)
		}
		n *= d
	}
	if n != len(data) {
		return Array{}, fmt.Errorf("%w: shape %v needs %d values, got %d", ErrShapeMismatch, shape, n, len(data))
	}
	if len(shape) == 0 {
		shape = nil
	}
	return Array{Data: data, Shape: shape}, nil
}

// Len returns the number of values.
func (a Array) Len() int {
	return len(a.Data)
}

// IsScalar reports whether a has no dimensions.
func (a Array) IsScalar() bool {
	return len(a.Shape) == 0
}

// SameShape reports whether a and b have identical shapes.
func (a Array) SameShape(b Array) bool {
	return slices.Equal(a.Shape, b.Shape)
}

// At returns the i-th value in row-major order.
func (a Array) At(i int) float64 {
	return a.Data[i]
}

// withData returns an array with a's shape holding data.
func (a Array) withData(data []float64) Array {
	return Array{Data: data, Shape: slices.Clone(a.Shape)}
}

// kernel transforms flat, equal-length coordinate slices.
type kernel func(a, b []float64) (outA, outB []float64)

// evaluatePair checks that a and b share a shape, runs fn over their flat
// values and gives both outputs the input shape back.
func evaluatePair(a, b Array, fn kernel) (Array, Array, error) {
	if !a.SameShape(b) || a.Len() != b.Len() {
		return Array{}, Array{}, fmt.Errorf("%w: %v vs %v", ErrShapeMismatch, a.Shape, b.Shape)
	}
	if a.IsScalar() && a.Len() != 1 {
		return Array{}, Array{}, fmt.Errorf("%w: scalar holds %d values", ErrShapeMismatch, a.Len())
	}
	outA, outB := fn(a.Data, b.Data)
	return a.withData(outA), b.withData(outB), nil
}

// MarshalJSON encodes a scalar as a number and other arrays as nested lists.
func (a Array) MarshalJSON() ([]byte, error) {
	if a.IsScalar() {
		if len(a.Data) != 1 {
			return nil, fmt.Errorf("%w: scalar holds %d values", ErrShapeMismatch, len(a.Data))
		}
		return json.Marshal(a.Data[0])
	}
	var buf bytes.Buffer
	if _, err := a.encode(&buf, 0, 0); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func (a Array) encode(buf *bytes.Buffer, dim, offset int) (int, error) {
	buf.WriteByte('[')
	for i := 0; i < a.Shape[dim]; i++ {
		if i > 0 {
			buf.WriteByte(',')
		}
		if dim == len(a.Shape)-1 {
			if offset >= len(a.Data) {
				return offset, fmt.Errorf("%w: shape %v exceeds %d values", ErrShapeMismatch, a.Shape, len(a.Data))
			}
			b, err := json.Marshal(a.Data[offset])
			if err != nil {
				return offset, err
			}
			buf.Write(b)
			offset++
			continue
		}
		var err error
		if offset, err = a.encode(buf, dim+1, offset); err != nil {
			return offset, err
		}
	}
	buf.WriteByte(']')
	return offset, nil
}

// UnmarshalJSON accepts a number or a rectangular nested list of numbers.
func (a *Array) UnmarshalJSON(b []byte) error {
	var v any
	if err := json.Unmarshal(b, &v); err != nil {
		return err
	}

	var shape []int
	for cur := v; ; {
		list, ok := cur.([]any)
		if !ok {
			break
		}
		shape = append(shape, len(list))
		if len(list) == 0 {
			break
		}
		cur = list[0]
	}

	data := make([]float64, 0)
	if err := flatten(v, shape, &data); err != nil {
		return err
	}
	if len(shape) == 0 {
		shape = nil
	}
	a.Data = data
	a.Shape = shape
	return nil
}

func flatten(v any, shape []int, out *[]float64) error {
	if len(shape) == 0 {
		f, ok := v.(float64)
		if !ok {
			return fmt.Errorf("%w: expected number, got %T", ErrShapeMismatch, v)
		}
		*out = append(*out, f)
		return nil
	}
	list, ok := v.([]any)
	if !ok || len(list) != shape[0] {
		return fmt.Errorf("%w: ragged array", ErrShapeMismatch)
	}
	for _, item := range list {
		if err := flatten(item, shape[1:], out); err != nil {
			return err
		}
	}
	return nil
}
