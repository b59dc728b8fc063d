package attribute

import (
	"fmt"

	"github.com/zclconf/go-cty/cty"
	"github.com/zclconf/go-cty/cty/convert"
	"gonum.org/v1/gonum/mat"
)

// The wire boundary is type-erased: attribute values travel as cty values
// so transports can serialize them without knowing the Go type per slot.
// Complex numbers become {re, im} objects, vectors become number lists and
// matrices become lists of row lists. Decoding accepts both list and tuple
// types since a JSON round trip yields tuples.

func packValue(v any) (cty.Value, error) {
	switch x := v.(type) {
	case bool:
		return cty.BoolVal(x), nil
	case string:
		return cty.StringVal(x), nil
	case int:
		return cty.NumberIntVal(int64(x)), nil
	case int64:
		return cty.NumberIntVal(x), nil
	case uint64:
		return cty.NumberUIntVal(x), nil
	case float64:
		return cty.NumberFloatVal(x), nil
	case complex128:
		return packComplex(x), nil
	case *mat.VecDense:
		if x == nil {
			return cty.NilVal, fmt.Errorf("%w: nil vector", ErrUnsupportedType)
		}
		n := x.Len()
		elems := make([]cty.Value, n)
		for i := 0; i < n; i++ {
			elems[i] = cty.NumberFloatVal(x.AtVec(i))
		}
		if n == 0 {
			return cty.ListValEmpty(cty.Number), nil
		}
		return cty.ListVal(elems), nil
	case *mat.Dense:
		if x == nil {
			return cty.NilVal, fmt.Errorf("%w: nil matrix", ErrUnsupportedType)
		}
		rows, cols := x.Dims()
		return packRows(rows, cols, func(i, j int) cty.Value {
			return cty.NumberFloatVal(x.At(i, j))
		}), nil
	case *mat.CDense:
		if x == nil {
			return cty.NilVal, fmt.Errorf("%w: nil matrix", ErrUnsupportedType)
		}
		rows, cols := x.Dims()
		return packRows(rows, cols, func(i, j int) cty.Value {
			return packComplex(x.At(i, j))
		}), nil
	default:
		return cty.NilVal, fmt.Errorf("%w: %T", ErrUnsupportedType, v)
	}
}

func packComplex(c complex128) cty.Value {
	return cty.ObjectVal(map[string]cty.Value{
		"re": cty.NumberFloatVal(real(c)),
		"im": cty.NumberFloatVal(imag(c)),
	})
}

func packRows(rows, cols int, at func(i, j int) cty.Value) cty.Value {
	if rows == 0 {
		return cty.ListValEmpty(cty.List(cty.Number))
	}
	rowVals := make([]cty.Value, rows)
	for i := 0; i < rows; i++ {
		elems := make([]cty.Value, cols)
		for j := 0; j < cols; j++ {
			elems[j] = at(i, j)
		}
		rowVals[i] = cty.TupleVal(elems)
	}
	return cty.TupleVal(rowVals)
}

func unpackValue(v cty.Value, dst any) error {
	if v.IsNull() || !v.IsKnown() {
		return fmt.Errorf("%w: null or unknown value", ErrUnsupportedType)
	}
	switch p := dst.(type) {
	case *bool:
		cv, err := convert.Convert(v, cty.Bool)
		if err != nil {
			return fmt.Errorf("decode bool: %w", err)
		}
		*p = cv.True()
	case *string:
		cv, err := convert.Convert(v, cty.String)
		if err != nil {
			return fmt.Errorf("decode string: %w", err)
		}
		*p = cv.AsString()
	case *int:
		f, err := unpackFloat(v)
		if err != nil {
			return err
		}
		*p = int(f)
	case *int64:
		f, err := unpackFloat(v)
		if err != nil {
			return err
		}
		*p = int64(f)
	case *uint64:
		f, err := unpackFloat(v)
		if err != nil {
			return err
		}
		*p = uint64(f)
	case *float64:
		f, err := unpackFloat(v)
		if err != nil {
			return err
		}
		*p = f
	case *complex128:
		c, err := unpackComplex(v)
		if err != nil {
			return err
		}
		*p = c
	case **mat.VecDense:
		elems, err := unpackElems(v)
		if err != nil {
			return err
		}
		if len(elems) == 0 {
			return fmt.Errorf("%w: empty vector", ErrUnsupportedType)
		}
		data := make([]float64, len(elems))
		for i, e := range elems {
			f, err := unpackFloat(e)
			if err != nil {
				return err
			}
			data[i] = f
		}
		*p = mat.NewVecDense(len(data), data)
	case **mat.Dense:
		rows, cols, elems, err := unpackMatrixElems(v)
		if err != nil {
			return err
		}
		if rows == 0 || cols == 0 {
			return fmt.Errorf("%w: empty matrix", ErrUnsupportedType)
		}
		data := make([]float64, 0, rows*cols)
		for _, e := range elems {
			f, err := unpackFloat(e)
			if err != nil {
				return err
			}
			data = append(data, f)
		}
		*p = mat.NewDense(rows, cols, data)
	case **mat.CDense:
		rows, cols, elems, err := unpackMatrixElems(v)
		if err != nil {
			return err
		}
		if rows == 0 || cols == 0 {
			return fmt.Errorf("%w: empty matrix", ErrUnsupportedType)
		}
		data := make([]complex128, 0, rows*cols)
		for _, e := range elems {
			c, err := unpackComplex(e)
			if err != nil {
				return err
			}
			data = append(data, c)
		}
		*p = mat.NewCDense(rows, cols, data)
	default:
		return fmt.Errorf("%w: %T", ErrUnsupportedType, dst)
	}
	return nil
}

func unpackFloat(v cty.Value) (float64, error) {
	cv, err := convert.Convert(v, cty.Number)
	if err != nil {
		return 0, fmt.Errorf("decode number: %w", err)
	}
	f, _ := cv.AsBigFloat().Float64()
	return f, nil
}

func unpackComplex(v cty.Value) (complex128, error) {
	ty := v.Type()
	if !ty.IsObjectType() || !ty.HasAttribute("re") || !ty.HasAttribute("im") {
		return 0, fmt.Errorf("%w: expected {re, im} object, got %s", ErrUnsupportedType, ty.FriendlyName())
	}
	re, err := unpackFloat(v.GetAttr("re"))
	if err != nil {
		return 0, err
	}
	im, err := unpackFloat(v.GetAttr("im"))
	if err != nil {
		return 0, err
	}
	return complex(re, im), nil
}

func unpackElems(v cty.Value) ([]cty.Value, error) {
	if !v.CanIterateElements() {
		return nil, fmt.Errorf("%w: expected a sequence, got %s", ErrUnsupportedType, v.Type().FriendlyName())
	}
	var elems []cty.Value
	for it := v.ElementIterator(); it.Next(); {
		_, ev := it.Element()
		elems = append(elems, ev)
	}
	return elems, nil
}

func unpackMatrixElems(v cty.Value) (rows, cols int, elems []cty.Value, err error) {
	rowVals, err := unpackElems(v)
	if err != nil {
		return 0, 0, nil, err
	}
	for i, rv := range rowVals {
		rowElems, err := unpackElems(rv)
		if err != nil {
			return 0, 0, nil, err
		}
		if i == 0 {
			cols = len(rowElems)
		} else if len(rowElems) != cols {
			return 0, 0, nil, fmt.Errorf("%w: ragged matrix rows", ErrUnsupportedType)
		}
		elems = append(elems, rowElems...)
	}
	return len(rowVals), cols, elems, nil
}
