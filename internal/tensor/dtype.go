// Package tensor provides the core tensor types for the audionet training stack.
package tensor

// DType is the compile-time constraint for supported element types.
type DType interface {
	~float32 | ~int32
}

// DataType carries runtime type information for a RawTensor.
type DataType int

// Supported element types. Float32 covers all learnable state and features;
// Int32 covers class labels.
const (
	Float32 DataType = iota
	Int32
)

// Size returns the element size in bytes.
func (dt DataType) Size() int {
	switch dt {
	case Float32, Int32:
		return 4
	default:
		panic("unknown data type")
	}
}

// String returns a human-readable name.
func (dt DataType) String() string {
	switch dt {
	case Float32:
		return "float32"
	case Int32:
		return "int32"
	default:
		return "unknown"
	}
}

func inferDataType[T DType](dummy T) DataType {
	switch any(dummy).(type) {
	case float32:
		return Float32
	case int32:
		return Int32
	default:
		panic("unsupported element type")
	}
}
