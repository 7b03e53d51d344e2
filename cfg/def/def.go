package def

import (
	"reflect"
	"strconv"
	"strings"
	"time"

	"github.com/pkg/errors"
)

var (
	durationType = reflect.TypeOf(time.Duration(0))
	timeType     = reflect.TypeOf(time.Time{})
)

// SetDefaults 为结构体设置默认值，基于 def tag
// 只有零值字段会被设置，nil 指针不会被分配
func SetDefaults(object any) error {
	if object == nil {
		return errors.New("object cannot be nil")
	}

	rv := reflect.ValueOf(object)
	if rv.Kind() != reflect.Ptr {
		return errors.New("object must be a pointer")
	}
	if rv.IsNil() {
		return errors.New("object cannot be nil")
	}

	return setDefaults(rv.Elem())
}

func setDefaults(rv reflect.Value) error {
	for rv.Kind() == reflect.Ptr {
		if rv.IsNil() {
			return nil
		}
		rv = rv.Elem()
	}

	if rv.Kind() != reflect.Struct || rv.Type() == timeType {
		return nil
	}

	rt := rv.Type()
	for i := 0; i < rt.NumField(); i++ {
		field := rt.Field(i)
		fieldValue := rv.Field(i)

		if !fieldValue.CanSet() || field.Tag.Get("cfg") == "-" {
			continue
		}

		switch fieldValue.Kind() {
		case reflect.Struct, reflect.Ptr:
			if err := setDefaults(fieldValue); err != nil {
				return errors.WithMessagef(err, "field %s", field.Name)
			}
		case reflect.Slice:
			if fieldValue.Type().Elem().Kind() == reflect.Struct {
				for j := 0; j < fieldValue.Len(); j++ {
					if err := setDefaults(fieldValue.Index(j)); err != nil {
						return errors.WithMessagef(err, "field %s[%d]", field.Name, j)
					}
				}
			}
		case reflect.Map:
			// map 的值不可寻址，只处理指针类型的值
			if fieldValue.Type().Elem().Kind() == reflect.Ptr {
				iter := fieldValue.MapRange()
				for iter.Next() {
					if err := setDefaults(iter.Value()); err != nil {
						return errors.WithMessagef(err, "field %s[%v]", field.Name, iter.Key())
					}
				}
			}
		}

		defTag, ok := field.Tag.Lookup("def")
		if !ok || !fieldValue.IsZero() {
			continue
		}

		if err := setDefaultValue(fieldValue, defTag); err != nil {
			return errors.WithMessagef(err, "failed to set default value for field %s", field.Name)
		}
	}

	return nil
}

func setDefaultValue(rv reflect.Value, defValue string) error {
	if rv.Type() == durationType {
		duration, err := time.ParseDuration(defValue)
		if err != nil {
			return errors.Wrapf(err, "invalid duration value %q", defValue)
		}
		rv.SetInt(int64(duration))
		return nil
	}

	switch rv.Kind() {
	case reflect.String:
		rv.SetString(defValue)
	case reflect.Bool:
		val, err := strconv.ParseBool(defValue)
		if err != nil {
			return errors.Wrapf(err, "invalid bool value %q", defValue)
		}
		rv.SetBool(val)
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		val, err := strconv.ParseInt(defValue, 0, rv.Type().Bits())
		if err != nil {
			return errors.Wrapf(err, "invalid int value %q", defValue)
		}
		rv.SetInt(val)
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		val, err := strconv.ParseUint(defValue, 0, rv.Type().Bits())
		if err != nil {
			return errors.Wrapf(err, "invalid uint value %q", defValue)
		}
		rv.SetUint(val)
	case reflect.Float32, reflect.Float64:
		val, err := strconv.ParseFloat(defValue, rv.Type().Bits())
		if err != nil {
			return errors.Wrapf(err, "invalid float value %q", defValue)
		}
		rv.SetFloat(val)
	case reflect.Slice:
		// 逗号分隔
		parts := strings.Split(defValue, ",")
		slice := reflect.MakeSlice(rv.Type(), len(parts), len(parts))
		for i, part := range parts {
			if err := setDefaultValue(slice.Index(i), strings.TrimSpace(part)); err != nil {
				return errors.WithMessagef(err, "element %d", i)
			}
		}
		rv.Set(slice)
	case reflect.Ptr:
		elem := reflect.New(rv.Type().Elem())
		if err := setDefaultValue(elem.Elem(), defValue); err != nil {
			return err
		}
		rv.Set(elem)
	default:
		return errors.Errorf("unsupported type %v", rv.Type())
	}

	return nil
}
