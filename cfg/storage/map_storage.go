package storage

import (
	"math"
	"reflect"
	"strconv"
	"strings"
	"time"

	"github.com/hatlonely/flakeless/cfg/def"
	"github.com/hatlonely/flakeless/ref"
	"github.com/pkg/errors"
)

var (
	durationType    = reflect.TypeOf(time.Duration(0))
	typeOptionsType = reflect.TypeOf(ref.TypeOptions{})
)

// MapStorage 基于 map 和 slice 的存储实现
// 解码器输出的 map[string]any / []any 都可以直接包装
type MapStorage struct {
	data any
}

func NewMapStorage(data any) *MapStorage {
	return &MapStorage{data: data}
}

// Data 获取存储的原始数据
func (ms *MapStorage) Data() any {
	return ms.data
}

func (ms *MapStorage) Sub(key string) Storage {
	if key == "" {
		return ms
	}

	current := ms.data
	for _, k := range parseKey(key) {
		current = getValueByKey(current, k)
		if current == nil {
			break
		}
	}
	return NewMapStorage(current)
}

// ConvertTo 转换后为零值字段设置 def tag 中的默认值
func (ms *MapStorage) ConvertTo(object any) error {
	rv := reflect.ValueOf(object)
	if rv.Kind() != reflect.Ptr || rv.IsNil() {
		return errors.New("object must be a non-nil pointer")
	}

	if err := convertValue(ms.data, rv.Elem()); err != nil {
		return err
	}

	if rv.Elem().Kind() == reflect.Struct || rv.Elem().Kind() == reflect.Ptr {
		return def.SetDefaults(object)
	}
	return nil
}

func (ms *MapStorage) Equals(other Storage) bool {
	o, ok := other.(*MapStorage)
	if !ok {
		return false
	}
	return reflect.DeepEqual(ms.data, o.data)
}

// parseKey "a.b[0].c" => ["a", "b", "0", "c"]
func parseKey(key string) []string {
	return strings.FieldsFunc(key, func(r rune) bool {
		return r == '.' || r == '[' || r == ']'
	})
}

func getValueByKey(data any, key string) any {
	switch v := data.(type) {
	case map[string]any:
		return v[key]
	case map[any]any:
		return v[key]
	case []any:
		index, err := strconv.Atoi(key)
		if err != nil || index < 0 || index >= len(v) {
			return nil
		}
		return v[index]
	}

	// toml 的表数组解码为 []map[string]any
	rv := reflect.ValueOf(data)
	switch rv.Kind() {
	case reflect.Map:
		if rv.Type().Key().Kind() == reflect.String {
			if value := rv.MapIndex(reflect.ValueOf(key).Convert(rv.Type().Key())); value.IsValid() {
				return value.Interface()
			}
		}
	case reflect.Slice, reflect.Array:
		if index, err := strconv.Atoi(key); err == nil && index >= 0 && index < rv.Len() {
			return rv.Index(index).Interface()
		}
	}
	return nil
}

func convertValue(src any, dst reflect.Value) error {
	if src == nil {
		return nil
	}

	if dst.Kind() == reflect.Ptr {
		if dst.IsNil() {
			dst.Set(reflect.New(dst.Type().Elem()))
		}
		return convertValue(src, dst.Elem())
	}

	srcValue := reflect.ValueOf(src)

	if dst.Type() == durationType {
		return convertToDuration(srcValue, dst)
	}

	switch dst.Kind() {
	case reflect.Interface:
		if !srcValue.Type().AssignableTo(dst.Type()) {
			return errors.Errorf("cannot assign %v to %v", srcValue.Type(), dst.Type())
		}
		dst.Set(srcValue)
		return nil
	case reflect.Struct:
		return convertToStruct(srcValue, dst)
	case reflect.Map:
		return convertToMap(srcValue, dst)
	case reflect.Slice:
		return convertToSlice(srcValue, dst)
	case reflect.String:
		dst.SetString(toString(srcValue))
		return nil
	case reflect.Bool:
		return convertToBool(srcValue, dst)
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64,
		reflect.Float32, reflect.Float64:
		return convertToNumber(srcValue, dst)
	}

	if srcValue.Type().ConvertibleTo(dst.Type()) {
		dst.Set(srcValue.Convert(dst.Type()))
		return nil
	}
	return errors.Errorf("cannot convert %v to %v", srcValue.Type(), dst.Type())
}

func toString(src reflect.Value) string {
	switch src.Kind() {
	case reflect.String:
		return src.String()
	case reflect.Float32, reflect.Float64:
		return strconv.FormatFloat(src.Float(), 'f', -1, 64)
	case reflect.Bool:
		return strconv.FormatBool(src.Bool())
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return strconv.FormatInt(src.Int(), 10)
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return strconv.FormatUint(src.Uint(), 10)
	}
	return ""
}

func convertToBool(src reflect.Value, dst reflect.Value) error {
	switch src.Kind() {
	case reflect.Bool:
		dst.SetBool(src.Bool())
		return nil
	case reflect.String:
		val, err := strconv.ParseBool(src.String())
		if err != nil {
			return errors.Wrapf(err, "invalid bool %q", src.String())
		}
		dst.SetBool(val)
		return nil
	}
	return errors.Errorf("cannot convert %v to bool", src.Type())
}

// convertToNumber 数字之间互相转换，字符串按十进制解析
// JSON 解码的数字是 float64，带小数的值不能转成整数
func convertToNumber(src reflect.Value, dst reflect.Value) error {
	if src.Kind() == reflect.String {
		return parseNumber(src.String(), dst)
	}

	switch src.Kind() {
	case reflect.Float32, reflect.Float64:
		f := src.Float()
		switch dst.Kind() {
		case reflect.Float32, reflect.Float64:
			dst.SetFloat(f)
			return nil
		}
		if f != math.Trunc(f) {
			return errors.Errorf("cannot convert %v to %v", f, dst.Type())
		}
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
	default:
		return errors.Errorf("cannot convert %v to %v", src.Type(), dst.Type())
	}

	switch dst.Kind() {
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		if (src.CanInt() && src.Int() < 0) || (src.CanFloat() && src.Float() < 0) {
			return errors.Errorf("cannot convert negative %v to %v", src.Interface(), dst.Type())
		}
	}

	dst.Set(src.Convert(dst.Type()))
	return nil
}

func parseNumber(s string, dst reflect.Value) error {
	s = strings.TrimSpace(s)
	switch dst.Kind() {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		val, err := strconv.ParseInt(s, 10, dst.Type().Bits())
		if err != nil {
			return errors.Wrapf(err, "invalid int %q", s)
		}
		dst.SetInt(val)
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		val, err := strconv.ParseUint(s, 10, dst.Type().Bits())
		if err != nil {
			return errors.Wrapf(err, "invalid uint %q", s)
		}
		dst.SetUint(val)
	default:
		val, err := strconv.ParseFloat(s, dst.Type().Bits())
		if err != nil {
			return errors.Wrapf(err, "invalid float %q", s)
		}
		dst.SetFloat(val)
	}
	return nil
}

func convertToDuration(src reflect.Value, dst reflect.Value) error {
	switch src.Kind() {
	case reflect.String:
		duration, err := time.ParseDuration(src.String())
		if err != nil {
			return errors.Wrapf(err, "invalid duration %q", src.String())
		}
		dst.SetInt(int64(duration))
		return nil
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		dst.SetInt(src.Int())
		return nil
	case reflect.Float32, reflect.Float64:
		// 浮点数视为秒
		dst.SetInt(int64(src.Float() * float64(time.Second)))
		return nil
	}
	return errors.Errorf("cannot convert %v to time.Duration", src.Type())
}

func convertToMap(src reflect.Value, dst reflect.Value) error {
	if src.Kind() != reflect.Map {
		return errors.Errorf("cannot convert %v to %v", src.Type(), dst.Type())
	}
	if dst.IsNil() {
		dst.Set(reflect.MakeMap(dst.Type()))
	}

	keyType := dst.Type().Key()
	for _, key := range src.MapKeys() {
		dstKey := reflect.New(keyType).Elem()
		if err := convertValue(key.Interface(), dstKey); err != nil {
			return errors.WithMessagef(err, "key %v", key.Interface())
		}
		dstValue := reflect.New(dst.Type().Elem()).Elem()
		if err := convertValue(src.MapIndex(key).Interface(), dstValue); err != nil {
			return errors.WithMessagef(err, "key %v", key.Interface())
		}
		dst.SetMapIndex(dstKey, dstValue)
	}
	return nil
}

func convertToSlice(src reflect.Value, dst reflect.Value) error {
	if src.Kind() != reflect.Slice && src.Kind() != reflect.Array {
		return errors.Errorf("cannot convert %v to %v", src.Type(), dst.Type())
	}

	slice := reflect.MakeSlice(dst.Type(), src.Len(), src.Len())
	for i := 0; i < src.Len(); i++ {
		if err := convertValue(src.Index(i).Interface(), slice.Index(i)); err != nil {
			return errors.WithMessagef(err, "index %d", i)
		}
	}
	dst.Set(slice)
	return nil
}

func convertToStruct(src reflect.Value, dst reflect.Value) error {
	if src.Kind() != reflect.Map {
		return errors.Errorf("cannot convert %v to %v", src.Type(), dst.Type())
	}

	values := make(map[string]any, src.Len())
	for _, key := range src.MapKeys() {
		values[toString(reflect.ValueOf(key.Interface()))] = src.MapIndex(key).Interface()
	}

	dstType := dst.Type()
	for i := 0; i < dstType.NumField(); i++ {
		field := dstType.Field(i)
		fieldValue := dst.Field(i)
		if !fieldValue.CanSet() {
			continue
		}

		name := fieldName(field)
		if name == "-" {
			continue
		}

		value, ok := values[name]
		if !ok {
			continue
		}

		// TypeOptions.Options 保留为 Storage，由 ref 按构造函数的参数类型再转换
		if dstType == typeOptionsType && field.Name == "Options" {
			if value != nil {
				fieldValue.Set(reflect.ValueOf(NewValidateStorage(NewMapStorage(value))))
			}
			continue
		}

		if err := convertValue(value, fieldValue); err != nil {
			return errors.WithMessagef(err, "field %s", field.Name)
		}
	}
	return nil
}

// fieldName 依次使用 cfg, json, yaml, toml, ini tag，都没有时使用字段名
func fieldName(field reflect.StructField) string {
	for _, tagKey := range []string{"cfg", "json", "yaml", "toml", "ini"} {
		if tag := field.Tag.Get(tagKey); tag != "" {
			if name := strings.Split(tag, ",")[0]; name != "" {
				return name
			}
		}
	}
	return field.Name
}
