package validator

import (
	"reflect"

	"github.com/go-playground/validator/v10"
)

// validate 缓存结构体的校验规则，并发安全
var validate = validator.New()

// ValidateStruct 使用 validator 校验结构体
// nil 和非结构体直接返回 nil
func ValidateStruct(object any) error {
	if object == nil {
		return nil
	}

	rv := reflect.ValueOf(object)
	for rv.Kind() == reflect.Ptr {
		if rv.IsNil() {
			return nil
		}
		rv = rv.Elem()
	}

	if rv.Kind() != reflect.Struct {
		return nil
	}

	rt := rv.Type()
	if rt.PkgPath() == "time" && rt.Name() == "Time" {
		return nil
	}

	return validate.Struct(rv.Interface())
}
