package assert

import (
	"fmt"
	"reflect"
	"time"
)

// NotNil panics when value is nil or a typed nil pointer/interface/map/func.
func NotNil(value any, name string) {
	if value == nil {
		panic(fmt.Sprintf("%s: expected value to be not nil", name))
	}
	v := reflect.ValueOf(value)
	switch v.Kind() {
	case reflect.Pointer, reflect.Interface, reflect.Map, reflect.Func, reflect.Chan, reflect.Slice:
		if v.IsNil() {
			panic(fmt.Sprintf("%s: expected value to be not nil", name))
		}
	}
}

func NotEmptyStr(str, name string) {
	if str == "" {
		panic(fmt.Sprintf("%s: expected string to be non-empty", name))
	}
}

func PositiveDuration(d time.Duration, name string) {
	if d <= 0 {
		panic(fmt.Sprintf("%s: expected a positive duration, got %s", name, d))
	}
}
