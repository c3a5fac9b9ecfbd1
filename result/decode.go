package result

import (
	"reflect"
	"time"

	"github.com/mitchellh/mapstructure"
)

// Decode decodes records into dest with mapstructure, matching struct fields
// on the db tag, e.g. `db:"ORDER_ID,key"`. Values are converted weakly so
// that drivers returning int64 or strings still fill int and time fields.
func Decode(input any, dest any) error {
	cfg := &mapstructure.DecoderConfig{
		TagName:          "db",
		WeaklyTypedInput: true,
		Result:           dest,
		DecodeHook: mapstructure.ComposeDecodeHookFunc(
			bytesToStringHook,
			mapstructure.StringToTimeHookFunc(time.RFC3339Nano),
		),
	}

	decoder, err := mapstructure.NewDecoder(cfg)
	if err != nil {
		return err
	}

	return decoder.Decode(input)
}

func bytesToStringHook(from reflect.Type, to reflect.Type, data any) (any, error) {
	if b, ok := data.([]byte); ok && to.Kind() == reflect.String {
		return string(b), nil
	}

	return data, nil
}

func isSlicePtr(v any) bool {
	t := reflect.TypeOf(v)
	return t != nil && t.Kind() == reflect.Ptr && t.Elem().Kind() == reflect.Slice
}
