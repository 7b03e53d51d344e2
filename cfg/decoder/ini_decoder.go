package decoder

import (
	"bytes"
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/hatlonely/flakeless/cfg/storage"
	"github.com/pkg/errors"
	"gopkg.in/ini.v1"
)

type IniDecoderOptions struct {
	// AllowShadows 重复键解码为数组
	AllowShadows bool `cfg:"allowShadows"`
}

// IniDecoder INI格式编解码器
// section 名中的点号表示嵌套，[server.metrics] 解码为 {"server": {"metrics": {...}}}
type IniDecoder struct {
	allowShadows bool
}

func NewIniDecoderWithOptions(options *IniDecoderOptions) *IniDecoder {
	if options == nil {
		options = &IniDecoderOptions{}
	}
	return &IniDecoder{allowShadows: options.AllowShadows}
}

func (i *IniDecoder) Decode(data []byte) (storage.Storage, error) {
	file, err := ini.LoadSources(ini.LoadOptions{
		AllowShadows:             i.allowShadows,
		SpaceBeforeInlineComment: true,
	}, data)
	if err != nil {
		return nil, errors.Wrap(err, "failed to decode INI")
	}

	result := make(map[string]any)
	for _, section := range file.Sections() {
		target := result
		if section.Name() != ini.DefaultSection {
			for _, name := range strings.Split(section.Name(), ".") {
				child, ok := target[name].(map[string]any)
				if !ok {
					child = make(map[string]any)
					target[name] = child
				}
				target = child
			}
		}

		for _, key := range section.Keys() {
			target[key.Name()] = i.parseValue(key)
		}
	}

	return storage.NewMapStorage(result), nil
}

func (i *IniDecoder) parseValue(key *ini.Key) any {
	if i.allowShadows {
		if values := key.ValueWithShadows(); len(values) > 1 {
			result := make([]any, 0, len(values))
			for _, v := range values {
				result = append(result, parseScalar(v))
			}
			return result
		}
	}
	return parseScalar(key.String())
}

// parseScalar 依次尝试布尔、整数、浮点数，否则保留字符串
func parseScalar(value string) any {
	if b, err := strconv.ParseBool(value); err == nil && (value == "true" || value == "false") {
		return b
	}
	if n, err := strconv.ParseInt(value, 10, 64); err == nil {
		return n
	}
	if f, err := strconv.ParseFloat(value, 64); err == nil {
		return f
	}
	return value
}

func (i *IniDecoder) Encode(s storage.Storage) ([]byte, error) {
	data, err := storageData(s)
	if err != nil {
		return nil, err
	}

	m, ok := data.(map[string]any)
	if !ok {
		return nil, errors.Errorf("unsupported data type for INI encoding: %T", data)
	}

	file := ini.Empty(ini.LoadOptions{AllowShadows: i.allowShadows})
	if err := i.encodeSection(file, "", m); err != nil {
		return nil, err
	}

	var buf bytes.Buffer
	if _, err := file.WriteTo(&buf); err != nil {
		return nil, errors.Wrap(err, "failed to write INI")
	}
	return buf.Bytes(), nil
}

func (i *IniDecoder) encodeSection(file *ini.File, name string, data map[string]any) error {
	section := file.Section(name)

	keys := make([]string, 0, len(data))
	for key := range data {
		keys = append(keys, key)
	}
	sort.Strings(keys)

	for _, key := range keys {
		switch v := data[key].(type) {
		case map[string]any:
			child := key
			if name != "" {
				child = name + "." + key
			}
			if err := i.encodeSection(file, child, v); err != nil {
				return err
			}
		case []any:
			if !i.allowShadows {
				return errors.Errorf("array value for key %q requires allowShadows", key)
			}
			for idx, item := range v {
				if idx == 0 {
					if _, err := section.NewKey(key, fmt.Sprint(item)); err != nil {
						return errors.Wrapf(err, "failed to add key %q", key)
					}
					continue
				}
				if err := section.Key(key).AddShadow(fmt.Sprint(item)); err != nil {
					return errors.Wrapf(err, "failed to add key %q", key)
				}
			}
		default:
			if _, err := section.NewKey(key, fmt.Sprint(v)); err != nil {
				return errors.Wrapf(err, "failed to add key %q", key)
			}
		}
	}
	return nil
}
