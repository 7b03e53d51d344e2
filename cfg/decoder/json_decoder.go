package decoder

import (
	"encoding/json"
	"regexp"

	"github.com/hatlonely/flakeless/cfg/storage"
	"github.com/pkg/errors"
)

type JsonDecoderOptions struct {
	// UseJSON5 支持注释和尾随逗号
	UseJSON5 bool `cfg:"useJSON5"`
}

// JsonDecoder JSON格式编解码器
type JsonDecoder struct {
	useJSON5 bool
}

func NewJsonDecoderWithOptions(options *JsonDecoderOptions) *JsonDecoder {
	if options == nil {
		options = &JsonDecoderOptions{}
	}
	return &JsonDecoder{useJSON5: options.UseJSON5}
}

func (j *JsonDecoder) Decode(data []byte) (storage.Storage, error) {
	if j.useJSON5 {
		data = preprocessJSON5(data)
	}

	var result any
	if err := json.Unmarshal(data, &result); err != nil {
		return nil, errors.Wrap(err, "failed to decode JSON")
	}
	return storage.NewMapStorage(result), nil
}

func (j *JsonDecoder) Encode(s storage.Storage) ([]byte, error) {
	data, err := storageData(s)
	if err != nil {
		return nil, err
	}

	result, err := json.MarshalIndent(data, "", "  ")
	if err != nil {
		return nil, errors.Wrap(err, "failed to encode JSON")
	}
	return result, nil
}

var trailingCommaRegex = regexp.MustCompile(`,(\s*[}\]])`)

// preprocessJSON5 移除字符串外的 // 和 /* */ 注释，以及对象和数组中的尾随逗号
func preprocessJSON5(data []byte) []byte {
	out := make([]byte, 0, len(data))
	inString, escaped := false, false

	for i := 0; i < len(data); i++ {
		c := data[i]
		if inString {
			out = append(out, c)
			switch {
			case escaped:
				escaped = false
			case c == '\\':
				escaped = true
			case c == '"':
				inString = false
			}
			continue
		}

		if c == '/' && i+1 < len(data) {
			switch data[i+1] {
			case '/':
				for i < len(data) && data[i] != '\n' {
					i++
				}
				if i < len(data) {
					out = append(out, '\n')
				}
				continue
			case '*':
				i += 2
				for i+1 < len(data) && !(data[i] == '*' && data[i+1] == '/') {
					i++
				}
				i++
				continue
			}
		}

		if c == '"' {
			inString = true
		}
		out = append(out, c)
	}

	return trailingCommaRegex.ReplaceAll(out, []byte("$1"))
}
