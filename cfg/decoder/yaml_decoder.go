package decoder

import (
	"bytes"

	"github.com/hatlonely/flakeless/cfg/storage"
	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"
)

type YamlDecoderOptions struct {
	// Indent 缩进空格数
	Indent int `cfg:"indent" def:"2"`
}

// YamlDecoder YAML格式编解码器
type YamlDecoder struct {
	indent int
}

func NewYamlDecoderWithOptions(options *YamlDecoderOptions) *YamlDecoder {
	indent := 2
	if options != nil && options.Indent > 0 {
		indent = options.Indent
	}
	return &YamlDecoder{indent: indent}
}

func (y *YamlDecoder) Decode(data []byte) (storage.Storage, error) {
	var result any
	if err := yaml.Unmarshal(data, &result); err != nil {
		return nil, errors.Wrap(err, "failed to decode YAML")
	}
	return storage.NewMapStorage(result), nil
}

func (y *YamlDecoder) Encode(s storage.Storage) ([]byte, error) {
	data, err := storageData(s)
	if err != nil {
		return nil, err
	}

	var buf bytes.Buffer
	encoder := yaml.NewEncoder(&buf)
	encoder.SetIndent(y.indent)
	if err := encoder.Encode(data); err != nil {
		return nil, errors.Wrap(err, "failed to encode YAML")
	}
	if err := encoder.Close(); err != nil {
		return nil, errors.Wrap(err, "failed to encode YAML")
	}
	return buf.Bytes(), nil
}
