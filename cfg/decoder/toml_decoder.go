package decoder

import (
	"bytes"

	"github.com/BurntSushi/toml"
	"github.com/hatlonely/flakeless/cfg/storage"
	"github.com/pkg/errors"
)

type TomlDecoderOptions struct {
	Indent string `cfg:"indent"`
}

// TomlDecoder TOML格式编解码器
type TomlDecoder struct {
	indent string
}

func NewTomlDecoderWithOptions(options *TomlDecoderOptions) *TomlDecoder {
	indent := "  "
	if options != nil && options.Indent != "" {
		indent = options.Indent
	}
	return &TomlDecoder{indent: indent}
}

func (t *TomlDecoder) Decode(data []byte) (storage.Storage, error) {
	var result map[string]any
	if err := toml.Unmarshal(data, &result); err != nil {
		return nil, errors.Wrap(err, "failed to decode TOML")
	}
	return storage.NewMapStorage(result), nil
}

func (t *TomlDecoder) Encode(s storage.Storage) ([]byte, error) {
	data, err := storageData(s)
	if err != nil {
		return nil, err
	}

	var buf bytes.Buffer
	encoder := toml.NewEncoder(&buf)
	encoder.Indent = t.indent
	if err := encoder.Encode(data); err != nil {
		return nil, errors.Wrap(err, "failed to encode TOML")
	}
	return buf.Bytes(), nil
}
