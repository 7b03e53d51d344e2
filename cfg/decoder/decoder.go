package decoder

import (
	"github.com/hatlonely/flakeless/cfg/storage"
	"github.com/hatlonely/flakeless/ref"
	"github.com/pkg/errors"
)

func init() {
	ref.MustRegisterT[JsonDecoder](NewJsonDecoderWithOptions)
	ref.MustRegisterT[YamlDecoder](NewYamlDecoderWithOptions)
	ref.MustRegisterT[TomlDecoder](NewTomlDecoderWithOptions)
	ref.MustRegisterT[IniDecoder](NewIniDecoderWithOptions)
}

// Decoder 配置数据编解码器接口
// 负责将原始数据和存储对象之间进行转换
type Decoder interface {
	// Decode 将原始数据解码为存储对象
	Decode(data []byte) (storage.Storage, error)
	// Encode 将存储对象编码为原始数据
	Encode(storage storage.Storage) ([]byte, error)
}

func NewDecoderWithOptions(options *ref.TypeOptions) (Decoder, error) {
	if options == nil {
		return nil, errors.New("options is nil")
	}

	decoder, err := ref.New(options.Namespace, options.Type, options.Options)
	if err != nil {
		return nil, errors.WithMessage(err, "ref.New failed")
	}

	d, ok := decoder.(Decoder)
	if !ok {
		return nil, errors.New("decoder is not a Decoder")
	}
	return d, nil
}

// storageData 获取存储中的原始数据
func storageData(s storage.Storage) (any, error) {
	if vs, ok := s.(*storage.ValidateStorage); ok {
		s = vs.Unwrap()
	}
	if ms, ok := s.(*storage.MapStorage); ok {
		return ms.Data(), nil
	}

	var data any
	if err := s.ConvertTo(&data); err != nil {
		return nil, errors.WithMessage(err, "failed to convert storage to data")
	}
	return data, nil
}
